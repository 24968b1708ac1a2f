package skill

import "strconv"

// LookupFunc resolves a skill id to its spec. Used by extends resolution so
// parents are found by id lookup against the store, never by pointer graphs.
type LookupFunc func(id string) (*SkillSpec, bool)

// ResolveExtends returns a copy of spec with its parent's inheritable
// sections merged in. At most one level of extension is resolved; a parent's
// own extends clause is ignored to avoid unbounded recursion.
//
// For each inheritable family (rules, examples, pitfalls, checklist):
//   - replace[family] == true: the child's section wins outright.
//   - otherwise: parent blocks come first, then child blocks appended.
//
// Sections outside the inheritable families are never inherited. A missing
// parent leaves the spec unchanged.
func ResolveExtends(spec *SkillSpec, lookup LookupFunc) *SkillSpec {
	if spec == nil || spec.Extends == nil || spec.Extends.Parent == "" {
		return spec
	}
	parent, ok := lookup(spec.Extends.Parent)
	if !ok || parent == nil {
		return spec
	}

	resolved := *spec
	resolved.Sections = make([]Section, 0, len(spec.Sections)+len(parent.Sections))

	merged := make(map[SectionFamily]bool)
	for _, sec := range spec.Sections {
		fam, inheritable := familyOf(sec.ID)
		if !inheritable || spec.Extends.Replace[fam] {
			resolved.Sections = append(resolved.Sections, sec)
			continue
		}
		if parentSec := parent.Section(sec.ID); parentSec != nil {
			resolved.Sections = append(resolved.Sections, mergeSections(*parentSec, sec))
			merged[fam] = true
			continue
		}
		resolved.Sections = append(resolved.Sections, sec)
	}

	// Inheritable parent sections the child does not declare at all.
	for _, parentSec := range parent.Sections {
		fam, inheritable := familyOf(parentSec.ID)
		if !inheritable || merged[fam] || spec.Extends.Replace[fam] {
			continue
		}
		if spec.Section(parentSec.ID) == nil {
			resolved.Sections = append(resolved.Sections, parentSec)
		}
	}

	return &resolved
}

// familyOf maps a section id to its inheritable family.
func familyOf(sectionID string) (SectionFamily, bool) {
	for _, fam := range SectionFamilies() {
		if sectionID == string(fam) {
			return fam, true
		}
	}
	return "", false
}

// mergeSections appends child blocks after parent blocks, keeping the
// child's title. Block ids are renumbered for uniqueness.
func mergeSections(parent, child Section) Section {
	out := Section{ID: child.ID, Title: child.Title}
	for _, blk := range parent.Blocks {
		out.Blocks = append(out.Blocks, blk)
	}
	out.Blocks = append(out.Blocks, child.Blocks...)
	for i := range out.Blocks {
		out.Blocks[i].ID = blockID(out.ID, i+1)
	}
	return out
}

func blockID(sectionID string, n int) string {
	return sectionID + "-block-" + strconv.Itoa(n)
}
