// Package skill defines the canonical in-memory skill representation and the
// Markdown <-> spec compile/parse pair. A SkillSpec is an immutable value;
// re-reading a source file produces a new spec rather than mutating the old.
//
// Parsing canonicalizes: whitespace-only differences are dropped and checked
// checklist items ("- [x]") normalize to unchecked, so the round-trip law
// holds over canonical form, not over source bytes.
package skill

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// BlockType identifies the typed content of a block.
type BlockType string

const (
	BlockText      BlockType = "text"
	BlockCode      BlockType = "code"
	BlockRule      BlockType = "rule"
	BlockPitfall   BlockType = "pitfall"
	BlockCommand   BlockType = "command"
	BlockChecklist BlockType = "checklist"
)

// AllBlockTypes lists every block type in priority order (highest first).
// The disclosure packer uses this ordering.
func AllBlockTypes() []BlockType {
	return []BlockType{BlockRule, BlockPitfall, BlockChecklist, BlockCommand, BlockCode, BlockText}
}

// Valid reports whether t is a known block type.
func (t BlockType) Valid() bool {
	switch t {
	case BlockText, BlockCode, BlockRule, BlockPitfall, BlockCommand, BlockChecklist:
		return true
	}
	return false
}

// SectionFamily names the inheritable section families for extends
// resolution. A section belongs to a family when its id matches.
type SectionFamily string

const (
	FamilyRules     SectionFamily = "rules"
	FamilyExamples  SectionFamily = "examples"
	FamilyPitfalls  SectionFamily = "pitfalls"
	FamilyChecklist SectionFamily = "checklist"
)

// SectionFamilies lists the inheritable families in stable order.
func SectionFamilies() []SectionFamily {
	return []SectionFamily{FamilyRules, FamilyExamples, FamilyPitfalls, FamilyChecklist}
}

// Block is a typed content unit inside a section.
type Block struct {
	ID      string    `json:"id"`
	Type    BlockType `json:"type"`
	Content string    `json:"content"`
}

// Section is an ordered list of typed blocks under an H2 heading.
type Section struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Blocks []Block `json:"blocks"`
}

// Extends declares single-level inheritance from a parent skill.
// Replace flags select replace-vs-merge per section family.
type Extends struct {
	Parent  string                 `json:"parent"`
	Replace map[SectionFamily]bool `json:"replace,omitempty"`
}

// ExtraField preserves an unrecognized front-matter key on round-trip.
// Raw holds the YAML-encoded value.
type ExtraField struct {
	Key string `json:"key"`
	Raw string `json:"raw"`
}

// SkillSpec is the canonical skill value. Serialization order of fields is
// fixed; tags keep insertion order.
type SkillSpec struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Version     string       `json:"version"`
	Description string       `json:"description"`
	Tags        []string     `json:"tags"`
	Requires    []string     `json:"requires,omitempty"`
	Provides    []string     `json:"provides,omitempty"`
	Platforms   []string     `json:"platforms,omitempty"`
	Author      string       `json:"author,omitempty"`
	License     string       `json:"license,omitempty"`
	Extends     *Extends     `json:"extends,omitempty"`
	Extra       []ExtraField `json:"extra,omitempty"`
	Sections    []Section    `json:"sections"`
}

// Canonical returns the canonical JSON serialization of the spec.
// Identical specs always serialize to identical bytes.
func (s *SkillSpec) Canonical() []byte {
	data, err := json.Marshal(s)
	if err != nil {
		// Marshal of a plain value struct cannot fail; keep the invariant
		// that Canonical always returns a serialization.
		return []byte(fmt.Sprintf("{\"id\":%q}", s.ID))
	}
	return data
}

// ContentHash returns the SHA-256 of the canonical serialization.
// It changes iff any attribute of the spec changes.
func (s *SkillSpec) ContentHash() string {
	sum := sha256.Sum256(s.Canonical())
	return hex.EncodeToString(sum[:])
}

// Equal reports canonical equality between two specs.
func (s *SkillSpec) Equal(other *SkillSpec) bool {
	if s == nil || other == nil {
		return s == other
	}
	return string(s.Canonical()) == string(other.Canonical())
}

// Body returns the searchable text of the spec: name, description, tags and
// all block contents. This is the text the tokenizer and embedder see.
func (s *SkillSpec) Body() string {
	var b strings.Builder
	b.WriteString(s.Name)
	b.WriteString("\n")
	b.WriteString(s.Description)
	b.WriteString("\n")
	b.WriteString(strings.Join(s.Tags, " "))
	for _, sec := range s.Sections {
		b.WriteString("\n")
		b.WriteString(sec.Title)
		for _, blk := range sec.Blocks {
			b.WriteString("\n")
			b.WriteString(blk.Content)
		}
	}
	return b.String()
}

// Section returns the section with the given id, or nil.
func (s *SkillSpec) Section(id string) *Section {
	for i := range s.Sections {
		if s.Sections[i].ID == id {
			return &s.Sections[i]
		}
	}
	return nil
}

// HasTag reports whether the spec carries the given tag.
func (s *SkillSpec) HasTag(tag string) bool {
	for _, t := range s.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Validate checks structural invariants: non-empty id and name, valid block
// types, unique section ids.
func (s *SkillSpec) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("skill id is empty")
	}
	if s.Name == "" {
		return fmt.Errorf("skill %s: name is empty", s.ID)
	}
	seen := make(map[string]struct{}, len(s.Sections))
	for _, sec := range s.Sections {
		if _, dup := seen[sec.ID]; dup {
			return fmt.Errorf("skill %s: duplicate section id %q", s.ID, sec.ID)
		}
		seen[sec.ID] = struct{}{}
		for _, blk := range sec.Blocks {
			if !blk.Type.Valid() {
				return fmt.Errorf("skill %s: section %s: invalid block type %q", s.ID, sec.ID, blk.Type)
			}
		}
	}
	return nil
}

// Slugify converts a title to a stable id slug: lowercase ASCII
// alphanumerics with single dashes.
func Slugify(input string) string {
	lowered := strings.ToLower(strings.TrimSpace(input))
	var out strings.Builder
	lastDash := false
	for _, ch := range lowered {
		if (ch >= 'a' && ch <= 'z') || (ch >= '0' && ch <= '9') {
			out.WriteRune(ch)
			lastDash = false
		} else if !lastDash {
			out.WriteByte('-')
			lastDash = true
		}
	}
	return strings.Trim(out.String(), "-")
}
