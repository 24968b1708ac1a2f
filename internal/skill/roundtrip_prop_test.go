package skill

import (
	"testing"

	"pgregory.net/rapid"
)

// genSpec draws canonical skill specs: section ids derive from titles and
// block ids follow source order, matching what ParseMarkdown produces.
func genSpec(t *rapid.T) *SkillSpec {
	word := rapid.StringMatching(`[a-z][a-z0-9]{1,8}`)
	phrase := rapid.StringMatching(`[A-Za-z][A-Za-z0-9 ]{0,30}[a-z0-9]`)

	spec := &SkillSpec{
		Name:        phrase.Draw(t, "name"),
		Description: phrase.Draw(t, "description"),
		Version:     rapid.StringMatching(`[0-9]\.[0-9]\.[0-9]`).Draw(t, "version"),
		Tags:        rapid.SliceOfN(word, 0, 4).Draw(t, "tags"),
	}
	spec.ID = Slugify(spec.Name)
	if spec.ID == "" {
		t.Skip()
	}
	// Sometimes the id is explicit and differs from the slugified name.
	if rapid.Bool().Draw(t, "explicitID") {
		spec.ID = rapid.StringMatching(`[a-z][a-z0-9-]{1,20}`).Draw(t, "id")
	}
	if spec.Tags == nil {
		spec.Tags = []string{}
	}

	titles := map[string]struct{}{}
	sectionCount := rapid.IntRange(0, 4).Draw(t, "sections")
	for i := 0; i < sectionCount; i++ {
		title := phrase.Draw(t, "title")
		id := Slugify(title)
		if id == "" {
			continue
		}
		if _, dup := titles[id]; dup {
			continue
		}
		titles[id] = struct{}{}

		sec := Section{ID: id, Title: title}
		blockCount := rapid.IntRange(1, 5).Draw(t, "blocks")
		for j := 0; j < blockCount; j++ {
			var blk Block
			switch rapid.IntRange(0, 4).Draw(t, "kind") {
			case 0:
				blk = Block{Type: BlockRule, Content: phrase.Draw(t, "rule")}
			case 1:
				blk = Block{Type: BlockPitfall, Content: phrase.Draw(t, "pitfall")}
			case 2:
				blk = Block{Type: BlockCommand, Content: phrase.Draw(t, "cmd")}
			case 3:
				blk = Block{Type: BlockChecklist, Content: phrase.Draw(t, "check")}
			default:
				blk = Block{Type: BlockText, Content: phrase.Draw(t, "text")}
			}
			blk.ID = blockID(id, len(sec.Blocks)+1)
			sec.Blocks = append(sec.Blocks, blk)
		}
		spec.Sections = append(spec.Sections, sec)
	}
	return spec
}

func TestRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		spec := genSpec(t)

		compiled, err := CompileMarkdown(spec)
		if err != nil {
			t.Fatalf("compile: %v", err)
		}
		reparsed, err := ParseMarkdown(compiled)
		if err != nil {
			t.Fatalf("parse: %v\ndoc:\n%s", err, compiled)
		}
		if !spec.Equal(reparsed) {
			t.Fatalf("round-trip mismatch\nwant: %s\ngot:  %s\ndoc:\n%s",
				spec.Canonical(), reparsed.Canonical(), compiled)
		}
	})
}

func TestContentHashStableProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		spec := genSpec(t)
		if spec.ContentHash() != spec.ContentHash() {
			t.Fatal("hash must be deterministic")
		}
	})
}
