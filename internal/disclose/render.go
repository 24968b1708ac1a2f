package disclose

import (
	"fmt"
	"strings"

	"github.com/skillbase/skillbase/internal/skill"
)

// Render emits a packed disclosure as markdown: a metadata header, then
// each section heading with its surviving blocks in source order. Sections
// whose blocks were all dropped still appear as bare headings, so even a
// minimal disclosure shows the skill's shape.
func Render(result *PackResult) string {
	spec := result.Skill()

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", spec.Name)
	if spec.Description != "" {
		b.WriteString("\n" + spec.Description + "\n")
	}
	if len(spec.Tags) > 0 {
		b.WriteString("\nTags: " + strings.Join(spec.Tags, ", ") + "\n")
	}
	if spec.Version != "" {
		b.WriteString("Version: " + spec.Version + "\n")
	}

	bySection := make(map[string][]PlannedBlock)
	for _, pb := range result.Blocks {
		bySection[pb.SectionID] = append(bySection[pb.SectionID], pb)
	}

	for _, sec := range spec.Sections {
		b.WriteString("\n## " + sec.Title + "\n")
		for _, pb := range bySection[sec.ID] {
			b.WriteString("\n" + renderBlock(pb.Block))
		}
	}
	return b.String()
}

func renderBlock(blk skill.Block) string {
	switch blk.Type {
	case skill.BlockRule:
		return "- RULE: " + blk.Content + "\n"
	case skill.BlockPitfall:
		return "- PITFALL: " + blk.Content + "\n"
	case skill.BlockCommand:
		return "- CMD: " + blk.Content + "\n"
	case skill.BlockChecklist:
		return "- [ ] " + blk.Content + "\n"
	case skill.BlockCode:
		content := strings.TrimRight(blk.Content, "\n")
		if !strings.HasPrefix(strings.TrimSpace(content), "```") {
			content = "```\n" + content + "\n```"
		}
		return content + "\n"
	default:
		return strings.TrimRight(blk.Content, "\n") + "\n"
	}
}
