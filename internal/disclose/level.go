// Package disclose renders skills progressively: a level selects which
// section families to reveal, and a constrained packer fits the selected
// blocks into a token budget.
package disclose

import (
	"fmt"
	"strings"

	skillerr "github.com/skillbase/skillbase/internal/errors"
	"github.com/skillbase/skillbase/internal/skill"
)

// Level names a disclosure depth.
type Level string

const (
	LevelMinimal  Level = "minimal"
	LevelOverview Level = "overview"
	LevelStandard Level = "standard"
	LevelFull     Level = "full"
	LevelComplete Level = "complete"
)

// ParseLevel accepts level names, numeric aliases 0-4, and the legacy
// "moderate" alias for standard.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "minimal", "0":
		return LevelMinimal, nil
	case "overview", "1":
		return LevelOverview, nil
	case "standard", "moderate", "2", "":
		return LevelStandard, nil
	case "full", "3":
		return LevelFull, nil
	case "complete", "4":
		return LevelComplete, nil
	default:
		return "", fmt.Errorf("unknown disclosure level %q", s)
	}
}

// Rank orders levels by depth.
func (l Level) Rank() int {
	switch l {
	case LevelMinimal:
		return 0
	case LevelOverview:
		return 1
	case LevelStandard:
		return 2
	case LevelFull:
		return 3
	case LevelComplete:
		return 4
	default:
		return -1
	}
}

// TokenBudget returns the level's default budget; 0 means unbounded.
func (l Level) TokenBudget() int {
	switch l {
	case LevelMinimal:
		return 100
	case LevelOverview:
		return 500
	case LevelStandard:
		return 1500
	default:
		return 0
	}
}

// Caps applied by the overview and standard plans.
const (
	overviewRuleCap    = 3
	overviewExampleCap = 1
	standardExampleCap = 2
)

// largeAssetBytes is the Full level's cutoff: blocks past this size count
// as large assets and only appear at Complete.
const largeAssetBytes = 4096

// PlannedBlock is one candidate block with its section context. Order
// preserves source position across the whole skill.
type PlannedBlock struct {
	SectionID    string
	SectionTitle string
	Block        skill.Block
	Required     bool
	Order        int
}

// Plan is the level-selected slice of a skill, ready for packing.
type Plan struct {
	Level  Level
	Skill  *skill.SkillSpec
	Blocks []PlannedBlock
}

// BuildPlan selects the blocks a level reveals and marks every block of a
// required section. Unknown required sections fail with a section error.
func BuildPlan(spec *skill.SkillSpec, level Level, requiredSections []string) (*Plan, error) {
	if level.Rank() < 0 {
		return nil, fmt.Errorf("unknown disclosure level %q", level)
	}

	required := make(map[string]bool, len(requiredSections))
	for _, id := range requiredSections {
		if spec.Section(id) == nil {
			known := make([]string, 0, len(spec.Sections))
			for _, sec := range spec.Sections {
				known = append(known, sec.ID)
			}
			e := skillerr.Newf(skillerr.ErrCodeSectionUnknown, "skill %s has no section %q", spec.ID, id)
			if nearest, ok := skillerr.Nearest(id, known); ok {
				e = e.WithSuggestion(fmt.Sprintf("did you mean %q?", nearest))
			}
			return nil, e
		}
		required[id] = true
	}

	plan := &Plan{Level: level, Skill: spec}
	order := 0
	codeSeen := 0
	ruleSeen := 0

	for _, sec := range spec.Sections {
		for _, blk := range sec.Blocks {
			order++
			include := required[sec.ID] || levelIncludes(level, blk, &ruleSeen, &codeSeen)
			if !include {
				continue
			}
			plan.Blocks = append(plan.Blocks, PlannedBlock{
				SectionID:    sec.ID,
				SectionTitle: sec.Title,
				Block:        blk,
				Required:     required[sec.ID],
				Order:        order,
			})
		}
	}
	return plan, nil
}

// levelIncludes applies the fixed per-level family selection. The counters
// track caps that span sections (rules shown, examples shown).
func levelIncludes(level Level, blk skill.Block, ruleSeen, codeSeen *int) bool {
	switch level {
	case LevelMinimal:
		// Metadata and headings only.
		return false
	case LevelOverview:
		switch blk.Type {
		case skill.BlockRule:
			*ruleSeen++
			return *ruleSeen <= overviewRuleCap
		case skill.BlockCode:
			*codeSeen++
			return *codeSeen <= overviewExampleCap
		default:
			return false
		}
	case LevelStandard:
		switch blk.Type {
		case skill.BlockRule, skill.BlockPitfall, skill.BlockChecklist, skill.BlockCommand:
			return true
		case skill.BlockCode:
			*codeSeen++
			return *codeSeen <= standardExampleCap
		default:
			return false
		}
	case LevelFull:
		return len(blk.Content) <= largeAssetBytes
	default: // LevelComplete
		return true
	}
}
