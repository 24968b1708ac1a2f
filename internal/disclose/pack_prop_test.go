package disclose

import (
	"testing"

	"pgregory.net/rapid"

	"github.com/skillbase/skillbase/internal/skill"
)

func genPlan(t *rapid.T) *Plan {
	types := []skill.BlockType{
		skill.BlockText, skill.BlockCode, skill.BlockRule,
		skill.BlockPitfall, skill.BlockCommand, skill.BlockChecklist,
	}

	n := rapid.IntRange(0, 40).Draw(t, "blocks")
	blocks := make([]skill.Block, n)
	for i := range blocks {
		blocks[i] = skill.Block{
			ID:      rapid.StringMatching(`blk-[0-9]{1,4}`).Draw(t, "id"),
			Type:    rapid.SampledFrom(types).Draw(t, "type"),
			Content: rapid.StringN(-1, 400, 400).Draw(t, "content"),
		}
	}

	spec := &skill.SkillSpec{
		ID:       "prop",
		Name:     "Prop",
		Sections: []skill.Section{{ID: "all", Title: "All", Blocks: blocks}},
	}
	plan, err := BuildPlan(spec, LevelComplete, nil)
	if err != nil {
		t.Fatalf("build plan: %v", err)
	}
	return plan
}

// Budget law: a bounded pack never exceeds its budget, in either mode.
func TestPackRespectsBudgetProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		plan := genPlan(t)
		budget := rapid.IntRange(1, 2000).Draw(t, "budget")
		mode := rapid.SampledFrom([]PackMode{PackGreedy, PackKnapsack}).Draw(t, "mode")

		result, err := Pack(plan, PackConstraints{TokenBudget: budget, Mode: mode})
		if err != nil {
			t.Fatalf("pack failed: %v", err)
		}
		if result.TotalTokens > budget {
			t.Fatalf("packed %d tokens into budget %d", result.TotalTokens, budget)
		}
	})
}

// Knapsack never selects a lower total priority value than greedy.
func TestKnapsackAtLeastGreedyProperty(t *testing.T) {
	value := func(blocks []PlannedBlock) int {
		var v int
		for _, pb := range blocks {
			v += priorityWeight(pb.Block.Type)
		}
		return v
	}

	rapid.Check(t, func(t *rapid.T) {
		plan := genPlan(t)
		budget := rapid.IntRange(1, 2000).Draw(t, "budget")

		greedy, err := Pack(plan, PackConstraints{TokenBudget: budget, Mode: PackGreedy})
		if err != nil {
			t.Fatalf("greedy: %v", err)
		}
		knap, err := Pack(plan, PackConstraints{TokenBudget: budget, Mode: PackKnapsack})
		if err != nil {
			t.Fatalf("knapsack: %v", err)
		}
		if value(knap.Blocks) < value(greedy.Blocks) {
			t.Fatalf("knapsack value %d below greedy %d", value(knap.Blocks), value(greedy.Blocks))
		}
	})
}
