package disclose

import (
	"fmt"
	"sort"

	skillerr "github.com/skillbase/skillbase/internal/errors"
	"github.com/skillbase/skillbase/internal/skill"
)

// PackMode selects the packing algorithm.
type PackMode string

const (
	// PackGreedy takes blocks in priority order while they fit, skipping
	// those that do not.
	PackGreedy PackMode = "greedy"
	// PackKnapsack solves 0/1 knapsack over the optional blocks to
	// maximize total priority within the remaining budget.
	PackKnapsack PackMode = "knapsack"
)

// PackConstraints bound one pack run. A zero TokenBudget falls back to the
// plan level's default; if that is also zero the budget is unbounded.
type PackConstraints struct {
	TokenBudget      int
	RequiredSections []string
	Mode             PackMode
}

// PackResult is a finished pack: the chosen blocks in source order plus
// the spent budget.
type PackResult struct {
	Level       Level
	Blocks      []PlannedBlock
	TotalTokens int
	Budget      int // 0 when unbounded

	spec *skill.SkillSpec
}

// Skill returns the spec this pack was built from.
func (r *PackResult) Skill() *skill.SkillSpec { return r.spec }

// priorityWeight orders block types for packing: operational guidance
// first, prose last.
func priorityWeight(t skill.BlockType) int {
	switch t {
	case skill.BlockRule:
		return 6
	case skill.BlockPitfall:
		return 5
	case skill.BlockChecklist:
		return 4
	case skill.BlockCommand:
		return 3
	case skill.BlockCode:
		return 2
	default:
		return 1
	}
}

// Pack fits a plan's blocks into the budget. Required blocks are always
// included; if they alone exceed the budget the pack fails rather than
// silently dropping them.
func Pack(plan *Plan, constraints PackConstraints) (*PackResult, error) {
	budget := constraints.TokenBudget
	if budget == 0 {
		budget = plan.Level.TokenBudget()
	}
	if budget < 0 {
		return nil, skillerr.ValidationError(fmt.Sprintf("token budget %d is negative", budget), nil)
	}

	mode := constraints.Mode
	if mode == "" {
		mode = PackGreedy
	}

	candidates := make([]PlannedBlock, len(plan.Blocks))
	copy(candidates, plan.Blocks)

	// Unbounded budget: everything the plan selected is included.
	if budget == 0 {
		return &PackResult{
			Level:       plan.Level,
			Blocks:      candidates,
			TotalTokens: TotalTokens(candidates),
			spec:        plan.Skill,
		}, nil
	}

	var required, optional []PlannedBlock
	for _, pb := range candidates {
		if pb.Required {
			required = append(required, pb)
		} else {
			optional = append(optional, pb)
		}
	}

	requiredTokens := TotalTokens(required)
	if requiredTokens > budget {
		return nil, skillerr.BudgetInfeasible(requiredTokens, budget)
	}

	// Priority descending, source order within equal priority. The sort is
	// stable and Order is unique, so packing is deterministic.
	sort.SliceStable(optional, func(i, j int) bool {
		pi, pj := priorityWeight(optional[i].Block.Type), priorityWeight(optional[j].Block.Type)
		if pi != pj {
			return pi > pj
		}
		return optional[i].Order < optional[j].Order
	})

	var chosen []PlannedBlock
	switch mode {
	case PackGreedy:
		chosen = packGreedy(optional, budget-requiredTokens)
	case PackKnapsack:
		chosen = packKnapsack(optional, budget-requiredTokens)
	default:
		return nil, skillerr.ValidationError(fmt.Sprintf("unknown pack mode %q", mode), nil)
	}

	final := append(required, chosen...)
	sort.Slice(final, func(i, j int) bool { return final[i].Order < final[j].Order })

	return &PackResult{
		Level:       plan.Level,
		Blocks:      final,
		TotalTokens: TotalTokens(final),
		Budget:      budget,
		spec:        plan.Skill,
	}, nil
}

// packGreedy walks the priority-ordered blocks and keeps whatever still
// fits. Oversized blocks are skipped, not terminal.
func packGreedy(optional []PlannedBlock, capacity int) []PlannedBlock {
	var chosen []PlannedBlock
	used := 0
	for _, pb := range optional {
		cost := TokenCost(pb.Block)
		if used+cost > capacity {
			continue
		}
		chosen = append(chosen, pb)
		used += cost
	}
	return chosen
}

// packKnapsack runs 0/1 knapsack with value = priority weight. The DP
// prefers earlier blocks on equal value so output stays stable.
func packKnapsack(optional []PlannedBlock, capacity int) []PlannedBlock {
	n := len(optional)
	if n == 0 || capacity <= 0 {
		return nil
	}

	// best[i][c] = max value using blocks[i:] with c tokens free.
	best := make([][]int, n+1)
	for i := range best {
		best[i] = make([]int, capacity+1)
	}
	for i := n - 1; i >= 0; i-- {
		cost := TokenCost(optional[i].Block)
		value := priorityWeight(optional[i].Block.Type)
		for c := 0; c <= capacity; c++ {
			best[i][c] = best[i+1][c]
			if cost <= c && best[i+1][c-cost]+value > best[i][c] {
				best[i][c] = best[i+1][c-cost] + value
			}
		}
	}

	var chosen []PlannedBlock
	c := capacity
	for i := 0; i < n; i++ {
		cost := TokenCost(optional[i].Block)
		value := priorityWeight(optional[i].Block.Type)
		// Take whenever taking is optimal; ties resolve toward taking,
		// which keeps earlier high-priority blocks.
		if cost <= c && best[i+1][c-cost]+value == best[i][c] {
			chosen = append(chosen, optional[i])
			c -= cost
		}
	}
	return chosen
}
