package disclose

import "github.com/skillbase/skillbase/internal/skill"

// blockOverhead is the fixed per-block cost covering type markers and
// separators around the content.
const blockOverhead = 2

// TokenCost estimates a block's cost: one token per four content bytes,
// rounded up, plus the fixed overhead. Monotone in content length.
func TokenCost(blk skill.Block) int {
	return (len(blk.Content)+3)/4 + blockOverhead
}

// TotalTokens sums the cost of every planned block.
func TotalTokens(blocks []PlannedBlock) int {
	var total int
	for _, pb := range blocks {
		total += TokenCost(pb.Block)
	}
	return total
}
