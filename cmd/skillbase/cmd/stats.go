package cmd

import (
	"context"

	"github.com/spf13/cobra"

	skillerr "github.com/skillbase/skillbase/internal/errors"
)

// newStatsCmd creates the stats command.
func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show corpus and index statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStats(cmd.Context(), cmd)
		},
	}
	return cmd
}

func runStats(ctx context.Context, cmd *cobra.Command) error {
	out := outWriter(cmd)

	a, err := openApp(ctx)
	if err != nil {
		return failure(out, err)
	}
	defer a.Close()

	stats, err := a.Store.Stats(ctx)
	if err != nil {
		return failure(out, skillerr.Wrap(skillerr.ErrCodeStore, err))
	}
	events, err := a.Journal.Len(ctx)
	if err != nil {
		return failure(out, err)
	}

	if out.Robot() {
		return out.JSON(map[string]any{
			"status": "ok",
			"stats": map[string]any{
				"skill_rows":     stats.SkillCount,
				"active_skills":  stats.WinnerCount,
				"terms":          stats.TermCount,
				"embedding_rows": stats.EmbeddingRows,
				"avg_doc_len":    stats.AvgDocLen,
				"corpus_version": stats.CorpusVersion,
				"reward_events":  events,
			},
		})
	}

	out.Plainf("Skill rows:      %d (%d active after layer resolution)", stats.SkillCount, stats.WinnerCount)
	out.Plainf("Distinct terms:  %d", stats.TermCount)
	out.Plainf("Embedding rows:  %d", stats.EmbeddingRows)
	out.Plainf("Avg doc length:  %.1f tokens", stats.AvgDocLen)
	out.Plainf("Corpus version:  %d", stats.CorpusVersion)
	out.Plainf("Reward events:   %d", events)
	return nil
}
