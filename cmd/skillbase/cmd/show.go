package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/skillbase/skillbase/internal/disclose"
	skillerr "github.com/skillbase/skillbase/internal/errors"
	"github.com/skillbase/skillbase/internal/index"
)

// showOptions holds CLI flags for show.
type showOptions struct {
	level    string
	budget   int
	sections []string
	packMode string
}

// newShowCmd creates the show command.
func newShowCmd() *cobra.Command {
	var opts showOptions

	cmd := &cobra.Command{
		Use:   "show <skill-id>",
		Short: "Render a skill at a disclosure level",
		Long: `Render a skill's content, selecting sections by disclosure level
and packing blocks under the token budget.

Levels: minimal, overview, standard, full, complete. An explicit
--budget overrides the level's preset; --sections forces sections
into the output even when the level would drop them.

Examples:
  skillbase show git-commit-hygiene
  skillbase show git-commit-hygiene --level overview
  skillbase show git-commit-hygiene --budget 400 --pack knapsack
  skillbase show git-commit-hygiene --sections pitfalls,examples`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd.Context(), cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.level, "level", "L", "", "Disclosure level (default from config)")
	cmd.Flags().IntVarP(&opts.budget, "budget", "b", 0, "Token budget (0 = level preset)")
	cmd.Flags().StringSliceVar(&opts.sections, "sections", nil, "Section ids that must be included (repeatable)")
	cmd.Flags().StringVar(&opts.packMode, "pack", string(disclose.PackGreedy), "Packing mode: greedy, knapsack")

	return cmd
}

func runShow(ctx context.Context, cmd *cobra.Command, id string, opts showOptions) error {
	out := outWriter(cmd)
	start := time.Now()

	a, err := openApp(ctx)
	if err != nil {
		return failure(out, err)
	}
	defer a.Close()

	levelName := opts.level
	if levelName == "" {
		levelName = a.Config.Disclosure.DefaultLevel
	}
	level, err := disclose.ParseLevel(levelName)
	if err != nil {
		return failure(out, skillerr.ValidationError(err.Error(), err))
	}

	budget := opts.budget
	if budget == 0 {
		budget = a.Config.Disclosure.TokenBudget
	}

	snap, err := a.Store.Snapshot(ctx)
	if err != nil {
		return failure(out, skillerr.Wrap(skillerr.ErrCodeStore, err))
	}
	spec, err := index.NewLoader(snap).Load(id)
	if err != nil {
		return failure(out, err)
	}

	plan, err := disclose.BuildPlan(spec, level, opts.sections)
	if err != nil {
		return failure(out, err)
	}
	result, err := disclose.Pack(plan, disclose.PackConstraints{
		TokenBudget:      budget,
		RequiredSections: opts.sections,
		Mode:             disclose.PackMode(opts.packMode),
	})
	if err != nil {
		return failure(out, err)
	}

	rendered := disclose.Render(result)

	if out.Robot() {
		return out.JSON(map[string]any{
			"status": "ok",
			"skill": map[string]any{
				"id":           spec.ID,
				"name":         spec.Name,
				"level":        string(result.Level),
				"total_tokens": result.TotalTokens,
				"budget":       result.Budget,
				"content":      rendered,
			},
			"elapsed_ms": time.Since(start).Milliseconds(),
		})
	}

	out.Plain(rendered)
	out.Statusf("ℹ️ ", "level=%s tokens=%d budget=%d", result.Level, result.TotalTokens, result.Budget)
	return nil
}
