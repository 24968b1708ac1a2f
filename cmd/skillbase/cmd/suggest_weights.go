package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/skillbase/skillbase/internal/bandit"
)

// newSuggestWeightsCmd creates the suggest-weights command.
func newSuggestWeightsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suggest-weights",
		Short: "Show the current learned signal weights",
		Long: `Show the per-signal weights the bandit would use for a search right
now, together with each arm's estimated success probability and
decayed observation counts.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSuggestWeights(cmd.Context(), cmd)
		},
	}
	return cmd
}

type signalReport struct {
	Signal        string  `json:"signal"`
	Weight        float64 `json:"weight"`
	EstimatedProb float64 `json:"estimated_prob"`
	Successes     float64 `json:"successes"`
	Failures      float64 `json:"failures"`
}

func runSuggestWeights(ctx context.Context, cmd *cobra.Command) error {
	out := outWriter(cmd)

	a, err := openApp(ctx)
	if err != nil {
		return failure(out, err)
	}
	defer a.Close()

	qctx := a.QueryContext()
	weights := a.Bandit.SelectWeights(qctx)

	reports := make([]signalReport, 0, len(bandit.AllSignals()))
	for _, signal := range bandit.AllSignals() {
		arm := a.Bandit.Arm(signal)
		reports = append(reports, signalReport{
			Signal:        string(signal),
			Weight:        weights.Get(signal),
			EstimatedProb: arm.EstimatedProb,
			Successes:     arm.Successes,
			Failures:      arm.Failures,
		})
	}

	events, err := a.Journal.Len(ctx)
	if err != nil {
		return failure(out, err)
	}

	if out.Robot() {
		return out.JSON(map[string]any{
			"status":  "ok",
			"weights": reports,
			"events":  events,
			"context": qctx.Keys(),
		})
	}

	out.Plainf("Learned signal weights (%d feedback events):", events)
	for _, r := range reports {
		out.Plainf("  %-16s weight=%.4f  est_prob=%.3f  s=%.2f f=%.2f",
			r.Signal, r.Weight, r.EstimatedProb, r.Successes, r.Failures)
	}
	return nil
}
