package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/skillbase/skillbase/internal/bandit"
	skillerr "github.com/skillbase/skillbase/internal/errors"
)

// feedbackOptions holds CLI flags for feedback.
type feedbackOptions struct {
	skillID string
}

// newFeedbackCmd creates the feedback command.
func newFeedbackCmd() *cobra.Command {
	var opts feedbackOptions

	cmd := &cobra.Command{
		Use:   "feedback <signal> <success|failure>",
		Short: "Record retrieval feedback",
		Long: `Record whether a retrieval signal led to a useful skill. Events are
journaled and replayed into the signal bandit on startup, so future
searches weight the signals accordingly.

Signals: ` + signalList() + `

Examples:
  skillbase feedback bm25 success
  skillbase feedback embedding failure --skill git-commit-hygiene`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFeedback(cmd.Context(), cmd, args[0], args[1], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.skillID, "skill", "s", "", "Skill the feedback refers to")
	return cmd
}

func signalList() string {
	return strings.Join(signalNames(), ", ")
}

func runFeedback(ctx context.Context, cmd *cobra.Command, signalArg, rewardArg string, opts feedbackOptions) error {
	out := outWriter(cmd)

	signal := bandit.SignalType(strings.ToLower(signalArg))
	if !signal.Valid() {
		err := skillerr.ValidationError(fmt.Sprintf("unknown signal %q", signalArg), nil)
		if near, ok := skillerr.Nearest(string(signal), signalNames()); ok {
			err = err.WithSuggestion(fmt.Sprintf("did you mean %q?", near))
		}
		return failure(out, err)
	}
	reward := bandit.Reward(strings.ToLower(rewardArg))
	if !reward.Valid() {
		return failure(out, skillerr.ValidationError(
			fmt.Sprintf("reward must be %q or %q, got %q", bandit.RewardSuccess, bandit.RewardFailure, rewardArg), nil))
	}

	a, err := openApp(ctx)
	if err != nil {
		return failure(out, err)
	}
	defer a.Close()

	qctx := a.QueryContext()
	ev, err := a.Journal.Record(ctx, bandit.RewardEvent{
		Signal:      signal,
		Reward:      reward,
		ContextKeys: qctx.Keys(),
		SkillID:     opts.skillID,
	})
	if err != nil {
		return failure(out, skillerr.Wrap(skillerr.ErrCodeStore, err))
	}

	// Apply immediately too, so a long-lived process sees its own event
	// without a replay.
	a.Bandit.Observe(signal, reward, ev.ContextKeys)

	if out.Robot() {
		return out.JSON(map[string]any{
			"status":   "ok",
			"event_id": ev.ID,
			"signal":   string(signal),
			"reward":   string(reward),
		})
	}
	out.Successf("Recorded %s for signal %s", reward, signal)
	return nil
}

func signalNames() []string {
	names := make([]string, 0, len(bandit.AllSignals()))
	for _, s := range bandit.AllSignals() {
		names = append(names, string(s))
	}
	return names
}
