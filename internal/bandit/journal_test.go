package bandit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillbase/skillbase/internal/store"
)

func openJournal(t *testing.T) *Journal {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return NewJournal(s)
}

func TestJournalRecordAssignsIDAndTimestamp(t *testing.T) {
	j := openJournal(t)
	ctx := context.Background()

	ev, err := j.Record(ctx, RewardEvent{
		Signal: SignalBM25,
		Reward: RewardSuccess,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, ev.ID)
	assert.False(t, ev.Timestamp.IsZero())
}

func TestJournalRejectsInvalidEvents(t *testing.T) {
	j := openJournal(t)
	ctx := context.Background()

	_, err := j.Record(ctx, RewardEvent{Signal: "page_rank", Reward: RewardSuccess})
	assert.Error(t, err)

	_, err = j.Record(ctx, RewardEvent{Signal: SignalBM25, Reward: "meh"})
	assert.Error(t, err)

	n, err := j.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "rejected events must not be journaled")
}

func TestReplayReconstructsBanditDeterministically(t *testing.T) {
	j := openJournal(t)
	ctx := context.Background()

	keys := QueryContext{TechStack: "go"}.Keys()
	events := []RewardEvent{
		{Signal: SignalEmbedding, Reward: RewardSuccess, ContextKeys: keys},
		{Signal: SignalEmbedding, Reward: RewardSuccess, ContextKeys: keys},
		{Signal: SignalBM25, Reward: RewardFailure},
		{Signal: SignalEmbedding, Reward: RewardSuccess},
	}

	live := New(WithSeed(1))
	for _, ev := range events {
		_, err := j.Record(ctx, ev)
		require.NoError(t, err)
		live.Observe(ev.Signal, ev.Reward, ev.ContextKeys)
	}

	rebuilt := New(WithSeed(1))
	applied, err := j.ReplayInto(ctx, rebuilt)
	require.NoError(t, err)
	assert.Equal(t, len(events), applied)

	for _, s := range AllSignals() {
		liveArm, rebuiltArm := live.Arm(s), rebuilt.Arm(s)
		assert.InDelta(t, liveArm.Successes, rebuiltArm.Successes, 1e-12, "successes for %s", s)
		assert.InDelta(t, liveArm.Failures, rebuiltArm.Failures, 1e-12, "failures for %s", s)
		assert.InDelta(t, liveArm.EstimatedProb, rebuiltArm.EstimatedProb, 1e-12, "estimate for %s", s)
	}

	liveMod, ok := live.Modifier(TechStackKey("go"))
	require.True(t, ok)
	rebuiltMod, ok := rebuilt.Modifier(TechStackKey("go"))
	require.True(t, ok)
	assert.Equal(t, liveMod.ProbabilityBonus, rebuiltMod.ProbabilityBonus)
}

func TestReplaySkipsUnknownSignals(t *testing.T) {
	j := openJournal(t)
	ctx := context.Background()

	// Simulate an event journaled by a build with a signal this one lacks.
	require.NoError(t, j.store.AppendRewardEvent(ctx, store.RewardRow{
		EventID:     "legacy-1",
		CreatedAt:   time.Now(),
		Signal:      "page_rank",
		Reward:      "success",
		ContextKeys: []string{},
	}))
	_, err := j.Record(ctx, RewardEvent{Signal: SignalBM25, Reward: RewardSuccess})
	require.NoError(t, err)

	b := New(WithSeed(1))
	applied, err := j.ReplayInto(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, 1, applied)
}

func TestJournalPreservesAppendOrder(t *testing.T) {
	j := openJournal(t)
	ctx := context.Background()

	// With full decay, only the most recent observation survives, so
	// replay order is observable through the final estimate.
	for _, r := range []Reward{RewardSuccess, RewardSuccess, RewardFailure} {
		_, err := j.Record(ctx, RewardEvent{Signal: SignalTrigger, Reward: r})
		require.NoError(t, err)
	}

	b := New(WithSeed(1), WithDecay(0))
	_, err := j.ReplayInto(ctx, b)
	require.NoError(t, err)

	arm := b.Arm(SignalTrigger)
	assert.InDelta(t, 1, arm.Failures, 1e-12)
	assert.Zero(t, arm.Successes)
}
