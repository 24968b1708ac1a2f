package bandit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/skillbase/skillbase/internal/store"
)

// RewardEvent is one feedback observation. Events are journaled before the
// bandit sees them, so the in-memory state can always be rebuilt by replay.
type RewardEvent struct {
	ID          string
	Timestamp   time.Time
	Signal      SignalType
	Reward      Reward
	ContextKeys []ContextKey
	SkillID     string
}

// Journal is the append-only reward log backed by the index store. Replay
// order equals append order, so reconstruction is deterministic.
type Journal struct {
	store *store.Store
}

// NewJournal creates a journal over the given store.
func NewJournal(s *store.Store) *Journal {
	return &Journal{store: s}
}

// Record validates and appends one event. A missing ID gets a fresh UUID
// and a zero timestamp gets the current time; the stored event is returned.
func (j *Journal) Record(ctx context.Context, ev RewardEvent) (RewardEvent, error) {
	if !ev.Signal.Valid() {
		return ev, fmt.Errorf("unknown signal %q", ev.Signal)
	}
	if !ev.Reward.Valid() {
		return ev, fmt.Errorf("unknown reward %q", ev.Reward)
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	keys := make([]string, len(ev.ContextKeys))
	for i, k := range ev.ContextKeys {
		keys[i] = string(k)
	}
	err := j.store.AppendRewardEvent(ctx, store.RewardRow{
		EventID:     ev.ID,
		CreatedAt:   ev.Timestamp,
		Signal:      string(ev.Signal),
		Reward:      string(ev.Reward),
		ContextKeys: keys,
		SkillID:     ev.SkillID,
	})
	if err != nil {
		return ev, err
	}
	return ev, nil
}

// ReplayInto feeds every journaled event into b in append order and
// returns the number of events applied. Events with signals or rewards
// this build no longer knows are skipped rather than failing the replay.
func (j *Journal) ReplayInto(ctx context.Context, b *Bandit) (int, error) {
	rows, err := j.store.LoadRewardEvents(ctx)
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, row := range rows {
		signal := SignalType(row.Signal)
		reward := Reward(row.Reward)
		if !signal.Valid() || !reward.Valid() {
			continue
		}
		keys := make([]ContextKey, len(row.ContextKeys))
		for i, k := range row.ContextKeys {
			keys[i] = ContextKey(k)
		}
		b.Observe(signal, reward, keys)
		applied++
	}
	return applied, nil
}

// Len returns the number of journaled events.
func (j *Journal) Len(ctx context.Context) (int, error) {
	return j.store.RewardEventCount(ctx)
}
