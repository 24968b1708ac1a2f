package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// RewardRow is one persisted feedback event. Rows are append-only and
// ordered by Seq, which the autoincrement column assigns at insert time.
type RewardRow struct {
	Seq         int64
	EventID     string
	CreatedAt   time.Time
	Signal      string
	Reward      string
	ContextKeys []string
	SkillID     string
}

// AppendRewardEvent appends one feedback event. Feedback writes do not
// touch the corpus version.
func (s *Store) AppendRewardEvent(ctx context.Context, row RewardRow) error {
	if row.EventID == "" {
		return fmt.Errorf("reward event id is empty")
	}
	keys, err := json.Marshal(row.ContextKeys)
	if err != nil {
		return fmt.Errorf("marshal context keys: %w", err)
	}
	return s.withTx(ctx, false, func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`INSERT INTO reward_events (event_id, created_at, signal, reward, context_keys, skill_id)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			row.EventID, row.CreatedAt.UTC().Format(time.RFC3339Nano),
			row.Signal, row.Reward, string(keys), row.SkillID)
		if err != nil {
			return fmt.Errorf("append reward event %s: %w", row.EventID, err)
		}
		return nil
	})
}

// LoadRewardEvents returns every feedback event in append order.
func (s *Store) LoadRewardEvents(ctx context.Context) ([]RewardRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, event_id, created_at, signal, reward, context_keys, skill_id
		 FROM reward_events ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("load reward events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []RewardRow
	for rows.Next() {
		var row RewardRow
		var createdAt, keys string
		if err := rows.Scan(&row.Seq, &row.EventID, &createdAt, &row.Signal, &row.Reward, &keys, &row.SkillID); err != nil {
			return nil, fmt.Errorf("scan reward event: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			row.CreatedAt = t
		}
		if err := json.Unmarshal([]byte(keys), &row.ContextKeys); err != nil {
			return nil, fmt.Errorf("decode context keys for %s: %w", row.EventID, err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// RewardEventCount returns the journal length.
func (s *Store) RewardEventCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reward_events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count reward events: %w", err)
	}
	return n, nil
}
