package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
)

// schemaVersion is the current database schema version.
const schemaVersion = 1

// corpusVersionKey is the state key holding the monotonically increasing
// corpus version. Every committed index mutation bumps it.
const corpusVersionKey = "corpus_version"

// Store is the embedded transactional index store. It allows concurrent
// readers via WAL and serializes writes through an in-process mutex plus a
// cross-process file lock.
type Store struct {
	mu     sync.Mutex // guards writes
	db     *sql.DB
	path   string
	lock   *flock.Flock // nil for in-memory stores
	closed bool
}

// schema creates all tables. Postings and embeddings are keyed per
// (layer, skill_id) so the one-row-per-skills-row invariants hold per layer.
const schema = `
CREATE TABLE IF NOT EXISTS skills (
	id           TEXT NOT NULL,
	layer        TEXT NOT NULL,
	source_path  TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	name         TEXT NOT NULL,
	description  TEXT NOT NULL,
	tags         TEXT NOT NULL,
	body         TEXT NOT NULL,
	doc_len      INTEGER NOT NULL,
	indexed_at   TEXT NOT NULL,
	PRIMARY KEY (layer, id)
);

CREATE TABLE IF NOT EXISTS posting (
	term      TEXT NOT NULL,
	layer     TEXT NOT NULL,
	skill_id  TEXT NOT NULL,
	term_freq INTEGER NOT NULL,
	positions TEXT NOT NULL,
	PRIMARY KEY (term, layer, skill_id)
);
CREATE INDEX IF NOT EXISTS idx_posting_skill ON posting(layer, skill_id);

CREATE TABLE IF NOT EXISTS embeddings (
	layer         TEXT NOT NULL,
	skill_id      TEXT NOT NULL,
	dims          INTEGER NOT NULL,
	vector        BLOB NOT NULL,
	embedder_type TEXT NOT NULL,
	content_hash  TEXT NOT NULL,
	PRIMARY KEY (layer, skill_id)
);

CREATE TABLE IF NOT EXISTS reward_events (
	seq          INTEGER PRIMARY KEY AUTOINCREMENT,
	event_id     TEXT NOT NULL UNIQUE,
	created_at   TEXT NOT NULL,
	signal       TEXT NOT NULL,
	reward       TEXT NOT NULL,
	context_keys TEXT NOT NULL,
	skill_id     TEXT
);

CREATE TABLE IF NOT EXISTS state (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// validateIntegrity checks an existing database file before opening.
// Returns nil if valid or absent, an error describing corruption otherwise.
func validateIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil // will be created
	}

	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("cannot open for validation: %w", err)
	}
	defer func() { _ = db.Close() }()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database corrupted: %s", result)
	}
	return nil
}

// Open opens (or creates) the index store at path. An empty path creates an
// in-memory store for testing. WAL mode enables concurrent readers; a
// cross-process flock guards the single writer.
func Open(path string) (*Store, error) {
	var dsn string
	var lock *flock.Flock

	if path == "" {
		dsn = "file::memory:?_pragma=foreign_keys(1)"
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}

		if err := validateIntegrity(path); err != nil {
			slog.Warn("index_store_corrupted",
				slog.String("path", path),
				slog.String("error", err.Error()))
			// The store is derived from markdown sources, so a corrupt file
			// is cleared and rebuilt by the next index run.
			if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
				return nil, fmt.Errorf("store corrupted at %s and cannot remove: %w", path, rmErr)
			}
			_ = os.Remove(path + "-wal")
			_ = os.Remove(path + "-shm")
			slog.Info("index_store_cleared", slog.String("path", path))
		}

		dsn = "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=synchronous(NORMAL)"
		lock = flock.New(path + ".lock")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	// In-memory databases vanish when their sole connection closes.
	if path == "" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	s := &Store{db: db, path: path, lock: lock}
	if err := s.initState(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initState() error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO state (key, value) VALUES (?, ?), (?, ?)`,
		corpusVersionKey, "0",
		"schema_version", fmt.Sprintf("%d", schemaVersion),
	)
	return err
}

// Close closes the store. Safe to call multiple times.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// withWriteLock serializes a corpus write through the in-process mutex and
// the cross-process file lock, then runs fn inside a transaction and bumps
// the corpus version. Readers never observe a partial update.
func (s *Store) withWriteLock(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return s.withTx(ctx, true, fn)
}

// withTx is the shared write path. Reward events go through it with
// bumpVersion=false: feedback is not a corpus mutation and must not
// invalidate search caches.
func (s *Store) withTx(ctx context.Context, bumpVersion bool, fn func(tx *sql.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}

	if s.lock != nil {
		locked, err := s.lock.TryLockContext(ctx, 50*time.Millisecond)
		if err != nil {
			return fmt.Errorf("acquire writer lock: %w", err)
		}
		if !locked {
			return fmt.Errorf("another process holds the writer lock")
		}
		defer func() { _ = s.lock.Unlock() }()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if bumpVersion {
		if err := bumpCorpusVersion(tx); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func bumpCorpusVersion(tx *sql.Tx) error {
	_, err := tx.Exec(
		`UPDATE state SET value = CAST(CAST(value AS INTEGER) + 1 AS TEXT) WHERE key = ?`,
		corpusVersionKey)
	return err
}

// CorpusVersion returns the current corpus version.
func (s *Store) CorpusVersion(ctx context.Context) (uint64, error) {
	var v uint64
	err := s.db.QueryRowContext(ctx,
		`SELECT CAST(value AS INTEGER) FROM state WHERE key = ?`, corpusVersionKey).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("read corpus version: %w", err)
	}
	return v, nil
}

// UpsertSkill replaces the (layer, id) row plus its postings and optional
// embedding in one transaction.
func (s *Store) UpsertSkill(ctx context.Context, skill *IndexedSkill, postings map[string]Posting, emb *EmbeddingRecord) error {
	if !skill.Layer.Valid() {
		return fmt.Errorf("invalid layer %q", skill.Layer)
	}
	tags, err := json.Marshal(skill.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}

	return s.withWriteLock(ctx, func(tx *sql.Tx) error {
		if err := deleteSkillRows(tx, skill.Layer, skill.ID); err != nil {
			return err
		}

		_, err := tx.Exec(
			`INSERT INTO skills (id, layer, source_path, content_hash, name, description, tags, body, doc_len, indexed_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			skill.ID, string(skill.Layer), skill.SourcePath, skill.ContentHash,
			skill.Name, skill.Description, string(tags), skill.Body, skill.DocLen,
			skill.IndexedAt.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("insert skill %s: %w", skill.ID, err)
		}

		for term, p := range postings {
			positions, err := json.Marshal(p.Positions)
			if err != nil {
				return fmt.Errorf("marshal positions: %w", err)
			}
			if _, err := tx.Exec(
				`INSERT INTO posting (term, layer, skill_id, term_freq, positions) VALUES (?, ?, ?, ?, ?)`,
				term, string(skill.Layer), skill.ID, p.TermFreq, string(positions)); err != nil {
				return fmt.Errorf("insert posting %q for %s: %w", term, skill.ID, err)
			}
		}

		if emb != nil {
			if emb.ContentHash != skill.ContentHash {
				return fmt.Errorf("embedding hash %s does not match skill hash %s", emb.ContentHash, skill.ContentHash)
			}
			if _, err := tx.Exec(
				`INSERT INTO embeddings (layer, skill_id, dims, vector, embedder_type, content_hash) VALUES (?, ?, ?, ?, ?, ?)`,
				string(skill.Layer), skill.ID, emb.Dims, encodeVector(emb.Vector), emb.EmbedderType, emb.ContentHash); err != nil {
				return fmt.Errorf("insert embedding for %s: %w", skill.ID, err)
			}
		}
		return nil
	})
}

// DeleteSkill removes the (layer, id) row and its derived artifacts.
func (s *Store) DeleteSkill(ctx context.Context, layer Layer, id string) error {
	return s.withWriteLock(ctx, func(tx *sql.Tx) error {
		return deleteSkillRows(tx, layer, id)
	})
}

func deleteSkillRows(tx *sql.Tx, layer Layer, id string) error {
	for _, q := range []string{
		`DELETE FROM posting WHERE layer = ? AND skill_id = ?`,
		`DELETE FROM embeddings WHERE layer = ? AND skill_id = ?`,
		`DELETE FROM skills WHERE layer = ? AND id = ?`,
	} {
		if _, err := tx.Exec(q, string(layer), id); err != nil {
			return fmt.Errorf("delete rows for %s/%s: %w", layer, id, err)
		}
	}
	return nil
}

// SourceState is the persisted identity of one indexed source, used for
// content-hash change detection.
type SourceState struct {
	Layer       Layer
	ID          string
	SourcePath  string
	ContentHash string

	// Embedding identity of the stored row; zero values when the row has
	// no embedding.
	EmbedderType string
	Dims         int
}

// ListSources returns the identity of every indexed source row.
func (s *Store) ListSources(ctx context.Context) ([]SourceState, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.layer, s.id, s.source_path, s.content_hash,
		        COALESCE(e.embedder_type, ''), COALESCE(e.dims, 0)
		 FROM skills s
		 LEFT JOIN embeddings e ON e.layer = s.layer AND e.skill_id = s.id
		 ORDER BY s.layer, s.id`)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []SourceState
	for rows.Next() {
		var st SourceState
		var layer string
		if err := rows.Scan(&layer, &st.ID, &st.SourcePath, &st.ContentHash,
			&st.EmbedderType, &st.Dims); err != nil {
			return nil, fmt.Errorf("scan source row: %w", err)
		}
		st.Layer = Layer(layer)
		out = append(out, st)
	}
	return out, rows.Err()
}

// ListSkillIDs returns the distinct skill ids in the store, ascending.
// Used for nearest-id suggestions.
func (s *Store) ListSkillIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT id FROM skills ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list skill ids: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Stats returns corpus statistics.
func (s *Store) Stats(ctx context.Context) (*IndexStats, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM skills`).Scan(&total); err != nil {
		return nil, fmt.Errorf("count skills: %w", err)
	}
	var embRows int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM embeddings`).Scan(&embRows); err != nil {
		return nil, fmt.Errorf("count embeddings: %w", err)
	}
	return &IndexStats{
		SkillCount:    total,
		WinnerCount:   snap.DocCount,
		TermCount:     len(snap.Postings),
		EmbeddingRows: embRows,
		AvgDocLen:     snap.AvgDocLen,
		CorpusVersion: snap.Version,
	}, nil
}
