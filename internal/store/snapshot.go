package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"
)

// SnapshotPosting is one posting list entry in a snapshot, restricted to
// layer-winner documents.
type SnapshotPosting struct {
	SkillID  string
	TermFreq int
}

// Snapshot is an immutable view of the active corpus: the layer winner for
// each skill id, its posting lists, document lengths, and hash-valid
// embeddings. All retrieval scoring runs against a snapshot, so a query
// observes one consistent corpus version end to end.
type Snapshot struct {
	Version   uint64
	Skills    map[string]*IndexedSkill // winner per id
	Postings  map[string][]SnapshotPosting
	DocLens   map[string]int
	DocCount  int
	AvgDocLen float64

	// Embeddings holds only vectors whose content hash matches the winning
	// skill row. A stale vector is treated as absent.
	Embeddings map[string][]float32
	Dims       int
}

// Snapshot loads a consistent view of the store. Winners are resolved by
// layer priority; on equal priority the lexicographically smaller source
// path wins, which keeps resolution deterministic.
func (s *Store) Snapshot(ctx context.Context) (*Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin snapshot read: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	snap := &Snapshot{
		Skills:     make(map[string]*IndexedSkill),
		Postings:   make(map[string][]SnapshotPosting),
		DocLens:    make(map[string]int),
		Embeddings: make(map[string][]float32),
	}

	if err := tx.QueryRow(
		`SELECT CAST(value AS INTEGER) FROM state WHERE key = ?`, corpusVersionKey).Scan(&snap.Version); err != nil {
		return nil, fmt.Errorf("read corpus version: %w", err)
	}

	if err := loadWinners(tx, snap); err != nil {
		return nil, err
	}
	if err := loadPostings(tx, snap); err != nil {
		return nil, err
	}
	if err := loadEmbeddings(tx, snap); err != nil {
		return nil, err
	}

	var total int
	for id, sk := range snap.Skills {
		snap.DocLens[id] = sk.DocLen
		total += sk.DocLen
	}
	snap.DocCount = len(snap.Skills)
	if snap.DocCount > 0 {
		snap.AvgDocLen = float64(total) / float64(snap.DocCount)
	}
	return snap, nil
}

func loadWinners(tx *sql.Tx, snap *Snapshot) error {
	rows, err := tx.Query(
		`SELECT id, layer, source_path, content_hash, name, description, tags, body, doc_len, indexed_at FROM skills`)
	if err != nil {
		return fmt.Errorf("load skills: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var sk IndexedSkill
		var layer, tags, indexedAt string
		if err := rows.Scan(&sk.ID, &layer, &sk.SourcePath, &sk.ContentHash,
			&sk.Name, &sk.Description, &tags, &sk.Body, &sk.DocLen, &indexedAt); err != nil {
			return fmt.Errorf("scan skill row: %w", err)
		}
		sk.Layer = Layer(layer)
		if err := json.Unmarshal([]byte(tags), &sk.Tags); err != nil {
			return fmt.Errorf("decode tags for %s: %w", sk.ID, err)
		}
		if t, err := time.Parse(time.RFC3339Nano, indexedAt); err == nil {
			sk.IndexedAt = t
		}

		cur, ok := snap.Skills[sk.ID]
		if !ok || beats(&sk, cur) {
			clone := sk
			snap.Skills[sk.ID] = &clone
		}
	}
	return rows.Err()
}

// beats reports whether a shadows b for the same skill id.
func beats(a, b *IndexedSkill) bool {
	if a.Layer.Priority() != b.Layer.Priority() {
		return a.Layer.Priority() > b.Layer.Priority()
	}
	return a.SourcePath < b.SourcePath
}

func loadPostings(tx *sql.Tx, snap *Snapshot) error {
	rows, err := tx.Query(`SELECT term, layer, skill_id, term_freq FROM posting`)
	if err != nil {
		return fmt.Errorf("load postings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var term, layer, skillID string
		var tf int
		if err := rows.Scan(&term, &layer, &skillID, &tf); err != nil {
			return fmt.Errorf("scan posting row: %w", err)
		}
		winner, ok := snap.Skills[skillID]
		if !ok || winner.Layer != Layer(layer) {
			continue // shadowed row
		}
		snap.Postings[term] = append(snap.Postings[term], SnapshotPosting{SkillID: skillID, TermFreq: tf})
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for term := range snap.Postings {
		list := snap.Postings[term]
		sort.Slice(list, func(i, j int) bool { return list[i].SkillID < list[j].SkillID })
	}
	return nil
}

func loadEmbeddings(tx *sql.Tx, snap *Snapshot) error {
	rows, err := tx.Query(`SELECT layer, skill_id, dims, vector, content_hash FROM embeddings`)
	if err != nil {
		return fmt.Errorf("load embeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var layer, skillID, hash string
		var dims int
		var blob []byte
		if err := rows.Scan(&layer, &skillID, &dims, &blob, &hash); err != nil {
			return fmt.Errorf("scan embedding row: %w", err)
		}
		winner, ok := snap.Skills[skillID]
		if !ok || winner.Layer != Layer(layer) {
			continue
		}
		if hash != winner.ContentHash {
			continue // stale vector, excluded until reindexed
		}
		vec, err := decodeVector(blob, dims)
		if err != nil {
			return fmt.Errorf("decode vector for %s: %w", skillID, err)
		}
		snap.Embeddings[skillID] = vec
		if snap.Dims == 0 {
			snap.Dims = dims
		}
	}
	return rows.Err()
}

// Skill returns the winning row for id, or nil.
func (sn *Snapshot) Skill(id string) *IndexedSkill {
	return sn.Skills[id]
}

// SkillIDs returns all active skill ids in ascending order.
func (sn *Snapshot) SkillIDs() []string {
	ids := make([]string, 0, len(sn.Skills))
	for id := range sn.Skills {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DocFreq returns the number of active documents containing term.
func (sn *Snapshot) DocFreq(term string) int {
	return len(sn.Postings[term])
}

// encodeVector packs a float32 vector as little-endian bytes.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(blob []byte, dims int) ([]float32, error) {
	if len(blob) != 4*dims {
		return nil, fmt.Errorf("vector blob is %d bytes, want %d for %d dims", len(blob), 4*dims, dims)
	}
	vec := make([]float32, dims)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vec, nil
}
