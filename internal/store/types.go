// Package store provides the skill index persistence layer: layered source
// tracking, posting lists for BM25, the embedding table, and immutable
// corpus snapshots for search.
package store

import (
	"fmt"
	"time"
)

// Layer identifies a skill-source precedence tier.
type Layer string

const (
	LayerGlobal  Layer = "global"
	LayerOrg     Layer = "org"
	LayerUser    Layer = "user"
	LayerProject Layer = "project"
	LayerLocal   Layer = "local"
)

// AllLayers lists layers in ascending precedence order.
func AllLayers() []Layer {
	return []Layer{LayerGlobal, LayerOrg, LayerUser, LayerProject, LayerLocal}
}

// Priority returns the precedence rank: local > project > user > org > global.
func (l Layer) Priority() int {
	switch l {
	case LayerLocal:
		return 4
	case LayerProject:
		return 3
	case LayerUser:
		return 2
	case LayerOrg:
		return 1
	case LayerGlobal:
		return 0
	default:
		return -1
	}
}

// Valid reports whether l names a known layer.
func (l Layer) Valid() bool {
	return l.Priority() >= 0
}

// IndexedSkill is the index projection of a skill. Exactly one row exists
// per (layer, id); at search time the highest-priority layer wins per id.
type IndexedSkill struct {
	ID          string
	Layer       Layer
	SourcePath  string
	ContentHash string
	Name        string
	Description string
	Tags        []string
	Body        string
	DocLen      int // token count of the body
	IndexedAt   time.Time
}

// Posting is one inverted-index entry: a term occurrence inside a skill.
type Posting struct {
	SkillID   string
	TermFreq  int
	Positions []int
}

// EmbeddingRecord is one row of the embedding table. It is stale when its
// ContentHash no longer matches the skill's; stale rows are not served.
type EmbeddingRecord struct {
	SkillID      string
	Vector       []float32
	Dims         int
	EmbedderType string
	ContentHash  string
}

// BM25Config configures the Okapi BM25 scorer.
type BM25Config struct {
	// K1 is the term frequency saturation parameter (default: 1.2).
	K1 float64
	// B is the document length normalization parameter (default: 0.75).
	B float64
}

// DefaultBM25Config returns the standard parameters.
func DefaultBM25Config() BM25Config {
	return BM25Config{K1: 1.2, B: 0.75}
}

// BM25Result is a single lexical search hit.
type BM25Result struct {
	SkillID string
	Score   float64
}

// VectorResult is a single semantic search hit.
type VectorResult struct {
	SkillID string
	Score   float64 // cosine similarity of L2-normalized vectors
}

// IndexStats summarizes the indexed corpus.
type IndexStats struct {
	SkillCount    int
	WinnerCount   int
	TermCount     int
	EmbeddingRows int
	AvgDocLen     float64
	CorpusVersion uint64
}

// ErrDimensionMismatch indicates the query vector dimension differs from
// the indexed embeddings.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d (run 'skillbase index' to rebuild)", e.Expected, e.Got)
}
