package search

import (
	"sort"

	"github.com/skillbase/skillbase/internal/store"
)

// DefaultRRFK is the standard reciprocal-rank-fusion constant.
const DefaultRRFK = 60

// RRFConfig configures reciprocal rank fusion.
type RRFConfig struct {
	K         int
	LexWeight float64
	SemWeight float64
}

// DefaultRRFConfig weighs both channels equally.
func DefaultRRFConfig() RRFConfig {
	return RRFConfig{K: DefaultRRFK, LexWeight: 0.5, SemWeight: 0.5}
}

// FusedResult is one fused candidate with its per-channel ranks (1-based,
// 0 when absent from that channel).
type FusedResult struct {
	SkillID string
	Score   float64
	LexRank int
	SemRank int
}

// FuseRRF merges a lexical and a semantic ranking by weighted reciprocal
// rank. A document absent from one list contributes nothing from that
// channel. Output is sorted by fused score descending, ties by ascending
// skill id. Weights need not sum to 1.
func FuseRRF(lex []store.BM25Result, sem []store.VectorResult, cfg RRFConfig) []FusedResult {
	if cfg.K <= 0 {
		cfg.K = DefaultRRFK
	}

	fused := make(map[string]*FusedResult)
	get := func(id string) *FusedResult {
		if f, ok := fused[id]; ok {
			return f
		}
		f := &FusedResult{SkillID: id}
		fused[id] = f
		return f
	}

	for i, r := range lex {
		f := get(r.SkillID)
		f.LexRank = i + 1
		f.Score += cfg.LexWeight / float64(cfg.K+i+1)
	}
	for i, r := range sem {
		f := get(r.SkillID)
		f.SemRank = i + 1
		f.Score += cfg.SemWeight / float64(cfg.K+i+1)
	}

	out := make([]FusedResult, 0, len(fused))
	for _, f := range fused {
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].SkillID < out[j].SkillID
	})
	return out
}
