package store

import (
	"math"
	"sort"
)

// BM25Scorer scores documents with Okapi BM25 over a snapshot's posting
// lists. Scoring is a pure function of the snapshot, so identical queries
// against the same corpus version always produce identical rankings.
type BM25Scorer struct {
	cfg  BM25Config
	snap *Snapshot
}

// NewBM25Scorer creates a scorer bound to one snapshot.
func NewBM25Scorer(snap *Snapshot, cfg BM25Config) *BM25Scorer {
	if cfg.K1 <= 0 {
		cfg.K1 = DefaultBM25Config().K1
	}
	if cfg.B < 0 || cfg.B > 1 {
		cfg.B = DefaultBM25Config().B
	}
	return &BM25Scorer{cfg: cfg, snap: snap}
}

// idf computes the smoothed inverse document frequency for a term. The +1
// inside the log keeps the value positive even when a term appears in more
// than half the corpus.
func (s *BM25Scorer) idf(term string) float64 {
	n := float64(s.snap.DocCount)
	df := float64(s.snap.DocFreq(term))
	return math.Log((n-df+0.5)/(df+0.5) + 1)
}

// Score ranks documents for the tokenized query, best first. Duplicate
// query terms count once. Ties break on ascending skill id.
func (s *BM25Scorer) Score(queryTokens []string, limit int) []BM25Result {
	if s.snap.DocCount == 0 || len(queryTokens) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(queryTokens))
	scores := make(map[string]float64)

	for _, term := range queryTokens {
		if seen[term] {
			continue
		}
		seen[term] = true

		postings := s.snap.Postings[term]
		if len(postings) == 0 {
			continue
		}
		idf := s.idf(term)

		for _, p := range postings {
			dl := float64(s.snap.DocLens[p.SkillID])
			tf := float64(p.TermFreq)
			norm := s.cfg.K1 * (1 - s.cfg.B + s.cfg.B*dl/s.snap.AvgDocLen)
			scores[p.SkillID] += idf * (tf * (s.cfg.K1 + 1)) / (tf + norm)
		}
	}

	results := make([]BM25Result, 0, len(scores))
	for id, score := range scores {
		results = append(results, BM25Result{SkillID: id, Score: score})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].SkillID < results[j].SkillID
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}
