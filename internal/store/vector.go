package store

import (
	"math"
	"sort"
)

// VectorIndex finds the nearest skill vectors for a query embedding.
// Implementations rank by cosine similarity, best first, with ties broken
// on ascending skill id.
type VectorIndex interface {
	Search(query []float32, limit int) ([]VectorResult, error)
	Len() int
}

// ExactIndex is the brute-force cosine backend. Skill corpora are small
// enough (hundreds, not millions) that an exact scan stays well under a
// millisecond, and it is fully deterministic.
type ExactIndex struct {
	dims    int
	ids     []string // ascending
	vectors map[string][]float32
}

var _ VectorIndex = (*ExactIndex)(nil)

// NewExactIndex builds an exact index over a snapshot's hash-valid vectors.
func NewExactIndex(snap *Snapshot) *ExactIndex {
	ids := make([]string, 0, len(snap.Embeddings))
	for id := range snap.Embeddings {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return &ExactIndex{dims: snap.Dims, ids: ids, vectors: snap.Embeddings}
}

// Len returns the number of indexed vectors.
func (idx *ExactIndex) Len() int { return len(idx.ids) }

// Search returns the top-limit skills by cosine similarity to query.
func (idx *ExactIndex) Search(query []float32, limit int) ([]VectorResult, error) {
	if len(idx.ids) == 0 {
		return nil, nil
	}
	if len(query) != idx.dims {
		return nil, ErrDimensionMismatch{Expected: idx.dims, Got: len(query)}
	}

	results := make([]VectorResult, 0, len(idx.ids))
	for _, id := range idx.ids {
		results = append(results, VectorResult{
			SkillID: id,
			Score:   CosineSimilarity(query, idx.vectors[id]),
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// CosineSimilarity computes the cosine of the angle between two equal-length
// vectors. Returns 0 when either vector is all zeros.
func CosineSimilarity(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
