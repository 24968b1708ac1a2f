package store

import (
	"math"
	"sort"

	"github.com/coder/hnsw"
)

// HNSWIndex is an approximate vector backend built on coder/hnsw. It is
// constructed fresh from a snapshot, so it needs no mutation or persistence
// path; a new snapshot gets a new graph.
type HNSWIndex struct {
	dims   int
	graph  *hnsw.Graph[uint64]
	keyMap map[uint64]string
}

var _ VectorIndex = (*HNSWIndex)(nil)

// NewHNSWIndex builds a graph over a snapshot's hash-valid vectors.
// Insertion order is ascending skill id so repeated builds over the same
// snapshot produce the same graph.
func NewHNSWIndex(snap *Snapshot) *HNSWIndex {
	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = 16
	graph.EfSearch = 20
	graph.Ml = 0.25

	ids := make([]string, 0, len(snap.Embeddings))
	for id := range snap.Embeddings {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	keyMap := make(map[uint64]string, len(ids))
	for i, id := range ids {
		key := uint64(i)
		vec := make([]float32, len(snap.Embeddings[id]))
		copy(vec, snap.Embeddings[id])
		normalizeInPlace(vec)
		graph.Add(hnsw.MakeNode(key, vec))
		keyMap[key] = id
	}

	return &HNSWIndex{dims: snap.Dims, graph: graph, keyMap: keyMap}
}

// Len returns the number of indexed vectors.
func (idx *HNSWIndex) Len() int { return len(idx.keyMap) }

// Search returns up to limit approximate nearest neighbors, best first.
func (idx *HNSWIndex) Search(query []float32, limit int) ([]VectorResult, error) {
	if len(idx.keyMap) == 0 {
		return nil, nil
	}
	if len(query) != idx.dims {
		return nil, ErrDimensionMismatch{Expected: idx.dims, Got: len(query)}
	}

	q := make([]float32, len(query))
	copy(q, query)
	normalizeInPlace(q)

	nodes := idx.graph.Search(q, limit)
	results := make([]VectorResult, 0, len(nodes))
	for _, node := range nodes {
		id, ok := idx.keyMap[node.Key]
		if !ok {
			continue
		}
		// Cosine distance ranges 0..2; map back to similarity -1..1.
		dist := idx.graph.Distance(q, node.Value)
		results = append(results, VectorResult{SkillID: id, Score: float64(1 - dist)})
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].SkillID < results[j].SkillID
	})
	return results, nil
}

func normalizeInPlace(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}
