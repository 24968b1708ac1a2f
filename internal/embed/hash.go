package embed

import (
	"hash/fnv"
	"math"

	"github.com/skillbase/skillbase/internal/store"
)

// HashEmbedder maps tokenized text into a fixed-dimension vector using the
// hashing trick: each token selects a feature index with one hash and a
// sign with an independent second hash, then the vector is L2-normalized.
// Texts sharing tokens land near each other under cosine similarity.
type HashEmbedder struct {
	dims int
}

var _ Embedder = (*HashEmbedder)(nil)

// NewHashEmbedder creates a hash embedder with the given dimension.
func NewHashEmbedder(dims int) *HashEmbedder {
	return &HashEmbedder{dims: dims}
}

// Dims returns the vector dimension.
func (e *HashEmbedder) Dims() int { return e.dims }

// Type returns the backend name.
func (e *HashEmbedder) Type() string { return BackendHash }

// Embed builds the embedding. Never returns an error; the signature keeps
// the interface open for backends that can fail.
func (e *HashEmbedder) Embed(text string) ([]float32, error) {
	vec := make([]float32, e.dims)
	tokens := store.Tokenize(text)
	if len(tokens) == 0 {
		return vec, nil
	}

	for _, tok := range tokens {
		idx := featureIndex(tok, e.dims)
		if featureSign(tok) {
			vec[idx]++
		} else {
			vec[idx]--
		}
	}

	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	// All-cancelled accumulation degenerates to the zero vector.
	if sum == 0 {
		return vec, nil
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range vec {
		vec[i] *= inv
	}
	return vec, nil
}

func featureIndex(token string, dims int) int {
	h := fnv.New64a()
	_, _ = h.Write([]byte(token))
	return int(h.Sum64() % uint64(dims))
}

// featureSign derives the sign from a second hash stream, salted so it is
// independent of the index hash. True means +1.
func featureSign(token string) bool {
	h := fnv.New64a()
	_, _ = h.Write([]byte{0x73}) // salt byte decorrelates from featureIndex
	_, _ = h.Write([]byte(token))
	return h.Sum64()&1 == 0
}
