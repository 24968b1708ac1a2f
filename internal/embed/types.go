// Package embed produces deterministic text embeddings for the semantic
// retrieval channel. The only real backend is the hash embedder: it needs
// no model files, works offline, and always produces the same vector for
// the same text, which keeps indexing reproducible.
package embed

import "fmt"

// Backend names accepted by configuration.
const (
	BackendHash = "hash"
	BackendNone = "none"
)

// Dimension bounds enforced on configuration.
const (
	MinDims     = 16
	MaxDims     = 4096
	DefaultDims = 384
)

// Embedder converts text to a fixed-dimension vector.
type Embedder interface {
	// Embed returns the embedding of text. Empty or all-stop-word text
	// yields the zero vector; any other result is L2-normalized.
	Embed(text string) ([]float32, error)
	// Dims returns the vector dimension.
	Dims() int
	// Type identifies the backend, persisted alongside each vector.
	Type() string
}

// New builds the configured embedder. BackendNone returns (nil, nil):
// callers treat a nil embedder as "semantic channel disabled".
func New(backend string, dims int) (Embedder, error) {
	switch backend {
	case BackendNone:
		return nil, nil
	case "", BackendHash:
		if dims < MinDims || dims > MaxDims {
			return nil, fmt.Errorf("embedding dims %d out of range [%d, %d]", dims, MinDims, MaxDims)
		}
		return NewHashEmbedder(dims), nil
	default:
		return nil, fmt.Errorf("unknown embedding backend %q (want %q or %q)", backend, BackendHash, BackendNone)
	}
}
