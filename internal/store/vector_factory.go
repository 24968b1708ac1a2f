package store

import "fmt"

// Vector backend names accepted by configuration.
const (
	BackendExact = "exact"
	BackendHNSW  = "hnsw"
)

// NewVectorIndex builds the configured vector backend over a snapshot.
// The exact backend is the default: skill corpora are small and exact
// scoring keeps results fully deterministic. HNSW trades that determinism
// for sublinear search on unusually large corpora.
func NewVectorIndex(snap *Snapshot, backend string) (VectorIndex, error) {
	switch backend {
	case "", BackendExact:
		return NewExactIndex(snap), nil
	case BackendHNSW:
		return NewHNSWIndex(snap), nil
	default:
		return nil, fmt.Errorf("unknown vector backend %q (want %q or %q)", backend, BackendExact, BackendHNSW)
	}
}
