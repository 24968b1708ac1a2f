package embed

import (
	"math"
	"testing"

	"pgregory.net/rapid"
)

// Norm law: every embedding has L2 norm 0 (empty token stream) or 1.
func TestEmbedNormProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		dims := rapid.IntRange(MinDims, 512).Draw(t, "dims")
		text := rapid.String().Draw(t, "text")

		vec, err := NewHashEmbedder(dims).Embed(text)
		if err != nil {
			t.Fatalf("embed failed: %v", err)
		}
		if len(vec) != dims {
			t.Fatalf("got %d dims, want %d", len(vec), dims)
		}

		n := norm(vec)
		if n != 0 && math.Abs(n-1) > 1e-5 {
			t.Fatalf("norm %v is neither 0 nor 1", n)
		}
	})
}

// Determinism law: embedding is a pure function of (text, dims).
func TestEmbedDeterministicProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		dims := rapid.IntRange(MinDims, 256).Draw(t, "dims")
		text := rapid.String().Draw(t, "text")

		e := NewHashEmbedder(dims)
		a, _ := e.Embed(text)
		b, _ := e.Embed(text)
		for i := range a {
			if a[i] != b[i] {
				t.Fatalf("component %d differs: %v vs %v", i, a[i], b[i])
			}
		}
	})
}
