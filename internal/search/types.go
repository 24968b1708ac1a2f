// Package search implements the hybrid retrieval engine: lexical and
// semantic legs run in parallel over one corpus snapshot, reciprocal rank
// fusion combines them, and bandit-selected weights bias the fusion.
package search

import (
	"fmt"
	"sort"
	"strings"

	"github.com/skillbase/skillbase/internal/store"
)

// Mode selects the retrieval channel.
type Mode string

const (
	ModeBM25     Mode = "bm25"
	ModeSemantic Mode = "semantic"
	ModeHybrid   Mode = "hybrid"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeBM25 || m == ModeSemantic || m == ModeHybrid
}

// Filters restrict search results. Empty fields do not filter.
type Filters struct {
	// Tags matches skills whose tag set intersects this set.
	Tags []string
	// Layers whitelists source layers.
	Layers []store.Layer
	// Metadata requires field equality; supported keys are "name",
	// "layer", and "source_path".
	Metadata map[string]string
}

// Empty reports whether no filter is active.
func (f Filters) Empty() bool {
	return len(f.Tags) == 0 && len(f.Layers) == 0 && len(f.Metadata) == 0
}

// cacheKey renders the filters canonically for cache keying.
func (f Filters) cacheKey() string {
	var b strings.Builder

	tags := append([]string(nil), f.Tags...)
	sort.Strings(tags)
	b.WriteString("tags=")
	b.WriteString(strings.Join(tags, ","))

	layers := make([]string, len(f.Layers))
	for i, l := range f.Layers {
		layers[i] = string(l)
	}
	sort.Strings(layers)
	b.WriteString(";layers=")
	b.WriteString(strings.Join(layers, ","))

	keys := make([]string, 0, len(f.Metadata))
	for k := range f.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	b.WriteString(";meta=")
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%s,", k, f.Metadata[k])
	}
	return b.String()
}

// Query is one search request.
type Query struct {
	Text    string
	Mode    Mode
	Filters Filters
	Limit   int
}

// Result is one ranked hit.
type Result struct {
	SkillID     string       `json:"skill_id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Layer       store.Layer  `json:"layer"`
	Tags        []string     `json:"tags"`
	Score       float64      `json:"score"`
}
