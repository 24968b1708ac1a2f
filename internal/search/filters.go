package search

import (
	"fmt"

	"github.com/skillbase/skillbase/internal/store"
)

// Validate rejects malformed filters before any scoring runs.
func (f Filters) Validate() error {
	for _, l := range f.Layers {
		if !l.Valid() {
			return fmt.Errorf("unknown layer %q in filter", l)
		}
	}
	for key := range f.Metadata {
		switch key {
		case "name", "layer", "source_path":
		default:
			return fmt.Errorf("unsupported metadata filter key %q", key)
		}
	}
	return nil
}

// Match reports whether a skill passes every active filter.
func (f Filters) Match(sk *store.IndexedSkill) bool {
	if len(f.Tags) > 0 && !tagIntersects(sk.Tags, f.Tags) {
		return false
	}
	if len(f.Layers) > 0 && !layerAllowed(sk.Layer, f.Layers) {
		return false
	}
	for key, want := range f.Metadata {
		if fieldValue(sk, key) != want {
			return false
		}
	}
	return true
}

func tagIntersects(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}

func layerAllowed(layer store.Layer, allowed []store.Layer) bool {
	for _, l := range allowed {
		if l == layer {
			return true
		}
	}
	return false
}

func fieldValue(sk *store.IndexedSkill, key string) string {
	switch key {
	case "name":
		return sk.Name
	case "layer":
		return string(sk.Layer)
	case "source_path":
		return sk.SourcePath
	default:
		return ""
	}
}
