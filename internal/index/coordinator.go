// Package index orchestrates corpus maintenance: scanning layered roots,
// detecting changes by content hash, and keeping the store's derived
// artifacts consistent with the markdown sources.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/skillbase/skillbase/internal/embed"
	skillerr "github.com/skillbase/skillbase/internal/errors"
	"github.com/skillbase/skillbase/internal/scanner"
	"github.com/skillbase/skillbase/internal/skill"
	"github.com/skillbase/skillbase/internal/store"
)

// Summary reports one index run.
type Summary struct {
	Scanned   int `json:"scanned"`
	Added     int `json:"added"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Removed   int `json:"removed"`
	Failed    int `json:"failed"`
}

// Coordinator drives index runs.
type Coordinator struct {
	store    *store.Store
	scanner  *scanner.Scanner
	embedder embed.Embedder // nil skips the embedding table
	logger   *slog.Logger
}

// New creates a coordinator.
func New(s *store.Store, sc *scanner.Scanner, embedder embed.Embedder, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{store: s, scanner: sc, embedder: embedder, logger: logger}
}

// Run scans the roots and reconciles the store: unchanged sources are
// skipped, changed or new ones upserted, and rows whose source vanished
// are deleted. A file that fails to parse is logged and skipped; one bad
// skill must not abort the whole run.
func (c *Coordinator) Run(ctx context.Context, roots []scanner.Root) (*Summary, error) {
	sources, err := c.scanner.Scan(ctx, roots)
	if err != nil {
		return nil, fmt.Errorf("scan skill roots: %w", err)
	}

	existing, err := c.store.ListSources(ctx)
	if err != nil {
		return nil, err
	}
	known := make(map[string]store.SourceState, len(existing))
	for _, st := range existing {
		known[sourceKey(st.Layer, st.ID)] = st
	}

	summary := &Summary{Scanned: len(sources)}
	seen := make(map[string]bool, len(sources))

	for _, src := range sources {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}

		spec, err := c.parseSource(src)
		if err != nil {
			summary.Failed++
			c.logger.Warn("skill_parse_failed",
				slog.String("path", src.Path),
				slog.String("error", err.Error()))
			continue
		}

		key := sourceKey(src.Layer, spec.ID)
		if seen[key] {
			summary.Failed++
			c.logger.Warn("skill_duplicate_id",
				slog.String("id", spec.ID),
				slog.String("layer", string(src.Layer)),
				slog.String("path", src.Path))
			continue
		}
		seen[key] = true

		hash := spec.ContentHash()
		if prev, ok := known[key]; ok && prev.ContentHash == hash &&
			prev.SourcePath == src.Path && c.embedderMatches(prev) {
			summary.Unchanged++
			continue
		}

		if err := c.upsert(ctx, src, spec, hash); err != nil {
			summary.Failed++
			c.logger.Warn("skill_index_failed",
				slog.String("id", spec.ID),
				slog.String("error", err.Error()))
			continue
		}
		if _, ok := known[key]; ok {
			summary.Updated++
		} else {
			summary.Added++
		}
	}

	// Rows whose source disappeared lose their derived artifacts too.
	for key, st := range known {
		if seen[key] {
			continue
		}
		if err := c.store.DeleteSkill(ctx, st.Layer, st.ID); err != nil {
			summary.Failed++
			c.logger.Warn("skill_remove_failed",
				slog.String("id", st.ID),
				slog.String("error", err.Error()))
			continue
		}
		summary.Removed++
	}

	c.logger.Info("index_run_done",
		slog.Int("scanned", summary.Scanned),
		slog.Int("added", summary.Added),
		slog.Int("updated", summary.Updated),
		slog.Int("unchanged", summary.Unchanged),
		slog.Int("removed", summary.Removed),
		slog.Int("failed", summary.Failed))
	return summary, nil
}

// embedderMatches reports whether the stored row's embedding identity
// matches the configured embedder. A mismatch, including switching the
// backend on or off, forces a re-index so the vector table converges
// without a dedicated flag.
func (c *Coordinator) embedderMatches(prev store.SourceState) bool {
	if c.embedder == nil {
		return prev.EmbedderType == ""
	}
	return prev.EmbedderType == c.embedder.Type() && prev.Dims == c.embedder.Dims()
}

func (c *Coordinator) parseSource(src scanner.Source) (*skill.SkillSpec, error) {
	data, err := os.ReadFile(src.Path)
	if err != nil {
		return nil, skillerr.Wrap(skillerr.ErrCodeSourceMissing, err)
	}
	spec, err := skill.ParseMarkdown(string(data))
	if err != nil {
		return nil, err
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

func (c *Coordinator) upsert(ctx context.Context, src scanner.Source, spec *skill.SkillSpec, hash string) error {
	body := spec.Body()
	tokens := store.Tokenize(body)

	postings := make(map[string]store.Posting)
	for pos, tok := range tokens {
		p := postings[tok]
		p.SkillID = spec.ID
		p.TermFreq++
		p.Positions = append(p.Positions, pos)
		postings[tok] = p
	}

	var emb *store.EmbeddingRecord
	if c.embedder != nil {
		vec, err := c.embedder.Embed(body)
		if err != nil {
			return fmt.Errorf("embed %s: %w", spec.ID, err)
		}
		emb = &store.EmbeddingRecord{
			SkillID:      spec.ID,
			Vector:       vec,
			Dims:         c.embedder.Dims(),
			EmbedderType: c.embedder.Type(),
			ContentHash:  hash,
		}
	}

	tags := spec.Tags
	if tags == nil {
		tags = []string{}
	}
	return c.store.UpsertSkill(ctx, &store.IndexedSkill{
		ID:          spec.ID,
		Layer:       src.Layer,
		SourcePath:  src.Path,
		ContentHash: hash,
		Name:        spec.Name,
		Description: spec.Description,
		Tags:        tags,
		Body:        body,
		DocLen:      len(tokens),
		IndexedAt:   time.Now(),
	}, postings, emb)
}

func sourceKey(layer store.Layer, id string) string {
	return string(layer) + "|" + id
}
