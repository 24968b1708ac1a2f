package search

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/skillbase/skillbase/internal/bandit"
	"github.com/skillbase/skillbase/internal/embed"
	skillerr "github.com/skillbase/skillbase/internal/errors"
	"github.com/skillbase/skillbase/internal/store"
)

// DefaultLimit applies when a query does not set one.
const DefaultLimit = 10

// Config configures an Engine. LexWeight and SemWeight are the static
// hybrid channel weights; they apply while the bandit has no observations
// (or no bandit is wired) and are superseded by sampled weights after.
type Config struct {
	BM25          store.BM25Config
	RRFK          int
	VectorBackend string
	CacheSize     int
	LexWeight     float64
	SemWeight     float64
}

// DefaultConfig returns the standard engine configuration.
func DefaultConfig() Config {
	return Config{
		BM25:          store.DefaultBM25Config(),
		RRFK:          DefaultRRFK,
		VectorBackend: store.BackendExact,
		CacheSize:     256,
		LexWeight:     0.5,
		SemWeight:     0.5,
	}
}

// Engine runs queries against corpus snapshots. Both retrieval legs are
// pure functions of the snapshot, so under a fixed bandit state and corpus
// version identical queries return identical results.
type Engine struct {
	store    *store.Store
	embedder embed.Embedder // nil disables the semantic channel
	bandit   *bandit.Bandit
	cfg      Config
	cache    *resultCache
	logger   *slog.Logger
}

// New creates an engine. The embedder may be nil; semantic and hybrid
// semantic legs are then unavailable.
func New(s *store.Store, embedder embed.Embedder, b *bandit.Bandit, cfg Config, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cache, err := newResultCache(cfg.CacheSize)
	if err != nil {
		return nil, err
	}
	return &Engine{
		store:    s,
		embedder: embedder,
		bandit:   b,
		cfg:      cfg,
		cache:    cache,
		logger:   logger,
	}, nil
}

// Search executes one query. The bandit context biases hybrid fusion
// weights; it is ignored for single-channel modes.
func (e *Engine) Search(ctx context.Context, q Query, qctx bandit.QueryContext) ([]Result, error) {
	start := time.Now()

	if q.Mode == "" {
		q.Mode = ModeHybrid
	}
	if !q.Mode.Valid() {
		return nil, skillerr.ValidationError("unknown search mode "+string(q.Mode), nil)
	}
	if q.Text == "" {
		return nil, skillerr.ValidationError("query text is empty", nil)
	}
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if err := q.Filters.Validate(); err != nil {
		return nil, skillerr.ValidationError("invalid filters", err)
	}
	if q.Mode != ModeBM25 && e.embedder == nil {
		return nil, skillerr.ConfigError("semantic search requires an embedding backend", nil)
	}

	snap, err := e.store.Snapshot(ctx)
	if err != nil {
		return nil, skillerr.Wrap(skillerr.ErrCodeStore, err)
	}

	tokens := store.Tokenize(q.Text)
	key := cacheKey(q.Mode, tokens, q.Filters, q.Limit, snap.Version)
	if cached, ok := e.cache.get(key); ok {
		e.logger.Debug("search_cache_hit",
			slog.String("mode", string(q.Mode)),
			slog.Uint64("corpus_version", snap.Version))
		return cached, nil
	}

	var lexResults []store.BM25Result
	var semResults []store.VectorResult

	g, gctx := errgroup.WithContext(ctx)
	if q.Mode == ModeBM25 || q.Mode == ModeHybrid {
		g.Go(func() error {
			lexResults = store.NewBM25Scorer(snap, e.cfg.BM25).Score(tokens, 0)
			return gctx.Err()
		})
	}
	if q.Mode == ModeSemantic || q.Mode == ModeHybrid {
		g.Go(func() error {
			vec, err := e.embedder.Embed(q.Text)
			if err != nil {
				return err
			}
			idx, err := store.NewVectorIndex(snap, e.cfg.VectorBackend)
			if err != nil {
				return err
			}
			if idx.Len() == 0 {
				return nil
			}
			semResults, err = idx.Search(vec, 0)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, skillerr.Timeout("search", err)
		}
		return nil, skillerr.Wrap(skillerr.ErrCodeInternal, err)
	}

	fused := e.fuse(q.Mode, lexResults, semResults, qctx)
	results := e.materialize(snap, fused, q.Filters, q.Limit)
	e.cache.put(key, results)

	e.logger.Debug("search_done",
		slog.String("mode", string(q.Mode)),
		slog.Int("results", len(results)),
		slog.Duration("elapsed", time.Since(start)))
	return results, nil
}

// fuse collapses the two legs into one ranking. Single-channel modes pass
// through with their native scores.
func (e *Engine) fuse(mode Mode, lex []store.BM25Result, sem []store.VectorResult, qctx bandit.QueryContext) []FusedResult {
	switch mode {
	case ModeBM25:
		out := make([]FusedResult, len(lex))
		for i, r := range lex {
			out[i] = FusedResult{SkillID: r.SkillID, Score: r.Score, LexRank: i + 1}
		}
		return out
	case ModeSemantic:
		out := make([]FusedResult, len(sem))
		for i, r := range sem {
			out[i] = FusedResult{SkillID: r.SkillID, Score: r.Score, SemRank: i + 1}
		}
		return out
	default:
		cfg := RRFConfig{K: e.cfg.RRFK, LexWeight: e.cfg.LexWeight, SemWeight: e.cfg.SemWeight}
		if e.bandit != nil && e.bandit.ObservationTotal() > 0 {
			weights := e.bandit.SelectWeights(qctx)
			cfg.LexWeight = weights.Get(bandit.SignalBM25)
			cfg.SemWeight = weights.Get(bandit.SignalEmbedding)
		}
		return FuseRRF(lex, sem, cfg)
	}
}

// materialize applies filters, resolves skill metadata, and truncates.
func (e *Engine) materialize(snap *store.Snapshot, fused []FusedResult, filters Filters, limit int) []Result {
	results := make([]Result, 0, limit)
	for _, f := range fused {
		sk := snap.Skill(f.SkillID)
		if sk == nil || !filters.Match(sk) {
			continue
		}
		results = append(results, Result{
			SkillID:     sk.ID,
			Name:        sk.Name,
			Description: sk.Description,
			Layer:       sk.Layer,
			Tags:        sk.Tags,
			Score:       f.Score,
		})
		if len(results) == limit {
			break
		}
	}
	return results
}

// InvalidateCache drops all cached results. The corpus version already
// isolates entries per version; this is for explicit reindex runs.
func (e *Engine) InvalidateCache() {
	e.cache.purge()
}
