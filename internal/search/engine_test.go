package search

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillbase/skillbase/internal/bandit"
	"github.com/skillbase/skillbase/internal/embed"
	skillerr "github.com/skillbase/skillbase/internal/errors"
	"github.com/skillbase/skillbase/internal/store"
)

type corpusSkill struct {
	id   string
	body string
	tags []string
}

// newTestEngine indexes the given corpus with hash embeddings and returns
// an engine over it.
func newTestEngine(t *testing.T, corpus []corpusSkill) *Engine {
	t.Helper()

	s, err := store.Open(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	embedder := embed.NewHashEmbedder(embed.DefaultDims)
	ctx := context.Background()

	for _, cs := range corpus {
		tokens := store.Tokenize(cs.body)
		sum := sha256.Sum256([]byte(cs.body))
		hash := hex.EncodeToString(sum[:])

		tags := cs.tags
		if tags == nil {
			tags = []string{}
		}
		sk := &store.IndexedSkill{
			ID:          cs.id,
			Layer:       store.LayerUser,
			SourcePath:  "user/" + cs.id + ".md",
			ContentHash: hash,
			Name:        cs.id,
			Description: cs.body,
			Tags:        tags,
			Body:        cs.body,
			DocLen:      len(tokens),
			IndexedAt:   time.Now(),
		}
		postings := make(map[string]store.Posting)
		for pos, tok := range tokens {
			p := postings[tok]
			p.SkillID = cs.id
			p.TermFreq++
			p.Positions = append(p.Positions, pos)
			postings[tok] = p
		}
		vec, err := embedder.Embed(cs.body)
		require.NoError(t, err)
		emb := &store.EmbeddingRecord{
			SkillID:      cs.id,
			Vector:       vec,
			Dims:         embedder.Dims(),
			EmbedderType: embedder.Type(),
			ContentHash:  hash,
		}
		require.NoError(t, s.UpsertSkill(ctx, sk, postings, emb))
	}

	e, err := New(s, embedder, bandit.New(bandit.WithSeed(42)), DefaultConfig(), nil)
	require.NoError(t, err)
	return e
}

func TestBM25Relevance(t *testing.T) {
	e := newTestEngine(t, []corpusSkill{
		{id: "A", body: "zebradrive unique"},
		{id: "B", body: "bananacore"},
	})

	results, err := e.Search(context.Background(), Query{Text: "zebradrive", Mode: ModeBM25}, bandit.QueryContext{})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "A", results[0].SkillID)
}

func TestSemanticRelevance(t *testing.T) {
	e := newTestEngine(t, []corpusSkill{
		{id: "A", body: "zebradrive unique"},
		{id: "B", body: "bananacore"},
	})

	results, err := e.Search(context.Background(), Query{Text: "bananacore", Mode: ModeSemantic}, bandit.QueryContext{})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "B", results[0].SkillID)
}

func TestHybridRanksFrequencyHigher(t *testing.T) {
	e := newTestEngine(t, []corpusSkill{
		{id: "A", body: "commonterm once"},
		{id: "B", body: "commonterm commonterm commonterm"},
	})

	results, err := e.Search(context.Background(), Query{Text: "commonterm", Mode: ModeHybrid}, bandit.QueryContext{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "B", results[0].SkillID)
	assert.Equal(t, "A", results[1].SkillID)
}

func TestTagFilterRestrictsResults(t *testing.T) {
	e := newTestEngine(t, []corpusSkill{
		{id: "A", body: "shared topic", tags: []string{"beta"}},
		{id: "B", body: "shared topic", tags: []string{"stable"}},
	})

	results, err := e.Search(context.Background(), Query{
		Text:    "shared topic",
		Mode:    ModeBM25,
		Filters: Filters{Tags: []string{"beta"}},
	}, bandit.QueryContext{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "A", results[0].SkillID)
}

func TestSearchDeterministicAcrossRepetitions(t *testing.T) {
	e := newTestEngine(t, []corpusSkill{
		{id: "A", body: "terraform state locking"},
		{id: "B", body: "terraform module registry"},
		{id: "C", body: "kubernetes operators"},
	})

	q := Query{Text: "terraform locking", Mode: ModeBM25}
	first, err := e.Search(context.Background(), q, bandit.QueryContext{})
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := e.Search(context.Background(), q, bandit.QueryContext{})
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestSearchValidation(t *testing.T) {
	e := newTestEngine(t, []corpusSkill{{id: "A", body: "anything"}})
	ctx := context.Background()

	_, err := e.Search(ctx, Query{Text: "", Mode: ModeBM25}, bandit.QueryContext{})
	assert.Equal(t, skillerr.ErrCodeQueryInvalid, skillerr.CodeOf(err))

	_, err = e.Search(ctx, Query{Text: "x", Mode: "psychic"}, bandit.QueryContext{})
	assert.Equal(t, skillerr.ErrCodeQueryInvalid, skillerr.CodeOf(err))

	_, err = e.Search(ctx, Query{Text: "x", Mode: ModeBM25, Filters: Filters{Layers: []store.Layer{"nope"}}}, bandit.QueryContext{})
	assert.Equal(t, skillerr.ErrCodeQueryInvalid, skillerr.CodeOf(err))
}

func TestSearchLimitApplied(t *testing.T) {
	e := newTestEngine(t, []corpusSkill{
		{id: "A", body: "widget factory"},
		{id: "B", body: "widget warehouse"},
		{id: "C", body: "widget catalog"},
	})

	results, err := e.Search(context.Background(), Query{Text: "widget", Mode: ModeBM25, Limit: 2}, bandit.QueryContext{})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSemanticWithoutEmbedderFails(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	e, err := New(s, nil, bandit.New(bandit.WithSeed(1)), DefaultConfig(), nil)
	require.NoError(t, err)

	_, err = e.Search(context.Background(), Query{Text: "x", Mode: ModeSemantic}, bandit.QueryContext{})
	require.Error(t, err)
	assert.Equal(t, skillerr.KindConfig, skillerr.KindOf(err))
}

func TestStaticChannelWeightsBeforeFeedback(t *testing.T) {
	lex := []store.BM25Result{{SkillID: "a", Score: 2}, {SkillID: "b", Score: 1}}
	sem := []store.VectorResult{{SkillID: "b", Score: 0.9}, {SkillID: "a", Score: 0.1}}

	cfg := DefaultConfig()
	cfg.LexWeight = 1.0
	cfg.SemWeight = 0.0
	e, err := New(nil, nil, bandit.New(bandit.WithSeed(1)), cfg, nil)
	require.NoError(t, err)

	fused := e.fuse(ModeHybrid, lex, sem, bandit.QueryContext{})
	require.Len(t, fused, 2)
	assert.Equal(t, "a", fused[0].SkillID,
		"a fresh bandit must fuse with the configured channel weights")

	cfg.LexWeight = 0.0
	cfg.SemWeight = 1.0
	e, err = New(nil, nil, bandit.New(bandit.WithSeed(1)), cfg, nil)
	require.NoError(t, err)
	fused = e.fuse(ModeHybrid, lex, sem, bandit.QueryContext{})
	require.Len(t, fused, 2)
	assert.Equal(t, "b", fused[0].SkillID)
}

func TestSampledWeightsTakeOverAfterFeedback(t *testing.T) {
	lex := []store.BM25Result{{SkillID: "a", Score: 2}, {SkillID: "b", Score: 1}}
	sem := []store.VectorResult{{SkillID: "b", Score: 0.9}, {SkillID: "a", Score: 0.1}}

	cfg := DefaultConfig()
	cfg.LexWeight = 1.0
	cfg.SemWeight = 0.0
	b := bandit.New(bandit.WithSeed(1))
	e, err := New(nil, nil, b, cfg, nil)
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		b.Observe(bandit.SignalEmbedding, bandit.RewardSuccess, nil)
		b.Observe(bandit.SignalBM25, bandit.RewardFailure, nil)
	}
	fused := e.fuse(ModeHybrid, lex, sem, bandit.QueryContext{})
	require.Len(t, fused, 2)
	assert.Equal(t, "b", fused[0].SkillID,
		"once feedback exists the static weights no longer apply")
}

func TestSearchCacheHitAfterRepeat(t *testing.T) {
	e := newTestEngine(t, []corpusSkill{{id: "A", body: "redis eviction policies"}})
	ctx := context.Background()

	q := Query{Text: "redis eviction", Mode: ModeBM25}
	first, err := e.Search(ctx, q, bandit.QueryContext{})
	require.NoError(t, err)
	second, err := e.Search(ctx, q, bandit.QueryContext{})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// A corpus mutation changes the version, so the cached ranking for the
	// old corpus must not serve the new one.
	sum := sha256.Sum256([]byte("memcached slab allocation"))
	tokens := store.Tokenize("memcached slab allocation")
	postings := map[string]store.Posting{}
	for pos, tok := range tokens {
		p := postings[tok]
		p.SkillID = "B"
		p.TermFreq++
		p.Positions = append(p.Positions, pos)
		postings[tok] = p
	}
	require.NoError(t, e.store.UpsertSkill(ctx, &store.IndexedSkill{
		ID: "B", Layer: store.LayerUser, SourcePath: "user/B.md",
		ContentHash: hex.EncodeToString(sum[:]), Name: "B",
		Description: "memcached", Tags: []string{}, Body: "memcached slab allocation",
		DocLen: len(tokens), IndexedAt: time.Now(),
	}, postings, nil))

	redisAgain, err := e.Search(ctx, q, bandit.QueryContext{})
	require.NoError(t, err)
	assert.Equal(t, first, redisAgain, "ranking unchanged for unrelated addition")

	memResults, err := e.Search(ctx, Query{Text: "memcached", Mode: ModeBM25}, bandit.QueryContext{})
	require.NoError(t, err)
	require.Len(t, memResults, 1)
	assert.Equal(t, "B", memResults[0].SkillID)
}
