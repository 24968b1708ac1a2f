package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// makeSkill builds an indexed skill plus its postings from raw body text.
func makeSkill(id string, layer Layer, body string) (*IndexedSkill, map[string]Posting) {
	tokens := Tokenize(body)
	sum := sha256.Sum256([]byte(body))
	sk := &IndexedSkill{
		ID:          id,
		Layer:       layer,
		SourcePath:  string(layer) + "/" + id + ".md",
		ContentHash: hex.EncodeToString(sum[:]),
		Name:        id,
		Description: "test skill " + id,
		Tags:        []string{"test"},
		Body:        body,
		DocLen:      len(tokens),
		IndexedAt:   time.Now(),
	}
	postings := make(map[string]Posting)
	for pos, tok := range tokens {
		p := postings[tok]
		p.SkillID = id
		p.TermFreq++
		p.Positions = append(p.Positions, pos)
		postings[tok] = p
	}
	return sk, postings
}

func mustUpsert(t *testing.T, s *Store, sk *IndexedSkill, postings map[string]Posting, emb *EmbeddingRecord) {
	t.Helper()
	require.NoError(t, s.UpsertSkill(context.Background(), sk, postings, emb))
}

func TestUpsertAndSnapshot(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	sk, postings := makeSkill("git-rebase", LayerUser, "rebase the feature branch onto main before merging")
	mustUpsert(t, s, sk, postings, nil)

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, snap.DocCount)

	got := snap.Skill("git-rebase")
	require.NotNil(t, got)
	assert.Equal(t, LayerUser, got.Layer)
	assert.Equal(t, sk.ContentHash, got.ContentHash)
	assert.Equal(t, []string{"test"}, got.Tags)

	assert.Equal(t, 1, snap.DocFreq("rebase"))
	assert.Equal(t, sk.DocLen, snap.DocLens["git-rebase"])
	assert.InDelta(t, float64(sk.DocLen), snap.AvgDocLen, 1e-9)
}

func TestUpsertReplacesPostings(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	sk, postings := makeSkill("deploy", LayerProject, "deploy with helm charts")
	mustUpsert(t, s, sk, postings, nil)

	sk2, postings2 := makeSkill("deploy", LayerProject, "deploy with kustomize overlays")
	mustUpsert(t, s, sk2, postings2, nil)

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.DocFreq("helm"))
	assert.Equal(t, 1, snap.DocFreq("kustomize"))
	assert.Equal(t, 1, snap.DocCount)
}

func TestLayerWinnerResolution(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	global, gp := makeSkill("lint", LayerGlobal, "run the default linter")
	project, pp := makeSkill("lint", LayerProject, "run golangci-lint with the repo config")
	mustUpsert(t, s, global, gp, nil)
	mustUpsert(t, s, project, pp, nil)

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, snap.DocCount)
	assert.Equal(t, LayerProject, snap.Skill("lint").Layer)

	// Shadowed postings must not leak into the corpus view.
	assert.Equal(t, 0, snap.DocFreq("default"))
	assert.Equal(t, 1, snap.DocFreq("golangci"))
}

func TestShadowedSkillReappearsAfterDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	global, gp := makeSkill("lint", LayerGlobal, "run the default linter")
	local, lp := makeSkill("lint", LayerLocal, "use the scratch lint wrapper")
	mustUpsert(t, s, global, gp, nil)
	mustUpsert(t, s, local, lp, nil)

	require.NoError(t, s.DeleteSkill(ctx, LayerLocal, "lint"))

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	require.NotNil(t, snap.Skill("lint"))
	assert.Equal(t, LayerGlobal, snap.Skill("lint").Layer)
}

func TestStaleEmbeddingExcluded(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	sk, postings := makeSkill("cache", LayerUser, "cache invalidation strategies")
	emb := &EmbeddingRecord{
		SkillID:      sk.ID,
		Vector:       []float32{1, 0, 0},
		Dims:         3,
		EmbedderType: "hash",
		ContentHash:  sk.ContentHash,
	}
	mustUpsert(t, s, sk, postings, emb)

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	require.Contains(t, snap.Embeddings, "cache")

	// Reindex the body without a fresh vector: the old one is now stale.
	sk2, postings2 := makeSkill("cache", LayerUser, "cache invalidation is hard")
	mustUpsert(t, s, sk2, postings2, nil)

	snap, err = s.Snapshot(ctx)
	require.NoError(t, err)
	assert.NotContains(t, snap.Embeddings, "cache")
}

func TestUpsertRejectsMismatchedEmbeddingHash(t *testing.T) {
	s := openTestStore(t)

	sk, postings := makeSkill("cache", LayerUser, "cache invalidation strategies")
	emb := &EmbeddingRecord{
		SkillID:      sk.ID,
		Vector:       []float32{1, 0, 0},
		Dims:         3,
		EmbedderType: "hash",
		ContentHash:  "deadbeef",
	}
	err := s.UpsertSkill(context.Background(), sk, postings, emb)
	assert.Error(t, err)
}

func TestCorpusVersionBumpsPerWrite(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	v0, err := s.CorpusVersion(ctx)
	require.NoError(t, err)

	sk, postings := makeSkill("one", LayerUser, "first body")
	mustUpsert(t, s, sk, postings, nil)

	v1, err := s.CorpusVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, v0+1, v1)

	require.NoError(t, s.DeleteSkill(ctx, LayerUser, "one"))
	v2, err := s.CorpusVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, v1+1, v2)
}

func TestListSourcesAndSkillIDs(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	b, bp := makeSkill("bravo", LayerUser, "second skill")
	a, ap := makeSkill("alpha", LayerProject, "first skill")
	mustUpsert(t, s, b, bp, nil)
	mustUpsert(t, s, a, ap, nil)

	ids, err := s.ListSkillIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "bravo"}, ids)

	sources, err := s.ListSources(ctx)
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, a.ContentHash, sources[0].ContentHash)
}

func TestInvalidLayerRejected(t *testing.T) {
	s := openTestStore(t)
	sk, postings := makeSkill("x", Layer("bogus"), "body")
	assert.Error(t, s.UpsertSkill(context.Background(), sk, postings, nil))
}

func TestCorruptedStoreCleared(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.db")

	require.NoError(t, os.WriteFile(path, []byte("this is not a sqlite file"), 0o644))

	s, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	// The cleared store starts empty and usable.
	snap, err := s.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, snap.DocCount)
}

func TestStats(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a, ap := makeSkill("alpha", LayerUser, "tune postgres connection pools")
	b, bp := makeSkill("alpha", LayerProject, "tune pgbouncer instead")
	mustUpsert(t, s, a, ap, nil)
	mustUpsert(t, s, b, bp, nil)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.SkillCount)
	assert.Equal(t, 1, stats.WinnerCount)
	assert.Greater(t, stats.TermCount, 0)
}
