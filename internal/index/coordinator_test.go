package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillbase/skillbase/internal/embed"
	skillerr "github.com/skillbase/skillbase/internal/errors"
	"github.com/skillbase/skillbase/internal/scanner"
	"github.com/skillbase/skillbase/internal/store"
)

func writeSkillFile(t *testing.T, dir, file, name, body string) string {
	t.Helper()
	doc := "---\nname: " + name + "\ndescription: About " + name + ".\n---\n\n## Notes\n\n" + body + "\n"
	path := filepath.Join(dir, file)
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func newTestCoordinator(t *testing.T) (*Coordinator, *store.Store) {
	t.Helper()
	s, err := store.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	embedder, err := embed.New(embed.BackendHash, 32)
	require.NoError(t, err)

	return New(s, scanner.New(nil), embedder, nil), s
}

func TestRunIndexesNewSkills(t *testing.T) {
	c, s := newTestCoordinator(t)
	dir := t.TempDir()
	writeSkillFile(t, dir, "deploy.md", "deploy", "deploy the service with helm charts")
	writeSkillFile(t, dir, "rollback.md", "rollback", "roll back a failed deploy quickly")

	summary, err := c.Run(context.Background(), []scanner.Root{{Layer: store.LayerUser, Dir: dir}})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Scanned)
	assert.Equal(t, 2, summary.Added)
	assert.Zero(t, summary.Failed)

	snap, err := s.Snapshot(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snap.Skill("deploy"))
	require.NotNil(t, snap.Skill("rollback"))
	assert.Greater(t, snap.DocFreq("helm"), 0, "body terms must be searchable")
	assert.Len(t, snap.Embeddings["deploy"], 32)
}

func TestRunSkipsUnchangedSources(t *testing.T) {
	c, s := newTestCoordinator(t)
	dir := t.TempDir()
	writeSkillFile(t, dir, "deploy.md", "deploy", "deploy the service")
	roots := []scanner.Root{{Layer: store.LayerUser, Dir: dir}}

	_, err := c.Run(context.Background(), roots)
	require.NoError(t, err)
	v1, err := s.CorpusVersion(context.Background())
	require.NoError(t, err)

	summary, err := c.Run(context.Background(), roots)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Unchanged)
	assert.Zero(t, summary.Added)
	assert.Zero(t, summary.Updated)

	v2, err := s.CorpusVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, v1, v2, "no-op runs must not invalidate caches")
}

func TestRunReindexesChangedSource(t *testing.T) {
	c, s := newTestCoordinator(t)
	dir := t.TempDir()
	writeSkillFile(t, dir, "deploy.md", "deploy", "deploy with helm")
	roots := []scanner.Root{{Layer: store.LayerUser, Dir: dir}}

	_, err := c.Run(context.Background(), roots)
	require.NoError(t, err)

	writeSkillFile(t, dir, "deploy.md", "deploy", "deploy with kustomize overlays")
	summary, err := c.Run(context.Background(), roots)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Updated)

	snap, err := s.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Zero(t, snap.DocFreq("helm"))
	assert.Greater(t, snap.DocFreq("kustomize"), 0)
}

func TestRunReindexesOnEmbedderChange(t *testing.T) {
	c, s := newTestCoordinator(t)
	dir := t.TempDir()
	writeSkillFile(t, dir, "deploy.md", "deploy", "deploy the service")
	roots := []scanner.Root{{Layer: store.LayerUser, Dir: dir}}

	_, err := c.Run(context.Background(), roots)
	require.NoError(t, err)

	wider, err := embed.New(embed.BackendHash, 64)
	require.NoError(t, err)
	summary, err := New(s, scanner.New(nil), wider, nil).Run(context.Background(), roots)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Updated, "dims change must force a re-embed")

	snap, err := s.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.Embeddings["deploy"], 64)
}

func TestRunRemovesVanishedSources(t *testing.T) {
	c, s := newTestCoordinator(t)
	dir := t.TempDir()
	writeSkillFile(t, dir, "keep.md", "keep", "this one stays")
	gone := writeSkillFile(t, dir, "gone.md", "gone", "this one disappears")
	roots := []scanner.Root{{Layer: store.LayerUser, Dir: dir}}

	_, err := c.Run(context.Background(), roots)
	require.NoError(t, err)

	require.NoError(t, os.Remove(gone))
	summary, err := c.Run(context.Background(), roots)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Removed)

	snap, err := s.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Nil(t, snap.Skill("gone"))
	assert.NotNil(t, snap.Skill("keep"))
}

func TestRunSkipsUnparseableFile(t *testing.T) {
	c, s := newTestCoordinator(t)
	dir := t.TempDir()
	writeSkillFile(t, dir, "good.md", "good", "a valid skill")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.md"),
		[]byte("---\ndescription: no name here\n---\n"), 0o644))

	summary, err := c.Run(context.Background(), []scanner.Root{{Layer: store.LayerUser, Dir: dir}})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Added)
	assert.Equal(t, 1, summary.Failed)

	snap, err := s.Snapshot(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, snap.Skill("good"))
}

func TestRunRejectsDuplicateIDWithinLayer(t *testing.T) {
	c, _ := newTestCoordinator(t)
	dir := t.TempDir()
	writeSkillFile(t, dir, "a.md", "deploy", "first variant")
	writeSkillFile(t, dir, "b.md", "deploy", "second variant")

	summary, err := c.Run(context.Background(), []scanner.Root{{Layer: store.LayerUser, Dir: dir}})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Added)
	assert.Equal(t, 1, summary.Failed)
}

func TestLoaderResolvesExtends(t *testing.T) {
	c, s := newTestCoordinator(t)
	dir := t.TempDir()

	parent := "---\nname: base-review\ndescription: Base review checklist.\n---\n\n## Rules\n\n- RULE: Read the diff twice.\n"
	child := "---\nname: go-review\ndescription: Go review checklist.\nextends: base-review\n---\n\n## Rules\n\n- RULE: Check error wrapping.\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.md"), []byte(parent), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.md"), []byte(child), 0o644))

	_, err := c.Run(context.Background(), []scanner.Root{{Layer: store.LayerUser, Dir: dir}})
	require.NoError(t, err)

	snap, err := s.Snapshot(context.Background())
	require.NoError(t, err)

	spec, err := NewLoader(snap).Load("go-review")
	require.NoError(t, err)
	rules := spec.Section("rules")
	require.NotNil(t, rules)
	require.Len(t, rules.Blocks, 2)
	assert.Equal(t, "Read the diff twice.", rules.Blocks[0].Content)
	assert.Equal(t, "Check error wrapping.", rules.Blocks[1].Content)
}

func TestLoaderUnknownSkill(t *testing.T) {
	c, s := newTestCoordinator(t)
	dir := t.TempDir()
	writeSkillFile(t, dir, "deploy.md", "deploy", "deploy the service")

	_, err := c.Run(context.Background(), []scanner.Root{{Layer: store.LayerUser, Dir: dir}})
	require.NoError(t, err)

	snap, err := s.Snapshot(context.Background())
	require.NoError(t, err)

	_, err = NewLoader(snap).Load("deplyo")
	require.Error(t, err)
	assert.Equal(t, skillerr.ErrCodeSkillNotFound, skillerr.CodeOf(err))
}
