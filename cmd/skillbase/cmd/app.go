package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/skillbase/skillbase/internal/bandit"
	"github.com/skillbase/skillbase/internal/config"
	"github.com/skillbase/skillbase/internal/embed"
	"github.com/skillbase/skillbase/internal/index"
	"github.com/skillbase/skillbase/internal/router"
	"github.com/skillbase/skillbase/internal/scanner"
	"github.com/skillbase/skillbase/internal/search"
	"github.com/skillbase/skillbase/internal/store"
)

const (
	dataDirName = ".skillbase"
	indexDBName = "index.db"
)

// app bundles the wired subsystems a command needs. The bandit state is
// rebuilt from the reward journal on every open, so the sampled weights
// reflect all feedback ever recorded.
type app struct {
	Root    string
	DataDir string
	Config  *config.Config

	Store    *store.Store
	Embedder embed.Embedder
	Bandit   *bandit.Bandit
	Journal  *bandit.Journal
	Engine   *search.Engine
	Router   *router.Router
}

// openApp resolves the project root from the --project flag and wires the
// full stack against its data directory.
func openApp(ctx context.Context) (*app, error) {
	root, err := config.FindProjectRoot(projectDir)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}

	dataDir := filepath.Join(root, dataDirName)
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	st, err := store.Open(filepath.Join(dataDir, indexDBName))
	if err != nil {
		return nil, err
	}

	embedder, err := embed.New(cfg.Search.EmbeddingBackend, cfg.Search.EmbeddingDims)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	b := bandit.New()
	journal := bandit.NewJournal(st)
	if _, err := journal.ReplayInto(ctx, b); err != nil {
		_ = st.Close()
		return nil, err
	}

	engineCfg := search.DefaultConfig()
	engineCfg.LexWeight = cfg.Search.BM25Weight
	engineCfg.SemWeight = cfg.Search.SemanticWeight
	engine, err := search.New(st, embedder, b, engineCfg, slog.Default())
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	return &app{
		Root:     root,
		DataDir:  dataDir,
		Config:   cfg,
		Store:    st,
		Embedder: embedder,
		Bandit:   b,
		Journal:  journal,
		Engine:   engine,
		Router:   router.New(engine, slog.Default()),
	}, nil
}

// Close releases the store and its writer lock.
func (a *app) Close() {
	_ = a.Store.Close()
}

// ScanRoots resolves the configured skill paths against the project root.
func (a *app) ScanRoots() []scanner.Root {
	cfgRoots := a.Config.SkillPaths.Roots()
	roots := make([]scanner.Root, 0, len(cfgRoots))
	for _, r := range cfgRoots {
		dir := r.Dir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(a.Root, dir)
		}
		roots = append(roots, scanner.Root{Layer: r.Layer, Dir: dir})
	}
	return roots
}

// Coordinator builds the index coordinator for this app.
func (a *app) Coordinator() *index.Coordinator {
	return index.New(a.Store, scanner.New(slog.Default()), a.Embedder, slog.Default())
}

// QueryContext derives the bandit context for the current invocation:
// tech stack from project marker files and time of day from the clock.
func (a *app) QueryContext() bandit.QueryContext {
	return bandit.QueryContext{
		TechStack: detectTechStack(a.Root),
		TimeOfDay: timeOfDay(time.Now()),
	}
}

func detectTechStack(root string) string {
	markers := []struct {
		file  string
		stack string
	}{
		{"go.mod", "go"},
		{"package.json", "node"},
		{"pyproject.toml", "python"},
		{"requirements.txt", "python"},
		{"Cargo.toml", "rust"},
	}
	for _, m := range markers {
		if info, err := os.Stat(filepath.Join(root, m.file)); err == nil && !info.IsDir() {
			return m.stack
		}
	}
	return ""
}

func timeOfDay(now time.Time) string {
	switch h := now.Hour(); {
	case h < 6:
		return "night"
	case h < 12:
		return "morning"
	case h < 18:
		return "afternoon"
	default:
		return "evening"
	}
}
