// Package config loads and validates skillbase configuration.
//
// Precedence, lowest to highest: built-in defaults, user config
// (~/.config/skillbase/config.yaml), project config (.skillbase.yaml in
// the project root), SKILLBASE_* environment variables. Unknown keys are
// rejected with a structured error rather than silently ignored.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/skillbase/skillbase/internal/disclose"
	"github.com/skillbase/skillbase/internal/embed"
	skillerr "github.com/skillbase/skillbase/internal/errors"
	"github.com/skillbase/skillbase/internal/store"
)

// Budget bounds for disclosure.token_budget.
const (
	MinTokenBudget = 100
	MaxTokenBudget = 100000
)

// Config is the complete skillbase configuration.
type Config struct {
	Disclosure DisclosureConfig `yaml:"disclosure" json:"disclosure"`
	Search     SearchConfig     `yaml:"search" json:"search"`
	SkillPaths SkillPaths       `yaml:"skill_paths" json:"skill_paths"`
}

// DisclosureConfig configures default rendering behavior.
type DisclosureConfig struct {
	// DefaultLevel is used when a command gives neither --level nor --budget.
	DefaultLevel string `yaml:"default_level" json:"default_level"`
	// TokenBudget caps rendered output; 0 falls back to the level preset.
	TokenBudget int `yaml:"token_budget" json:"token_budget"`
	// AutoSuggest enables skill suggestions after searches.
	AutoSuggest bool `yaml:"auto_suggest" json:"auto_suggest"`
	// CooldownSeconds suppresses repeat suggestions for the same skill.
	CooldownSeconds int `yaml:"cooldown_seconds" json:"cooldown_seconds"`
}

// SearchConfig configures retrieval.
type SearchConfig struct {
	// EmbeddingBackend is "hash" or "none". "none" disables the semantic
	// channel entirely.
	EmbeddingBackend string `yaml:"embedding_backend" json:"embedding_backend"`
	EmbeddingDims    int    `yaml:"embedding_dims" json:"embedding_dims"`
	// Static channel weights used when the bandit has no observations.
	BM25Weight     float64 `yaml:"bm25_weight" json:"bm25_weight"`
	SemanticWeight float64 `yaml:"semantic_weight" json:"semantic_weight"`
}

// SkillPaths lists the skill roots per layer.
type SkillPaths struct {
	Global  []string `yaml:"global" json:"global"`
	Org     []string `yaml:"org" json:"org"`
	User    []string `yaml:"user" json:"user"`
	Project []string `yaml:"project" json:"project"`
	Local   []string `yaml:"local" json:"local"`
}

// Roots flattens the configured paths into scan roots in layer order.
func (p SkillPaths) Roots() []Root {
	var roots []Root
	add := func(layer store.Layer, dirs []string) {
		for _, d := range dirs {
			roots = append(roots, Root{Layer: layer, Dir: d})
		}
	}
	add(store.LayerGlobal, p.Global)
	add(store.LayerOrg, p.Org)
	add(store.LayerUser, p.User)
	add(store.LayerProject, p.Project)
	add(store.LayerLocal, p.Local)
	return roots
}

// Root pairs a layer with one of its directories.
type Root struct {
	Layer store.Layer
	Dir   string
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Disclosure: DisclosureConfig{
			DefaultLevel:    string(disclose.LevelStandard),
			TokenBudget:     0, // level preset applies
			AutoSuggest:     true,
			CooldownSeconds: 300,
		},
		Search: SearchConfig{
			EmbeddingBackend: embed.BackendHash,
			EmbeddingDims:    embed.DefaultDims,
			BM25Weight:       0.5,
			SemanticWeight:   0.5,
		},
		SkillPaths: SkillPaths{
			User:    []string{defaultUserSkillDir()},
			Project: []string{".skills"},
		},
	}
}

func defaultUserSkillDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "skillbase", "skills")
	}
	return filepath.Join(home, ".skillbase", "skills")
}

// UserConfigPath returns the user-level configuration path, honoring
// XDG_CONFIG_HOME.
func UserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "skillbase", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "skillbase", "config.yaml")
	}
	return filepath.Join(home, ".config", "skillbase", "config.yaml")
}

// ProjectConfigPath returns the project config path under dir.
func ProjectConfigPath(dir string) string {
	return filepath.Join(dir, ".skillbase.yaml")
}

// Load builds the effective configuration for the project at dir.
func Load(dir string) (*Config, error) {
	cfg := DefaultConfig()

	if path := UserConfigPath(); fileExists(path) {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}
	if path := ProjectConfigPath(dir); fileExists(path) {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads and validates a single config file, ignoring the layered
// lookup. Used by `skillbase config validate`.
func LoadFile(path string) (*Config, error) {
	if !fileExists(path) {
		return nil, skillerr.New(skillerr.ErrCodeConfigNotFound,
			fmt.Sprintf("config file %s does not exist", path), nil)
	}
	cfg := DefaultConfig()
	if err := cfg.loadYAML(path); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return skillerr.Wrap(skillerr.ErrCodeConfigNotFound, err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return skillerr.New(skillerr.ErrCodeConfigInvalid,
			fmt.Sprintf("cannot parse %s: %v", path, err), err)
	}
	if len(doc.Content) == 0 {
		return nil // empty file
	}
	if err := rejectUnknownKeys(doc.Content[0], ""); err != nil {
		return err
	}

	var parsed Config
	if err := doc.Decode(&parsed); err != nil {
		return skillerr.New(skillerr.ErrCodeConfigInvalid,
			fmt.Sprintf("cannot decode %s: %v", path, err), err)
	}
	c.mergeWith(&parsed, doc.Content[0])
	return nil
}

// knownKeys maps a section path to its permitted child keys. The empty
// path is the document root.
var knownKeys = map[string][]string{
	"":            {"disclosure", "search", "skill_paths"},
	"disclosure":  {"default_level", "token_budget", "auto_suggest", "cooldown_seconds"},
	"search":      {"embedding_backend", "embedding_dims", "bm25_weight", "semantic_weight"},
	"skill_paths": {"global", "org", "user", "project", "local"},
}

func rejectUnknownKeys(node *yaml.Node, path string) error {
	allowed, restricted := knownKeys[path]
	if !restricted || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		if !contains(allowed, key) {
			full := key
			if path != "" {
				full = path + "." + key
			}
			err := skillerr.New(skillerr.ErrCodeConfigUnknownKey,
				fmt.Sprintf("unknown configuration key %q", full), nil)
			if near, ok := skillerr.Nearest(key, allowed); ok {
				suggestion := near
				if path != "" {
					suggestion = path + "." + near
				}
				err = err.WithSuggestion(fmt.Sprintf("did you mean %q?", suggestion))
			}
			return err
		}
		if err := rejectUnknownKeys(node.Content[i+1], key); err != nil {
			return err
		}
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// mergeWith overlays parsed onto c. The yaml node tells apart "absent"
// from "explicitly zero" for the fields where zero is meaningful.
func (c *Config) mergeWith(parsed *Config, root *yaml.Node) {
	if parsed.Disclosure.DefaultLevel != "" {
		c.Disclosure.DefaultLevel = parsed.Disclosure.DefaultLevel
	}
	if hasKey(root, "disclosure", "token_budget") {
		c.Disclosure.TokenBudget = parsed.Disclosure.TokenBudget
	}
	if hasKey(root, "disclosure", "auto_suggest") {
		c.Disclosure.AutoSuggest = parsed.Disclosure.AutoSuggest
	}
	if hasKey(root, "disclosure", "cooldown_seconds") {
		c.Disclosure.CooldownSeconds = parsed.Disclosure.CooldownSeconds
	}

	if parsed.Search.EmbeddingBackend != "" {
		c.Search.EmbeddingBackend = parsed.Search.EmbeddingBackend
	}
	if parsed.Search.EmbeddingDims != 0 {
		c.Search.EmbeddingDims = parsed.Search.EmbeddingDims
	}
	if hasKey(root, "search", "bm25_weight") {
		c.Search.BM25Weight = parsed.Search.BM25Weight
	}
	if hasKey(root, "search", "semantic_weight") {
		c.Search.SemanticWeight = parsed.Search.SemanticWeight
	}

	if hasKey(root, "skill_paths", "global") {
		c.SkillPaths.Global = parsed.SkillPaths.Global
	}
	if hasKey(root, "skill_paths", "org") {
		c.SkillPaths.Org = parsed.SkillPaths.Org
	}
	if hasKey(root, "skill_paths", "user") {
		c.SkillPaths.User = parsed.SkillPaths.User
	}
	if hasKey(root, "skill_paths", "project") {
		c.SkillPaths.Project = parsed.SkillPaths.Project
	}
	if hasKey(root, "skill_paths", "local") {
		c.SkillPaths.Local = parsed.SkillPaths.Local
	}
}

func hasKey(root *yaml.Node, section, key string) bool {
	if root == nil || root.Kind != yaml.MappingNode {
		return false
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value != section {
			continue
		}
		sec := root.Content[i+1]
		if sec.Kind != yaml.MappingNode {
			return false
		}
		for j := 0; j+1 < len(sec.Content); j += 2 {
			if sec.Content[j].Value == key {
				return true
			}
		}
	}
	return false
}

// applyEnvOverrides applies SKILLBASE_* environment variable overrides.
// Malformed values are ignored; env vars are a convenience layer, not a
// validated input surface.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SKILLBASE_DEFAULT_LEVEL"); v != "" {
		c.Disclosure.DefaultLevel = v
	}
	if v := os.Getenv("SKILLBASE_TOKEN_BUDGET"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Disclosure.TokenBudget = n
		}
	}
	if v := os.Getenv("SKILLBASE_AUTO_SUGGEST"); v != "" {
		c.Disclosure.AutoSuggest = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("SKILLBASE_EMBEDDING_BACKEND"); v != "" {
		c.Search.EmbeddingBackend = v
	}
	if v := os.Getenv("SKILLBASE_EMBEDDING_DIMS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Search.EmbeddingDims = n
		}
	}
	if v := os.Getenv("SKILLBASE_BM25_WEIGHT"); v != "" {
		if w, err := strconv.ParseFloat(v, 64); err == nil {
			c.Search.BM25Weight = w
		}
	}
	if v := os.Getenv("SKILLBASE_SEMANTIC_WEIGHT"); v != "" {
		if w, err := strconv.ParseFloat(v, 64); err == nil {
			c.Search.SemanticWeight = w
		}
	}
}

// Validate checks every setting against its documented range.
func (c *Config) Validate() error {
	if _, err := disclose.ParseLevel(c.Disclosure.DefaultLevel); err != nil {
		return skillerr.New(skillerr.ErrCodeConfigInvalid,
			fmt.Sprintf("disclosure.default_level %q is not a disclosure level", c.Disclosure.DefaultLevel), err)
	}
	if b := c.Disclosure.TokenBudget; b != 0 && (b < MinTokenBudget || b > MaxTokenBudget) {
		return skillerr.New(skillerr.ErrCodeConfigInvalid,
			fmt.Sprintf("disclosure.token_budget must be in [%d, %d], got %d", MinTokenBudget, MaxTokenBudget, b), nil)
	}
	if s := c.Disclosure.CooldownSeconds; s < 0 || s > 86400 {
		return skillerr.New(skillerr.ErrCodeConfigInvalid,
			fmt.Sprintf("disclosure.cooldown_seconds must be in [0, 86400], got %d", s), nil)
	}

	switch c.Search.EmbeddingBackend {
	case embed.BackendHash, embed.BackendNone:
	default:
		return skillerr.New(skillerr.ErrCodeConfigInvalid,
			fmt.Sprintf("search.embedding_backend must be %q or %q, got %q",
				embed.BackendHash, embed.BackendNone, c.Search.EmbeddingBackend), nil)
	}
	if d := c.Search.EmbeddingDims; d < embed.MinDims || d > embed.MaxDims {
		return skillerr.New(skillerr.ErrCodeConfigInvalid,
			fmt.Sprintf("search.embedding_dims must be in [%d, %d], got %d", embed.MinDims, embed.MaxDims, d), nil)
	}
	if w := c.Search.BM25Weight; w < 0 || w > 1 {
		return skillerr.New(skillerr.ErrCodeConfigInvalid,
			fmt.Sprintf("search.bm25_weight must be in [0, 1], got %g", w), nil)
	}
	if w := c.Search.SemanticWeight; w < 0 || w > 1 {
		return skillerr.New(skillerr.ErrCodeConfigInvalid,
			fmt.Sprintf("search.semantic_weight must be in [0, 1], got %g", w), nil)
	}
	return nil
}

// WriteYAML writes the configuration to path.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// FindProjectRoot walks up from startDir looking for a .git directory or
// a .skillbase.yaml file; falls back to startDir itself.
func FindProjectRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolve project root: %w", err)
	}
	dir := absDir
	for {
		if dirExists(filepath.Join(dir, ".git")) || fileExists(ProjectConfigPath(dir)) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return absDir, nil
		}
		dir = parent
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
