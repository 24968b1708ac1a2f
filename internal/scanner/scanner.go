// Package scanner discovers skill source files across layered roots and
// watches them for changes.
package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/skillbase/skillbase/internal/store"
)

// skillExt is the only recognized source extension.
const skillExt = ".md"

// skippedDirs are never descended into.
var skippedDirs = map[string]struct{}{
	".git":         {},
	"node_modules": {},
	".idea":        {},
	".vscode":      {},
}

// Root is one layered skill directory.
type Root struct {
	Layer store.Layer
	Dir   string
}

// Source is one discovered skill file.
type Source struct {
	Layer store.Layer
	Path  string // absolute
}

// Scanner walks skill roots.
type Scanner struct {
	logger *slog.Logger
}

// New creates a scanner.
func New(logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{logger: logger}
}

// Scan walks every root and returns all markdown sources, ordered by layer
// precedence ascending then path, so repeated scans of the same tree yield
// the same list. Missing roots are skipped, not fatal: layers are optional.
func (s *Scanner) Scan(ctx context.Context, roots []Root) ([]Source, error) {
	var sources []Source

	for _, root := range roots {
		if !root.Layer.Valid() {
			return nil, fmt.Errorf("invalid layer %q for root %s", root.Layer, root.Dir)
		}

		absRoot, err := filepath.Abs(root.Dir)
		if err != nil {
			return nil, fmt.Errorf("resolve root %s: %w", root.Dir, err)
		}
		info, err := os.Stat(absRoot)
		if os.IsNotExist(err) {
			s.logger.Debug("skill_root_missing",
				slog.String("layer", string(root.Layer)),
				slog.String("dir", absRoot))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("stat root %s: %w", absRoot, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("skill root is not a directory: %s", absRoot)
		}

		err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if d.IsDir() {
				name := d.Name()
				if _, skip := skippedDirs[name]; skip {
					return filepath.SkipDir
				}
				if path != absRoot && strings.HasPrefix(name, ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if strings.EqualFold(filepath.Ext(path), skillExt) {
				sources = append(sources, Source{Layer: root.Layer, Path: path})
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk root %s: %w", absRoot, err)
		}
	}

	sort.Slice(sources, func(i, j int) bool {
		if sources[i].Layer.Priority() != sources[j].Layer.Priority() {
			return sources[i].Layer.Priority() < sources[j].Layer.Priority()
		}
		return sources[i].Path < sources[j].Path
	})
	return sources, nil
}
