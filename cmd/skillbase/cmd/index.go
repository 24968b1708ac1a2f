package cmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/skillbase/skillbase/internal/index"
	"github.com/skillbase/skillbase/internal/output"
	"github.com/skillbase/skillbase/internal/scanner"
)

// indexOptions holds CLI flags for index.
type indexOptions struct {
	watch    bool
	debounce time.Duration
}

// newIndexCmd creates the index command.
func newIndexCmd() *cobra.Command {
	var opts indexOptions

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Scan skill roots and rebuild the search index",
		Long: `Scan the configured skill roots, detect changed sources by content
hash, and reconcile the index: unchanged files are skipped, changed
files re-indexed, removed files cleaned up.

With --watch the command keeps running and re-indexes whenever a
skill file changes, coalescing rapid edits into one pass.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIndex(cmd.Context(), cmd, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "Re-index on file changes until interrupted")
	cmd.Flags().DurationVar(&opts.debounce, "debounce", scanner.DefaultDebounce, "Coalescing window for --watch")
	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, opts indexOptions) error {
	out := outWriter(cmd)
	start := time.Now()

	a, err := openApp(ctx)
	if err != nil {
		return failure(out, err)
	}
	defer a.Close()

	summary, err := a.Coordinator().Run(ctx, a.ScanRoots())
	if err != nil {
		return failure(out, err)
	}
	a.Engine.InvalidateCache()

	if out.Robot() && !opts.watch {
		return out.JSON(map[string]any{
			"status":     "ok",
			"indexed":    summary,
			"elapsed_ms": time.Since(start).Milliseconds(),
		})
	}
	reportSummary(out, summary, time.Since(start))

	if !opts.watch {
		return nil
	}
	return watchAndReindex(ctx, out, a, opts.debounce)
}

func reportSummary(out *output.Writer, summary *index.Summary, elapsed time.Duration) {
	out.Successf("Indexed %d skills in %s (%d added, %d updated, %d unchanged, %d removed)",
		summary.Scanned, elapsed.Round(time.Millisecond),
		summary.Added, summary.Updated, summary.Unchanged, summary.Removed)
	if summary.Failed > 0 {
		out.Warningf("%d sources failed to index; see the log for details", summary.Failed)
	}
}

// watchAndReindex re-runs the coordinator on every debounced batch until
// the context is cancelled.
func watchAndReindex(ctx context.Context, out *output.Writer, a *app, debounce time.Duration) error {
	w, err := scanner.NewWatcher(debounce, slog.Default())
	if err != nil {
		return failure(out, err)
	}

	dirs := make([]string, 0)
	for _, r := range a.ScanRoots() {
		dirs = append(dirs, r.Dir)
	}

	go func() {
		if err := w.Watch(ctx, dirs); err != nil {
			slog.Warn("watcher_stopped", slog.String("error", err.Error()))
		}
	}()

	out.Statusf("👀", "Watching for skill changes (debounce %s); press Ctrl-C to stop", debounce)
	for {
		select {
		case <-ctx.Done():
			return nil
		case batch, ok := <-w.Batches():
			if !ok {
				return nil
			}
			start := time.Now()
			summary, err := a.Coordinator().Run(ctx, a.ScanRoots())
			if err != nil {
				out.Errorf("re-index failed: %v", err)
				continue
			}
			a.Engine.InvalidateCache()
			slog.Info("watch_reindex",
				slog.Int("changed_files", len(batch)),
				slog.Int("updated", summary.Updated),
				slog.Int("added", summary.Added),
				slog.Int("removed", summary.Removed))
			reportSummary(out, summary, time.Since(start))
		}
	}
}
