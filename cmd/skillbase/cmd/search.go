package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/skillbase/skillbase/internal/router"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	limit    int
	offset   int
	mode     string
	tags     []string
	layers   []string
	metadata []string // key=value pairs
}

// newSearchCmd creates the search command.
func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search indexed skills",
		Long: `Search indexed skills with hybrid retrieval.

Hybrid mode fuses BM25 keyword matching with semantic similarity
using Reciprocal Rank Fusion; the channel weights adapt to recorded
feedback.

Examples:
  skillbase search "git rebase workflow"
  skillbase search "deploy" --mode bm25 --limit 5
  skillbase search "testing" --tag go --layer project
  skillbase search "review" --robot`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 10, "Maximum number of results")
	cmd.Flags().IntVar(&opts.offset, "offset", 0, "Skip the first N results")
	cmd.Flags().StringVarP(&opts.mode, "mode", "m", "hybrid", "Search mode: bm25, semantic, hybrid")
	cmd.Flags().StringSliceVarP(&opts.tags, "tag", "t", nil, "Require at least one matching tag (repeatable)")
	cmd.Flags().StringSliceVarP(&opts.layers, "layer", "l", nil, "Restrict to layers (repeatable)")
	cmd.Flags().StringSliceVar(&opts.metadata, "meta", nil, "Metadata equality filter key=value (repeatable)")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	out := outWriter(cmd)

	metadata, err := parseMetadata(opts.metadata)
	if err != nil {
		return failure(out, err)
	}

	a, err := openApp(ctx)
	if err != nil {
		return failure(out, err)
	}
	defer a.Close()

	req := router.Request{
		Text:     query,
		Mode:     opts.mode,
		Tags:     opts.tags,
		Layers:   opts.layers,
		Metadata: metadata,
		Limit:    opts.limit,
		Offset:   opts.offset,
		Context:  a.QueryContext(),
	}

	envelope, err := a.Router.Search(ctx, req)
	if out.Robot() {
		// The envelope mirrors the error, so robot consumers always get
		// a parseable payload.
		if jsonErr := out.JSON(envelope); jsonErr != nil {
			return jsonErr
		}
		return err
	}
	if err != nil {
		return failure(out, err)
	}

	if len(envelope.Results) == 0 {
		out.Plain("No results.")
		return nil
	}
	for i, res := range envelope.Results {
		out.Plainf("%2d. %s  [%s]  score=%.4f", opts.offset+i+1, res.SkillID, res.Layer, res.Score)
		if res.Description != "" {
			out.Plainf("    %s", res.Description)
		}
		if len(res.Tags) > 0 {
			out.Plainf("    tags: %s", strings.Join(res.Tags, ", "))
		}
	}
	out.Plainf("\n%d results in %dms", envelope.Total, envelope.ElapsedMS)
	return nil
}

func parseMetadata(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	meta := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("metadata filter %q is not key=value", pair)
		}
		meta[key] = value
	}
	return meta, nil
}
