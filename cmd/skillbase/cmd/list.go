package cmd

import (
	"context"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	skillerr "github.com/skillbase/skillbase/internal/errors"
	"github.com/skillbase/skillbase/internal/store"
)

// newListCmd creates the list command.
func newListCmd() *cobra.Command {
	var layerFilter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List indexed skills",
		Long: `List the layer-winning skills in the index. Each id appears once:
when the same skill exists in several layers, the highest-priority
layer is shown.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd.Context(), cmd, layerFilter)
		},
	}

	cmd.Flags().StringVarP(&layerFilter, "layer", "l", "", "Only show skills from this layer")
	return cmd
}

type listedSkill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Layer       string   `json:"layer"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

func runList(ctx context.Context, cmd *cobra.Command, layerFilter string) error {
	out := outWriter(cmd)

	if layerFilter != "" && !store.Layer(layerFilter).Valid() {
		return failure(out, skillerr.ValidationError("unknown layer \""+layerFilter+"\"", nil))
	}

	a, err := openApp(ctx)
	if err != nil {
		return failure(out, err)
	}
	defer a.Close()

	snap, err := a.Store.Snapshot(ctx)
	if err != nil {
		return failure(out, skillerr.Wrap(skillerr.ErrCodeStore, err))
	}

	var skills []listedSkill
	for _, sk := range snap.Skills {
		if layerFilter != "" && string(sk.Layer) != layerFilter {
			continue
		}
		skills = append(skills, listedSkill{
			ID:          sk.ID,
			Name:        sk.Name,
			Layer:       string(sk.Layer),
			Description: sk.Description,
			Tags:        sk.Tags,
		})
	}
	sort.Slice(skills, func(i, j int) bool { return skills[i].ID < skills[j].ID })

	if out.Robot() {
		if skills == nil {
			skills = []listedSkill{}
		}
		return out.JSON(map[string]any{"status": "ok", "skills": skills, "total": len(skills)})
	}

	if len(skills) == 0 {
		out.Plain("No skills indexed. Run 'skillbase index' first.")
		return nil
	}
	for _, sk := range skills {
		line := sk.ID + "  [" + sk.Layer + "]"
		if len(sk.Tags) > 0 {
			line += "  (" + strings.Join(sk.Tags, ", ") + ")"
		}
		out.Plain(line)
		if sk.Description != "" {
			out.Plain("    " + sk.Description)
		}
	}
	return nil
}
