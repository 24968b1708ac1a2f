package cmd

import (
	"github.com/spf13/cobra"

	"github.com/skillbase/skillbase/internal/config"
)

// newConfigCmd creates the config command group.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect skillbase configuration",
	}
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigValidateCmd())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long: `Print the configuration after merging defaults, the user config, the
project config, and SKILLBASE_* environment overrides.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := outWriter(cmd)

			root, err := config.FindProjectRoot(projectDir)
			if err != nil {
				return failure(out, err)
			}
			cfg, err := config.Load(root)
			if err != nil {
				return failure(out, err)
			}

			if out.Robot() {
				return out.JSON(map[string]any{"status": "ok", "config": cfg})
			}
			// The effective config is inherently structured; YAML-ish JSON
			// is the clearest human rendering too.
			return out.JSON(cfg)
		},
	}
}

func newConfigValidateCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration",
		Long: `Validate the project configuration, or a specific file with --file.
Reports the first unknown key or out-of-range value found.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := outWriter(cmd)

			var err error
			if file != "" {
				_, err = config.LoadFile(file)
			} else {
				var root string
				root, err = config.FindProjectRoot(projectDir)
				if err == nil {
					_, err = config.Load(root)
				}
			}
			if err != nil {
				return failure(out, err)
			}

			if out.Robot() {
				return out.JSON(map[string]any{"status": "ok"})
			}
			out.Success("Configuration is valid")
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Validate this file instead of the project config")
	return cmd
}
