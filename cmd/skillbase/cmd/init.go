package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/skillbase/skillbase/internal/config"
)

// newInitCmd creates the init command.
func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize skillbase in the current project",
		Long: `Create the skillbase data directory, a default .skillbase.yaml
configuration, and an empty project skill root.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing .skillbase.yaml")
	return cmd
}

func runInit(cmd *cobra.Command, force bool) error {
	out := outWriter(cmd)

	root, err := filepath.Abs(projectDir)
	if err != nil {
		return failure(out, err)
	}

	dataDir := filepath.Join(root, dataDirName)
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return failure(out, fmt.Errorf("create data dir: %w", err))
	}

	skillDir := filepath.Join(root, ".skills")
	if err := os.MkdirAll(skillDir, 0o755); err != nil {
		return failure(out, fmt.Errorf("create skill dir: %w", err))
	}

	cfgPath := config.ProjectConfigPath(root)
	wroteConfig := false
	if _, err := os.Stat(cfgPath); os.IsNotExist(err) || force {
		if err := config.DefaultConfig().WriteYAML(cfgPath); err != nil {
			return failure(out, err)
		}
		wroteConfig = true
	}

	if out.Robot() {
		return out.JSON(map[string]any{
			"status":       "ok",
			"data_dir":     dataDir,
			"skill_dir":    skillDir,
			"config_path":  cfgPath,
			"wrote_config": wroteConfig,
		})
	}

	out.Successf("Initialized skillbase in %s", root)
	out.Statusf("📁", "Data directory: %s", dataDir)
	out.Statusf("📁", "Skill root: %s", skillDir)
	if wroteConfig {
		out.Statusf("📝", "Wrote default config: %s", cfgPath)
	} else {
		out.Statusf("📝", "Kept existing config: %s", cfgPath)
	}
	out.Plain("\nAdd markdown skills under .skills/ and run 'skillbase index'.")
	return nil
}
