package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/dubboard/internal/clierr"
	"github.com/twiced-technology-gmbh/dubboard/internal/config"
	"github.com/twiced-technology-gmbh/dubboard/internal/output"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new production board",
	Long: `Creates a board directory with config.yml and a tasks/ subdirectory.

The default board has the studio's standard columns (status, phase,
assignee, team, due date, services, episode, priority flag). Edit
config.yml afterwards to add columns or members.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().String("name", "", "board name (defaults to current directory name)")
	initCmd.Flags().StringSlice("statuses", nil, "comma-separated list of statuses")
	initCmd.Flags().StringSlice("phases", nil, "comma-separated list of production phases")
	initCmd.Flags().String("feed", "", "change feed driver (local, fs, redis)")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, _ []string) error {
	dir := flagDir
	if dir == "" {
		dir = config.DefaultDir
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}

	if _, err := os.Stat(filepath.Join(absDir, config.ConfigFileName)); err == nil {
		return clierr.Newf(clierr.BoardAlreadyExists, "board already initialized in %s", absDir).
			WithDetails(map[string]any{"dir": absDir})
	}

	name, _ := cmd.Flags().GetString("name")
	if name == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getting working directory: %w", err)
		}
		name = filepath.Base(cwd)
	}

	cfg := config.NewDefault(name)
	cfg.SetDir(absDir)

	if statuses, _ := cmd.Flags().GetStringSlice("statuses"); len(statuses) > 0 {
		cfg.Statuses = statuses
	}
	if phases, _ := cmd.Flags().GetStringSlice("phases"); len(phases) > 0 {
		cfg.Phases = phases
	}
	if driver, _ := cmd.Flags().GetString("feed"); driver != "" {
		cfg.Feed.Driver = driver
	}

	if err := cfg.Validate(); err != nil {
		return clierr.New(clierr.InvalidInput, err.Error())
	}

	tasksDir := cfg.TasksPath()
	const dirMode = 0o750
	if err := os.MkdirAll(tasksDir, dirMode); err != nil {
		return fmt.Errorf("creating tasks directory: %w", err)
	}

	if err := cfg.Save(); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, map[string]string{
			"status":   "initialized",
			"dir":      absDir,
			"name":     name,
			"board":    cfg.BoardID(),
			"config":   cfg.ConfigPath(),
			"tasks":    tasksDir,
			"statuses": strings.Join(cfg.Statuses, ","),
			"feed":     cfg.Feed.Driver,
		})
	}

	output.Messagef(os.Stdout, "Initialized board %q in %s", name, absDir)
	output.Messagef(os.Stdout, "  Config:   %s", cfg.ConfigPath())
	output.Messagef(os.Stdout, "  Tasks:    %s", tasksDir)
	output.Messagef(os.Stdout, "  Statuses: %s", strings.Join(cfg.Statuses, ", "))
	output.Messagef(os.Stdout, "  Feed:     %s", cfg.Feed.Driver)
	return nil
}
