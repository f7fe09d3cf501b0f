package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/dubboard/internal/output"
	"github.com/twiced-technology-gmbh/dubboard/internal/store"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show recent board activity",
	Long:  `Prints the board's activity log (creates, edits and deletes), oldest first.`,
	Args:  cobra.NoArgs,
	RunE:  runLog,
}

func init() {
	logCmd.Flags().IntP("limit", "n", 20, "number of entries to show (0 for all)") //nolint:mnd // default page
	logCmd.Flags().String("task", "", "only show entries for this task ID")
	rootCmd.AddCommand(logCmd)
}

func runLog(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	limit, _ := cmd.Flags().GetInt("limit")
	taskID, _ := cmd.Flags().GetString("task")

	readLimit := limit
	if taskID != "" {
		readLimit = 0
	}
	entries, err := store.ReadActivity(cfg.Dir(), readLimit)
	if err != nil {
		return err
	}

	if taskID != "" {
		kept := entries[:0]
		for _, e := range entries {
			if e.TaskID == taskID {
				kept = append(kept, e)
			}
		}
		entries = kept
		if limit > 0 && len(entries) > limit {
			entries = entries[len(entries)-limit:]
		}
	}

	if outputFormat() == output.FormatJSON {
		if entries == nil {
			entries = []store.Activity{}
		}
		return output.JSON(os.Stdout, entries)
	}

	if len(entries) == 0 {
		output.Messagef(os.Stdout, "No activity.")
		return nil
	}
	for _, e := range entries {
		line := fmt.Sprintf("%s  %-7s #%s", e.Timestamp.Local().Format("2006-01-02 15:04"), e.Action, e.TaskID)
		if e.Field != "" {
			line += " " + e.Field
		}
		if e.Detail != "" {
			line += ": " + e.Detail
		}
		fmt.Fprintln(os.Stdout, line)
	}
	return nil
}
