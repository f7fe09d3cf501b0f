package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/dubboard/internal/clierr"
	"github.com/twiced-technology-gmbh/dubboard/internal/output"
	"github.com/twiced-technology-gmbh/dubboard/internal/task"
)

var createCmd = &cobra.Command{
	Use:     "create [TITLE]",
	Aliases: []string{"add"},
	Short:   "Create a new task",
	Long: `Creates a new task with the given title and optional field values.

Title can be provided as a positional argument or via --title flag. Field
values are coerced to their column's type:

  dubboard create "Episode 4 mix" --set status=working --set assignee=u2 --set dueDate=2024-05-01`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCreate,
}

var createSets setFlag

func init() {
	createCmd.Flags().String("title", "", "task title (alternative to positional argument)")
	createCmd.Flags().Var(&createSets, "set", "field value as field=value (repeatable)")
	rootCmd.AddCommand(createCmd)
}

func runCreate(cmd *cobra.Command, args []string) error {
	title, err := resolveCreateTitle(cmd, args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Announce the new task on the configured feed.
	b, err := openBoard(cmd.Context(), cfg, false)
	if err != nil {
		return err
	}
	defer b.Close()

	t, err := b.files.Create(cmd.Context(), cfg.BoardID(), title, createSets.fields())
	if err != nil {
		return err
	}

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, t)
	}

	output.Messagef(os.Stdout, "Created task #%s: %s", t.ID, t.Title)
	output.Messagef(os.Stdout, "  File: %s", t.File)
	for _, col := range cfg.Columns {
		if v := t.Get(col.FieldName()); col.FieldName() != task.FieldTitle && !task.IsEmpty(v) {
			output.Messagef(os.Stdout, "  %s: %s", col.Title(), task.String(v))
		}
	}
	return nil
}

// resolveCreateTitle returns the task title from either the positional arg or --title flag.
func resolveCreateTitle(cmd *cobra.Command, args []string) (string, error) {
	flagTitle, _ := cmd.Flags().GetString("title")
	hasPositional := len(args) > 0
	hasFlag := flagTitle != ""

	switch {
	case hasPositional && hasFlag:
		return "", clierr.New(clierr.InvalidInput,
			"title provided both as argument and --title flag; use one or the other")
	case hasPositional:
		return args[0], nil
	case hasFlag:
		return flagTitle, nil
	default:
		return "", clierr.New(clierr.InvalidInput, "title is required: provide it as an argument or with --title")
	}
}
