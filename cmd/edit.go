package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/dubboard/internal/clierr"
	"github.com/twiced-technology-gmbh/dubboard/internal/output"
	"github.com/twiced-technology-gmbh/dubboard/internal/task"
)

var editCmd = &cobra.Command{
	Use:   "edit ID[,ID,...]",
	Short: "Edit a task",
	Long: `Sets fields of existing tasks. Only the fields given with --set change;
an empty value clears the field.

With several IDs the tasks are selected together and each --set is applied
to the whole selection as a bulk edit, one write per task:

  dubboard edit 4 --set phase=mixing --set dueDate=2024-05-01
  dubboard edit 4,7,9 --set status=done`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

var editSets setFlag

func init() {
	editCmd.Flags().Var(&editSets, "set", "field value as field=value (repeatable)")
	rootCmd.AddCommand(editCmd)
}

func runEdit(cmd *cobra.Command, args []string) error {
	ids, err := parseIDs(args[0])
	if err != nil {
		return err
	}
	if len(editSets) == 0 {
		return clierr.New(clierr.NoChanges, "no changes specified; use --set field=value")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	b, err := openBoard(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer b.Close()

	sel := b.session.View().Selection
	if len(ids) > 1 {
		for _, id := range ids {
			sel.Add(id)
		}
	}

	failed := make(map[string]error)
	for _, fv := range editSets {
		res, err := b.session.Edit(ctx, ids[0], fv.Field, fv.Value)
		if err != nil && res.Failed == nil {
			// Rejected before any write: unknown column or bad value.
			return err
		}
		for id, ferr := range res.Failed {
			if _, seen := failed[id]; !seen {
				failed[id] = ferr
			}
		}
	}

	if len(ids) > 1 {
		return reportBatch(ids, failed)
	}
	if err := failed[ids[0]]; err != nil {
		return err
	}

	t, err := b.files.Get(ctx, cfg.BoardID(), ids[0])
	if err != nil {
		return err
	}
	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, t)
	}
	output.Messagef(os.Stdout, "Updated task #%s: %s", t.ID, t.Title)
	for _, fv := range editSets {
		col, _ := cfg.Column(fv.Field)
		output.Messagef(os.Stdout, "  %s: %s", col.Title(), task.String(t.Get(col.FieldName())))
	}
	return nil
}
