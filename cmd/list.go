package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/dubboard/internal/board"
	"github.com/twiced-technology-gmbh/dubboard/internal/clierr"
	"github.com/twiced-technology-gmbh/dubboard/internal/config"
	"github.com/twiced-technology-gmbh/dubboard/internal/output"
	"github.com/twiced-technology-gmbh/dubboard/internal/task"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List tasks",
	Long: `Lists tasks with optional filtering, sorting, and output format control.

Filters take the form column:type[:value] and may be repeated; a task must
pass all of them. Types: equals, contains, includes, boolean, dateRange,
empty, notEmpty.

  dubboard list --filter status:equals:working --filter dueDate:dateRange:..2024-06-30
  dubboard list --filter assignee:includes:u1,u2 --sort dueDate:desc`,
	RunE: runList,
}

var listFilters filterFlag

func init() {
	listCmd.Flags().Var(&listFilters, "filter", "filter as column:type[:value] (repeatable)")
	listCmd.Flags().String("sort", "", "sort as key[:asc|desc]")
	listCmd.Flags().String("select", "", "comma-separated task IDs to mark as selected")
	listCmd.Flags().StringSlice("columns", nil, "columns to show (default: all except link and file)")
	listCmd.Flags().IntP("limit", "n", 0, "limit number of results")
	listCmd.Flags().String("group-by", "", "group results by column")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
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

	if err := applyViewFlags(cmd, cfg, b.session.View()); err != nil {
		return err
	}

	tasks, err := b.session.Tasks(ctx)
	if err != nil {
		return err
	}
	if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 && len(tasks) > limit {
		tasks = tasks[:limit]
	}

	if groupBy, _ := cmd.Flags().GetString("group-by"); groupBy != "" {
		col, ok := cfg.Column(groupBy)
		if !ok {
			return clierr.Newf(clierr.UnknownColumn, "invalid --group-by column %q", groupBy).
				WithDetails(map[string]any{"columns": cfg.ColumnIDs()})
		}
		return outputGroupedList(board.GroupBy(tasks, col, cfg))
	}

	columns, _ := cmd.Flags().GetStringSlice("columns")
	return outputTaskList(cfg, tasks, output.TableOptions{
		Columns:  columns,
		Selected: b.session.View().Selection,
	})
}

// applyViewFlags loads --filter, --sort and --select into the view.
func applyViewFlags(cmd *cobra.Command, cfg *config.Config, v *board.View) error {
	for _, raw := range listFilters {
		f, err := board.ParseFilter(raw, cfg)
		if err != nil {
			return err
		}
		v.Filters.Set(f)
	}

	if raw, _ := cmd.Flags().GetString("sort"); raw != "" {
		s, err := board.ParseSort(raw, cfg)
		if err != nil {
			return err
		}
		v.Sort = s
	}

	if raw, _ := cmd.Flags().GetString("select"); raw != "" {
		ids, err := parseIDs(raw)
		if err != nil {
			return err
		}
		for _, id := range ids {
			v.Selection.Add(id)
		}
	}
	return nil
}

func outputGroupedList(grouped board.GroupedSummary) error {
	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, grouped)
	}
	output.GroupedTable(os.Stdout, grouped)
	return nil
}

func outputTaskList(cfg *config.Config, tasks []task.Task, opts output.TableOptions) error {
	switch outputFormat() {
	case output.FormatJSON:
		if tasks == nil {
			tasks = []task.Task{}
		}
		return output.JSON(os.Stdout, tasks)
	case output.FormatCompact:
		output.TaskCompact(os.Stdout, cfg, tasks)
		return nil
	}

	output.TaskTable(os.Stdout, cfg, tasks, opts)
	return nil
}
