package cmd

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/dubboard/internal/board"
	"github.com/twiced-technology-gmbh/dubboard/internal/clierr"
	"github.com/twiced-technology-gmbh/dubboard/internal/config"
	"github.com/twiced-technology-gmbh/dubboard/internal/output"
	"github.com/twiced-technology-gmbh/dubboard/internal/workspace"
)

var flagWatch bool

var boardCmd = &cobra.Command{
	Use:     "board",
	Aliases: []string{"summary"},
	Short:   "Show board summary",
	Long: `Displays a summary of the board: task counts per status and phase,
unassigned and overdue counts.

Use --watch to keep the display live. The summary is re-rendered whenever
the change feed reports new writes (from another terminal, a teammate on
the shared Redis feed, or an editor saving a task file). Press Ctrl+C to stop.`,
	RunE: runBoard,
}

func init() {
	rootCmd.AddCommand(boardCmd)
	boardCmd.Flags().BoolVarP(&flagWatch, "watch", "w", false, "live-update the board from the change feed")
	boardCmd.Flags().String("group-by", "", "group board by column")
}

func runBoard(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var group *config.ColumnConfig
	if groupBy, _ := cmd.Flags().GetString("group-by"); groupBy != "" {
		col, ok := cfg.Column(groupBy)
		if !ok {
			return clierr.Newf(clierr.UnknownColumn, "invalid --group-by column %q", groupBy).
				WithDetails(map[string]any{"columns": cfg.ColumnIDs()})
		}
		group = &col
	}

	ctx := cmd.Context()
	b, err := openBoard(ctx, cfg, flagWatch)
	if err != nil {
		return err
	}
	defer b.Close()

	if err := renderBoard(ctx, b.session, group); err != nil {
		return err
	}
	if !flagWatch {
		return nil
	}
	return watchBoard(ctx, b.session, group)
}

func renderBoard(ctx context.Context, s *workspace.Session, group *config.ColumnConfig) error {
	if group != nil {
		tasks, err := s.Records(ctx)
		if err != nil {
			return err
		}
		grouped := board.GroupBy(tasks, *group, s.Config())
		if outputFormat() == output.FormatJSON {
			return output.JSON(os.Stdout, grouped)
		}
		output.GroupedTable(os.Stdout, grouped)
		return nil
	}

	summary, err := s.Summary(ctx)
	if err != nil {
		return err
	}
	switch outputFormat() {
	case output.FormatJSON:
		return output.JSON(os.Stdout, summary)
	case output.FormatCompact:
		output.OverviewCompact(os.Stdout, summary)
		return nil
	}
	output.OverviewTable(os.Stdout, summary)
	return nil
}

// watchBoard re-renders after every invalidation until ctx is canceled.
func watchBoard(ctx context.Context, s *workspace.Session, group *config.ColumnConfig) error {
	if s.Config().Feed.Driver == config.FeedLocal {
		fmt.Fprintln(os.Stderr, "Warning: feed driver is local; only writes from this process are seen")
	}

	var mu sync.Mutex
	off := s.OnChange(func([]string) {
		mu.Lock()
		defer mu.Unlock()
		clearScreen()
		if err := renderBoard(ctx, s, group); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: rendering board: %v\n", err)
		}
	})
	defer off()

	fmt.Fprintln(os.Stderr, "Watching for changes... (Ctrl+C to stop)")
	<-ctx.Done()
	return nil
}

// clearScreen sends ANSI escape codes to clear the terminal and move the
// cursor to the top-left corner.
func clearScreen() {
	fmt.Fprint(os.Stdout, "\033[2J\033[H")
}
