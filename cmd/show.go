package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/dubboard/internal/output"
	"github.com/twiced-technology-gmbh/dubboard/internal/store"
)

var showCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show task details",
	Long:  `Displays full details of a single task including its markdown notes.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	showCmd.Flags().Bool("raw", false, "print notes as plain markdown")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	ids, err := parseIDs(args[0])
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	t, err := store.NewFiles(cfg).Get(cmd.Context(), cfg.BoardID(), ids[0])
	if err != nil {
		return err
	}

	switch outputFormat() {
	case output.FormatJSON:
		return output.JSON(os.Stdout, t)
	case output.FormatCompact:
		output.TaskDetailCompact(os.Stdout, cfg, t)
		return nil
	}

	body := t.Body
	t.Body = ""
	output.TaskDetail(os.Stdout, cfg, t)
	if body == "" {
		return nil
	}

	raw, _ := cmd.Flags().GetBool("raw")
	fmt.Fprintln(os.Stdout)
	fmt.Fprint(os.Stdout, renderNotes(body, raw))
	return nil
}

// renderNotes renders markdown for the terminal, falling back to the
// source text when rendering fails or color is off.
func renderNotes(body string, raw bool) string {
	if raw || flagNoColor || termenv.EnvNoColor() {
		return body + "\n"
	}
	style := "dark"
	if !termenv.HasDarkBackground() {
		style = "light"
	}
	out, err := glamour.Render(body, style)
	if err != nil {
		return body + "\n"
	}
	return out
}
