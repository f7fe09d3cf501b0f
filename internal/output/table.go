package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/twiced-technology-gmbh/dubboard/internal/board"
	"github.com/twiced-technology-gmbh/dubboard/internal/config"
	"github.com/twiced-technology-gmbh/dubboard/internal/task"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("244"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	titleStyle    = lipgloss.NewStyle().Bold(true)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)

	// Status colors aligned with TUI column-header palette.
	statusStyles = map[string]lipgloss.Style{
		"not started": lipgloss.NewStyle().Foreground(lipgloss.Color("242")),
		"working":     lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		"stuck":       lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		"done":        lipgloss.NewStyle().Foreground(lipgloss.Color("34")),
	}

	phaseStyles = map[string]lipgloss.Style{
		"translation": lipgloss.NewStyle().Foreground(lipgloss.Color("110")),
		"casting":     lipgloss.NewStyle().Foreground(lipgloss.Color("141")),
		"recording":   lipgloss.NewStyle().Foreground(lipgloss.Color("33")),
		"mixing":      lipgloss.NewStyle().Foreground(lipgloss.Color("62")),
		"qc":          lipgloss.NewStyle().Foreground(lipgloss.Color("178")),
		"delivery":    lipgloss.NewStyle().Foreground(lipgloss.Color("34")),
	}

	personStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("44")).Bold(true)
	listStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("110"))
)

// DisableColor strips all styling from table output.
func DisableColor() {
	headerStyle = lipgloss.NewStyle()
	dimStyle = lipgloss.NewStyle()
	titleStyle = lipgloss.NewStyle()
	selectedStyle = lipgloss.NewStyle()
	statusStyles = map[string]lipgloss.Style{}
	phaseStyles = map[string]lipgloss.Style{}
	personStyle = lipgloss.NewStyle()
	listStyle = lipgloss.NewStyle()
}

const (
	maxCellWidth  = 40
	maxTitleWidth = 50
	pad           = 2
)

// TableOptions selects what TaskTable shows.
type TableOptions struct {
	// Columns are the column ids to show, in order. Empty means every
	// configured column except link and file columns.
	Columns []string
	// Selected marks rows whose id is selected.
	Selected *board.Selection
}

// TaskTable renders a list of tasks as a formatted table with one column
// per board column.
func TaskTable(w io.Writer, cfg *config.Config, tasks []task.Task, opts TableOptions) {
	if len(tasks) == 0 {
		fmt.Fprintln(os.Stderr, "No tasks found.")
		return
	}

	cols := tableColumns(cfg, opts.Columns)

	// Calculate column widths.
	idW := len("ID") + pad
	widths := make([]int, len(cols))
	for i, col := range cols {
		widths[i] = len(col.Title()) + pad
	}
	for _, t := range tasks {
		idW = max(idW, len(t.ID)+pad+1)
		for i, col := range cols {
			limit := maxCellWidth
			if col.FieldName() == task.FieldTitle {
				limit = maxTitleWidth
			}
			widths[i] = max(widths[i], min(len(task.String(t.Get(col.FieldName())))+pad, limit))
		}
	}

	header := []string{padRight("ID", idW)}
	for i, col := range cols {
		header = append(header, padRight(strings.ToUpper(col.Title()), widths[i]))
	}
	fmt.Fprintln(w, headerStyle.Render(strings.TrimRight(strings.Join(header, " "), " ")))

	for _, t := range tasks {
		id := t.ID
		if opts.Selected.Has(t.ID) {
			id = selectedStyle.Render("*" + id)
		}
		row := []string{padRight(id, idW)}
		for i, col := range cols {
			row = append(row, padRight(Cell(col, t.Get(col.FieldName()), widths[i]-pad), widths[i]))
		}
		fmt.Fprintln(w, strings.TrimRight(strings.Join(row, " "), " "))
	}
}

// Cell renders one task value for display in a column at most width wide.
func Cell(col config.ColumnConfig, v any, width int) string {
	if task.IsEmpty(v) {
		return dimStyle.Render("--")
	}
	s := truncate(task.String(v), width)
	switch col.Type {
	case task.TypeStatus:
		return styledValue(s, statusStyles)
	case task.TypePhase:
		return styledValue(s, phaseStyles)
	case task.TypePerson, task.TypePeople:
		return personStyle.Render(s)
	case task.TypeMultiSelect:
		return listStyle.Render(s)
	case task.TypeBoolean:
		if b, ok := v.(bool); ok && b {
			return "yes"
		}
		return dimStyle.Render("no")
	}
	return s
}

// TaskDetail renders a single task with full detail.
func TaskDetail(w io.Writer, cfg *config.Config, t task.Task) {
	titleLine := fmt.Sprintf("Task #%s: %s", t.ID, t.Title)
	fmt.Fprintln(w, titleStyle.Render(titleLine))
	fmt.Fprintln(w, strings.Repeat("─", lipgloss.Width(titleLine)))

	for _, col := range cfg.Columns {
		if col.FieldName() == task.FieldTitle {
			continue
		}
		printField(w, col.Title(), Cell(col, t.Get(col.FieldName()), maxCellWidth*2)) //nolint:mnd // detail view is wider
	}
	printField(w, "Created", t.Created.Format("2006-01-02 15:04"))
	printField(w, "Updated", t.Updated.Format("2006-01-02 15:04"))

	if t.Body != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, t.Body)
	}
}

// OverviewTable renders a board summary as a formatted dashboard.
func OverviewTable(w io.Writer, s board.Overview) {
	fmt.Fprintln(w, titleStyle.Render(s.BoardName))
	fmt.Fprintf(w, "Total: %d tasks, %d unassigned\n\n", s.TotalTasks, s.Unassigned)

	const colW = 16
	header := fmt.Sprintf("%-*s %6s %8s", colW, "STATUS", "COUNT", "OVERDUE")
	fmt.Fprintln(w, headerStyle.Render(header))
	for _, ss := range s.Statuses {
		fmt.Fprintf(w, "%s %6d %8d\n",
			padRight(styledValue(ss.Status, statusStyles), colW), ss.Count, ss.Overdue)
	}

	if len(s.Phases) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%-*s %6s", colW, "PHASE", "COUNT")))
		for _, pc := range s.Phases {
			fmt.Fprintf(w, "%s %6d\n", padRight(styledValue(pc.Phase, phaseStyles), colW), pc.Count)
		}
	}
}

// GroupedTable renders a grouped board view with per-group status breakdowns.
func GroupedTable(w io.Writer, gs board.GroupedSummary) {
	if len(gs.Groups) == 0 {
		fmt.Fprintln(os.Stderr, "No groups found.")
		return
	}

	for i, g := range gs.Groups {
		if i > 0 {
			fmt.Fprintln(w)
		}
		title := fmt.Sprintf("%s (%d tasks)", g.Key, g.Total)
		fmt.Fprintln(w, titleStyle.Render(title))

		for _, ss := range g.Statuses {
			if ss.Count == 0 {
				continue
			}
			const groupStatusW = 16
			fmt.Fprintf(w, "  %s %d\n",
				padRight(styledValue(ss.Status, statusStyles), groupStatusW), ss.Count)
		}
	}
}

// Messagef prints a simple formatted message line.
func Messagef(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format+"\n", args...)
}

func printField(w io.Writer, label, value string) {
	fmt.Fprintf(w, "  %-14s %s\n", label+":", value)
}

// tableColumns resolves ids to columns, skipping unknown ids. The title
// column always comes first.
func tableColumns(cfg *config.Config, ids []string) []config.ColumnConfig {
	var cols []config.ColumnConfig
	if len(ids) == 0 {
		for _, col := range cfg.Columns {
			if col.Type != task.TypeLink && col.Type != task.TypeFile {
				cols = append(cols, col)
			}
		}
	} else {
		for _, id := range ids {
			if col, ok := cfg.Column(id); ok {
				cols = append(cols, col)
			}
		}
	}
	for i, col := range cols {
		if col.FieldName() == task.FieldTitle && i > 0 {
			cols = append([]config.ColumnConfig{col}, append(cols[:i:i], cols[i+1:]...)...)
			break
		}
	}
	return cols
}

// padRight pads s with spaces to the given visible width, accounting for ANSI
// escape codes that are invisible but consume bytes.
func padRight(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}

// truncate shortens s to width runes, marking the cut with "...".
func truncate(s string, width int) string {
	r := []rune(s)
	if width <= 3 || len(r) <= width { //nolint:mnd // room for the ellipsis
		return s
	}
	return string(r[:width-3]) + "..."
}

// styledValue renders s using a matching style from the map, or returns s unchanged.
func styledValue(s string, styles map[string]lipgloss.Style) string {
	if st, ok := styles[s]; ok {
		return st.Render(s)
	}
	return s
}
