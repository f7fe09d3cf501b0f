package output

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/twiced-technology-gmbh/dubboard/internal/board"
	"github.com/twiced-technology-gmbh/dubboard/internal/config"
	"github.com/twiced-technology-gmbh/dubboard/internal/task"
)

// TaskCompact renders a list of tasks in one-line-per-record compact format.
func TaskCompact(w io.Writer, cfg *config.Config, tasks []task.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(os.Stderr, "No tasks found.")
		return
	}

	for _, t := range tasks {
		fmt.Fprintln(w, formatTaskLine(cfg, t))
	}
}

// TaskDetailCompact renders a single task with every set field in compact
// format.
func TaskDetailCompact(w io.Writer, cfg *config.Config, t task.Task) {
	fmt.Fprintln(w, formatTaskLine(cfg, t))

	var fields []string
	for _, col := range cfg.Columns {
		v := t.Get(col.FieldName())
		if col.FieldName() == task.FieldTitle || task.IsEmpty(v) {
			continue
		}
		fields = append(fields, col.ID+":"+task.String(v))
	}
	if len(fields) > 0 {
		fmt.Fprintln(w, "  "+strings.Join(fields, " "))
	}
	fmt.Fprintln(w, "  created:"+t.Created.Format("2006-01-02")+
		" updated:"+t.Updated.Format("2006-01-02"))

	if t.Body != "" {
		for _, bodyLine := range strings.Split(t.Body, "\n") {
			fmt.Fprintln(w, "  "+bodyLine)
		}
	}
}

// OverviewCompact renders a board summary in compact format.
func OverviewCompact(w io.Writer, s board.Overview) {
	fmt.Fprintf(w, "%s (%d tasks, %d unassigned)\n", s.BoardName, s.TotalTasks, s.Unassigned)

	for _, ss := range s.Statuses {
		line := "  " + ss.Status + ": " + strconv.Itoa(ss.Count)
		if ss.Overdue > 0 {
			line += " (" + strconv.Itoa(ss.Overdue) + " overdue)"
		}
		fmt.Fprintln(w, line)
	}

	if len(s.Phases) > 0 {
		parts := make([]string, 0, len(s.Phases))
		for _, pc := range s.Phases {
			parts = append(parts, pc.Phase+"="+strconv.Itoa(pc.Count))
		}
		fmt.Fprintln(w, "Phase: "+strings.Join(parts, " "))
	}
}

// formatTaskLine builds the one-line representation of a task:
//
//	#12 [working/mixing] Episode 3 mix @Ana Lima due:2024-04-01
func formatTaskLine(cfg *config.Config, t task.Task) string {
	var tags []string
	for _, ft := range []task.FieldType{task.TypeStatus, task.TypePhase} {
		if s := valueOfType(cfg, t, ft); s != "" {
			tags = append(tags, s)
		}
	}
	line := "#" + t.ID
	if len(tags) > 0 {
		line += " [" + strings.Join(tags, "/") + "]"
	}
	line += " " + t.Title

	if s := valueOfType(cfg, t, task.TypePerson); s != "" {
		line += " @" + s
	}
	if s := valueOfType(cfg, t, task.TypeMultiSelect); s != "" {
		line += " (" + s + ")"
	}
	if s := valueOfType(cfg, t, task.TypeDate); s != "" {
		line += " due:" + s
	}
	return line
}

// valueOfType returns the string form of t's value in the first column of
// type ft.
func valueOfType(cfg *config.Config, t task.Task, ft task.FieldType) string {
	col, ok := cfg.ColumnOfType(ft)
	if !ok {
		return ""
	}
	return task.String(t.Get(col.FieldName()))
}
