package board

import (
	"time"

	"github.com/twiced-technology-gmbh/dubboard/internal/config"
	"github.com/twiced-technology-gmbh/dubboard/internal/date"
	"github.com/twiced-technology-gmbh/dubboard/internal/task"
)

// StatusSummary holds metrics for a single status column.
type StatusSummary struct {
	Status  string `json:"status"`
	Count   int    `json:"count"`
	Overdue int    `json:"overdue"`
}

// PhaseCount holds a count for a production phase.
type PhaseCount struct {
	Phase string `json:"phase"`
	Count int    `json:"count"`
}

// Overview is the aggregate board overview.
type Overview struct {
	BoardID    string          `json:"board_id"`
	BoardName  string          `json:"board_name"`
	TotalTasks int             `json:"total_tasks"`
	Unassigned int             `json:"unassigned"`
	Statuses   []StatusSummary `json:"statuses"`
	Phases     []PhaseCount    `json:"phases,omitempty"`
}

// Summary computes a board summary from all tasks. The first status, phase,
// person and date columns drive the status counts, phase counts, unassigned
// count and overdue count. A task is overdue when its date is before today
// and its status is not the last configured one.
func Summary(cfg *config.Config, tasks []task.Task, now time.Time) Overview {
	statusField := fieldOfType(cfg, task.TypeStatus)
	phaseField := fieldOfType(cfg, task.TypePhase)
	personField := fieldOfType(cfg, task.TypePerson)
	dueField := fieldOfType(cfg, task.TypeDate)
	today := date.Of(now)

	statusMap := make(map[string]*StatusSummary, len(cfg.Statuses))
	for _, s := range cfg.Statuses {
		statusMap[s] = &StatusSummary{Status: s}
	}
	phaseMap := make(map[string]int, len(cfg.Phases))

	unassigned := 0
	for _, t := range tasks {
		status := task.String(t.Get(statusField))
		if ss, ok := statusMap[status]; ok {
			ss.Count++
			if due, ok := asDate(t.Get(dueField)); ok && due.Compare(today) < 0 && !isFinalStatus(cfg, status) {
				ss.Overdue++
			}
		}
		if phaseField != "" {
			phaseMap[task.String(t.Get(phaseField))]++
		}
		if personField != "" && task.IsEmpty(t.Get(personField)) {
			unassigned++
		}
	}

	statuses := make([]StatusSummary, 0, len(cfg.Statuses))
	for _, s := range cfg.Statuses {
		statuses = append(statuses, *statusMap[s])
	}

	var phases []PhaseCount
	if phaseField != "" {
		phases = make([]PhaseCount, 0, len(cfg.Phases))
		for _, p := range cfg.Phases {
			phases = append(phases, PhaseCount{Phase: p, Count: phaseMap[p]})
		}
	}

	return Overview{
		BoardID:    cfg.BoardID(),
		BoardName:  cfg.Board.Name,
		TotalTasks: len(tasks),
		Unassigned: unassigned,
		Statuses:   statuses,
		Phases:     phases,
	}
}

func fieldOfType(cfg *config.Config, ft task.FieldType) string {
	col, ok := cfg.ColumnOfType(ft)
	if !ok {
		return ""
	}
	return col.FieldName()
}

func isFinalStatus(cfg *config.Config, status string) bool {
	return len(cfg.Statuses) > 0 && cfg.Statuses[len(cfg.Statuses)-1] == status
}

// CountByStatus returns the number of tasks in each status.
func CountByStatus(cfg *config.Config, tasks []task.Task) map[string]int {
	field := fieldOfType(cfg, task.TypeStatus)
	counts := make(map[string]int)
	for _, t := range tasks {
		counts[task.String(t.Get(field))]++
	}
	return counts
}
