package board

import (
	"math"
	"sort"

	"github.com/twiced-technology-gmbh/dubboard/internal/config"
	"github.com/twiced-technology-gmbh/dubboard/internal/task"
)

const noValueGroup = "(none)"

// GroupedSummary holds tasks grouped by a column.
type GroupedSummary struct {
	Column string         `json:"column"`
	Groups []GroupSummary `json:"groups"`
}

// GroupSummary is one group within a grouped view.
type GroupSummary struct {
	Key      string          `json:"key"`
	Statuses []StatusSummary `json:"statuses"`
	Total    int             `json:"total"`
}

// GroupBy groups tasks by the values of a column and returns status counts
// per group. List columns (people, multi-select) put a task in every group
// it names; tasks without a value land in "(none)".
func GroupBy(tasks []task.Task, col config.ColumnConfig, cfg *config.Config) GroupedSummary {
	groups := make(map[string][]task.Task)

	for _, t := range tasks {
		for _, key := range groupKeys(t, col.FieldName()) {
			groups[key] = append(groups[key], t)
		}
	}

	sortedKeys := sortGroupKeys(groups, col, cfg)

	result := GroupedSummary{
		Column: col.ID,
		Groups: make([]GroupSummary, 0, len(sortedKeys)),
	}
	for _, key := range sortedKeys {
		groupTasks := groups[key]
		result.Groups = append(result.Groups, GroupSummary{
			Key:      key,
			Statuses: groupStatusSummary(groupTasks, cfg),
			Total:    len(groupTasks),
		})
	}
	return result
}

func groupKeys(t task.Task, field string) []string {
	v := t.Get(field)
	if task.IsEmpty(v) {
		return []string{noValueGroup}
	}
	switch x := v.(type) {
	case task.User:
		return []string{x.Name}
	case []task.User:
		names := make([]string, len(x))
		for i, u := range x {
			names[i] = u.Name
		}
		return names
	case []string:
		return x
	}
	return []string{task.String(v)}
}

func sortGroupKeys(groups map[string][]task.Task, col config.ColumnConfig, cfg *config.Config) []string {
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	switch col.Type {
	case task.TypeStatus:
		sort.SliceStable(keys, func(i, j int) bool {
			return groupIndex(cfg.StatusIndex(keys[i])) < groupIndex(cfg.StatusIndex(keys[j]))
		})
	case task.TypePhase:
		sort.SliceStable(keys, func(i, j int) bool {
			return groupIndex(cfg.PhaseIndex(keys[i])) < groupIndex(cfg.PhaseIndex(keys[j]))
		})
	}
	return keys
}

// groupIndex puts unknown values (including "(none)") after known ones.
func groupIndex(idx int) int {
	if idx < 0 {
		return math.MaxInt
	}
	return idx
}

func groupStatusSummary(tasks []task.Task, cfg *config.Config) []StatusSummary {
	counts := CountByStatus(cfg, tasks)
	statuses := make([]StatusSummary, 0, len(cfg.Statuses))
	for _, s := range cfg.Statuses {
		statuses = append(statuses, StatusSummary{Status: s, Count: counts[s]})
	}
	return statuses
}
