// Package board provides the view-state engines that operate on a board's
// task collection: filtering, sorting, selection and summaries.
package board

import (
	"slices"
	"strings"

	"github.com/twiced-technology-gmbh/dubboard/internal/date"
	"github.com/twiced-technology-gmbh/dubboard/internal/task"
)

// FilterType selects how a ColumnFilter matches a task value.
type FilterType string

// Filter types.
const (
	FilterEquals    FilterType = "equals"
	FilterContains  FilterType = "contains"
	FilterIncludes  FilterType = "includes"
	FilterBoolean   FilterType = "boolean"
	FilterDateRange FilterType = "dateRange"
	FilterEmpty     FilterType = "empty"
	FilterNotEmpty  FilterType = "notEmpty"
)

// FilterTypes lists every recognized filter type.
func FilterTypes() []FilterType {
	return []FilterType{
		FilterEquals, FilterContains, FilterIncludes, FilterBoolean,
		FilterDateRange, FilterEmpty, FilterNotEmpty,
	}
}

// Valid reports whether ft is a recognized filter type.
func (ft FilterType) Valid() bool {
	return slices.Contains(FilterTypes(), ft)
}

// valueless reports whether the filter type ignores its value.
func (ft FilterType) valueless() bool {
	return ft == FilterEmpty || ft == FilterNotEmpty
}

// DateRange is the value of a dateRange filter. Both bounds are inclusive;
// a nil bound is open.
type DateRange struct {
	From *date.Date `json:"from,omitempty"`
	To   *date.Date `json:"to,omitempty"`
}

// ColumnFilter restricts a board to tasks whose Field value matches Value
// under Type. Field defaults to ColumnID.
type ColumnFilter struct {
	ColumnID string     `json:"columnId"`
	Field    string     `json:"field,omitempty"`
	Value    any        `json:"value,omitempty"`
	Type     FilterType `json:"type"`
}

func (f ColumnFilter) field() string {
	if f.Field == "" {
		return f.ColumnID
	}
	return f.Field
}

// Filters holds at most one ColumnFilter per column, in the order columns
// were first filtered. The zero value is an empty filter set.
type Filters struct {
	order    []string
	byColumn map[string]ColumnFilter
}

// NewFilters returns a filter set holding the given filters, applied
// through Set.
func NewFilters(filters ...ColumnFilter) *Filters {
	fs := &Filters{}
	for _, f := range filters {
		fs.Set(f)
	}
	return fs
}

// Set stores f, replacing any filter on the same column. A filter whose
// value is empty is not stored; setting one removes the column's filter.
// empty and notEmpty filters ignore their value and are always stored.
func (fs *Filters) Set(f ColumnFilter) {
	if !f.Type.valueless() && task.IsEmpty(f.Value) {
		fs.Remove(f.ColumnID)
		return
	}
	if fs.byColumn == nil {
		fs.byColumn = make(map[string]ColumnFilter)
	}
	if _, ok := fs.byColumn[f.ColumnID]; !ok {
		fs.order = append(fs.order, f.ColumnID)
	}
	fs.byColumn[f.ColumnID] = f
}

// Remove drops the filter on columnID, if any.
func (fs *Filters) Remove(columnID string) {
	if _, ok := fs.byColumn[columnID]; !ok {
		return
	}
	delete(fs.byColumn, columnID)
	fs.order = slices.DeleteFunc(fs.order, func(id string) bool { return id == columnID })
}

// Clear removes every filter.
func (fs *Filters) Clear() {
	fs.order = nil
	fs.byColumn = nil
}

// Get returns the filter on columnID.
func (fs *Filters) Get(columnID string) (ColumnFilter, bool) {
	if fs == nil {
		return ColumnFilter{}, false
	}
	f, ok := fs.byColumn[columnID]
	return f, ok
}

// Len returns the number of active filters.
func (fs *Filters) Len() int {
	if fs == nil {
		return 0
	}
	return len(fs.order)
}

// List returns the active filters in insertion order.
func (fs *Filters) List() []ColumnFilter {
	if fs == nil {
		return nil
	}
	list := make([]ColumnFilter, 0, len(fs.order))
	for _, id := range fs.order {
		list = append(list, fs.byColumn[id])
	}
	return list
}

// Apply returns the tasks that pass every filter (AND logic), preserving
// their order. The input slice is not modified.
func Apply(records []task.Task, filters *Filters) []task.Task {
	active := filters.List()
	result := make([]task.Task, 0, len(records))
	for _, t := range records {
		if matchesAll(t, active) {
			result = append(result, t)
		}
	}
	return result
}

func matchesAll(t task.Task, filters []ColumnFilter) bool {
	for _, f := range filters {
		if !Matches(t, f) {
			return false
		}
	}
	return true
}

// Matches reports whether t passes f. Unrecognized filter types pass.
func Matches(t task.Task, f ColumnFilter) bool {
	v := t.Get(f.field())
	switch f.Type {
	case FilterEquals:
		return matchEquals(v, f.Value)
	case FilterContains:
		return matchContains(v, f.Value)
	case FilterIncludes:
		return matchIncludes(v, f.Value)
	case FilterBoolean:
		return matchBoolean(v, f.Value)
	case FilterDateRange:
		return matchDateRange(v, f.Value)
	case FilterEmpty:
		return task.IsEmpty(v)
	case FilterNotEmpty:
		return !task.IsEmpty(v)
	default:
		return true
	}
}

func matchEquals(v, want any) bool {
	if task.IsEmpty(v) {
		return task.IsEmpty(want)
	}
	if u, ok := v.(task.User); ok {
		return u.ID == keyOf(want)
	}
	return task.String(v) == task.String(want)
}

func matchContains(v, want any) bool {
	if task.IsEmpty(v) {
		return false
	}
	return strings.Contains(strings.ToLower(task.String(v)), strings.ToLower(task.String(want)))
}

// matchIncludes handles list and scalar filter values alike: the task value
// is reduced to its keys (user ids, list items, or its string form) and the
// filter matches when any filter key is among them.
func matchIncludes(v, want any) bool {
	if task.IsEmpty(v) {
		return false
	}
	have := keysOf(v)
	wants, isList := listKeys(want)
	if !isList {
		return slices.Contains(have, keyOf(want))
	}
	for _, w := range wants {
		if slices.Contains(have, w) {
			return true
		}
	}
	return false
}

func matchBoolean(v, want any) bool {
	b, ok := v.(bool)
	if !ok {
		return false
	}
	wb, ok := want.(bool)
	return ok && b == wb
}

func matchDateRange(v, want any) bool {
	var rng DateRange
	switch r := want.(type) {
	case DateRange:
		rng = r
	case *DateRange:
		if r == nil {
			return true
		}
		rng = *r
	default:
		return true
	}
	d, ok := asDate(v)
	if !ok {
		return false
	}
	return d.Within(rng.From, rng.To)
}

func asDate(v any) (date.Date, bool) {
	switch d := v.(type) {
	case date.Date:
		return d, true
	case *date.Date:
		if d == nil {
			return date.Date{}, false
		}
		return *d, true
	}
	return date.Date{}, false
}

// keyOf is the identity used for membership: users by id, everything else
// by string form.
func keyOf(v any) string {
	if u, ok := v.(task.User); ok {
		return u.ID
	}
	return task.String(v)
}

// keysOf returns the membership keys of a task value.
func keysOf(v any) []string {
	if keys, ok := listKeys(v); ok {
		return keys
	}
	return []string{keyOf(v)}
}

// listKeys returns the keys of a list value, and false for scalars.
func listKeys(v any) ([]string, bool) {
	switch x := v.(type) {
	case []string:
		return x, true
	case []task.User:
		keys := make([]string, len(x))
		for i, u := range x {
			keys[i] = u.ID
		}
		return keys, true
	case []any:
		keys := make([]string, len(x))
		for i, e := range x {
			keys[i] = keyOf(e)
		}
		return keys, true
	}
	return nil, false
}
