package board

import (
	"strconv"
	"strings"

	"github.com/twiced-technology-gmbh/dubboard/internal/clierr"
	"github.com/twiced-technology-gmbh/dubboard/internal/config"
	"github.com/twiced-technology-gmbh/dubboard/internal/date"
	"github.com/twiced-technology-gmbh/dubboard/internal/task"
)

// ParseFilter parses the command-line form "column:type[:value]" into a
// ColumnFilter. The value is coerced using the column's declared type:
//
//	status:equals:done
//	assignee:includes:u1,u2
//	dueDate:dateRange:2024-01-01..2024-03-31
//	urgent:boolean:true
//	phase:notEmpty
func ParseFilter(raw string, cfg *config.Config) (ColumnFilter, error) {
	parts := strings.SplitN(raw, ":", 3) //nolint:mnd // column, type, value
	if len(parts) < 2 {
		return ColumnFilter{}, clierr.Newf(clierr.InvalidFilter,
			"invalid filter %q: expected column:type[:value]", raw)
	}
	colID, ft := strings.TrimSpace(parts[0]), FilterType(strings.TrimSpace(parts[1]))
	var value string
	if len(parts) == 3 { //nolint:mnd // value present
		value = strings.TrimSpace(parts[2])
	}

	col, ok := cfg.Column(colID)
	if !ok {
		return ColumnFilter{}, clierr.Newf(clierr.UnknownColumn, "unknown column %q", colID).
			WithDetails(map[string]any{"column": colID, "columns": cfg.ColumnIDs()})
	}
	if !ft.Valid() {
		return ColumnFilter{}, clierr.Newf(clierr.InvalidFilter, "unknown filter type %q", ft).
			WithDetails(map[string]any{"types": FilterTypes()})
	}

	f := ColumnFilter{ColumnID: col.ID, Field: col.FieldName(), Type: ft}
	if ft.valueless() {
		return f, nil
	}
	if value == "" {
		return ColumnFilter{}, clierr.Newf(clierr.InvalidFilter, "filter %q requires a value", raw)
	}

	v, err := parseFilterValue(ft, col, value, cfg.Directory())
	if err != nil {
		return ColumnFilter{}, err
	}
	f.Value = v
	return f, nil
}

func parseFilterValue(ft FilterType, col config.ColumnConfig, value string, dir task.Directory) (any, error) {
	switch ft {
	case FilterBoolean:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, clierr.Newf(clierr.InvalidFilter, "invalid boolean %q", value)
		}
		return b, nil
	case FilterDateRange:
		return parseDateRange(value)
	case FilterIncludes:
		items := splitList(value)
		if len(items) == 1 {
			return items[0], nil
		}
		return items, nil
	case FilterContains:
		return value, nil
	default:
		return task.Coerce(col.Type, value, dir)
	}
}

// parseDateRange accepts "FROM..TO" with optional ends, or a single date
// meaning that day only.
func parseDateRange(value string) (DateRange, error) {
	if !strings.Contains(value, "..") {
		d, err := date.Parse(value)
		if err != nil {
			return DateRange{}, clierr.New(clierr.InvalidDate, err.Error())
		}
		return DateRange{From: &d, To: &d}, nil
	}
	from, to, err := date.ParseRange(value)
	if err != nil {
		return DateRange{}, clierr.New(clierr.InvalidDate, err.Error())
	}
	return DateRange{From: from, To: to}, nil
}

// ParseSort parses "key[:asc|desc|none]". The direction defaults to asc.
func ParseSort(raw string, cfg *config.Config) (SortConfig, error) {
	key, dir, _ := strings.Cut(raw, ":")
	key = strings.TrimSpace(key)
	if key == "" {
		return SortConfig{}, nil
	}
	if !isSortKey(key, cfg) {
		return SortConfig{}, clierr.Newf(clierr.InvalidSort, "unknown sort key %q", key).
			WithDetails(map[string]any{"columns": cfg.ColumnIDs()})
	}
	if col, ok := cfg.Column(key); ok {
		key = col.FieldName()
	}
	d := Direction(strings.TrimSpace(dir))
	if d == "" {
		d = Asc
	}
	if !d.Valid() {
		return SortConfig{}, clierr.Newf(clierr.InvalidSort, "invalid sort direction %q (use asc, desc or none)", dir)
	}
	return SortConfig{Key: key, Direction: d}, nil
}

func isSortKey(key string, cfg *config.Config) bool {
	switch key {
	case task.FieldID, fieldCreated, fieldUpdated:
		return true
	}
	_, ok := cfg.Column(key)
	return ok
}

// ParseIDs splits a comma-separated ID string into deduplicated IDs,
// keeping their order.
func ParseIDs(arg string) ([]string, error) {
	parts := splitList(arg)
	seen := make(map[string]bool, len(parts))
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.ContainsAny(p, " /\\") {
			return nil, clierr.Newf(clierr.InvalidTaskID, "invalid task ID %q", p)
		}
		if !seen[p] {
			ids = append(ids, p)
			seen[p] = true
		}
	}
	if len(ids) == 0 {
		return nil, clierr.New(clierr.InvalidTaskID, "no valid task IDs provided")
	}
	return ids, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
