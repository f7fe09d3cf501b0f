package board

import (
	"cmp"
	"slices"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/twiced-technology-gmbh/dubboard/internal/config"
	"github.com/twiced-technology-gmbh/dubboard/internal/date"
	"github.com/twiced-technology-gmbh/dubboard/internal/task"
)

const (
	fieldCreated = "created"
	fieldUpdated = "updated"
)

// Direction is a sort direction.
type Direction string

// Sort directions.
const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
	None Direction = "none"
)

// Valid reports whether d is a recognized direction.
func (d Direction) Valid() bool {
	return d == Asc || d == Desc || d == None
}

// SortConfig is the single active sort key and its direction.
type SortConfig struct {
	Key       string    `json:"key,omitempty"`
	Direction Direction `json:"direction,omitempty"`
}

// Active reports whether the config reorders anything.
func (c SortConfig) Active() bool {
	return c.Key != "" && (c.Direction == Asc || c.Direction == Desc)
}

// Toggle advances the sort for key: none -> asc -> desc -> none on the same
// key, and asc on a different key.
func (c SortConfig) Toggle(key string) SortConfig {
	if key != c.Key {
		return SortConfig{Key: key, Direction: Asc}
	}
	switch c.Direction {
	case Asc:
		return SortConfig{Key: key, Direction: Desc}
	case Desc:
		return SortConfig{Key: key, Direction: None}
	default:
		return SortConfig{Key: key, Direction: Asc}
	}
}

// Accessor returns the value a task sorts by under key.
type Accessor func(t task.Task, key string) any

// FieldAccessor reads task fields, plus the created and updated timestamps.
func FieldAccessor(t task.Task, key string) any {
	switch key {
	case fieldCreated:
		return nonZeroTime(t.Created)
	case fieldUpdated:
		return nonZeroTime(t.Updated)
	}
	return t.Get(key)
}

// ConfigAccessor sorts status and phase columns by their configured order
// instead of alphabetically. Values missing from the configured list sort
// after the known ones.
func ConfigAccessor(cfg *config.Config) Accessor {
	return func(t task.Task, key string) any {
		v := FieldAccessor(t, key)
		s, ok := v.(string)
		if !ok || s == "" {
			return v
		}
		col, ok := cfg.Column(key)
		if !ok {
			return v
		}
		switch col.Type {
		case task.TypeStatus:
			return enumIndex(cfg.StatusIndex(s), len(cfg.Statuses))
		case task.TypePhase:
			return enumIndex(cfg.PhaseIndex(s), len(cfg.Phases))
		}
		return v
	}
}

func enumIndex(idx, n int) int {
	if idx < 0 {
		return n
	}
	return idx
}

func nonZeroTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

// Sorter orders tasks with locale-aware, case-insensitive text collation.
type Sorter struct {
	tag language.Tag
}

// NewSorter returns a Sorter for the BCP 47 locale. Unparseable locales
// fall back to the root collation.
func NewSorter(locale string) *Sorter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Und
	}
	return &Sorter{tag: tag}
}

// Sort sorts with the root collation. See Sorter.Sort.
func Sort(records []task.Task, cfg SortConfig, accessor Accessor) []task.Task {
	return (&Sorter{tag: language.Und}).Sort(records, cfg, accessor)
}

// Sort returns a new slice ordered by cfg. The input is never modified.
// An inactive config returns the input order. Absent values sort last in
// both directions, and ties keep their input order.
func (s *Sorter) Sort(records []task.Task, cfg SortConfig, accessor Accessor) []task.Task {
	out := slices.Clone(records)
	if !cfg.Active() {
		return out
	}
	if accessor == nil {
		accessor = FieldAccessor
	}

	// Collators keep scratch buffers, so each call gets its own.
	col := collate.New(s.tag, collate.IgnoreCase)
	desc := cfg.Direction == Desc

	slices.SortStableFunc(out, func(a, b task.Task) int {
		va, vb := accessor(a, cfg.Key), accessor(b, cfg.Key)
		ea, eb := task.IsEmpty(va), task.IsEmpty(vb)
		switch {
		case ea && eb:
			return 0
		case ea:
			return 1
		case eb:
			return -1
		}
		c := compareValues(col, va, vb)
		if desc {
			return -c
		}
		return c
	})
	return out
}

// compareValues orders two present values of the same field. Values of
// differing types compare by their string form.
func compareValues(col *collate.Collator, a, b any) int {
	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return col.CompareString(x, y)
		}
	case float64:
		if y, ok := b.(float64); ok {
			return cmp.Compare(x, y)
		}
	case int:
		if y, ok := b.(int); ok {
			return cmp.Compare(x, y)
		}
	case bool:
		if y, ok := b.(bool); ok {
			return compareBool(x, y)
		}
	case date.Date:
		if y, ok := b.(date.Date); ok {
			return x.Compare(y)
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y)
		}
	case task.User:
		if y, ok := b.(task.User); ok {
			return col.CompareString(x.Name, y.Name)
		}
	}
	return col.CompareString(task.String(a), task.String(b))
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}
