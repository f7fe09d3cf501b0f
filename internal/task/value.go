package task

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/twiced-technology-gmbh/dubboard/internal/clierr"
	"github.com/twiced-technology-gmbh/dubboard/internal/date"
)

// IsEmpty reports whether v counts as absent: nil, the empty string, or an
// empty list. The same rule decides whether a filter value is kept, so it
// must stay in one place.
func IsEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case []string:
		return len(x) == 0
	case []User:
		return len(x) == 0
	case []any:
		return len(x) == 0
	case *date.Date:
		return x == nil
	}
	return false
}

// String converts a field value to the text form used for equality and
// substring matching.
func String(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case date.Date:
		return x.String()
	case *date.Date:
		if x == nil {
			return ""
		}
		return x.String()
	case time.Time:
		return date.Of(x).String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	case User:
		return x.Name
	case []User:
		names := make([]string, len(x))
		for i, u := range x {
			names[i] = u.Name
		}
		return strings.Join(names, ", ")
	case []string:
		return strings.Join(x, ",")
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = String(e)
		}
		return strings.Join(parts, ",")
	}
	return fmt.Sprint(v)
}

// Coerce converts a raw value (from YAML, JSON or a command-line string) to
// the Go type used for ft:
//
//	text, status, phase, link, file -> string
//	date                            -> date.Date
//	person                          -> User
//	people                          -> []User
//	number                          -> float64
//	boolean                         -> bool
//	multi-select                    -> []string
//
// Empty input yields nil.
func Coerce(ft FieldType, raw any, dir Directory) (any, error) {
	if IsEmpty(raw) {
		return nil, nil
	}
	switch ft {
	case TypeText, TypeStatus, TypePhase, TypeLink, TypeFile:
		return String(raw), nil
	case TypeDate:
		return coerceDate(raw)
	case TypePerson:
		if u, ok := raw.(User); ok {
			return u, nil
		}
		return Resolve(dir, strings.TrimSpace(String(raw))), nil
	case TypePeople:
		ids := listOf(raw)
		users := make([]User, 0, len(ids))
		for _, id := range ids {
			users = append(users, Resolve(dir, id))
		}
		if len(users) == 0 {
			return nil, nil
		}
		return users, nil
	case TypeNumber:
		return coerceNumber(raw)
	case TypeBoolean:
		return coerceBool(raw)
	case TypeMultiSelect:
		vals := listOf(raw)
		if len(vals) == 0 {
			return nil, nil
		}
		return vals, nil
	}
	return nil, clierr.Newf(clierr.InvalidValue, "unknown field type %q", ft)
}

// Encode converts a typed value to its on-disk form: users become ids,
// dates become YYYY-MM-DD strings.
func Encode(v any) any {
	switch x := v.(type) {
	case date.Date:
		return x.String()
	case User:
		return x.ID
	case []User:
		ids := make([]string, len(x))
		for i, u := range x {
			ids[i] = u.ID
		}
		return ids
	}
	return v
}

func coerceDate(raw any) (any, error) {
	switch x := raw.(type) {
	case date.Date:
		return x, nil
	case time.Time:
		return date.Of(x), nil
	}
	d, err := date.Parse(String(raw))
	if err != nil {
		return nil, clierr.New(clierr.InvalidDate, err.Error())
	}
	return d, nil
}

func coerceNumber(raw any) (any, error) {
	switch x := raw.(type) {
	case float64:
		return x, nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(String(raw)), 64)
	if err != nil {
		return nil, clierr.Newf(clierr.InvalidValue, "invalid number %q", String(raw))
	}
	return f, nil
}

func coerceBool(raw any) (any, error) {
	if b, ok := raw.(bool); ok {
		return b, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(String(raw)))
	if err != nil {
		return nil, clierr.Newf(clierr.InvalidValue, "invalid boolean %q", String(raw))
	}
	return b, nil
}

// listOf flattens a raw list value: a YAML/JSON sequence, a []string, or a
// comma-separated string. Users contribute their ids.
func listOf(raw any) []string {
	var items []string
	switch x := raw.(type) {
	case []string:
		items = x
	case []any:
		for _, e := range x {
			if u, ok := e.(User); ok {
				items = append(items, u.ID)
				continue
			}
			items = append(items, String(e))
		}
	case []User:
		for _, u := range x {
			items = append(items, u.ID)
		}
	case User:
		items = []string{x.ID}
	default:
		items = strings.Split(String(raw), ",")
	}
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// EncodeFields returns fields in their on-disk form, or nil when empty.
func EncodeFields(fields map[string]any) map[string]any {
	if len(fields) == 0 {
		return nil
	}
	out := make(map[string]any, len(fields))
	for name, v := range fields {
		out[name] = Encode(v)
	}
	return out
}

// Encoded returns a copy of t whose field values are in their on-disk form,
// suitable for JSON or YAML round trips. Decode reverses it.
func (t Task) Encoded() Task {
	t.Fields = EncodeFields(t.Fields)
	return t
}

// Decode coerces t's fields to the typed values declared in schema,
// resolving user ids through dir. Undeclared fields are kept as they are.
func (t *Task) Decode(schema Schema, dir Directory) error {
	raw := t.Fields
	t.Fields = nil
	for name, v := range raw {
		ft, declared := schema[name]
		if !declared {
			t.Set(name, v)
			continue
		}
		typed, err := Coerce(ft, v, dir)
		if err != nil {
			return fmt.Errorf("field %q: %w", name, err)
		}
		t.Set(name, typed)
	}
	return nil
}
