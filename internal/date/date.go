// Package date provides the calendar Date value carried by date-typed task fields.
package date

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"
)

const format = "2006-01-02"

// rangeSep separates the two ends of a textual date range ("2024-01-01..2024-02-01").
const rangeSep = ".."

// Date represents a calendar date without time or timezone.
type Date struct {
	time.Time
}

// New creates a Date from year, month, day.
func New(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// Of truncates t to its calendar date in t's own location.
func Of(t time.Time) Date {
	return New(t.Year(), t.Month(), t.Day())
}

// Today returns today's date.
func Today() Date {
	return Of(time.Now())
}

// Parse parses a YYYY-MM-DD string into a Date. RFC 3339 timestamps are
// accepted too and truncated to their date, since backends often hand out
// full timestamps for date columns.
func Parse(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(format, s); err == nil {
		return Date{t}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return Of(t), nil
	}
	return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
}

// ParseRange parses "FROM..TO" where either end may be blank for an open range.
func ParseRange(s string) (from, to *Date, err error) {
	lo, hi, ok := strings.Cut(s, rangeSep)
	if !ok {
		return nil, nil, fmt.Errorf("invalid date range %q: expected FROM..TO", s)
	}
	if lo = strings.TrimSpace(lo); lo != "" {
		d, err := Parse(lo)
		if err != nil {
			return nil, nil, err
		}
		from = &d
	}
	if hi = strings.TrimSpace(hi); hi != "" {
		d, err := Parse(hi)
		if err != nil {
			return nil, nil, err
		}
		to = &d
	}
	return from, to, nil
}

// String returns the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(format)
}

// Compare returns -1, 0 or 1 as d is before, equal to or after other.
func (d Date) Compare(other Date) int {
	return d.Time.Compare(other.Time)
}

// DaysUntil returns the number of calendar days from d to other, negative
// when other is earlier.
func (d Date) DaysUntil(other Date) int {
	const day = 24 * time.Hour
	return int(other.Sub(d.Time) / day)
}

// Within reports whether d lies in the inclusive range [from, to].
// A nil bound is open.
func (d Date) Within(from, to *Date) bool {
	if from != nil && d.Compare(*from) < 0 {
		return false
	}
	if to != nil && d.Compare(*to) > 0 {
		return false
	}
	return true
}

// MarshalYAML implements yaml.Marshaler.
func (d Date) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// UnmarshalYAML implements yaml.v3 Unmarshaler.
func (d *Date) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := Parse(value.Value)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
