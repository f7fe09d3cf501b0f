package cmd

import (
	"strings"

	"github.com/spf13/pflag"

	"github.com/twiced-technology-gmbh/dubboard/internal/clierr"
)

// fieldValue is one --set assignment.
type fieldValue struct {
	Field string
	Value string
}

// setFlag collects repeatable "field=value" assignments in order. An empty
// value clears the field.
type setFlag []fieldValue

var _ pflag.Value = (*setFlag)(nil)

func (s *setFlag) String() string {
	parts := make([]string, len(*s))
	for i, fv := range *s {
		parts[i] = fv.Field + "=" + fv.Value
	}
	return strings.Join(parts, ",")
}

func (s *setFlag) Set(raw string) error {
	field, value, ok := strings.Cut(raw, "=")
	field = strings.TrimSpace(field)
	if !ok || field == "" {
		return clierr.Newf(clierr.InvalidInput, "invalid --set %q: expected field=value", raw)
	}
	*s = append(*s, fieldValue{Field: field, Value: strings.TrimSpace(value)})
	return nil
}

func (s *setFlag) Type() string { return "field=value" }

// fields returns the assignments as a map; later assignments win.
func (s setFlag) fields() map[string]any {
	m := make(map[string]any, len(s))
	for _, fv := range s {
		m[fv.Field] = fv.Value
	}
	return m
}

// filterFlag collects repeatable "column:type[:value]" filters. They are
// parsed against the board's columns once the config is loaded.
type filterFlag []string

var _ pflag.Value = (*filterFlag)(nil)

func (f *filterFlag) String() string { return strings.Join(*f, " ") }

func (f *filterFlag) Set(raw string) error {
	if !strings.Contains(raw, ":") {
		return clierr.Newf(clierr.InvalidFilter, "invalid --filter %q: expected column:type[:value]", raw)
	}
	*f = append(*f, raw)
	return nil
}

func (f *filterFlag) Type() string { return "column:type[:value]" }
