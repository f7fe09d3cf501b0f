// Package output renders tasks, summaries and errors for the terminal or
// for scripts.
package output

import (
	"os"
	"strings"
)

// EnvFormat is consulted when no format flag is given.
const EnvFormat = "DUBBOARD_OUTPUT"

// Format is an output rendering.
type Format int

const (
	FormatTable Format = iota
	FormatJSON
	FormatCompact
)

var formatNames = map[string]Format{
	"table":   FormatTable,
	"json":    FormatJSON,
	"compact": FormatCompact,
	"oneline": FormatCompact,
}

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatCompact:
		return "compact"
	}
	return "table"
}

// ParseFormat looks up a format by name, case-insensitively.
func ParseFormat(name string) (Format, bool) {
	f, ok := formatNames[strings.ToLower(strings.TrimSpace(name))]
	return f, ok
}

// Detect picks the format from flags (json, then compact, then table),
// then EnvFormat, defaulting to table. Unknown env values are ignored.
func Detect(jsonFlag, tableFlag, compactFlag bool) Format {
	switch {
	case jsonFlag:
		return FormatJSON
	case compactFlag:
		return FormatCompact
	case tableFlag:
		return FormatTable
	}
	if f, ok := ParseFormat(os.Getenv(EnvFormat)); ok {
		return f
	}
	return FormatTable
}
