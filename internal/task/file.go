package task

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"
)

const fileMode = 0o600

// frontmatter is the YAML header of a task file. Field values are kept in
// their encoded form (ids for users, strings for dates).
type frontmatter struct {
	ID      string         `yaml:"id"`
	Title   string         `yaml:"title"`
	Created time.Time      `yaml:"created"`
	Updated time.Time      `yaml:"updated"`
	Fields  map[string]any `yaml:"fields,omitempty"`
}

// Read parses a task file. Fields declared in schema are coerced to their
// typed values; user ids are resolved through dir. Undeclared fields are kept
// as decoded.
func Read(path string, schema Schema, dir Directory) (*Task, error) {
	data, err := os.ReadFile(path) //nolint:gosec // task path from trusted source
	if err != nil {
		return nil, fmt.Errorf("reading task file: %w", err)
	}

	fm, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	var raw frontmatter
	if err := yaml.Unmarshal(fm, &raw); err != nil {
		return nil, fmt.Errorf("parsing frontmatter in %s: %w", path, err)
	}
	if raw.ID == "" {
		return nil, fmt.Errorf("parsing %s: missing id", path)
	}

	t := &Task{
		ID:      raw.ID,
		Title:   raw.Title,
		Created: raw.Created,
		Updated: raw.Updated,
		Body:    body,
		File:    path,
	}
	t.Fields = raw.Fields
	if err := t.Decode(schema, dir); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return t, nil
}

// Write serializes a task to a markdown file with YAML frontmatter.
func Write(path string, t *Task) error {
	raw := frontmatter{
		ID:      t.ID,
		Title:   t.Title,
		Created: t.Created,
		Updated: t.Updated,
	}
	raw.Fields = EncodeFields(t.Fields)

	fm, err := yaml.Marshal(raw)
	if err != nil {
		return fmt.Errorf("marshaling frontmatter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(fm)
	buf.WriteString("---\n")
	if t.Body != "" {
		buf.WriteString("\n")
		buf.WriteString(t.Body)
		if !strings.HasSuffix(t.Body, "\n") {
			buf.WriteString("\n")
		}
	}

	return os.WriteFile(path, buf.Bytes(), fileMode)
}

// splitFrontmatter splits a markdown file into YAML frontmatter and body.
// The file must start with "---\n". Returns frontmatter bytes and body string.
func splitFrontmatter(data []byte) ([]byte, string, error) {
	content := string(data)

	if !strings.HasPrefix(content, "---\n") {
		return nil, "", errors.New("file does not start with YAML frontmatter (---)")
	}

	rest := content[4:]
	idx := strings.Index(rest, "\n---\n")
	if idx < 0 {
		closingLen := len("---")
		if strings.HasSuffix(rest, "\n---") {
			idx = len(rest) - closingLen
		} else {
			return nil, "", errors.New("unclosed frontmatter (missing closing ---)")
		}
	}

	fm := rest[:idx]
	body := ""
	closingEnd := idx + len("\n---\n")
	if closingEnd < len(rest) {
		body = strings.TrimLeft(rest[closingEnd:], "\n")
	}

	return []byte(fm), body, nil
}
