// Package task handles board task records, their typed field values,
// and the markdown files they are stored in.
package task

import (
	"maps"
	"slices"
	"time"
)

// FieldType is the declared type of a board column.
type FieldType string

// Field types recognized by the filter and sort engines.
const (
	TypeText        FieldType = "text"
	TypeDate        FieldType = "date"
	TypePerson      FieldType = "person"
	TypePeople      FieldType = "people"
	TypeStatus      FieldType = "status"
	TypePhase       FieldType = "phase"
	TypeNumber      FieldType = "number"
	TypeBoolean     FieldType = "boolean"
	TypeMultiSelect FieldType = "multi-select"
	TypeLink        FieldType = "link"
	TypeFile        FieldType = "file"
)

// FieldTypes lists every recognized field type.
func FieldTypes() []FieldType {
	return []FieldType{
		TypeText, TypeDate, TypePerson, TypePeople, TypeStatus, TypePhase,
		TypeNumber, TypeBoolean, TypeMultiSelect, TypeLink, TypeFile,
	}
}

// Valid reports whether ft is a recognized field type.
func (ft FieldType) Valid() bool {
	return slices.Contains(FieldTypes(), ft)
}

// Built-in field names that live on the Task struct rather than in Fields.
const (
	FieldID    = "id"
	FieldTitle = "title"
)

// User is a weak reference to a studio member. Tasks hold user ids on disk;
// the full record is resolved through a Directory.
type User struct {
	ID       string `yaml:"id" json:"id"`
	Name     string `yaml:"name" json:"name"`
	Initials string `yaml:"initials,omitempty" json:"initials,omitempty"`
	Color    string `yaml:"color,omitempty" json:"color,omitempty"`
}

// Task is a board record: a stable id plus a mapping from field name to a
// typed value (see Coerce for the Go type used per FieldType).
type Task struct {
	ID      string         `json:"id"`
	Title   string         `json:"title"`
	Fields  map[string]any `json:"fields,omitempty"`
	Created time.Time      `json:"created"`
	Updated time.Time      `json:"updated"`

	// Body is the markdown notes below the frontmatter.
	Body string `json:"body,omitempty"`

	// File is the path to the task file.
	File string `json:"file,omitempty"`
}

// Get returns the value stored under field, or nil when absent.
func (t Task) Get(field string) any {
	switch field {
	case FieldID:
		return t.ID
	case FieldTitle:
		if t.Title == "" {
			return nil
		}
		return t.Title
	}
	return t.Fields[field]
}

// Set stores v under field. Empty values delete the field so absence has a
// single representation.
func (t *Task) Set(field string, v any) {
	if field == FieldTitle {
		s, _ := v.(string)
		t.Title = s
		return
	}
	if IsEmpty(v) {
		delete(t.Fields, field)
		return
	}
	if t.Fields == nil {
		t.Fields = make(map[string]any)
	}
	t.Fields[field] = v
}

// Clone returns a copy whose Fields map can be modified independently.
func (t Task) Clone() Task {
	t.Fields = maps.Clone(t.Fields)
	return t
}

// Schema maps field names to their declared types.
type Schema map[string]FieldType

// Directory resolves user ids to full member records.
type Directory interface {
	Lookup(id string) (User, bool)
}

// Members is a Directory backed by a slice.
type Members []User

// Lookup implements Directory.
func (m Members) Lookup(id string) (User, bool) {
	for _, u := range m {
		if u.ID == id {
			return u, true
		}
	}
	return User{}, false
}

// Resolve returns the member for id, or a placeholder named after the id
// when the directory does not know it.
func Resolve(dir Directory, id string) User {
	if dir != nil {
		if u, ok := dir.Lookup(id); ok {
			return u
		}
	}
	return User{ID: id, Name: id}
}
