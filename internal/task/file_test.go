package task

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/twiced-technology-gmbh/dubboard/internal/date"
)

func TestWriteReadResolvesTypedFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, GenerateFilename("7", GenerateSlug("Episode 7 dub")))

	created := time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)
	orig := &Task{
		ID:      "7",
		Title:   "Episode 7 dub",
		Created: created,
		Updated: created,
		Body:    "Retake line 12.",
	}
	orig.Set("assignee", testMembers[0])
	orig.Set("reviewers", []User{testMembers[1]})
	orig.Set("dueDate", date.New(2024, time.May, 1))
	orig.Set("services", []string{"dub", "mix"})
	orig.Set("minutes", 42.0)
	orig.Set("urgent", true)

	if err := Write(path, orig); err != nil {
		t.Fatalf("write: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read raw: %v", err)
	}
	if got := string(raw); !strings.Contains(got, "assignee: u1") {
		t.Fatalf("expected assignee stored as id, got:\n%s", got)
	}

	schema := Schema{
		"assignee":  TypePerson,
		"reviewers": TypePeople,
		"dueDate":   TypeDate,
		"services":  TypeMultiSelect,
		"minutes":   TypeNumber,
		"urgent":    TypeBoolean,
	}
	got, err := Read(path, schema, testMembers)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Get("assignee") != testMembers[0] {
		t.Errorf("assignee: got %#v", got.Get("assignee"))
	}
	if got.Get("dueDate") != date.New(2024, time.May, 1) {
		t.Errorf("dueDate: got %#v", got.Get("dueDate"))
	}
	if got.Get("minutes") != 42.0 {
		t.Errorf("minutes: got %#v", got.Get("minutes"))
	}
	if got.Get("urgent") != true {
		t.Errorf("urgent: got %#v", got.Get("urgent"))
	}
	if got.Body != "Retake line 12.\n" {
		t.Errorf("body: got %q", got.Body)
	}
}

func TestReadAllLenientSkipsMalformed(t *testing.T) {
	dir := t.TempDir()
	good := &Task{ID: "1", Title: "ok"}
	if err := Write(filepath.Join(dir, GenerateFilename("1", "ok")), good); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "002-bad.md"), []byte("no frontmatter"), 0o600); err != nil {
		t.Fatalf("write bad: %v", err)
	}

	tasks, warnings, err := ReadAllLenient(dir, nil, nil)
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != "1" {
		t.Fatalf("unexpected tasks %+v", tasks)
	}
	if len(warnings) != 1 || warnings[0].File != "002-bad.md" {
		t.Fatalf("unexpected warnings %+v", warnings)
	}
}

func TestFindByID(t *testing.T) {
	dir := t.TempDir()
	if err := Write(filepath.Join(dir, GenerateFilename("12", "mix")), &Task{ID: "12"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	path, err := FindByID(dir, "12")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if filepath.Base(path) != "012-mix.md" {
		t.Fatalf("unexpected path %s", path)
	}
	if _, err := FindByID(dir, "1"); err == nil {
		t.Fatal("expected not found for id 1")
	}
}
