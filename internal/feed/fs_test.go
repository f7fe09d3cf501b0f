package feed

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func waitEvent(t *testing.T, ch <-chan Event, typ EventType) Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-ch:
			if ev.Type == typ {
				return ev
			}
		case <-deadline:
			t.Fatalf("no %s event", typ)
		}
	}
}

func TestFSReportsTaskFileChanges(t *testing.T) {
	dir := t.TempDir()
	f := NewFS(dir, "b1", nil)

	got := make(chan Event, 16)
	unsub, err := f.Subscribe(context.Background(), TasksTable, "b1", func(ev Event) { got <- ev })
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer unsub()

	path := filepath.Join(dir, "012-mix.md")
	if err := os.WriteFile(path, []byte("---\nid: \"12\"\n---\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	ev := waitEvent(t, got, Insert)
	if ev.RecordID != "12" || ev.Scope != "b1" || ev.Table != TasksTable {
		t.Errorf("insert event = %+v", ev)
	}

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	waitEvent(t, got, Delete)
}

func TestFSIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	f := NewFS(dir, "b1", nil)

	got := make(chan Event, 16)
	unsub, err := f.Subscribe(context.Background(), TasksTable, "b1", func(ev Event) { got <- ev })
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer unsub()

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	select {
	case ev := <-got:
		t.Fatalf("unexpected event %+v", ev)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestFSOtherResourceIsSilent(t *testing.T) {
	f := NewFS(t.TempDir(), "b1", nil)
	unsub, err := f.Subscribe(context.Background(), "comments", "b1", func(Event) {
		t.Error("comments subscription received an event")
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	unsub()
}
