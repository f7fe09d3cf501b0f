package feed

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestHubDeliversByTopic(t *testing.T) {
	h := NewHub()
	ctx := context.Background()

	var got []Event
	unsub, err := h.Subscribe(ctx, "tasks", "b1", func(ev Event) { got = append(got, ev) })
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	events := []Event{
		{Type: Update, Table: "tasks", Scope: "b1", RecordID: "1"},
		{Type: Update, Table: "tasks", Scope: "b2", RecordID: "2"},
		{Type: Insert, Table: "comments", Scope: "b1", RecordID: "3"},
		{Type: Delete, Table: "tasks", Scope: "b1", RecordID: "4"},
	}
	for _, ev := range events {
		if err := h.Publish(ctx, ev); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}

	want := []Event{events[0], events[3]}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("delivered events (-want +got):\n%s", diff)
	}

	unsub()
	unsub()
	if n := h.Subscribers("tasks", "b1"); n != 0 {
		t.Errorf("Subscribers after unsubscribe = %d", n)
	}
	_ = h.Publish(ctx, events[0])
	if len(got) != 2 {
		t.Errorf("event delivered after unsubscribe")
	}
}

func TestHubPublishCanceled(t *testing.T) {
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := h.Publish(ctx, Event{Table: "tasks"}); err == nil {
		t.Error("Publish on canceled context succeeded")
	}
}
