package feed

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	m, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(m.Close)
	rc := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = rc.Close() })
	return m, rc
}

func TestRedisRoundTrip(t *testing.T) {
	_, rc := newTestRedis(t)
	f := NewRedis(rc, "dubboard", nil)
	ctx := context.Background()

	got := make(chan Event, 4)
	unsub, err := f.Subscribe(ctx, "tasks", "b1", func(ev Event) { got <- ev })
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer unsub()

	// Malformed payloads are skipped.
	if err := rc.Publish(ctx, f.Channel("tasks", "b1"), "not json").Err(); err != nil {
		t.Fatalf("publish: %v", err)
	}
	want := Event{Type: Update, Table: "tasks", Scope: "b1", RecordID: "7", At: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)}
	if err := f.Publish(ctx, want); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case ev := <-got:
		if ev.Type != want.Type || ev.RecordID != want.RecordID || !ev.At.Equal(want.At) {
			t.Fatalf("event = %+v, want %+v", ev, want)
		}
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
}

func TestRedisUnsubscribeStopsDelivery(t *testing.T) {
	_, rc := newTestRedis(t)
	f := NewRedis(rc, "dubboard", nil)
	ctx := context.Background()

	got := make(chan Event, 4)
	unsub, err := f.Subscribe(ctx, "tasks", "b1", func(ev Event) { got <- ev })
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	unsub()
	unsub()

	if err := f.Publish(ctx, Event{Type: Update, Table: "tasks", Scope: "b1"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	select {
	case ev := <-got:
		t.Fatalf("event after unsubscribe: %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRedisUnavailable(t *testing.T) {
	m, rc := newTestRedis(t)
	m.Close()
	f := NewRedis(rc, "dubboard", nil)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := f.Subscribe(ctx, "tasks", "b1", func(Event) {}); err == nil {
		t.Error("Subscribe against closed server succeeded")
	}
}
