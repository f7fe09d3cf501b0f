package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"
)

type board struct {
	ID    string   `json:"id"`
	Tasks []string `json:"tasks"`
}

func testStores(t *testing.T) map[string]Store {
	t.Helper()
	m, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(m.Close)
	rc := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = rc.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"redis":  NewRedisStore(rc, "test"),
	}
}

func TestLoadReadsThrough(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			c := New(store, time.Hour, nil)
			ctx := context.Background()
			calls := 0
			fetch := func(context.Context) (board, error) {
				calls++
				return board{ID: "b1", Tasks: []string{"1", "2"}}, nil
			}

			for range 3 {
				got, err := Load(ctx, c, "board:b1", fetch)
				if err != nil {
					t.Fatalf("Load: %v", err)
				}
				if diff := cmp.Diff(board{ID: "b1", Tasks: []string{"1", "2"}}, got); diff != "" {
					t.Errorf("Load (-want +got):\n%s", diff)
				}
			}
			if calls != 1 {
				t.Errorf("fetch called %d times, want 1", calls)
			}

			if err := c.Invalidate(ctx, "board:b1", "board:b1:summary"); err != nil {
				t.Fatalf("Invalidate: %v", err)
			}
			if _, err := Load(ctx, c, "board:b1", fetch); err != nil {
				t.Fatalf("Load: %v", err)
			}
			if calls != 2 {
				t.Errorf("fetch called %d times after invalidate, want 2", calls)
			}
		})
	}
}

func TestLoadFetchErrorIsNotCached(t *testing.T) {
	c := New(NewMemoryStore(), 0, nil)
	ctx := context.Background()
	boom := errors.New("backend down")

	if _, err := Load(ctx, c, "k", func(context.Context) (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Fatalf("Load error = %v, want %v", err, boom)
	}
	got, err := Load(ctx, c, "k", func(context.Context) (int, error) { return 7, nil })
	if err != nil || got != 7 {
		t.Errorf("Load after failure = %d, %v", got, err)
	}
}

func TestPutOverridesCachedValue(t *testing.T) {
	c := New(NewMemoryStore(), 0, nil)
	ctx := context.Background()
	if err := c.Put(ctx, "k", 3); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := Load(ctx, c, "k", func(context.Context) (int, error) {
		t.Error("fetch called for cached key")
		return 0, nil
	})
	if err != nil || got != 3 {
		t.Errorf("Load = %d, %v", got, err)
	}
}

func TestOnInvalidate(t *testing.T) {
	c := New(NewMemoryStore(), 0, nil)
	var got [][]string
	remove := c.OnInvalidate(func(keys []string) { got = append(got, keys) })

	_ = c.Invalidate(context.Background(), "a", "b")
	_ = c.Invalidate(context.Background())
	remove()
	_ = c.Invalidate(context.Background(), "c")

	if diff := cmp.Diff([][]string{{"a", "b"}}, got); diff != "" {
		t.Errorf("listener calls (-want +got):\n%s", diff)
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore()
	s.now = func() time.Time { return now }
	ctx := context.Background()

	_ = s.Set(ctx, "k", []byte("v"), time.Minute)
	if _, ok, _ := s.Get(ctx, "k"); !ok {
		t.Fatal("fresh entry missing")
	}
	now = now.Add(time.Minute)
	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Error("expired entry returned")
	}
}

func TestRedisStoreUsesPrefix(t *testing.T) {
	m, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer m.Close()
	rc := redis.NewClient(&redis.Options{Addr: m.Addr()})
	defer rc.Close()

	s := NewRedisStore(rc, "dubboard")
	if err := s.Set(context.Background(), "board:b1", []byte("x"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got, err := m.Get("dubboard:board:b1"); err != nil || got != "x" {
		t.Errorf("raw value = %q, %v", got, err)
	}
	if ttl := m.TTL("dubboard:board:b1"); ttl != time.Minute {
		t.Errorf("TTL = %v", ttl)
	}
}
