package mutation

import (
	"sync"
	"testing"
	"time"
)

func TestBeginEnd(t *testing.T) {
	tr := NewTracker()
	scope := Key{"update-task", "b1"}

	a := tr.Begin(scope)
	b := tr.Begin(scope)
	if got := tr.ActiveCount(scope); got != 2 {
		t.Fatalf("ActiveCount = %d, want 2", got)
	}
	if !tr.End(a) {
		t.Error("End(a) = false")
	}
	if tr.End(a) {
		t.Error("second End(a) = true")
	}
	if got := tr.ActiveCount(scope); got != 1 {
		t.Errorf("ActiveCount after double end = %d, want 1", got)
	}
	tr.End(b)
	if got := tr.ActiveCount(scope); got != 0 {
		t.Errorf("ActiveCount = %d, want 0", got)
	}
}

func TestEndUnknownToken(t *testing.T) {
	tr := NewTracker()
	other := NewTracker().Begin(Key{"update-task", "b1"})
	if tr.End(other) {
		t.Error("End of foreign token = true")
	}
	if tr.End(Token{}) {
		t.Error("End of zero token = true")
	}
	if got := tr.ActiveCount(nil); got != 0 {
		t.Errorf("ActiveCount = %d, want 0", got)
	}
}

func TestScopesArePartitioned(t *testing.T) {
	tr := NewTracker()
	tr.Begin(Key{"update-task", "b1"})
	tr.Begin(Key{"update-task", "b2"})
	tr.Begin(Key{"create-comment", "b1"})

	tests := []struct {
		key  Key
		want int
	}{
		{Key{"update-task", "b1"}, 1},
		{Key{"update-task", "b2"}, 1},
		{Key{"update-task", "b3"}, 0},
		{Key{"update-task"}, 2},
		{Key{"update-task", "b1", "extra"}, 0},
		{nil, 3},
	}
	for _, tt := range tests {
		if got := tr.ActiveCount(tt.key); got != tt.want {
			t.Errorf("ActiveCount(%v) = %d, want %d", tt.key, got, tt.want)
		}
	}
}

func TestConcurrentPairsReturnToZero(t *testing.T) {
	tr := NewTracker()
	scope := Key{"update-task", "b1"}
	before := tr.ActiveCount(scope)

	const n = 200
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok := tr.Begin(scope)
			tr.End(tok)
		}()
	}
	wg.Wait()

	if got := tr.ActiveCount(scope); got != before {
		t.Errorf("ActiveCount = %d, want %d", got, before)
	}
}

func TestMaxLifetimeExpiresHungWrites(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tr := NewTracker(WithMaxLifetime(time.Minute), WithClock(func() time.Time { return now }))
	scope := Key{"update-task", "b1"}

	hung := tr.Begin(scope)
	now = now.Add(30 * time.Second)
	if got := tr.ActiveCount(scope); got != 1 {
		t.Fatalf("ActiveCount before expiry = %d", got)
	}

	now = now.Add(time.Minute)
	if got := tr.ActiveCount(scope); got != 0 {
		t.Errorf("ActiveCount after expiry = %d, want 0", got)
	}
	if tr.End(hung) {
		t.Error("End of expired token = true")
	}
}

func TestReset(t *testing.T) {
	tr := NewTracker()
	tr.Begin(Key{"update-task", "b1"})
	tr.Reset()
	if got := tr.ActiveCount(nil); got != 0 {
		t.Errorf("ActiveCount after Reset = %d", got)
	}
}

func TestTokenKeyIsCopied(t *testing.T) {
	tr := NewTracker()
	key := Key{"update-task", "b1"}
	tok := tr.Begin(key)
	key[1] = "b2"
	if got := tr.ActiveCount(Key{"update-task", "b1"}); got != 1 {
		t.Errorf("caller mutation leaked into tracker, ActiveCount = %d", got)
	}
	if tok.Key().String() != "update-task/b1" {
		t.Errorf("Key() = %q", tok.Key())
	}
}
