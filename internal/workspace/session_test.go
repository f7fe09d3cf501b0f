package workspace

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/twiced-technology-gmbh/dubboard/internal/board"
	"github.com/twiced-technology-gmbh/dubboard/internal/clierr"
	"github.com/twiced-technology-gmbh/dubboard/internal/config"
	"github.com/twiced-technology-gmbh/dubboard/internal/feed"
	"github.com/twiced-technology-gmbh/dubboard/internal/invalidate"
	"github.com/twiced-technology-gmbh/dubboard/internal/mutation"
	"github.com/twiced-technology-gmbh/dubboard/internal/store"
	"github.com/twiced-technology-gmbh/dubboard/internal/task"
)

type fakeTimer struct {
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

type fakeTimers struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (f *fakeTimers) AfterFunc(_ time.Duration, fn func()) invalidate.Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTimer{fn: fn}
	f.timers = append(f.timers, t)
	return t
}

func (f *fakeTimers) fire(t *testing.T) {
	t.Helper()
	f.mu.Lock()
	var live []*fakeTimer
	for _, tm := range f.timers {
		if !tm.stopped {
			live = append(live, tm)
		}
	}
	f.mu.Unlock()
	if len(live) != 1 {
		t.Fatalf("live timers = %d, want 1", len(live))
	}
	live[0].stopped = true
	live[0].fn()
}

type mutateCall struct {
	ID    string
	Field string
	Value any
}

type fakeBackend struct {
	mu      sync.Mutex
	records []task.Task
	fetches int
	calls   []mutateCall
	fail    map[string]error
	during  func(taskID string)
}

func (b *fakeBackend) Fetch(_ context.Context, _ string) ([]task.Task, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fetches++
	out := make([]task.Task, len(b.records))
	for i, t := range b.records {
		out[i] = t.Clone()
	}
	return out, nil
}

func (b *fakeBackend) Mutate(_ context.Context, _, taskID, field string, value any) error {
	if b.during != nil {
		b.during(taskID)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, mutateCall{ID: taskID, Field: field, Value: value})
	if err := b.fail[taskID]; err != nil {
		return err
	}
	for i := range b.records {
		if b.records[i].ID == taskID {
			b.records[i].Set(field, value)
		}
	}
	return nil
}

func (b *fakeBackend) fetchCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fetches
}

type fixture struct {
	cfg       *config.Config
	hub       *feed.Hub
	backend   *fakeBackend
	timers    *fakeTimers
	decisions []invalidate.Decision
	failures  map[string]error
	s         *Session
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := config.NewDefault("Studio")
	cfg.Members = []task.User{{ID: "u1", Name: "Ana Lima"}, {ID: "u2", Name: "Bruno Costa"}}

	f := &fixture{
		cfg: cfg,
		hub: feed.NewHub(),
		backend: &fakeBackend{records: []task.Task{
			{ID: "1", Title: "Episode 1 mix", Fields: map[string]any{"status": "working"}},
			{ID: "2", Title: "Episode 2 mix", Fields: map[string]any{"status": "not started"}},
			{ID: "3", Title: "Trailer", Fields: map[string]any{"status": "stuck"}},
		}},
		timers:   &fakeTimers{},
		failures: map[string]error{},
	}
	f.s = New(cfg, Options{
		Backend:    f.backend,
		Feed:       f.hub,
		AfterFunc:  f.timers.AfterFunc,
		OnDecision: func(d invalidate.Decision) { f.decisions = append(f.decisions, d) },
		OnError:    func(id string, err error) { f.failures[id] = err },
	})
	if err := f.s.Mount(context.Background(), "studio"); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	t.Cleanup(f.s.Unmount)
	return f
}

func (f *fixture) echo(t *testing.T, id string) {
	t.Helper()
	err := f.hub.Publish(context.Background(), feed.Event{
		Type: feed.Update, Table: feed.TasksTable, Scope: "studio", RecordID: id,
	})
	if err != nil {
		t.Fatal(err)
	}
}

func statusOf(t *testing.T, s *Session, id string) any {
	t.Helper()
	records, err := s.Records(context.Background())
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	for _, r := range records {
		if r.ID == id {
			return r.Get("status")
		}
	}
	t.Fatalf("task %s missing", id)
	return nil
}

func TestRecordsCachedUntilInvalidated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var changed [][]string
	off := f.s.OnChange(func(keys []string) { changed = append(changed, keys) })
	defer off()

	for range 2 {
		if _, err := f.s.Records(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if got := f.backend.fetchCount(); got != 1 {
		t.Fatalf("fetches = %d, want 1", got)
	}

	f.echo(t, "1")
	f.echo(t, "2")
	f.timers.fire(t)

	want := [][]string{{"board:studio", "board:studio:summary"}}
	if diff := cmp.Diff(want, changed); diff != "" {
		t.Errorf("OnChange keys (-want +got):\n%s", diff)
	}
	if _, err := f.s.Records(ctx); err != nil {
		t.Fatal(err)
	}
	if got := f.backend.fetchCount(); got != 2 {
		t.Errorf("fetches after invalidation = %d, want 2", got)
	}
}

func TestEditSuppressesRefetchWhileInFlight(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.s.Records(ctx); err != nil {
		t.Fatal(err)
	}

	f.backend.during = func(id string) {
		if n := f.s.Tracker().ActiveCount(mutation.Key{invalidate.DefaultOperation, "studio"}); n != 1 {
			t.Errorf("active mutations during write = %d, want 1", n)
		}
		// The write's own echo arrives and the debounce elapses before
		// the write returns.
		f.echo(t, id)
		f.timers.fire(t)
	}

	res, err := f.s.Edit(ctx, "2", "status", "done")
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if res.Bulk || len(res.IDs) != 1 {
		t.Errorf("result = %+v, want single edit", res)
	}
	if len(f.decisions) != 1 || !f.decisions[0].Skipped {
		t.Fatalf("decisions = %+v, want one skipped", f.decisions)
	}
	if got := statusOf(t, f.s, "2"); got != "done" {
		t.Errorf("status = %v, want optimistic done", got)
	}
	if got := f.backend.fetchCount(); got != 1 {
		t.Errorf("fetches = %d, want 1 (no refetch)", got)
	}
	if n := f.s.Tracker().ActiveCount(mutation.Key{invalidate.DefaultOperation}); n != 0 {
		t.Errorf("active after edit = %d, want 0", n)
	}
}

func TestEditFailureReverts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.backend.fail = map[string]error{"1": errors.New("connection reset")}

	var seen any
	f.backend.during = func(string) { seen = statusOf(t, f.s, "1") }

	_, err := f.s.Edit(ctx, "1", "status", "done")
	if !clierr.HasCode(err, clierr.MutationFailed) {
		t.Fatalf("err = %v, want %s", err, clierr.MutationFailed)
	}
	if seen != "done" {
		t.Errorf("status during write = %v, want done", seen)
	}
	if got := statusOf(t, f.s, "1"); got != "working" {
		t.Errorf("status after failure = %v, want working", got)
	}
	if _, ok := f.failures["1"]; !ok {
		t.Error("OnError not called")
	}
	if n := f.s.Tracker().ActiveCount(mutation.Key{invalidate.DefaultOperation}); n != 0 {
		t.Errorf("active after failure = %d, want 0", n)
	}
}

func TestBulkEdit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sel := f.s.View().Selection
	sel.Add("3")
	sel.Add("1")
	f.backend.fail = map[string]error{"1": errors.New("denied")}

	res, err := f.s.Edit(ctx, "1", "assignee", "u2")
	if err == nil {
		t.Fatal("expected joined error for task 1")
	}
	if !res.Bulk {
		t.Error("Bulk = false, want true")
	}
	want := []mutateCall{
		{ID: "3", Field: "assignee", Value: "u2"},
		{ID: "1", Field: "assignee", Value: "u2"},
	}
	if diff := cmp.Diff(want, f.backend.calls); diff != "" {
		t.Errorf("mutations (-want +got):\n%s", diff)
	}
	if _, ok := res.Failed["1"]; !ok || len(res.Failed) != 1 {
		t.Errorf("Failed = %v, want only task 1", res.Failed)
	}

	records, err := f.s.Records(ctx)
	if err != nil {
		t.Fatal(err)
	}
	got := map[string]any{}
	for _, r := range records {
		got[r.ID] = r.Get("assignee")
	}
	wantAssignee := map[string]any{"1": nil, "2": nil, "3": task.User{ID: "u2", Name: "Bruno Costa"}}
	if diff := cmp.Diff(wantAssignee, got); diff != "" {
		t.Errorf("assignees (-want +got):\n%s", diff)
	}
}

func TestEditOutsideSelectionIsSingle(t *testing.T) {
	f := newFixture(t)
	sel := f.s.View().Selection
	sel.Add("1")
	sel.Add("2")

	res, err := f.s.Edit(context.Background(), "3", "status", "done")
	if err != nil {
		t.Fatal(err)
	}
	if res.Bulk || len(f.backend.calls) != 1 || f.backend.calls[0].ID != "3" {
		t.Errorf("result = %+v, calls = %+v; want a single edit of 3", res, f.backend.calls)
	}
}

func TestEditErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.s.Edit(ctx, "1", "budget", 3); !clierr.HasCode(err, clierr.UnknownColumn) {
		t.Errorf("unknown column: err = %v", err)
	}
	if _, err := f.s.Edit(ctx, "1", "minutes", "lots"); !clierr.HasCode(err, clierr.InvalidValue) {
		t.Errorf("bad value: err = %v", err)
	}
	if _, err := f.s.Edit(ctx, "9", "status", "done"); !clierr.HasCode(err, clierr.TaskNotFound) {
		t.Errorf("missing task: err = %v", err)
	}

	f.s.Unmount()
	if _, err := f.s.Edit(ctx, "1", "status", "done"); !clierr.HasCode(err, clierr.BoardNotFound) {
		t.Errorf("unmounted: err = %v", err)
	}
}

func TestTasksAppliesView(t *testing.T) {
	f := newFixture(t)
	v := f.s.View()
	v.Filters.Set(board.ColumnFilter{ColumnID: "status", Type: board.FilterIncludes, Value: []string{"working", "stuck"}})
	v.Sort = board.SortConfig{Key: "status", Direction: board.Desc}

	got, err := f.s.Tasks(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, r := range got {
		ids = append(ids, r.ID)
	}
	if diff := cmp.Diff([]string{"3", "1"}, ids); diff != "" {
		t.Errorf("ids (-want +got):\n%s", diff)
	}
}

func TestSelectionDropsVanishedTasks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.s.View().Selection.Add("2")
	f.s.View().Selection.Add("3")

	f.backend.records = f.backend.records[:2]
	if err := f.s.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := f.s.Records(ctx); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"2"}, f.s.View().Selection.IDs()); diff != "" {
		t.Errorf("selection (-want +got):\n%s", diff)
	}
}

func TestMountSwitchesBoard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.s.View().Selection.Add("1")
	f.s.View().Filters.Set(board.ColumnFilter{ColumnID: "status", Type: board.FilterNotEmpty})

	if err := f.s.Mount(ctx, "promo"); err != nil {
		t.Fatal(err)
	}
	if f.s.Board() != "promo" {
		t.Errorf("Board = %q, want promo", f.s.Board())
	}
	if f.s.View().Selection.Len() != 0 || f.s.View().Filters.Len() != 0 {
		t.Error("view state survived board switch")
	}
	if n := f.hub.Subscribers(feed.TasksTable, "studio"); n != 0 {
		t.Errorf("old board subscribers = %d, want 0", n)
	}
	if n := f.hub.Subscribers(feed.TasksTable, "promo"); n != 1 {
		t.Errorf("new board subscribers = %d, want 1", n)
	}

	// An event for the old board schedules nothing.
	f.echo(t, "1")
	if len(f.timers.timers) != 0 {
		t.Errorf("timers = %d, want 0", len(f.timers.timers))
	}
}

func TestSummaryCached(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.s.Summary(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if first.TotalTasks != 3 {
		t.Errorf("TotalTasks = %d, want 3", first.TotalTasks)
	}
	if _, err := f.s.Summary(ctx); err != nil {
		t.Fatal(err)
	}
	if got := f.backend.fetchCount(); got != 1 {
		t.Errorf("fetches = %d, want 1", got)
	}
}

// boards is a backend holding separate records per board.
type boards map[string][]task.Task

func (b boards) Fetch(_ context.Context, boardID string) ([]task.Task, error) {
	return append([]task.Task(nil), b[boardID]...), nil
}

func (b boards) Mutate(context.Context, string, string, string, any) error { return nil }

func TestSummaryScopedToMountedBoard(t *testing.T) {
	ctx := context.Background()
	backend := boards{
		"b1": {{ID: "1", Title: "Episode 1"}, {ID: "2", Title: "Episode 2"}, {ID: "3", Title: "Episode 3"}},
		"b2": {{ID: "1", Title: "Trailer"}},
	}
	s := New(config.NewDefault("Studio"), Options{
		Backend:   backend,
		Feed:      feed.NewHub(),
		AfterFunc: (&fakeTimers{}).AfterFunc,
	})
	t.Cleanup(s.Unmount)

	for _, tt := range []struct {
		board string
		want  int
	}{{"b1", 3}, {"b2", 1}, {"b1", 3}} {
		if err := s.Mount(ctx, tt.board); err != nil {
			t.Fatalf("Mount(%s): %v", tt.board, err)
		}
		sum, err := s.Summary(ctx)
		if err != nil {
			t.Fatalf("Summary(%s): %v", tt.board, err)
		}
		if sum.TotalTasks != tt.want {
			t.Errorf("board %s: TotalTasks = %d, want %d", tt.board, sum.TotalTasks, tt.want)
		}
	}
}

func TestWithFileStore(t *testing.T) {
	cfg, err := config.Init(filepath.Join(t.TempDir(), config.DefaultDir), "Studio")
	if err != nil {
		t.Fatal(err)
	}
	hub := feed.NewHub()
	files := store.NewFiles(cfg, store.WithPublisher(hub))
	ctx := context.Background()
	if _, err := files.Create(ctx, cfg.BoardID(), "Episode 1 mix", nil); err != nil {
		t.Fatal(err)
	}

	timers := &fakeTimers{}
	var decisions []invalidate.Decision
	s := New(cfg, Options{
		Backend:    files,
		Feed:       hub,
		AfterFunc:  timers.AfterFunc,
		OnDecision: func(d invalidate.Decision) { decisions = append(decisions, d) },
	})
	if err := s.Mount(ctx, cfg.BoardID()); err != nil {
		t.Fatal(err)
	}
	defer s.Unmount()

	if _, err := s.Edit(ctx, "1", "dueDate", "2024-05-02"); err != nil {
		t.Fatalf("Edit: %v", err)
	}
	// The store's change event arrived during the write and armed the
	// debounce; once it fires with nothing in flight, the board refetches.
	timers.fire(t)
	if len(decisions) != 1 || decisions[0].Skipped {
		t.Fatalf("decisions = %+v, want one applied", decisions)
	}

	got, err := files.Get(ctx, cfg.BoardID(), "1")
	if err != nil {
		t.Fatal(err)
	}
	if v := task.String(got.Get("dueDate")); v != "2024-05-02" {
		t.Errorf("stored dueDate = %q", v)
	}
	records, err := s.Records(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if v := task.String(records[0].Get("dueDate")); v != "2024-05-02" {
		t.Errorf("cached dueDate = %q", v)
	}
}
