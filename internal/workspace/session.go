// Package workspace mounts a board: it owns the board's cache, mutation
// tracker, invalidation coordinator and view state for as long as the board
// is open.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/twiced-technology-gmbh/dubboard/internal/board"
	"github.com/twiced-technology-gmbh/dubboard/internal/cache"
	"github.com/twiced-technology-gmbh/dubboard/internal/clierr"
	"github.com/twiced-technology-gmbh/dubboard/internal/config"
	"github.com/twiced-technology-gmbh/dubboard/internal/feed"
	"github.com/twiced-technology-gmbh/dubboard/internal/invalidate"
	"github.com/twiced-technology-gmbh/dubboard/internal/mutation"
	"github.com/twiced-technology-gmbh/dubboard/internal/task"
)

// Backend is the data-access layer the session reads and writes through.
type Backend interface {
	Fetch(ctx context.Context, boardID string) ([]task.Task, error)
	Mutate(ctx context.Context, boardID, taskID, field string, value any) error
}

// Options configures a Session. Feed and Backend are required.
type Options struct {
	Backend Backend
	Feed    feed.Subscriber
	// Store backs the cache; defaults to a memory store.
	Store   cache.Store
	Tracker *mutation.Tracker
	Logger  *logrus.Entry
	// OnError is told about every failed mutation after its optimistic
	// value has been reverted.
	OnError func(taskID string, err error)

	// Test hooks for the invalidation coordinator.
	AfterFunc  invalidate.Scheduler
	OnDecision func(invalidate.Decision)
}

// Session is one mounted board.
type Session struct {
	cfg     *config.Config
	backend Backend
	cache   *cache.Cache
	tracker *mutation.Tracker
	coord   *invalidate.Coordinator
	view    *board.View
	log     *logrus.Entry
	onError func(string, error)

	// mu serializes read-modify-write of the cached board.
	mu    sync.Mutex
	board string
}

// New returns an unmounted session for cfg's board.
func New(cfg *config.Config, opts Options) *Session {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger().WithField("component", "workspace")
	}
	store := opts.Store
	if store == nil {
		store = cache.NewMemoryStore()
	}
	tracker := opts.Tracker
	if tracker == nil {
		tracker = mutation.NewTracker(
			mutation.WithMaxLifetime(cfg.MutationTimeout()),
			mutation.WithLogger(log.WithField("component", "mutation")),
		)
	}
	onError := opts.OnError
	if onError == nil {
		onError = func(id string, err error) {
			log.WithError(err).WithField("task", id).Error("edit failed")
		}
	}

	c := cache.New(store, cfg.CacheTTL(), log.WithField("component", "cache"))
	s := &Session{
		cfg:     cfg,
		backend: opts.Backend,
		cache:   c,
		tracker: tracker,
		view:    board.NewView(cfg),
		log:     log,
		onError: onError,
	}
	s.coord = invalidate.New(invalidate.Config{
		Feed:       opts.Feed,
		Tracker:    tracker,
		Cache:      c,
		Resources:  cfg.WatchedResources(),
		Keys:       cfg.Invalidation.Keys,
		Operation:  invalidate.DefaultOperation,
		Delay:      cfg.DebounceDelay(),
		Logger:     log.WithField("component", "invalidate"),
		AfterFunc:  opts.AfterFunc,
		OnDecision: opts.OnDecision,
	})
	return s
}

// Mount opens boardID: view state and in-flight writes are reset and the
// change feed is watched for the new board. Mounting while another board is
// mounted switches boards.
func (s *Session) Mount(ctx context.Context, boardID string) error {
	s.mu.Lock()
	s.board = boardID
	s.mu.Unlock()

	s.view.Reset()
	s.tracker.Reset()
	if err := s.coord.StartWatching(ctx, boardID); err != nil {
		return err
	}
	s.log.WithField("board", boardID).Debug("board mounted")
	return nil
}

// Unmount stops watching and drops all per-board state.
func (s *Session) Unmount() {
	s.coord.StopWatching()
	s.tracker.Reset()
	s.view.Reset()

	s.mu.Lock()
	s.board = ""
	s.mu.Unlock()
}

// Board returns the mounted board id, or "".
func (s *Session) Board() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board
}

// View returns the mounted board's filter, sort and selection state.
func (s *Session) View() *board.View { return s.view }

// Tracker returns the session's mutation tracker.
func (s *Session) Tracker() *mutation.Tracker { return s.tracker }

// Config returns the board configuration.
func (s *Session) Config() *config.Config { return s.cfg }

// OnChange registers fn to run whenever cached board data is invalidated.
// The returned function unregisters it.
func (s *Session) OnChange(fn func(keys []string)) func() {
	return s.cache.OnInvalidate(fn)
}

// Refresh drops the cached board and summary so the next read refetches.
func (s *Session) Refresh(ctx context.Context) error {
	b, err := s.mounted()
	if err != nil {
		return err
	}
	return s.cache.Invalidate(ctx, s.boardKey(b), s.summaryKey(b))
}

// Records returns the board's tasks in backend order, through the cache.
// Selected ids that no longer exist are deselected.
func (s *Session) Records(ctx context.Context) ([]task.Task, error) {
	b, err := s.mounted()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.loadLocked(ctx, b)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(records))
	for i, t := range records {
		ids[i] = t.ID
	}
	s.view.Selection.Retain(ids)
	return records, nil
}

// Tasks returns the board's tasks filtered and sorted by the view.
func (s *Session) Tasks(ctx context.Context) ([]task.Task, error) {
	records, err := s.Records(ctx)
	if err != nil {
		return nil, err
	}
	return s.view.Render(records), nil
}

// Summary returns the board overview, cached until the next invalidation.
func (s *Session) Summary(ctx context.Context) (board.Overview, error) {
	b, err := s.mounted()
	if err != nil {
		return board.Overview{}, err
	}
	return cache.Load(ctx, s.cache, s.summaryKey(b), func(ctx context.Context) (board.Overview, error) {
		records, err := s.Records(ctx)
		if err != nil {
			return board.Overview{}, err
		}
		return board.Summary(s.cfg, records, time.Now()), nil
	})
}

// EditResult reports the outcome of an edit per task.
type EditResult struct {
	IDs    []string
	Bulk   bool
	Failed map[string]error
}

// Edit sets field to value on taskID. When taskID is part of a multi-task
// selection, the edit is applied to every selected task instead, one
// mutation per task with the same value. Each mutation updates the cached
// board optimistically and reverts on failure. Failed tasks are reported in
// the result and through OnError; the returned error joins them.
func (s *Session) Edit(ctx context.Context, taskID, field string, value any) (EditResult, error) {
	if _, err := s.mounted(); err != nil {
		return EditResult{}, err
	}
	col, ok := s.cfg.Column(field)
	if !ok {
		return EditResult{}, clierr.Newf(clierr.UnknownColumn, "unknown column %q", field).
			WithDetails(map[string]any{"column": field, "columns": s.cfg.ColumnIDs()})
	}
	typed, err := task.Coerce(col.Type, value, s.cfg.Directory())
	if err != nil {
		return EditResult{}, err
	}

	res := EditResult{IDs: []string{taskID}}
	if cmd, ok := s.view.Selection.BulkEdit(taskID, col.FieldName(), typed); ok {
		res.IDs, res.Bulk = cmd.IDs, true
	}

	var errs []error
	for _, id := range res.IDs {
		if err := s.mutate(ctx, id, col, typed); err != nil {
			if res.Failed == nil {
				res.Failed = make(map[string]error)
			}
			res.Failed[id] = err
			errs = append(errs, err)
			s.onError(id, err)
		}
	}
	return res, errors.Join(errs...)
}

// mutate performs one write bracketed by the tracker, so change events for
// the board are not turned into refetches while it is in flight.
func (s *Session) mutate(ctx context.Context, taskID string, col config.ColumnConfig, typed any) error {
	b, err := s.mounted()
	if err != nil {
		return err
	}
	tok := s.tracker.Begin(mutation.Key{invalidate.DefaultOperation, b})
	defer s.tracker.End(tok)

	field := col.FieldName()
	prev, err := s.applyOptimistic(ctx, b, taskID, field, typed)
	if err != nil {
		return err
	}

	if err := s.backend.Mutate(ctx, b, taskID, field, task.Encode(typed)); err != nil {
		if rerr := s.revert(ctx, b, taskID, field, typed, prev); rerr != nil {
			s.log.WithError(rerr).WithField("task", taskID).Warn("reverting optimistic edit")
		}
		var ce *clierr.Error
		if errors.As(err, &ce) {
			return err
		}
		return clierr.Wrap(clierr.MutationFailed, err, "updating task %s", taskID).
			WithDetails(map[string]any{"id": taskID, "field": field})
	}
	return nil
}

// applyOptimistic writes value into the cached board and returns the value
// it replaced.
func (s *Session) applyOptimistic(ctx context.Context, b, taskID, field string, value any) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadLocked(ctx, b)
	if err != nil {
		return nil, err
	}
	i := slices.IndexFunc(records, func(t task.Task) bool { return t.ID == taskID })
	if i < 0 {
		return nil, clierr.Newf(clierr.TaskNotFound, "task not found: %s", taskID).
			WithDetails(map[string]any{"id": taskID})
	}
	prev := records[i].Get(field)
	records[i] = records[i].Clone()
	records[i].Set(field, value)
	return prev, s.storeLocked(ctx, b, records)
}

// revert restores prev unless another edit has replaced the optimistic
// value in the meantime.
func (s *Session) revert(ctx context.Context, b, taskID, field string, optimistic, prev any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadLocked(ctx, b)
	if err != nil {
		return err
	}
	i := slices.IndexFunc(records, func(t task.Task) bool { return t.ID == taskID })
	if i < 0 || task.String(records[i].Get(field)) != task.String(optimistic) {
		return nil
	}
	records[i] = records[i].Clone()
	records[i].Set(field, prev)
	return s.storeLocked(ctx, b, records)
}

func (s *Session) loadLocked(ctx context.Context, b string) ([]task.Task, error) {
	encoded, err := cache.Load(ctx, s.cache, s.boardKey(b), func(ctx context.Context) ([]task.Task, error) {
		records, err := s.backend.Fetch(ctx, b)
		if err != nil {
			return nil, err
		}
		return encodeAll(records), nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading board %s: %w", b, err)
	}
	schema, dir := s.cfg.Schema(), s.cfg.Directory()
	records := make([]task.Task, len(encoded))
	for i, t := range encoded {
		if err := t.Decode(schema, dir); err != nil {
			return nil, fmt.Errorf("decoding cached task %s: %w", t.ID, err)
		}
		records[i] = t
	}
	return records, nil
}

func (s *Session) storeLocked(ctx context.Context, b string, records []task.Task) error {
	return s.cache.Put(ctx, s.boardKey(b), encodeAll(records))
}

func (s *Session) mounted() (string, error) {
	b := s.Board()
	if b == "" {
		return "", clierr.New(clierr.BoardNotFound, "no board mounted")
	}
	return b, nil
}

func (s *Session) boardKey(b string) string {
	return config.ExpandKeys([]string{config.KeyBoard}, b)[0]
}

func (s *Session) summaryKey(b string) string {
	return config.ExpandKeys([]string{config.KeySummary}, b)[0]
}

func encodeAll(records []task.Task) []task.Task {
	out := make([]task.Task, len(records))
	for i, t := range records {
		out[i] = t.Encoded()
	}
	return out
}
