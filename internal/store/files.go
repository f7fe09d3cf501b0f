// Package store reads and writes a board's tasks as markdown files and
// announces every change on the change feed.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gofrs/flock"
	"github.com/sirupsen/logrus"

	"github.com/twiced-technology-gmbh/dubboard/internal/clierr"
	"github.com/twiced-technology-gmbh/dubboard/internal/config"
	"github.com/twiced-technology-gmbh/dubboard/internal/feed"
	"github.com/twiced-technology-gmbh/dubboard/internal/task"
)

const lockFileName = ".lock"

// Files is the task backend of one board directory. Writes are serialized
// across processes with an advisory lock on the board directory.
type Files struct {
	cfg *config.Config
	pub feed.Publisher
	log *logrus.Entry
	now func() time.Time
}

// Option configures Files.
type Option func(*Files)

// WithPublisher announces writes on pub. Without one, writes are only
// visible to feeds that watch the directory.
func WithPublisher(pub feed.Publisher) Option {
	return func(f *Files) { f.pub = pub }
}

// WithLogger sets the logger.
func WithLogger(log *logrus.Entry) Option {
	return func(f *Files) { f.log = log }
}

// WithClock sets the time source for timestamps.
func WithClock(now func() time.Time) Option {
	return func(f *Files) { f.now = now }
}

// NewFiles returns the backend for cfg's board.
func NewFiles(cfg *config.Config, opts ...Option) *Files {
	f := &Files{
		cfg: cfg,
		log: logrus.StandardLogger().WithField("component", "store"),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch returns every task of the board in file order. Malformed files are
// logged and skipped.
func (f *Files) Fetch(ctx context.Context, boardID string) ([]task.Task, error) {
	if err := f.check(ctx, boardID); err != nil {
		return nil, err
	}
	tasks, warnings, err := task.ReadAllLenient(f.cfg.TasksPath(), f.cfg.Schema(), f.cfg.Directory())
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		f.log.WithError(w.Err).WithField("file", w.File).Warn("skipping malformed task file")
	}
	out := make([]task.Task, len(tasks))
	for i, t := range tasks {
		out[i] = *t
	}
	return out, nil
}

// Get returns one task.
func (f *Files) Get(ctx context.Context, boardID, taskID string) (task.Task, error) {
	if err := f.check(ctx, boardID); err != nil {
		return task.Task{}, err
	}
	t, _, err := f.read(taskID)
	if err != nil {
		return task.Task{}, err
	}
	return *t, nil
}

// Mutate sets one field of a task. The value is coerced to the column's
// declared type; an empty value clears the field.
func (f *Files) Mutate(ctx context.Context, boardID, taskID, field string, value any) error {
	if err := f.check(ctx, boardID); err != nil {
		return err
	}
	col, ok := f.cfg.Column(field)
	if !ok {
		return clierr.Newf(clierr.UnknownColumn, "unknown column %q", field).
			WithDetails(map[string]any{"column": field, "columns": f.cfg.ColumnIDs()})
	}
	typed, err := task.Coerce(col.Type, value, f.cfg.Directory())
	if err != nil {
		return err
	}

	unlock, err := f.lock()
	if err != nil {
		return err
	}
	t, path, err := f.read(taskID)
	if err != nil {
		unlock()
		return err
	}
	t.Set(col.FieldName(), typed)
	t.Updated = f.now()
	err = task.Write(path, t)
	unlock()
	if err != nil {
		return fmt.Errorf("writing task: %w", err)
	}

	f.record(boardID, "update", taskID, col.FieldName(), task.String(typed))
	f.publish(ctx, feed.Update, boardID, taskID)
	return nil
}

// Create adds a task with the next free id. fields are keyed by column id
// or field name.
func (f *Files) Create(ctx context.Context, boardID, title string, fields map[string]any) (task.Task, error) {
	if err := f.check(ctx, boardID); err != nil {
		return task.Task{}, err
	}
	if title == "" {
		return task.Task{}, clierr.New(clierr.InvalidInput, "title is required")
	}

	now := f.now()
	t := &task.Task{Title: title, Created: now, Updated: now}
	for name, raw := range fields {
		col, ok := f.cfg.Column(name)
		if !ok {
			return task.Task{}, clierr.Newf(clierr.UnknownColumn, "unknown column %q", name)
		}
		typed, err := task.Coerce(col.Type, raw, f.cfg.Directory())
		if err != nil {
			return task.Task{}, err
		}
		t.Set(col.FieldName(), typed)
	}

	unlock, err := f.lock()
	if err != nil {
		return task.Task{}, err
	}
	defer unlock()

	// Reload under the lock so concurrent creates never share an id.
	fresh, err := config.Load(f.cfg.Dir())
	if err != nil {
		return task.Task{}, err
	}
	t.ID = strconv.Itoa(fresh.NextID)
	path := filepath.Join(f.cfg.TasksPath(), task.GenerateFilename(t.ID, task.GenerateSlug(title)))
	t.File = path
	if err := task.Write(path, t); err != nil {
		return task.Task{}, fmt.Errorf("writing task: %w", err)
	}

	fresh.NextID++
	if err := fresh.Save(); err != nil {
		return task.Task{}, fmt.Errorf("saving config: %w", err)
	}
	f.cfg.NextID = fresh.NextID

	f.record(boardID, "create", t.ID, "", title)
	f.publish(ctx, feed.Insert, boardID, t.ID)
	return *t, nil
}

// Delete removes a task file.
func (f *Files) Delete(ctx context.Context, boardID, taskID string) error {
	if err := f.check(ctx, boardID); err != nil {
		return err
	}
	unlock, err := f.lock()
	if err != nil {
		return err
	}
	path, err := task.FindByID(f.cfg.TasksPath(), taskID)
	if err == nil {
		err = os.Remove(path)
	}
	unlock()
	if err != nil {
		return err
	}

	f.record(boardID, "delete", taskID, "", filepath.Base(path))
	f.publish(ctx, feed.Delete, boardID, taskID)
	return nil
}

func (f *Files) check(ctx context.Context, boardID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if boardID != f.cfg.BoardID() {
		return clierr.Newf(clierr.BoardNotFound, "board not found: %s", boardID).
			WithDetails(map[string]any{"board": boardID})
	}
	return nil
}

func (f *Files) read(taskID string) (*task.Task, string, error) {
	path, err := task.FindByID(f.cfg.TasksPath(), taskID)
	if err != nil {
		return nil, "", err
	}
	t, err := task.Read(path, f.cfg.Schema(), f.cfg.Directory())
	if err != nil {
		return nil, "", err
	}
	return t, path, nil
}

func (f *Files) lock() (func(), error) {
	fl := flock.New(filepath.Join(f.cfg.Dir(), lockFileName))
	if err := fl.Lock(); err != nil {
		return nil, fmt.Errorf("acquiring lock: %w", err)
	}
	return func() {
		if err := fl.Unlock(); err != nil {
			f.log.WithError(err).Warn("releasing lock")
		}
	}, nil
}

// record appends to the activity log. Failures are logged, not returned.
func (f *Files) record(boardID, action, taskID, field, detail string) {
	err := AppendActivity(f.cfg.Dir(), Activity{
		Timestamp: f.now(),
		Action:    action,
		Board:     boardID,
		TaskID:    taskID,
		Field:     field,
		Detail:    detail,
	})
	if err != nil {
		f.log.WithError(err).Warn("appending activity log")
	}
}

func (f *Files) publish(ctx context.Context, typ feed.EventType, boardID, taskID string) {
	if f.pub == nil {
		return
	}
	ev := feed.Event{Type: typ, Table: feed.TasksTable, Scope: boardID, RecordID: taskID, At: f.now()}
	if err := f.pub.Publish(ctx, ev); err != nil {
		f.log.WithError(err).WithFields(logrus.Fields{"task": taskID, "event": typ}).Warn("publishing change")
	}
}
