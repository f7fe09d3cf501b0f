package feed

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/twiced-technology-gmbh/dubboard/internal/clierr"
	"github.com/twiced-technology-gmbh/dubboard/internal/task"
)

// TasksTable is the resource name of task records.
const TasksTable = "tasks"

// FS is a feed over a board's task directory. Every change to a task file
// is reported as an event on the tasks resource of the board's scope:
// created files as inserts, written files as updates, and removed or
// renamed files as deletes. Other resources never receive events.
type FS struct {
	dir   string
	scope string
	log   *logrus.Entry
	now   func() time.Time
}

// NewFS returns a feed watching dir, the task directory of board scope.
func NewFS(dir, scope string, log *logrus.Entry) *FS {
	if log == nil {
		log = logrus.StandardLogger().WithField("component", "feed")
	}
	return &FS{dir: dir, scope: scope, log: log, now: time.Now}
}

// Subscribe implements Subscriber.
func (f *FS) Subscribe(ctx context.Context, resource, scope string, onEvent Handler) (Unsubscribe, error) {
	if resource != TasksTable || scope != f.scope {
		f.log.WithFields(logrus.Fields{"resource": resource, "scope": scope}).
			Debug("no file events for resource")
		return func() {}, nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, clierr.Newf(clierr.FeedUnavailable, "creating watcher: %v", err)
	}
	if err := fsw.Add(f.dir); err != nil {
		_ = fsw.Close()
		return nil, clierr.Newf(clierr.FeedUnavailable, "watching %s: %v", f.dir, err).
			WithDetails(map[string]any{"dir": f.dir})
	}

	subCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.run(subCtx, fsw, onEvent)
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			_ = fsw.Close()
			<-done
		})
	}, nil
}

func (f *FS) run(ctx context.Context, fsw *fsnotify.Watcher, onEvent Handler) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if ev, ok := f.translate(event); ok {
				onEvent(ev)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			f.log.WithError(err).Warn("watch error")
		}
	}
}

// translate maps a file event to a change event. Only markdown files count.
func (f *FS) translate(event fsnotify.Event) (Event, bool) {
	if filepath.Ext(event.Name) != ".md" {
		return Event{}, false
	}
	var typ EventType
	switch {
	case event.Op.Has(fsnotify.Create):
		typ = Insert
	case event.Op.Has(fsnotify.Write):
		typ = Update
	case event.Op.Has(fsnotify.Remove), event.Op.Has(fsnotify.Rename):
		typ = Delete
	default:
		return Event{}, false
	}
	return Event{
		Type:     typ,
		Table:    TasksTable,
		Scope:    f.scope,
		RecordID: task.IDFromFilename(event.Name),
		At:       f.now(),
	}, true
}
