// Package invalidate turns change-feed events into cache invalidations.
// Bursts of events are debounced into one decision, and the decision is
// skipped while writes to the watched board are still in flight so a
// refetch cannot overwrite an optimistic local update.
package invalidate

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/twiced-technology-gmbh/dubboard/internal/config"
	"github.com/twiced-technology-gmbh/dubboard/internal/feed"
	"github.com/twiced-technology-gmbh/dubboard/internal/mutation"
)

// Defaults.
const (
	DefaultDelay     = 300 * time.Millisecond
	DefaultOperation = "update-task"
)

// Invalidator drops cache keys.
type Invalidator interface {
	Invalidate(ctx context.Context, keys ...string) error
}

// Timer is a pending callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// Scheduler runs fn after d. It matches time.AfterFunc.
type Scheduler func(d time.Duration, fn func()) Timer

func afterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// Decision records what one debounced firing did.
type Decision struct {
	Board   string
	Keys    []string
	Events  int
	Active  int
	Skipped bool
	Err     error
}

// Config configures a Coordinator. Feed, Tracker and Cache are required.
type Config struct {
	Feed    feed.Subscriber
	Tracker *mutation.Tracker
	Cache   Invalidator

	// Resources are the feed resources watched per board.
	Resources []string
	// Keys maps a resource to the cache keys that depend on it. Keys may
	// contain config.BoardPlaceholder.
	Keys map[string][]string
	// Operation is the mutation name whose in-flight writes suppress
	// invalidation, checked under the key {Operation, board}.
	Operation string
	Delay     time.Duration

	Logger     *logrus.Entry
	AfterFunc  Scheduler
	OnDecision func(Decision)
}

// Coordinator watches one board at a time. At most one debounce timer is
// live per coordinator.
type Coordinator struct {
	cfg Config
	log *logrus.Entry

	mu      sync.Mutex
	ctx     context.Context
	board   string
	watch   uint64
	unsubs  []feed.Unsubscribe
	timer   Timer
	gen     uint64
	pending map[string]struct{}
	events  int
}

// New returns a coordinator that is not yet watching anything.
func New(cfg Config) *Coordinator {
	if len(cfg.Resources) == 0 {
		cfg.Resources = []string{feed.TasksTable}
	}
	if cfg.Operation == "" {
		cfg.Operation = DefaultOperation
	}
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultDelay
	}
	if cfg.AfterFunc == nil {
		cfg.AfterFunc = afterFunc
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger().WithField("component", "invalidate")
	}
	return &Coordinator{cfg: cfg, log: log, pending: make(map[string]struct{})}
}

// Board returns the board being watched, or "".
func (c *Coordinator) Board() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.board
}

// StartWatching subscribes to every configured resource of boardID. Any
// previous watch is stopped first: its pending timer is cancelled and its
// subscriptions are closed before the new ones open.
func (c *Coordinator) StartWatching(ctx context.Context, boardID string) error {
	if boardID == "" {
		return errors.New("start watching: empty board id")
	}

	c.mu.Lock()
	old := c.stopLocked()
	c.watch++
	watch := c.watch
	c.board = boardID
	c.ctx = ctx
	c.mu.Unlock()

	for _, unsub := range old {
		unsub()
	}

	unsubs := make([]feed.Unsubscribe, 0, len(c.cfg.Resources))
	for _, resource := range c.cfg.Resources {
		unsub, err := c.cfg.Feed.Subscribe(ctx, resource, boardID, func(ev feed.Event) {
			c.handle(watch, ev)
		})
		if err != nil {
			for _, u := range unsubs {
				u()
			}
			c.mu.Lock()
			if c.watch == watch {
				c.board = ""
			}
			c.mu.Unlock()
			return fmt.Errorf("watching %s of board %s: %w", resource, boardID, err)
		}
		unsubs = append(unsubs, unsub)
	}

	c.mu.Lock()
	if c.watch != watch {
		// Stopped or restarted while subscribing.
		c.mu.Unlock()
		for _, u := range unsubs {
			u()
		}
		return nil
	}
	c.unsubs = unsubs
	c.mu.Unlock()

	c.log.WithFields(logrus.Fields{"board": boardID, "resources": c.cfg.Resources}).Debug("watching board")
	return nil
}

// StopWatching cancels the pending timer and closes all subscriptions.
// It is safe to call when not watching.
func (c *Coordinator) StopWatching() {
	c.mu.Lock()
	old := c.stopLocked()
	c.watch++
	c.board = ""
	c.mu.Unlock()

	for _, unsub := range old {
		unsub()
	}
}

// stopLocked cancels the timer, drops the pending burst, and hands back the
// subscriptions to close once the lock is released.
func (c *Coordinator) stopLocked() []feed.Unsubscribe {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.gen++
	clear(c.pending)
	c.events = 0
	old := c.unsubs
	c.unsubs = nil
	return old
}

func (c *Coordinator) handle(watch uint64, ev feed.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if watch != c.watch {
		return
	}
	if ev.Scope != c.board {
		c.log.WithFields(logrus.Fields{"board": c.board, "scope": ev.Scope, "table": ev.Table}).
			Debug("ignoring event for another board")
		return
	}

	for _, k := range config.ExpandKeys(c.cfg.Keys[ev.Table], c.board) {
		c.pending[k] = struct{}{}
	}
	c.events++

	if c.timer != nil {
		c.timer.Stop()
	}
	c.gen++
	gen := c.gen
	c.timer = c.cfg.AfterFunc(c.cfg.Delay, func() { c.fire(gen) })
}

func (c *Coordinator) fire(gen uint64) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.gen++
	ctx := c.ctx
	d := Decision{
		Board:  c.board,
		Keys:   slices.Sorted(maps.Keys(c.pending)),
		Events: c.events,
	}
	clear(c.pending)
	c.events = 0
	c.mu.Unlock()

	log := c.log.WithFields(logrus.Fields{"board": d.Board, "events": d.Events})

	d.Active = c.cfg.Tracker.ActiveCount(mutation.Key{c.cfg.Operation, d.Board})
	switch {
	case d.Active > 0:
		d.Skipped = true
		log.WithField("active", d.Active).Debug("writes in flight; skipping invalidation")
	case len(d.Keys) == 0:
		log.Debug("no cache keys depend on changed resources")
	default:
		if err := c.cfg.Cache.Invalidate(ctx, d.Keys...); err != nil {
			d.Err = err
			log.WithError(err).Error("invalidation failed")
		} else {
			log.WithField("keys", d.Keys).Debug("invalidated")
		}
	}

	if c.cfg.OnDecision != nil {
		c.cfg.OnDecision(d)
	}
}
