// Package mutation tracks in-flight write operations per scope so that
// change-feed invalidations can be held back while a local write is pending.
package mutation

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Key identifies the scope of a write, e.g. {"update-task", boardID}.
// Keys form a hierarchy: a key matches every key it is a prefix of.
type Key []string

// String returns the key joined with "/".
func (k Key) String() string {
	return strings.Join(k, "/")
}

// HasPrefix reports whether k starts with prefix.
func (k Key) HasPrefix(prefix Key) bool {
	return len(prefix) <= len(k) && slices.Equal(k[:len(prefix)], prefix)
}

// Token identifies one in-flight write. It is returned by Begin and must be
// passed to End exactly once, whether the write succeeded or failed.
type Token struct {
	id      string
	key     Key
	started time.Time
}

// ID returns the token's unique id.
func (t Token) ID() string { return t.id }

// Key returns the scope the token was issued for.
func (t Token) Key() Key { return slices.Clone(t.key) }

// Started returns when the write began.
func (t Token) Started() time.Time { return t.started }

// Tracker is a registry of in-flight writes. It is safe for concurrent use.
type Tracker struct {
	mu          sync.Mutex
	live        map[string]Token
	maxLifetime time.Duration
	now         func() time.Time
	log         *logrus.Entry
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithMaxLifetime expires tokens older than d, so a write that never
// reports completion stops counting as active. 0 disables expiry.
func WithMaxLifetime(d time.Duration) Option {
	return func(t *Tracker) { t.maxLifetime = d }
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithLogger sets the logger.
func WithLogger(log *logrus.Entry) Option {
	return func(t *Tracker) { t.log = log }
}

// NewTracker returns an empty tracker.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		live: make(map[string]Token),
		now:  time.Now,
		log:  logrus.StandardLogger().WithField("component", "mutation"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Begin records the start of a write in scope key.
func (t *Tracker) Begin(key Key) Token {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.expireLocked()
	tok := Token{id: uuid.NewString(), key: slices.Clone(key), started: t.now()}
	t.live[tok.id] = tok
	t.log.WithFields(logrus.Fields{"key": key.String(), "token": tok.id}).Debug("mutation started")
	return tok
}

// End records the completion of the write identified by tok. It returns
// false, and changes nothing, if tok was already ended, expired, or never
// issued by this tracker.
func (t *Tracker) End(tok Token) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.live[tok.id]; !ok {
		t.log.WithFields(logrus.Fields{"key": tok.key.String(), "token": tok.id}).
			Debug("ignoring end of unknown mutation")
		return false
	}
	delete(t.live, tok.id)
	t.log.WithFields(logrus.Fields{
		"key":      tok.key.String(),
		"token":    tok.id,
		"duration": t.now().Sub(tok.started).String(),
	}).Debug("mutation finished")
	return true
}

// ActiveCount returns the number of in-flight writes whose key starts
// with key.
func (t *Tracker) ActiveCount(key Key) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.expireLocked()
	n := 0
	for _, tok := range t.live {
		if tok.key.HasPrefix(key) {
			n++
		}
	}
	return n
}

// Reset drops every in-flight write, as when the owning board is unmounted.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	clear(t.live)
}

func (t *Tracker) expireLocked() {
	if t.maxLifetime <= 0 {
		return
	}
	cutoff := t.now().Add(-t.maxLifetime)
	for id, tok := range t.live {
		if tok.started.Before(cutoff) {
			delete(t.live, id)
			t.log.WithFields(logrus.Fields{
				"key":     tok.key.String(),
				"token":   id,
				"started": tok.started.Format(time.RFC3339),
			}).Warn("mutation exceeded max lifetime; no longer suppressing invalidation")
		}
	}
}
