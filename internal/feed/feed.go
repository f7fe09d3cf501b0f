// Package feed delivers row-level change notifications for board resources.
package feed

import (
	"context"
	"time"
)

// EventType is the kind of change reported for a record.
type EventType string

// Event types.
const (
	Insert EventType = "insert"
	Update EventType = "update"
	Delete EventType = "delete"
)

// Event is one change notification. Scope is the board the record belongs to.
type Event struct {
	Type     EventType `json:"eventType"`
	Table    string    `json:"table"`
	Scope    string    `json:"scope"`
	RecordID string    `json:"recordId,omitempty"`
	At       time.Time `json:"at"`
}

// Handler receives events for a subscription. Handlers run on the feed's
// delivery goroutine and must not block for long.
type Handler func(Event)

// Unsubscribe ends a subscription. Calling it more than once is a no-op.
type Unsubscribe func()

// Subscriber opens subscriptions to a resource within a scope.
type Subscriber interface {
	Subscribe(ctx context.Context, resource, scope string, onEvent Handler) (Unsubscribe, error)
}

// Publisher announces changes.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}
