package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/twiced-technology-gmbh/dubboard/internal/clierr"
)

// Redis is a feed over Redis pub/sub. Each resource and scope maps to the
// channel "<prefix>:<resource>:<scope>" carrying JSON-encoded events.
//
// Events published while a subscriber is disconnected are lost; go-redis
// re-subscribes after a reconnect and delivery resumes from there.
type Redis struct {
	rc     *redis.Client
	prefix string
	log    *logrus.Entry
}

// NewRedis returns a feed using rc. log may be nil.
func NewRedis(rc *redis.Client, prefix string, log *logrus.Entry) *Redis {
	if log == nil {
		log = logrus.StandardLogger().WithField("component", "feed")
	}
	return &Redis{rc: rc, prefix: prefix, log: log}
}

// Channel returns the pub/sub channel for resource in scope.
func (r *Redis) Channel(resource, scope string) string {
	return fmt.Sprintf("%s:%s:%s", r.prefix, resource, scope)
}

// Publish implements Publisher.
func (r *Redis) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	if err := r.rc.Publish(ctx, r.Channel(ev.Table, ev.Scope), data).Err(); err != nil {
		return clierr.Newf(clierr.FeedUnavailable, "publishing event: %v", err)
	}
	return nil
}

// Subscribe implements Subscriber. It returns once the server has confirmed
// the subscription.
func (r *Redis) Subscribe(ctx context.Context, resource, scope string, onEvent Handler) (Unsubscribe, error) {
	channel := r.Channel(resource, scope)
	sub := r.rc.Subscribe(ctx, channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, clierr.Newf(clierr.FeedUnavailable, "subscribing to %s: %v", channel, err).
			WithDetails(map[string]any{"channel": channel})
	}

	log := r.log.WithField("channel", channel)
	subCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ch := sub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					log.Warn("pubsub channel closed")
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					log.WithError(err).Error("unable to parse change event")
					continue
				}
				onEvent(ev)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			if err := sub.Close(); err != nil {
				log.WithError(err).Debug("closing subscription")
			}
			<-done
		})
	}, nil
}
