// Package notifications publishes post activity events over Redis pub/sub.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"

	"postboard/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// PostEventsChannel carries every post, comment and like event.
const PostEventsChannel = "events:posts"

const (
	EventPostCreated    = "post_created"
	EventPostDeleted    = "post_deleted"
	EventCommentCreated = "comment_created"
	EventCommentDeleted = "comment_deleted"
	EventLikeCreated    = "like_created"
)

// Event is the JSON envelope published on PostEventsChannel.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Notifier provides helpers to publish notifications into Redis channels.
// A Notifier with a nil client drops every event.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Publish sends an event of the given type. payload is marshalled to JSON.
func (n *Notifier) Publish(ctx context.Context, eventType string, payload any) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	msg, err := json.Marshal(Event{Type: eventType, Payload: raw})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return n.rdb.Publish(ctx, PostEventsChannel, msg).Err()
}

// PublishBestEffort publishes an event and logs, rather than returns, failures.
// Callers use it after the originating transaction has committed.
func (n *Notifier) PublishBestEffort(ctx context.Context, eventType string, payload any) {
	if err := n.Publish(ctx, eventType, payload); err != nil {
		middleware.Logger.WarnContext(ctx, "event publish failed",
			slog.String("event", eventType),
			slog.String("error", err.Error()),
		)
	}
}

// Subscribe listens on PostEventsChannel until ctx is done, calling onEvent
// for each decoded event. It returns once the subscription is confirmed.
func (n *Notifier) Subscribe(ctx context.Context, onEvent func(Event)) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.Subscribe(ctx, PostEventsChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", PostEventsChannel, err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var evt Event
				if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
					middleware.Logger.Warn("dropping malformed event", slog.String("error", err.Error()))
					continue
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in event subscriber",
								slog.Any("panic", r),
								slog.String("stack", string(debug.Stack())),
							)
						}
					}()
					onEvent(evt)
				}()
			}
		}
	}()

	return nil
}
