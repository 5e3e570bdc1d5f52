package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/terra-clan/trivia-engine/internal/models"
)

// DefaultEventsChannel is the pub/sub channel session events go to
const DefaultEventsChannel = "trivia:events"

// EventType names a session lifecycle event
type EventType string

const (
	EventSessionStarted   EventType = "session.started"
	EventAnswerSubmitted  EventType = "answer.submitted"
	EventTierPromoted     EventType = "tier.promoted"
	EventSessionCompleted EventType = "session.completed"
)

// Event is published after a session changed
type Event struct {
	Type      EventType   `json:"type"`
	SessionID string      `json:"session_id"`
	Tier      models.Tier `json:"tier"`
	Answered  int         `json:"answered"`
	Correct   *bool       `json:"correct,omitempty"`
	At        time.Time   `json:"at"`
}

// Publisher publishes session events
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// EventBus publishes events as JSON on a Redis channel
type EventBus struct {
	client  Client
	channel string
}

// NewEventBus creates a Redis pub/sub publisher
func NewEventBus(client Client, channel string) *EventBus {
	if channel == "" {
		channel = DefaultEventsChannel
	}
	return &EventBus{client: client, channel: channel}
}

// Publish implements Publisher
func (b *EventBus) Publish(ctx context.Context, event Event) error {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}

	return nil
}

// NopBus discards events
type NopBus struct{}

// Publish implements Publisher
func (NopBus) Publish(context.Context, Event) error { return nil }
