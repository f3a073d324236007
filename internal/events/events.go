// Package events publishes account lifecycle events to a message broker
// so downstream services (analytics, CRM sync, moderation) can react to
// signups and verifications without polling the database.
package events

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// Account event types published on the configured channel.
const (
	TypeUserCreated       = "user.created"
	TypePhoneVerified     = "user.phone_verified"
	TypeEmailVerified     = "user.email_verified"
	TypeTwoFactorEnabled  = "user.twofactor_enabled"
	TypeTwoFactorDisabled = "user.twofactor_disabled"
)

const attrEventType = "event_type"

// Event is a single account lifecycle notification.
type Event struct {
	Type       string    `json:"type"`
	UserID     string    `json:"userId"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Message represents a broker-agnostic payload delivered to subscribers.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. Return an error to signal a retry/nack.
type Handler func(ctx context.Context, msg Message) error

// Backend defines the broker-agnostic operations used by the publisher.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// Publisher emits account events on a single channel. Publishing is
// best-effort: failures are logged and never surfaced to the request
// that triggered them. A nil Publisher is a no-op.
type Publisher struct {
	backend Backend
	channel string
	logger  *zap.Logger
	now     func() time.Time
}

func NewPublisher(backend Backend, channel string, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		backend: backend,
		channel: channel,
		logger:  logger,
		now:     time.Now,
	}
}

// Emit publishes an account event of the given type for the user.
func (p *Publisher) Emit(ctx context.Context, eventType, userID string) {
	if p == nil || p.backend == nil {
		return
	}

	event := Event{
		Type:       eventType,
		UserID:     userID,
		OccurredAt: p.now(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("marshal account event", zap.String("type", eventType), zap.Error(err))
		return
	}

	attrs := map[string]string{attrEventType: eventType}
	if _, err := p.backend.Publish(ctx, p.channel, data, attrs); err != nil {
		p.logger.Error("publish account event",
			zap.String("type", eventType),
			zap.String("userId", userID),
			zap.Error(err),
		)
	}
}

// Subscribe consumes account events from the publisher's channel.
func (p *Publisher) Subscribe(ctx context.Context, handler Handler) error {
	return p.backend.Subscribe(ctx, p.channel, handler)
}

// Close closes the underlying backend.
func (p *Publisher) Close() error {
	if p == nil || p.backend == nil {
		return nil
	}
	return p.backend.Close()
}
