// internal/adapter/events/nats_bus.go

package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"

	"freedomwall/internal/domain/message"
	"freedomwall/internal/logging"
)

// NATSBus publishes and subscribes to message events over NATS
type NATSBus struct {
	conn   *nats.Conn
	topic  string
	logger logging.Logger
}

// NewNATSBus creates a bus on an existing connection. Events go to
// "<topic>.<event type>".
func NewNATSBus(conn *nats.Conn, topic string, logger logging.Logger) *NATSBus {
	return &NATSBus{
		conn:   conn,
		topic:  topic,
		logger: logger,
	}
}

// Subject returns the subject an event type is published on
func (b *NATSBus) Subject(eventType message.EventType) string {
	return fmt.Sprintf("%s.%s", b.topic, eventType)
}

// Publish publishes an event to the event bus
func (b *NATSBus) Publish(ctx context.Context, event message.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("error encoding event: %w", err)
	}

	if err := b.conn.Publish(b.Subject(event.Type), data); err != nil {
		return fmt.Errorf("error publishing event: %w", err)
	}

	return nil
}

// Subscribe delivers created events to handler until cancel is called.
// Undecodable payloads are logged and skipped.
func (b *NATSBus) Subscribe(handler func(message.Event)) (func(), error) {
	sub, err := b.conn.Subscribe(b.Subject(message.EventCreated), func(msg *nats.Msg) {
		var event message.Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			entry := b.logger.WithError(err).WithField("subject", msg.Subject)
			if errors.Is(err, message.ErrUnlocatable) {
				entry.Debug("skipping event without a location")
				return
			}
			entry.Warn("skipping malformed event")
			return
		}
		handler(event)
	})
	if err != nil {
		return nil, fmt.Errorf("error subscribing to %s: %w", b.Subject(message.EventCreated), err)
	}

	return func() {
		if err := sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			b.logger.WithError(err).Debug("unsubscribing live feed")
		}
	}, nil
}
