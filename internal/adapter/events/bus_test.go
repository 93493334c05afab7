package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"freedomwall/internal/domain/geo"
	"freedomwall/internal/domain/message"
	"freedomwall/internal/logging"
)

func TestLocalBus_FanOutAndCancel(t *testing.T) {
	bus := NewLocalBus()
	var a, b []message.Event

	cancelA, err := bus.Subscribe(func(e message.Event) { a = append(a, e) })
	require.NoError(t, err)
	_, err = bus.Subscribe(func(e message.Event) { b = append(b, e) })
	require.NoError(t, err)

	event := message.Event{Type: message.EventCreated, Message: message.Message{ID: "1", Position: geo.NewPoint(1, 2)}}
	require.NoError(t, bus.Publish(context.Background(), event))

	cancelA()
	cancelA()
	require.NoError(t, bus.Publish(context.Background(), event))

	require.Len(t, a, 1)
	require.Len(t, b, 2)
}

func TestNATSBus_Subject(t *testing.T) {
	bus := NewNATSBus(nil, "wall.messages", logging.Discard())
	require.Equal(t, "wall.messages.created", bus.Subject(message.EventCreated))
}

func TestEvent_WireFormat(t *testing.T) {
	event := message.Event{
		Type: message.EventCreated,
		Cell: "87654321fffffff",
		Message: message.Message{
			ID:        "1",
			Content:   "hi",
			CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			Position:  geo.NewPoint(8.475, 124.646),
		},
	}

	data, err := json.Marshal(event)
	require.NoError(t, err)

	var back message.Event
	require.NoError(t, json.Unmarshal(data, &back))
	require.Equal(t, event, back)
}
