// internal/domain/message/service.go

package message

import (
	"context"

	"freedomwall/internal/domain/geo"
)

// EventType identifies a message event on the bus
type EventType string

const (
	EventCreated EventType = "created"
)

// Event is published whenever the wall changes
type Event struct {
	Type    EventType `json:"type"`
	Cell    string    `json:"cell,omitempty"`
	Message Message   `json:"message"`
}

// Store is the geospatial message store
type Store interface {
	// Nearby returns every message within radius meters of center,
	// measured geodesically. Order is store-defined.
	Nearby(ctx context.Context, center geo.Point, radius float64) ([]Message, error)

	// Insert stores a fully populated message and returns the stored record
	Insert(ctx context.Context, m Message) (*Message, error)

	// Ping checks that the store is reachable
	Ping(ctx context.Context) error
}

// Publisher broadcasts message events
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Subscriber delivers message events to a handler until the returned
// cancel func is called
type Subscriber interface {
	Subscribe(handler func(Event)) (cancel func(), err error)
}

// CapabilityChecker is implemented by stores whose nearby query depends on
// server-side features that may be missing
type CapabilityChecker interface {
	CheckNearby(ctx context.Context) error
}

// Service defines the interface for the wall
type Service interface {
	// ListNearby returns messages within radius meters of center.
	// On store failure it returns an empty slice and ErrNearbyUnavailable.
	ListNearby(ctx context.Context, center geo.Point, radius int) ([]Message, error)

	// Create stores a new anonymous message at a point
	Create(ctx context.Context, content string, point geo.Point) (*Message, error)
}
