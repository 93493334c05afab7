// internal/service/wall/service.go

package wall

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"freedomwall/internal/domain/geo"
	"freedomwall/internal/domain/message"
	"freedomwall/internal/logging"
	"freedomwall/internal/monitoring"
)

// Service implements the message.Service interface
type Service struct {
	store     message.Store
	publisher message.Publisher
	metrics   *monitoring.MetricsCollector
	logger    logging.Logger

	now   func() time.Time
	newID func() string
}

// Option configures a Service
type Option func(*Service)

// WithPublisher broadcasts created messages
func WithPublisher(p message.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithMetrics records service metrics
func WithMetrics(mc *monitoring.MetricsCollector) Option {
	return func(s *Service) { s.metrics = mc }
}

// WithLogger sets the logger
func WithLogger(l logging.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock overrides the creation timestamp source
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new wall service
func NewService(store message.Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: logging.Discard(),
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListNearby returns messages within radius meters of center. A negative
// radius is treated as zero. Store failures yield an empty slice wrapped
// with message.ErrNearbyUnavailable so callers can tell "nothing here" from
// "could not look".
func (s *Service) ListNearby(ctx context.Context, center geo.Point, radius int) ([]message.Message, error) {
	if radius < 0 {
		radius = 0
	}

	if !center.Valid() {
		s.logger.WithFields(logrus.Fields{"lat": center.Lat, "lng": center.Lng}).Debug("nearby query outside WGS84 bounds")
		s.metrics.ObserveNearby(0)
		return []message.Message{}, nil
	}

	msgs, err := s.store.Nearby(ctx, center, float64(radius))
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"lat":    center.Lat,
			"lng":    center.Lng,
			"radius": radius,
		}).Warn("nearby query failed, answering empty")
		s.metrics.NearbyDegraded()
		return []message.Message{}, fmt.Errorf("%w: %w", message.ErrNearbyUnavailable, err)
	}

	if msgs == nil {
		msgs = []message.Message{}
	}
	s.metrics.ObserveNearby(len(msgs))

	return msgs, nil
}

// Create validates and stores a new message, then announces it on the bus.
// Publishing is best effort and never fails the call.
func (s *Service) Create(ctx context.Context, content string, point geo.Point) (*message.Message, error) {
	if err := message.ValidateContent(content); err != nil {
		return nil, err
	}
	if err := message.ValidatePoint(point); err != nil {
		return nil, err
	}

	m := message.Message{
		ID:        s.newID(),
		Content:   content,
		CreatedAt: s.now().UTC(),
		Position:  point,
	}

	stored, err := s.store.Insert(ctx, m)
	if err != nil {
		s.logger.WithError(err).WithField("message_id", m.ID).Error("storing message")
		return nil, fmt.Errorf("%w: %w", message.ErrStore, err)
	}
	s.metrics.MessageCreated()

	s.publishCreated(ctx, *stored)

	return stored, nil
}

// publishCreated publishes a created event to the event bus
func (s *Service) publishCreated(ctx context.Context, m message.Message) {
	if s.publisher == nil {
		return
	}

	event := message.Event{Type: message.EventCreated, Message: m}
	if cell, err := geo.Cell(m.Position, geo.DefaultResolution); err == nil {
		event.Cell = cell.String()
	}

	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WithError(err).WithField("message_id", m.ID).Warn("publishing message created event")
	}
}
