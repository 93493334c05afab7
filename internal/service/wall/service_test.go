package wall

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"freedomwall/internal/adapter/storage"
	"freedomwall/internal/domain/geo"
	"freedomwall/internal/domain/message"
)

type failingStore struct {
	err error
}

func (s failingStore) Nearby(ctx context.Context, center geo.Point, radius float64) ([]message.Message, error) {
	return nil, s.err
}

func (s failingStore) Insert(ctx context.Context, m message.Message) (*message.Message, error) {
	return nil, s.err
}

func (s failingStore) Ping(ctx context.Context) error { return s.err }

type recordingPublisher struct {
	mu     sync.Mutex
	events []message.Event
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event message.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

var cdo = geo.NewPoint(8.475, 124.646)

func TestService_CreateThenListNearby(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2026, 2, 14, 9, 30, 0, 0, time.FixedZone("PHT", 8*3600))
	pub := &recordingPublisher{}
	svc := NewService(storage.NewMemoryStore(), WithPublisher(pub), WithClock(func() time.Time { return fixed }))

	created, err := svc.Create(ctx, "hello", cdo)
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.Equal(t, "hello", created.Content)
	require.Equal(t, time.UTC, created.CreatedAt.Location())
	require.True(t, created.CreatedAt.Equal(fixed))

	got, err := svc.ListNearby(ctx, cdo, 100)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, created.ID, got[0].ID)

	require.Len(t, pub.events, 1)
	require.Equal(t, message.EventCreated, pub.events[0].Type)
	require.NotEmpty(t, pub.events[0].Cell)
	require.Equal(t, created.ID, pub.events[0].Message.ID)
}

func TestService_ListNearbyRadius(t *testing.T) {
	ctx := context.Background()
	svc := NewService(storage.NewMemoryStore())

	_, err := svc.Create(ctx, "exact", cdo)
	require.NoError(t, err)
	_, err = svc.Create(ctx, "two hundred meters north", geo.NewPoint(8.4768, 124.646))
	require.NoError(t, err)

	got, err := svc.ListNearby(ctx, cdo, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "exact", got[0].Content)

	got, err = svc.ListNearby(ctx, cdo, -50)
	require.NoError(t, err)
	require.Len(t, got, 1, "negative radius behaves like zero")

	got, err = svc.ListNearby(ctx, cdo, 100)
	require.NoError(t, err)
	require.Len(t, got, 1)

	got, err = svc.ListNearby(ctx, cdo, 250)
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestService_ListNearbyOutOfBoundsCenter(t *testing.T) {
	svc := NewService(failingStore{err: errors.New("should not be called")})

	got, err := svc.ListNearby(context.Background(), geo.Point{Lat: 200, Lng: 0}, 100)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestService_ListNearbyStoreFailure(t *testing.T) {
	cause := errors.New("function messages_nearby_with_coords does not exist")
	svc := NewService(failingStore{err: cause})

	got, err := svc.ListNearby(context.Background(), cdo, 100)
	require.ErrorIs(t, err, message.ErrNearbyUnavailable)
	require.ErrorIs(t, err, cause)
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestService_CreateValidation(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	svc := NewService(store)

	_, err := svc.Create(ctx, "  ", cdo)
	require.ErrorIs(t, err, message.ErrEmptyContent)

	_, err = svc.Create(ctx, strings.Repeat("x", message.MaxContentLength+1), cdo)
	require.ErrorIs(t, err, message.ErrContentTooLong)

	_, err = svc.Create(ctx, "hi", geo.Point{Lat: 8.475, Lng: 190})
	require.ErrorIs(t, err, message.ErrInvalidPoint)

	require.Equal(t, 0, store.Len())
}

func TestService_CreateStoreFailure(t *testing.T) {
	pub := &recordingPublisher{}
	svc := NewService(failingStore{err: errors.New("disk full")}, WithPublisher(pub))

	_, err := svc.Create(context.Background(), "hello", cdo)
	require.ErrorIs(t, err, message.ErrStore)
	require.Empty(t, pub.events)
}

func TestService_PublishFailureDoesNotFailCreate(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("nats down")}
	svc := NewService(storage.NewMemoryStore(), WithPublisher(pub))

	created, err := svc.Create(context.Background(), "still stored", cdo)
	require.NoError(t, err)
	require.NotNil(t, created)
}
