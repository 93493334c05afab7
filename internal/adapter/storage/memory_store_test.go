package storage

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"freedomwall/internal/domain/geo"
	"freedomwall/internal/domain/message"
)

func newMessage(id string, p geo.Point, at time.Time) message.Message {
	return message.Message{ID: id, Content: "msg " + id, CreatedAt: at, Position: p}
}

func TestMemoryStore_NearbyFiltersByDistance(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	center := geo.NewPoint(8.475, 124.646)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	_, err := s.Insert(ctx, newMessage("here", center, base))
	require.NoError(t, err)
	_, err = s.Insert(ctx, newMessage("north200", geo.NewPoint(8.4768, 124.646), base.Add(time.Minute)))
	require.NoError(t, err)
	_, err = s.Insert(ctx, newMessage("far", geo.NewPoint(10.3157, 123.8854), base))
	require.NoError(t, err)

	got, err := s.Nearby(ctx, center, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "here", got[0].ID)

	got, err = s.Nearby(ctx, center, 100)
	require.NoError(t, err)
	require.Len(t, got, 1)

	got, err = s.Nearby(ctx, center, 250)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "north200", got[0].ID, "newest first")

	// wide enough to skip the H3 lookup
	got, err = s.Nearby(ctx, center, 500_000)
	require.NoError(t, err)
	require.Len(t, got, 3)
}

func TestMemoryStore_EmptyIsNotNil(t *testing.T) {
	got, err := NewMemoryStore().Nearby(context.Background(), geo.NewPoint(0, 0), 1000)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestMemoryStore_InsertErrors(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	m := newMessage("a", geo.NewPoint(1, 1), time.Now())

	_, err := s.Insert(ctx, m)
	require.NoError(t, err)
	_, err = s.Insert(ctx, m)
	require.ErrorIs(t, err, ErrDuplicateID)

	_, err = s.Insert(ctx, newMessage("b", geo.Point{Lat: 120, Lng: 0}, time.Now()))
	require.ErrorIs(t, err, geo.ErrInvalidPoint)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = s.Insert(cancelled, newMessage("c", geo.NewPoint(1, 1), time.Now()))
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, 1, s.Len())
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	center := geo.NewPoint(14.5995, 120.9842)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_, err := s.Insert(ctx, newMessage(fmt.Sprintf("m%d", i), center, time.Now()))
			require.NoError(t, err)
		}(i)
		go func() {
			defer wg.Done()
			_, err := s.Nearby(ctx, center, 10)
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.Nearby(ctx, center, 10)
	require.NoError(t, err)
	require.Len(t, got, 50)
}
