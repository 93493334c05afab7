// internal/adapter/storage/memory_store.go

package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/uber/h3-go/v4"

	"freedomwall/internal/domain/geo"
	"freedomwall/internal/domain/message"
)

// maxDiskRings bounds the H3 lookup; wider searches scan every message
const maxDiskRings = 40

// ErrDuplicateID is returned when a message id is already stored
var ErrDuplicateID = errors.New("message id already exists")

// MemoryStore implements message.Store in process, bucketing messages by
// H3 cell and filtering candidates by haversine distance
type MemoryStore struct {
	mu    sync.RWMutex
	cells map[h3.Cell][]message.Message
	ids   map[string]struct{}
}

// NewMemoryStore creates an empty memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cells: make(map[h3.Cell][]message.Message),
		ids:   make(map[string]struct{}),
	}
}

// Insert stores a message
func (s *MemoryStore) Insert(ctx context.Context, m message.Message) (*message.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cell, err := geo.Cell(m.Position, geo.DefaultResolution)
	if err != nil {
		return nil, fmt.Errorf("error indexing message: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ids[m.ID]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateID, m.ID)
	}

	s.ids[m.ID] = struct{}{}
	s.cells[cell] = append(s.cells[cell], m)

	stored := m
	return &stored, nil
}

// Nearby returns messages within radius meters of center, newest first
func (s *MemoryStore) Nearby(ctx context.Context, center geo.Point, radius float64) ([]message.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if radius < 0 {
		radius = 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var candidates [][]message.Message
	if geo.Rings(radius) > maxDiskRings {
		for _, bucket := range s.cells {
			candidates = append(candidates, bucket)
		}
	} else {
		cells, err := geo.Disk(center, radius)
		if err != nil {
			return nil, fmt.Errorf("error computing search cells: %w", err)
		}
		for _, cell := range cells {
			if bucket, ok := s.cells[cell]; ok {
				candidates = append(candidates, bucket)
			}
		}
	}

	messages := []message.Message{}
	for _, bucket := range candidates {
		for _, m := range bucket {
			if geo.Within(center, m.Position, radius) {
				messages = append(messages, m)
			}
		}
	}

	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].CreatedAt.After(messages[j].CreatedAt)
	})

	return messages, nil
}

// Ping always succeeds
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Len returns the number of stored messages
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}
