// internal/adapter/storage/message_store.go

package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"

	"freedomwall/internal/domain/geo"
	"freedomwall/internal/domain/message"
)

// SQLSTATE codes the store distinguishes
const (
	codeUndefinedFunction = "42883"
	codeUndefinedTable    = "42P01"
)

// ErrNearbyFunctionMissing is returned when messages_nearby_with_coords is
// not installed in the database
var ErrNearbyFunctionMissing = errors.New("nearby function messages_nearby_with_coords is not installed")

// querier is the subset of *pgxpool.Pool the store uses
type querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
}

// MessageStore implements message.Store on PostGIS
type MessageStore struct {
	db querier
}

// NewMessageStore creates a new message store. db is normally a *pgxpool.Pool.
func NewMessageStore(db querier) *MessageStore {
	return &MessageStore{
		db: db,
	}
}

// Insert stores a message. The location is built from WKT so longitude
// always comes first.
func (s *MessageStore) Insert(ctx context.Context, m message.Message) (*message.Message, error) {
	query := `
		INSERT INTO messages (id, content, created_at, location)
		VALUES ($1, $2, $3, ST_GeogFromText($4))
		RETURNING
			id::text, content, created_at,
			ST_Y(location::geometry) as lat, ST_X(location::geometry) as lng
	`

	var stored message.Message
	var lat, lng float64
	err := s.db.QueryRow(ctx, query,
		m.ID,
		m.Content,
		m.CreatedAt,
		"SRID=4326;"+m.Position.WKT(),
	).Scan(&stored.ID, &stored.Content, &stored.CreatedAt, &lat, &lng)
	if err != nil {
		return nil, fmt.Errorf("error inserting message: %w", err)
	}

	stored.Position = geo.NewPoint(lat, lng)
	stored.CreatedAt = stored.CreatedAt.UTC()

	return &stored, nil
}

// Nearby finds messages within radius meters of center through the
// messages_nearby_with_coords function
func (s *MessageStore) Nearby(ctx context.Context, center geo.Point, radius float64) ([]message.Message, error) {
	query := `
		SELECT id::text, content, created_at, lat, lng
		FROM messages_nearby_with_coords($1, $2, $3)
	`

	rows, err := s.db.Query(ctx, query, center.Lat, center.Lng, radius)
	if err != nil {
		return nil, fmt.Errorf("error executing nearby query: %w", classify(err))
	}
	defer rows.Close()

	messages := []message.Message{}
	for rows.Next() {
		var m message.Message
		var lat, lng *float64

		if err := rows.Scan(&m.ID, &m.Content, &m.CreatedAt, &lat, &lng); err != nil {
			return nil, fmt.Errorf("error scanning message: %w", err)
		}

		// rows without a usable location never leave the store
		if lat == nil || lng == nil || !geo.IsValidLatLng(*lat, *lng) {
			continue
		}

		m.Position = geo.NewPoint(*lat, *lng)
		m.CreatedAt = m.CreatedAt.UTC()
		messages = append(messages, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", classify(err))
	}

	return messages, nil
}

// Ping checks database connectivity
func (s *MessageStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// CheckNearby verifies that the nearby function exists
func (s *MessageStore) CheckNearby(ctx context.Context) error {
	var present bool
	err := s.db.QueryRow(ctx,
		`SELECT to_regprocedure('messages_nearby_with_coords(double precision, double precision, double precision)') IS NOT NULL`,
	).Scan(&present)
	if err != nil {
		return fmt.Errorf("error checking nearby function: %w", err)
	}
	if !present {
		return ErrNearbyFunctionMissing
	}
	return nil
}

// classify maps well-known postgres errors onto store sentinels
func classify(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case codeUndefinedFunction:
		return fmt.Errorf("%w: %s", ErrNearbyFunctionMissing, pgErr.Message)
	case codeUndefinedTable:
		return fmt.Errorf("messages table missing, run dbtool: %w", err)
	}

	return err
}
