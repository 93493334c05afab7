// internal/adapter/storage/schema.go

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"freedomwall/internal/domain/message"
)

// txBeginner is satisfied by *pgxpool.Pool and pgx.Conn
type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// InitSchema installs PostGIS, the messages table and the nearby function.
// It is idempotent.
func InitSchema(ctx context.Context, db txBeginner) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	createExtensionQuery := `CREATE EXTENSION IF NOT EXISTS postgis;`

	createMessagesQuery := `
	CREATE TABLE IF NOT EXISTS messages (
		id uuid PRIMARY KEY,
		content text NOT NULL CHECK (length(btrim(content)) > 0),
		created_at timestamptz NOT NULL DEFAULT now(),
		location geography(Point, 4326) NOT NULL
	);
	`

	createIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_messages_location
	ON messages USING GIST (location);
	`

	createNearbyFunctionQuery := `
	CREATE OR REPLACE FUNCTION messages_nearby_with_coords(
		center_lat double precision,
		center_lng double precision,
		radius_meters double precision
	)
	RETURNS TABLE (
		id uuid,
		content text,
		created_at timestamptz,
		lat double precision,
		lng double precision
	)
	LANGUAGE sql STABLE AS $$
		SELECT
			m.id, m.content, m.created_at,
			ST_Y(m.location::geometry), ST_X(m.location::geometry)
		FROM messages m
		WHERE ST_DWithin(
			m.location,
			ST_SetSRID(ST_MakePoint(center_lng, center_lat), 4326)::geography,
			GREATEST(radius_meters, 0)
		)
		ORDER BY m.created_at DESC;
	$$;
	`

	statements := []string{
		createExtensionQuery,
		createMessagesQuery,
		createIndexQuery,
		createNearbyFunctionQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

// LoadSeed reads a JSON array of messages. Each entry may carry its location
// as GeoJSON, WKT or flat lat/lng. Missing ids and timestamps are filled in.
func LoadSeed(jsonPath string) ([]message.Message, error) {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("seed messages: read %q: %w", jsonPath, err)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(bytes, &raw); err != nil {
		return nil, fmt.Errorf("seed messages: parse json: %w", err)
	}

	now := time.Now().UTC()
	rows := make([]message.Message, 0, len(raw))
	for i, item := range raw {
		var m message.Message
		if err := json.Unmarshal(item, &m); err != nil {
			return nil, fmt.Errorf("seed messages: item at index %d: %w", i+1, err)
		}

		m.Content = strings.TrimSpace(m.Content)
		if err := message.ValidateContent(m.Content); err != nil {
			return nil, fmt.Errorf("seed messages: item at index %d: %w", i+1, err)
		}
		if m.ID == "" {
			m.ID = uuid.New().String()
		}
		if m.CreatedAt.IsZero() {
			m.CreatedAt = now
		}
		rows = append(rows, m)
	}

	return rows, nil
}

// SeedFromJSON populates the messages table from a JSON file. Rows whose id
// already exists are left untouched.
func SeedFromJSON(ctx context.Context, db txBeginner, jsonPath string) (int, error) {
	rows, err := LoadSeed(jsonPath)
	if err != nil {
		return 0, err
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("seed messages: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
	INSERT INTO messages (id, content, created_at, location)
	VALUES ($1, $2, $3, ST_GeogFromText($4))
	ON CONFLICT (id) DO NOTHING;
	`

	inserted := 0
	for _, m := range rows {
		tag, err := tx.Exec(ctx, query, m.ID, m.Content, m.CreatedAt, "SRID=4326;"+m.Position.WKT())
		if err != nil {
			return 0, fmt.Errorf("seed messages: insert id=%s: %w", m.ID, err)
		}
		inserted += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("seed messages: commit tx: %w", err)
	}

	return inserted, nil
}

// Seed inserts messages through any store, for drivers without SQL
func Seed(ctx context.Context, store message.Store, msgs []message.Message) error {
	for _, m := range msgs {
		if _, err := store.Insert(ctx, m); err != nil {
			return fmt.Errorf("seed messages: insert id=%s: %w", m.ID, err)
		}
	}
	return nil
}
