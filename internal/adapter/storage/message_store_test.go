package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/stretchr/testify/require"

	"freedomwall/internal/domain/geo"
	"freedomwall/internal/domain/message"
)

type fakeRow struct {
	values []interface{}
	err    error
}

func (r fakeRow) Scan(dest ...interface{}) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		reflect.ValueOf(d).Elem().Set(reflect.ValueOf(r.values[i]))
	}
	return nil
}

type fakeQuerier struct {
	row      fakeRow
	queryErr error
	pingErr  error

	lastSQL  string
	lastArgs []interface{}
}

func (q *fakeQuerier) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	q.lastSQL, q.lastArgs = sql, args
	return nil, q.queryErr
}

func (q *fakeQuerier) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	q.lastSQL, q.lastArgs = sql, args
	return q.row
}

func (q *fakeQuerier) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	return nil, nil
}

func (q *fakeQuerier) Ping(ctx context.Context) error {
	return q.pingErr
}

func TestMessageStore_InsertUsesLngLatOrder(t *testing.T) {
	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	q := &fakeQuerier{row: fakeRow{values: []interface{}{"id-1", "hello", at, 8.475, 124.646}}}
	s := NewMessageStore(q)

	stored, err := s.Insert(context.Background(), message.Message{
		ID: "id-1", Content: "hello", CreatedAt: at, Position: geo.NewPoint(8.475, 124.646),
	})
	require.NoError(t, err)
	require.Equal(t, geo.NewPoint(8.475, 124.646), stored.Position)
	require.Equal(t, "SRID=4326;POINT(124.646 8.475)", q.lastArgs[3])
}

func TestMessageStore_InsertError(t *testing.T) {
	q := &fakeQuerier{row: fakeRow{err: errors.New("connection reset")}}
	_, err := NewMessageStore(q).Insert(context.Background(), message.Message{ID: "x", Position: geo.NewPoint(0, 0)})
	require.ErrorContains(t, err, "connection reset")
}

func TestMessageStore_NearbyFunctionMissing(t *testing.T) {
	q := &fakeQuerier{queryErr: &pgconn.PgError{Code: "42883", Message: "function messages_nearby_with_coords does not exist"}}

	_, err := NewMessageStore(q).Nearby(context.Background(), geo.NewPoint(8.475, 124.646), 100)
	require.ErrorIs(t, err, ErrNearbyFunctionMissing)
	require.Equal(t, []interface{}{8.475, 124.646, 100.0}, q.lastArgs)
}

func TestMessageStore_NearbyOtherError(t *testing.T) {
	q := &fakeQuerier{queryErr: errors.New("timeout")}
	_, err := NewMessageStore(q).Nearby(context.Background(), geo.NewPoint(0, 0), 0)
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrNearbyFunctionMissing))
}

func TestMessageStore_CheckNearby(t *testing.T) {
	q := &fakeQuerier{row: fakeRow{values: []interface{}{false}}}
	require.ErrorIs(t, NewMessageStore(q).CheckNearby(context.Background()), ErrNearbyFunctionMissing)

	q.row = fakeRow{values: []interface{}{true}}
	require.NoError(t, NewMessageStore(q).CheckNearby(context.Background()))
}

func TestClassify(t *testing.T) {
	plain := errors.New("boom")
	require.Equal(t, plain, classify(plain))

	missing := classify(&pgconn.PgError{Code: "42P01"})
	require.ErrorContains(t, missing, "messages table missing")
}

func TestLoadSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.json")
	body := `[
		{"content": "from geojson", "location": {"type": "Point", "coordinates": [124.646, 8.475]}},
		{"id": "fixed", "content": "from wkt", "location": "POINT(124.6465 8.4755)", "created_at": "2026-01-01T00:00:00Z"},
		{"content": "  flat  ", "lat": "8.476", "lng": 124.647}
	]`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	msgs, err := LoadSeed(path)
	require.NoError(t, err)
	require.Len(t, msgs, 3)

	require.NotEmpty(t, msgs[0].ID)
	require.False(t, msgs[0].CreatedAt.IsZero())
	require.Equal(t, geo.NewPoint(8.475, 124.646), msgs[0].Position)
	require.Equal(t, "fixed", msgs[1].ID)
	require.Equal(t, "flat", msgs[2].Content)
	require.Equal(t, geo.NewPoint(8.476, 124.647), msgs[2].Position)

	store := NewMemoryStore()
	require.NoError(t, Seed(context.Background(), store, msgs))
	require.Equal(t, 3, store.Len())
}

func TestLoadSeed_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadSeed(filepath.Join(dir, "missing.json"))
	require.Error(t, err)

	unlocatable := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(unlocatable, []byte(`[{"content":"nowhere"}]`), 0o600))
	_, err = LoadSeed(unlocatable)
	require.ErrorIs(t, err, message.ErrUnlocatable)

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`[{"content":" ","lat":1,"lng":1}]`), 0o600))
	_, err = LoadSeed(empty)
	require.ErrorIs(t, err, message.ErrEmptyContent)
}
