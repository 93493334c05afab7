package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"freedomwall/internal/adapter/events"
	"freedomwall/internal/domain/geo"
	"freedomwall/internal/domain/message"
	"freedomwall/internal/logging"
)

func dialLive(t *testing.T, bus *events.LocalBus, query string) *websocket.Conn {
	t.Helper()

	h := NewLiveHandler(bus, logging.Discard(), nil, DefaultWebSocketConfig(), 5000)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]json.RawMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame map[string]json.RawMessage
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func publish(t *testing.T, bus *events.LocalBus, id string, p geo.Point) {
	t.Helper()
	require.NoError(t, bus.Publish(context.Background(), message.Event{
		Type:    message.EventCreated,
		Message: message.Message{ID: id, Content: id, CreatedAt: time.Now().UTC(), Position: p},
	}))
}

func TestLiveHandler_FiltersByDistance(t *testing.T) {
	bus := events.NewLocalBus()
	conn := dialLive(t, bus, "lat=8.475&lng=124.646&radius=500")

	welcome := readFrame(t, conn)
	require.JSONEq(t, `"welcome"`, string(welcome["type"]))
	require.JSONEq(t, `{"lat":8.475,"lng":124.646,"radius":500}`, string(welcome["viewport"]))

	publish(t, bus, "far", geo.NewPoint(10.3157, 123.8854))
	publish(t, bus, "near", geo.NewPoint(8.476, 124.646))

	frame := readFrame(t, conn)
	require.JSONEq(t, `"message"`, string(frame["type"]))

	var m message.Message
	require.NoError(t, json.Unmarshal(frame["message"], &m))
	require.Equal(t, "near", m.ID)
}

func TestLiveHandler_ViewportUpdate(t *testing.T) {
	bus := events.NewLocalBus()
	conn := dialLive(t, bus, "lat=8.475&lng=124.646&radius=100")
	readFrame(t, conn)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type": "viewport",
		"lat":  10.3157,
		"lng":  123.8854,
		"ne":   map[string]float64{"lat": 10.33, "lng": 123.90},
		"sw":   map[string]float64{"lat": 10.30, "lng": 123.87},
	}))

	// the update is applied asynchronously; keep publishing until it lands
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				_ = bus.Publish(context.Background(), message.Event{
					Type:    message.EventCreated,
					Message: message.Message{ID: "cebu", Position: geo.NewPoint(10.3157, 123.8854)},
				})
			}
		}
	}()

	frame := readFrame(t, conn)
	require.JSONEq(t, `"message"`, string(frame["type"]))
}
