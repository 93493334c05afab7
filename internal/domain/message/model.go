// internal/domain/message/model.go

package message

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf16"

	"freedomwall/internal/domain/geo"
)

// MaxContentLength is the content limit in UTF-16 code units
const MaxContentLength = 280

// Common errors
var (
	ErrEmptyContent      = errors.New("content is required")
	ErrContentTooLong    = fmt.Errorf("content exceeds %d characters", MaxContentLength)
	ErrInvalidPoint      = errors.New("lat must be within [-90,90] and lng within [-180,180]")
	ErrNearbyUnavailable = errors.New("nearby messages unavailable")
	ErrStore             = errors.New("failed to post message")
	ErrUnlocatable       = errors.New("message location cannot be resolved")
)

// Message is an anonymous post pinned to a geographic point.
// Messages are immutable once created.
type Message struct {
	ID        string
	Content   string
	CreatedAt time.Time
	Position  geo.Point
}

// wireMessage is the JSON shape shared by the HTTP API and its clients.
// The position is sent both as WKT and as flat fields.
type wireMessage struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Location  string    `json:"location"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
}

// MarshalJSON encodes the message with its position in every accepted shape
func (m Message) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireMessage{
		ID:        m.ID,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
		Location:  m.Position.WKT(),
		Lat:       m.Position.Lat,
		Lng:       m.Position.Lng,
	})
}

// UnmarshalJSON decodes a message whose location may be GeoJSON, WKT or flat
// fields. It returns ErrUnlocatable when no shape resolves to a valid point.
func (m *Message) UnmarshalJSON(data []byte) error {
	var head struct {
		ID        string    `json:"id"`
		Content   string    `json:"content"`
		CreatedAt time.Time `json:"created_at"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}

	var loc geo.Location
	if err := json.Unmarshal(data, &loc); err != nil {
		return err
	}

	p, ok := geo.Normalize(loc)
	if !ok {
		return fmt.Errorf("message %q: %w", head.ID, ErrUnlocatable)
	}

	*m = Message{
		ID:        head.ID,
		Content:   head.Content,
		CreatedAt: head.CreatedAt,
		Position:  p,
	}
	return nil
}

// ContentLength counts content the way browsers do, in UTF-16 code units
func ContentLength(content string) int {
	return len(utf16.Encode([]rune(content)))
}

// ValidateContent checks a message body before it is stored
func ValidateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrEmptyContent
	}
	if ContentLength(content) > MaxContentLength {
		return ErrContentTooLong
	}
	return nil
}

// ValidatePoint checks that a point is finite and inside WGS84 bounds
func ValidatePoint(p geo.Point) error {
	if !p.Valid() {
		return ErrInvalidPoint
	}
	return nil
}
