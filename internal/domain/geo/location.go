// internal/domain/geo/location.go

package geo

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/paulmach/orb/encoding/wkt"
)

// GeoJSONPoint is a GeoJSON-like point. Coordinates are in [lng, lat] order.
type GeoJSONPoint struct {
	Type        string    `json:"type,omitempty"`
	Coordinates []float64 `json:"coordinates"`
}

// Location is a heterogeneous location value as it may arrive from a store or
// a client. Any combination of the three shapes may be populated; Normalize
// decides which one wins.
type Location struct {
	GeoJSON *GeoJSONPoint
	WKT     string
	Lat     *float64
	Lng     *float64
}

// FromPoint builds a Location carrying only flat fields
func FromPoint(p Point) Location {
	lat, lng := p.Lat, p.Lng
	return Location{Lat: &lat, Lng: &lng}
}

// Normalize resolves a Location into a Point.
//
// Shapes are tried in fixed priority: GeoJSON point, WKT POINT(lng lat), flat
// lat/lng fields. The first shape that parses into a finite, in-range point
// wins; anything malformed counts as no match and falls through. The boolean
// is false when nothing resolves.
func Normalize(loc Location) (Point, bool) {
	if p, ok := fromGeoJSON(loc.GeoJSON); ok {
		return p, true
	}
	if p, ok := fromWKT(loc.WKT); ok {
		return p, true
	}
	if p, ok := fromFields(loc.Lat, loc.Lng); ok {
		return p, true
	}
	return Point{}, false
}

// Position resolves a Location, falling back to (0, 0) when nothing resolves.
// The fallback places unresolvable records at the origin; callers that can
// omit a record should use Normalize instead.
func Position(loc Location) Point {
	p, _ := Normalize(loc)
	return p
}

func fromGeoJSON(g *GeoJSONPoint) (Point, bool) {
	if g == nil || len(g.Coordinates) != 2 {
		return Point{}, false
	}
	if g.Type != "" && !strings.EqualFold(g.Type, "Point") {
		return Point{}, false
	}

	p := Point{Lat: g.Coordinates[1], Lng: g.Coordinates[0]}
	return p, p.Valid()
}

func fromWKT(s string) (Point, bool) {
	upper := strings.ToUpper(s)
	start := strings.Index(upper, "POINT")
	if start < 0 {
		return Point{}, false
	}
	end := strings.IndexByte(upper[start:], ')')
	if end < 0 {
		return Point{}, false
	}

	// Anything around the POINT(...) token, such as an SRID=4326; prefix, is ignored.
	op, err := wkt.UnmarshalPoint(upper[start : start+end+1])
	if err != nil {
		return Point{}, false
	}

	p := Point{Lat: op.Lat(), Lng: op.Lon()}
	return p, p.Valid()
}

func fromFields(lat, lng *float64) (Point, bool) {
	if lat == nil || lng == nil {
		return Point{}, false
	}

	p := Point{Lat: *lat, Lng: *lng}
	return p, p.Valid()
}

// UnmarshalJSON decodes a message-like record of the form
//
//	{"location": {...} | "POINT(lng lat)", "lat": 1.0, "lng": 2.0}
//
// Fields of the wrong type are dropped rather than reported, so a record with
// a broken location still decodes and simply fails to normalize.
func (l *Location) UnmarshalJSON(data []byte) error {
	var raw struct {
		Location json.RawMessage `json:"location"`
		Lat      json.RawMessage `json:"lat"`
		Lng      json.RawMessage `json:"lng"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*l = Location{}

	loc := bytes.TrimSpace(raw.Location)
	switch {
	case len(loc) > 0 && loc[0] == '"':
		var s string
		if err := json.Unmarshal(loc, &s); err == nil {
			l.WKT = s
		}
	case len(loc) > 0 && loc[0] == '{':
		var g GeoJSONPoint
		if err := json.Unmarshal(loc, &g); err == nil {
			l.GeoJSON = &g
		}
	}

	l.Lat = decodeNumber(raw.Lat)
	l.Lng = decodeNumber(raw.Lng)

	return nil
}

// decodeNumber accepts a JSON number or a numeric string
func decodeNumber(raw json.RawMessage) *float64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return &f
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil
	}
	return &f
}
