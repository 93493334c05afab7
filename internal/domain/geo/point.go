// internal/domain/geo/point.go

package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	orbgeo "github.com/paulmach/orb/geo"
)

// MinVisibleRadius is the floor applied to viewport-derived radii, in meters
const MinVisibleRadius = 5000.0

// Point is a canonical geographic coordinate in (latitude, longitude) order
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// NewPoint creates a point from latitude and longitude
func NewPoint(lat, lng float64) Point {
	return Point{Lat: lat, Lng: lng}
}

// Valid reports whether the point is finite and inside WGS84 bounds
func (p Point) Valid() bool {
	return IsValidLatLng(p.Lat, p.Lng)
}

// Orb returns the point in orb's [lng, lat] layout
func (p Point) Orb() orb.Point {
	return orb.Point{p.Lng, p.Lat}
}

// WKT renders the point as POINT(lng lat)
func (p Point) WKT() string {
	return wkt.MarshalString(p.Orb())
}

// IsValidLatLng validates geographic coordinates
func IsValidLatLng(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return false
	}
	if lat < -90 || lat > 90 {
		return false
	}
	if lng < -180 || lng > 180 {
		return false
	}
	return true
}

// Distance returns the great-circle distance between two points in meters
func Distance(a, b Point) float64 {
	return orbgeo.DistanceHaversine(a.Orb(), b.Orb())
}

// Within reports whether p lies within radius meters of center.
// The boundary is inclusive, so a zero radius still matches the center itself.
func Within(center, p Point, radius float64) bool {
	return Distance(center, p) <= radius
}

// VisibleRadius derives a query radius from a map viewport.
// It is the larger of the distances from the center to the north-east and
// south-west corners, never less than MinVisibleRadius.
func VisibleRadius(center, northEast, southWest Point) float64 {
	return math.Max(
		math.Max(Distance(center, northEast), Distance(center, southWest)),
		MinVisibleRadius,
	)
}
