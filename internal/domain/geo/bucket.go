// internal/domain/geo/bucket.go

package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/uber/h3-go/v4"
)

const (
	// DefaultResolution buckets points into cells of roughly 5 km²
	DefaultResolution = 7

	// minEdgeMeters under-estimates the edge length of a resolution 7 cell so
	// that a ring count derived from it always covers the requested radius.
	minEdgeMeters = 1000.0
)

// ErrInvalidPoint is returned for points outside WGS84 bounds
var ErrInvalidPoint = errors.New("invalid point")

// Cell returns the H3 cell containing p at the given resolution
func Cell(p Point, resolution int) (h3.Cell, error) {
	if !p.Valid() {
		return 0, ErrInvalidPoint
	}

	cell, err := h3.LatLngToCell(h3.NewLatLng(p.Lat, p.Lng), resolution)
	if err != nil {
		return 0, fmt.Errorf("h3 cell for %v: %w", p, err)
	}

	return cell, nil
}

// Rings returns how many k-rings around a DefaultResolution cell are needed to
// cover a circle of the given radius in meters
func Rings(radius float64) int {
	if radius <= 0 {
		return 1
	}
	return int(math.Ceil(radius/minEdgeMeters)) + 1
}

// Disk returns the DefaultResolution cells covering a circle around center.
// The result is a superset; callers still filter candidates by Distance.
func Disk(center Point, radius float64) ([]h3.Cell, error) {
	origin, err := Cell(center, DefaultResolution)
	if err != nil {
		return nil, err
	}

	cells, err := h3.GridDisk(origin, Rings(radius))
	if err != nil {
		return nil, fmt.Errorf("h3 grid disk around %s: %w", origin, err)
	}

	return cells, nil
}
