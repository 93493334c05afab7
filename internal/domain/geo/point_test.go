package geo

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDistance_KnownGeodesic(t *testing.T) {
	a := NewPoint(8.475, 124.646)
	b := NewPoint(8.4765, 124.646)

	// 0.0015 degrees of latitude is roughly 167 m on the sphere
	d := Distance(a, b)
	require.InDelta(t, 167, d, 2)
	require.Equal(t, 0.0, Distance(a, a))
}

func TestWithin_Boundaries(t *testing.T) {
	center := NewPoint(8.475, 124.646)
	// 0.0018 degrees north is about 200 m away
	p := NewPoint(8.4768, 124.646)

	require.True(t, Within(center, center, 0))
	require.False(t, Within(center, p, 100))
	require.True(t, Within(center, p, 250))
}

func TestDistance_NotEuclidean(t *testing.T) {
	// one degree of longitude shrinks with latitude; planar math would not
	equator := Distance(NewPoint(0, 0), NewPoint(0, 1))
	north := Distance(NewPoint(60, 0), NewPoint(60, 1))
	require.InDelta(t, equator/2, north, 500)
}

func TestVisibleRadius(t *testing.T) {
	center := NewPoint(8.475, 124.646)

	// tight viewport is floored
	require.Equal(t, MinVisibleRadius, VisibleRadius(center, NewPoint(8.476, 124.647), NewPoint(8.474, 124.645)))

	ne := NewPoint(8.6, 124.8)
	sw := NewPoint(8.45, 124.62)
	r := VisibleRadius(center, ne, sw)
	require.Equal(t, Distance(center, ne), r)
	require.Greater(t, r, MinVisibleRadius)
}

func TestPoint_ValidAndWKT(t *testing.T) {
	require.True(t, NewPoint(-90, 180).Valid())
	require.False(t, NewPoint(-90.1, 0).Valid())
	require.False(t, NewPoint(0, 180.5).Valid())

	w := NewPoint(8.475, 124.646).WKT()
	require.True(t, strings.HasPrefix(w, "POINT("), w)
	require.Contains(t, w, "124.646 8.475")
}

func TestDisk_CoversRadius(t *testing.T) {
	center := NewPoint(8.475, 124.646)
	far := NewPoint(8.51, 124.646)

	cells, err := Disk(center, Distance(center, far)+1)
	require.NoError(t, err)

	farCell, err := Cell(far, DefaultResolution)
	require.NoError(t, err)
	require.Contains(t, cells, farCell)

	_, err = Cell(NewPoint(100, 0), DefaultResolution)
	require.ErrorIs(t, err, ErrInvalidPoint)
}
