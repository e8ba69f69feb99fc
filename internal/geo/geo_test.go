package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	saved = Point{Lat: 48.8566, Lng: 2.3522}
	gps   = Point{Lat: 48.86, Lng: 2.35}
)

func TestPointValid(t *testing.T) {
	require.True(t, saved.Valid())
	require.False(t, Point{Lat: 91, Lng: 0}.Valid())
	require.False(t, Point{Lat: 0, Lng: -181}.Valid())
	require.False(t, Point{Lat: math.NaN(), Lng: 0}.Valid())
	require.False(t, Point{Lat: 0, Lng: math.Inf(1)}.Valid())
}

func TestBoundsOf(t *testing.T) {
	_, ok := BoundsOf()
	require.False(t, ok)

	b, ok := BoundsOf(saved, gps)
	require.True(t, ok)
	require.Equal(t, Point{Lat: 48.8566, Lng: 2.35}, b.SouthWest)
	require.Equal(t, Point{Lat: 48.86, Lng: 2.3522}, b.NorthEast)
	require.True(t, b.Contains(b.Center()))
}

func TestFitZoomIsTightestFit(t *testing.T) {
	b, _ := BoundsOf(saved, gps)
	vp := Viewport{Width: 800, Height: 320}

	zoom := FitZoom(b, vp, 40, 19)
	require.Greater(t, zoom, 10.0)
	require.Less(t, zoom, 19.0)

	w, h := SpanPixels(b, zoom)
	require.LessOrEqual(t, w, 720.0)
	require.LessOrEqual(t, h, 240.0)

	w, h = SpanPixels(b, zoom+1)
	require.True(t, w > 720 || h > 240, "zoom+1 should no longer fit")
}

func TestFitZoomDegenerateBounds(t *testing.T) {
	b, _ := BoundsOf(saved)
	require.Equal(t, 19.0, FitZoom(b, Viewport{Width: 800, Height: 320}, 40, 19))
	require.Equal(t, 0.0, FitZoom(b, Viewport{Width: 60, Height: 60}, 40, 19))
}

func TestFitZoomWholeWorldClampsAtZero(t *testing.T) {
	b, _ := BoundsOf(Point{Lat: -80, Lng: -179}, Point{Lat: 80, Lng: 179})
	require.Equal(t, 0.0, FitZoom(b, Viewport{Width: 200, Height: 200}, 10, 19))
}

func TestDistance(t *testing.T) {
	require.InDelta(t, 0, Distance(saved, saved), 1e-9)
	// Paris to Lyon is roughly 392 km.
	lyon := Point{Lat: 45.764, Lng: 4.8357}
	require.InDelta(t, 392_000, Distance(saved, lyon), 5_000)
	require.InDelta(t, Distance(saved, gps), Distance(gps, saved), 1e-9)
}
