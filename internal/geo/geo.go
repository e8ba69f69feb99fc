// Package geo holds the coordinate math shared by the map controller and the
// search clients.
package geo

import (
	"fmt"
	"math"
)

const (
	earthRadiusMeters = 6371008.8
	tileSize          = 256.0
)

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether p is a finite coordinate inside the WGS84 ranges.
func (p Point) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lng, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

func (p Point) String() string {
	return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lng)
}

// Bounds is an axis-aligned lat/lng box.
type Bounds struct {
	SouthWest Point `json:"southWest"`
	NorthEast Point `json:"northEast"`
}

// BoundsOf returns the smallest box containing every point. ok is false for
// an empty input.
func BoundsOf(points ...Point) (b Bounds, ok bool) {
	if len(points) == 0 {
		return Bounds{}, false
	}
	b = Bounds{SouthWest: points[0], NorthEast: points[0]}
	for _, p := range points[1:] {
		b.SouthWest.Lat = math.Min(b.SouthWest.Lat, p.Lat)
		b.SouthWest.Lng = math.Min(b.SouthWest.Lng, p.Lng)
		b.NorthEast.Lat = math.Max(b.NorthEast.Lat, p.Lat)
		b.NorthEast.Lng = math.Max(b.NorthEast.Lng, p.Lng)
	}
	return b, true
}

// Contains reports whether p lies inside b, edges included.
func (b Bounds) Contains(p Point) bool {
	return p.Lat >= b.SouthWest.Lat && p.Lat <= b.NorthEast.Lat &&
		p.Lng >= b.SouthWest.Lng && p.Lng <= b.NorthEast.Lng
}

// Center returns the projected midpoint of b.
func (b Bounds) Center() Point {
	x := (mercatorX(b.SouthWest.Lng) + mercatorX(b.NorthEast.Lng)) / 2
	y := (mercatorY(b.SouthWest.Lat) + mercatorY(b.NorthEast.Lat)) / 2
	return Point{Lat: inverseMercatorY(y), Lng: x*360 - 180}
}

// Viewport is the pixel size of a rendering surface.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// FitZoom returns the largest integer zoom at which b, inset by padding
// pixels on every side, fits in vp. The result is clamped to [0, maxZoom].
func FitZoom(b Bounds, vp Viewport, padding int, maxZoom float64) float64 {
	availW := float64(vp.Width - 2*padding)
	availH := float64(vp.Height - 2*padding)
	if availW <= 0 || availH <= 0 {
		return 0
	}

	dx := math.Abs(mercatorX(b.NorthEast.Lng) - mercatorX(b.SouthWest.Lng))
	dy := math.Abs(mercatorY(b.NorthEast.Lat) - mercatorY(b.SouthWest.Lat))

	scale := math.Inf(1)
	if dx > 0 {
		scale = math.Min(scale, availW/(tileSize*dx))
	}
	if dy > 0 {
		scale = math.Min(scale, availH/(tileSize*dy))
	}
	if math.IsInf(scale, 1) {
		return maxZoom
	}

	zoom := math.Floor(math.Log2(scale))
	return math.Max(0, math.Min(zoom, maxZoom))
}

// SpanPixels returns the pixel width and height b covers at zoom.
func SpanPixels(b Bounds, zoom float64) (float64, float64) {
	world := tileSize * math.Exp2(zoom)
	dx := math.Abs(mercatorX(b.NorthEast.Lng) - mercatorX(b.SouthWest.Lng))
	dy := math.Abs(mercatorY(b.NorthEast.Lat) - mercatorY(b.SouthWest.Lat))
	return dx * world, dy * world
}

// Distance returns the great-circle distance between a and b in metres.
func Distance(a, b Point) float64 {
	lat1, lat2 := radians(a.Lat), radians(b.Lat)
	dLat := lat2 - lat1
	dLng := radians(b.Lng - a.Lng)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

// mercatorX and mercatorY project onto the unit square.
func mercatorX(lng float64) float64 {
	return (lng + 180) / 360
}

func mercatorY(lat float64) float64 {
	lat = math.Max(-85.05112878, math.Min(85.05112878, lat))
	s := math.Sin(radians(lat))
	return 0.5 - math.Log((1+s)/(1-s))/(4*math.Pi)
}

func inverseMercatorY(y float64) float64 {
	n := math.Pi * (1 - 2*y)
	return math.Atan(math.Sinh(n)) * 180 / math.Pi
}
