package mapsync

import (
	"errors"
	"sort"
	"sync"

	"casametrix_front/internal/geo"
)

// Scene is an in-memory Renderer. It computes the camera the way a tile map
// would and is what the shell streams to the browser.
type Scene struct {
	viewport geo.Viewport
	maxZoom  float64

	mu      sync.Mutex
	live    int
	created int
}

// NewScene creates a renderer for surfaces of the given size.
func NewScene(vp geo.Viewport, maxZoom float64) *Scene {
	return &Scene{viewport: vp, maxZoom: maxZoom}
}

// Live returns the number of initialized, not yet disposed maps.
func (s *Scene) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live
}

// Created returns the number of maps ever initialized.
func (s *Scene) Created() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.created
}

func (s *Scene) Init(container string, center geo.Point, zoom float64) (Handle, error) {
	if container == "" {
		return nil, errors.New("mapsync: empty container")
	}
	s.mu.Lock()
	s.live++
	s.created++
	s.mu.Unlock()
	return &SceneMap{
		scene:     s,
		Container: container,
		Center:    center,
		Zoom:      zoom,
		markers:   make(map[Source]Marker),
	}, nil
}

func (s *Scene) Dispose(h Handle) {
	m, ok := h.(*SceneMap)
	if !ok || m.scene != s || m.Disposed {
		return
	}
	m.Disposed = true
	m.markers = nil
	s.mu.Lock()
	s.live--
	s.mu.Unlock()
}

// MarkerStats counts marker mutations on one map.
type MarkerStats struct {
	Created int `json:"created"`
	Moved   int `json:"moved"`
	Removed int `json:"removed"`
}

// SceneMap is the Handle produced by Scene. It is confined to the owning
// view's loop.
type SceneMap struct {
	scene *Scene

	Container string
	Center    geo.Point
	Zoom      float64
	Disposed  bool
	Stats     MarkerStats

	markers map[Source]Marker
}

func (m *SceneMap) SetView(center geo.Point, zoom float64) {
	if m.Disposed {
		return
	}
	m.Center = center
	m.Zoom = zoom
}

func (m *SceneMap) FitBounds(b geo.Bounds, padding int) {
	if m.Disposed {
		return
	}
	m.Center = b.Center()
	m.Zoom = geo.FitZoom(b, m.scene.viewport, padding, m.scene.maxZoom)
}

func (m *SceneMap) UpsertMarker(mk Marker) {
	if m.Disposed {
		return
	}
	if _, ok := m.markers[mk.Source]; ok {
		m.Stats.Moved++
	} else {
		m.Stats.Created++
	}
	m.markers[mk.Source] = mk
}

func (m *SceneMap) RemoveMarker(src Source) {
	if m.Disposed {
		return
	}
	if _, ok := m.markers[src]; ok {
		delete(m.markers, src)
		m.Stats.Removed++
	}
}

// Camera returns the current center and zoom.
func (m *SceneMap) Camera() (geo.Point, float64) { return m.Center, m.Zoom }

// Markers returns the live markers ordered by source.
func (m *SceneMap) Markers() []Marker {
	out := make([]Marker, 0, len(m.markers))
	for _, mk := range m.markers {
		out = append(out, mk)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Source < out[j].Source })
	return out
}
