package mapsync

import (
	"log/slog"

	"casametrix_front/internal/geo"
	"casametrix_front/internal/golden"
	"casametrix_front/internal/messages"
	"casametrix_front/platform/logger"
)

// Mode is how the camera was last placed.
type Mode string

const (
	ModeNone  Mode = ""
	ModeClose Mode = "close"
	ModeFit   Mode = "fit"
)

// State is the render state of the map as last commanded.
type State struct {
	Initialized bool        `json:"initialized"`
	Container   string      `json:"container,omitempty"`
	Center      *geo.Point  `json:"center,omitempty"`
	Zoom        float64     `json:"zoom,omitempty"`
	Mode        Mode        `json:"mode,omitempty"`
	Bounds      *geo.Bounds `json:"bounds,omitempty"`
	Padding     int         `json:"padding,omitempty"`
	Markers     []Marker    `json:"markers"`
}

// Options configures a Controller.
type Options struct {
	Renderer Renderer
	// Container is the rendering surface. Empty means none yet; see Attach.
	Container  string
	CloseZoom  float64
	FitPadding int
	Messages   *messages.Catalog
	OnChange   func()
	Log        *logger.Logger
}

// camera is implemented by handles that can report where they ended up
// after a FitBounds.
type camera interface {
	Camera() (geo.Point, float64)
}

// Controller is the only code allowed to touch its map Handle. It must be
// used from the owning view's loop.
type Controller struct {
	opts      Options
	container string
	handle    Handle
	disposed  bool

	saved  *geo.Point
	device *geo.Point

	markers map[Source]geo.Point
	center  *geo.Point
	zoom    float64
	mode    Mode
	bounds  *geo.Bounds
}

// NewController creates an uninitialized controller.
func NewController(opts Options) *Controller {
	if opts.CloseZoom <= 0 {
		opts.CloseZoom = 15
	}
	if opts.FitPadding < 0 {
		opts.FitPadding = 0
	}
	if opts.Messages == nil {
		opts.Messages = messages.Default
	}
	if opts.Log == nil {
		opts.Log = logger.NewDiscard()
	}
	return &Controller{
		opts:      opts,
		container: opts.Container,
		markers:   make(map[Source]geo.Point),
	}
}

// DeriveCenter picks the authoritative center: the saved address when it
// has coordinates, else the device position.
func DeriveCenter(saved *golden.SavedAddress, device *geo.Point) (geo.Point, bool) {
	if saved != nil {
		if p, ok := saved.Point(); ok {
			return p, true
		}
	}
	if device != nil && device.Valid() {
		return *device, true
	}
	return geo.Point{}, false
}

// Attach provides the rendering surface. The map is created on the next
// sync that has a center.
func (c *Controller) Attach(container string) {
	if c.disposed || c.handle != nil || container == "" {
		return
	}
	c.container = container
	c.sync()
}

// Update feeds the current sources and re-evaluates the map.
func (c *Controller) Update(saved *golden.SavedAddress, device *geo.Point) {
	if c.disposed {
		return
	}
	c.saved = nil
	if saved != nil {
		if p, ok := saved.Point(); ok {
			c.saved = &p
		}
	}
	c.device = nil
	if device != nil && device.Valid() {
		p := *device
		c.device = &p
	}
	c.sync()
}

// Initialized reports whether a live map exists.
func (c *Controller) Initialized() bool { return c.handle != nil }

// Close disposes the map. It is safe to call more than once.
func (c *Controller) Close() {
	if c.disposed {
		return
	}
	c.disposed = true
	if c.handle != nil {
		c.opts.Renderer.Dispose(c.handle)
		c.handle = nil
	}
	c.markers = nil
}

// State returns what the map currently shows.
func (c *Controller) State() State {
	st := State{
		Initialized: c.handle != nil,
		Container:   c.container,
		Zoom:        c.zoom,
		Mode:        c.mode,
		Markers:     []Marker{},
	}
	if c.handle == nil {
		return st
	}
	if c.center != nil {
		p := *c.center
		st.Center = &p
	}
	if c.bounds != nil {
		b := *c.bounds
		st.Bounds = &b
		st.Padding = c.opts.FitPadding
	}
	for _, src := range []Source{SourceDevice, SourceSaved} {
		if p, ok := c.markers[src]; ok {
			st.Markers = append(st.Markers, Marker{Source: src, Position: p, Popup: c.popup(src)})
		}
	}
	return st
}

func (c *Controller) sync() {
	var center *geo.Point
	switch {
	case c.saved != nil:
		center = c.saved
	case c.device != nil:
		center = c.device
	}

	if c.handle == nil {
		if center == nil || c.container == "" || c.opts.Renderer == nil {
			return
		}
		h, err := c.opts.Renderer.Init(c.container, *center, c.opts.CloseZoom)
		if err != nil {
			c.opts.Log.Error("map init failed", slog.String("error", err.Error()))
			return
		}
		c.handle = h
		c.opts.Log.Debug("map initialized", slog.String("container", c.container), slog.String("center", center.String()))
	}

	c.syncMarker(SourceSaved, c.saved)
	c.syncMarker(SourceDevice, c.device)
	c.syncCamera()
	c.changed()
}

func (c *Controller) syncMarker(src Source, p *geo.Point) {
	current, exists := c.markers[src]
	switch {
	case p == nil && exists:
		c.handle.RemoveMarker(src)
		delete(c.markers, src)
	case p == nil:
	case exists && current == *p:
	default:
		if exists {
			c.opts.Log.Debug("marker moved",
				slog.String("source", string(src)),
				slog.Float64("distance_m", geo.Distance(current, *p)))
		}
		c.handle.UpsertMarker(Marker{Source: src, Position: *p, Popup: c.popup(src)})
		c.markers[src] = *p
	}
}

func (c *Controller) syncCamera() {
	points := make([]geo.Point, 0, 2)
	for _, p := range []*geo.Point{c.saved, c.device} {
		if p != nil {
			points = append(points, *p)
		}
	}

	switch {
	case len(points) == 0:
		return
	case len(points) == 1 || points[0] == points[1]:
		c.handle.SetView(points[0], c.opts.CloseZoom)
		p := points[0]
		c.center = &p
		c.zoom = c.opts.CloseZoom
		c.mode = ModeClose
		c.bounds = nil
	default:
		b, _ := geo.BoundsOf(points...)
		c.handle.FitBounds(b, c.opts.FitPadding)
		center := b.Center()
		c.center = &center
		c.bounds = &b
		c.mode = ModeFit
		c.zoom = 0
		if cam, ok := c.handle.(camera); ok {
			_, c.zoom = cam.Camera()
		}
	}
}

func (c *Controller) popup(src Source) string {
	if src == SourceSaved {
		return c.opts.Messages.Get(messages.MapSavedPopup)
	}
	return c.opts.Messages.Get(messages.MapPositionPopup)
}

func (c *Controller) changed() {
	if c.opts.OnChange != nil {
		c.opts.OnChange()
	}
}
