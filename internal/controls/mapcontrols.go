package controls

import (
	gomath "math"

	"github.com/nosadnile/bluemap-go/internal/config"
	"github.com/nosadnile/bluemap-go/internal/engine/input"
	"github.com/nosadnile/bluemap-go/pkg/math"
)

// MouseRotate rotates the map while dragging with the right button, or
// with the left button while Ctrl or Alt is held.
type MouseRotate struct {
	Speed     float64
	Stiffness float64

	sub    subscription
	moving bool
	lastX  float64
	delta  float64
}

// NewMouseRotate creates a MouseRotate scheme.
func NewMouseRotate(speed, stiffness float64) *MouseRotate {
	return &MouseRotate{Speed: speed, Stiffness: stiffness}
}

func (r *MouseRotate) Start(m *Manager) { r.sub.subscribe(m, r.handle) }
func (r *MouseRotate) Stop() {
	r.sub.unsubscribe()
	r.moving = false
}

func (r *MouseRotate) Update(deltaMs float64, _ Terrain) {
	if r.delta == 0 {
		return
	}
	w, _ := r.sub.viewport()
	s := smoothing(r.Stiffness, deltaMs)
	r.sub.manager.Rotation += r.delta * s * r.Speed * (1 / w)
	r.delta = decay(r.delta, s)
}

// Reset drops pending rotation.
func (r *MouseRotate) Reset() { r.delta = 0 }

func (r *MouseRotate) handle(e input.Event) {
	switch ev := e.(type) {
	case input.MouseButtonEvent:
		if !ev.Down {
			r.moving = false
			return
		}
		if ev.Buttons == input.ButtonRight || ((ev.Alt || ev.Ctrl) && ev.Buttons == input.ButtonLeft) {
			r.moving = true
			r.delta = 0
			r.lastX = ev.X
		}
	case input.MouseMoveEvent:
		if r.moving {
			r.delta += ev.X - r.lastX
		}
		r.lastX = ev.X
	}
}

// MouseZoom zooms with the scroll wheel, scaling distance by 1.5 per unit.
type MouseZoom struct {
	Speed     float64
	Stiffness float64

	sub   subscription
	delta float64
}

// NewMouseZoom creates a MouseZoom scheme.
func NewMouseZoom(speed, stiffness float64) *MouseZoom {
	return &MouseZoom{Speed: speed, Stiffness: stiffness}
}

func (z *MouseZoom) Start(m *Manager) { z.sub.subscribe(m, z.handle) }
func (z *MouseZoom) Stop()            { z.sub.unsubscribe() }

func (z *MouseZoom) Update(deltaMs float64, _ Terrain) {
	if z.delta == 0 {
		return
	}
	m := z.sub.manager
	s := smoothing(z.Stiffness, deltaMs)
	m.SetDistance(m.Distance() * gomath.Pow(1.5, z.delta*s*z.Speed))
	z.delta = decay(z.delta, s)
}

// Reset drops pending zoom.
func (z *MouseZoom) Reset() { z.delta = 0 }

func (z *MouseZoom) handle(e input.Event) {
	ev, ok := e.(input.WheelEvent)
	if !ok {
		return
	}
	d := ev.DeltaY
	switch ev.Mode {
	case input.WheelPixel:
		d *= 0.01
	case input.WheelLine:
		d *= 0.33
	}
	z.delta += d
}

// HeightFollow keeps the target on the terrain surface as it moves.
type HeightFollow struct {
	Stiffness float64

	manager *Manager
}

// NewHeightFollow creates a HeightFollow scheme.
func NewHeightFollow(stiffness float64) *HeightFollow {
	return &HeightFollow{Stiffness: stiffness}
}

func (h *HeightFollow) Start(m *Manager) { h.manager = m }
func (h *HeightFollow) Stop()            {}

func (h *HeightFollow) Update(deltaMs float64, terrain Terrain) {
	if terrain == nil {
		return
	}
	m := h.manager
	y, ok := terrain.TerrainHeightAt(m.Position.X, m.Position.Z)
	if !ok {
		return
	}

	d := y - m.Position.Y
	if gomath.Abs(d) < 0.001 {
		m.Position.Y = y
		return
	}
	m.Position.Y += d * smoothing(h.Stiffness, deltaMs)
}

// MapControls is the default top-down map navigation.
type MapControls struct {
	Rotate *MouseRotate
	Zoom   *MouseZoom
	Move   *KeyMove
	Height *HeightFollow

	MinDistance float64
	MaxDistance float64
	MaxAngle    float64

	manager *Manager
}

// NewMapControls builds the map scheme. cfg speeds scale the built-in
// defaults.
func NewMapControls(cfg config.ControlsConfig) *MapControls {
	minD, maxD := cfg.MinDistance, cfg.MaxDistance
	if minD <= 0 {
		minD = 5
	}
	if maxD < minD {
		maxD = 10000
	}
	return &MapControls{
		Rotate:      NewMouseRotate(6*speedOr(cfg.RotateSpeed), 0.3),
		Zoom:        NewMouseZoom(speedOr(cfg.ZoomSpeed), 0.2),
		Move:        NewKeyMove(0.5*speedOr(cfg.MoveSpeed), 0.2),
		Height:      NewHeightFollow(0.1),
		MinDistance: minD,
		MaxDistance: maxD,
		MaxAngle:    gomath.Pi / 2,
	}
}

func (c *MapControls) schemes() []Scheme {
	return []Scheme{c.Rotate, c.Zoom, c.Move, c.Height}
}

func (c *MapControls) Start(m *Manager) {
	c.manager = m
	for _, s := range c.schemes() {
		s.Start(m)
	}
}

func (c *MapControls) Stop() {
	for _, s := range c.schemes() {
		s.Stop()
	}
}

func (c *MapControls) Update(deltaMs float64, terrain Terrain) {
	for _, s := range c.schemes() {
		s.Update(deltaMs, terrain)
	}

	m := c.manager
	m.SetDistance(math.Clamp(m.Distance(), c.MinDistance, c.MaxDistance))
	m.Angle = math.Clamp(m.Angle, 0, c.MaxAngle)
}
