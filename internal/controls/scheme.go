package controls

import (
	"fmt"
	gomath "math"

	"github.com/nosadnile/bluemap-go/internal/config"
	"github.com/nosadnile/bluemap-go/internal/engine/input"
	"github.com/nosadnile/bluemap-go/pkg/math"
)

// Kind names a control scheme.
type Kind string

const (
	KindMap        Kind = "map"
	KindFreeFlight Kind = "freeflight"
)

// ParseKind validates a scheme name from configuration.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindMap, KindFreeFlight:
		return k, nil
	}
	return "", fmt.Errorf("unknown control scheme %q", s)
}

// New builds the scheme of the given kind from controls settings.
func New(kind Kind, cfg config.ControlsConfig) (Scheme, error) {
	switch kind {
	case KindMap:
		return NewMapControls(cfg), nil
	case KindFreeFlight:
		return NewFreeFlight(cfg), nil
	}
	return nil, fmt.Errorf("unknown control scheme %q", kind)
}

// smoothing is the fraction of a pending delta applied this frame.
func smoothing(stiffness, deltaMs float64) float64 {
	return math.Clamp(stiffness/(16.666/deltaMs), 0, 1)
}

const snapEpsilon = 0.0001

// decay shrinks a pending delta and snaps it to zero once negligible.
func decay(v, s float64) float64 {
	v *= 1 - s
	if gomath.Abs(v) < snapEpsilon {
		return 0
	}
	return v
}

// decay2 is decay for 2D deltas; it snaps on squared length.
func decay2(v math.Vec2, s float64) math.Vec2 {
	v = v.Scale(1 - s)
	if v.X*v.X+v.Y*v.Y < snapEpsilon {
		return math.Vec2{}
	}
	return v
}

// subscription is embedded by schemes that listen to input.
type subscription struct {
	manager *Manager
	cancel  func()
}

func (s *subscription) subscribe(m *Manager, h input.Handler) {
	s.unsubscribe()
	s.manager = m
	if in := m.Input(); in != nil {
		s.cancel = in.Subscribe(h)
	}
}

func (s *subscription) unsubscribe() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// viewport returns the current drawable size, never zero.
func (s *subscription) viewport() (w, h float64) {
	w, h = 1, 1
	if s.manager != nil && s.manager.Input() != nil {
		iw, ih := s.manager.Input().Size()
		w, h = float64(max(iw, 1)), float64(max(ih, 1))
	}
	return w, h
}
