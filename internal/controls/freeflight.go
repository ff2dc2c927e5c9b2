package controls

import (
	gomath "math"

	"github.com/nosadnile/bluemap-go/internal/config"
	"github.com/nosadnile/bluemap-go/internal/engine/input"
	"github.com/nosadnile/bluemap-go/pkg/math"
)

// Movement keys.
var (
	KeysUp    = []input.KeyCombination{input.NewKeyCombination(input.KeyArrowUp), input.NewKeyCombination(input.KeyW)}
	KeysDown  = []input.KeyCombination{input.NewKeyCombination(input.KeyArrowDown), input.NewKeyCombination(input.KeyS)}
	KeysLeft  = []input.KeyCombination{input.NewKeyCombination(input.KeyArrowLeft), input.NewKeyCombination(input.KeyA)}
	KeysRight = []input.KeyCombination{input.NewKeyCombination(input.KeyArrowRight), input.NewKeyCombination(input.KeyD)}

	KeysAscend  = []input.KeyCombination{input.NewKeyCombination(input.KeySpace), input.NewKeyCombination(input.KeyPageUp)}
	KeysDescend = []input.KeyCombination{
		input.NewKeyCombination(input.KeyShiftLeft),
		input.NewKeyCombination(input.KeyShiftRight),
		input.NewKeyCombination(input.KeyPageDown),
	}
)

// KeyMove moves the target horizontally with WASD or the arrow keys,
// relative to the current rotation.
type KeyMove struct {
	Speed     float64
	Stiffness float64

	sub                   subscription
	up, down, left, right bool
	delta                 math.Vec2
}

// NewKeyMove creates a KeyMove scheme.
func NewKeyMove(speed, stiffness float64) *KeyMove {
	return &KeyMove{Speed: speed, Stiffness: stiffness}
}

func (k *KeyMove) Start(m *Manager) { k.sub.subscribe(m, k.handle) }
func (k *KeyMove) Stop()            { k.sub.unsubscribe() }

func (k *KeyMove) Update(deltaMs float64, _ Terrain) {
	if k.up {
		k.delta.Y--
	}
	if k.down {
		k.delta.Y++
	}
	if k.left {
		k.delta.X--
	}
	if k.right {
		k.delta.X++
	}
	if k.delta == (math.Vec2{}) {
		return
	}

	m := k.sub.manager
	s := smoothing(k.Stiffness, deltaMs)
	r := k.delta.Rotate(m.Rotation)
	m.Position.X += r.X * s * k.Speed * deltaMs * 0.06
	m.Position.Z += r.Y * s * k.Speed * deltaMs * 0.06

	k.delta = decay2(k.delta, s)
}

func (k *KeyMove) handle(e input.Event) {
	ke, ok := e.(input.KeyEvent)
	if !ok {
		return
	}
	switch {
	case input.OneUp(ke, KeysUp...):
		k.up = ke.Down
	case input.OneUp(ke, KeysDown...):
		k.down = ke.Down
	case input.OneUp(ke, KeysLeft...):
		k.left = ke.Down
	case input.OneUp(ke, KeysRight...):
		k.right = ke.Down
	}
}

// KeyHeight moves the target up with Space/PageUp and down with
// Shift/PageDown.
type KeyHeight struct {
	Speed     float64
	Stiffness float64

	sub      subscription
	up, down bool
	deltaY   float64
}

// NewKeyHeight creates a KeyHeight scheme.
func NewKeyHeight(speed, stiffness float64) *KeyHeight {
	return &KeyHeight{Speed: speed, Stiffness: stiffness}
}

func (k *KeyHeight) Start(m *Manager) { k.sub.subscribe(m, k.handle) }
func (k *KeyHeight) Stop()            { k.sub.unsubscribe() }

func (k *KeyHeight) Update(deltaMs float64, _ Terrain) {
	if k.up {
		k.deltaY++
	}
	if k.down {
		k.deltaY--
	}
	if k.deltaY == 0 {
		return
	}

	s := smoothing(k.Stiffness, deltaMs)
	k.sub.manager.Position.Y += k.deltaY * s * k.Speed * deltaMs * 0.06
	k.deltaY = decay(k.deltaY, s)
}

func (k *KeyHeight) handle(e input.Event) {
	ke, ok := e.(input.KeyEvent)
	if !ok {
		return
	}
	if input.OneUp(ke, KeysAscend...) {
		k.up = ke.Down
	}
	if input.OneUp(ke, KeysDescend...) {
		k.down = ke.Down
	}
}

// MouseLook rotates the view horizontally while dragging with any button,
// or from raw motion while the pointer is locked.
type MouseLook struct {
	SpeedLeft    float64
	SpeedRight   float64
	SpeedCapture float64
	Stiffness    float64

	sub    subscription
	moving bool
	lastX  float64
	delta  float64
}

// NewMouseLook creates a MouseLook scheme.
func NewMouseLook(speedLeft, speedRight, speedCapture, stiffness float64) *MouseLook {
	return &MouseLook{
		SpeedLeft:    speedLeft,
		SpeedRight:   speedRight,
		SpeedCapture: speedCapture,
		Stiffness:    stiffness,
	}
}

func (l *MouseLook) Start(m *Manager) { l.sub.subscribe(m, l.handle) }
func (l *MouseLook) Stop() {
	l.sub.unsubscribe()
	l.moving = false
}

func (l *MouseLook) Update(deltaMs float64, _ Terrain) {
	if l.delta == 0 {
		return
	}
	s := smoothing(l.Stiffness, deltaMs)
	l.sub.manager.Rotation += l.delta * s
	l.delta = decay(l.delta, s)
}

// Reset drops pending rotation.
func (l *MouseLook) Reset() { l.delta = 0 }

func (l *MouseLook) pixelMultiplier() float64 {
	w, h := l.sub.viewport()
	return (1 / w) * (w / h)
}

func (l *MouseLook) handle(e input.Event) {
	switch ev := e.(type) {
	case input.MouseButtonEvent:
		if ev.Down {
			l.moving = true
			l.delta = 0
			l.lastX = ev.X
		} else {
			l.moving = false
		}
	case input.MouseMoveEvent:
		mult := l.pixelMultiplier()
		switch {
		case ev.PointerLocked:
			l.delta -= ev.MovementX * l.SpeedCapture * mult
		case l.moving && ev.Buttons == input.ButtonLeft:
			l.delta -= (ev.X - l.lastX) * l.SpeedLeft * mult
		case l.moving:
			l.delta -= (ev.X - l.lastX) * l.SpeedRight * mult
		}
		l.lastX = ev.X
	}
}

// TouchPan rotates with horizontal and tilts with vertical touch drags.
// Pan gestures that originate from a mouse are ignored.
type TouchPan struct {
	Speed     float64
	Stiffness float64

	sub    subscription
	moving bool
	last   math.Vec2
	delta  math.Vec2
}

// NewTouchPan creates a TouchPan scheme.
func NewTouchPan(speed, stiffness float64) *TouchPan {
	return &TouchPan{Speed: speed, Stiffness: stiffness}
}

func (t *TouchPan) Start(m *Manager) { t.sub.subscribe(m, t.handle) }
func (t *TouchPan) Stop() {
	t.sub.unsubscribe()
	t.moving = false
}

func (t *TouchPan) Update(deltaMs float64, _ Terrain) {
	if t.delta == (math.Vec2{}) {
		return
	}
	_, h := t.sub.viewport()
	mult := 1 / h

	m := t.sub.manager
	m.Rotation += t.delta.X * t.Speed * mult * t.Stiffness
	m.Angle -= t.delta.Y * t.Speed * mult * t.Stiffness

	t.delta = decay2(t.delta, smoothing(t.Stiffness, deltaMs))
}

// Reset drops pending motion.
func (t *TouchPan) Reset() { t.delta = math.Vec2{} }

func (t *TouchPan) handle(e input.Event) {
	ev, ok := e.(input.PanEvent)
	if !ok || ev.PointerType == "mouse" {
		return
	}
	pos := math.Vec2{X: ev.CenterX, Y: ev.CenterY}

	switch ev.Phase {
	case input.GestureStart:
		t.moving = true
		t.delta = math.Vec2{}
		t.last = pos
	case input.GestureMove:
		if t.moving {
			t.delta = t.delta.Add(t.last.Sub(pos))
		}
		t.last = pos
	case input.GestureEnd, input.GestureCancel:
		t.moving = false
	}
}

// FreeFlight flies a first-person camera: the target is the eye.
type FreeFlight struct {
	Move   *KeyMove
	Height *KeyHeight
	Look   *MouseLook
	Touch  *TouchPan

	manager *Manager
}

// NewFreeFlight builds the free-flight scheme. cfg speeds scale the
// built-in defaults.
func NewFreeFlight(cfg config.ControlsConfig) *FreeFlight {
	move := speedOr(cfg.MoveSpeed)
	rotate := speedOr(cfg.RotateSpeed)
	return &FreeFlight{
		Move:   NewKeyMove(0.5*move, 0.1),
		Height: NewKeyHeight(0.5*move, 0.2),
		Look:   NewMouseLook(1.5*rotate, 3*rotate, 1.5*rotate, 0.5),
		Touch:  NewTouchPan(5*rotate, 0.15),
	}
}

func (f *FreeFlight) schemes() []Scheme {
	return []Scheme{f.Move, f.Height, f.Look, f.Touch}
}

func (f *FreeFlight) Start(m *Manager) {
	f.manager = m
	for _, s := range f.schemes() {
		s.Start(m)
	}
}

func (f *FreeFlight) Stop() {
	for _, s := range f.schemes() {
		s.Stop()
	}
}

func (f *FreeFlight) Update(deltaMs float64, terrain Terrain) {
	for _, s := range f.schemes() {
		s.Update(deltaMs, terrain)
	}

	m := f.manager
	m.Angle = math.Clamp(m.Angle, 0, gomath.Pi)
	m.SetDistance(0)
	m.SetOrtho(0)
}

func speedOr(v float64) float64 {
	if v <= 0 {
		return 1
	}
	return v
}
