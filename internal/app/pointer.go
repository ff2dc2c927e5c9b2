package app

import (
	gomath "math"

	"github.com/nosadnile/bluemap-go/internal/engine/input"
)

// clickSlop is how far in pixels the pointer may travel between press and
// release for the pair to count as a click.
const clickSlop = 5

// surface is the part of the window the pointer handler drives.
type surface interface {
	SetPointerLock(on bool)
	PointerLocked() bool
}

// pointer turns raw input into clicks and handles Escape. In capture mode
// a click locks the pointer instead of picking the map.
type pointer struct {
	surface surface
	capture func() bool
	onClick func(x, y float64)
	onQuit  func()

	pressed      bool
	moved        bool
	downX, downY float64
}

func (p *pointer) handle(e input.Event) {
	switch ev := e.(type) {
	case input.KeyEvent:
		if !ev.Down || ev.Code != input.KeyEscape {
			return
		}
		if p.surface.PointerLocked() {
			p.surface.SetPointerLock(false)
			return
		}
		p.onQuit()

	case input.MouseButtonEvent:
		if ev.Button != input.ButtonLeft {
			return
		}
		if ev.Down {
			p.pressed, p.moved = true, false
			p.downX, p.downY = ev.X, ev.Y
			return
		}
		if !p.pressed {
			return
		}
		p.pressed = false
		if p.moved || gomath.Hypot(ev.X-p.downX, ev.Y-p.downY) > clickSlop {
			return
		}
		p.click(ev.X, ev.Y)

	case input.MouseMoveEvent:
		if p.pressed && gomath.Hypot(ev.X-p.downX, ev.Y-p.downY) > clickSlop {
			p.moved = true
		}
	}
}

func (p *pointer) click(x, y float64) {
	if p.capture() {
		if !p.surface.PointerLocked() {
			p.surface.SetPointerLock(true)
		}
		return
	}
	p.onClick(x, y)
}
