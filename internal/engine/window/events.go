package window

import (
	"github.com/veandco/go-sdl2/sdl"

	"github.com/nosadnile/bluemap-go/internal/engine/input"
)

// scancodes maps the physical keys the controls use to DOM key codes.
var scancodes = map[sdl.Scancode]string{
	sdl.SCANCODE_W:        input.KeyW,
	sdl.SCANCODE_A:        input.KeyA,
	sdl.SCANCODE_S:        input.KeyS,
	sdl.SCANCODE_D:        input.KeyD,
	sdl.SCANCODE_UP:       input.KeyArrowUp,
	sdl.SCANCODE_DOWN:     input.KeyArrowDown,
	sdl.SCANCODE_LEFT:     input.KeyArrowLeft,
	sdl.SCANCODE_RIGHT:    input.KeyArrowRight,
	sdl.SCANCODE_SPACE:    input.KeySpace,
	sdl.SCANCODE_PAGEUP:   input.KeyPageUp,
	sdl.SCANCODE_PAGEDOWN: input.KeyPageDown,
	sdl.SCANCODE_LSHIFT:   input.KeyShiftLeft,
	sdl.SCANCODE_RSHIFT:   input.KeyShiftRight,
	sdl.SCANCODE_LCTRL:    input.KeyCtrlLeft,
	sdl.SCANCODE_RCTRL:    input.KeyCtrlRight,
	sdl.SCANCODE_LALT:     input.KeyAltLeft,
	sdl.SCANCODE_RALT:     input.KeyAltRight,
	sdl.SCANCODE_ESCAPE:   input.KeyEscape,
}

// translator turns SDL events into input events. It keeps the state SDL
// does not report on every event: held buttons, pointer lock and the
// finger driving a touch pan.
type translator struct {
	// modState returns the held modifiers; sdl.GetModState outside tests.
	modState func() sdl.Keymod

	width, height int
	buttons       int
	locked        bool

	finger  sdl.FingerID
	panning bool
}

func newTranslator(width, height int) *translator {
	return &translator{
		modState: sdl.GetModState,
		width:    width,
		height:   height,
	}
}

// button maps an SDL button to its input bit, or 0 for unsupported buttons.
func button(b uint8) int {
	switch b {
	case sdl.BUTTON_LEFT:
		return input.ButtonLeft
	case sdl.BUTTON_RIGHT:
		return input.ButtonRight
	case sdl.BUTTON_MIDDLE:
		return input.ButtonMiddle
	}
	return 0
}

// buttonMask converts an SDL motion button state (bit n-1 for button n).
func buttonMask(state uint32) int {
	var mask int
	for _, b := range []uint8{sdl.BUTTON_LEFT, sdl.BUTTON_MIDDLE, sdl.BUTTON_RIGHT} {
		if state&(1<<(b-1)) != 0 {
			mask |= button(b)
		}
	}
	return mask
}

// translate returns the input event for e, or nil when e has none.
func (t *translator) translate(e sdl.Event) input.Event {
	switch e := e.(type) {
	case *sdl.QuitEvent:
		return input.QuitEvent{}

	case *sdl.WindowEvent:
		if e.Event != sdl.WINDOWEVENT_SIZE_CHANGED {
			return nil
		}
		t.width, t.height = int(e.Data1), int(e.Data2)
		return input.ResizeEvent{Width: t.width, Height: t.height}

	case *sdl.KeyboardEvent:
		code, ok := scancodes[e.Keysym.Scancode]
		if !ok {
			return nil
		}
		mod := t.modState()
		return input.KeyEvent{
			Down:  e.Type == sdl.KEYDOWN,
			Code:  code,
			Ctrl:  mod&sdl.KMOD_CTRL != 0,
			Shift: mod&sdl.KMOD_SHIFT != 0,
			Alt:   mod&sdl.KMOD_ALT != 0,
		}

	case *sdl.MouseButtonEvent:
		b := button(e.Button)
		if b == 0 {
			return nil
		}
		down := e.State == sdl.PRESSED
		if down {
			t.buttons |= b
		} else {
			t.buttons &^= b
		}
		mod := t.modState()
		return input.MouseButtonEvent{
			Down:    down,
			X:       float64(e.X),
			Y:       float64(e.Y),
			Button:  b,
			Buttons: t.buttons,
			Ctrl:    mod&sdl.KMOD_CTRL != 0,
			Alt:     mod&sdl.KMOD_ALT != 0,
		}

	case *sdl.MouseMotionEvent:
		t.buttons = buttonMask(e.State)
		return input.MouseMoveEvent{
			X:             float64(e.X),
			Y:             float64(e.Y),
			MovementX:     float64(e.XRel),
			MovementY:     float64(e.YRel),
			Buttons:       t.buttons,
			PointerLocked: t.locked,
		}

	case *sdl.MouseWheelEvent:
		dy := float64(e.Y)
		if e.Direction == sdl.MOUSEWHEEL_FLIPPED {
			dy = -dy
		}
		// SDL reports lines with positive values away from the user
		return input.WheelEvent{DeltaY: -dy, Mode: input.WheelLine}

	case *sdl.TouchFingerEvent:
		return t.touch(e)
	}
	return nil
}

// touch follows the first finger down; other fingers are ignored.
func (t *translator) touch(e *sdl.TouchFingerEvent) input.Event {
	pan := input.PanEvent{
		CenterX:     float64(e.X) * float64(t.width),
		CenterY:     float64(e.Y) * float64(t.height),
		PointerType: "touch",
	}

	switch e.Type {
	case sdl.FINGERDOWN:
		if t.panning {
			return nil
		}
		t.panning, t.finger = true, e.FingerID
		pan.Phase = input.GestureStart
	case sdl.FINGERMOTION:
		if !t.panning || e.FingerID != t.finger {
			return nil
		}
		pan.Phase = input.GestureMove
	case sdl.FINGERUP:
		if !t.panning || e.FingerID != t.finger {
			return nil
		}
		t.panning = false
		pan.Phase = input.GestureEnd
	default:
		return nil
	}
	return pan
}
