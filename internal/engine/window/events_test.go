package window

import (
	"testing"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/nosadnile/bluemap-go/internal/engine/input"
)

func newTestTranslator(mod sdl.Keymod) *translator {
	t := newTranslator(800, 600)
	t.modState = func() sdl.Keymod { return mod }
	return t
}

func TestTranslateKeys(t *testing.T) {
	tests := []struct {
		name  string
		mod   sdl.Keymod
		event *sdl.KeyboardEvent
		want  input.Event
	}{
		{
			"w down",
			0,
			&sdl.KeyboardEvent{Type: sdl.KEYDOWN, State: sdl.PRESSED, Keysym: sdl.Keysym{Scancode: sdl.SCANCODE_W}},
			input.KeyEvent{Down: true, Code: input.KeyW},
		},
		{
			"arrow up released",
			0,
			&sdl.KeyboardEvent{Type: sdl.KEYUP, State: sdl.RELEASED, Keysym: sdl.Keysym{Scancode: sdl.SCANCODE_UP}},
			input.KeyEvent{Down: false, Code: input.KeyArrowUp},
		},
		{
			"shift with ctrl held",
			sdl.KMOD_LSHIFT | sdl.KMOD_LCTRL,
			&sdl.KeyboardEvent{Type: sdl.KEYDOWN, State: sdl.PRESSED, Keysym: sdl.Keysym{Scancode: sdl.SCANCODE_LSHIFT}},
			input.KeyEvent{Down: true, Code: input.KeyShiftLeft, Shift: true, Ctrl: true},
		},
		{
			"unmapped key",
			0,
			&sdl.KeyboardEvent{Type: sdl.KEYDOWN, State: sdl.PRESSED, Keysym: sdl.Keysym{Scancode: sdl.SCANCODE_F5}},
			nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := newTestTranslator(tt.mod).translate(tt.event)
			if got != tt.want {
				t.Errorf("translate = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestTranslateMouseButtons(t *testing.T) {
	tr := newTestTranslator(sdl.KMOD_LCTRL)

	got := tr.translate(&sdl.MouseButtonEvent{Type: sdl.MOUSEBUTTONDOWN, Button: sdl.BUTTON_RIGHT, State: sdl.PRESSED, X: 10, Y: 20})
	want := input.MouseButtonEvent{Down: true, X: 10, Y: 20, Button: input.ButtonRight, Buttons: input.ButtonRight, Ctrl: true}
	if got != want {
		t.Errorf("right down = %#v, want %#v", got, want)
	}

	got = tr.translate(&sdl.MouseButtonEvent{Type: sdl.MOUSEBUTTONDOWN, Button: sdl.BUTTON_LEFT, State: sdl.PRESSED})
	if e := got.(input.MouseButtonEvent); e.Buttons != input.ButtonLeft|input.ButtonRight {
		t.Errorf("buttons = %b, want left|right", e.Buttons)
	}

	got = tr.translate(&sdl.MouseButtonEvent{Type: sdl.MOUSEBUTTONUP, Button: sdl.BUTTON_RIGHT, State: sdl.RELEASED})
	if e := got.(input.MouseButtonEvent); e.Down || e.Buttons != input.ButtonLeft {
		t.Errorf("right up = %#v", e)
	}

	if got := tr.translate(&sdl.MouseButtonEvent{Button: sdl.BUTTON_X1, State: sdl.PRESSED}); got != nil {
		t.Errorf("extra button = %#v, want nil", got)
	}
}

func TestButtonMask(t *testing.T) {
	tests := []struct {
		state uint32
		want  int
	}{
		{0, 0},
		{1, input.ButtonLeft},
		{2, input.ButtonMiddle},
		{4, input.ButtonRight},
		{5, input.ButtonLeft | input.ButtonRight},
		{8, 0},
	}
	for _, tt := range tests {
		if got := buttonMask(tt.state); got != tt.want {
			t.Errorf("buttonMask(%b) = %b, want %b", tt.state, got, tt.want)
		}
	}
}

func TestTranslateMotion(t *testing.T) {
	tr := newTestTranslator(0)
	tr.locked = true

	got := tr.translate(&sdl.MouseMotionEvent{X: 5, Y: 6, XRel: -3, YRel: 2, State: 4})
	want := input.MouseMoveEvent{X: 5, Y: 6, MovementX: -3, MovementY: 2, Buttons: input.ButtonRight, PointerLocked: true}
	if got != want {
		t.Errorf("motion = %#v, want %#v", got, want)
	}
}

func TestTranslateWheel(t *testing.T) {
	tr := newTestTranslator(0)
	if got := tr.translate(&sdl.MouseWheelEvent{Y: 1}); got != (input.WheelEvent{DeltaY: -1, Mode: input.WheelLine}) {
		t.Errorf("wheel up = %#v", got)
	}
	if got := tr.translate(&sdl.MouseWheelEvent{Y: 2, Direction: sdl.MOUSEWHEEL_FLIPPED}); got != (input.WheelEvent{DeltaY: 2, Mode: input.WheelLine}) {
		t.Errorf("flipped wheel = %#v", got)
	}
}

func TestTranslateResize(t *testing.T) {
	tr := newTestTranslator(0)
	got := tr.translate(&sdl.WindowEvent{Event: sdl.WINDOWEVENT_SIZE_CHANGED, Data1: 1024, Data2: 768})
	if got != (input.ResizeEvent{Width: 1024, Height: 768}) {
		t.Errorf("resize = %#v", got)
	}
	if got := tr.translate(&sdl.WindowEvent{Event: sdl.WINDOWEVENT_MOVED}); got != nil {
		t.Errorf("move = %#v, want nil", got)
	}
	if got := tr.translate(&sdl.QuitEvent{}); got != (input.QuitEvent{}) {
		t.Errorf("quit = %#v", got)
	}
}

func TestTranslateTouch(t *testing.T) {
	tr := newTestTranslator(0)

	events := []struct {
		event *sdl.TouchFingerEvent
		want  input.Event
	}{
		{&sdl.TouchFingerEvent{Type: sdl.FINGERDOWN, FingerID: 1, X: 0.5, Y: 0.5},
			input.PanEvent{Phase: input.GestureStart, CenterX: 400, CenterY: 300, PointerType: "touch"}},
		// a second finger does not start another pan
		{&sdl.TouchFingerEvent{Type: sdl.FINGERDOWN, FingerID: 2, X: 0.1, Y: 0.1}, nil},
		{&sdl.TouchFingerEvent{Type: sdl.FINGERMOTION, FingerID: 2, X: 0.2, Y: 0.2}, nil},
		{&sdl.TouchFingerEvent{Type: sdl.FINGERMOTION, FingerID: 1, X: 0.25, Y: 0.5},
			input.PanEvent{Phase: input.GestureMove, CenterX: 200, CenterY: 300, PointerType: "touch"}},
		{&sdl.TouchFingerEvent{Type: sdl.FINGERUP, FingerID: 1, X: 0.25, Y: 0.5},
			input.PanEvent{Phase: input.GestureEnd, CenterX: 200, CenterY: 300, PointerType: "touch"}},
		{&sdl.TouchFingerEvent{Type: sdl.FINGERMOTION, FingerID: 1, X: 0.3, Y: 0.5}, nil},
	}
	for i, e := range events {
		if got := tr.translate(e.event); got != e.want {
			t.Errorf("event %d = %#v, want %#v", i, got, e.want)
		}
	}
}
