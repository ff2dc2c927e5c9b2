// Package input defines the viewer's input events and fans them out to
// subscribed control schemes. Platform code (see engine/window) translates
// native events into these types.
package input

// Key codes follow the DOM KeyboardEvent.code names used in BlueMap.
const (
	KeyW          = "KeyW"
	KeyA          = "KeyA"
	KeyS          = "KeyS"
	KeyD          = "KeyD"
	KeyArrowUp    = "ArrowUp"
	KeyArrowDown  = "ArrowDown"
	KeyArrowLeft  = "ArrowLeft"
	KeyArrowRight = "ArrowRight"
	KeySpace      = "Space"
	KeyPageUp     = "PageUp"
	KeyPageDown   = "PageDown"
	KeyShiftLeft  = "ShiftLeft"
	KeyShiftRight = "ShiftRight"
	KeyCtrlLeft   = "CtrlLeft"
	KeyCtrlRight  = "CtrlRight"
	KeyAltLeft    = "AltLeft"
	KeyAltRight   = "AltRight"
	KeyEscape     = "Escape"
)

// Mouse button bits as reported in MouseMoveEvent.Buttons.
const (
	ButtonLeft   = 1
	ButtonRight  = 2
	ButtonMiddle = 4
)

// WheelMode is the unit of a wheel delta.
type WheelMode int

const (
	WheelPixel WheelMode = iota
	WheelLine
	WheelPage
)

// GesturePhase is the stage of a single-pointer pan gesture.
type GesturePhase int

const (
	GestureStart GesturePhase = iota
	GestureMove
	GestureEnd
	GestureCancel
)

// Event is one of the concrete event types below.
type Event interface {
	isEvent()
}

// KeyEvent is a key press or release.
type KeyEvent struct {
	Down             bool
	Code             string
	Ctrl, Shift, Alt bool
}

// MouseButtonEvent is a mouse button press or release.
type MouseButtonEvent struct {
	Down      bool
	X, Y      float64
	Button    int // ButtonLeft, ButtonRight or ButtonMiddle
	Buttons   int // buttons held after this event
	Ctrl, Alt bool
}

// MouseMoveEvent is a pointer motion.
type MouseMoveEvent struct {
	X, Y                 float64
	MovementX, MovementY float64
	Buttons              int
	PointerLocked        bool
}

// WheelEvent is a scroll.
type WheelEvent struct {
	DeltaY float64
	Mode   WheelMode
}

// PanEvent is a single-pointer drag gesture from touch or pen input.
type PanEvent struct {
	Phase            GesturePhase
	CenterX, CenterY float64
	PointerType      string // "touch", "pen" or "mouse"
}

// ResizeEvent reports the new drawable size.
type ResizeEvent struct {
	Width, Height int
}

// QuitEvent requests shutdown.
type QuitEvent struct{}

func (KeyEvent) isEvent()         {}
func (MouseButtonEvent) isEvent() {}
func (MouseMoveEvent) isEvent()   {}
func (WheelEvent) isEvent()       {}
func (PanEvent) isEvent()         {}
func (ResizeEvent) isEvent()      {}
func (QuitEvent) isEvent()        {}

// Handler receives dispatched events.
type Handler func(Event)

// Dispatcher fans events out to subscribers in subscription order.
// It is driven from the update loop and is not safe for concurrent use.
type Dispatcher struct {
	handlers map[int]Handler
	order    []int
	nextID   int

	width, height int
}

// NewDispatcher creates a dispatcher for a surface of the given size.
func NewDispatcher(width, height int) *Dispatcher {
	return &Dispatcher{
		handlers: make(map[int]Handler),
		width:    width,
		height:   height,
	}
}

// Subscribe registers h and returns a function that removes it again.
func (d *Dispatcher) Subscribe(h Handler) (unsubscribe func()) {
	id := d.nextID
	d.nextID++
	d.handlers[id] = h
	d.order = append(d.order, id)

	return func() {
		if _, ok := d.handlers[id]; !ok {
			return
		}
		delete(d.handlers, id)
		for i, v := range d.order {
			if v == id {
				d.order = append(d.order[:i], d.order[i+1:]...)
				break
			}
		}
	}
}

// Dispatch delivers e to every current subscriber. Handlers added or removed
// during dispatch take effect for the next event.
func (d *Dispatcher) Dispatch(e Event) {
	if r, ok := e.(ResizeEvent); ok {
		d.width, d.height = r.Width, r.Height
	}

	ids := make([]int, len(d.order))
	copy(ids, d.order)
	for _, id := range ids {
		if h, ok := d.handlers[id]; ok {
			h(e)
		}
	}
}

// Size returns the last known surface size.
func (d *Dispatcher) Size() (width, height int) {
	return d.width, d.height
}

// Len returns the number of subscribers.
func (d *Dispatcher) Len() int {
	return len(d.handlers)
}
