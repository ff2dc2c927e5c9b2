package input

// Modifier is a modifier key required by a KeyCombination.
type Modifier int

const (
	Ctrl Modifier = iota
	Shift
	Alt
)

// KeyCombination is a key code plus the modifier state it requires.
type KeyCombination struct {
	Code  string
	Ctrl  bool
	Shift bool
	Alt   bool
}

// NewKeyCombination builds a combination. A modifier key code implies its
// own modifier, since the modifier is held while that key is down.
func NewKeyCombination(code string, mods ...Modifier) KeyCombination {
	k := KeyCombination{Code: code}
	for _, m := range mods {
		switch m {
		case Ctrl:
			k.Ctrl = true
		case Shift:
			k.Shift = true
		case Alt:
			k.Alt = true
		}
	}
	switch code {
	case KeyCtrlLeft, KeyCtrlRight:
		k.Ctrl = true
	case KeyShiftLeft, KeyShiftRight:
		k.Shift = true
	case KeyAltLeft, KeyAltRight:
		k.Alt = true
	}
	return k
}

// TestDown reports whether e presses exactly this combination.
func (k KeyCombination) TestDown(e KeyEvent) bool {
	return k.Code == e.Code &&
		k.Ctrl == e.Ctrl &&
		k.Shift == e.Shift &&
		k.Alt == e.Alt
}

// TestUp matches on the code alone so releasing a modifier first
// cannot leave the key stuck.
func (k KeyCombination) TestUp(e KeyEvent) bool {
	return k.Code == e.Code
}

// OneDown reports whether any combination matches TestDown.
func OneDown(e KeyEvent, combos ...KeyCombination) bool {
	for _, c := range combos {
		if c.TestDown(e) {
			return true
		}
	}
	return false
}

// OneUp reports whether any combination matches TestUp.
func OneUp(e KeyEvent, combos ...KeyCombination) bool {
	for _, c := range combos {
		if c.TestUp(e) {
			return true
		}
	}
	return false
}
