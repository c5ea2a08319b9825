// Copyright © 2013-2016 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package device

import "sync/atomic"

// window.go adapts the device package's OS-native Pressed/poll model into
// the spec's WindowEvent variant stream. The teacher's concrete OS shells
// (os_darwin.go, os_windows.go) remain the "GLFW-equivalent" that spec.md
// §1 explicitly places out of scope; NoopWindow is the stand-in backend
// the core compiles and tests against until a real one is registered
// through core/registry.

// EventType names one of the WindowEvent variants from spec.md §6.
type EventType int

const (
	WindowResized EventType = iota
	WindowClosed
	WindowFocusGained
	WindowFocusLost
	FramebufferResized
	KeyPressed
	KeyReleased
	KeyRepeat
	MouseMoved
	MouseButtonPressed
	MouseButtonReleased
	MouseScrolled
)

func (e EventType) String() string {
	switch e {
	case WindowResized:
		return "WINDOW_RESIZED"
	case WindowClosed:
		return "WINDOW_CLOSED"
	case WindowFocusGained:
		return "WINDOW_FOCUS_GAINED"
	case WindowFocusLost:
		return "WINDOW_FOCUS_LOST"
	case FramebufferResized:
		return "FRAMEBUFFER_RESIZED"
	case KeyPressed:
		return "KEY_PRESSED"
	case KeyReleased:
		return "KEY_RELEASED"
	case KeyRepeat:
		return "KEY_REPEAT"
	case MouseMoved:
		return "MOUSE_MOVED"
	case MouseButtonPressed:
		return "MOUSE_BUTTON_PRESSED"
	case MouseButtonReleased:
		return "MOUSE_BUTTON_RELEASED"
	case MouseScrolled:
		return "MOUSE_SCROLLED"
	default:
		return "UNKNOWN_EVENT"
	}
}

// ResizeData is the payload for WINDOW_RESIZED / FRAMEBUFFER_RESIZED.
type ResizeData struct{ W, H int }

// KeyData is the payload for KEY_PRESSED / KEY_RELEASED / KEY_REPEAT.
type KeyData struct {
	Key      Key
	Scancode int
	Mods     int
}

// MousePosData is the payload for MOUSE_MOVED.
type MousePosData struct{ X, Y float64 }

// MouseButtonData is the payload for MOUSE_BUTTON_PRESSED/RELEASED.
type MouseButtonData struct {
	Button int
	Mods   int
}

// ScrollData is the payload for MOUSE_SCROLLED.
type ScrollData struct{ Xoff, Yoff float64 }

// WindowEvent is the variant type from spec.md §6: a type tag, exactly one
// of the payload structs (whichever matches Type), and a timestamp in
// samples-since-epoch terms the caller's clock understands.
type WindowEvent struct {
	Type      EventType
	Timestamp int64

	Resize      *ResizeData
	Key         *KeyData
	MousePos    *MousePosData
	MouseButton *MouseButtonData
	Scroll      *ScrollData
}

// Key is an integer-backed key code. Printable ASCII ranges are literal;
// navigation/function/keypad/modifier ranges start at the literal offsets
// from spec.md §6's Key Mapping section.
type Key int

const (
	rangeDigitsStart     = 48  // '0'..'9' = 48..57
	rangeDigitsEnd       = 57
	rangeLettersStart    = 65  // 'A'..'Z' = 65..90
	rangeLettersEnd      = 90
	rangeNavigationStart = 256
	rangeNavigationEnd   = 289
	rangeFunctionStart   = 290
	rangeFunctionEnd     = 319
	rangeKeypadStart     = 320
	rangeKeypadEnd       = 339
	rangeModifierStart   = 340
	rangeModifierEnd     = 348
)

// Valid reports whether k falls within one of the literal ranges spec.md
// §6 defines as a valid key code.
func (k Key) Valid() bool {
	switch {
	case k >= rangeDigitsStart && k <= rangeDigitsEnd:
		return true
	case k >= rangeLettersStart && k <= rangeLettersEnd:
		return true
	case k >= rangeNavigationStart && k <= rangeNavigationEnd:
		return true
	case k >= rangeFunctionStart && k <= rangeFunctionEnd:
		return true
	case k >= rangeKeypadStart && k <= rangeKeypadEnd:
		return true
	case k >= rangeModifierStart && k <= rangeModifierEnd:
		return true
	default:
		return false
	}
}

// Navigation, function, keypad, and modifier keys named by their literal
// offset, mirroring the teacher's key_LeftArrow/key_F1/key_Keypad0 naming
// in input.go but renumbered onto the spec's ranges.
const (
	KeyLeft Key = rangeNavigationStart + iota
	KeyRight
	KeyUp
	KeyDown
	KeyHome
	KeyEnd
	KeyPageUp
	KeyPageDown
	KeyInsert
	KeyDelete
	KeyEscape
)

const (
	KeyF1 Key = rangeFunctionStart + iota
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyF8
	KeyF9
	KeyF10
	KeyF11
	KeyF12
)

const (
	KeyPad0 Key = rangeKeypadStart + iota
	KeyPad1
	KeyPad2
	KeyPad3
	KeyPad4
	KeyPad5
	KeyPad6
	KeyPad7
	KeyPad8
	KeyPad9
	KeyPadDecimal
	KeyPadDivide
	KeyPadMultiply
	KeyPadMinus
	KeyPadPlus
	KeyPadEnter
	KeyPadEquals
)

const (
	KeyShift Key = rangeModifierStart + iota
	KeyControl
	KeyAlt
	KeyCommand
	KeyCapsLock
)

// WindowBackend is the capability a concrete windowing implementation
// registers through core/registry: open a window, stream WindowEvents,
// and report liveness. The teacher's os_darwin.go/os_windows.go native
// shells are the concrete realization spec.md §1 keeps out of scope;
// NoopWindow below is the in-tree stand-in.
type WindowBackend interface {
	Open(title string, x, y, width, height int32) error
	Events() <-chan WindowEvent
	IsAlive() bool
	Close()
}

// NoopWindow is a WindowBackend that never produces events and reports
// alive until Close is called, mirroring audio.NoAudio's "safe mock when
// no real backend is available" role.
type NoopWindow struct {
	events chan WindowEvent
	alive  atomic.Bool
}

// NewNoopWindow creates a backend stand-in whose event stream never
// carries an event and is closed by Close.
func NewNoopWindow() *NoopWindow {
	return &NoopWindow{events: make(chan WindowEvent)}
}

func (w *NoopWindow) Open(title string, x, y, width, height int32) error {
	w.alive.Store(true)
	return nil
}

func (w *NoopWindow) Events() <-chan WindowEvent { return w.events }
func (w *NoopWindow) IsAlive() bool              { return w.alive.Load() }
func (w *NoopWindow) Close() {
	if w.alive.CompareAndSwap(true, false) {
		close(w.events)
	}
}
