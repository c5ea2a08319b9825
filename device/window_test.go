package device

import "testing"

func TestKeyValidRanges(t *testing.T) {
	cases := map[Key]bool{
		48:  true,  // '0'
		57:  true,  // '9'
		65:  true,  // 'A'
		90:  true,  // 'Z'
		47:  false, // just below digits
		91:  false, // just above letters
		KeyLeft:     true,
		KeyF1:       true,
		KeyPad0:     true,
		KeyShift:    true,
		339 + 1 + 9: false, // past the modifier range
	}
	for k, want := range cases {
		if got := k.Valid(); got != want {
			t.Errorf("Key(%d).Valid() = %v, want %v", k, got, want)
		}
	}
}

func TestEventTypeStringCoversAllVariants(t *testing.T) {
	types := []EventType{
		WindowResized, WindowClosed, WindowFocusGained, WindowFocusLost,
		FramebufferResized, KeyPressed, KeyReleased, KeyRepeat,
		MouseMoved, MouseButtonPressed, MouseButtonReleased, MouseScrolled,
	}
	seen := map[string]bool{}
	for _, et := range types {
		s := et.String()
		if s == "UNKNOWN_EVENT" {
			t.Errorf("EventType %d stringified to UNKNOWN_EVENT", et)
		}
		if seen[s] {
			t.Errorf("duplicate EventType string %q", s)
		}
		seen[s] = true
	}
}

func TestNoopWindowOpenCloseLifecycle(t *testing.T) {
	w := NewNoopWindow()
	if w.IsAlive() {
		t.Fatal("NoopWindow should not be alive before Open")
	}
	if err := w.Open("test", 0, 0, 640, 480); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if !w.IsAlive() {
		t.Fatal("NoopWindow should be alive after Open")
	}
	w.Close()
	if w.IsAlive() {
		t.Error("NoopWindow should not be alive after Close")
	}
	if _, ok := <-w.Events(); ok {
		t.Error("Events() channel should be closed after Close")
	}
}

func TestNoopWindowCloseIsIdempotent(t *testing.T) {
	w := NewNoopWindow()
	w.Open("test", 0, 0, 640, 480)
	w.Close()
	w.Close() // must not panic on double-close
}
