package registry

import (
	"testing"

	"github.com/mayaflux/mayaflux/core/buffers"
	"github.com/mayaflux/mayaflux/core/tokens"
)

type greeter interface {
	Greet() string
}

type englishGreeter struct{}

func (englishGreeter) Greet() string { return "hello" }

type frenchGreeter struct{}

func (frenchGreeter) Greet() string { return "bonjour" }

func TestRegisterAndGetServiceByInterface(t *testing.T) {
	r := NewBackendRegistry()
	RegisterService[greeter](r, englishGreeter{})

	svc, ok := GetService[greeter](r)
	if !ok {
		t.Fatal("expected a registered greeter")
	}
	if svc.Greet() != "hello" {
		t.Errorf("Greet() = %q, want hello", svc.Greet())
	}
}

func TestRegisterServiceReplacesPrevious(t *testing.T) {
	r := NewBackendRegistry()
	RegisterService[greeter](r, englishGreeter{})
	RegisterService[greeter](r, frenchGreeter{})

	svc, ok := GetService[greeter](r)
	if !ok || svc.Greet() != "bonjour" {
		t.Errorf("expected the later registration to win, got %v, ok=%v", svc, ok)
	}
}

func TestGetServiceMissingReturnsNotOK(t *testing.T) {
	r := NewBackendRegistry()
	_, ok := GetService[greeter](r)
	if ok {
		t.Error("expected ok=false for an unregistered type")
	}
}

func TestHasServiceAndUnregister(t *testing.T) {
	r := NewBackendRegistry()
	RegisterService[greeter](r, englishGreeter{})
	if !HasService[greeter](r) {
		t.Fatal("expected HasService to be true after registration")
	}
	UnregisterService[greeter](r)
	if HasService[greeter](r) {
		t.Error("expected HasService to be false after unregister")
	}
}

func TestMustGetServicePanicsWhenMissing(t *testing.T) {
	r := NewBackendRegistry()
	defer func() {
		if recover() == nil {
			t.Error("expected MustGetService to panic for a missing service")
		}
	}()
	MustGetService[greeter](r)
}

func TestClearAllServices(t *testing.T) {
	r := NewBackendRegistry()
	RegisterService[greeter](r, englishGreeter{})
	if r.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", r.Len())
	}
	r.ClearAllServices()
	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after ClearAllServices", r.Len())
	}
}

func TestMemoryBufferServiceRoundTripsThroughExecuteImmediate(t *testing.T) {
	svc := NewMemoryBufferService()
	src := buffers.NewVKBuffer(16, buffers.UsageStaging, "audio-1d", tokens.AudioParallel)
	dst := buffers.NewVKBuffer(16, buffers.UsageDevice, "audio-1d", tokens.AudioParallel)

	mapped, err := svc.MapBuffer(src)
	if err != nil {
		t.Fatalf("MapBuffer() error = %v", err)
	}
	copy(mapped, []byte("0123456789abcdef"))

	if err := svc.ExecuteImmediate(src, dst, 16); err != nil {
		t.Fatalf("ExecuteImmediate() error = %v", err)
	}
	dstMapped, err := svc.MapBuffer(dst)
	if err != nil {
		t.Fatalf("MapBuffer(dst) error = %v", err)
	}
	if string(dstMapped) != "0123456789abcdef" {
		t.Errorf("dst content = %q, want source content copied through", dstMapped)
	}
}

func TestMemoryBufferServiceFlushRejectsOutOfBoundsRange(t *testing.T) {
	svc := NewMemoryBufferService()
	buf := buffers.NewVKBuffer(8, buffers.UsageStaging, "audio-1d", tokens.AudioParallel)
	if err := svc.FlushRange(buf, buffers.Range{Offset: 4, Size: 8}); err == nil {
		t.Error("expected an error for a flush range exceeding buffer size")
	}
}
