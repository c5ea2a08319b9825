package buffers

import (
	"testing"

	"github.com/mayaflux/mayaflux/core/tokens"
)

func TestMixProcessorSumsAndLimits(t *testing.T) {
	unit := NewRootAudioUnit(tokens.AudioBackend)
	root := unit.Channel(0)

	a := NewAudioBuffer(0, tokens.AudioBackend)
	a.SetSamples([]float64{0.6, 0.6, -0.6})
	b := NewAudioBuffer(0, tokens.AudioBackend)
	b.SetSamples([]float64{0.6, -0.6, -0.6})

	root.AddChild(a, 1.0)
	root.AddChild(b, 1.0)

	if err := root.RunCycle(); err != nil {
		t.Fatalf("RunCycle() error = %v", err)
	}

	out := root.Samples()
	want := []float64{1.0, 0.0, -1.0} // 1.2 clamped to 1.0, 0, -1.2 clamped to -1.0.
	for i, w := range want {
		if out[i] != w {
			t.Errorf("out[%d] = %v, want %v", i, out[i], w)
		}
	}
}

func TestProcessingChainStrictRejectsIncompatibleToken(t *testing.T) {
	chain := NewProcessingChain(tokens.AudioBackend, Strict)
	mismatched := NewMixProcessor(tokens.GraphicsBackend)
	if err := chain.AddProcessor(mismatched); err == nil {
		t.Errorf("STRICT chain should reject a processor with a different token")
	}
}

func TestProcessingChainFilteredSkipsAtRuntime(t *testing.T) {
	chain := NewProcessingChain(tokens.AudioBackend, Filtered)
	ran := false
	tracking := &trackingProcessor{token: tokens.GraphicsBackend, ran: &ran}
	if err := chain.AddProcessor(tracking); err != nil {
		t.Fatalf("FILTERED chain should accept attach: %v", err)
	}
	buf := NewAudioBuffer(0, tokens.AudioBackend)
	if err := chain.Run(buf); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if ran {
		t.Errorf("FILTERED chain must skip a token-mismatched processor at run time")
	}
}

type trackingProcessor struct {
	token tokens.ProcessingToken
	ran   *bool
}

func (p *trackingProcessor) Token() tokens.ProcessingToken { return p.token }
func (p *trackingProcessor) IsCompatibleWith(b Buffer) bool { return true }
func (p *trackingProcessor) Run(b Buffer) error             { *p.ran = true; return nil }

func TestDirtyRangeTrackingRoundTrip(t *testing.T) {
	v := NewVKBuffer(1024, UsageStaging, "audio-1d", tokens.AudioBackend)
	v.MarkDirtyRange(0, 256)
	v.MarkDirtyRange(256, 256)

	ranges := v.GetAndClearDirtyRanges()
	if len(ranges) != 2 {
		t.Fatalf("expected 2 dirty ranges, got %d", len(ranges))
	}
	if again := v.GetAndClearDirtyRanges(); len(again) != 0 {
		t.Errorf("dirty ranges should be consumed exactly once, got %d remaining", len(again))
	}
}

func TestGeometryBufferGrowsBy1Point5x(t *testing.T) {
	g := NewGeometryBuffer(100, tokens.GraphicsBackend)
	g.Grow(120)
	if g.Size() != 150 {
		t.Errorf("Size() = %d, want 150 (100 * 1.5)", g.Size())
	}
	g.Grow(1000)
	if g.Size() != 1000 {
		t.Errorf("Size() = %d, want 1000 when 1.5x still insufficient", g.Size())
	}
}

func TestGraphicsBatchProcessorIteratesChildren(t *testing.T) {
	unit := NewRootGraphicsUnit(tokens.GraphicsBackend)
	root := unit.Root()

	child := NewVKBuffer(64, UsageDevice, "vertex-positions", tokens.GraphicsBackend)
	ran := false
	child.SetDefaultProcessor(&trackingProcessor{token: tokens.GraphicsBackend, ran: &ran})
	root.AddChild(child)

	if err := root.RunCycle(); err != nil {
		t.Fatalf("RunCycle() error = %v", err)
	}
	if !ran {
		t.Errorf("child default processor should have run")
	}
}

func TestPresentProcessorReceivesRoot(t *testing.T) {
	unit := NewRootGraphicsUnit(tokens.GraphicsBackend)
	root := unit.Root()

	var presented *RootGraphicsBuffer
	pp := NewPresentProcessor(tokens.GraphicsBackend, func(r *RootGraphicsBuffer) error {
		presented = r
		return nil
	})
	if err := root.SetPresentProcessor(pp); err != nil {
		t.Fatalf("SetPresentProcessor() error = %v", err)
	}
	if err := root.RunCycle(); err != nil {
		t.Fatalf("RunCycle() error = %v", err)
	}
	if presented != root {
		t.Errorf("PresentProcessor should receive the root buffer itself")
	}
}
