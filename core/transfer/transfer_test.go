package transfer

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/mayaflux/mayaflux/core/buffers"
	"github.com/mayaflux/mayaflux/core/tokens"
)

// fakeService is a BufferService stand-in that just records calls and
// keeps host-visible buffers mapped to plain byte slices, enough to drive
// TransferProcessor / staging utility tests without a real Vulkan backend.
type fakeService struct {
	flushes      []buffers.Range
	invalidates  []buffers.Range
	immediateRan bool
	immediateErr error
}

func (f *fakeService) MapBuffer(b *buffers.VKBuffer) ([]byte, error) {
	mapped := make([]byte, b.Size())
	b.Map(mapped)
	return mapped, nil
}

func (f *fakeService) UnmapBuffer(b *buffers.VKBuffer) { b.Unmap() }

func (f *fakeService) FlushRange(b *buffers.VKBuffer, r buffers.Range) error {
	f.flushes = append(f.flushes, r)
	return nil
}

func (f *fakeService) InvalidateRange(b *buffers.VKBuffer, r buffers.Range) error {
	f.invalidates = append(f.invalidates, r)
	return nil
}

func (f *fakeService) ExecuteImmediate(src, dst *buffers.VKBuffer, size int64) error {
	f.immediateRan = true
	if f.immediateErr != nil {
		return f.immediateErr
	}
	// Model the device-to-device copy by moving staging's mapped bytes
	// into dst's, since this fake has no real device memory.
	if dst.Mapped() == nil {
		dst.Map(make([]byte, dst.Size()))
	}
	copy(dst.Mapped(), src.Mapped()[:size])
	return nil
}

func TestFloat64sToBytesRoundTrips(t *testing.T) {
	samples := []float64{0.0, 1.0, -1.0, 0.5, math.Pi}
	out := float64sToBytes(samples)
	if len(out) != len(samples)*8 {
		t.Fatalf("len(out) = %d, want %d", len(out), len(samples)*8)
	}
	for i, want := range samples {
		got := math.Float64frombits(binary.LittleEndian.Uint64(out[i*8:]))
		if got != want {
			t.Errorf("sample %d: got %v, want %v", i, got, want)
		}
	}
}

func TestUploadHostVisibleFlushesWrittenRange(t *testing.T) {
	svc := &fakeService{}
	target := buffers.NewVKBuffer(64, buffers.UsageStaging, "audio-1d", tokens.AudioParallel)
	data := float64sToBytes([]float64{1, 2, 3})

	if err := UploadHostVisible(svc, target, data); err != nil {
		t.Fatalf("UploadHostVisible() error = %v", err)
	}
	if len(svc.flushes) != 1 || svc.flushes[0].Size != int64(len(data)) {
		t.Errorf("expected one flush covering %d bytes, got %v", len(data), svc.flushes)
	}
	if got := target.Mapped()[:len(data)]; string(got) != string(data) {
		t.Errorf("mapped bytes were not written")
	}
}

func TestUploadHostVisibleRejectsOversizedPayload(t *testing.T) {
	svc := &fakeService{}
	target := buffers.NewVKBuffer(4, buffers.UsageStaging, "audio-1d", tokens.AudioParallel)
	data := float64sToBytes([]float64{1, 2})

	if err := UploadHostVisible(svc, target, data); err == nil {
		t.Fatal("expected an error for a payload larger than the target buffer")
	}
}

func TestUploadDeviceLocalStagesThenCopies(t *testing.T) {
	svc := &fakeService{}
	target := buffers.NewVKBuffer(64, buffers.UsageDevice, "audio-1d", tokens.AudioParallel)
	staging := CreateStagingBuffer(64)
	data := float64sToBytes([]float64{4, 5, 6})

	if err := UploadDeviceLocal(svc, target, staging, data); err != nil {
		t.Fatalf("UploadDeviceLocal() error = %v", err)
	}
	if !svc.immediateRan {
		t.Errorf("expected ExecuteImmediate to run the staging-to-device copy")
	}
}

func TestUploadDeviceLocalRequiresStaging(t *testing.T) {
	svc := &fakeService{}
	target := buffers.NewVKBuffer(64, buffers.UsageDevice, "audio-1d", tokens.AudioParallel)
	data := float64sToBytes([]float64{1})
	if err := UploadDeviceLocal(svc, target, nil, data); err == nil {
		t.Fatal("expected an error when no staging buffer is supplied")
	}
}

func TestUploadAudioToGPURejectsMisalignedPayload(t *testing.T) {
	svc := &fakeService{}
	target := buffers.NewVKBuffer(64, buffers.UsageStaging, "audio-1d", tokens.AudioParallel)
	if err := UploadAudioToGPU(svc, []byte{1, 2, 3}, target, nil); err == nil {
		t.Fatal("expected an R64-alignment error for a 3-byte payload")
	}
}

func TestUploadToGPUDispatchesByHostVisibility(t *testing.T) {
	svc := &fakeService{}
	hostVisible := buffers.NewVKBuffer(64, buffers.UsageStaging, "audio-1d", tokens.AudioParallel)
	data := float64sToBytes([]float64{7})
	if err := UploadToGPU(svc, data, hostVisible, nil); err != nil {
		t.Fatalf("UploadToGPU() error = %v", err)
	}
	if len(svc.flushes) != 1 {
		t.Errorf("host-visible target should take the direct flush path, got %d flushes", len(svc.flushes))
	}

	deviceLocal := buffers.NewVKBuffer(64, buffers.UsageDevice, "audio-1d", tokens.AudioParallel)
	svc2 := &fakeService{}
	if err := UploadToGPU(svc2, data, deviceLocal, nil); err != nil {
		t.Fatalf("UploadToGPU() error = %v", err)
	}
	if !svc2.immediateRan {
		t.Errorf("device-local target without explicit staging should auto-create one and copy")
	}
}

func TestTransferProcessorRunsHostVisiblePath(t *testing.T) {
	svc := &fakeService{}
	src := buffers.NewAudioBuffer(0, tokens.AudioParallel)
	src.SetSamples([]float64{0.1, 0.2, 0.3})
	target := buffers.NewVKBuffer(64, buffers.UsageStaging, "audio-1d", tokens.AudioParallel)

	proc := NewTransferProcessor(AudioToGPU, map[buffers.Buffer]buffers.Buffer{src: target}, nil)
	proc.SetService(svc)

	if err := proc.Run(src); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(svc.flushes) != 1 {
		t.Errorf("expected one flush from the host-visible upload path")
	}
}

func TestTransferProcessorRunsDeviceLocalPath(t *testing.T) {
	svc := &fakeService{}
	src := buffers.NewAudioBuffer(0, tokens.AudioParallel)
	src.SetSamples([]float64{0.4, 0.5})
	target := buffers.NewVKBuffer(64, buffers.UsageDevice, "audio-1d", tokens.AudioParallel)
	staging := CreateStagingBuffer(64)

	proc := NewTransferProcessor(AudioToGPU, map[buffers.Buffer]buffers.Buffer{src: target}, map[buffers.Buffer]*buffers.VKBuffer{src: staging})
	proc.SetService(svc)

	if err := proc.Run(src); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !svc.immediateRan {
		t.Errorf("expected the device-local path to run ExecuteImmediate")
	}
}

func TestTransferProcessorRejectsUnregisteredSource(t *testing.T) {
	proc := NewTransferProcessor(AudioToGPU, map[buffers.Buffer]buffers.Buffer{}, nil)
	src := buffers.NewAudioBuffer(0, tokens.AudioParallel)
	if err := proc.Run(src); err == nil {
		t.Fatal("expected an error for a source with no registered target")
	}
}

func TestTransferProcessorTokenMatchesDirection(t *testing.T) {
	toGPU := NewTransferProcessor(AudioToGPU, nil, nil)
	if toGPU.Token() != tokens.AudioParallel {
		t.Errorf("AudioToGPU processor token = %v, want AudioParallel", toGPU.Token())
	}
	toAudio := NewTransferProcessor(GPUToAudio, nil, nil)
	if toAudio.Token() != tokens.AudioBackend {
		t.Errorf("GPUToAudio processor token = %v, want AudioBackend", toAudio.Token())
	}
}

// TestTransferRoundTripPreservesSamples is spec S6: an AudioBuffer's
// samples survive an AUDIO_TO_GPU upload followed by a GPU_TO_AUDIO
// download into a second AudioBuffer, byte-for-byte.
func TestTransferRoundTripPreservesSamples(t *testing.T) {
	svc := &fakeService{}
	original := buffers.NewAudioBuffer(0, tokens.AudioParallel)
	original.SetSamples([]float64{0.1, 0.2, 0.3, 0.4})

	gpuBuffer := buffers.NewVKBuffer(64, buffers.UsageStaging, "audio-1d", tokens.AudioParallel)
	up := NewTransferProcessor(AudioToGPU, map[buffers.Buffer]buffers.Buffer{original: gpuBuffer}, nil)
	up.SetService(svc)
	if err := up.Run(original); err != nil {
		t.Fatalf("upload Run() error = %v", err)
	}

	roundTripped := buffers.NewAudioBuffer(0, tokens.AudioParallel)
	roundTripped.SetSamples(make([]float64, 4)) // pre-size so runDownload knows the byte count.
	down := NewTransferProcessor(GPUToAudio, map[buffers.Buffer]buffers.Buffer{gpuBuffer: roundTripped}, nil)
	down.SetService(svc)
	if err := down.Run(gpuBuffer); err != nil {
		t.Fatalf("download Run() error = %v", err)
	}

	want := original.Samples()
	got := roundTripped.Samples()
	if len(got) != len(want) {
		t.Fatalf("len(got) = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: got %v, want %v", i, got[i], want[i])
		}
	}
}
