// Copyright © 2013-2016 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package transfer

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/mayaflux/mayaflux/core/buffers"
	"github.com/mayaflux/mayaflux/core/tokens"
)

// Direction selects which domain a TransferProcessor copies data from and
// to.
type Direction int

const (
	AudioToGPU Direction = iota
	GPUToAudio
)

// BufferService is the backend-registered operation set a TransferProcessor
// and the staging helpers drive to actually move bytes: mapping, flush,
// invalidate, and immediate command execution. A concrete implementation
// lives behind core/registry so this package stays backend-agnostic.
type BufferService interface {
	MapBuffer(b *buffers.VKBuffer) ([]byte, error)
	UnmapBuffer(b *buffers.VKBuffer)
	FlushRange(b *buffers.VKBuffer, r buffers.Range) error
	InvalidateRange(b *buffers.VKBuffer, r buffers.Range) error
	// ExecuteImmediate runs a device-to-device or device-to-staging copy
	// synchronously, used when a buffer is not host-visible.
	ExecuteImmediate(src, dst *buffers.VKBuffer, size int64) error
}

// TransferProcessor moves data between an audio-domain source and a
// GPU-domain target (or vice versa), choosing a direct memcpy+flush when
// the target is host-visible, or staging through an intermediate buffer
// and an immediate backend copy otherwise.
type TransferProcessor struct {
	direction Direction
	targets   map[buffers.Buffer]buffers.Buffer // source -> target.
	staging   map[buffers.Buffer]*buffers.VKBuffer
	service   BufferService
}

// NewTransferProcessor creates a transfer processor for direction, with a
// source->target map and optional per-target staging buffers.
func NewTransferProcessor(direction Direction, targets map[buffers.Buffer]buffers.Buffer, staging map[buffers.Buffer]*buffers.VKBuffer) *TransferProcessor {
	if staging == nil {
		staging = map[buffers.Buffer]*buffers.VKBuffer{}
	}
	return &TransferProcessor{direction: direction, targets: targets, staging: staging}
}

// SetService installs the backend operations used to move bytes.
func (t *TransferProcessor) SetService(service BufferService) { t.service = service }

func (t *TransferProcessor) Token() tokens.ProcessingToken {
	if t.direction == AudioToGPU {
		return tokens.AudioParallel
	}
	return tokens.AudioBackend
}

func (t *TransferProcessor) IsCompatibleWith(b buffers.Buffer) bool {
	_, ok := t.targets[b]
	return ok
}

// Run moves b's current data to its registered target, direction
// determined by t.direction: AudioToGPU reads b as an AudioBuffer and
// writes into the GPU target; GPUToAudio reads b as a GPU buffer and
// writes the result into the AudioBuffer target. Each direction picks a
// direct memcpy+flush when the host-visible side is host-visible,
// otherwise a stage-then-copy through the registered staging buffer and
// the backend's ExecuteImmediate.
func (t *TransferProcessor) Run(b buffers.Buffer) error {
	target, ok := t.targets[b]
	if !ok {
		return fmt.Errorf("transfer: no target registered for source buffer")
	}
	if t.direction == GPUToAudio {
		return t.runDownload(b, target)
	}
	return t.runUpload(b, target)
}

// runUpload is the AudioToGPU path: b is an AudioBuffer, target is a GPU
// buffer.
func (t *TransferProcessor) runUpload(b buffers.Buffer, target buffers.Buffer) error {
	vkTarget, ok := target.(interface{ IsHostVisible() bool })
	if !ok {
		return fmt.Errorf("transfer: target %T is not a GPU buffer", target)
	}
	data, err := audioBytes(b)
	if err != nil {
		return err
	}
	if vkTarget.IsHostVisible() {
		return t.uploadHostVisible(targetVK(target), data)
	}
	staging := t.staging[b]
	if staging == nil {
		return fmt.Errorf("transfer: device-local target requires a staging buffer")
	}
	return t.uploadDeviceLocal(targetVK(target), staging, data)
}

// runDownload is the GPUToAudio path: b is a GPU buffer, target is an
// AudioBuffer that receives the decoded R64 samples.
func (t *TransferProcessor) runDownload(b buffers.Buffer, target buffers.Buffer) error {
	audio, ok := target.(*buffers.AudioBuffer)
	if !ok {
		return fmt.Errorf("transfer: GPU_TO_AUDIO target %T is not an AudioBuffer", target)
	}
	vkSource := targetVK(b)
	if vkSource == nil {
		return fmt.Errorf("transfer: source %T is not a GPU buffer", b)
	}

	size := int64(len(audio.Samples())) * 8
	if size == 0 {
		size = vkSource.Size()
	}
	out := make([]byte, size)

	if vkSource.IsHostVisible() {
		if err := t.downloadHostVisible(vkSource, out); err != nil {
			return err
		}
	} else {
		staging := t.staging[b]
		if staging == nil {
			return fmt.Errorf("transfer: device-local source requires a staging buffer")
		}
		if err := t.downloadDeviceLocal(vkSource, staging, out); err != nil {
			return err
		}
	}
	audio.SetSamples(bytesToFloat64s(out))
	return nil
}

// audioBytes extracts a source AudioBuffer's samples as R64 bytes.
func audioBytes(b buffers.Buffer) ([]byte, error) {
	audio, ok := b.(*buffers.AudioBuffer)
	if !ok {
		return nil, fmt.Errorf("transfer: only AudioBuffer sources are supported for AUDIO_TO_GPU")
	}
	return float64sToBytes(audio.Samples()), nil
}

func targetVK(b buffers.Buffer) *buffers.VKBuffer {
	switch v := b.(type) {
	case *buffers.VKBuffer:
		return v
	case *buffers.TextureBuffer:
		return v.VKBuffer
	case *buffers.GeometryBuffer:
		return v.VKBuffer
	case *buffers.DescriptorBuffer:
		return v.VKBuffer
	default:
		return nil
	}
}

// float64sToBytes packs audio samples as IEEE-754 double-precision (R64)
// bytes, matching the audio staging variants' precision requirement.
func float64sToBytes(samples []float64) []byte {
	out := make([]byte, len(samples)*8)
	for i, s := range samples {
		binary.LittleEndian.PutUint64(out[i*8:], math.Float64bits(s))
	}
	return out
}

// bytesToFloat64s is float64sToBytes's inverse, used on the GPU_TO_AUDIO
// download path to decode R64 bytes back into audio samples.
func bytesToFloat64s(data []byte) []float64 {
	out := make([]float64, len(data)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
	}
	return out
}

// uploadHostVisible memcpys data into target's mapped pointer, marks the
// whole span dirty, and flushes it.
func (t *TransferProcessor) uploadHostVisible(target *buffers.VKBuffer, data []byte) error {
	return UploadHostVisible(t.service, target, data)
}

// uploadDeviceLocal memcpys into staging, flushes staging, then enqueues
// a device-to-device copy via the backend.
func (t *TransferProcessor) uploadDeviceLocal(target, staging *buffers.VKBuffer, data []byte) error {
	return UploadDeviceLocal(t.service, target, staging, data)
}

// downloadHostVisible invalidates source's device-written ranges, then
// memcpys out of its mapped pointer into out.
func (t *TransferProcessor) downloadHostVisible(source *buffers.VKBuffer, out []byte) error {
	return DownloadHostVisible(t.service, source, out)
}

// downloadDeviceLocal enqueues a device-to-staging copy, invalidates
// staging, then memcpys into out.
func (t *TransferProcessor) downloadDeviceLocal(source, staging *buffers.VKBuffer, out []byte) error {
	return DownloadDeviceLocal(t.service, source, staging, out)
}
