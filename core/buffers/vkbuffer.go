// Copyright © 2013-2016 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package buffers

import (
	"sync"

	"github.com/mayaflux/mayaflux/core/tokens"
)

// Usage selects what a VKBuffer's device memory is for, mirroring the
// Vulkan usage-flag groupings the teacher's render/vulkan.go reasons about
// when picking memory types.
type Usage int

const (
	UsageStaging Usage = iota
	UsageDevice
	UsageCompute
	UsageVertex
	UsageIndex
	UsageUniform
)

// Handle is an opaque backend-assigned resource reference (a Vulkan
// buffer + memory pair, or whatever the registered BufferService uses).
type Handle uint64

// VKBuffer is a GPU-resident buffer: a size, a usage, a semantic modality
// string ("audio-1d", "rgba-image", "vertex-positions", ...), an optional
// mapped host pointer, opaque device handles, and the two coherence range
// lists described in spec 4.D.
type VKBuffer struct {
	common

	size     int64
	usage    Usage
	modality string

	mu            sync.Mutex
	mapped        []byte // nil unless host-visible and currently mapped.
	bufferHandle  Handle
	memoryHandle  Handle
	dirtyRanges   []Range
	invalidRanges []Range
}

// NewVKBuffer creates a GPU buffer of size bytes for usage, tagged token.
func NewVKBuffer(size int64, usage Usage, modality string, token tokens.ProcessingToken) *VKBuffer {
	return &VKBuffer{common: newCommon(token), size: size, usage: usage, modality: modality}
}

func (v *VKBuffer) Size() int64       { return v.size }
func (v *VKBuffer) Usage() Usage      { return v.usage }
func (v *VKBuffer) Modality() string  { return v.modality }

// IsHostVisible reports whether this buffer's memory is directly
// addressable by the CPU (staging buffers always are; device-usage
// buffers generally are not, per the decision the TransferProcessor reads
// to pick memcpy vs. stage-and-copy).
func (v *VKBuffer) IsHostVisible() bool { return v.usage == UsageStaging }

// SetHandles records the backend-assigned buffer/memory pair, called once
// by a BufferService on first attach.
func (v *VKBuffer) SetHandles(buf, mem Handle) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.bufferHandle, v.memoryHandle = buf, mem
	v.hasData = true
}

func (v *VKBuffer) Handles() (buffer, memory Handle) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.bufferHandle, v.memoryHandle
}

// Map records a host-visible mapped pointer (represented as a byte slice
// in this pure-Go model rather than a raw pointer).
func (v *VKBuffer) Map(mapped []byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.mapped = mapped
}

func (v *VKBuffer) Mapped() []byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.mapped
}

func (v *VKBuffer) Unmap() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.mapped = nil
}

// MarkDirtyRange records a host write at [offset, offset+size) that needs
// a backend flush_range before the device may read it.
func (v *VKBuffer) MarkDirtyRange(offset, size int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.dirtyRanges = append(v.dirtyRanges, Range{Offset: offset, Size: size})
}

// MarkInvalidRange records a device write that needs a backend
// invalidate_range before the host may read it.
func (v *VKBuffer) MarkInvalidRange(offset, size int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.invalidRanges = append(v.invalidRanges, Range{Offset: offset, Size: size})
}

// GetAndClearDirtyRanges returns and empties the dirty-range list, the
// consuming half of the flush pass.
func (v *VKBuffer) GetAndClearDirtyRanges() []Range {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := v.dirtyRanges
	v.dirtyRanges = nil
	return out
}

// GetAndClearInvalidRanges returns and empties the invalid-range list.
func (v *VKBuffer) GetAndClearInvalidRanges() []Range {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := v.invalidRanges
	v.invalidRanges = nil
	return out
}

// NeedsDefaultProcessing reports whether the buffer's default processor
// should run this cycle, mirroring AudioBuffer.NeedsDefaultProcessing: a
// VKBuffer has no implicit dirty condition of its own, so a default
// processor is eligible whenever one is attached.
func (v *VKBuffer) NeedsDefaultProcessing() bool { return v.defaultProcessor != nil }

// ProcessDefault runs the buffer's default processor (if any and needed)
// under the processing guard. It does not run the chain; RunCycle does
// that afterwards.
func (v *VKBuffer) ProcessDefault() error {
	if !v.TryAcquireProcessing() {
		return nil
	}
	defer v.ReleaseProcessing()
	if v.defaultProcessor != nil && v.NeedsDefaultProcessing() {
		return v.defaultProcessor.Run(v)
	}
	return nil
}

// RunCycle executes the full per-buffer processing cycle: default, then
// the attached processing chain.
func (v *VKBuffer) RunCycle() error {
	if err := v.ProcessDefault(); err != nil {
		return err
	}
	return v.chain.Run(v)
}

// TextureBuffer is a VKBuffer used as a vertex quad, paired with CPU-side
// pixel storage and an opaque GPU image handle.
type TextureBuffer struct {
	*VKBuffer

	pixels        []byte
	imageHandle   Handle
	textureDirty  bool
	geometryDirty bool
}

// NewTextureBuffer creates a texture buffer backed by a vertex-quad
// VKBuffer of quadSize bytes.
func NewTextureBuffer(quadSize int64, token tokens.ProcessingToken) *TextureBuffer {
	return &TextureBuffer{VKBuffer: NewVKBuffer(quadSize, UsageVertex, "rgba-image", token)}
}

func (t *TextureBuffer) SetPixels(pixels []byte) {
	t.pixels = pixels
	t.textureDirty = true
}

func (t *TextureBuffer) Pixels() []byte        { return t.pixels }
func (t *TextureBuffer) TextureDirty() bool    { return t.textureDirty }
func (t *TextureBuffer) ClearTextureDirty()    { t.textureDirty = false }
func (t *TextureBuffer) MarkGeometryDirty()    { t.geometryDirty = true }
func (t *TextureBuffer) GeometryDirty() bool   { return t.geometryDirty }
func (t *TextureBuffer) ClearGeometryDirty()   { t.geometryDirty = false }
func (t *TextureBuffer) SetImageHandle(h Handle) { t.imageHandle = h }
func (t *TextureBuffer) ImageHandle() Handle   { return t.imageHandle }

// VertexSource is a node that produces procedurally generated vertex
// bytes for a GeometryBuffer.
type VertexSource interface {
	NeedsGPUUpdate() bool
	VertexBytes() []byte
}

// GeometryBuffer is a VKBuffer holding procedurally generated vertices,
// bound to the node(s) that produce them.
type GeometryBuffer struct {
	*VKBuffer
	sources []VertexSource
}

// NewGeometryBuffer creates a geometry buffer of the given initial size.
func NewGeometryBuffer(size int64, token tokens.ProcessingToken) *GeometryBuffer {
	return &GeometryBuffer{VKBuffer: NewVKBuffer(size, UsageVertex, "vertex-positions", token)}
}

// BindSource attaches a vertex-producing node to this buffer.
func (g *GeometryBuffer) BindSource(s VertexSource) { g.sources = append(g.sources, s) }
func (g *GeometryBuffer) Sources() []VertexSource   { return g.sources }

// Grow resizes the buffer to at least required bytes, growing by 1.5x
// per spec 4.D's GeometryBindingsProcessor contract rather than to the
// exact requirement, to amortize repeated small growths.
func (g *GeometryBuffer) Grow(required int64) {
	if required <= g.size {
		return
	}
	newSize := g.size + g.size/2
	if newSize < required {
		newSize = required
	}
	g.size = newSize
}

// DescriptorKind distinguishes the payload shape a DescriptorBuffer holds.
type DescriptorKind int

const (
	DescriptorScalar DescriptorKind = iota
	DescriptorVector
	DescriptorMatrix
	DescriptorStructured
)

// DescriptorSource is a node that produces packed UBO/SSBO bytes.
type DescriptorSource interface {
	NeedsGPUUpdate() bool
	DescriptorBytes() []byte
	Kind() DescriptorKind
}

// DescriptorBuffer is a VKBuffer holding packed descriptor payloads bound
// to one or more producing nodes.
type DescriptorBuffer struct {
	*VKBuffer
	sources []DescriptorSource
}

// NewDescriptorBuffer creates a descriptor (UBO/SSBO) buffer.
func NewDescriptorBuffer(size int64, token tokens.ProcessingToken) *DescriptorBuffer {
	return &DescriptorBuffer{VKBuffer: NewVKBuffer(size, UsageUniform, "descriptor", token)}
}

func (d *DescriptorBuffer) BindSource(s DescriptorSource) { d.sources = append(d.sources, s) }
func (d *DescriptorBuffer) Sources() []DescriptorSource   { return d.sources }
