// Copyright © 2013-2016 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package registry

import (
	"fmt"

	"github.com/mayaflux/mayaflux/core/buffers"
	"github.com/mayaflux/mayaflux/core/transfer"
)

var _ transfer.BufferService = (*MemoryBufferService)(nil)

// MemoryBufferService is a transfer.BufferService implementation that
// models GPU memory as plain host byte slices rather than talking to a
// real graphics API. It plays the same "backend stands in until a real
// driver is wired" role as audio.NoAudio: RegisterService[transfer.BufferService]
// with one of these lets engine.Init run, and core/transfer's buffer
// routing be exercised, without a Vulkan context.
//
// Each VKBuffer's "device memory" is simply its own Mapped() slice;
// ExecuteImmediate copies directly between two buffers' slices rather
// than recording and submitting a command buffer, since there is no
// device queue to submit to.
type MemoryBufferService struct{}

// NewMemoryBufferService creates a host-memory-backed buffer service.
func NewMemoryBufferService() *MemoryBufferService { return &MemoryBufferService{} }

// MapBuffer allocates (or returns the existing) host-visible backing
// slice for b, mirroring the teacher's loadCPUBuffer's vk.MapMemory step
// without a real device allocation.
func (s *MemoryBufferService) MapBuffer(b *buffers.VKBuffer) ([]byte, error) {
	if mapped := b.Mapped(); mapped != nil {
		return mapped, nil
	}
	mapped := make([]byte, b.Size())
	b.Map(mapped)
	return mapped, nil
}

// UnmapBuffer releases b's mapped pointer, mirroring vk.UnmapMemory.
func (s *MemoryBufferService) UnmapBuffer(b *buffers.VKBuffer) { b.Unmap() }

// FlushRange is a no-op for host memory: there is no separate device
// copy to push a host write into, since Map/Unmap alias the same slice.
// A real Vulkan backend would call vk.FlushMappedMemoryRanges here.
func (s *MemoryBufferService) FlushRange(b *buffers.VKBuffer, r buffers.Range) error {
	if r.Offset < 0 || r.Offset+r.Size > b.Size() {
		return fmt.Errorf("registry: flush range [%d,%d) out of bounds for buffer of size %d", r.Offset, r.Offset+r.Size, b.Size())
	}
	return nil
}

// InvalidateRange is FlushRange's read-side counterpart; also a no-op for
// aliased host memory. A real backend would call
// vk.InvalidateMappedMemoryRanges here.
func (s *MemoryBufferService) InvalidateRange(b *buffers.VKBuffer, r buffers.Range) error {
	if r.Offset < 0 || r.Offset+r.Size > b.Size() {
		return fmt.Errorf("registry: invalidate range [%d,%d) out of bounds for buffer of size %d", r.Offset, r.Offset+r.Size, b.Size())
	}
	return nil
}

// ExecuteImmediate models the teacher's copyGPUBuffer one-time command:
// a synchronous src->dst copy of size bytes, submitted and waited on
// before returning, matching spec.md §9 OQ1's synchronous-copy
// resolution that core/transfer's DownloadDeviceLocal relies on.
func (s *MemoryBufferService) ExecuteImmediate(src, dst *buffers.VKBuffer, size int64) error {
	srcData, err := s.MapBuffer(src)
	if err != nil {
		return err
	}
	dstData, err := s.MapBuffer(dst)
	if err != nil {
		return err
	}
	if size > int64(len(srcData)) || size > int64(len(dstData)) {
		return fmt.Errorf("registry: execute_immediate copy of %d bytes exceeds src (%d) or dst (%d) capacity", size, len(srcData), len(dstData))
	}
	copy(dstData, srcData[:size])
	return nil
}
