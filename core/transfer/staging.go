// Copyright © 2013-2016 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package transfer

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/mayaflux/mayaflux/core/buffers"
	"github.com/mayaflux/mayaflux/core/tokens"
)

// UploadHostVisible memcpys data into target's mapped pointer, marks the
// written span dirty, and flushes it through the backend service.
func UploadHostVisible(service BufferService, target *buffers.VKBuffer, data []byte) error {
	mapped := target.Mapped()
	if mapped == nil {
		mapped = make([]byte, len(data))
		target.Map(mapped)
	}
	if int64(len(data)) > target.Size() {
		return fmt.Errorf("transfer: upload of %d bytes exceeds target size %d", len(data), target.Size())
	}
	copy(mapped, data)
	target.MarkDirtyRange(0, int64(len(data)))
	return flushDirty(service, target)
}

// UploadDeviceLocal memcpys data into staging's mapped pointer, flushes
// staging, then enqueues a device-to-device copy from staging to target.
func UploadDeviceLocal(service BufferService, target, staging *buffers.VKBuffer, data []byte) error {
	if staging == nil {
		return fmt.Errorf("transfer: upload_device_local requires a staging buffer")
	}
	if err := UploadHostVisible(service, staging, data); err != nil {
		return err
	}
	if service == nil {
		return fmt.Errorf("transfer: no BufferService registered for device-local copy")
	}
	return service.ExecuteImmediate(staging, target, int64(len(data)))
}

// DownloadHostVisible invalidates source's device-written ranges, then
// memcpys out of its mapped pointer into target.
func DownloadHostVisible(service BufferService, source *buffers.VKBuffer, target []byte) error {
	if err := invalidateDirty(service, source); err != nil {
		return err
	}
	mapped := source.Mapped()
	if mapped == nil {
		return fmt.Errorf("transfer: download_host_visible requires a mapped source")
	}
	copy(target, mapped)
	return nil
}

// DownloadDeviceLocal enqueues a device-to-staging copy, invalidates
// staging, then memcpys out into target.
func DownloadDeviceLocal(service BufferService, source, staging *buffers.VKBuffer, target []byte) error {
	if staging == nil {
		return fmt.Errorf("transfer: download_device_local requires a staging buffer")
	}
	if service == nil {
		return fmt.Errorf("transfer: no BufferService registered for device-local copy")
	}
	if err := service.ExecuteImmediate(source, staging, int64(len(target))); err != nil {
		return err
	}
	return DownloadHostVisible(service, staging, target)
}

// UploadToGPU auto-dispatches upload_host_visible or upload_device_local
// based on target.IsHostVisible, creating a staging buffer if none was
// supplied and the target needs one.
func UploadToGPU(service BufferService, data []byte, target *buffers.VKBuffer, staging *buffers.VKBuffer) error {
	if target.IsHostVisible() {
		return UploadHostVisible(service, target, data)
	}
	if staging == nil {
		staging = CreateStagingBuffer(int64(len(data)))
	}
	return UploadDeviceLocal(service, target, staging, data)
}

// DownloadFromGPU is UploadToGPU's mirror image for reads.
func DownloadFromGPU(service BufferService, source *buffers.VKBuffer, out []byte, staging *buffers.VKBuffer) error {
	if source.IsHostVisible() {
		return DownloadHostVisible(service, source, out)
	}
	if staging == nil {
		staging = CreateStagingBuffer(int64(len(out)))
	}
	return DownloadDeviceLocal(service, source, staging, out)
}

// CreateStagingBuffer allocates a host-visible staging buffer of size
// bytes. Its device handles are populated lazily by whatever BufferService
// first attaches it.
func CreateStagingBuffer(size int64) *buffers.VKBuffer {
	return buffers.NewVKBuffer(size, buffers.UsageStaging, "staging", tokens.AudioParallel)
}

// UploadAudioToGPU is the audio-specific upload variant: it enforces that
// data decodes as whole IEEE-754 doubles (R64), logging a diagnostic and
// refusing the transfer on any mismatch rather than silently truncating.
func UploadAudioToGPU(service BufferService, data []byte, target *buffers.VKBuffer, staging *buffers.VKBuffer) error {
	if len(data)%8 != 0 {
		logrus.WithFields(logrus.Fields{
			"bytes": len(data),
		}).Warn("transfer: audio upload size is not a multiple of 8 bytes (R64 mismatch)")
		return fmt.Errorf("transfer: audio payload of %d bytes is not R64-aligned", len(data))
	}
	return UploadToGPU(service, data, target, staging)
}

// DownloadAudioFromGPU is the download-side counterpart to
// UploadAudioToGPU, with the same R64-alignment enforcement.
func DownloadAudioFromGPU(service BufferService, source *buffers.VKBuffer, out []byte, staging *buffers.VKBuffer) error {
	if len(out)%8 != 0 {
		logrus.WithFields(logrus.Fields{
			"bytes": len(out),
		}).Warn("transfer: audio download size is not a multiple of 8 bytes (R64 mismatch)")
		return fmt.Errorf("transfer: audio payload of %d bytes is not R64-aligned", len(out))
	}
	return DownloadFromGPU(service, source, out, staging)
}

func flushDirty(service BufferService, target *buffers.VKBuffer) error {
	ranges := target.GetAndClearDirtyRanges()
	if service == nil {
		return nil
	}
	for _, r := range ranges {
		if err := service.FlushRange(target, r); err != nil {
			return err
		}
	}
	return nil
}

func invalidateDirty(service BufferService, source *buffers.VKBuffer) error {
	ranges := source.GetAndClearInvalidRanges()
	if service == nil {
		return nil
	}
	for _, r := range ranges {
		if err := service.InvalidateRange(source, r); err != nil {
			return err
		}
	}
	return nil
}
