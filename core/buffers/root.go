// Copyright © 2013-2016 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package buffers

import (
	"sync"

	"github.com/mayaflux/mayaflux/core/tokens"
)

// RootAudioBuffer is one output channel's aggregation point: it owns a
// processing chain (defaulting to a MixProcessor) and sums its children's
// samples into its own buffer each cycle.
type RootAudioBuffer struct {
	*AudioBuffer
	mu       sync.Mutex
	children []*AudioBuffer
	gains    map[*AudioBuffer]float64
}

func newRootAudioBuffer(channel int, token tokens.ProcessingToken) *RootAudioBuffer {
	r := &RootAudioBuffer{AudioBuffer: NewAudioBuffer(channel, token), gains: map[*AudioBuffer]float64{}}
	r.SetDefaultProcessor(NewMixProcessor(token))
	return r
}

// AddChild registers a child audio buffer to be mixed into this root at
// the given gain (1.0 = unity).
func (r *RootAudioBuffer) AddChild(child *AudioBuffer, gain float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.children = append(r.children, child)
	r.gains[child] = gain
}

// RemoveChild unregisters a previously added child buffer.
func (r *RootAudioBuffer) RemoveChild(child *AudioBuffer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, c := range r.children {
		if c == child {
			r.children = append(r.children[:i], r.children[i+1:]...)
			break
		}
	}
	delete(r.gains, child)
}

// Children returns a snapshot of the currently registered child buffers.
func (r *RootAudioBuffer) Children() []*AudioBuffer {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*AudioBuffer, len(r.children))
	copy(out, r.children)
	return out
}

func (r *RootAudioBuffer) Gain(child *AudioBuffer) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gains[child]
}

// ProcessDefault shadows AudioBuffer.ProcessDefault so the root's default
// processor (the MixProcessor) receives the root itself, not the embedded
// AudioBuffer, letting it reach Children().
func (r *RootAudioBuffer) ProcessDefault() error {
	if !r.TryAcquireProcessing() {
		return nil
	}
	defer r.ReleaseProcessing()
	if r.defaultProcessor != nil {
		return r.defaultProcessor.Run(r)
	}
	return nil
}

// RunCycle runs the root's default processor (mix) then its chain.
func (r *RootAudioBuffer) RunCycle() error {
	if err := r.ProcessDefault(); err != nil {
		return err
	}
	return r.chain.Run(r)
}

// RootAudioUnit is the per-token aggregation of a process-wide audio
// output: one RootAudioBuffer per output channel, grown on demand.
type RootAudioUnit struct {
	token tokens.ProcessingToken
	mu    sync.Mutex
	chans []*RootAudioBuffer
}

// NewRootAudioUnit creates an audio unit with no channels yet.
func NewRootAudioUnit(token tokens.ProcessingToken) *RootAudioUnit {
	return &RootAudioUnit{token: token}
}

// ResizeChannels atomically grows the channel count to n, leaving
// existing channels untouched. Shrinking is a no-op: units never shed
// capacity once granted, per the lazy-init/never-destroyed lifecycle.
func (u *RootAudioUnit) ResizeChannels(n int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for len(u.chans) < n {
		u.chans = append(u.chans, newRootAudioBuffer(len(u.chans), u.token))
	}
}

// Channel returns the root buffer for channel i, growing as needed.
func (u *RootAudioUnit) Channel(i int) *RootAudioBuffer {
	u.ResizeChannels(i + 1)
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.chans[i]
}

// Channels returns a snapshot of all live channel root buffers.
func (u *RootAudioUnit) Channels() []*RootAudioBuffer {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]*RootAudioBuffer, len(u.chans))
	copy(out, u.chans)
	return out
}

// RunCycle runs every channel's full processing cycle, serialized (the
// root serializes its children's processing within one cycle, per the
// concurrency model).
func (u *RootAudioUnit) RunCycle() error {
	for _, ch := range u.Channels() {
		if err := ch.RunCycle(); err != nil {
			return err
		}
	}
	return nil
}

// RootGraphicsBuffer owns a list of child GPU buffers and runs a
// GraphicsBatchProcessor as its default processor, optionally followed by
// a PresentProcessor as its chain's final stage.
type RootGraphicsBuffer struct {
	*VKBuffer
	mu       sync.Mutex
	children []Buffer
}

func newRootGraphicsBuffer(token tokens.ProcessingToken) *RootGraphicsBuffer {
	r := &RootGraphicsBuffer{VKBuffer: NewVKBuffer(0, UsageDevice, "root-graphics", token)}
	r.SetDefaultProcessor(NewGraphicsBatchProcessor(token))
	return r
}

// AddChild registers a child GPU buffer (VKBuffer, TextureBuffer,
// GeometryBuffer, or DescriptorBuffer) to be processed each cycle.
func (r *RootGraphicsBuffer) AddChild(child Buffer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.children = append(r.children, child)
}

// RemoveChild unregisters a previously added child buffer.
func (r *RootGraphicsBuffer) RemoveChild(child Buffer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, c := range r.children {
		if c == child {
			r.children = append(r.children[:i], r.children[i+1:]...)
			break
		}
	}
}

// Children returns a snapshot of the currently registered child buffers.
func (r *RootGraphicsBuffer) Children() []Buffer {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Buffer, len(r.children))
	copy(out, r.children)
	return out
}

// SetPresentProcessor installs p as the root's final chain stage.
func (r *RootGraphicsBuffer) SetPresentProcessor(p *PresentProcessor) error {
	return r.chain.SetFinalProcessor(p)
}

// ProcessDefault shadows VKBuffer.ProcessDefault so the root's default
// processor (the GraphicsBatchProcessor) receives the root itself, not
// the embedded VKBuffer, letting it reach Children().
func (r *RootGraphicsBuffer) ProcessDefault() error {
	if !r.TryAcquireProcessing() {
		return nil
	}
	defer r.ReleaseProcessing()
	if r.defaultProcessor != nil {
		return r.defaultProcessor.Run(r)
	}
	return nil
}

// RunCycle runs the default batch processor, then the root's chain
// (where a PresentProcessor, if any, runs as the final stage). The
// renderable child list is cleared unconditionally once the cycle
// finishes, whether or not present reported an error, since a failed
// present still consumed this cycle's submitted work.
func (r *RootGraphicsBuffer) RunCycle() error {
	defer r.clearChildren()
	if err := r.ProcessDefault(); err != nil {
		return err
	}
	return r.chain.Run(r)
}

func (r *RootGraphicsBuffer) clearChildren() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.children = nil
}

// RootGraphicsUnit is the per-token graphics aggregation: exactly one
// RootGraphicsBuffer, created lazily and never torn down.
type RootGraphicsUnit struct {
	token tokens.ProcessingToken
	mu    sync.Mutex
	root  *RootGraphicsBuffer
}

// NewRootGraphicsUnit creates a graphics unit with no root buffer yet;
// Root() performs the lazy first-request initialization.
func NewRootGraphicsUnit(token tokens.ProcessingToken) *RootGraphicsUnit {
	return &RootGraphicsUnit{token: token}
}

// Root returns the unit's single root buffer, creating it on first call.
func (u *RootGraphicsUnit) Root() *RootGraphicsBuffer {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.root == nil {
		u.root = newRootGraphicsBuffer(u.token)
	}
	return u.root
}

// RunCycle runs the root buffer's full processing cycle.
func (u *RootGraphicsUnit) RunCycle() error {
	return u.Root().RunCycle()
}
