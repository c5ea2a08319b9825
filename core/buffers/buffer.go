// Copyright © 2013-2016 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package buffers implements the buffer processing chain: per-buffer
// default/pre/chain/post/final processing stages, dirty-range tracking for
// host/device coherence, and the root units (audio, graphics) that
// aggregate child buffers once per cycle.
package buffers

import (
	"sync/atomic"

	"github.com/mayaflux/mayaflux/core/tokens"
)

// Range is a byte-offset/size pair marking a span of a buffer that needs a
// flush (dirty, host-written) or an invalidate (invalid, device-written)
// before it is safe to use from the other side.
type Range struct {
	Offset int64
	Size   int64
}

// Buffer is the capability every concrete buffer kind shares: processing
// state, a token, and a chain.
type Buffer interface {
	Token() tokens.ProcessingToken
	HasData() bool
	NeedsRemoval() bool
	MarkRemoval()
	TryAcquireProcessing() bool
	ReleaseProcessing()
	Chain() *ProcessingChain
	// ProcessDefault runs the buffer's default processor if one is set and
	// needed, guarded by TryAcquireProcessing/ReleaseProcessing.
	ProcessDefault() error
}

// common implements the processing-state bookkeeping shared by every
// concrete buffer type: an atomic reentrancy guard, data/removal flags,
// token, chain, and default processor.
type common struct {
	token            tokens.ProcessingToken
	isProcessing     int32
	hasData          bool
	needsRemoval     int32
	chain            *ProcessingChain
	defaultProcessor Processor
}

func newCommon(token tokens.ProcessingToken) common {
	return common{token: token, chain: NewProcessingChain(token, Strict)}
}

func (c *common) Token() tokens.ProcessingToken { return c.token }
func (c *common) HasData() bool                 { return c.hasData }
func (c *common) NeedsRemoval() bool             { return atomic.LoadInt32(&c.needsRemoval) != 0 }
func (c *common) MarkRemoval()                  { atomic.StoreInt32(&c.needsRemoval, 1) }
func (c *common) Chain() *ProcessingChain        { return c.chain }

// TryAcquireProcessing is the atomic CAS guard against reentrant
// processing of the same buffer from a concurrent domain path.
func (c *common) TryAcquireProcessing() bool {
	return atomic.CompareAndSwapInt32(&c.isProcessing, 0, 1)
}

func (c *common) ReleaseProcessing() { atomic.StoreInt32(&c.isProcessing, 0) }

func (c *common) SetDefaultProcessor(p Processor) { c.defaultProcessor = p }

// AudioBuffer owns one channel's worth of double-precision samples.
type AudioBuffer struct {
	common
	channel int
	samples []float64
}

// NewAudioBuffer creates an empty audio buffer for the given channel.
func NewAudioBuffer(channel int, token tokens.ProcessingToken) *AudioBuffer {
	return &AudioBuffer{common: newCommon(token), channel: channel}
}

func (a *AudioBuffer) Channel() int          { return a.channel }
func (a *AudioBuffer) Samples() []float64    { return a.samples }
func (a *AudioBuffer) SetSamples(s []float64) { a.samples = s; a.hasData = len(s) > 0 }

// NeedsDefaultProcessing reports whether the buffer's default processor
// should run this cycle. AudioBuffer has no implicit dirty condition of
// its own; a default processor (e.g. a container read) is always eligible
// once attached.
func (a *AudioBuffer) NeedsDefaultProcessing() bool { return a.defaultProcessor != nil }

// ProcessDefault runs the default processor (if any and needed) under the
// buffer's processing guard, per spec 4.D's process_default contract.
func (a *AudioBuffer) ProcessDefault() error {
	if !a.TryAcquireProcessing() {
		return nil
	}
	defer a.ReleaseProcessing()
	if a.defaultProcessor != nil && a.NeedsDefaultProcessing() {
		return a.defaultProcessor.Run(a)
	}
	return nil
}

// RunCycle executes the full per-buffer processing cycle: default, pre,
// chain, post, final.
func (a *AudioBuffer) RunCycle() error {
	if err := a.ProcessDefault(); err != nil {
		return err
	}
	return a.chain.Run(a)
}
