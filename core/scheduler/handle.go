// Copyright © 2013-2016 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package scheduler

import "github.com/mayaflux/mayaflux/core/tokens"

// Handle is the only thing a routine body sees of the scheduler: a set of
// suspend points plus read/write access to its own promise state. A
// routine never touches the Scheduler directly, the same way the engine
// never lets a coroutine reach into another domain's clock.
type Handle struct {
	r *Routine
	s *Scheduler
}

// SampleDelay suspends the routine until the sample clock advances by n
// samples from its current position. n == 0 is a no-op (ready immediately).
func (h *Handle) SampleDelay(n uint64) {
	if n == 0 {
		return
	}
	p := h.r.promise
	p.ActiveDelayContext = tokens.SampleBased
	p.NextSample = h.s.sampleClock.Position() + n
	h.suspend()
}

// BufferDelay suspends the routine until the buffer-cycle counter
// advances by n cycles.
func (h *Handle) BufferDelay(n uint64) {
	if n == 0 {
		return
	}
	p := h.r.promise
	p.ActiveDelayContext = tokens.BufferBased
	p.NextBufferCycle = h.s.bufferCycle + n
	h.suspend()
}

// FrameDelay suspends the routine until the frame clock advances by n
// frames.
func (h *Handle) FrameDelay(n uint64) {
	if n == 0 {
		return
	}
	p := h.r.promise
	p.ActiveDelayContext = tokens.FrameBased
	p.NextFrame = h.s.frameClock.Position() + n
	h.suspend()
}

// EventDelay suspends the routine until SignalEvent(name) is called.
func (h *Handle) EventDelay(name string) {
	p := h.r.promise
	p.ActiveDelayContext = tokens.EventBased
	p.eventName = name
	h.s.registerEventWaiter(name, h.r)
	h.suspend()
}

// Await suspends the routine until ready reports true. ready is polled
// once per eligible tick of the routine's own domain, the same way a C++
// coroutine awaiter's await_ready is polled on resumption attempts.
func (h *Handle) Await(ready func() bool) {
	if ready == nil || ready() {
		return
	}
	p := h.r.promise
	p.ActiveDelayContext = tokens.Await
	p.awaitReady = ready
	h.suspend()
}

// AwaitRestart suspends a restartable routine that has reached the end of
// its run, waiting for either Restart() or cancellation. It returns true
// if the routine should loop again, false if it should terminate.
func (h *Handle) AwaitRestart() bool {
	if h.r.promise.ShouldTerminate {
		return false
	}
	h.r.promise.awaitingRestart = true
	h.r.suspendedCh <- struct{}{}
	<-h.r.restartCh
	h.r.promise.awaitingRestart = false
	return !h.r.promise.ShouldTerminate
}

// ShouldTerminate reports whether the scheduler has requested this routine
// wind down at its next convenient suspend point.
func (h *Handle) ShouldTerminate() bool { return h.r.promise.ShouldTerminate }

// SetState stores a value the routine exposes to external callers via
// GetTaskState.
func (h *Handle) SetState(key string, value any) { h.r.promise.SetState(key, value) }

// GetState reads a previously stored value.
func (h *Handle) GetState(key string) (any, bool) { return h.r.promise.GetState(key) }

// Scheduler returns the owning scheduler, for routines that spawn
// children or signal events.
func (h *Handle) Scheduler() *Scheduler { return h.s }

func (h *Handle) suspend() {
	h.r.suspendedCh <- struct{}{}
	<-h.r.resumeCh
}
