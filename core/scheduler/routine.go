// Copyright © 2013-2016 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package scheduler

import (
	"fmt"

	"github.com/mayaflux/mayaflux/core/tokens"
)

// RoutineFunc is a routine body. It runs on its own goroutine and suspends
// by calling a Handle method (SampleDelay, BufferDelay, FrameDelay,
// EventDelay, Await, AwaitRestart); each of those blocks the goroutine
// until the scheduler decides the wait is over. Go has no stackful
// coroutines to suspend directly, so a goroutine-plus-channel handshake
// plays the same role: the routine only ever runs while the scheduler is
// explicitly waiting on it, one routine at a time per domain.
type RoutineFunc func(h *Handle)

type routineState int

const (
	stateSuspended routineState = iota
	stateDone
	stateErrored
)

func (s routineState) String() string {
	switch s {
	case stateSuspended:
		return "SUSPENDED"
	case stateDone:
		return "DONE"
	case stateErrored:
		return "ERRORED"
	default:
		return "UNKNOWN"
	}
}

// Routine is a live scheduler entry: a promise plus the channels used to
// hand control back and forth with its goroutine.
type Routine struct {
	name        string
	token       tokens.RoutineToken
	promise     *Promise
	fn          RoutineFunc
	restartable bool

	resumeCh    chan struct{}
	suspendedCh chan struct{}
	restartCh   chan struct{}

	state routineState
	err   error
}

// RoutineFault wraps a panic recovered from a routine body so callers can
// distinguish scheduler-level failures from routine failures.
type RoutineFault struct {
	Name string
	Err  error
}

func (f *RoutineFault) Error() string {
	return fmt.Sprintf("routine %q faulted: %v", f.Name, f.Err)
}

func (f *RoutineFault) Unwrap() error { return f.Err }

func newRoutine(name string, token tokens.RoutineToken, restartable bool, fn RoutineFunc) *Routine {
	return &Routine{
		name:        name,
		token:       token,
		promise:     newPromise(token),
		fn:          fn,
		restartable: restartable,
		resumeCh:    make(chan struct{}),
		suspendedCh: make(chan struct{}),
		restartCh:   make(chan struct{}),
		state:       stateSuspended,
	}
}

// start launches the routine's goroutine and blocks until it reaches its
// first suspension point or finishes, mirroring a coroutine whose initial
// suspend is "never": the body runs immediately, up to the first await.
func (r *Routine) start(s *Scheduler) {
	h := &Handle{r: r, s: s}
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				r.err = fmt.Errorf("%v", rec)
				r.state = stateErrored
			} else if r.err != nil {
				r.state = stateErrored
			} else {
				r.state = stateDone
			}
			r.suspendedCh <- struct{}{}
		}()
		r.fn(h)
	}()
	<-r.suspendedCh
}

// resume signals the routine's goroutine to continue and blocks until it
// suspends again or finishes.
func (r *Routine) resume() {
	if r.state != stateSuspended {
		return
	}
	r.resumeCh <- struct{}{}
	<-r.suspendedCh
}

// Done reports whether the routine has finished, successfully or not.
func (r *Routine) Done() bool { return r.state == stateDone || r.state == stateErrored }

// Errored reports whether the routine terminated via panic or error.
func (r *Routine) Errored() bool { return r.state == stateErrored }

// Err returns the fault that ended the routine, or nil.
func (r *Routine) Err() error {
	if r.err == nil {
		return nil
	}
	return &RoutineFault{Name: r.name, Err: r.err}
}

// Name returns the routine's registered name, or "" if it was anonymous.
func (r *Routine) Name() string { return r.name }

// Token returns the routine's scheduling domain.
func (r *Routine) Token() tokens.RoutineToken { return r.token }

// Promise exposes the routine's promise for inspection between ticks.
func (r *Routine) Promise() *Promise { return r.promise }

// ready reports whether the routine's current suspension predicate is
// satisfied given the scheduler's current clock positions.
func (r *Routine) ready(s *Scheduler) bool {
	p := r.promise
	if p.awaitingRestart {
		return false
	}
	switch p.ActiveDelayContext {
	case tokens.NoDelay:
		return p.AutoResume
	case tokens.SampleBased:
		return s.sampleClock.Position() >= p.NextSample
	case tokens.BufferBased:
		return s.bufferCycle >= p.NextBufferCycle
	case tokens.FrameBased:
		return s.frameClock.Position() >= p.NextFrame
	case tokens.EventBased:
		return false // only resumed externally via SignalEvent.
	case tokens.Await:
		return p.awaitReady != nil && p.awaitReady()
	default:
		return false
	}
}
