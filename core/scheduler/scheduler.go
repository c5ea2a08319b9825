// Copyright © 2013-2016 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package scheduler drives processing-token-tagged routines: small state
// machines that suspend on a sample count, a frame count, a buffer cycle,
// an external event, or an arbitrary readiness check, and resume in
// insertion order exactly once per eligible tick. It is the Go rendering
// of the teacher's share-memory-by-communicating update loop (see vu.go's
// update/draw split) generalized from "one frame clock" to the full
// multi-domain temporal model.
package scheduler

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/mayaflux/mayaflux/core/clock"
	"github.com/mayaflux/mayaflux/core/tokens"
)

// defaultReapThreshold is how many finished routines accumulate before a
// ProcessToken call sweeps them out of the live list.
const defaultReapThreshold = 64

// Scheduler owns the per-domain clocks, the live routine set, and the
// named lookup used by CancelTask/GetTaskState.
type Scheduler struct {
	mu sync.Mutex

	sampleClock *clock.SampleClock
	frameClock  *clock.FrameClock
	eventClock  *clock.EventClock
	bufferCycle uint64

	routines []*Routine
	named    map[string]*Routine
	waiters  map[string][]*Routine // event name -> routines suspended on it.

	customProcessors map[tokens.RoutineToken]func(*Scheduler, uint64)

	reapThreshold int
	finishedCount int

	log logrus.FieldLogger
}

// Option configures a Scheduler at construction time.
type Option func(*Scheduler)

// WithLogger overrides the default logrus logger used for routine faults.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Scheduler) { s.log = log }
}

// WithSampleRate sets the sample clock's rate.
func WithSampleRate(rate uint32) Option {
	return func(s *Scheduler) { s.sampleClock = clock.NewSampleClock(rate) }
}

// WithFrameRate sets the frame clock's rate.
func WithFrameRate(rate uint32) Option {
	return func(s *Scheduler) { s.frameClock = clock.NewFrameClock(rate) }
}

// New creates a Scheduler with default clocks (48kHz sample, 60fps frame).
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		sampleClock:      clock.NewSampleClock(0),
		frameClock:       clock.NewFrameClock(0),
		eventClock:       clock.NewEventClock(),
		named:            map[string]*Routine{},
		waiters:          map[string][]*Routine{},
		customProcessors: map[tokens.RoutineToken]func(*Scheduler, uint64){},
		reapThreshold:    defaultReapThreshold,
		log:              logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TaskOptions configures AddTask.
type TaskOptions struct {
	Name        string // if non-empty, replaces any existing routine of the same name.
	Restartable bool
}

// AddTask registers fn as a routine in the given domain and runs it
// immediately up to its first suspend point (or completion), matching a
// coroutine whose initial suspend is "never". It returns the live Routine
// handle.
func (s *Scheduler) AddTask(token tokens.RoutineToken, fn RoutineFunc, opts TaskOptions) *Routine {
	r := newRoutine(opts.Name, token, opts.Restartable, fn)

	s.mu.Lock()
	if opts.Name != "" {
		if old, ok := s.named[opts.Name]; ok {
			s.removeLocked(old)
		}
		s.named[opts.Name] = r
	}
	s.routines = append(s.routines, r)
	s.mu.Unlock()

	r.start(s)
	s.noteIfDone(r)
	return r
}

// CancelTask requests termination of the named routine and blocks until it
// has unwound. It returns false if no routine with that name is live.
func (s *Scheduler) CancelTask(name string) bool {
	s.mu.Lock()
	r, ok := s.named[name]
	s.mu.Unlock()
	if !ok || r.Done() {
		return false
	}
	r.promise.ShouldTerminate = true
	if r.promise.awaitingRestart {
		r.restartCh <- struct{}{}
		<-r.suspendedCh
	} else {
		r.resume()
	}
	s.noteIfDone(r)
	return true
}

// GetTask returns the named routine, if live.
func (s *Scheduler) GetTask(name string) (*Routine, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.named[name]
	return r, ok
}

// GetTaskState reads a value from the named routine's state bag.
func (s *Scheduler) GetTaskState(name, key string) (any, bool) {
	r, ok := s.GetTask(name)
	if !ok {
		return nil, false
	}
	return r.Promise().GetState(key)
}

// HasActiveTasks reports whether any non-finished routine is live.
func (s *Scheduler) HasActiveTasks() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.routines {
		if !r.Done() {
			return true
		}
	}
	return false
}

// GetTasksForToken returns the live routines registered under domain.
func (s *Scheduler) GetTasksForToken(domain tokens.RoutineToken) []*Routine {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Routine
	for _, r := range s.routines {
		if r.token == domain {
			out = append(out, r)
		}
	}
	return out
}

// RegisterTokenProcessor installs a custom hook invoked by ProcessToken for
// domain before routine resumption, e.g. to drive a MultiRate routine set
// against something other than the builtin clocks.
func (s *Scheduler) RegisterTokenProcessor(domain tokens.RoutineToken, fn func(s *Scheduler, units uint64)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customProcessors[domain] = fn
}

// ProcessToken resumes, in insertion order, every live routine in domain
// whose suspension predicate is satisfied against the clock's position
// *before* this call's units are applied, then advances domain's clock by
// units. A routine delayed by SampleDelay(10) recorded at position 0 only
// becomes ready once a later call finds the clock already at or past 10 —
// the call that ticks the clock up to 10 does not also resume it. Each
// resumed routine runs synchronously until its next suspend point or
// completion before the next routine is considered, matching the spec's
// single-threaded-per-domain resumption order.
func (s *Scheduler) ProcessToken(domain tokens.RoutineToken, units uint64) {
	if units == 0 {
		units = 1
	}

	s.mu.Lock()
	custom, hasCustom := s.customProcessors[domain]
	s.mu.Unlock()
	if hasCustom {
		custom(s, units)
	}

	s.mu.Lock()
	due := make([]*Routine, 0, len(s.routines))
	for _, r := range s.routines {
		if r.token == domain && !r.Done() && r.ready(s) {
			due = append(due, r)
		}
	}
	s.mu.Unlock()

	for _, r := range due {
		if r.Done() {
			continue
		}
		r.resume()
		s.noteIfDone(r)
	}

	s.advanceClock(domain, units)

	s.reapIfNeeded()
}

// AdvanceBufferCycle increments the shared buffer-cycle counter and
// resumes any routine, regardless of domain, suspended on a buffer-based
// delay that has now elapsed. A buffer cycle is one completed pass through
// the root buffer's processing chain.
func (s *Scheduler) AdvanceBufferCycle(n uint64) {
	if n == 0 {
		n = 1
	}
	s.mu.Lock()
	s.bufferCycle += n
	due := make([]*Routine, 0)
	for _, r := range s.routines {
		if !r.Done() && r.promise.ActiveDelayContext == tokens.BufferBased && r.ready(s) {
			due = append(due, r)
		}
	}
	s.mu.Unlock()

	for _, r := range due {
		if r.Done() {
			continue
		}
		r.resume()
		s.noteIfDone(r)
	}
	s.reapIfNeeded()
}

// SignalEvent resumes every routine currently waiting on the named event,
// in registration order, regardless of domain.
func (s *Scheduler) SignalEvent(name string) {
	s.mu.Lock()
	waiting := s.waiters[name]
	delete(s.waiters, name)
	s.mu.Unlock()

	for _, r := range waiting {
		if r.Done() {
			continue
		}
		r.resume()
		s.noteIfDone(r)
	}
	s.reapIfNeeded()
}

// Restart re-arms a routine suspended via AwaitRestart, letting it loop.
// It returns false if the routine is not currently awaiting restart.
func (s *Scheduler) Restart(name string) bool {
	s.mu.Lock()
	r, ok := s.named[name]
	s.mu.Unlock()
	if !ok || !r.promise.awaitingRestart {
		return false
	}
	r.restartCh <- struct{}{}
	<-r.suspendedCh // wait for the next suspend or completion.
	s.noteIfDone(r)
	return true
}

// SecondsToSamples converts a duration to a sample count at the
// scheduler's current sample rate.
func (s *Scheduler) SecondsToSamples(seconds float64) uint64 {
	return uint64(seconds * float64(s.sampleClock.Rate()))
}

// SecondsToUnits converts a duration to a unit count for the given
// domain's clock (samples, frames, or raw event count for EventDriven).
func (s *Scheduler) SecondsToUnits(domain tokens.RoutineToken, seconds float64) uint64 {
	switch domain {
	case tokens.FrameAccurate, tokens.MultiRate:
		return uint64(seconds * float64(s.frameClock.Rate()))
	case tokens.EventDriven:
		return uint64(seconds)
	default:
		return s.SecondsToSamples(seconds)
	}
}

func (s *Scheduler) advanceClock(domain tokens.RoutineToken, units uint64) {
	switch domain {
	case tokens.SampleAccurate:
		s.sampleClock.Tick(units)
	case tokens.FrameAccurate, tokens.MultiRate:
		s.frameClock.Tick(units)
	case tokens.EventDriven:
		s.eventClock.Tick(units)
	}
}

func (s *Scheduler) registerEventWaiter(name string, r *Routine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waiters[name] = append(s.waiters[name], r)
}

func (s *Scheduler) noteIfDone(r *Routine) {
	if !r.Done() {
		return
	}
	if r.Errored() {
		s.log.WithError(r.Err()).WithField("routine", r.name).Warn("routine faulted")
	}
	s.mu.Lock()
	s.finishedCount++
	s.mu.Unlock()
}

func (s *Scheduler) reapIfNeeded() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finishedCount < s.reapThreshold {
		return
	}
	live := s.routines[:0]
	for _, r := range s.routines {
		if r.Done() {
			if r.name != "" && s.named[r.name] == r {
				delete(s.named, r.name)
			}
			continue
		}
		live = append(live, r)
	}
	s.routines = live
	s.finishedCount = 0
}

func (s *Scheduler) removeLocked(r *Routine) {
	for i, other := range s.routines {
		if other == r {
			s.routines = append(s.routines[:i], s.routines[i+1:]...)
			break
		}
	}
}

// String renders a brief diagnostic summary, e.g. for a bench CLI.
func (s *Scheduler) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("scheduler{routines=%d sample=%d frame=%d buffer=%d}",
		len(s.routines), s.sampleClock.Position(), s.frameClock.Position(), s.bufferCycle)
}
