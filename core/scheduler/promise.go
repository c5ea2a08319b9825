// Copyright © 2013-2016 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package scheduler

import (
	"sync"

	"github.com/mayaflux/mayaflux/core/tokens"
)

// Promise is the per-routine mutable record the scheduler reads and writes
// across suspensions: next wake positions for each temporal domain, the
// discriminator for which domain is currently active, and a string-keyed
// bag of opaque values a routine exposes to the outside (e.g. line's
// "current_value").
type Promise struct {
	NextSample      uint64
	NextFrame       uint64
	NextBufferCycle uint64

	Token              tokens.RoutineToken
	ActiveDelayContext tokens.DelayContext
	AutoResume         bool
	ShouldTerminate    bool

	awaitReady      func() bool // set by Handle.Await; polled each eligible tick.
	eventName       string      // set by Handle.EventDelay.
	awaitingRestart bool        // set by Handle.AwaitRestart; cleared there once Scheduler.Restart or CancelTask releases the routine.

	mu    sync.Mutex
	state map[string]any
}

func newPromise(token tokens.RoutineToken) *Promise {
	return &Promise{
		Token:      token,
		AutoResume: true,
		state:      map[string]any{},
	}
}

// SetState stores a value under key in the promise's state bag. Safe to
// call from the routine body or from outside once the routine is
// suspended.
func (p *Promise) SetState(key string, value any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state[key] = value
}

// GetState retrieves a previously stored value. ok is false if key was
// never set.
func (p *Promise) GetState(key string) (value any, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	value, ok = p.state[key]
	return value, ok
}
