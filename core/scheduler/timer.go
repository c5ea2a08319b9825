// Copyright © 2013-2016 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package scheduler

import "github.com/mayaflux/mayaflux/core/tokens"

// Timer is a declarative one-shot or repeating schedule built on top of
// AddTask, for callers that want a plain callback rather than a routine
// body written against Handle.
type Timer struct {
	scheduler *Scheduler
	domain    tokens.RoutineToken
}

// NewTimer returns a Timer that schedules work against domain's clock.
func NewTimer(s *Scheduler, domain tokens.RoutineToken) *Timer {
	return &Timer{scheduler: s, domain: domain}
}

// Schedule runs fire once after delay units of the timer's domain clock.
func (t *Timer) Schedule(name string, delay uint64, fire func()) *Routine {
	return t.scheduler.AddTask(t.domain, func(h *Handle) {
		switch t.domain {
		case tokens.FrameAccurate, tokens.MultiRate:
			h.FrameDelay(delay)
		case tokens.EventDriven:
			// Event-driven timers fire on the next signal of name itself.
			h.EventDelay(name)
		default:
			h.SampleDelay(delay)
		}
		if !h.ShouldTerminate() {
			fire()
		}
	}, TaskOptions{Name: name})
}

// ScheduleRepeating runs fire every period units of the timer's domain
// clock until cancelled via Scheduler.CancelTask(name).
func (t *Timer) ScheduleRepeating(name string, period uint64, fire func()) *Routine {
	return t.scheduler.AddTask(t.domain, func(h *Handle) {
		for !h.ShouldTerminate() {
			switch t.domain {
			case tokens.FrameAccurate, tokens.MultiRate:
				h.FrameDelay(period)
			default:
				h.SampleDelay(period)
			}
			if h.ShouldTerminate() {
				return
			}
			fire()
		}
	}, TaskOptions{Name: name})
}
