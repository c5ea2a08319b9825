// Copyright © 2013-2016 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package scheduler

import (
	"github.com/mayaflux/mayaflux/core/tokens"
)

// Metro adds a periodic sample-accurate routine that calls fire every
// period samples, forever, until cancelled. It mirrors the Kriya metro
// task: a plain repeat-delay-repeat loop with no accumulated drift, since
// each delay is relative to the sample clock's position at the moment of
// the call rather than to a fixed schedule.
func (s *Scheduler) Metro(name string, period uint64, fire func(tick uint64)) *Routine {
	return s.AddTask(tokens.SampleAccurate, func(h *Handle) {
		var tick uint64
		for !h.ShouldTerminate() {
			fire(tick)
			tick++
			h.SampleDelay(period)
		}
	}, TaskOptions{Name: name})
}

// Line adds a routine that linearly interpolates from start to end over
// steps sample-sized increments, publishing the current value to
// GetTaskState(name, "value") at each step. If restartable, the line
// waits at its endpoint for Scheduler.Restart(name) instead of finishing.
func (s *Scheduler) Line(name string, start, end float64, steps uint64, stepSamples uint64, restartable bool) *Routine {
	return s.AddTask(tokens.SampleAccurate, func(h *Handle) {
		for {
			if steps == 0 {
				h.SetState("value", end)
			} else {
				delta := (end - start) / float64(steps)
				for i := uint64(0); i <= steps; i++ {
					if h.ShouldTerminate() {
						return
					}
					h.SetState("value", start+delta*float64(i))
					if i < steps {
						h.SampleDelay(stepSamples)
					}
				}
			}
			if !restartable || h.ShouldTerminate() {
				return
			}
			if !h.AwaitRestart() {
				return
			}
		}
	}, TaskOptions{Name: name, Restartable: restartable})
}

// Sequence adds a routine that steps through values, one per delaySamples
// interval, invoking fire(index, value) at each step, then terminates.
func (s *Scheduler) Sequence(name string, values []float64, delaySamples uint64, fire func(index int, value float64)) *Routine {
	return s.AddTask(tokens.SampleAccurate, func(h *Handle) {
		for i, v := range values {
			if h.ShouldTerminate() {
				return
			}
			fire(i, v)
			if i < len(values)-1 {
				h.SampleDelay(delaySamples)
			}
		}
	}, TaskOptions{Name: name})
}

// PatternStep is one entry of a Pattern: a value and how many samples to
// hold it before advancing.
type PatternStep struct {
	Value   float64
	HoldFor uint64
}

// Pattern adds a routine that cycles through steps indefinitely, calling
// fire(index, value) at each step, until cancelled.
func (s *Scheduler) Pattern(name string, steps []PatternStep, fire func(index int, value float64)) *Routine {
	return s.AddTask(tokens.SampleAccurate, func(h *Handle) {
		i := 0
		for !h.ShouldTerminate() {
			step := steps[i%len(steps)]
			fire(i%len(steps), step.Value)
			h.SampleDelay(step.HoldFor)
			i++
		}
	}, TaskOptions{Name: name})
}
