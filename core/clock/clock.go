// Copyright © 2013-2016 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package clock provides the per-domain monotonic position counters the
// scheduler advances on every tick. Each domain (sample, frame, event) owns
// one clock value type; overflow of the 64-bit position is not a concern
// (even at 2GHz it takes about 292 years).
package clock

// Clock is a monotonic position counter with a fixed rate (units/second).
type Clock interface {
	Tick(units uint64)        // Advance position by units.
	Position() uint64         // Current monotonic position.
	CurrentTime() float64     // Position / rate, in seconds.
	Rate() uint32             // Units per second.
	Reset()                   // Put the clock back to position zero.
}

// SampleClock advances one tick per audio sample. Rate is the audio sample
// rate (e.g. 48000).
type SampleClock struct {
	rate     uint32
	position uint64
}

// NewSampleClock creates a SampleClock at the given sample rate. A zero
// rate defaults to 48000, matching common audio hardware.
func NewSampleClock(sampleRate uint32) *SampleClock {
	if sampleRate == 0 {
		sampleRate = 48000
	}
	return &SampleClock{rate: sampleRate}
}

func (c *SampleClock) Tick(units uint64)    { c.position += units }
func (c *SampleClock) Position() uint64     { return c.position }
func (c *SampleClock) Rate() uint32         { return c.rate }
func (c *SampleClock) Reset()               { c.position = 0 }
func (c *SampleClock) CurrentTime() float64 { return float64(c.position) / float64(c.rate) }

// FrameClock advances one tick per rendered frame. Rate is the target FPS.
type FrameClock struct {
	rate     uint32
	position uint64
}

// NewFrameClock creates a FrameClock at the given target frame rate. A zero
// rate defaults to 60 FPS.
func NewFrameClock(targetFPS uint32) *FrameClock {
	if targetFPS == 0 {
		targetFPS = 60
	}
	return &FrameClock{rate: targetFPS}
}

func (c *FrameClock) Tick(units uint64)    { c.position += units }
func (c *FrameClock) Position() uint64     { return c.position }
func (c *FrameClock) Rate() uint32         { return c.rate }
func (c *FrameClock) Reset()               { c.position = 0 }
func (c *FrameClock) CurrentTime() float64 { return float64(c.position) / float64(c.rate) }

// EventClock is tickless: its rate is always 1 and its position advances
// once per dispatched event rather than on a schedule.
type EventClock struct {
	position uint64
}

func NewEventClock() *EventClock { return &EventClock{} }

func (c *EventClock) Tick(units uint64)    { c.position += units }
func (c *EventClock) Position() uint64     { return c.position }
func (c *EventClock) Rate() uint32         { return 1 }
func (c *EventClock) Reset()               { c.position = 0 }
func (c *EventClock) CurrentTime() float64 { return float64(c.position) }
