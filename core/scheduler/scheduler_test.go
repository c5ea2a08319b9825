package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mayaflux/mayaflux/core/tokens"
)

// TestSampleDelayTiming is spec §8 S1: a routine delayed by SampleDelay(n)
// reads its readiness against the clock position *before* the call that
// ticks it, so reaching the delay boundary and resuming past it are two
// different ProcessToken calls.
func TestSampleDelayTiming(t *testing.T) {
	s := New(WithSampleRate(48000))
	var fired []uint64
	s.AddTask(tokens.SampleAccurate, func(h *Handle) {
		h.SampleDelay(480)
		fired = append(fired, 1)
		h.SampleDelay(480)
		fired = append(fired, 2)
	}, TaskOptions{Name: "delay-test"})

	assert.Empty(t, fired, "routine should not fire before its first delay elapses")

	s.ProcessToken(tokens.SampleAccurate, 479)
	assert.Empty(t, fired, "one sample short of the delay must not resume")

	s.ProcessToken(tokens.SampleAccurate, 1)
	assert.Empty(t, fired, "reaching the delay boundary must not itself resume the routine")

	s.ProcessToken(tokens.SampleAccurate, 1)
	assert.Equal(t, []uint64{1}, fired, "the call after the boundary was reached resumes it")

	s.ProcessToken(tokens.SampleAccurate, 479)
	assert.Equal(t, []uint64{1}, fired)

	s.ProcessToken(tokens.SampleAccurate, 1)
	assert.Equal(t, []uint64{1, 2}, fired)

	r, ok := s.GetTask("delay-test")
	require.True(t, ok)
	assert.True(t, r.Done())
}

func TestMetroFiresPeriodically(t *testing.T) {
	s := New(WithSampleRate(48000))
	var ticks []uint64
	s.Metro("metro-test", 100, func(tick uint64) {
		ticks = append(ticks, tick)
	})
	assert.Equal(t, []uint64{0}, ticks, "metro fires immediately on creation, before its first delay")

	// The first period takes one ProcessToken(100) call to reach the
	// boundary and a second to detect it; after that each call detects the
	// boundary the previous call reached, so six ticks (the initial one
	// plus five periods) take six calls, not five.
	for i := 0; i < 6; i++ {
		s.ProcessToken(tokens.SampleAccurate, 100)
	}
	assert.Equal(t, []uint64{0, 1, 2, 3, 4, 5}, ticks)

	s.CancelTask("metro-test")
	s.ProcessToken(tokens.SampleAccurate, 100)
	assert.Equal(t, []uint64{0, 1, 2, 3, 4, 5}, ticks, "cancelled metro must not fire again")
}

func TestLineInterpolates(t *testing.T) {
	s := New(WithSampleRate(48000))
	s.Line("line-test", 0, 10, 10, 48, false)

	readValue := func() float64 {
		v, ok := s.GetTaskState("line-test", "value")
		require.True(t, ok)
		return v.(float64)
	}

	assert.Equal(t, 0.0, readValue())
	// Readiness is checked against the pre-tick clock, so the value lags
	// the call count by one: after the i-th call the line is at step i-1.
	for i := 0; i <= 10; i++ {
		s.ProcessToken(tokens.SampleAccurate, 48)
		assert.InDelta(t, float64(i), readValue(), 1e-9)
	}
	r, ok := s.GetTask("line-test")
	require.True(t, ok)
	assert.True(t, r.Done())
}

func TestLineRestartable(t *testing.T) {
	s := New(WithSampleRate(48000))
	s.Line("line-loop", 0, 1, 1, 48, true)

	s.ProcessToken(tokens.SampleAccurate, 48)
	s.ProcessToken(tokens.SampleAccurate, 48)
	v, _ := s.GetTaskState("line-loop", "value")
	assert.Equal(t, 1.0, v)

	r, ok := s.GetTask("line-loop")
	require.True(t, ok)
	assert.False(t, r.Done(), "restartable line must wait, not finish, at its endpoint")

	restarted := s.Restart("line-loop")
	assert.True(t, restarted)
	v, _ = s.GetTaskState("line-loop", "value")
	assert.Equal(t, 0.0, v, "restart resets the line to its start value")

	assert.True(t, s.CancelTask("line-loop"))
	r, _ = s.GetTask("line-loop")
	assert.True(t, r.Done())
}

func TestSequenceStepsThroughValues(t *testing.T) {
	s := New(WithSampleRate(48000))
	var got []float64
	s.Sequence("seq-test", []float64{1, 2, 3}, 10, func(_ int, v float64) {
		got = append(got, v)
	})
	assert.Equal(t, []float64{1}, got)
	s.ProcessToken(tokens.SampleAccurate, 10)
	s.ProcessToken(tokens.SampleAccurate, 10)
	s.ProcessToken(tokens.SampleAccurate, 10)
	assert.Equal(t, []float64{1, 2, 3}, got)
}

func TestEventDrivenRoutineResumesOnSignal(t *testing.T) {
	s := New()
	fired := false
	s.AddTask(tokens.EventDriven, func(h *Handle) {
		h.EventDelay("door-opened")
		fired = true
	}, TaskOptions{Name: "event-test"})

	assert.False(t, fired)
	s.ProcessToken(tokens.EventDriven, 1) // advancing the clock alone must not resume an event wait.
	assert.False(t, fired)

	s.SignalEvent("door-opened")
	assert.True(t, fired)
}

func TestRoutineFaultIsIsolated(t *testing.T) {
	s := New()
	s.AddTask(tokens.SampleAccurate, func(h *Handle) {
		h.SampleDelay(1)
		panic("boom")
	}, TaskOptions{Name: "bad-routine"})

	s.AddTask(tokens.SampleAccurate, func(h *Handle) {
		h.SetState("alive", true)
	}, TaskOptions{Name: "good-routine"})

	s.ProcessToken(tokens.SampleAccurate, 1)
	s.ProcessToken(tokens.SampleAccurate, 1)

	r, ok := s.GetTask("bad-routine")
	require.True(t, ok)
	assert.True(t, r.Errored())
	assert.Error(t, r.Err())

	alive, ok := s.GetTaskState("good-routine", "alive")
	require.True(t, ok)
	assert.Equal(t, true, alive)
}

func TestBufferCycleResumption(t *testing.T) {
	s := New()
	fired := 0
	s.AddTask(tokens.SampleAccurate, func(h *Handle) {
		h.BufferDelay(2)
		fired++
	}, TaskOptions{Name: "buffer-test"})

	s.AdvanceBufferCycle(1)
	assert.Equal(t, 0, fired)
	s.AdvanceBufferCycle(1)
	assert.Equal(t, 1, fired)
}

func TestSecondsConversion(t *testing.T) {
	s := New(WithSampleRate(48000), WithFrameRate(60))
	assert.Equal(t, uint64(48000), s.SecondsToSamples(1))
	assert.Equal(t, uint64(60), s.SecondsToUnits(tokens.FrameAccurate, 1))
	assert.Equal(t, uint64(48000), s.SecondsToUnits(tokens.SampleAccurate, 1))
}
