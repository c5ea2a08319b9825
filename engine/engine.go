// Copyright © 2013-2016 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package engine

import (
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mayaflux/mayaflux/core/nodes"
	"github.com/mayaflux/mayaflux/core/registry"
	"github.com/mayaflux/mayaflux/core/scheduler"
	"github.com/mayaflux/mayaflux/core/tokens"
	"github.com/mayaflux/mayaflux/core/transfer"
	"github.com/mayaflux/mayaflux/device"
)

// Instance is a running MayaFlux core: the scheduler and node graph,
// bound to a config and a window backend. Generalizes the teacher's
// `engine` struct (eng.go) — gc/ac/dev/stage/mover fields collapse here
// into scheduler/graph/window/registry, since the domain substrate this
// spec targets replaces the teacher's fixed audio+render+physics trio
// with a token-routed, backend-agnostic one.
type Instance struct {
	cfg       Config
	Scheduler *scheduler.Scheduler
	Graph     *nodes.Graph
	Registry  *registry.BackendRegistry
	window    device.WindowBackend
	log       logrus.FieldLogger

	running atomic.Bool
}

// Init allocates the scheduler, node graph, and backend registry per cfg,
// and registers a MemoryBufferService so core/transfer has something to
// drive before a real GPU backend is wired in. Mirrors the teacher's
// vu.New: allocate every subsystem, fail fast if a required backend can't
// come up, return a ready-to-Start instance.
func Init(cfg Config) (*Instance, error) {
	log := logrus.StandardLogger()
	sched := scheduler.New(
		scheduler.WithLogger(log),
		scheduler.WithSampleRate(uint32(cfg.SampleRate)),
		scheduler.WithFrameRate(uint32(cfg.FrameRate)),
	)
	reg := registry.NewBackendRegistry()
	registry.RegisterService[transfer.BufferService](reg, registry.NewMemoryBufferService())

	inst := &Instance{
		cfg:       cfg,
		Scheduler: sched,
		Graph:     nodes.NewGraph(),
		Registry:  reg,
		window:    device.NewNoopWindow(),
		log:       log,
	}
	return inst, nil
}

// Start opens the window backend and runs the fixed-rate update loop
// until Stop is called or the window reports it is no longer alive.
// Mirrors the teacher's Action(): a capped elapsed-time accumulator
// drives a fixed dt, avoiding the "spiral of death" from slow frames.
func (inst *Instance) Start(dt float64) error {
	if err := inst.window.Open(inst.cfg.WindowTitle, 0, 0, inst.cfg.WindowWidth, inst.cfg.WindowHeight); err != nil {
		return err
	}
	inst.running.Store(true)

	const capTime = 0.2
	updateTime := 0.0
	lastTime := time.Now()

	for inst.running.Load() && inst.window.IsAlive() {
		elapsed := time.Since(lastTime).Seconds()
		lastTime = time.Now()
		if elapsed > capTime {
			elapsed = capTime
		}

		updateTime += elapsed
		for updateTime >= dt {
			inst.tick(dt)
			updateTime -= dt
		}
	}
	return nil
}

// tick advances one fixed-step update: the sample clock advances by dt in
// samples and due sample-domain routines resume, then the frame clock
// ticks one unit and due frame-domain routines resume, and the node
// graph's processed flags clear for the next cycle.
func (inst *Instance) tick(dt float64) {
	samples := inst.Scheduler.SecondsToSamples(dt)
	inst.Scheduler.ProcessToken(tokens.SampleAccurate, samples)
	inst.Scheduler.ProcessToken(tokens.FrameAccurate, 1)
	inst.Graph.ResetCycle()
}

// Stop requests the Start loop to exit after its current tick.
func (inst *Instance) Stop() { inst.running.Store(false) }

// End tears the instance down: closes the window and clears the backend
// registry, mirroring the teacher's Shutdown().
func (inst *Instance) End() {
	inst.Stop()
	if inst.window != nil {
		inst.window.Close()
	}
	inst.Registry.ClearAllServices()
}
