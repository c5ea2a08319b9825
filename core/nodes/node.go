// Copyright © 2013-2016 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package nodes

import "sync/atomic"

// State is a bitfield tracking a node's lifecycle within one processing
// cycle. It is read and written with atomic ops since nodes may be probed
// from a different domain than the one driving them (e.g. a UI thread
// reading State() while the audio thread is processing).
type State uint32

const (
	Inactive    State = 0      // never processed, or explicitly deactivated.
	Active      State = 1 << 0 // eligible for processing this cycle.
	Processed   State = 1 << 1 // already produced output this cycle; further pulls are cached.
	MockProcess State = 1 << 2 // process but discard the result (graph traversal without side effects).
	ErrorState  State = 1 << 3 // last process_sample call faulted; output held at last good value.
)

// Node is anything the graph can hold, process once per cycle, and reset
// between cycles.
type Node interface {
	ID() NodeID
	ProcessSample(input float64) float64
	LastOutput() float64
	State() State
	Processed() bool
	SetMockProcess(mock bool)
	ResetProcessedState()
}

// base implements the State/MockProcess/LastOutput bookkeeping shared by
// every concrete node, the same way the teacher's Generator base class
// centralizes m_state and m_last_output.
type base struct {
	id         NodeID
	state      uint32
	lastOutput atomic.Value // float64
}

func newBase(id NodeID) base {
	b := base{id: id, state: uint32(Active)}
	b.lastOutput.Store(0.0)
	return b
}

func (b *base) ID() NodeID { return b.id }

func (b *base) LastOutput() float64 {
	v, _ := b.lastOutput.Load().(float64)
	return v
}

func (b *base) setLastOutput(v float64) { b.lastOutput.Store(v) }

func (b *base) State() State { return State(atomic.LoadUint32(&b.state)) }

func (b *base) addFlag(f State) {
	for {
		old := atomic.LoadUint32(&b.state)
		if atomic.CompareAndSwapUint32(&b.state, old, old|uint32(f)) {
			return
		}
	}
}

func (b *base) removeFlag(f State) {
	for {
		old := atomic.LoadUint32(&b.state)
		if atomic.CompareAndSwapUint32(&b.state, old, old&^uint32(f)) {
			return
		}
	}
}

func (b *base) SetMockProcess(mock bool) {
	if mock {
		b.addFlag(MockProcess)
	} else {
		b.removeFlag(MockProcess)
	}
}

func (b *base) shouldMockProcess() bool { return b.State()&MockProcess != 0 }

func (b *base) markProcessed() { b.addFlag(Processed) }

func (b *base) ResetProcessedState() { b.removeFlag(Processed) }

func (b *base) Processed() bool { return b.State()&Processed != 0 }

// ModulatorGate implements the fan-in protocol: a node with more than one
// upstream modulator only actually evaluates once every registered
// modulator has arrived for the current cycle, then resets for the next.
type ModulatorGate struct {
	expected int32
	arrived  int32
}

// SetExpected declares how many modulators feed this node each cycle.
func (g *ModulatorGate) SetExpected(n int) { atomic.StoreInt32(&g.expected, int32(n)) }

// Arrive records one modulator's contribution for the current cycle and
// reports whether every expected modulator has now arrived.
func (g *ModulatorGate) Arrive() bool {
	n := atomic.AddInt32(&g.arrived, 1)
	return n >= atomic.LoadInt32(&g.expected)
}

// ResetCycle clears the arrival count for the next processing cycle.
func (g *ModulatorGate) ResetCycle() { atomic.StoreInt32(&g.arrived, 0) }

// Graph is an arena of nodes addressed by generation-checked NodeID,
// grounded on the teacher's eid/eids pair: a flat slice indexed by a
// recycled integer id, with a generation counter guarding against stale
// references after a slot is disposed and reused.
type Graph struct {
	pool  idPool
	slots []Node // indexed by NodeID.Index(); nil once disposed.
}

// NewGraph returns an empty node arena.
func NewGraph() *Graph { return &Graph{} }

// Add stores node in the arena at its ID's index; it does not allocate an
// id. The node's ID() must return an id obtained from NextID beforehand;
// callers typically do: id := g.NextID(); n := NewThresholdLogic(id, ...); g.Add(n).
func (g *Graph) Add(node Node) {
	index := node.ID().Index()
	for int(index) >= len(g.slots) {
		g.slots = append(g.slots, nil)
	}
	g.slots[index] = node
}

// NextID reserves a fresh NodeID for a node about to be constructed.
func (g *Graph) NextID() NodeID { return g.pool.create() }

// Get returns the node at id if it is still live.
func (g *Graph) Get(id NodeID) (Node, bool) {
	if !g.pool.valid(id) {
		return nil, false
	}
	index := id.Index()
	if int(index) >= len(g.slots) {
		return nil, false
	}
	n := g.slots[index]
	return n, n != nil
}

// Remove disposes id, invalidating it for future lookups and freeing its
// arena slot for reuse under a new generation.
func (g *Graph) Remove(id NodeID) {
	if !g.pool.valid(id) {
		return
	}
	g.slots[id.Index()] = nil
	g.pool.dispose(id)
}

// ResetCycle clears the Processed flag on every live node, run once at the
// start of a processing cycle before any node is pulled.
func (g *Graph) ResetCycle() {
	for _, n := range g.slots {
		if n != nil {
			n.ResetProcessedState()
		}
	}
}

// Pull returns id's node's output for the current cycle: processing it if
// it hasn't yet run this cycle, or returning its cached LastOutput if it
// has. This is what gives the graph at-most-once-per-cycle evaluation
// under arbitrary fan-in.
func (g *Graph) Pull(id NodeID, input float64) (float64, bool) {
	n, ok := g.Get(id)
	if !ok {
		return 0, false
	}
	if n.Processed() {
		return n.LastOutput(), true
	}
	return n.ProcessSample(input), true
}
