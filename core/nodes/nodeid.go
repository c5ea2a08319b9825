// Copyright © 2013-2016 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package nodes implements the node graph: an arena of processing nodes
// addressed by generation-checked identifiers, with at-most-once-per-cycle
// evaluation driven by each node's Processed flag. Nodes carry no
// modulator count; ModulatorGate is a separate fan-in counter that the
// Graph does not use.
package nodes

import "log"

// NodeID is an entity identifier comprised of an index used as a live
// reference into the arena and a generation used to detect use of a
// stale id after the slot has been freed and reused. The packing mirrors
// the teacher's eid: low bits are the array index, high bits the
// generation, so a NodeID never changes value over its lifetime and can
// double as a map/array key.
type NodeID uint32

const idBits = 20                     // arena index: 1,048,575 live nodes.
const genBits = 12                    // generation : 4096 reuses before wrap.
const maxNodeIndex = (1 << idBits) - 1
const maxGeneration = (1 << genBits) - 1

// Index returns the arena slot this id addresses.
func (n NodeID) Index() uint32 { return uint32(n) & maxNodeIndex }

// Generation returns the generation this id was issued for.
func (n NodeID) Generation() uint16 { return uint16((uint32(n) >> idBits) & maxGeneration) }

// Invalid is the zero NodeID, returned by idPool.create when node ids are
// exhausted and never issued to a live node otherwise.
const Invalid NodeID = 0

// arenaMaxFree defers index recycling until more than this many slots are
// free, so a
// create/dispose churn doesn't immediately hand back an index whose
// generation just wrapped.
const arenaMaxFree = 1 << (genBits - 1)

// idPool hands out and recycles NodeID values with generation tracking,
// independent of what's stored at each index.
type idPool struct {
	generations []uint16
	free        []uint32
}

func (p *idPool) create() NodeID {
	if len(p.generations) == 0 {
		// Reserve index 0 so no live node is ever issued Invalid; its
		// generation starts at 1 so Invalid itself never validates.
		p.generations = append(p.generations, 1)
	}
	var index uint32
	if len(p.free) > arenaMaxFree {
		index = p.free[0]
		p.free = append(p.free[:0], p.free[1:]...)
	} else {
		p.generations = append(p.generations, 0)
		index = uint32(len(p.generations) - 1)
		if index > maxNodeIndex {
			if len(p.free) == 0 {
				log.Printf("nodes: all %d node identifiers in use", maxNodeIndex)
				return Invalid
			}
			index = p.free[0]
			p.free = append(p.free[:0], p.free[1:]...)
		}
	}
	return NodeID(index | uint32(p.generations[index])<<idBits)
}

func (p *idPool) valid(id NodeID) bool {
	index := id.Index()
	if index >= uint32(len(p.generations)) {
		return false
	}
	return p.generations[index] == id.Generation()
}

func (p *idPool) dispose(id NodeID) {
	index := id.Index()
	p.generations[index]++
	p.free = append(p.free, index)
}
