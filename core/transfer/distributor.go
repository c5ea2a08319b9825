// Copyright © 2013-2016 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package transfer implements cross-domain buffer routing
// (BufferTokenDistributor) and the staging utilities that move data
// between host-visible and device-local memory.
package transfer

import (
	"fmt"

	"github.com/mayaflux/mayaflux/core/buffers"
	"github.com/mayaflux/mayaflux/core/tokens"
)

// Result names the outcome of routing a buffer through the distributor.
type Result int

const (
	DirectRoot Result = iota
	TransferOnly
	TransferToRoot
	InternalOnly
	Rejected
)

func (r Result) String() string {
	switch r {
	case DirectRoot:
		return "DIRECT_ROOT"
	case TransferOnly:
		return "TRANSFER_ONLY"
	case TransferToRoot:
		return "TRANSFER_TO_ROOT"
	case InternalOnly:
		return "INTERNAL_ONLY"
	case Rejected:
		return "REJECTED"
	default:
		return "UNKNOWN_RESULT"
	}
}

// Decision is the outcome of BufferTokenDistributor.Distribute: what to do
// with a buffer given its token, and why.
type Decision struct {
	Result Result
	Reason string // populated for Rejected; informational for the rest.
}

// Distributor routes a buffer to a root, a transfer target, internal-only
// tracking, or rejection, based on the buffer's concrete type and token.
// It owns no state: the decision table is a pure function of
// (buffer kind, token axes).
type Distributor struct{}

// NewDistributor creates a BufferTokenDistributor.
func NewDistributor() *Distributor { return &Distributor{} }

// Distribute implements the decision table from spec 4.E:
//
//	Audio buffer, sample rate, CPU  -> DIRECT_ROOT (audio root)
//	Audio buffer, sample rate, GPU  -> TRANSFER_ONLY (no GPU target is created here)
//	VK buffer,    frame rate, GPU   -> DIRECT_ROOT (graphics root)
//	VK buffer,    sample rate, GPU  -> INTERNAL_ONLY
//	VK buffer,    sample rate, CPU  -> REJECTED
//
// Distribute only returns the decision; a transfer target must be supplied
// by the caller, e.g. through DistributeWithTransfer. It never returns
// TRANSFER_TO_ROOT.
func (d *Distributor) Distribute(b buffers.Buffer, token tokens.ProcessingToken) Decision {
	switch b.(type) {
	case *buffers.AudioBuffer, *buffers.RootAudioBuffer:
		if token.IsSampleRate() && token.IsCPU() {
			return Decision{Result: DirectRoot}
		}
		if token.IsSampleRate() && token.IsGPU() {
			return Decision{Result: TransferOnly}
		}
		return Decision{Result: Rejected, Reason: fmt.Sprintf("audio buffer incompatible with token %s", token)}
	case *buffers.VKBuffer, *buffers.TextureBuffer, *buffers.GeometryBuffer, *buffers.DescriptorBuffer, *buffers.RootGraphicsBuffer:
		switch {
		case token.IsFrameRate() && token.IsGPU():
			return Decision{Result: DirectRoot}
		case token.IsSampleRate() && token.IsGPU():
			return Decision{Result: InternalOnly}
		case token.IsSampleRate() && token.IsCPU():
			return Decision{Result: Rejected, Reason: "a GPU buffer cannot be routed to a CPU sample-rate root"}
		default:
			return Decision{Result: Rejected, Reason: fmt.Sprintf("GPU buffer incompatible with token %s", token)}
		}
	default:
		return Decision{Result: Rejected, Reason: fmt.Sprintf("unrecognized buffer type %T", b)}
	}
}

// DistributeWithTransfer is Distribute plus, for TransferOnly and
// TransferToRoot outcomes, the construction of the TransferProcessor that
// carries the buffer's data to its destination domain.
func (d *Distributor) DistributeWithTransfer(b buffers.Buffer, token tokens.ProcessingToken, target buffers.Buffer) (Decision, *TransferProcessor) {
	decision := d.Distribute(b, token)
	if decision.Result != TransferOnly && decision.Result != TransferToRoot {
		return decision, nil
	}
	direction := AudioToGPU
	if token.IsCPU() {
		direction = GPUToAudio
	}
	proc := NewTransferProcessor(direction, map[buffers.Buffer]buffers.Buffer{b: target}, nil)
	return decision, proc
}
