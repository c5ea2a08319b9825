// Copyright © 2013-2016 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package buffers

import (
	"fmt"

	"github.com/mayaflux/mayaflux/core/tokens"
)

// Enforcement selects how a ProcessingChain reacts to a processor whose
// token does not match the chain's preferred token.
type Enforcement int

const (
	// Strict rejects an incompatible processor at attach time.
	Strict Enforcement = iota
	// Filtered keeps an incompatible processor attached but skips it at
	// run time.
	Filtered
	// Permissive runs every attached processor regardless of token match.
	Permissive
)

// Processor is one stage of a buffer's processing chain.
type Processor interface {
	// IsCompatibleWith reports whether this processor can operate on b at
	// all (distinct from token enforcement, which is chain-level).
	IsCompatibleWith(b Buffer) bool
	Token() tokens.ProcessingToken
	Run(b Buffer) error
}

// ProcessingChain is the ordered pre/processors/post/final pipeline a
// buffer runs once its default processor has produced fresh data.
type ProcessingChain struct {
	preferredToken tokens.ProcessingToken
	enforcement    Enforcement

	pre        Processor
	processors []Processor
	post       Processor
	final      Processor
}

// NewProcessingChain creates an empty chain preferring token, enforced per
// strategy.
func NewProcessingChain(token tokens.ProcessingToken, enforcement Enforcement) *ProcessingChain {
	return &ProcessingChain{preferredToken: token, enforcement: enforcement}
}

func (c *ProcessingChain) tokenCompatible(p Processor) bool {
	return p.Token() == c.preferredToken
}

// checkAttach applies the chain's enforcement strategy at attach time:
// Strict rejects a token mismatch outright, Filtered and Permissive both
// allow the attach (Filtered defers the check to run time).
func (c *ProcessingChain) checkAttach(p Processor) error {
	if c.enforcement == Strict && !c.tokenCompatible(p) {
		return fmt.Errorf("buffers: processor token %s incompatible with chain token %s under STRICT enforcement",
			p.Token(), c.preferredToken)
	}
	return nil
}

// SetPreprocessor attaches the chain's single preprocessor stage.
func (c *ProcessingChain) SetPreprocessor(p Processor) error {
	if err := c.checkAttach(p); err != nil {
		return err
	}
	c.pre = p
	return nil
}

// AddProcessor appends a processor to the chain's ordered middle stage.
func (c *ProcessingChain) AddProcessor(p Processor) error {
	if err := c.checkAttach(p); err != nil {
		return err
	}
	c.processors = append(c.processors, p)
	return nil
}

// SetPostprocessor attaches the chain's single postprocessor stage.
func (c *ProcessingChain) SetPostprocessor(p Processor) error {
	if err := c.checkAttach(p); err != nil {
		return err
	}
	c.post = p
	return nil
}

// SetFinalProcessor attaches the chain's single final stage (e.g. present).
func (c *ProcessingChain) SetFinalProcessor(p Processor) error {
	if err := c.checkAttach(p); err != nil {
		return err
	}
	c.final = p
	return nil
}

// runStage runs a single optional stage, applying run-time Filtered
// enforcement and the processor's own compatibility check.
func (c *ProcessingChain) runStage(p Processor, b Buffer) error {
	if p == nil {
		return nil
	}
	if c.enforcement == Filtered && !c.tokenCompatible(p) {
		return nil
	}
	if !p.IsCompatibleWith(b) {
		return nil
	}
	return p.Run(b)
}

// Run executes pre, processors..., post, final in order against b,
// stopping at the first error.
func (c *ProcessingChain) Run(b Buffer) error {
	if err := c.runStage(c.pre, b); err != nil {
		return err
	}
	for _, p := range c.processors {
		if err := c.runStage(p, b); err != nil {
			return err
		}
	}
	if err := c.runStage(c.post, b); err != nil {
		return err
	}
	return c.runStage(c.final, b)
}

// PreferredToken returns the chain's token.
func (c *ProcessingChain) PreferredToken() tokens.ProcessingToken { return c.preferredToken }

// Enforcement returns the chain's enforcement strategy.
func (c *ProcessingChain) Enforcement() Enforcement { return c.enforcement }
