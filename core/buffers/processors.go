// Copyright © 2013-2016 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package buffers

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/mayaflux/mayaflux/core/tokens"
)

// MixProcessor is the default processor for a RootAudioBuffer: it sums
// each child's samples, scaled by its registered gain, into the root's
// own sample buffer, then applies a hard limiter above unity.
type MixProcessor struct {
	token tokens.ProcessingToken
}

// NewMixProcessor creates a mix processor for the given token.
func NewMixProcessor(token tokens.ProcessingToken) *MixProcessor { return &MixProcessor{token: token} }

func (m *MixProcessor) Token() tokens.ProcessingToken { return m.token }

func (m *MixProcessor) IsCompatibleWith(b Buffer) bool {
	_, ok := b.(*RootAudioBuffer)
	return ok
}

// Run implements the MixProcessor contract from spec 4.D: out[i] =
// sum_j(gain_j * child_j[i]), then a hard limiter clamps |out[i]| to 1.0.
func (m *MixProcessor) Run(b Buffer) error {
	root, ok := b.(*RootAudioBuffer)
	if !ok {
		return fmt.Errorf("buffers: MixProcessor requires a *RootAudioBuffer, got %T", b)
	}
	children := root.Children()
	if len(children) == 0 {
		return nil
	}

	length := 0
	for _, c := range children {
		if n := len(c.Samples()); n > length {
			length = n
		}
	}
	out := make([]float64, length)
	scratch := make([]float64, length)
	for _, c := range children {
		gain := root.Gain(c)
		if gain == 0 {
			continue
		}
		samples := c.Samples()
		for i := range scratch {
			scratch[i] = 0
		}
		copy(scratch, samples)
		floats.AddScaled(out, gain, scratch)
	}
	for i, v := range out {
		if v > 1.0 {
			out[i] = 1.0
		} else if v < -1.0 {
			out[i] = -1.0
		}
	}
	root.SetSamples(out)
	return nil
}

// GraphicsBatchProcessor is the default processor for a
// RootGraphicsBuffer: it iterates child GPU buffers, running each one's
// default processor then its chain.
type GraphicsBatchProcessor struct {
	token tokens.ProcessingToken
}

func NewGraphicsBatchProcessor(token tokens.ProcessingToken) *GraphicsBatchProcessor {
	return &GraphicsBatchProcessor{token: token}
}

func (g *GraphicsBatchProcessor) Token() tokens.ProcessingToken { return g.token }

func (g *GraphicsBatchProcessor) IsCompatibleWith(b Buffer) bool {
	_, ok := b.(*RootGraphicsBuffer)
	return ok
}

// Run processes every child in registration order: default processor,
// then chain. Children are serialized within the cycle, matching the root
// concurrency model (a single frame thread drives this batch).
func (g *GraphicsBatchProcessor) Run(b Buffer) error {
	root, ok := b.(*RootGraphicsBuffer)
	if !ok {
		return fmt.Errorf("buffers: GraphicsBatchProcessor requires a *RootGraphicsBuffer, got %T", b)
	}
	for _, child := range root.Children() {
		if err := child.ProcessDefault(); err != nil {
			return err
		}
		if err := child.Chain().Run(child); err != nil {
			return err
		}
	}
	return nil
}

// PresentProcessor is the optional final stage for a RootGraphicsBuffer:
// it hands the fully-processed root to a user callback that records and
// submits render commands.
type PresentProcessor struct {
	token   tokens.ProcessingToken
	present func(root *RootGraphicsBuffer) error
}

// NewPresentProcessor wraps present as the root's final chain stage.
func NewPresentProcessor(token tokens.ProcessingToken, present func(root *RootGraphicsBuffer) error) *PresentProcessor {
	return &PresentProcessor{token: token, present: present}
}

func (p *PresentProcessor) Token() tokens.ProcessingToken { return p.token }

func (p *PresentProcessor) IsCompatibleWith(b Buffer) bool {
	_, ok := b.(*RootGraphicsBuffer)
	return ok
}

func (p *PresentProcessor) Run(b Buffer) error {
	root, ok := b.(*RootGraphicsBuffer)
	if !ok {
		return fmt.Errorf("buffers: PresentProcessor requires a *RootGraphicsBuffer, got %T", b)
	}
	if p.present == nil {
		return nil
	}
	return p.present(root)
}

// TextureProcessor is the default processor for a TextureBuffer: on first
// attach it creates a GPU image via the backend, uploads pixel data if
// dirty, and clears the dirty flag. Geometry dirty triggers a separate
// vertex re-upload.
type TextureProcessor struct {
	token         tokens.ProcessingToken
	createImage   func(t *TextureBuffer) (Handle, error)
	uploadPixels  func(t *TextureBuffer) error
	uploadGeometry func(t *TextureBuffer) error
}

// NewTextureProcessor wires the backend hooks a TextureProcessor needs:
// image creation and pixel/geometry upload are backend-specific and
// supplied by whatever BufferService is registered.
func NewTextureProcessor(token tokens.ProcessingToken, createImage func(*TextureBuffer) (Handle, error), uploadPixels, uploadGeometry func(*TextureBuffer) error) *TextureProcessor {
	return &TextureProcessor{token: token, createImage: createImage, uploadPixels: uploadPixels, uploadGeometry: uploadGeometry}
}

func (t *TextureProcessor) Token() tokens.ProcessingToken { return t.token }

func (t *TextureProcessor) IsCompatibleWith(b Buffer) bool {
	_, ok := b.(*TextureBuffer)
	return ok
}

func (t *TextureProcessor) Run(b Buffer) error {
	tex, ok := b.(*TextureBuffer)
	if !ok {
		return fmt.Errorf("buffers: TextureProcessor requires a *TextureBuffer, got %T", b)
	}
	if tex.ImageHandle() == 0 && t.createImage != nil {
		handle, err := t.createImage(tex)
		if err != nil {
			return err
		}
		tex.SetImageHandle(handle)
	}
	if tex.TextureDirty() && t.uploadPixels != nil {
		if err := t.uploadPixels(tex); err != nil {
			return err
		}
		tex.ClearTextureDirty()
	}
	if tex.GeometryDirty() && t.uploadGeometry != nil {
		if err := t.uploadGeometry(tex); err != nil {
			return err
		}
		tex.ClearGeometryDirty()
	}
	return nil
}

// GeometryBindingsProcessor is the default processor for a GeometryBuffer:
// for each bound node needing an update, it retrieves vertex bytes and
// uploads them, growing the buffer first if the payload no longer fits.
type GeometryBindingsProcessor struct {
	token  tokens.ProcessingToken
	upload func(g *GeometryBuffer, vertexBytes []byte) error
}

func NewGeometryBindingsProcessor(token tokens.ProcessingToken, upload func(*GeometryBuffer, []byte) error) *GeometryBindingsProcessor {
	return &GeometryBindingsProcessor{token: token, upload: upload}
}

func (g *GeometryBindingsProcessor) Token() tokens.ProcessingToken { return g.token }

func (g *GeometryBindingsProcessor) IsCompatibleWith(b Buffer) bool {
	_, ok := b.(*GeometryBuffer)
	return ok
}

func (g *GeometryBindingsProcessor) Run(b Buffer) error {
	geo, ok := b.(*GeometryBuffer)
	if !ok {
		return fmt.Errorf("buffers: GeometryBindingsProcessor requires a *GeometryBuffer, got %T", b)
	}
	for _, src := range geo.Sources() {
		if !src.NeedsGPUUpdate() {
			continue
		}
		bytes := src.VertexBytes()
		geo.Grow(int64(len(bytes)))
		if g.upload != nil {
			if err := g.upload(geo, bytes); err != nil {
				return err
			}
		}
	}
	return nil
}

// DescriptorBindingsProcessor is the analogous default processor for
// DescriptorBuffer: scalar, vector, matrix, and structured payloads are
// all just byte uploads from the node's perspective, distinguished only
// by the DescriptorKind the backend uses to lay them out.
type DescriptorBindingsProcessor struct {
	token  tokens.ProcessingToken
	upload func(d *DescriptorBuffer, kind DescriptorKind, bytes []byte) error
}

func NewDescriptorBindingsProcessor(token tokens.ProcessingToken, upload func(*DescriptorBuffer, DescriptorKind, []byte) error) *DescriptorBindingsProcessor {
	return &DescriptorBindingsProcessor{token: token, upload: upload}
}

func (d *DescriptorBindingsProcessor) Token() tokens.ProcessingToken { return d.token }

func (d *DescriptorBindingsProcessor) IsCompatibleWith(b Buffer) bool {
	_, ok := b.(*DescriptorBuffer)
	return ok
}

func (d *DescriptorBindingsProcessor) Run(b Buffer) error {
	desc, ok := b.(*DescriptorBuffer)
	if !ok {
		return fmt.Errorf("buffers: DescriptorBindingsProcessor requires a *DescriptorBuffer, got %T", b)
	}
	for _, src := range desc.Sources() {
		if !src.NeedsGPUUpdate() {
			continue
		}
		if d.upload != nil {
			if err := d.upload(desc, src.Kind(), src.DescriptorBytes()); err != nil {
				return err
			}
		}
	}
	return nil
}
