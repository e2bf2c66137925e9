package rendercore

import "fmt"

// SetContext binds the surfaces for the next scene and opens its
// recording session and render pass. rt may be nil to keep rendering
// into the previously bound target. color may be nil when the guest
// renders without a color surface; the scene then targets a scratch
// attachment in the default format that is never synchronized back. ds
// may be nil when no depth/stencil surface is bound.
//
// Each call accounts for one scene: the scene timestamp advances even
// when resolution later fails, so collaborators keyed on it stay
// monotonic.
func (c *Context) SetContext(rt *RenderTarget, color *ColorSurface, ds *DepthStencilSurface) error {
	if rt == nil {
		rt = c.renderTarget
	}
	if rt == nil {
		return c.protocolError(ErrNoRenderTarget, "set context without a render target")
	}
	c.sceneTimestamp++
	c.renderTarget = rt

	if color != nil {
		c.rec.colorSurface = *color
		c.rec.colorBaseFormat = color.Format
		c.rec.isGammaCorrected = color.Gamma
	} else {
		c.rec.colorSurface = ColorSurface{}
		c.rec.colorBaseFormat = ColorBaseU8U8U8U8
		c.rec.isGammaCorrected = false
	}
	c.rec.isMaskUpdate = false

	if ds != nil {
		c.rec.depthStencilSurface = *ds
	} else {
		c.rec.depthStencilSurface = DepthStencilSurface{
			BackgroundDepth: 1,
		}
	}

	c.state.Surfaces.SetRenderTarget(rt)

	// Multisample quality is emulated by rendering at twice the extent,
	// unless the scene ends in an explicit downscale pass. The flag keeps
	// the doubling idempotent if binding is repeated before the scene is
	// submitted.
	if rt.Multisample && !c.rec.colorSurface.Downscale && !c.extentDoubled {
		rt.Width *= 2
		rt.Height *= 2
		c.extentDoubled = true
	}

	if err := c.StartRecording(); err != nil {
		return err
	}

	format := resolveColorFormat(c.rec.colorBaseFormat, c.rec.isGammaCorrected)
	pass := c.state.RenderPasses.RetrieveRenderPass(format, c.rec.depthStencilSurface.Control)

	var colorArg *ColorSurface
	if !c.rec.colorSurface.Data.IsNull() {
		colorArg = &c.rec.colorSurface
	}
	var dsArg *DepthStencilSurface
	if !c.rec.depthStencilSurface.Absent() {
		dsArg = &c.rec.depthStencilSurface
	}

	fb, err := c.state.Surfaces.RetrieveFramebuffer(c.mem, colorArg, dsArg, pass, rt.Width, rt.Height)
	if err != nil {
		return fmt.Errorf("rendercore: retrieve framebuffer: %w", err)
	}

	c.currentPass = pass
	c.currentFramebuffer = fb

	if c.state.Features.UseMaskBit && c.state.SyncMask != nil {
		c.state.SyncMask(c, c.mem)
	}

	return c.StartRenderPass()
}

// SetMaskUpdate marks the scene as a mask-update pass. Mask-update
// scenes write the per-pixel mask image instead of the color surface.
func (c *Context) SetMaskUpdate(on bool) { c.rec.isMaskUpdate = on }

// IsMaskUpdate reports whether the current scene updates the mask image.
func (c *Context) IsMaskUpdate() bool { return c.rec.isMaskUpdate }

// ColorSurface returns the color surface bound for the current scene.
func (c *Context) ColorSurface() ColorSurface { return c.rec.colorSurface }

// DepthStencilSurface returns the depth/stencil surface bound for the
// current scene.
func (c *Context) DepthStencilSurface() DepthStencilSurface { return c.rec.depthStencilSurface }

// FramebufferHeight returns the height of the current scene's attachment
// set. Zero before the first SetContext.
func (c *Context) FramebufferHeight() uint32 {
	if c.currentFramebuffer == nil {
		return 0
	}
	return c.currentFramebuffer.Height
}
