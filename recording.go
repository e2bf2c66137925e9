package rendercore

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// StartRecording opens a recording session on the bound render target:
// the next scene slot's command encoders are claimed and begun. Calling
// it while a session is already open, or with no target bound, reports a
// protocol error and leaves all state untouched.
func (c *Context) StartRecording() error {
	if c.isRecording {
		return c.protocolError(ErrAlreadyRecording, "recording already started, is a scene open?")
	}
	rt := c.renderTarget
	if rt == nil {
		return c.protocolError(ErrNoRenderTarget, "recording started without a bound render target")
	}

	// First session of a new displayed frame restarts the scene cursor.
	if rt.lastUsedFrame != c.frameTimestamp {
		rt.cmdBufferIdx = 0
		rt.lastUsedFrame = c.frameTimestamp
	}

	frame := c.currentFrameIdx
	if rt.cmdBufferIdx == len(rt.encoders[frame]) {
		if !rt.budgetWarned {
			slogger().Warn("scene budget exceeded, growing command pools",
				"capacity", rt.SceneCapacity(), "frame", c.frameTimestamp)
			rt.budgetWarned = true
		}
		if err := rt.grow(frame); err != nil {
			return err
		}
	}

	c.renderEnc = rt.encoders[frame][rt.cmdBufferIdx]
	c.prerenderEnc = rt.preEncoders[frame][rt.cmdBufferIdx]
	rt.cmdBufferIdx++

	if err := c.prerenderEnc.BeginEncoding("scene_prerender"); err != nil {
		c.renderEnc, c.prerenderEnc = nil, nil
		return fmt.Errorf("rendercore: begin prerender encoding: %w", err)
	}
	if err := c.renderEnc.BeginEncoding("scene_render"); err != nil {
		c.prerenderEnc.DiscardEncoding()
		c.renderEnc, c.prerenderEnc = nil, nil
		return fmt.Errorf("rendercore: begin render encoding: %w", err)
	}

	c.isRecording = true
	c.refreshPipeline = true
	return nil
}

// StartRenderPass opens the scene's render pass using the attachment
// configuration resolved by the last SetContext. Recording is started
// implicitly if no session is open. Calling it while a pass is already
// open reports a protocol error; no second pass is opened and the scene
// cursor does not move.
func (c *Context) StartRenderPass() error {
	if c.inRenderPass {
		return c.protocolError(ErrAlreadyInRenderPass, "render pass already open")
	}
	if !c.isRecording {
		if err := c.StartRecording(); err != nil {
			return err
		}
	}
	if c.currentPass == nil || c.currentFramebuffer == nil {
		return c.protocolError(ErrNoFramebuffer, "render pass started before surfaces were resolved")
	}

	// Any binding made in a previous pass is stale now.
	for i := range c.vertexTextures {
		c.vertexTextures[i] = nil
		c.fragmentTextures[i] = nil
	}

	desc := &hal.RenderPassDescriptor{
		Label: "scene_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:    c.currentFramebuffer.Color,
			LoadOp:  c.currentPass.ColorLoadOp,
			StoreOp: c.currentPass.ColorStoreOp,
		}},
	}
	if c.currentFramebuffer.DepthStencil != nil {
		desc.DepthStencilAttachment = &hal.RenderPassDepthStencilAttachment{
			View:              c.currentFramebuffer.DepthStencil,
			DepthLoadOp:       c.currentPass.DepthLoadOp,
			DepthStoreOp:      c.currentPass.DepthStoreOp,
			DepthClearValue:   c.rec.depthStencilSurface.BackgroundDepth,
			StencilLoadOp:     c.currentPass.StencilLoadOp,
			StencilStoreOp:    c.currentPass.StencilStoreOp,
			StencilClearValue: c.rec.depthStencilSurface.BackgroundStencil,
		}
	}

	c.renderPass = c.renderEnc.BeginRenderPass(desc)
	if c.renderPass == nil {
		return fmt.Errorf("rendercore: begin render pass: encoder refused")
	}
	c.inRenderPass = true

	// Dynamic state does not survive across passes on the HAL, so the
	// sticky values are re-applied here.
	c.renderPass.SetViewport(c.viewport.X, c.viewport.Y,
		c.viewport.Width, c.viewport.Height, c.viewport.MinDepth, c.viewport.MaxDepth)
	c.renderPass.SetScissorRect(c.scissor.X, c.scissor.Y, c.scissor.Width, c.scissor.Height)
	c.applyStencil()

	if err := c.allocateRenderTargetSet(); err != nil {
		return err
	}

	c.refreshPipeline = true
	return nil
}

// applyStencil pushes the sticky stencil reference to the open pass.
func (c *Context) applyStencil() {
	ref := c.stencil.FrontRef
	if c.stencil.TwoSided {
		// The HAL exposes a single reference; the back value wins when
		// two-sided stencil is in use, matching front-only hardware.
		ref = c.stencil.BackRef
	}
	c.renderPass.SetStencilReference(ref)
}

// allocateRenderTargetSet creates the per-pass descriptor set exposing
// the color attachment (for programmable blending reads) and, when the
// mask feature is on, the target's mask storage image. The set is
// recorded against the current frame slot and destroyed when the slot is
// recycled.
func (c *Context) allocateRenderTargetSet() error {
	if c.setLayout == nil {
		if err := c.createSetLayout(); err != nil {
			return err
		}
	}

	entries := []gputypes.BindGroupEntry{
		{Binding: 0, Resource: gputypes.TextureViewBinding{
			TextureView: c.currentFramebuffer.Color.NativeHandle(),
		}},
	}
	if c.state.Features.UseMaskBit {
		entries = append(entries, gputypes.BindGroupEntry{
			Binding: 1, Resource: gputypes.TextureViewBinding{
				TextureView: c.renderTarget.MaskView().NativeHandle(),
			},
		})
	}

	set, err := c.state.Device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   "render_target_set",
		Layout:  c.setLayout,
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("rendercore: create render target set: %w", err)
	}
	c.renderTargetSet = set
	c.frame().bindGroups = append(c.frame().bindGroups, set)
	return nil
}

// createSetLayout builds the render-target descriptor set layout once
// per context.
func (c *Context) createSetLayout() error {
	entries := []gputypes.BindGroupLayoutEntry{
		{
			Binding:    0,
			Visibility: gputypes.ShaderStageFragment,
			Texture: &gputypes.TextureBindingLayout{
				SampleType:    gputypes.TextureSampleTypeFloat,
				ViewDimension: gputypes.TextureViewDimension2D,
			},
		},
	}
	if c.state.Features.UseMaskBit {
		entries = append(entries, gputypes.BindGroupLayoutEntry{
			Binding:    1,
			Visibility: gputypes.ShaderStageFragment,
			StorageTexture: &gputypes.StorageTextureBindingLayout{
				Access:        gputypes.StorageTextureAccessReadWrite,
				Format:        gputypes.TextureFormatR8Unorm,
				ViewDimension: gputypes.TextureViewDimension2D,
			},
		})
	}
	layout, err := c.state.Device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   "render_target_set_layout",
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("rendercore: create render target set layout: %w", err)
	}
	c.setLayout = layout
	return nil
}

// StopRenderPass ends the open render pass. The recording session stays
// open; another pass may be started before StopRecording.
func (c *Context) StopRenderPass() error {
	if !c.inRenderPass {
		return c.protocolError(ErrNotInRenderPass, "render pass stop without an open pass")
	}
	c.renderPass.End()
	c.renderPass = nil
	c.renderTargetSet = nil
	c.inRenderPass = false
	return nil
}

// StopRecording closes the recording session: open query and pass are
// wound down, visibility results are copied, both command buffers are
// submitted behind a single fence value, and the two guest notifications
// are queued for delivery once that value signals. The target extent
// doubling applied for a multisample scene is reverted.
func (c *Context) StopRecording(n1, n2 Notification) error {
	if !c.isRecording {
		return c.protocolError(ErrNotRecording, "recording stop without an open session")
	}
	rt := c.renderTarget

	if c.isInQuery {
		c.visibility.EndQuery(c.currentQueryIdx)
		c.isInQuery = false
	}
	if c.inRenderPass {
		if err := c.StopRenderPass(); err != nil {
			return err
		}
	}

	// The copy stalls until the query results land in guest-visible
	// memory. Draws depending on them read the buffer on the CPU, so
	// deferring the copy is not an option.
	if c.visibility != nil && c.visibilityMaxUsedIdx >= 0 {
		if err := c.visibility.CopyResults(c.visibilityMaxUsedIdx); err != nil {
			slogger().Error("visibility result copy failed", "err", err)
		}
		c.visibilityMaxUsedIdx = -1
	}

	var sync SurfaceSyncHandle
	if c.state.Features.SupportMemoryMapping && !c.state.DisableSurfaceSync {
		sync = c.state.Surfaces.PerformSurfaceSync()
	}

	preBuf, err := c.prerenderEnc.EndEncoding()
	if err != nil {
		c.renderEnc.DiscardEncoding()
		c.abortRecording()
		return fmt.Errorf("rendercore: end prerender encoding: %w", err)
	}
	renderBuf, err := c.renderEnc.EndEncoding()
	if err != nil {
		c.state.Device.FreeCommandBuffer(preBuf)
		c.abortRecording()
		return fmt.Errorf("rendercore: end render encoding: %w", err)
	}

	fv := rt.takeFence()
	if err := c.state.Queue.Submit([]hal.CommandBuffer{preBuf, renderBuf}, fv.Fence, fv.Value); err != nil {
		c.abortRecording()
		return fmt.Errorf("rendercore: submit scene: %w", err)
	}
	c.frame().renderedFences = append(c.frame().renderedFences, fv)

	if c.state.Features.SupportMemoryMapping {
		c.requests.Push(NotificationRequest{
			Fence:         fv,
			Notifications: [2]Notification{n1, n2},
		})
		if sync != nil {
			c.requests.Push(PostSurfaceSyncRequest{Sync: sync})
		}
	}

	c.abortRecording()
	return nil
}

// abortRecording ends the session on every StopRecording exit, clean or
// failed: the encoder references are dropped, the session flag closes,
// and the multisample extent doubling is reverted so a failed scene does
// not leave the target doubled.
func (c *Context) abortRecording() {
	c.renderEnc = nil
	c.prerenderEnc = nil
	c.isRecording = false
	c.revertExtent()
}

// revertExtent undoes the multisample extent doubling for the scene, if
// it was applied.
func (c *Context) revertExtent() {
	if !c.extentDoubled {
		return
	}
	c.renderTarget.Width /= 2
	c.renderTarget.Height /= 2
	c.extentDoubled = false
}
