package rendercore

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// DefaultScenesPerFrame is the pool pre-sizing used when TargetOptions
// does not specify an expected scene count.
const DefaultScenesPerFrame = 8

// TargetOptions configures NewRenderTarget.
type TargetOptions struct {
	// Width and Height are the target extent in pixels.
	Width, Height uint32

	// ScenesPerFrame pre-sizes the per-frame command-encoder and fence
	// pools. Exceeding it at runtime is recoverable: the pools grow on
	// demand (logged once per target). Defaults to DefaultScenesPerFrame.
	ScenesPerFrame int

	// Multisample requests multisample rendering for this target. When
	// the bound color surface has no downscale pass, the core emulates
	// multisample quality by doubling the target extent for the duration
	// of each scene.
	Multisample bool
}

// targetFence is one slot of a render target's fence ring. The fence is
// a timeline fence: every submission bumps value, and the dispatcher
// waits for the exact (fence, value) pair, so a slot can be reused
// without an explicit reset.
type targetFence struct {
	fence hal.Fence
	value uint64
}

// next returns the fence-value pair the upcoming submission will signal.
func (f *targetFence) next() FenceValue {
	f.value++
	return FenceValue{Fence: f.fence, Value: f.value}
}

// RenderTarget owns the per-target recording resources: N-buffered
// command encoders for each in-flight frame (a pre-render encoder for
// setup work and a primary encoder for the scene), a growable ring of
// submission fences, and the auxiliary per-pixel mask image.
//
// A RenderTarget is owned by the render-target cache of the embedding
// backend and referenced, never owned, by rendering contexts. All fields
// are touched only by the render thread; the dispatcher sees fences only
// through immutable FenceValue pairs.
type RenderTarget struct {
	// Width and Height are the current extent. They are temporarily
	// doubled while a multisample-without-downscale scene is recorded.
	Width, Height uint32

	// Multisample mirrors TargetOptions.Multisample.
	Multisample bool

	device hal.Device

	// Per-frame encoder pools, indexed [frame][scene]. They grow
	// monotonically and are never shrunk.
	encoders    [MaxFramesInFlight][]hal.CommandEncoder
	preEncoders [MaxFramesInFlight][]hal.CommandEncoder

	// fences is the submission fence ring, indexed by fenceIdx.
	fences   []*targetFence
	fenceIdx int

	// cmdBufferIdx is the scene cursor within the current frame. It
	// resets to zero on the first recording session of a new frame.
	cmdBufferIdx int

	// lastUsedFrame is the frame timestamp of the last recording session.
	lastUsedFrame uint64

	// budgetWarned keeps the scene-budget warning to one per target.
	budgetWarned bool

	// mask is the per-pixel mask image exposed to fragment programs as a
	// storage image when the mask feature is enabled.
	maskTex  hal.Texture
	maskView hal.TextureView
}

// NewRenderTarget creates a render target with pools pre-sized for
// opts.ScenesPerFrame scenes per in-flight frame.
func NewRenderTarget(device hal.Device, opts TargetOptions) (*RenderTarget, error) {
	if device == nil {
		return nil, ErrNilDevice
	}
	if opts.Width == 0 || opts.Height == 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, opts.Width, opts.Height)
	}
	scenes := opts.ScenesPerFrame
	if scenes <= 0 {
		scenes = DefaultScenesPerFrame
	}

	rt := &RenderTarget{
		Width:       opts.Width,
		Height:      opts.Height,
		Multisample: opts.Multisample,
		device:      device,
	}

	for frame := 0; frame < MaxFramesInFlight; frame++ {
		for i := 0; i < scenes; i++ {
			enc, preEnc, err := rt.newEncoderPair(frame, i)
			if err != nil {
				rt.Destroy()
				return nil, err
			}
			rt.encoders[frame] = append(rt.encoders[frame], enc)
			rt.preEncoders[frame] = append(rt.preEncoders[frame], preEnc)
		}
	}

	for i := 0; i < scenes; i++ {
		fence, err := device.CreateFence()
		if err != nil {
			rt.Destroy()
			return nil, fmt.Errorf("rendercore: create fence: %w", err)
		}
		rt.fences = append(rt.fences, &targetFence{fence: fence})
	}

	if err := rt.createMask(); err != nil {
		rt.Destroy()
		return nil, err
	}

	return rt, nil
}

// newEncoderPair allocates the primary and pre-render encoders for one
// scene slot.
func (rt *RenderTarget) newEncoderPair(frame, scene int) (enc, preEnc hal.CommandEncoder, err error) {
	enc, err = rt.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: fmt.Sprintf("rt_render_f%d_s%d", frame, scene),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("rendercore: create render encoder: %w", err)
	}
	preEnc, err = rt.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: fmt.Sprintf("rt_prerender_f%d_s%d", frame, scene),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("rendercore: create prerender encoder: %w", err)
	}
	return enc, preEnc, nil
}

// createMask allocates the per-pixel mask image at the target extent.
func (rt *RenderTarget) createMask() error {
	tex, err := rt.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "rt_mask",
		Size:          hal.Extent3D{Width: rt.Width, Height: rt.Height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatR8Unorm,
		Usage:         gputypes.TextureUsageStorageBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("rendercore: create mask texture: %w", err)
	}
	rt.maskTex = tex

	view, err := rt.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label: "rt_mask_view",
	})
	if err != nil {
		return fmt.Errorf("rendercore: create mask view: %w", err)
	}
	rt.maskView = view
	return nil
}

// MaskView returns the view of the per-pixel mask image.
func (rt *RenderTarget) MaskView() hal.TextureView { return rt.maskView }

// SceneCapacity returns the number of pre-sized scene slots per frame.
func (rt *RenderTarget) SceneCapacity() int { return len(rt.fences) }

// grow appends one encoder pair to the given frame's pools and inserts a
// fresh fence at the current ring position, so the next submission uses
// the new fence rather than one that may still be pending.
func (rt *RenderTarget) grow(frame int) error {
	enc, preEnc, err := rt.newEncoderPair(frame, len(rt.encoders[frame]))
	if err != nil {
		return err
	}
	rt.encoders[frame] = append(rt.encoders[frame], enc)
	rt.preEncoders[frame] = append(rt.preEncoders[frame], preEnc)

	fence, err := rt.device.CreateFence()
	if err != nil {
		return fmt.Errorf("rendercore: create fence: %w", err)
	}
	rt.fences = append(rt.fences, nil)
	copy(rt.fences[rt.fenceIdx+1:], rt.fences[rt.fenceIdx:])
	rt.fences[rt.fenceIdx] = &targetFence{fence: fence}
	return nil
}

// takeFence returns the FenceValue for the upcoming submission and
// ring-advances the fence cursor.
func (rt *RenderTarget) takeFence() FenceValue {
	fv := rt.fences[rt.fenceIdx].next()
	rt.fenceIdx++
	if rt.fenceIdx == len(rt.fences) {
		rt.fenceIdx = 0
	}
	return fv
}

// Destroy releases every GPU resource owned by the target. The caller
// must ensure no submission using the target is still in flight.
func (rt *RenderTarget) Destroy() {
	for _, f := range rt.fences {
		if f != nil {
			rt.device.DestroyFence(f.fence)
		}
	}
	rt.fences = nil
	if rt.maskView != nil {
		rt.device.DestroyTextureView(rt.maskView)
		rt.maskView = nil
	}
	if rt.maskTex != nil {
		rt.device.DestroyTexture(rt.maskTex)
		rt.maskTex = nil
	}
}
