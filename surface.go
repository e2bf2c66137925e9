package rendercore

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// ColorSurface describes the guest color surface a scene renders into.
// A surface whose Data address is null is treated as "no color surface":
// rendering proceeds against a default-format attachment that is never
// synchronized back to guest memory.
type ColorSurface struct {
	// Data is the guest backing address of the surface pixels.
	Data Address

	// Format is the guest base pixel format.
	Format ColorBaseFormat

	// Gamma requests gamma-corrected output. On 8-bit unorm formats this
	// is emulated by substituting the sRGB texture format.
	Gamma bool

	// Downscale marks the surface as the target of a multisample
	// downscale (resolve) pass.
	Downscale bool
}

// ZlsControl carries the guest depth/stencil load/store control bits.
// ForceLoad preserves the previous scene's depth/stencil contents instead
// of clearing; ForceStore keeps them past the end of the scene.
type ZlsControl struct {
	ForceLoad  bool
	ForceStore bool
}

// DepthLoadOp returns the host load op for the depth/stencil attachment.
func (z ZlsControl) DepthLoadOp() gputypes.LoadOp {
	if z.ForceLoad {
		return gputypes.LoadOpLoad
	}
	return gputypes.LoadOpClear
}

// DepthStoreOp returns the host store op for the depth/stencil attachment.
func (z ZlsControl) DepthStoreOp() gputypes.StoreOp {
	if z.ForceStore {
		return gputypes.StoreOpStore
	}
	return gputypes.StoreOpDiscard
}

// DepthStencilSurface describes the guest depth/stencil surface. A surface
// with neither a depth nor a stencil backing address is absent; scenes
// then render without a depth/stencil attachment.
type DepthStencilSurface struct {
	DepthData   Address
	StencilData Address
	Control     ZlsControl

	// BackgroundDepth and BackgroundStencil are the clear values applied
	// when the attachment is not force-loaded.
	BackgroundDepth   float32
	BackgroundStencil uint32
}

// Absent reports whether the surface has no guest backing at all.
func (s *DepthStencilSurface) Absent() bool {
	return s.DepthData.IsNull() && s.StencilData.IsNull()
}

// RenderPass is the resolved attachment configuration for a (color
// format, depth/stencil load control) pair. Instances are created and
// cached by the RenderPassCache collaborator; the recording state machine
// treats them as immutable.
type RenderPass struct {
	ColorFormat gputypes.TextureFormat

	ColorLoadOp  gputypes.LoadOp
	ColorStoreOp gputypes.StoreOp

	DepthLoadOp    gputypes.LoadOp
	DepthStoreOp   gputypes.StoreOp
	StencilLoadOp  gputypes.LoadOp
	StencilStoreOp gputypes.StoreOp
}

// Framebuffer is the resolved attachment set for one scene, produced by
// the SurfaceCache collaborator. Color may be nil when the scene has no
// color surface and the cache rendered into a scratch attachment, and
// DepthStencil is nil when the depth/stencil surface is absent.
type Framebuffer struct {
	// Color is the color attachment view.
	Color hal.TextureView

	// DepthStencil is the depth/stencil attachment view, or nil.
	DepthStencil hal.TextureView

	// Height is the attachment height in pixels. Cached on the context so
	// viewport flipping can be computed without another cache lookup.
	Height uint32
}

// SurfaceSyncHandle is an opaque token produced by
// SurfaceCache.PerformSurfaceSync and handed back to
// PerformPostSurfaceSync once all prior GPU work has been observed
// complete. The core never inspects it.
type SurfaceSyncHandle any

// RenderPassCache resolves render passes, creating them on miss. The
// passcache subpackage provides a ready-made implementation.
type RenderPassCache interface {
	// RetrieveRenderPass returns the render pass for the given color
	// format and depth/stencil load control.
	RetrieveRenderPass(format gputypes.TextureFormat, zls ZlsControl) *RenderPass
}

// SurfaceCache resolves framebuffers for surfaces and owns CPU-visible
// surface synchronization. Implemented by the embedding backend.
type SurfaceCache interface {
	// SetRenderTarget informs the cache of the target the next scene
	// renders into.
	SetRenderTarget(rt *RenderTarget)

	// RetrieveFramebuffer returns the attachment set for the given
	// surfaces, creating images and views on miss. color is nil when the
	// scene has no color surface, ds is nil when depth/stencil is absent.
	RetrieveFramebuffer(mem Memory, color *ColorSurface, ds *DepthStencilSurface,
		pass *RenderPass, width, height uint32) (*Framebuffer, error)

	// PerformSurfaceSync schedules the copy of the current color surface
	// back to CPU-visible memory and returns an opaque handle for the
	// deferred completion step, or nil when no sync is needed.
	PerformSurfaceSync() SurfaceSyncHandle

	// PerformPostSurfaceSync finalizes a sync previously scheduled by
	// PerformSurfaceSync. Called from the dispatcher goroutine only after
	// every fence submitted before the sync has been waited on.
	PerformPostSurfaceSync(mem Memory, handle SurfaceSyncHandle)
}

// VisibilityBuffer receives occlusion query results for a scene. It is
// implemented by the draw dispatch layer that allocates query slots.
type VisibilityBuffer interface {
	// EndQuery closes the query at the given slot on the scene's primary
	// command stream.
	EndQuery(index int)

	// CopyResults performs a blocking copy of query results for slots
	// [0, maxIndex] into the guest-visible visibility buffer.
	CopyResults(maxIndex int) error
}
