package rendercore

import (
	"sync"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rendercore/queue"
)

// textureSlots is the number of texture binding slots per shader stage.
const textureSlots = 16

// Viewport is the sticky viewport state re-applied on every render pass.
type Viewport struct {
	X, Y, Width, Height float32
	MinDepth, MaxDepth  float32
}

// Scissor is the sticky scissor rectangle.
type Scissor struct {
	X, Y, Width, Height uint32
}

// DepthBias is the sticky polygon depth bias. The HAL bakes it into
// pipeline state, so changing it invalidates the bound pipeline rather
// than touching the open pass.
type DepthBias struct {
	Constant float32
	Clamp    float32
	Slope    float32
}

// StencilState is the sticky stencil configuration. Only the reference
// values are dynamic on the HAL; the compare function lives in pipeline
// state and changing it marks the pipeline stale instead.
type StencilState struct {
	// FrontRef and BackRef are the stencil reference values. BackRef is
	// applied only when TwoSided is set.
	FrontRef uint32
	BackRef  uint32
	TwoSided bool
}

// record is the per-scene guest state snapshot the binder resolves
// against: the bound surfaces and the derived pipeline-cache keys.
type record struct {
	colorSurface        ColorSurface
	depthStencilSurface DepthStencilSurface

	colorBaseFormat  ColorBaseFormat
	isGammaCorrected bool
	isMaskUpdate     bool
}

// ContextOptions configures NewContext.
type ContextOptions struct {
	// Target optionally binds an initial render target.
	Target *RenderTarget
}

// Context is the per-logical-context recording state machine plus its
// completion pipeline. All exported methods except Err, WaitFrameDone
// and Close must be called from the render thread only.
type Context struct {
	state *State
	mem   Memory

	// renderTarget is the bound target. Referenced, not owned.
	renderTarget *RenderTarget

	// Frame bookkeeping. frameTimestamp counts displayed frames,
	// sceneTimestamp counts recorded scenes.
	frameTimestamp  uint64
	sceneTimestamp  uint64
	currentFrameIdx int
	frames          [MaxFramesInFlight]frameSlot

	// Recording state machine.
	isRecording  bool
	inRenderPass bool
	renderEnc    hal.CommandEncoder
	prerenderEnc hal.CommandEncoder
	renderPass   hal.RenderPassEncoder

	// Scene resolution produced by SetContext.
	currentPass        *RenderPass
	currentFramebuffer *Framebuffer
	rec                record
	extentDoubled      bool

	// Sticky dynamic state. Depth bias and line width are pipeline state
	// on the HAL; their setters mark the pipeline stale instead of
	// touching the pass encoder.
	viewport  Viewport
	scissor   Scissor
	stencil   StencilState
	depthBias DepthBias
	lineWidth float32

	// Per-pass descriptor set exposing the color attachment and mask.
	renderTargetSet hal.BindGroup
	setLayout       hal.BindGroupLayout

	// refreshPipeline is set whenever the next draw must rebind its
	// pipeline (new pass, or a pipeline-state change such as depth bias).
	refreshPipeline bool

	// Bound-texture bookkeeping, invalidated at every pass start so no
	// binding leaks across passes.
	vertexTextures   [textureSlots]hal.TextureView
	fragmentTextures [textureSlots]hal.TextureView

	// Occlusion query cursor.
	visibility           VisibilityBuffer
	isInQuery            bool
	currentQueryIdx      int
	visibilityMaxUsedIdx int

	// Completion pipeline. closeMu serializes Close, which may be called
	// off the render thread.
	requests *queue.FIFO[Request]
	done     sync.WaitGroup
	closeMu  sync.Mutex
	closed   bool

	// Frame pacing, written by the dispatcher.
	frameMu         sync.Mutex
	frameCond       *sync.Cond
	lastFrameWaited uint64

	// errMu guards err, the sticky unrecoverable dispatcher error.
	errMu sync.Mutex
	err   error
}

// NewContext creates a rendering context on the shared state and starts
// its dispatcher goroutine. mem is the guest address space notifications
// are written into. Close must be called before the context is dropped.
func NewContext(state *State, mem Memory, opts ContextOptions) (*Context, error) {
	if state == nil || state.Device == nil {
		return nil, ErrNilDevice
	}
	ctx := &Context{
		state:                state,
		mem:                  mem,
		renderTarget:         opts.Target,
		visibilityMaxUsedIdx: -1,
		requests:             queue.New[Request](),
		viewport:             Viewport{MaxDepth: 1},
		lineWidth:            1,
	}
	ctx.frameCond = sync.NewCond(&ctx.frameMu)

	ctx.done.Add(1)
	go ctx.waitLoop()
	return ctx, nil
}

// State returns the shared GPU state the context records against.
func (c *Context) State() *State { return c.state }

// Memory returns the guest address space bound to the context.
func (c *Context) Memory() Memory { return c.mem }

// RenderTarget returns the currently bound render target, or nil.
func (c *Context) RenderTarget() *RenderTarget { return c.renderTarget }

// RenderEncoder returns the primary command encoder of the open recording
// session, or nil outside one. The draw dispatch layer records scene
// commands through it.
func (c *Context) RenderEncoder() hal.CommandEncoder { return c.renderEnc }

// PrerenderEncoder returns the pre-render command encoder of the open
// recording session, or nil outside one. Setup work recorded here is
// submitted before the primary buffer.
func (c *Context) PrerenderEncoder() hal.CommandEncoder { return c.prerenderEnc }

// RenderPassEncoder returns the open render pass encoder, or nil when no
// pass is open.
func (c *Context) RenderPassEncoder() hal.RenderPassEncoder { return c.renderPass }

// RenderTargetSet returns the descriptor set carrying the render-target
// wide inputs (color input attachment, mask storage image) for the open
// pass.
func (c *Context) RenderTargetSet() hal.BindGroup { return c.renderTargetSet }

// frame returns the resource slot of the current in-flight frame.
func (c *Context) frame() *frameSlot {
	return &c.frames[c.currentFrameIdx]
}

// FrameTimestamp returns the current frame timestamp.
func (c *Context) FrameTimestamp() uint64 { return c.frameTimestamp }

// SceneTimestamp returns the number of scenes bound so far.
func (c *Context) SceneTimestamp() uint64 { return c.sceneTimestamp }

// SetViewport updates the sticky viewport. Applied immediately when a
// pass is open, and re-applied at the start of every later pass.
func (c *Context) SetViewport(v Viewport) {
	c.viewport = v
	if c.renderPass != nil {
		c.renderPass.SetViewport(v.X, v.Y, v.Width, v.Height, v.MinDepth, v.MaxDepth)
	}
}

// SetScissor updates the sticky scissor rectangle.
func (c *Context) SetScissor(s Scissor) {
	c.scissor = s
	if c.renderPass != nil {
		c.renderPass.SetScissorRect(s.X, s.Y, s.Width, s.Height)
	}
}

// SetStencil updates the sticky stencil state.
func (c *Context) SetStencil(s StencilState) {
	c.stencil = s
	if c.renderPass != nil {
		c.applyStencil()
	}
}

// InvalidatePipeline marks the bound pipeline stale so the next draw
// rebinds it. Pipeline-state changes that are not dynamic on the HAL
// (depth bias, line width, stencil function) funnel through here.
func (c *Context) InvalidatePipeline() { c.refreshPipeline = true }

// SetDepthBias updates the sticky depth bias. The bias is baked into
// the pipeline, so a change marks it stale.
func (c *Context) SetDepthBias(b DepthBias) {
	if c.depthBias != b {
		c.depthBias = b
		c.refreshPipeline = true
	}
}

// DepthBias returns the sticky depth bias.
func (c *Context) DepthBias() DepthBias { return c.depthBias }

// SetLineWidth updates the sticky line width, marking the pipeline
// stale on change.
func (c *Context) SetLineWidth(w float32) {
	if c.lineWidth != w {
		c.lineWidth = w
		c.refreshPipeline = true
	}
}

// LineWidth returns the sticky line width.
func (c *Context) LineWidth() float32 { return c.lineWidth }

// NeedsPipelineRefresh reports whether the next draw must rebind its
// pipeline, clearing the flag.
func (c *Context) NeedsPipelineRefresh() bool {
	stale := c.refreshPipeline
	c.refreshPipeline = false
	return stale
}

// SetVisibilityBuffer installs the occlusion-query buffer for the scene
// and resets the query cursor.
func (c *Context) SetVisibilityBuffer(vb VisibilityBuffer) {
	c.visibility = vb
	c.isInQuery = false
	c.currentQueryIdx = 0
	c.visibilityMaxUsedIdx = -1
}

// BeginQuery opens the occlusion query at the given slot.
func (c *Context) BeginQuery(index int) {
	c.currentQueryIdx = index
	c.isInQuery = true
	if index > c.visibilityMaxUsedIdx {
		c.visibilityMaxUsedIdx = index
	}
}

// BeginFrame starts a new displayed frame: the frame timestamp advances,
// the next frame slot becomes current, and its previous resources are
// recycled. The caller is responsible for pacing (WaitFrameDone) so the
// recycled slot's submissions have completed.
func (c *Context) BeginFrame() {
	c.frameTimestamp++
	c.currentFrameIdx = int(c.frameTimestamp % MaxFramesInFlight)
	c.frame().reset(c.state.Device)
}

// QueueFrameDone asks the dispatcher to record the current frame as fully
// waited once every fence submitted so far has been observed signaled.
func (c *Context) QueueFrameDone() {
	c.requests.Push(FrameDoneRequest{FrameTimestamp: c.frameTimestamp})
}

// WaitFrameDone blocks until the dispatcher has recorded frame timestamp
// ts (and therefore all GPU work submitted up to it) as fully waited.
// This is the only point where the render thread blocks on GPU progress.
func (c *Context) WaitFrameDone(ts uint64) {
	c.frameMu.Lock()
	defer c.frameMu.Unlock()
	for c.lastFrameWaited < ts {
		c.frameCond.Wait()
	}
}

// LastFrameWaited returns the most recent frame timestamp the dispatcher
// has recorded as fully waited.
func (c *Context) LastFrameWaited() uint64 {
	c.frameMu.Lock()
	defer c.frameMu.Unlock()
	return c.lastFrameWaited
}

// Err returns the sticky unrecoverable error latched by the dispatcher,
// or nil. Once non-nil, completion timing guarantees no longer hold.
func (c *Context) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

// setErr latches the first unrecoverable error.
func (c *Context) setErr(err error) {
	c.errMu.Lock()
	if c.err == nil {
		c.err = err
	}
	c.errMu.Unlock()
}

// protocolError reports a recording-protocol violation: it is logged,
// returned to the caller, and the offending operation becomes a no-op.
func (c *Context) protocolError(err error, msg string) error {
	slogger().Error(msg, "err", err)
	return err
}

// Close shuts the context down: the request queue is closed, remaining
// requests are drained by the dispatcher, and the dispatcher goroutine is
// joined. The context must not be used afterwards.
func (c *Context) Close() error {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	if c.closed {
		return ErrContextClosed
	}
	c.closed = true
	c.requests.Close()
	c.done.Wait()
	if c.setLayout != nil {
		c.state.Device.DestroyBindGroupLayout(c.setLayout)
		c.setLayout = nil
	}
	for i := range c.frames {
		c.frames[i].reset(c.state.Device)
	}
	return nil
}
