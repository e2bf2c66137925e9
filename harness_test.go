package rendercore

import (
	"sync"
	"testing"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// newNoopDevice creates a noop device and queue for testing.
func newNoopDevice(t *testing.T) (hal.Device, hal.Queue) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		openDev.Device.Destroy()
		instance.Destroy()
	})
	return openDev.Device, openDev.Queue
}

// submission is one recorded Queue.Submit call.
type submission struct {
	buffers []hal.CommandBuffer
	fence   hal.Fence
	value   uint64
}

// captureQueue records submissions while forwarding them to the real
// queue.
type captureQueue struct {
	hal.Queue
	mu      sync.Mutex
	submits []submission
}

func (q *captureQueue) Submit(buffers []hal.CommandBuffer, fence hal.Fence, value uint64) error {
	q.mu.Lock()
	q.submits = append(q.submits, submission{
		buffers: append([]hal.CommandBuffer(nil), buffers...),
		fence:   fence,
		value:   value,
	})
	q.mu.Unlock()
	return q.Queue.Submit(buffers, fence, value)
}

func (q *captureQueue) submissions() []submission {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]submission(nil), q.submits...)
}

// gateDevice wraps a device so fence waits block until the gate is
// opened, or fail when waitErr is set.
type gateDevice struct {
	hal.Device
	gate    chan struct{}
	waitErr error
}

func (d *gateDevice) Wait(fence hal.Fence, value uint64, timeout time.Duration) (bool, error) {
	if d.waitErr != nil {
		return false, d.waitErr
	}
	if d.gate != nil {
		<-d.gate
	}
	return d.Device.Wait(fence, value, timeout)
}

// passKey records one RetrieveRenderPass call.
type passKey struct {
	format gputypes.TextureFormat
	zls    ZlsControl
}

// stubPasses is an in-test RenderPassCache recording its lookups.
type stubPasses struct {
	mu    sync.Mutex
	calls []passKey
}

func (s *stubPasses) RetrieveRenderPass(format gputypes.TextureFormat, zls ZlsControl) *RenderPass {
	s.mu.Lock()
	s.calls = append(s.calls, passKey{format: format, zls: zls})
	s.mu.Unlock()
	return &RenderPass{
		ColorFormat:    format,
		ColorLoadOp:    gputypes.LoadOpLoad,
		ColorStoreOp:   gputypes.StoreOpStore,
		DepthLoadOp:    zls.DepthLoadOp(),
		DepthStoreOp:   zls.DepthStoreOp(),
		StencilLoadOp:  zls.DepthLoadOp(),
		StencilStoreOp: zls.DepthStoreOp(),
	}
}

func (s *stubPasses) last(t *testing.T) passKey {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.calls) == 0 {
		t.Fatal("no render pass lookups recorded")
	}
	return s.calls[len(s.calls)-1]
}

// fbLookup records one RetrieveFramebuffer call.
type fbLookup struct {
	hasColor bool
	hasDS    bool
	pass     *RenderPass
	width    uint32
	height   uint32
}

// stubSurfaces is an in-test SurfaceCache. It hands out a fixed
// framebuffer and records everything it is asked to do.
type stubSurfaces struct {
	mu         sync.Mutex
	fb         *Framebuffer
	targets    []*RenderTarget
	lookups    []fbLookup
	syncHandle SurfaceSyncHandle
	posts      []SurfaceSyncHandle
}

func (s *stubSurfaces) SetRenderTarget(rt *RenderTarget) {
	s.mu.Lock()
	s.targets = append(s.targets, rt)
	s.mu.Unlock()
}

func (s *stubSurfaces) RetrieveFramebuffer(_ Memory, color *ColorSurface, ds *DepthStencilSurface,
	pass *RenderPass, width, height uint32) (*Framebuffer, error) {
	s.mu.Lock()
	s.lookups = append(s.lookups, fbLookup{
		hasColor: color != nil,
		hasDS:    ds != nil,
		pass:     pass,
		width:    width,
		height:   height,
	})
	s.mu.Unlock()
	return s.fb, nil
}

func (s *stubSurfaces) PerformSurfaceSync() SurfaceSyncHandle {
	return s.syncHandle
}

func (s *stubSurfaces) PerformPostSurfaceSync(_ Memory, handle SurfaceSyncHandle) {
	s.mu.Lock()
	s.posts = append(s.posts, handle)
	s.mu.Unlock()
}

func (s *stubSurfaces) lastLookup(t *testing.T) fbLookup {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.lookups) == 0 {
		t.Fatal("no framebuffer lookups recorded")
	}
	return s.lookups[len(s.lookups)-1]
}

func (s *stubSurfaces) postCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.posts)
}

// newTestFramebuffer builds a framebuffer with real noop attachment views.
func newTestFramebuffer(t *testing.T, device hal.Device, width, height uint32, withDS bool) *Framebuffer {
	t.Helper()
	makeView := func(label string, format gputypes.TextureFormat) hal.TextureView {
		tex, err := device.CreateTexture(&hal.TextureDescriptor{
			Label:         label,
			Size:          hal.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
			MipLevelCount: 1,
			SampleCount:   1,
			Dimension:     gputypes.TextureDimension2D,
			Format:        format,
			Usage:         gputypes.TextureUsageRenderAttachment,
		})
		if err != nil {
			t.Fatalf("CreateTexture(%s) failed: %v", label, err)
		}
		view, err := device.CreateTextureView(tex, &hal.TextureViewDescriptor{Label: label + "_view"})
		if err != nil {
			t.Fatalf("CreateTextureView(%s) failed: %v", label, err)
		}
		t.Cleanup(func() {
			device.DestroyTextureView(view)
			device.DestroyTexture(tex)
		})
		return view
	}

	fb := &Framebuffer{
		Color:  makeView("test_color", gputypes.TextureFormatRGBA8Unorm),
		Height: height,
	}
	if withDS {
		fb.DepthStencil = makeView("test_ds", gputypes.TextureFormatDepth24PlusStencil8)
	}
	return fb
}

// testEnv bundles a ready-to-record context and its collaborators.
type testEnv struct {
	device   hal.Device
	queue    *captureQueue
	state    *State
	ctx      *Context
	target   *RenderTarget
	mem      Memory
	passes   *stubPasses
	surfaces *stubSurfaces
}

// envOption tweaks the test environment before context creation.
type envOption func(*envConfig)

type envConfig struct {
	features    FeatureState
	wrapDevice  func(hal.Device) hal.Device
	wrapQueue   func(hal.Queue) hal.Queue
	targetOpts  TargetOptions
	disableSync bool
	syncHandle  SurfaceSyncHandle
	syncMask    func(*Context, Memory)
}

func withFeatures(f FeatureState) envOption {
	return func(c *envConfig) { c.features = f }
}

func withDevice(wrap func(hal.Device) hal.Device) envOption {
	return func(c *envConfig) { c.wrapDevice = wrap }
}

func withQueue(wrap func(hal.Queue) hal.Queue) envOption {
	return func(c *envConfig) { c.wrapQueue = wrap }
}

func withTarget(opts TargetOptions) envOption {
	return func(c *envConfig) { c.targetOpts = opts }
}

func withDisabledSurfaceSync() envOption {
	return func(c *envConfig) { c.disableSync = true }
}

func withSyncHandle(h SurfaceSyncHandle) envOption {
	return func(c *envConfig) { c.syncHandle = h }
}

func withSyncMask(fn func(*Context, Memory)) envOption {
	return func(c *envConfig) { c.syncMask = fn }
}

// newTestEnv builds a state, a render target and a context against the
// noop backend.
func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	cfg := envConfig{
		features:   FeatureState{SupportMemoryMapping: true},
		targetOpts: TargetOptions{Width: 128, Height: 128},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	device, rawQueue := newNoopDevice(t)
	if cfg.wrapDevice != nil {
		device = cfg.wrapDevice(device)
	}
	queue := &captureQueue{Queue: rawQueue}
	var stateQueue hal.Queue = queue
	if cfg.wrapQueue != nil {
		stateQueue = cfg.wrapQueue(queue)
	}

	passes := &stubPasses{}
	surfaces := &stubSurfaces{
		fb:         newTestFramebuffer(t, device, cfg.targetOpts.Width, cfg.targetOpts.Height, true),
		syncHandle: cfg.syncHandle,
	}

	state, err := NewState(device, stateQueue, StateOptions{
		Features:           cfg.features,
		RenderPasses:       passes,
		Surfaces:           surfaces,
		SyncMask:           cfg.syncMask,
		DisableSurfaceSync: cfg.disableSync,
	})
	if err != nil {
		t.Fatalf("NewState failed: %v", err)
	}

	target, err := NewRenderTarget(device, cfg.targetOpts)
	if err != nil {
		t.Fatalf("NewRenderTarget failed: %v", err)
	}
	t.Cleanup(target.Destroy)

	mem := make(Memory, 4096)
	ctx, err := NewContext(state, mem, ContextOptions{Target: target})
	if err != nil {
		t.Fatalf("NewContext failed: %v", err)
	}
	t.Cleanup(func() { _ = ctx.Close() })

	return &testEnv{
		device:   device,
		queue:    queue,
		state:    state,
		ctx:      ctx,
		target:   target,
		mem:      mem,
		passes:   passes,
		surfaces: surfaces,
	}
}

// recordScene binds a scene with default surfaces and submits it.
func (e *testEnv) recordScene(t *testing.T, n1, n2 Notification) {
	t.Helper()
	color := ColorSurface{Data: 0x100}
	ds := DepthStencilSurface{DepthData: 0x200, BackgroundDepth: 1}
	if err := e.ctx.SetContext(e.target, &color, &ds); err != nil {
		t.Fatalf("SetContext failed: %v", err)
	}
	if err := e.ctx.StopRecording(n1, n2); err != nil {
		t.Fatalf("StopRecording failed: %v", err)
	}
}

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal(msg)
}
