package rendercore

import (
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/wgpu/hal"
)

// FeatureState carries the backend feature flags the recording core
// branches on.
type FeatureState struct {
	// SupportMemoryMapping is set when guest memory is mapped into the
	// host GPU address space. Only then can completion notifications and
	// deferred surface syncs be driven by fences.
	SupportMemoryMapping bool

	// UseMaskBit enables the per-pixel mask image: the render-target
	// descriptor set exposes it as a storage image and the mask
	// synchronization hook runs on every SetContext.
	UseMaskBit bool
}

// StateOptions configures NewState.
type StateOptions struct {
	// Features are the backend feature flags.
	Features FeatureState

	// RenderPasses resolves render passes. Required.
	RenderPasses RenderPassCache

	// Surfaces resolves framebuffers and owns surface synchronization.
	// Required.
	Surfaces SurfaceCache

	// SyncMask, if non-nil, is invoked from SetContext when
	// Features.UseMaskBit is set, before the render pass opens.
	SyncMask func(ctx *Context, mem Memory)

	// DisableSurfaceSync turns off the deferred surface synchronization
	// pass even when memory mapping is supported.
	DisableSurfaceSync bool
}

// State is the GPU state shared by every rendering context of a backend:
// the HAL device and queue, the feature flags, the collaborator caches,
// and the notification synchronization point.
type State struct {
	Device hal.Device
	Queue  hal.Queue

	Features           FeatureState
	RenderPasses       RenderPassCache
	Surfaces           SurfaceCache
	SyncMask           func(ctx *Context, mem Memory)
	DisableSurfaceSync bool

	// notifMu orders guest-memory notification writes against readers
	// waiting for "any notification ready". Written by dispatcher
	// goroutines only.
	notifMu   sync.Mutex
	notifCond *sync.Cond
}

// NewState creates the shared state for the given HAL device and queue.
func NewState(device hal.Device, queue hal.Queue, opts StateOptions) (*State, error) {
	if device == nil || queue == nil {
		return nil, ErrNilDevice
	}
	s := &State{
		Device:             device,
		Queue:              queue,
		Features:           opts.Features,
		RenderPasses:       opts.RenderPasses,
		Surfaces:           opts.Surfaces,
		SyncMask:           opts.SyncMask,
		DisableSurfaceSync: opts.DisableSurfaceSync,
	}
	s.notifCond = sync.NewCond(&s.notifMu)
	return s, nil
}

// NewStateFromProvider creates shared state from a gpucontext
// DeviceProvider, the gogpu device-sharing integration point. The
// provider's concrete value must also expose the underlying HAL handles
// via HalDevice() any and HalQueue() any.
func NewStateFromProvider(provider gpucontext.DeviceProvider, opts StateOptions) (*State, error) {
	if provider == nil {
		return nil, ErrNilProvider
	}
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNoHALAccess
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, ErrNoHALAccess
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, ErrNoHALAccess
	}
	return NewState(device, queue, opts)
}

// notifyAll runs fn under the notification mutex and wakes every
// goroutine blocked in WaitNotification. Used by the dispatcher to make
// notification writes atomic with respect to waiting guest threads.
func (s *State) notifyAll(fn func()) {
	s.notifMu.Lock()
	fn()
	// Unlocking before the broadcast lets woken waiters acquire the mutex
	// without an immediate context switch back.
	s.notifMu.Unlock()
	s.notifCond.Broadcast()
}

// WaitNotification blocks until ready returns true. ready is evaluated
// under the notification mutex and re-evaluated after every notification
// delivery, so a guest thread can sleep until the memory word it polls
// has been written.
func (s *State) WaitNotification(ready func() bool) {
	s.notifMu.Lock()
	defer s.notifMu.Unlock()
	for !ready() {
		s.notifCond.Wait()
	}
}
