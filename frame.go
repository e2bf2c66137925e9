package rendercore

import "github.com/gogpu/wgpu/hal"

// MaxFramesInFlight is the number of frames that may be in flight on the
// GPU at once. Frame resources cycle through this many slots.
const MaxFramesInFlight = 3

// frameSlot holds the resources tied to one in-flight frame: the fences
// submitted while the frame was current and the descriptor (bind group)
// allocations made for its render passes. A slot is recycled by reset at
// the start of each new displayed frame.
type frameSlot struct {
	// renderedFences lists every fence submitted during the frame.
	// Append-only from the render thread; the dispatcher observes fences
	// only through the request queue, never through this list.
	renderedFences []FenceValue

	// bindGroups are the per-pass render-target descriptor sets allocated
	// during the frame. Destroyed on reset; by then the frame's
	// submissions have completed.
	bindGroups []hal.BindGroup
}

// reset recycles the slot for a new frame.
func (f *frameSlot) reset(device hal.Device) {
	for _, bg := range f.bindGroups {
		device.DestroyBindGroup(bg)
	}
	f.bindGroups = f.bindGroups[:0]
	// Note: fences are not reset here. They are timeline fences, so the
	// ring can reuse them, and the dispatcher may still be waiting on
	// values submitted during this frame.
	f.renderedFences = f.renderedFences[:0]
}
