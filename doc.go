// Package rendercore is the recording and synchronization core for
// emulating a tile-based mobile GPU command stream on top of an explicit
// graphics API (the gogpu HAL).
//
// The package drives the life cycle of command recording for a render
// target and delivers completion notifications back into guest-visible
// memory exactly when the corresponding GPU work finishes, without ever
// stalling the thread that issues rendering commands.
//
// # Architecture
//
// Two threads cooperate through a single queue:
//
//	render thread                      dispatcher goroutine
//	  SetContext                          |
//	  StartRecording                      |
//	  ... record draws ...                |
//	  StopRecording --> queue.Push --> Pop --> wait fence --> write
//	                                           notifications / pace
//	                                           frames / finalize sync
//
// The render thread mutates context and render-target state and only ever
// pushes onto the request queue. The dispatcher goroutine (one per
// Context, started by NewContext) only pops, waits on fences, and performs
// the per-request side effect. Consecutive fence waits are batched so a
// burst of requests costs a single wait call, while request order is
// strictly preserved.
//
// # Collaborators
//
// Format translation, render-pass resolution, framebuffer resolution, and
// CPU-visible surface synchronization are consumed through narrow
// interfaces (RenderPassCache, SurfaceCache, VisibilityBuffer); the
// passcache subpackage provides a ready-made RenderPassCache. Draw and
// compute command encoding happens elsewhere, between StartRenderPass and
// StopRenderPass, using the encoders exposed by Context.
//
// # Quick Start
//
//	state, err := rendercore.NewState(device, gpuQueue, rendercore.StateOptions{
//		Features:     rendercore.FeatureState{SupportMemoryMapping: true},
//		RenderPasses: passcache.New(),
//		Surfaces:     surfaces,
//	})
//	ctx, err := rendercore.NewContext(state, mem, rendercore.ContextOptions{})
//	defer ctx.Close()
//
//	ctx.SetContext(target, &color, &depthStencil)
//	// ... record a scene ...
//	ctx.StopRecording(notif1, notif2)
package rendercore
