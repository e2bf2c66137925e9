package rendercore

import "errors"

// Package errors.
//
// The recording protocol errors (ErrAlreadyRecording, ErrNotRecording,
// ErrAlreadyInRenderPass, ErrNotInRenderPass, ErrNoRenderTarget) indicate
// an upstream logic defect in the caller. They are reported and the
// offending call becomes a no-op; an otherwise working emulation session
// keeps going.
var (
	// ErrAlreadyRecording is returned when StartRecording is called while
	// a recording session is already open.
	ErrAlreadyRecording = errors.New("rendercore: recording already started")

	// ErrNotRecording is returned when StopRecording is called outside a
	// recording session.
	ErrNotRecording = errors.New("rendercore: not recording")

	// ErrAlreadyInRenderPass is returned when StartRenderPass is called
	// while a render pass is already open.
	ErrAlreadyInRenderPass = errors.New("rendercore: already in render pass")

	// ErrNotInRenderPass is returned when StopRenderPass is called outside
	// a render pass.
	ErrNotInRenderPass = errors.New("rendercore: not in render pass")

	// ErrNoRenderTarget is returned when recording is started without a
	// bound render target.
	ErrNoRenderTarget = errors.New("rendercore: no render target bound")

	// ErrNoFramebuffer is returned when a render pass is started before
	// SetContext has resolved an attachment set.
	ErrNoFramebuffer = errors.New("rendercore: no framebuffer resolved")

	// ErrFenceWait is the unrecoverable dispatcher failure: a fence wait
	// returned an error, so the guest-visible timing contract can no
	// longer be upheld. It is latched on the Context (see Context.Err).
	ErrFenceWait = errors.New("rendercore: fence wait failed")

	// ErrContextClosed is returned when operations are attempted on a
	// closed context.
	ErrContextClosed = errors.New("rendercore: context is closed")

	// ErrNilDevice is returned when a State is created without a device.
	ErrNilDevice = errors.New("rendercore: nil device")

	// ErrNilProvider is returned when a nil DeviceProvider is passed.
	ErrNilProvider = errors.New("rendercore: nil DeviceProvider")

	// ErrNoHALAccess is returned when a DeviceProvider does not expose
	// the underlying HAL device and queue.
	ErrNoHALAccess = errors.New("rendercore: provider does not expose HAL types")

	// ErrInvalidDimensions is returned when a render target is created
	// with a non-positive extent.
	ErrInvalidDimensions = errors.New("rendercore: invalid dimensions")
)
