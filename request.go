package rendercore

import "github.com/gogpu/wgpu/hal"

// FenceValue is one point on a submission fence's timeline: the fence
// plus the value the queue signals when the associated work completes.
type FenceValue struct {
	Fence hal.Fence
	Value uint64
}

// Request is a completion-work item consumed by the dispatcher goroutine.
// It is a closed sum: the only implementations are NotificationRequest,
// FrameDoneRequest, and PostSurfaceSyncRequest, and the dispatcher
// consumes them via exhaustive type switching.
//
// Requests are strictly ordered. The dispatcher processes them in push
// order because later requests may depend on GPU work fenced by earlier
// ones.
type Request interface {
	isRequest()
}

// NotificationRequest asks the dispatcher to deliver up to two guest
// notifications once Fence is signaled. Notifications with null addresses
// are dropped; when both are null the fence is merely batched for a later
// flush.
type NotificationRequest struct {
	Fence         FenceValue
	Notifications [2]Notification
}

// FrameDoneRequest asks the dispatcher to record FrameTimestamp as the
// most recently fully-waited frame once all prior fences are signaled.
// The render thread observes it through Context.WaitFrameDone.
type FrameDoneRequest struct {
	FrameTimestamp uint64
}

// PostSurfaceSyncRequest asks the dispatcher to finalize a deferred
// surface synchronization once all prior fences are signaled.
type PostSurfaceSyncRequest struct {
	Sync SurfaceSyncHandle
}

func (NotificationRequest) isRequest()    {}
func (FrameDoneRequest) isRequest()       {}
func (PostSurfaceSyncRequest) isRequest() {}
