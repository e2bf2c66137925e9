package rendercore

import "time"

// fenceWaitSlice is the wait quantum of the dispatcher. Waits are
// re-issued on timeout so a slow scene never trips the latch; only a
// wait error does.
const fenceWaitSlice = 5 * time.Second

// waitLoop is the dispatcher goroutine. It pops completion requests in
// submission order and performs their guest-visible side effects only
// after all GPU work fenced before them has been observed complete.
//
// Fences are batched: a notification request whose both addresses are
// null merely records its fence, and the batch is flushed in one go when
// a request with an observable side effect arrives. The loop exits when
// the request queue is closed and drained.
func (c *Context) waitLoop() {
	defer c.done.Done()

	var pending []FenceValue
	flush := func() {
		for _, fv := range pending {
			c.waitFence(fv)
		}
		pending = pending[:0]
	}

	for {
		req, ok := c.requests.Pop()
		if !ok {
			return
		}
		switch r := req.(type) {
		case NotificationRequest:
			pending = append(pending, r.Fence)
			if r.Notifications[0].Address.IsNull() && r.Notifications[1].Address.IsNull() {
				continue
			}
			flush()
			c.state.notifyAll(func() {
				for _, n := range r.Notifications {
					if n.Address.IsNull() {
						continue
					}
					c.mem.WriteUint32(n.Address, n.Value)
				}
			})

		case FrameDoneRequest:
			flush()
			c.frameMu.Lock()
			if r.FrameTimestamp > c.lastFrameWaited {
				c.lastFrameWaited = r.FrameTimestamp
			}
			c.frameMu.Unlock()
			c.frameCond.Signal()

		case PostSurfaceSyncRequest:
			flush()
			c.state.Surfaces.PerformPostSurfaceSync(c.mem, r.Sync)
		}
	}
}

// waitFence blocks until the fence reaches the given timeline value. A
// wait error is unrecoverable: it is logged and latched on the context,
// and the dispatcher proceeds as if the work had completed so the guest
// is not left deadlocked.
func (c *Context) waitFence(fv FenceValue) {
	for {
		ok, err := c.state.Device.Wait(fv.Fence, fv.Value, fenceWaitSlice)
		if err != nil {
			slogger().Error("fence wait failed", "value", fv.Value, "err", err)
			c.setErr(ErrFenceWait)
			return
		}
		if ok {
			return
		}
		slogger().Warn("fence wait exceeded time slice, retrying", "value", fv.Value)
	}
}
