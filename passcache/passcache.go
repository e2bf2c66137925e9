// Package passcache caches render pass templates keyed by attachment
// configuration. The key space is tiny (a handful of color formats times
// the depth-stencil load/store combinations) so entries are never
// evicted.
package passcache

import (
	"sync"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/rendercore"
)

// Key identifies a render pass template: the color attachment format and
// the forced depth-stencil load/store behavior.
type Key struct {
	ColorFormat gputypes.TextureFormat
	Zls         rendercore.ZlsControl
}

// Cache is a thread-safe render pass template cache. It implements
// rendercore.RenderPassCache. The zero value is not usable; call New.
type Cache struct {
	mu     sync.RWMutex
	passes map[Key]*rendercore.RenderPass
}

// New creates an empty render pass cache.
func New() *Cache {
	return &Cache{passes: make(map[Key]*rendercore.RenderPass)}
}

// RetrieveRenderPass returns the cached pass template for the attachment
// configuration, creating it on first use.
func (c *Cache) RetrieveRenderPass(format gputypes.TextureFormat, zls rendercore.ZlsControl) *rendercore.RenderPass {
	key := Key{ColorFormat: format, Zls: zls}

	c.mu.RLock()
	pass, ok := c.passes[key]
	c.mu.RUnlock()
	if ok {
		return pass
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if pass, ok := c.passes[key]; ok {
		return pass
	}
	pass = &rendercore.RenderPass{
		ColorFormat:    format,
		ColorLoadOp:    gputypes.LoadOpLoad,
		ColorStoreOp:   gputypes.StoreOpStore,
		DepthLoadOp:    zls.DepthLoadOp(),
		DepthStoreOp:   zls.DepthStoreOp(),
		StencilLoadOp:  zls.DepthLoadOp(),
		StencilStoreOp: zls.DepthStoreOp(),
	}
	c.passes[key] = pass
	return pass
}

// Len returns the number of cached pass templates.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.passes)
}
