package middleware

import (
	"container/list"
	"sync"

	"github.com/0xeb/fastmcpp-sub002/jsonvalue"
	"github.com/0xeb/fastmcpp-sub002/protocol"
)

// CachingConfig configures NewCaching. MaxEntries of 0 means unbounded.
type CachingConfig struct {
	MaxEntries int
}

type cacheEntry struct {
	key  string
	resp *protocol.JSONRPCResponse
}

// Caching memoizes the pipeline's response by a canonical fingerprint of
// (ctx.Method, ctx.Message.Params), bypassing call_next on a hit. Eviction
// is least-recently-used once MaxEntries is reached.
type Caching struct {
	mw         *Middleware
	mu         sync.Mutex
	maxEntries int
	entries    map[string]*list.Element
	order      *list.List // front = most recently used
	hits       int64
	misses     int64
}

// NewCaching returns a Caching middleware.
func NewCaching(cfg CachingConfig) *Caching {
	c := &Caching{
		maxEntries: cfg.MaxEntries,
		entries:    make(map[string]*list.Element),
		order:      list.New(),
	}
	c.mw = &Middleware{
		Name: "caching",
		OnMessage: func(ctx *MiddlewareContext, next CallNext) (*protocol.JSONRPCResponse, error) {
			key, err := c.fingerprint(ctx)
			if err != nil {
				return next(ctx)
			}

			if resp, ok := c.get(key); ok {
				return resp, nil
			}

			resp, err := next(ctx)
			if err == nil {
				c.put(key, resp)
			}
			return resp, err
		},
	}
	return c
}

func (c *Caching) fingerprint(ctx *MiddlewareContext) (string, error) {
	var params interface{}
	if ctx.Message != nil {
		params = ctx.Message.Params
	}
	data, err := jsonvalue.Canonical(jsonvalue.Object{"method": ctx.Method, "params": params})
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (c *Caching) get(key string) (*protocol.JSONRPCResponse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	c.order.MoveToFront(elem)
	c.hits++
	return elem.Value.(*cacheEntry).resp, true
}

func (c *Caching) put(key string, resp *protocol.JSONRPCResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		elem.Value.(*cacheEntry).resp = resp
		c.order.MoveToFront(elem)
		return
	}

	elem := c.order.PushFront(&cacheEntry{key: key, resp: resp})
	c.entries[key] = elem

	if c.maxEntries > 0 {
		for len(c.entries) > c.maxEntries {
			oldest := c.order.Back()
			if oldest == nil {
				break
			}
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*cacheEntry).key)
		}
	}
}

// Stats returns the cumulative hit/miss counts.
func (c *Caching) Stats() (hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Middleware returns the installable hook table for this Caching instance.
func (c *Caching) Middleware() *Middleware {
	return c.mw
}
