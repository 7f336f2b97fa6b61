package middleware

import (
	"fmt"
	"sync"

	"github.com/0xeb/fastmcpp-sub002/protocol"
)

// Observer is notified whenever ErrorHandling translates an exception into
// a JSON-RPC error response.
type Observer func(ctx *MiddlewareContext, err error)

// ErrorHandling wraps call_next: an uncaught exception (a non-nil error, or
// a recovered panic) is translated into a -32603 Internal error response
// instead of propagating further, an optional observer is invoked, and a
// per-method failure counter is incremented. It is normally added first so
// it wraps every middleware and the terminal beneath it.
type ErrorHandling struct {
	mw       *Middleware
	observer Observer

	mu     sync.Mutex
	counts map[string]int64
}

// NewErrorHandling returns an ErrorHandling middleware. observer may be nil.
func NewErrorHandling(observer Observer) *ErrorHandling {
	e := &ErrorHandling{observer: observer, counts: make(map[string]int64)}
	e.mw = &Middleware{
		Name:      "error_handling",
		OnMessage: e.handle,
	}
	return e
}

func (e *ErrorHandling) handle(ctx *MiddlewareContext, next CallNext) (resp *protocol.JSONRPCResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			resp, err = e.translate(ctx, err)
		}
	}()

	resp, err = next(ctx)
	if err != nil {
		return e.translate(ctx, err)
	}
	return resp, nil
}

func (e *ErrorHandling) translate(ctx *MiddlewareContext, cause error) (*protocol.JSONRPCResponse, error) {
	e.mu.Lock()
	e.counts[ctx.Method]++
	e.mu.Unlock()

	if e.observer != nil {
		e.observer(ctx, cause)
	}

	var id interface{}
	if ctx.Message != nil {
		id = ctx.Message.ID
	}
	return &protocol.JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   protocol.NewJSONRPCError(protocol.InternalError, fmt.Sprintf("Internal error: %v", cause), nil),
	}, nil
}

// FailureCount returns how many exceptions have been translated for method.
func (e *ErrorHandling) FailureCount(method string) int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.counts[method]
}

// Middleware returns the installable hook table for this ErrorHandling instance.
func (e *ErrorHandling) Middleware() *Middleware {
	return e.mw
}
