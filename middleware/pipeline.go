package middleware

import "github.com/0xeb/fastmcpp-sub002/protocol"

// Pipeline is an ordered sequence of middleware. Execute composes them into
// a single callable equivalent to mw_1(ctx, λ. mw_2(ctx, λ. … mw_N(ctx,
// terminal))) — the first-added middleware is outermost: it sees the
// request first and the response last.
type Pipeline struct {
	middlewares []*Middleware
}

// NewPipeline returns an empty Pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{}
}

// Add appends middleware to the pipeline in order and returns the pipeline
// for chaining.
func (p *Pipeline) Add(mw ...*Middleware) *Pipeline {
	p.middlewares = append(p.middlewares, mw...)
	return p
}

// Len reports how many middlewares are installed.
func (p *Pipeline) Len() int {
	return len(p.middlewares)
}

// Execute runs ctx through every installed middleware, in "onion" order,
// with terminal as the innermost call.
func (p *Pipeline) Execute(ctx *MiddlewareContext, terminal CallNext) (*protocol.JSONRPCResponse, error) {
	handler := terminal
	for i := len(p.middlewares) - 1; i >= 0; i-- {
		mw := p.middlewares[i]
		next := handler
		handler = func(ctx *MiddlewareContext) (*protocol.JSONRPCResponse, error) {
			return mw.dispatch(ctx, next)
		}
	}
	return handler(ctx)
}
