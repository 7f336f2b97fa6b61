package middleware

import (
	"github.com/0xeb/fastmcpp-sub002/metrics"
	"github.com/0xeb/fastmcpp-sub002/protocol"
)

// NewMetrics returns a middleware that records Prometheus request/tool/
// resource/prompt metrics via m for every message that passes through the
// pipeline.
func NewMetrics(m *metrics.Middleware) *Middleware {
	return &Middleware{
		Name: "metrics",
		OnCallTool: func(ctx *MiddlewareContext, next CallNext) (*protocol.JSONRPCResponse, error) {
			var resp *protocol.JSONRPCResponse
			err := m.TrackToolExecution(ctx.ToolName, func() error {
				var innerErr error
				resp, innerErr = next(ctx)
				if innerErr == nil && resp != nil && resp.Error != nil {
					return resp.Error
				}
				return innerErr
			})
			return resp, err
		},
		OnReadResource: func(ctx *MiddlewareContext, next CallNext) (*protocol.JSONRPCResponse, error) {
			var resp *protocol.JSONRPCResponse
			err := m.TrackResourceOperation(ctx.Method, ctx.ResourceURI, func() error {
				var innerErr error
				resp, innerErr = next(ctx)
				if innerErr == nil && resp != nil && resp.Error != nil {
					return resp.Error
				}
				return innerErr
			})
			return resp, err
		},
		OnGetPrompt: func(ctx *MiddlewareContext, next CallNext) (*protocol.JSONRPCResponse, error) {
			var resp *protocol.JSONRPCResponse
			err := m.TrackPromptOperation(ctx.Method, func() error {
				var innerErr error
				resp, innerErr = next(ctx)
				if innerErr == nil && resp != nil && resp.Error != nil {
					return resp.Error
				}
				return innerErr
			})
			return resp, err
		},
		OnMessage: func(ctx *MiddlewareContext, next CallNext) (*protocol.JSONRPCResponse, error) {
			var resp *protocol.JSONRPCResponse
			err := m.TrackRequest(ctx.Method, func() error {
				var innerErr error
				resp, innerErr = next(ctx)
				if innerErr == nil && resp != nil && resp.Error != nil {
					return resp.Error
				}
				return innerErr
			})
			return resp, err
		},
	}
}
