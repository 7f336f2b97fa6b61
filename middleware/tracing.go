package middleware

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"github.com/0xeb/fastmcpp-sub002/protocol"
	"github.com/0xeb/fastmcpp-sub002/tracing"
)

// NewTracing returns a middleware that wraps every request in one
// OpenTelemetry span via tracer: a tool span (tool name) for tools/call, a
// resource or prompt span (method plus URI or name) for resources/read and
// prompts/get, and a request span (method) otherwise. An error returned by
// next is recorded on the span.
func NewTracing(tracer *tracing.Tracer) *Middleware {
	return &Middleware{
		Name: "tracing",
		OnMessage: func(ctx *MiddlewareContext, next CallNext) (*protocol.JSONRPCResponse, error) {
			goCtx := ctx.Go
			if goCtx == nil {
				goCtx = context.Background()
			}

			var spanCtx context.Context
			var span trace.Span
			switch {
			case ctx.ToolName != "":
				spanCtx, span = tracer.TraceToolExecution(goCtx, ctx.ToolName)
			case ctx.ResourceURI != "":
				spanCtx, span = tracer.TraceResourceOperation(goCtx, ctx.Method, ctx.ResourceURI)
			case ctx.PromptName != "":
				spanCtx, span = tracer.TracePromptOperation(goCtx, ctx.Method, ctx.PromptName)
			default:
				spanCtx, span = tracer.TraceRequest(goCtx, ctx.Method)
			}
			defer span.End()

			child := ctx.Clone()
			child.Go = spanCtx

			resp, err := next(child)
			if err != nil {
				tracing.RecordError(spanCtx, err)
			}
			return resp, err
		},
	}
}
