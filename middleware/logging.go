package middleware

import (
	"log/slog"
	"time"

	"github.com/0xeb/fastmcpp-sub002/protocol"
)

// LoggingConfig configures NewLogging. IncludePayload is off by default:
// logging full request params can leak secrets passed as tool arguments.
type LoggingConfig struct {
	Logger         *slog.Logger
	IncludePayload bool
}

// NewLogging returns a middleware that writes one line on request entry
// and one on response exit, using cfg.Logger as the sink.
func NewLogging(cfg LoggingConfig) *Middleware {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Middleware{
		Name: "logging",
		OnMessage: func(ctx *MiddlewareContext, next CallNext) (*protocol.JSONRPCResponse, error) {
			entryArgs := []any{"method", ctx.Method, "request_id", ctx.RequestID}
			if cfg.IncludePayload && ctx.Message != nil {
				entryArgs = append(entryArgs, "params", ctx.Message.Params)
			}
			logger.Info("mcp request", entryArgs...)

			start := time.Now()
			resp, err := next(ctx)
			duration := time.Since(start)

			exitArgs := []any{"method", ctx.Method, "request_id", ctx.RequestID, "duration", duration}
			if err != nil {
				logger.Error("mcp request failed", append(exitArgs, "error", err)...)
			} else if resp != nil && resp.Error != nil {
				logger.Warn("mcp response error", append(exitArgs, "code", resp.Error.Code, "message", resp.Error.Message)...)
			} else {
				logger.Info("mcp response", exitArgs...)
			}
			return resp, err
		},
	}
}
