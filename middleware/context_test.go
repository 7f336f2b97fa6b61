package middleware

import (
	"testing"

	"github.com/0xeb/fastmcpp-sub002/jsonvalue"
	"github.com/0xeb/fastmcpp-sub002/protocol"
)

func TestCloneIsDeepAndIndependent(t *testing.T) {
	req := &protocol.JSONRPCRequest{
		JSONRPC: "2.0",
		ID:      "1",
		Method:  "tools/call",
		Params:  jsonvalue.Object{"name": "add", "arguments": jsonvalue.Object{"a": 1.0}},
	}
	ctx := NewContext(nil, req)
	clone := ctx.Clone()

	cloneParams, _ := clone.Message.Params.(jsonvalue.Object)
	cloneArgs, _ := cloneParams["arguments"].(jsonvalue.Object)
	cloneArgs["a"] = 999.0

	origParams, _ := ctx.Message.Params.(jsonvalue.Object)
	origArgs, _ := origParams["arguments"].(jsonvalue.Object)
	if origArgs["a"] != 1.0 {
		t.Fatalf("expected original untouched, got %v", origArgs["a"])
	}
}

func TestNewContextDerivesToolName(t *testing.T) {
	req := &protocol.JSONRPCRequest{
		JSONRPC: "2.0",
		ID:      "1",
		Method:  "tools/call",
		Params:  jsonvalue.Object{"name": "add"},
	}
	ctx := NewContext(nil, req)
	if ctx.ToolName != "add" {
		t.Fatalf("expected tool name \"add\", got %q", ctx.ToolName)
	}
	if ctx.Type != TypeRequest {
		t.Fatalf("expected request type, got %v", ctx.Type)
	}
}

func TestNewContextNotification(t *testing.T) {
	req := &protocol.JSONRPCRequest{JSONRPC: "2.0", Method: "notifications/initialized"}
	ctx := NewContext(nil, req)
	if ctx.Type != TypeNotification {
		t.Fatalf("expected notification type, got %v", ctx.Type)
	}
}

func TestMethodHookWinsOverOnMessage(t *testing.T) {
	var fired string
	mw := &Middleware{
		OnCallTool: func(ctx *MiddlewareContext, next CallNext) (*protocol.JSONRPCResponse, error) {
			fired = "method"
			return next(ctx)
		},
		OnMessage: func(ctx *MiddlewareContext, next CallNext) (*protocol.JSONRPCResponse, error) {
			fired = "message"
			return next(ctx)
		},
	}
	ctx := NewContext(nil, &protocol.JSONRPCRequest{Method: "tools/call"})
	_, _ = mw.dispatch(ctx, func(ctx *MiddlewareContext) (*protocol.JSONRPCResponse, error) {
		return &protocol.JSONRPCResponse{}, nil
	})
	if fired != "method" {
		t.Fatalf("expected method-specific hook to win, got %q", fired)
	}
}
