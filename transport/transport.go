// Package transport implements MCP transport layers: stdio, HTTP, and
// WebSocket adapters that each turn inbound JSON-RPC frames into calls
// against a RequestHandler and frame the handler's response back out.
package transport

import (
	"context"

	"github.com/0xeb/fastmcpp-sub002/protocol"
)

// Transport drives a RequestHandler until Stop is called or its input is
// exhausted.
type Transport interface {
	Start(ctx context.Context, handler RequestHandler) error
	Stop() error
}

// RequestHandler processes one JSON-RPC request and returns its response.
// A nil return means the request was a notification; the transport must
// suppress any response bytes for it.
type RequestHandler interface {
	HandleRequest(ctx context.Context, req *protocol.JSONRPCRequest) *protocol.JSONRPCResponse
}
