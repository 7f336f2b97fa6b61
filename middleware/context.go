// Package middleware implements the ordered interceptor chain that sits
// between a transport and the MCP handler's per-method terminal: a
// MiddlewareContext carrying the request, a Pipeline composing middleware
// in "onion" order, and a set of built-in middlewares (logging, timing,
// caching, rate limiting, error translation, tracing).
package middleware

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/0xeb/fastmcpp-sub002/jsonvalue"
	"github.com/0xeb/fastmcpp-sub002/protocol"
)

// Source distinguishes who originated the message this context wraps.
type Source string

const (
	SourceClient Source = "client"
	SourceServer Source = "server"
)

// MessageType distinguishes a request expecting a response from a
// fire-and-forget notification.
type MessageType string

const (
	TypeRequest      MessageType = "request"
	TypeNotification MessageType = "notification"
)

// MiddlewareContext is handed to every middleware and, ultimately, to the
// MCP handler's terminal. A middleware that wants to mutate context state
// for downstream middleware must call Clone first; it must never retain a
// context past the call that received it.
type MiddlewareContext struct {
	Method      string
	Message     *protocol.JSONRPCRequest
	Source      Source
	Type        MessageType
	Timestamp   time.Time
	RequestID   string
	ToolName    string
	ResourceURI string
	PromptName  string

	// Go carries the transport's context.Context (cancellation, deadlines,
	// span state) alongside the MCP-level fields above. It is Go-idiomatic
	// plumbing layered on top of the wire-level fields, and is shared (not
	// deep-copied) by Clone.
	Go context.Context
}

// NewContext builds a MiddlewareContext for an inbound JSON-RPC request,
// filling Source/Type/Timestamp defaults and deriving ToolName /
// ResourceURI / PromptName from the request params when the method
// identifies one.
func NewContext(goCtx context.Context, req *protocol.JSONRPCRequest) *MiddlewareContext {
	ctx := &MiddlewareContext{
		Method:    req.Method,
		Message:   req,
		Source:    SourceClient,
		Type:      TypeRequest,
		Timestamp: time.Now(),
		Go:        goCtx,
	}
	if req.IsNotification() {
		ctx.Type = TypeNotification
	} else if id, ok := req.ID.(string); ok {
		ctx.RequestID = id
	}
	if ctx.RequestID == "" {
		// Notifications carry no id, and a numeric id isn't a good log
		// correlation key on its own (IDs are reused across connections), so
		// stamp a fresh one to tie this request's log/span lines together.
		ctx.RequestID = uuid.NewString()
	}

	params, _ := req.Params.(jsonvalue.Object)
	switch req.Method {
	case "tools/call":
		ctx.ToolName = jsonvalue.GetString(params, "name")
	case "resources/read":
		ctx.ResourceURI = jsonvalue.GetString(params, "uri")
	case "prompts/get":
		ctx.PromptName = jsonvalue.GetString(params, "name")
	}
	return ctx
}

// Clone returns a deep, independent copy: mutating the clone's Message (or
// any nested value within it) never affects the original.
func (c *MiddlewareContext) Clone() *MiddlewareContext {
	clone := *c
	if c.Message != nil {
		msg := *c.Message
		msg.Params = jsonvalue.DeepCopy(c.Message.Params)
		clone.Message = &msg
	}
	return &clone
}

// CallNext is the continuation a middleware invokes to run the rest of the
// pipeline. The terminal handler never returns a non-nil error for a
// deliberate JSON-RPC-level failure (those are encoded directly into the
// response); a non-nil error represents an uncaught exception that
// propagates until an ErrorHandling middleware translates it.
type CallNext func(ctx *MiddlewareContext) (*protocol.JSONRPCResponse, error)

// HookFunc is a single middleware hook: inspect ctx, optionally call next,
// optionally post-process its result.
type HookFunc func(ctx *MiddlewareContext, next CallNext) (*protocol.JSONRPCResponse, error)

// Middleware is a hook table. Every field is optional; unset hooks fall
// through to the generic behavior of calling next unmodified. Dispatch
// order per call is: the method-specific hook, then the type hook
// (OnRequest/OnNotification), then OnMessage, then (if none are set) next
// directly.
type Middleware struct {
	Name string

	OnInitialize    HookFunc
	OnCallTool      HookFunc
	OnListTools     HookFunc
	OnReadResource  HookFunc
	OnListResources HookFunc
	OnGetPrompt     HookFunc
	OnListPrompts   HookFunc

	OnRequest      HookFunc
	OnNotification HookFunc

	OnMessage HookFunc
}

// methodHook returns the hook registered for ctx.Method, if any.
func (m *Middleware) methodHook(method string) HookFunc {
	switch method {
	case "initialize":
		return m.OnInitialize
	case "tools/call":
		return m.OnCallTool
	case "tools/list":
		return m.OnListTools
	case "resources/read":
		return m.OnReadResource
	case "resources/list":
		return m.OnListResources
	case "prompts/get":
		return m.OnGetPrompt
	case "prompts/list":
		return m.OnListPrompts
	default:
		return nil
	}
}

// dispatch runs this middleware against ctx, following the method ⇒ type ⇒
// on_message ⇒ pass-through fallback chain.
func (m *Middleware) dispatch(ctx *MiddlewareContext, next CallNext) (*protocol.JSONRPCResponse, error) {
	if hook := m.methodHook(ctx.Method); hook != nil {
		return hook(ctx, next)
	}
	switch ctx.Type {
	case TypeRequest:
		if m.OnRequest != nil {
			return m.OnRequest(ctx, next)
		}
	case TypeNotification:
		if m.OnNotification != nil {
			return m.OnNotification(ctx, next)
		}
	}
	if m.OnMessage != nil {
		return m.OnMessage(ctx, next)
	}
	return next(ctx)
}
