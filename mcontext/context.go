// Package mcontext implements the per-request Context object handed to
// tool, resource, and prompt handlers: accessors onto the server's
// registries plus the elicitation and sampling round-trips back to the
// client. A Context is created fresh for each inbound request and must
// never be shared across goroutines or retained past the request.
package mcontext

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/0xeb/fastmcpp-sub002/elicitation"
	"github.com/0xeb/fastmcpp-sub002/jsonvalue"
	"github.com/0xeb/fastmcpp-sub002/mcperrors"
	"github.com/0xeb/fastmcpp-sub002/protocol"
	"github.com/0xeb/fastmcpp-sub002/registry"
	"github.com/0xeb/fastmcpp-sub002/sampling"
)

// ElicitationAction distinguishes how the user responded to an elicitation
// request.
type ElicitationAction string

const (
	ElicitationAccepted  ElicitationAction = "accept"
	ElicitationDeclined  ElicitationAction = "decline"
	ElicitationCancelled ElicitationAction = "cancel"
)

// ElicitationResult is the outcome of a Context.Elicit call. Data is only
// populated when Action is ElicitationAccepted.
type ElicitationResult struct {
	Action ElicitationAction
	Data   jsonvalue.Object
}

// ElicitationCallback is installed on the server-side transport to route an
// elicitation request to the connected client and wait for its response.
type ElicitationCallback func(ctx context.Context, message string, schema jsonvalue.Object) (ElicitationResult, error)

// Context is the per-request handle passed to tool, resource, and prompt
// handlers.
type Context struct {
	requestID string
	resources *registry.ResourceManager
	prompts   *registry.PromptManager
	elicit    ElicitationCallback
	sample    *sampling.Helper
	logger    *slog.Logger
}

// New builds a Context for a single request. resources and prompts may be
// nil if the server has none registered; elicit and sample may be nil if
// the transport doesn't support them, in which case Elicit/Sample return an
// error. A nil logger falls back to slog.Default().
func New(requestID string, resources *registry.ResourceManager, prompts *registry.PromptManager, elicit ElicitationCallback, sample *sampling.Helper, logger *slog.Logger) *Context {
	if logger == nil {
		logger = slog.Default()
	}
	return &Context{
		requestID: requestID,
		resources: resources,
		prompts:   prompts,
		elicit:    elicit,
		sample:    sample,
		logger:    logger,
	}
}

// RequestID returns the correlation ID of the request this Context serves.
func (c *Context) RequestID() string {
	return c.requestID
}

// GetResource looks up a registered resource by URI.
func (c *Context) GetResource(uri string) (protocol.Resource, error) {
	if c.resources == nil {
		return protocol.Resource{}, mcperrors.NewNotFound("resource", uri)
	}
	return c.resources.Get(uri)
}

// ListResources returns every registered resource, sorted by URI.
func (c *Context) ListResources() []protocol.Resource {
	if c.resources == nil {
		return nil
	}
	return c.resources.List()
}

// GetPrompt looks up a registered prompt by name.
func (c *Context) GetPrompt(name string) (protocol.Prompt, error) {
	if c.prompts == nil {
		return protocol.Prompt{}, mcperrors.NewNotFound("prompt", name)
	}
	return c.prompts.Get(name)
}

// Elicit normalizes schema and asks the client to collect structured input
// from the user, matching message. It fails if no ElicitationCallback is
// installed on this Context.
func (c *Context) Elicit(ctx context.Context, message string, schema jsonvalue.Object) (ElicitationResult, error) {
	if c.elicit == nil {
		return ElicitationResult{}, fmt.Errorf("mcontext: no elicitation callback installed")
	}
	normalized, err := elicitation.Normalize(schema)
	if err != nil {
		return ElicitationResult{}, err
	}
	return c.elicit(ctx, message, normalized)
}

// Sample asks the client to run an LLM completion for params
// (CreateMessageRequestParams as a JSON object), returning the normalized
// assistant response. It fails if no sampling callback is installed on this
// Context.
func (c *Context) Sample(ctx context.Context, params jsonvalue.Object) (*sampling.CreateMessageResult, error) {
	if c.sample == nil {
		return nil, fmt.Errorf("mcontext: no sampling callback installed")
	}
	return c.sample.Run(ctx, params)
}

// Log emits a structured log record at level, tagged with this Context's
// request ID.
func (c *Context) Log(ctx context.Context, level slog.Level, msg string, args ...any) {
	c.logger.Log(ctx, level, msg, append([]any{"request_id", c.requestID}, args...)...)
}

// Debug, Info, Warn, and Error are convenience wrappers around Log.
func (c *Context) Debug(ctx context.Context, msg string, args ...any) { c.Log(ctx, slog.LevelDebug, msg, args...) }
func (c *Context) Info(ctx context.Context, msg string, args ...any)  { c.Log(ctx, slog.LevelInfo, msg, args...) }
func (c *Context) Warn(ctx context.Context, msg string, args ...any)  { c.Log(ctx, slog.LevelWarn, msg, args...) }
func (c *Context) Error(ctx context.Context, msg string, args ...any) { c.Log(ctx, slog.LevelError, msg, args...) }

// contextKey is an unexported type so WithContext's key can never collide
// with a key installed by another package.
type contextKey struct{}

// WithContext attaches mc to ctx so a ToolFunc/PromptFunc can retrieve it
// via FromContext without widening their signatures.
func WithContext(ctx context.Context, mc *Context) context.Context {
	return context.WithValue(ctx, contextKey{}, mc)
}

// FromContext retrieves the Context attached by WithContext, if any.
func FromContext(ctx context.Context) (*Context, bool) {
	mc, ok := ctx.Value(contextKey{}).(*Context)
	return mc, ok
}
