// Package sampling implements the client-side adapter for MCP sampling: a
// server-initiated request for the client to perform an LLM completion and
// return the assistant message. The Helper here is what a Context.Sample
// call uses to normalize whatever a user-installed Callback returns into a
// well-formed CreateMessageResult.
package sampling

import (
	"context"
	"fmt"

	"github.com/0xeb/fastmcpp-sub002/jsonvalue"
	"github.com/0xeb/fastmcpp-sub002/protocol"
)

// defaultModel names the synthetic model used when a Callback returns a
// bare string instead of a full CreateMessageResult.
const defaultModel = "fastmcpp-client"

// CreateMessageResult is the sampling/createMessage result shape.
type CreateMessageResult struct {
	Role       string           `json:"role"`
	Content    protocol.Content `json:"content"`
	Model      string           `json:"model"`
	StopReason string           `json:"stopReason,omitempty"`
}

// Callback is installed on a client-side object; it receives the sampling
// request params (CreateMessageRequestParams as a JSON object) and returns
// either a bare string (wrapped into a single text-content assistant
// message) or a pre-shaped *CreateMessageResult.
type Callback func(ctx context.Context, params jsonvalue.Object) (interface{}, error)

// Helper wraps a Callback, normalizing its return value.
type Helper struct {
	callback Callback
}

// NewHelper wraps callback. A nil callback makes every Run call fail.
func NewHelper(callback Callback) *Helper {
	return &Helper{callback: callback}
}

// Run invokes the wrapped callback and normalizes its result.
func (h *Helper) Run(ctx context.Context, params jsonvalue.Object) (*CreateMessageResult, error) {
	if h == nil || h.callback == nil {
		return nil, fmt.Errorf("sampling: no callback installed")
	}

	raw, err := h.callback(ctx, params)
	if err != nil {
		return nil, err
	}

	switch v := raw.(type) {
	case string:
		return &CreateMessageResult{
			Role:    "assistant",
			Content: protocol.NewTextContent(v),
			Model:   defaultModel,
		}, nil
	case *CreateMessageResult:
		return v, nil
	case CreateMessageResult:
		return &v, nil
	default:
		return nil, fmt.Errorf("sampling: callback returned unsupported type %T", raw)
	}
}
