// Package protocol implements the Model Context Protocol wire types: the
// JSON-RPC 2.0 envelope and the MCP-specific request/result shapes carried
// inside it.
package protocol

import (
	"context"

	"github.com/0xeb/fastmcpp-sub002/jsonvalue"
)

// Version is the MCP protocol version this server speaks.
const Version = "2024-11-05"

// JSONRPCRequest represents a JSON-RPC request frame.
type JSONRPCRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id,omitempty"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// IsNotification reports whether the request carries no id, per JSON-RPC 2.0.
func (r *JSONRPCRequest) IsNotification() bool {
	return r.ID == nil
}

// JSONRPCResponse represents a JSON-RPC response frame.
type JSONRPCResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      interface{}   `json:"id,omitempty"`
	Result  interface{}   `json:"result,omitempty"`
	Error   *JSONRPCError `json:"error,omitempty"`
}

// JSONRPCError represents a JSON-RPC error object.
type JSONRPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *JSONRPCError) Error() string {
	return e.Message
}

// Error codes from the JSON-RPC 2.0 spec, subset used by MCP.
const (
	ParseError     = -32700
	InvalidRequest = -32600
	MethodNotFound = -32601
	InvalidParams  = -32602
	InternalError  = -32603
)

// NewJSONRPCError builds a JSONRPCError.
func NewJSONRPCError(code int, message string, data interface{}) *JSONRPCError {
	return &JSONRPCError{Code: code, Message: message, Data: data}
}

// Icon is a display icon for a tool, per MCP's optional icons array.
type Icon struct {
	Src      string `json:"src"`
	MimeType string `json:"mimeType,omitempty"`
}

// Tool is a named, schema-described callable exposed by the server.
//
// Fn is total over inputs that match InputSchema: the dispatcher validates
// required arguments before ever calling it, so Fn itself need not re-check
// presence of required keys (it may still reject values that are present
// but semantically invalid).
type Tool struct {
	Name         string           `json:"name"`
	Title        string           `json:"title,omitempty"`
	Description  string           `json:"description,omitempty"`
	InputSchema  jsonvalue.Object  `json:"inputSchema"`
	OutputSchema jsonvalue.Object  `json:"outputSchema,omitempty"`
	Icons        []Icon           `json:"icons,omitempty"`
	Fn           ToolFunc         `json:"-"`
}

// ToolFunc is the callable backing a Tool. The ctx argument carries the
// request-scoped mcontext.Context (resources, prompts, elicitation,
// sampling, logging) without widening ToolFunc's signature for tools that
// don't need those capabilities.
type ToolFunc func(ctx context.Context, args jsonvalue.Object) (interface{}, error)

// ResourceKind classifies a Resource's payload.
type ResourceKind string

const (
	ResourceFile    ResourceKind = "file"
	ResourceText    ResourceKind = "text"
	ResourceJSON    ResourceKind = "json"
	ResourceUnknown ResourceKind = "unknown"
)

// Resource is a named, read-only piece of content.
type Resource struct {
	URI         string       `json:"uri"`
	Name        string       `json:"name,omitempty"`
	Description string       `json:"description,omitempty"`
	MimeType    string       `json:"mimeType,omitempty"`
	Kind        ResourceKind `json:"-"`
	// Payload holds a filesystem path (Kind==ResourceFile), inline text
	// (Kind==ResourceText), or a decoded JSON value (Kind==ResourceJSON).
	Payload interface{} `json:"-"`
}

// ResourceContent is one entry of a resources/read response.
type ResourceContent struct {
	URI      string `json:"uri"`
	Text     string `json:"text,omitempty"`
	Blob     string `json:"blob,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
}

// PromptArgument describes one templated argument of a Prompt.
type PromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

// Prompt is a named, parameterized template that renders into a message list.
type Prompt struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Arguments   []PromptArgument `json:"arguments,omitempty"`
	Render      PromptFunc       `json:"-"`
}

// PromptFunc renders a Prompt's arguments into a message list.
type PromptFunc func(ctx context.Context, args jsonvalue.Object) ([]PromptMessage, error)

// PromptMessage is one rendered message of a prompts/get response.
type PromptMessage struct {
	Role    string  `json:"role"`
	Content Content `json:"content"`
}

// Content is a single content block in MCP responses.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// NewTextContent builds a "text" Content block.
func NewTextContent(text string) Content {
	return Content{Type: "text", Text: text}
}

// ToolCallResult is the result shape of tools/call.
type ToolCallResult struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

// NewToolCallResult wraps content blocks into a successful result.
func NewToolCallResult(content ...Content) *ToolCallResult {
	return &ToolCallResult{Content: content}
}

// NewToolCallError wraps a tool-internal failure message into a result with
// IsError set; per MCP convention this is a successful JSON-RPC response,
// never a JSON-RPC error.
func NewToolCallError(message string) *ToolCallResult {
	return &ToolCallResult{Content: []Content{NewTextContent(message)}, IsError: true}
}

// ServerCapabilities advertises which MCP feature groups this server exposes.
type ServerCapabilities struct {
	Tools     *ToolCapability     `json:"tools,omitempty"`
	Resources *ResourceCapability `json:"resources,omitempty"`
	Prompts   *PromptCapability   `json:"prompts,omitempty"`
	Sampling  *SamplingCapability `json:"sampling,omitempty"`
}

// ToolCapability is the tools capability advertisement.
type ToolCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// ResourceCapability is the resources capability advertisement.
type ResourceCapability struct {
	Subscribe   bool `json:"subscribe,omitempty"`
	ListChanged bool `json:"listChanged,omitempty"`
}

// PromptCapability is the prompts capability advertisement.
type PromptCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// SamplingCapability is the sampling capability advertisement.
type SamplingCapability struct{}

// ClientInfo identifies the connecting MCP client.
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ClientCapabilities is what the client advertises at initialize time.
type ClientCapabilities struct {
	Experimental map[string]interface{} `json:"experimental,omitempty"`
	Sampling     map[string]interface{} `json:"sampling,omitempty"`
}

// InitializeRequest is the initialize method's params.
type InitializeRequest struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ClientCapabilities `json:"capabilities"`
	ClientInfo      ClientInfo         `json:"clientInfo"`
}

// ServerInfo identifies this server in the initialize result.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// InitializeResult is the initialize method's result.
type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	ServerInfo      ServerInfo         `json:"serverInfo"`
}

// ToolCallRequest is the tools/call method's params.
type ToolCallRequest struct {
	Name      string           `json:"name"`
	Arguments jsonvalue.Object `json:"arguments,omitempty"`
}
