// Package server implements the MCP handler: registries of tools,
// resources, and prompts wired through an interceptor pipeline to the
// seven core JSON-RPC methods (initialize, tools/list, tools/call,
// resources/list, resources/read, prompts/list, prompts/get).
package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/0xeb/fastmcpp-sub002/jsonvalue"
	"github.com/0xeb/fastmcpp-sub002/mcontext"
	"github.com/0xeb/fastmcpp-sub002/mcperrors"
	"github.com/0xeb/fastmcpp-sub002/middleware"
	"github.com/0xeb/fastmcpp-sub002/protocol"
	"github.com/0xeb/fastmcpp-sub002/registry"
	"github.com/0xeb/fastmcpp-sub002/sampling"
	"github.com/0xeb/fastmcpp-sub002/transport"
)

// Server holds the registries and pipeline backing one MCP endpoint and
// implements transport.RequestHandler.
type Server struct {
	name         string
	version      string
	capabilities protocol.ServerCapabilities

	tools     *registry.ToolManager
	resources *registry.ResourceManager
	prompts   *registry.PromptManager

	pipeline *middleware.Pipeline
	elicit   mcontext.ElicitationCallback
	sample   *sampling.Helper
	logger   *slog.Logger

	transport transport.Transport

	mu          sync.RWMutex
	initialized bool
}

// NewServer creates an MCP server with empty registries, an empty
// pipeline, and capabilities advertising tools/resources/prompts (but not
// sampling, until SetSamplingCallback is called).
func NewServer(name, version string) *Server {
	return &Server{
		name:      name,
		version:   version,
		tools:     registry.NewToolManager(),
		resources: registry.NewResourceManager(),
		prompts:   registry.NewPromptManager(),
		pipeline:  middleware.NewPipeline(),
		logger:    slog.Default(),
		capabilities: protocol.ServerCapabilities{
			Tools:     &protocol.ToolCapability{ListChanged: false},
			Resources: &protocol.ResourceCapability{Subscribe: false, ListChanged: false},
			Prompts:   &protocol.PromptCapability{ListChanged: false},
		},
	}
}

// AddTool registers tool under tool.Name. Registering a name that is
// already present returns an AlreadyExistsError.
func (s *Server) AddTool(tool protocol.Tool) error {
	return s.tools.Register(tool, registry.RegisterOptions{})
}

// AddResource registers resource under resource.URI. Registering a URI that
// is already present returns an AlreadyExistsError.
func (s *Server) AddResource(resource protocol.Resource) error {
	return s.resources.Register(resource, registry.RegisterOptions{})
}

// AddPrompt registers prompt under prompt.Name. Registering a name that is
// already present returns an AlreadyExistsError.
func (s *Server) AddPrompt(prompt protocol.Prompt) error {
	return s.prompts.Register(prompt, registry.RegisterOptions{})
}

// SetPipeline installs the middleware pipeline every request runs through.
// A nil pipeline is replaced with an empty one (requests fall straight
// through to the terminal).
func (s *Server) SetPipeline(p *middleware.Pipeline) {
	if p == nil {
		p = middleware.NewPipeline()
	}
	s.pipeline = p
}

// SetElicitationCallback installs the callback used to satisfy elicitation
// requests raised by tool/prompt handlers through their Context.
func (s *Server) SetElicitationCallback(cb mcontext.ElicitationCallback) {
	s.elicit = cb
}

// SetSamplingCallback installs the callback used to satisfy Context.Sample
// calls and advertises the sampling capability to clients.
func (s *Server) SetSamplingCallback(cb sampling.Callback) {
	s.sample = sampling.NewHelper(cb)
	s.capabilities.Sampling = &protocol.SamplingCapability{}
}

// SetLogger installs the logger handed to every request's mcontext.Context.
func (s *Server) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// SetTransport sets the transport layer the server will Start against.
func (s *Server) SetTransport(t transport.Transport) {
	s.transport = t
}

// Start runs the configured transport with this server as its handler.
func (s *Server) Start(ctx context.Context) error {
	if s.transport == nil {
		return fmt.Errorf("no transport configured")
	}
	return s.transport.Start(ctx, s)
}

// IsInitialized returns whether the server has processed an initialize
// request.
func (s *Server) IsInitialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

// HandleRequest implements transport.RequestHandler: it builds a
// MiddlewareContext, runs it through the pipeline, and suppresses any
// response for a notification per JSON-RPC 2.0 (a request with no id never
// gets a reply, success or error).
func (s *Server) HandleRequest(ctx context.Context, req *protocol.JSONRPCRequest) *protocol.JSONRPCResponse {
	mctx := middleware.NewContext(ctx, req)

	resp, err := s.pipeline.Execute(mctx, s.terminal)
	if err != nil {
		if req.IsNotification() {
			return nil
		}
		return errorResponse(req, protocol.InternalError, err.Error(), nil)
	}
	if req.IsNotification() {
		return nil
	}
	return resp
}

// terminal is the innermost CallNext: it dispatches on method to the
// per-operation handler once every installed middleware has run.
func (s *Server) terminal(ctx *middleware.MiddlewareContext) (*protocol.JSONRPCResponse, error) {
	switch ctx.Method {
	case "initialize":
		return s.handleInitialize(ctx), nil
	case "tools/list":
		return s.handleToolsList(ctx), nil
	case "tools/call":
		return s.handleToolsCall(ctx), nil
	case "resources/list":
		return s.handleResourcesList(ctx), nil
	case "resources/read":
		return s.handleResourcesRead(ctx), nil
	case "prompts/list":
		return s.handlePromptsList(ctx), nil
	case "prompts/get":
		return s.handlePromptsGet(ctx), nil
	default:
		return errorResponse(ctx.Message, protocol.MethodNotFound, "Method not found", nil), nil
	}
}

func (s *Server) handleInitialize(ctx *middleware.MiddlewareContext) *protocol.JSONRPCResponse {
	var initReq protocol.InitializeRequest
	if err := parseParams(ctx.Message.Params, &initReq); err != nil {
		return errorResponse(ctx.Message, protocol.InvalidParams, "Invalid parameters", err.Error())
	}

	s.mu.Lock()
	s.initialized = true
	s.mu.Unlock()

	result := protocol.InitializeResult{
		ProtocolVersion: protocol.Version,
		Capabilities:    s.capabilities,
		ServerInfo:      protocol.ServerInfo{Name: s.name, Version: s.version},
	}
	return successResponse(ctx.Message, result)
}

func (s *Server) handleToolsList(ctx *middleware.MiddlewareContext) *protocol.JSONRPCResponse {
	return successResponse(ctx.Message, jsonvalue.Object{"tools": s.tools.List()})
}

func (s *Server) handleToolsCall(ctx *middleware.MiddlewareContext) *protocol.JSONRPCResponse {
	var callReq protocol.ToolCallRequest
	if err := parseParams(ctx.Message.Params, &callReq); err != nil {
		return errorResponse(ctx.Message, protocol.InvalidParams, "Invalid parameters", err.Error())
	}

	tool, err := s.tools.Get(callReq.Name)
	if err != nil {
		return notFoundResponse(ctx.Message, err)
	}

	if err := validateRequiredArgs(tool.InputSchema, callReq.Arguments); err != nil {
		return errorResponse(ctx.Message, protocol.InvalidParams, "Invalid parameters", err.Error())
	}

	if tool.Fn == nil {
		return errorResponse(ctx.Message, protocol.InternalError, fmt.Sprintf("tool %q has no implementation", tool.Name), nil)
	}

	goCtx := s.requestContext(ctx)
	result, err := tool.Fn(goCtx, callReq.Arguments)
	if err != nil {
		return successResponse(ctx.Message, protocol.NewToolCallError(err.Error()))
	}

	return successResponse(ctx.Message, toToolCallResult(result))
}

func (s *Server) handleResourcesList(ctx *middleware.MiddlewareContext) *protocol.JSONRPCResponse {
	return successResponse(ctx.Message, jsonvalue.Object{"resources": s.resources.List()})
}

func (s *Server) handleResourcesRead(ctx *middleware.MiddlewareContext) *protocol.JSONRPCResponse {
	params, _ := ctx.Message.Params.(jsonvalue.Object)
	uri := jsonvalue.GetString(params, "uri")
	if uri == "" {
		return errorResponse(ctx.Message, protocol.InvalidParams, "URI parameter required", nil)
	}

	resource, err := s.resources.Get(uri)
	if err != nil {
		return notFoundResponse(ctx.Message, err)
	}

	content, err := renderResource(resource)
	if err != nil {
		return errorResponse(ctx.Message, protocol.InternalError, err.Error(), nil)
	}

	return successResponse(ctx.Message, jsonvalue.Object{"contents": []protocol.ResourceContent{content}})
}

func (s *Server) handlePromptsList(ctx *middleware.MiddlewareContext) *protocol.JSONRPCResponse {
	return successResponse(ctx.Message, jsonvalue.Object{"prompts": s.prompts.List()})
}

func (s *Server) handlePromptsGet(ctx *middleware.MiddlewareContext) *protocol.JSONRPCResponse {
	params, _ := ctx.Message.Params.(jsonvalue.Object)
	name := jsonvalue.GetString(params, "name")
	if name == "" {
		return errorResponse(ctx.Message, protocol.InvalidParams, "Name parameter required", nil)
	}
	args, _ := params["arguments"].(jsonvalue.Object)

	prompt, err := s.prompts.Get(name)
	if err != nil {
		return notFoundResponse(ctx.Message, err)
	}
	if prompt.Render == nil {
		return errorResponse(ctx.Message, protocol.InternalError, fmt.Sprintf("prompt %q has no renderer", prompt.Name), nil)
	}

	goCtx := s.requestContext(ctx)
	messages, err := prompt.Render(goCtx, args)
	if err != nil {
		return errorResponse(ctx.Message, protocol.InternalError, err.Error(), nil)
	}

	return successResponse(ctx.Message, jsonvalue.Object{"messages": messages})
}

// requestContext builds the per-request mcontext.Context and attaches it to
// ctx.Go so tool and prompt functions can retrieve it via
// mcontext.FromContext.
func (s *Server) requestContext(ctx *middleware.MiddlewareContext) context.Context {
	goCtx := ctx.Go
	if goCtx == nil {
		goCtx = context.Background()
	}
	requestID := ctx.RequestID
	if requestID == "" && ctx.Message != nil && ctx.Message.ID != nil {
		requestID = fmt.Sprint(ctx.Message.ID)
	}
	mc := mcontext.New(requestID, s.resources, s.prompts, s.elicit, s.sample, s.logger)
	return mcontext.WithContext(goCtx, mc)
}

// toToolCallResult normalizes a ToolFunc's return value into the tools/call
// result shape: a pre-built *protocol.ToolCallResult passes through, a bare
// string becomes one text block, a raw object already shaped like a tool
// result (a "content" array) passes through verbatim, and anything else is
// marshaled to JSON text as a last resort.
func toToolCallResult(result interface{}) *protocol.ToolCallResult {
	switch v := result.(type) {
	case *protocol.ToolCallResult:
		return v
	case protocol.ToolCallResult:
		return &v
	case string:
		return protocol.NewToolCallResult(protocol.NewTextContent(v))
	default:
		if obj, ok := jsonvalue.AsObject(result); ok {
			if _, hasContent := obj["content"].([]interface{}); hasContent {
				if r, err := rawObjectToToolCallResult(obj); err == nil {
					return r
				}
			}
		}
		if jsonBytes, err := json.Marshal(result); err == nil {
			return protocol.NewToolCallResult(protocol.NewTextContent(string(jsonBytes)))
		}
		return protocol.NewToolCallResult(protocol.NewTextContent(fmt.Sprintf("%v", result)))
	}
}

// rawObjectToToolCallResult decodes a jsonvalue.Object already shaped like a
// ToolCallResult (content array plus optional isError) into the typed form,
// so a tool built against the raw JSON shape gets passed through verbatim
// instead of being re-wrapped into a single text block.
func rawObjectToToolCallResult(obj jsonvalue.Object) (*protocol.ToolCallResult, error) {
	data, err := json.Marshal(obj)
	if err != nil {
		return nil, err
	}
	var result protocol.ToolCallResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// renderResource turns a registered Resource into the content block
// returned from resources/read, per its Kind.
func renderResource(resource protocol.Resource) (protocol.ResourceContent, error) {
	switch resource.Kind {
	case protocol.ResourceFile:
		path, _ := resource.Payload.(string)
		data, err := os.ReadFile(path)
		if err != nil {
			return protocol.ResourceContent{}, fmt.Errorf("reading resource file: %w", err)
		}
		content := protocol.ResourceContent{URI: resource.URI, MimeType: resource.MimeType}
		if isTextMimeType(resource.MimeType) {
			content.Text = string(data)
		} else {
			content.Blob = base64.StdEncoding.EncodeToString(data)
		}
		return content, nil

	case protocol.ResourceText:
		text, _ := resource.Payload.(string)
		return protocol.ResourceContent{URI: resource.URI, Text: text, MimeType: resource.MimeType}, nil

	case protocol.ResourceJSON:
		encoded, err := json.Marshal(resource.Payload)
		if err != nil {
			return protocol.ResourceContent{}, fmt.Errorf("encoding resource payload: %w", err)
		}
		mimeType := resource.MimeType
		if mimeType == "" {
			mimeType = "application/json"
		}
		return protocol.ResourceContent{URI: resource.URI, Text: string(encoded), MimeType: mimeType}, nil

	default:
		return protocol.ResourceContent{}, fmt.Errorf("resource %q has unknown kind %q", resource.URI, resource.Kind)
	}
}

// isTextMimeType reports whether mimeType should be served as Text rather
// than base64 Blob; an unset mime type is assumed to be text.
func isTextMimeType(mimeType string) bool {
	if mimeType == "" {
		return true
	}
	switch mimeType {
	case "application/json", "application/xml", "application/javascript":
		return true
	}
	return len(mimeType) >= 5 && mimeType[:5] == "text/"
}

// validateRequiredArgs enforces that every property schema names as
// required in InputSchema is present in args, per Tool's documented
// contract that Fn need not re-check presence itself.
func validateRequiredArgs(schema jsonvalue.Object, args jsonvalue.Object) error {
	required := jsonvalue.StringSlice(schema["required"])
	for _, name := range required {
		if _, ok := args[name]; !ok {
			return fmt.Errorf("missing required argument %q", name)
		}
	}
	return nil
}

// parseParams decodes a JSON-RPC params value into target via a JSON
// round-trip, since params arrives already decoded into interface{}.
func parseParams(params interface{}, target interface{}) error {
	if params == nil {
		return nil
	}
	jsonBytes, err := json.Marshal(params)
	if err != nil {
		return err
	}
	return json.Unmarshal(jsonBytes, target)
}

func successResponse(req *protocol.JSONRPCRequest, result interface{}) *protocol.JSONRPCResponse {
	return &protocol.JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: result}
}

func errorResponse(req *protocol.JSONRPCRequest, code int, message string, data interface{}) *protocol.JSONRPCResponse {
	return &protocol.JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Error: protocol.NewJSONRPCError(code, message, data)}
}

// notFoundResponse translates a registry NotFoundError (or any other lookup
// failure) into a JSON-RPC response. An unregistered tool/resource/prompt
// name is an invalid parameter value, not an unrecognized method, so it maps
// to -32602.
func notFoundResponse(req *protocol.JSONRPCRequest, err error) *protocol.JSONRPCResponse {
	var notFound *mcperrors.NotFoundError
	if errors.As(err, &notFound) {
		return errorResponse(req, protocol.InvalidParams, notFound.Error(), nil)
	}
	return errorResponse(req, protocol.InternalError, err.Error(), nil)
}
