package server

import (
	"context"
	"testing"

	"github.com/0xeb/fastmcpp-sub002/jsonvalue"
	"github.com/0xeb/fastmcpp-sub002/mcontext"
	"github.com/0xeb/fastmcpp-sub002/middleware"
	"github.com/0xeb/fastmcpp-sub002/protocol"
)

func addTool() protocol.Tool {
	return protocol.Tool{
		Name:        "add",
		Description: "adds two numbers",
		InputSchema: jsonvalue.Object{
			"type": "object",
			"properties": jsonvalue.Object{
				"a": jsonvalue.Object{"type": "number"},
				"b": jsonvalue.Object{"type": "number"},
			},
			"required": []interface{}{"a", "b"},
		},
		Fn: func(ctx context.Context, args jsonvalue.Object) (interface{}, error) {
			a, _ := args["a"].(float64)
			b, _ := args["b"].(float64)
			return a + b, nil
		},
	}
}

func req(id interface{}, method string, params interface{}) *protocol.JSONRPCRequest {
	return &protocol.JSONRPCRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params}
}

func TestInitializeMarksServerInitialized(t *testing.T) {
	s := NewServer("test-server", "1.0.0")
	resp := s.HandleRequest(context.Background(), req(1.0, "initialize", jsonvalue.Object{
		"protocolVersion": protocol.Version,
		"capabilities":    jsonvalue.Object{},
		"clientInfo":      jsonvalue.Object{"name": "test-client", "version": "0.1"},
	}))
	if resp == nil || resp.Error != nil {
		t.Fatalf("unexpected error response: %#v", resp)
	}
	if !s.IsInitialized() {
		t.Fatal("expected server to be marked initialized")
	}
}

func TestToolsListReturnsRegisteredTools(t *testing.T) {
	s := NewServer("test-server", "1.0.0")
	if err := s.AddTool(addTool()); err != nil {
		t.Fatal(err)
	}

	resp := s.HandleRequest(context.Background(), req(1.0, "tools/list", nil))
	result, ok := resp.Result.(jsonvalue.Object)
	if !ok {
		t.Fatalf("expected object result, got %#v", resp.Result)
	}
	tools, ok := result["tools"].([]protocol.Tool)
	if !ok || len(tools) != 1 || tools[0].Name != "add" {
		t.Fatalf("unexpected tools list: %#v", result["tools"])
	}
}

func TestToolsCallInvokesHandlerAndWrapsResult(t *testing.T) {
	s := NewServer("test-server", "1.0.0")
	if err := s.AddTool(addTool()); err != nil {
		t.Fatal(err)
	}

	resp := s.HandleRequest(context.Background(), req(1.0, "tools/call", jsonvalue.Object{
		"name":      "add",
		"arguments": jsonvalue.Object{"a": 2.0, "b": 3.0},
	}))
	if resp.Error != nil {
		t.Fatalf("unexpected error: %#v", resp.Error)
	}
	result, ok := resp.Result.(*protocol.ToolCallResult)
	if !ok {
		t.Fatalf("expected *ToolCallResult, got %#v", resp.Result)
	}
	if result.IsError || len(result.Content) != 1 || result.Content[0].Text != "5" {
		t.Fatalf("unexpected tool result: %#v", result)
	}
}

func TestToolsCallMissingRequiredArgumentIsInvalidParams(t *testing.T) {
	s := NewServer("test-server", "1.0.0")
	if err := s.AddTool(addTool()); err != nil {
		t.Fatal(err)
	}

	resp := s.HandleRequest(context.Background(), req(1.0, "tools/call", jsonvalue.Object{
		"name":      "add",
		"arguments": jsonvalue.Object{"a": 2.0},
	}))
	if resp.Error == nil || resp.Error.Code != protocol.InvalidParams {
		t.Fatalf("expected InvalidParams, got %#v", resp.Error)
	}
}

func TestToolsCallPassesThroughRawContentObjectVerbatim(t *testing.T) {
	s := NewServer("test-server", "1.0.0")
	raw := addTool()
	raw.Fn = func(ctx context.Context, args jsonvalue.Object) (interface{}, error) {
		return jsonvalue.Object{
			"content": []interface{}{
				jsonvalue.Object{"type": "text", "text": "from the wire"},
			},
		}, nil
	}
	if err := s.AddTool(raw); err != nil {
		t.Fatal(err)
	}

	resp := s.HandleRequest(context.Background(), req(1.0, "tools/call", jsonvalue.Object{
		"name":      "add",
		"arguments": jsonvalue.Object{"a": 1.0, "b": 1.0},
	}))
	if resp.Error != nil {
		t.Fatalf("unexpected error: %#v", resp.Error)
	}
	result, ok := resp.Result.(*protocol.ToolCallResult)
	if !ok {
		t.Fatalf("expected *ToolCallResult, got %#v", resp.Result)
	}
	if result.IsError || len(result.Content) != 1 || result.Content[0].Text != "from the wire" {
		t.Fatalf("expected content array passed through verbatim, got %#v", result)
	}
}

func TestToolsCallUnknownToolIsInvalidParams(t *testing.T) {
	s := NewServer("test-server", "1.0.0")
	resp := s.HandleRequest(context.Background(), req(1.0, "tools/call", jsonvalue.Object{"name": "missing"}))
	if resp.Error == nil || resp.Error.Code != protocol.InvalidParams {
		t.Fatalf("expected InvalidParams, got %#v", resp.Error)
	}
}

func TestToolsCallHandlerErrorBecomesIsErrorResult(t *testing.T) {
	s := NewServer("test-server", "1.0.0")
	failing := addTool()
	failing.Fn = func(ctx context.Context, args jsonvalue.Object) (interface{}, error) {
		return nil, errBoom
	}
	if err := s.AddTool(failing); err != nil {
		t.Fatal(err)
	}

	resp := s.HandleRequest(context.Background(), req(1.0, "tools/call", jsonvalue.Object{
		"name":      "add",
		"arguments": jsonvalue.Object{"a": 1.0, "b": 1.0},
	}))
	if resp.Error != nil {
		t.Fatalf("tool-internal failure must be a successful response, got error %#v", resp.Error)
	}
	result := resp.Result.(*protocol.ToolCallResult)
	if !result.IsError {
		t.Fatal("expected IsError result")
	}
}

func TestResourcesReadServesTextResource(t *testing.T) {
	s := NewServer("test-server", "1.0.0")
	if err := s.AddResource(protocol.Resource{
		URI:      "memo://greeting",
		MimeType: "text/plain",
		Kind:     protocol.ResourceText,
		Payload:  "hello",
	}); err != nil {
		t.Fatal(err)
	}

	resp := s.HandleRequest(context.Background(), req(1.0, "resources/read", jsonvalue.Object{"uri": "memo://greeting"}))
	if resp.Error != nil {
		t.Fatalf("unexpected error: %#v", resp.Error)
	}
	result := resp.Result.(jsonvalue.Object)
	contents := result["contents"].([]protocol.ResourceContent)
	if len(contents) != 1 || contents[0].Text != "hello" {
		t.Fatalf("unexpected contents: %#v", contents)
	}
}

func TestResourcesReadUnknownURIIsInvalidParams(t *testing.T) {
	s := NewServer("test-server", "1.0.0")
	resp := s.HandleRequest(context.Background(), req(1.0, "resources/read", jsonvalue.Object{"uri": "memo://missing"}))
	if resp.Error == nil || resp.Error.Code != protocol.InvalidParams {
		t.Fatalf("expected InvalidParams, got %#v", resp.Error)
	}
}

func TestPromptsGetRendersViaMcontext(t *testing.T) {
	s := NewServer("test-server", "1.0.0")
	if err := s.AddPrompt(protocol.Prompt{
		Name: "greet",
		Render: func(ctx context.Context, args jsonvalue.Object) ([]protocol.PromptMessage, error) {
			if _, ok := mcontext.FromContext(ctx); !ok {
				t.Fatal("expected mcontext.Context attached to render's ctx")
			}
			name, _ := args["name"].(string)
			return []protocol.PromptMessage{{Role: "user", Content: protocol.NewTextContent("hi " + name)}}, nil
		},
	}); err != nil {
		t.Fatal(err)
	}

	resp := s.HandleRequest(context.Background(), req(1.0, "prompts/get", jsonvalue.Object{
		"name":      "greet",
		"arguments": jsonvalue.Object{"name": "ada"},
	}))
	if resp.Error != nil {
		t.Fatalf("unexpected error: %#v", resp.Error)
	}
	result := resp.Result.(jsonvalue.Object)
	messages := result["messages"].([]protocol.PromptMessage)
	if len(messages) != 1 || messages[0].Content.Text != "hi ada" {
		t.Fatalf("unexpected messages: %#v", messages)
	}
}

func TestPromptsGetUnknownNameIsInvalidParams(t *testing.T) {
	s := NewServer("test-server", "1.0.0")
	resp := s.HandleRequest(context.Background(), req(1.0, "prompts/get", jsonvalue.Object{"name": "missing"}))
	if resp.Error == nil || resp.Error.Code != protocol.InvalidParams {
		t.Fatalf("expected InvalidParams, got %#v", resp.Error)
	}
}

func TestUnknownMethodIsMethodNotFound(t *testing.T) {
	s := NewServer("test-server", "1.0.0")
	resp := s.HandleRequest(context.Background(), req(1.0, "bogus/method", nil))
	if resp.Error == nil || resp.Error.Code != protocol.MethodNotFound {
		t.Fatalf("expected MethodNotFound, got %#v", resp.Error)
	}
}

func TestNotificationGetsNoResponse(t *testing.T) {
	s := NewServer("test-server", "1.0.0")
	if err := s.AddTool(addTool()); err != nil {
		t.Fatal(err)
	}
	resp := s.HandleRequest(context.Background(), req(nil, "tools/list", nil))
	if resp != nil {
		t.Fatalf("expected nil response for notification, got %#v", resp)
	}
}

func TestPipelineWrapsRequestDispatch(t *testing.T) {
	s := NewServer("test-server", "1.0.0")
	if err := s.AddTool(addTool()); err != nil {
		t.Fatal(err)
	}

	var trace []string
	p := middleware.NewPipeline().Add(&middleware.Middleware{
		Name: "recorder",
		OnMessage: func(ctx *middleware.MiddlewareContext, next middleware.CallNext) (*protocol.JSONRPCResponse, error) {
			trace = append(trace, "before:"+ctx.Method)
			resp, err := next(ctx)
			trace = append(trace, "after:"+ctx.Method)
			return resp, err
		},
	})
	s.SetPipeline(p)

	s.HandleRequest(context.Background(), req(1.0, "tools/list", nil))
	if len(trace) != 2 || trace[0] != "before:tools/list" || trace[1] != "after:tools/list" {
		t.Fatalf("expected pipeline to wrap dispatch, got %v", trace)
	}
}

var errBoom = boomError{}

type boomError struct{}

func (boomError) Error() string { return "boom" }
