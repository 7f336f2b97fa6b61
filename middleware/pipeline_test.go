package middleware

import (
	"errors"
	"reflect"
	"testing"

	"github.com/0xeb/fastmcpp-sub002/protocol"
)

func recordingMiddleware(name int, trace *[]int) *Middleware {
	return &Middleware{
		Name: "recorder",
		OnMessage: func(ctx *MiddlewareContext, next CallNext) (*protocol.JSONRPCResponse, error) {
			*trace = append(*trace, name)
			resp, err := next(ctx)
			*trace = append(*trace, -name)
			return resp, err
		},
	}
}

func TestPipelineOnionOrder(t *testing.T) {
	var trace []int
	p := NewPipeline().Add(
		recordingMiddleware(1, &trace),
		recordingMiddleware(2, &trace),
		recordingMiddleware(3, &trace),
	)

	req := &protocol.JSONRPCRequest{JSONRPC: "2.0", ID: "1", Method: "tools/list"}
	ctx := NewContext(nil, req)

	_, err := p.Execute(ctx, func(ctx *MiddlewareContext) (*protocol.JSONRPCResponse, error) {
		trace = append(trace, 0)
		return &protocol.JSONRPCResponse{JSONRPC: "2.0", ID: "1"}, nil
	})
	if err != nil {
		t.Fatal(err)
	}

	want := []int{1, 2, 3, 0, -3, -2, -1}
	if !reflect.DeepEqual(trace, want) {
		t.Fatalf("expected %v, got %v", want, trace)
	}
}

func TestErrorHandlingTranslatesException(t *testing.T) {
	eh := NewErrorHandling(nil)
	p := NewPipeline().Add(eh.Middleware())

	req := &protocol.JSONRPCRequest{JSONRPC: "2.0", ID: "7", Method: "tools/call"}
	ctx := NewContext(nil, req)

	resp, err := p.Execute(ctx, func(ctx *MiddlewareContext) (*protocol.JSONRPCResponse, error) {
		return nil, errors.New("boom")
	})
	if err != nil {
		t.Fatalf("expected the exception to be translated, not propagated: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != protocol.InternalError {
		t.Fatalf("expected -32603, got %#v", resp.Error)
	}
	if got := eh.FailureCount("tools/call"); got != 1 {
		t.Fatalf("expected failure count 1, got %d", got)
	}
}

func TestErrorHandlingAbsentLetsExceptionEscape(t *testing.T) {
	p := NewPipeline()
	req := &protocol.JSONRPCRequest{JSONRPC: "2.0", ID: "7", Method: "tools/call"}
	ctx := NewContext(nil, req)

	_, err := p.Execute(ctx, func(ctx *MiddlewareContext) (*protocol.JSONRPCResponse, error) {
		return nil, errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected the exception to propagate with no ErrorHandling installed")
	}
}

func TestCachingHitsBypassNext(t *testing.T) {
	c := NewCaching(CachingConfig{})
	p := NewPipeline().Add(c.Middleware())

	calls := 0
	terminal := func(ctx *MiddlewareContext) (*protocol.JSONRPCResponse, error) {
		calls++
		return &protocol.JSONRPCResponse{JSONRPC: "2.0", ID: ctx.Message.ID, Result: "ok"}, nil
	}

	req := &protocol.JSONRPCRequest{JSONRPC: "2.0", ID: "1", Method: "tools/list", Params: map[string]interface{}{}}
	for i := 0; i < 2; i++ {
		ctx := NewContext(nil, req)
		if _, err := p.Execute(ctx, terminal); err != nil {
			t.Fatal(err)
		}
	}

	if calls != 1 {
		t.Fatalf("expected terminal called once, got %d", calls)
	}
	hits, misses := c.Stats()
	if hits != 1 || misses != 1 {
		t.Fatalf("expected 1 hit and 1 miss, got hits=%d misses=%d", hits, misses)
	}
}

func TestRateLimitingExceededAfterBurst(t *testing.T) {
	r := NewRateLimiting(RateLimitConfig{TokensPerSecond: 0, MaxTokens: 3})
	p := NewPipeline().Add(r.Middleware())

	terminal := func(ctx *MiddlewareContext) (*protocol.JSONRPCResponse, error) {
		return &protocol.JSONRPCResponse{JSONRPC: "2.0"}, nil
	}
	req := &protocol.JSONRPCRequest{JSONRPC: "2.0", Method: "tools/call"}

	for i := 0; i < 3; i++ {
		ctx := NewContext(nil, req)
		if _, err := p.Execute(ctx, terminal); err != nil {
			t.Fatalf("call %d: expected success, got %v", i+1, err)
		}
	}

	ctx := NewContext(nil, req)
	_, err := p.Execute(ctx, terminal)
	if err == nil {
		t.Fatal("expected the 4th call to raise RateLimitExceeded")
	}
}
