package middleware

import (
	"testing"

	"github.com/0xeb/fastmcpp-sub002/protocol"
)

func TestTimingAccumulatesPerMethod(t *testing.T) {
	timing := NewTiming()
	p := NewPipeline().Add(timing.Middleware())

	terminal := func(ctx *MiddlewareContext) (*protocol.JSONRPCResponse, error) {
		return &protocol.JSONRPCResponse{}, nil
	}

	for i := 0; i < 3; i++ {
		ctx := NewContext(nil, &protocol.JSONRPCRequest{Method: "tools/list"})
		if _, err := p.Execute(ctx, terminal); err != nil {
			t.Fatal(err)
		}
	}

	stats, ok := timing.GetStats("tools/list")
	if !ok {
		t.Fatal("expected stats to be recorded")
	}
	if stats.RequestCount != 3 {
		t.Fatalf("expected count 3, got %d", stats.RequestCount)
	}
}

func TestTimingUnknownMethodNotFound(t *testing.T) {
	timing := NewTiming()
	if _, ok := timing.GetStats("never/called"); ok {
		t.Fatal("expected no stats for an unexercised method")
	}
}
