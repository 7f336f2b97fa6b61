package sampling

import (
	"context"
	"testing"

	"github.com/0xeb/fastmcpp-sub002/jsonvalue"
	"github.com/0xeb/fastmcpp-sub002/protocol"
)

func TestRunWrapsBareString(t *testing.T) {
	h := NewHelper(func(ctx context.Context, params jsonvalue.Object) (interface{}, error) {
		return "the answer is 42", nil
	})
	result, err := h.Run(context.Background(), jsonvalue.Object{})
	if err != nil {
		t.Fatal(err)
	}
	if result.Role != "assistant" {
		t.Fatalf("expected assistant role, got %q", result.Role)
	}
	if result.Model != defaultModel {
		t.Fatalf("expected model %q, got %q", defaultModel, result.Model)
	}
	if result.Content.Text != "the answer is 42" {
		t.Fatalf("unexpected content: %#v", result.Content)
	}
}

func TestRunPassesThroughShapedResult(t *testing.T) {
	h := NewHelper(func(ctx context.Context, params jsonvalue.Object) (interface{}, error) {
		return &CreateMessageResult{
			Role:       "assistant",
			Content:    protocol.NewTextContent("shaped"),
			Model:      "claude-3",
			StopReason: "endTurn",
		}, nil
	})
	result, err := h.Run(context.Background(), jsonvalue.Object{})
	if err != nil {
		t.Fatal(err)
	}
	if result.Model != "claude-3" || result.StopReason != "endTurn" || result.Content.Text != "shaped" {
		t.Fatalf("expected pre-shaped result to pass through unchanged, got %#v", result)
	}
}

func TestRunRejectsUnsupportedType(t *testing.T) {
	h := NewHelper(func(ctx context.Context, params jsonvalue.Object) (interface{}, error) {
		return 42, nil
	})
	if _, err := h.Run(context.Background(), jsonvalue.Object{}); err == nil {
		t.Fatal("expected error for unsupported callback return type")
	}
}

func TestRunNoCallbackErrors(t *testing.T) {
	h := NewHelper(nil)
	if _, err := h.Run(context.Background(), jsonvalue.Object{}); err == nil {
		t.Fatal("expected error when no callback installed")
	}
}
