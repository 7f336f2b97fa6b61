package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/0xeb/fastmcpp-sub002/protocol"
)

// echoHandler mirrors server.Server's notification-suppression contract:
// it echoes the method back as the result, but returns nil for a
// notification (a request with no id), exactly as HandleRequest must.
type echoHandler struct{}

func (echoHandler) HandleRequest(ctx context.Context, req *protocol.JSONRPCRequest) *protocol.JSONRPCResponse {
	if req.IsNotification() {
		return nil
	}
	return &protocol.JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: req.Method}
}

func TestStdioTransportEchoesOneResponsePerLine(t *testing.T) {
	input := strings.NewReader(
		`{"jsonrpc":"2.0","id":1,"method":"tools/list"}` + "\n" +
			`{"jsonrpc":"2.0","id":2,"method":"resources/list"}` + "\n",
	)
	var output bytes.Buffer
	tr := NewStdioTransportWithIO(input, &output)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := tr.Start(ctx, echoHandler{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(output.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 response lines, got %d: %q", len(lines), output.String())
	}
	for i, line := range lines {
		var resp protocol.JSONRPCResponse
		if err := json.Unmarshal([]byte(line), &resp); err != nil {
			t.Fatalf("line %d: invalid JSON: %v", i, err)
		}
		if resp.Error != nil {
			t.Fatalf("line %d: unexpected error: %#v", i, resp.Error)
		}
	}
}

func TestStdioTransportMalformedLineYieldsParseError(t *testing.T) {
	input := strings.NewReader("not json\n")
	var output bytes.Buffer
	tr := NewStdioTransportWithIO(input, &output)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := tr.Start(ctx, echoHandler{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var resp protocol.JSONRPCResponse
	if err := json.Unmarshal(bytes.TrimSpace(output.Bytes()), &resp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != protocol.ParseError {
		t.Fatalf("expected ParseError, got %#v", resp.Error)
	}
}

func TestStdioTransportRejectsConcurrentStart(t *testing.T) {
	blockingInput := blockingReader{}
	tr := NewStdioTransportWithIO(blockingInput, &bytes.Buffer{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	started := make(chan struct{})
	go func() {
		tr.running = true
		close(started)
	}()
	<-started

	if err := tr.Start(ctx, echoHandler{}); err == nil {
		t.Fatal("expected error starting an already-running transport")
	}
}

// blockingReader never returns, simulating a stdin with no data available.
type blockingReader struct{}

func (blockingReader) Read(p []byte) (int, error) {
	select {}
}
