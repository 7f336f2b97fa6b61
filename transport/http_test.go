package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/0xeb/fastmcpp-sub002/protocol"
)

func TestHTTPTransportHandleRequestDispatchesToHandler(t *testing.T) {
	tr := NewHTTPTransport(&HTTPConfig{})
	tr.handler = echoHandler{}

	body, _ := json.Marshal(&protocol.JSONRPCRequest{JSONRPC: "2.0", ID: 1.0, Method: "tools/list"})
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	tr.handleRequest(rec, req)

	var resp protocol.JSONRPCResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if resp.Error != nil {
		t.Fatalf("unexpected error: %#v", resp.Error)
	}
	if resp.Result != "tools/list" {
		t.Fatalf("unexpected result: %#v", resp.Result)
	}
}

func TestHTTPTransportRejectsNonPost(t *testing.T) {
	tr := NewHTTPTransport(&HTTPConfig{})
	tr.handler = echoHandler{}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	tr.handleRequest(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestHTTPTransportMalformedBodyYieldsParseError(t *testing.T) {
	tr := NewHTTPTransport(&HTTPConfig{})
	tr.handler = echoHandler{}

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("not json")))
	rec := httptest.NewRecorder()

	tr.handleRequest(rec, req)

	var resp protocol.JSONRPCResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != protocol.ParseError {
		t.Fatalf("expected ParseError, got %#v", resp.Error)
	}
}

func TestHTTPTransportRecoveryMiddlewareCatchesPanic(t *testing.T) {
	tr := NewHTTPTransport(&HTTPConfig{})

	panicking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})
	handler := tr.wrapWithMiddleware(panicking)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var resp protocol.JSONRPCResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != protocol.InternalError {
		t.Fatalf("expected InternalError, got %#v", resp.Error)
	}
}

func TestHTTPTransportSuppressesNotificationResponse(t *testing.T) {
	tr := NewHTTPTransport(&HTTPConfig{})
	tr.handler = echoHandler{}

	body, _ := json.Marshal(&protocol.JSONRPCRequest{JSONRPC: "2.0", Method: "notifications/initialized"})
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	tr.handleRequest(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("expected empty body for notification, got %q", rec.Body.String())
	}
}

func TestHTTPTransportStartStopTogglesIsRunning(t *testing.T) {
	tr := NewHTTPTransport(&HTTPConfig{Address: "127.0.0.1:0"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := tr.Start(ctx, echoHandler{}); err != nil {
		t.Fatalf("unexpected error starting: %v", err)
	}
	if !tr.IsRunning() {
		t.Fatal("expected transport to report running after Start")
	}

	if err := tr.Stop(); err != nil {
		t.Fatalf("unexpected error stopping: %v", err)
	}
	if tr.IsRunning() {
		t.Fatal("expected transport to report stopped after Stop")
	}
}
