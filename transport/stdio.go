package transport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/0xeb/fastmcpp-sub002/protocol"
)

// bufferPool reuses the byte buffers sendResponse encodes into, avoiding an
// allocation per response on a busy stdio connection.
var bufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 4096))
	},
}

// StdioTransport frames one JSON-RPC object per line over an io.Reader/io.Writer pair.
type StdioTransport struct {
	input   io.Reader
	output  io.Writer
	scanner *bufio.Scanner
	mutex   sync.Mutex
	running bool
}

// NewStdioTransport creates a transport over os.Stdin/os.Stdout.
func NewStdioTransport() *StdioTransport {
	return NewStdioTransportWithIO(os.Stdin, os.Stdout)
}

// NewStdioTransportWithIO creates a transport over the given streams.
func NewStdioTransportWithIO(input io.Reader, output io.Writer) *StdioTransport {
	scanner := bufio.NewScanner(input)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	return &StdioTransport{
		input:   input,
		output:  output,
		scanner: scanner,
	}
}

// Start scans input line by line, parses each as a JSON-RPC request, and
// hands it to handler, writing back the response. A parse failure yields a
// -32700 Parse error response. Stops on ctx cancellation or EOF.
func (t *StdioTransport) Start(ctx context.Context, handler RequestHandler) error {
	t.mutex.Lock()
	if t.running {
		t.mutex.Unlock()
		return fmt.Errorf("transport already running")
	}
	t.running = true
	t.mutex.Unlock()

	defer func() {
		t.mutex.Lock()
		t.running = false
		t.mutex.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if !t.scanner.Scan() {
				if err := t.scanner.Err(); err != nil {
					return fmt.Errorf("scanning input: %w", err)
				}
				return nil
			}

			line := t.scanner.Bytes()
			if len(line) == 0 {
				continue
			}

			var req protocol.JSONRPCRequest
			if err := json.Unmarshal(line, &req); err != nil {
				errResp := &protocol.JSONRPCResponse{
					JSONRPC: "2.0",
					Error:   protocol.NewJSONRPCError(protocol.ParseError, "Parse error", err.Error()),
				}
				if err := t.sendResponse(errResp); err != nil {
					return fmt.Errorf("failed to send error response: %w", err)
				}
				continue
			}

			resp := handler.HandleRequest(ctx, &req)
			if resp != nil {
				if err := t.sendResponse(resp); err != nil {
					return fmt.Errorf("sending response: %w", err)
				}
			}
		}
	}
}

// Stop marks the transport as no longer running. Start's scan loop does not
// read that flag: it keeps running until the context passed to Start is
// cancelled or the input is exhausted.
func (t *StdioTransport) Stop() error {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.running = false
	return nil
}

// sendResponse encodes resp as one line of JSON, serializing writes with
// mutex so concurrent handler goroutines never interleave output.
func (t *StdioTransport) sendResponse(resp *protocol.JSONRPCResponse) error {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	if err := json.NewEncoder(buf).Encode(resp); err != nil {
		return fmt.Errorf("encoding response: %w", err)
	}

	t.mutex.Lock()
	defer t.mutex.Unlock()
	_, err := t.output.Write(buf.Bytes())
	return err
}

// IsRunning reports whether Start's loop is currently active.
func (t *StdioTransport) IsRunning() bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.running
}
