// exampleserver is a minimal MCP server binary demonstrating the core
// module wired end to end: a couple of tools, a resource, a prompt, and a
// configurable transport (stdio or HTTP) with the standard middleware
// pipeline installed.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/0xeb/fastmcpp-sub002/health"
	"github.com/0xeb/fastmcpp-sub002/jsonvalue"
	"github.com/0xeb/fastmcpp-sub002/metrics"
	"github.com/0xeb/fastmcpp-sub002/middleware"
	"github.com/0xeb/fastmcpp-sub002/protocol"
	"github.com/0xeb/fastmcpp-sub002/server"
	"github.com/0xeb/fastmcpp-sub002/tracing"
	"github.com/0xeb/fastmcpp-sub002/transport"
)

func main() {
	mode := flag.String("mode", "stdio", "transport mode: stdio or http")
	addr := flag.String("addr", ":8080", "HTTP listen address (mode=http)")
	traceEndpoint := flag.String("trace-endpoint", "", "OTLP gRPC collector endpoint; tracing is disabled if empty")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	s := server.NewServer("exampleserver", "0.1.0")
	s.SetLogger(logger)
	registerTools(s)
	registerResources(s)
	registerPrompts(s)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var tracer *tracing.Tracer
	if *traceEndpoint != "" {
		t, shutdown, err := tracing.NewTracer(ctx, tracing.Config{
			ServiceName:    "exampleserver",
			ServiceVersion: "0.1.0",
			Endpoint:       *traceEndpoint,
			Insecure:       true,
		})
		if err != nil {
			logger.Error("tracing init failed", "error", err)
			os.Exit(1)
		}
		defer shutdown(context.Background())
		tracer = t
	}

	var m *metrics.Metrics
	switch *mode {
	case "stdio":
		s.SetTransport(transport.NewStdioTransport())
	case "http":
		checker := health.NewHealthChecker(5 * time.Second)
		m = metrics.NewMetrics("exampleserver", "mcp")
		metrics.NewMiddleware(m).StartUptimeCounter(ctx)
		s.SetTransport(transport.NewHTTPTransport(&transport.HTTPConfig{
			Address: *addr,
			Path:    "/mcp",
			Health:  checker,
			Metrics: m,
			Logger:  logger,
		}))
	default:
		logger.Error("unknown transport mode", "mode", *mode)
		os.Exit(1)
	}
	s.SetPipeline(buildPipeline(logger, m, tracer))

	if err := s.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

// buildPipeline installs the standard set of built-in middleware, outermost
// first: logging, then timing, caching, rate limiting, tracing (when tracer
// is non-nil), metrics (when m is non-nil), and error translation innermost,
// closest to the terminal dispatch.
func buildPipeline(logger *slog.Logger, m *metrics.Metrics, tracer *tracing.Tracer) *middleware.Pipeline {
	p := middleware.NewPipeline().Add(
		middleware.NewLogging(middleware.LoggingConfig{Logger: logger}),
		middleware.NewTiming().Middleware(),
		middleware.NewCaching(middleware.CachingConfig{MaxEntries: 256}).Middleware(),
		middleware.NewRateLimiting(middleware.DefaultRateLimitConfig()).Middleware(),
	)
	if tracer != nil {
		p = p.Add(middleware.NewTracing(tracer))
	}
	if m != nil {
		p = p.Add(middleware.NewMetrics(metrics.NewMiddleware(m)))
	}
	return p.Add(middleware.NewErrorHandling(nil).Middleware())
}

func registerTools(s *server.Server) {
	echo := protocol.Tool{
		Name:        "echo",
		Description: "returns the message argument unchanged",
		InputSchema: jsonvalue.Object{
			"type":       "object",
			"properties": jsonvalue.Object{"message": jsonvalue.Object{"type": "string"}},
			"required":   []interface{}{"message"},
		},
		Fn: func(ctx context.Context, args jsonvalue.Object) (interface{}, error) {
			message, _ := args["message"].(string)
			return message, nil
		},
	}
	if err := s.AddTool(echo); err != nil {
		panic(err)
	}

	add := protocol.Tool{
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
	if err := s.AddTool(add); err != nil {
		panic(err)
	}
}

func registerResources(s *server.Server) {
	readme := protocol.Resource{
		URI:      "memo://readme",
		Name:     "readme",
		MimeType: "text/plain",
		Kind:     protocol.ResourceText,
		Payload:  "This is an example MCP resource.",
	}
	if err := s.AddResource(readme); err != nil {
		panic(err)
	}
}

func registerPrompts(s *server.Server) {
	greeting := protocol.Prompt{
		Name:        "greeting",
		Description: "greets the named user",
		Arguments:   []protocol.PromptArgument{{Name: "name", Required: true}},
		Render: func(ctx context.Context, args jsonvalue.Object) ([]protocol.PromptMessage, error) {
			name, _ := args["name"].(string)
			return []protocol.PromptMessage{
				{Role: "user", Content: protocol.NewTextContent("Say hello to " + name)},
			}, nil
		},
	}
	if err := s.AddPrompt(greeting); err != nil {
		panic(err)
	}
}
