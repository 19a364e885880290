// Package mcp exposes the task tools over the Model Context Protocol so
// external agents (IDE assistants, desktop clients) can manage the same
// task list the chat orchestrator does.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
)

// ToolExecutor dispatches a named tool for a user. *tools.Registry
// satisfies it; every MCP invocation runs under the configured service
// identity, never an identity taken from tool arguments.
type ToolExecutor interface {
	Execute(ctx context.Context, userID, name string, args json.RawMessage) map[string]any
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	Addr    string
	Name    string
	Version string
	APIKey  string // empty disables auth on the MCP endpoint
	UserID  string // service identity all tool executions are bound to
}

// ServerDeps holds the collaborators the MCP handlers call into.
type ServerDeps struct {
	Tools ToolExecutor
}

// Server wraps an mcp-go server behind a streamable HTTP listener.
type Server struct {
	cfg       ServerConfig
	deps      ServerDeps
	mcpServer *mcpserver.MCPServer
	httpSrv   *http.Server
}

// NewServer builds the MCP server and registers the task tools and the
// task list resource.
func NewServer(cfg ServerConfig, deps ServerDeps) *Server {
	s := &Server{
		cfg:  cfg,
		deps: deps,
		mcpServer: mcpserver.NewMCPServer(cfg.Name, cfg.Version,
			mcpserver.WithToolCapabilities(false),
			mcpserver.WithResourceCapabilities(false, false),
		),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer exposes the underlying mcp-go server, mainly for tests.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

// Start serves MCP over streamable HTTP in the background.
func (s *Server) Start() error {
	streamable := mcpserver.NewStreamableHTTPServer(s.mcpServer)

	mux := http.NewServeMux()
	mux.Handle("/mcp", AuthMiddleware(s.cfg.APIKey, streamable))

	s.httpSrv = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("mcp server failed", "error", err)
		}
	}()

	slog.Info("mcp server listening", "addr", s.cfg.Addr, "auth", s.cfg.APIKey != "")
	return nil
}

// Stop gracefully shuts down the MCP HTTP listener.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}
