package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/fundlink/internal/logger"
)

// Name is the implementation name announced to clients.
const Name = "fundlink"

// instructions tell the client what the tools are for.
const instructions = `Answers factual questions about Indian mutual fund schemes ` +
	`(expense ratio, exit load, SIP amounts, riskometer, benchmark) from an indexed ` +
	`corpus of official AMC pages. Use query_funds to search; each result carries a ` +
	`citation whose primary link should be shown to the user. Use resolve_link to ` +
	`map free text to a platform page without searching.`

const shutdownTimeout = 5 * time.Second

// Server is the MCP server over the fund index.
type Server struct {
	ports   *Ports
	version string
	server  *mcp.Server
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithVersion sets the version announced to clients.
func WithVersion(v string) ServerOption {
	return func(s *Server) {
		if v != "" {
			s.version = v
		}
	}
}

// NewServer registers the fund tools and resources over ports.
func NewServer(ports *Ports, opts ...ServerOption) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}

	s := &Server{ports: ports, version: "dev"}
	for _, opt := range opts {
		opt(s)
	}

	s.server = mcp.NewServer(
		&mcp.Implementation{Name: Name, Version: s.version},
		&mcp.ServerOptions{Instructions: instructions},
	)
	s.registerTools()
	s.registerResources()

	return s, nil
}

// Run serves over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	logger.Debug("mcp: serving %s %s on stdio", Name, s.version)
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Handler returns the streamable HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)
}

// RunHTTP serves streamable HTTP on addr until ctx is cancelled.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("mcp: shutdown: %v", err)
		}
	}()

	logger.Info("mcp: listening on %s", addr)
	if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
