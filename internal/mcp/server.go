package mcp

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/codescribe/internal/pipeline"
	"github.com/dshills/codescribe/internal/searcher"
	"github.com/dshills/codescribe/internal/service"
)

const (
	// ServerName is the MCP server name
	ServerName = "codescribe"
	// ServerVersion is the server version reported when none is supplied
	ServerVersion = "1.0.0"
	// DefaultOutputDir is where generate_docs writes when no output_dir is given, relative to the project
	DefaultOutputDir = "docs"
)

// Backend is the work the tools delegate to
type Backend interface {
	Generate(ctx context.Context, req service.GenerateRequest) (*service.GenerateResult, error)
	Search(ctx context.Context, req searcher.Request) (*searcher.Response, error)
	Status(ctx context.Context, recent int) (*service.Status, error)
	IndexReports(ctx context.Context, dir string) (*service.IngestResult, error)
}

// Options configure a Server
type Options struct {
	Version   string
	OutputDir string   // Relative paths resolve against the documented project
	Suffixes  []string // File suffixes a project must contain at least one of
	Logger    *slog.Logger
}

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp     *server.MCPServer
	backend Backend
	opts    Options
	logger  *slog.Logger
}

// NewServer creates a new MCP server instance
func NewServer(backend Backend, opts Options) (*Server, error) {
	if backend == nil {
		return nil, errors.New("backend is required")
	}
	if opts.Version == "" {
		opts.Version = ServerVersion
	}
	if opts.OutputDir == "" {
		opts.OutputDir = DefaultOutputDir
	}
	if len(opts.Suffixes) == 0 {
		opts.Suffixes = pipeline.DefaultSuffixes
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Server{
		mcp:     server.NewMCPServer(ServerName, opts.Version, server.WithToolCapabilities(false)),
		backend: backend,
		opts:    opts,
		logger:  opts.Logger,
	}
	s.registerTools()

	return s, nil
}

// Serve speaks MCP over in and out until ctx is cancelled or in is closed
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))

	s.logger.Info("mcp server listening", "name", ServerName, "version", s.opts.Version)
	err := stdio.Listen(ctx, in, out)
	if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func (s *Server) registerTools() {
	s.mcp.AddTool(generateDocsTool(), s.handleGenerateDocs)
	s.mcp.AddTool(searchReportsTool(), s.handleSearchReports)
	s.mcp.AddTool(indexStatusTool(), s.handleIndexStatus)
	s.mcp.AddTool(indexReportsTool(), s.handleIndexReports)
}
