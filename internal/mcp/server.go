package mcpserver

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"pagecraft/internal/config"
	"pagecraft/internal/service"
)

// Server is the MCP server for pagecraft.
// It exposes tools, resources, and prompts so AI agents can build pages.
type Server struct {
	mcp     *server.MCPServer
	session *service.Session
	layout  *LayoutEngine
	cfg     *config.Config
	log     *zap.Logger
}

// Deps holds what the CLI layer hands to the MCP server.
type Deps struct {
	Session *service.Session
	Config  *config.Config
	Logger  *zap.Logger
	Version string
}

// New creates and configures a new MCP server with all tools and resources.
func New(deps Deps) *Server {
	cfg := deps.Config
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	sess := deps.Session
	if sess == nil {
		sess = service.NewSession(cfg, service.WithLogger(log))
	}
	version := deps.Version
	if version == "" {
		version = "dev"
	}

	s := &Server{
		session: sess,
		layout:  NewLayoutEngine(cfg.Editor.GridSize),
		cfg:     cfg,
		log:     log.Named("mcp"),
	}

	s.mcp = server.NewMCPServer(
		"pagecraft-mcp",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	)

	s.registerElementTools()
	s.registerViewTools()
	s.registerHistoryTools()
	s.registerPageTools()
	s.registerProjectTools()
	s.registerResources()
	s.registerPrompts()

	return s
}

// Session returns the editing session the tools act on.
func (s *Server) Session() *service.Session { return s.session }

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	s.log.Info("starting stdio server")
	return server.ServeStdio(s.mcp)
}

// ── Helpers ────────────────────────────────────────────────

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

// outputPath resolves a tool-supplied archive path against export.output_dir.
func (s *Server) outputPath(path string) string {
	if path == "" {
		name := s.session.Name()
		if name == "" {
			name = "page"
		}
		return filepath.Join(s.cfg.Export.OutputDir, slug(name)+".zip")
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(s.cfg.Export.OutputDir, path)
}
