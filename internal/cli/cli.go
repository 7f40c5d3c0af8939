// Package cli implements the pagecraft command-line interface.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"pagecraft/internal/config"
	"pagecraft/internal/observability"
	"pagecraft/internal/service"
	"pagecraft/internal/storage"
)

const appName = "pagecraft"

var (
	version = "dev"
	commit  = ""
	date    = ""
)

// SetVersion sets the build information shown by --version and the version
// command. main calls it with values injected through ldflags.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// CLI holds state shared by all commands. Config and Logger are set by the
// root command's PersistentPreRunE.
type CLI struct {
	cfgFile string
	verbose bool

	Config *config.Config
	Logger *zap.Logger
}

func New() *CLI {
	return &CLI{Logger: zap.NewNop()}
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "pagecraft turns boxes on a canvas into a responsive static page",
		Long: `pagecraft is a page-builder engine: an element tree with constraints,
snapping and undo, a layout analyzer that infers semantic roles, and an
exporter that writes HTML, CSS and JS as a reproducible ZIP archive.`,
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
	}
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	root.PersistentFlags().StringVarP(&c.cfgFile, "config", "c", "", "config file (default is ./pagecraft.yaml)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(c.exportCommand())
	root.AddCommand(c.analyzeCommand())
	root.AddCommand(c.validateCommand())
	root.AddCommand(c.mcpCommand())
	root.AddCommand(c.watchCommand())
	root.AddCommand(c.versionCommand())
	return root
}

// setup loads configuration and builds the logger. Logs always go to
// stderr: stdout carries command output and the MCP stdio transport.
func (c *CLI) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(c.cfgFile)
	if err != nil {
		return err
	}
	if c.verbose {
		cfg.Logger.Level = "debug"
	}
	c.Config = cfg
	c.Logger = observability.New(cfg.Logger, zapcore.AddSync(cmd.ErrOrStderr()))
	c.Logger.Debug("configuration loaded", zap.String("storage", cfg.Storage.Path))
	return nil
}

// Execute runs the CLI until ctx is cancelled or the command returns.
func Execute(ctx context.Context) error {
	c := New()
	defer func() { observability.Sync(c.Logger) }()
	return c.RootCommand().ExecuteContext(ctx)
}

// ── Shared helpers ─────────────────────────────────────────

// loadFile reads a project document into a fresh session.
func (c *CLI) loadFile(path string, opts ...service.Option) (*service.Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read project: %w", err)
	}
	s := c.newSession(opts...)
	if err := s.LoadJSON(data); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return s, nil
}

func (c *CLI) newSession(opts ...service.Option) *service.Session {
	base := []service.Option{
		service.WithLogger(c.Logger),
		service.WithEmitter(service.NewLogEmitter(c.Logger)),
	}
	return service.NewSession(c.Config, append(base, opts...)...)
}

// openStorage opens the project database named by storage.path.
func (c *CLI) openStorage() (*storage.DB, error) {
	db, err := storage.New(c.Config.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("open project database: %w", err)
	}
	c.Logger.Debug("project database opened", zap.String("path", db.Path()))
	return db, nil
}
