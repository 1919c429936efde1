// Package cli implements the libraryhub command line.
package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mmcdole/libraryhub/internal/api"
	"github.com/mmcdole/libraryhub/internal/config"
	"github.com/mmcdole/libraryhub/internal/session"
)

// Version is set at build time via -ldflags
var Version = "dev"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigFile string
	Server     string
}

// NewRootCommand creates the root command. Without a subcommand it runs the
// console.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := newConsoleCommand(opts)

	// Global flags
	cmd.PersistentFlags().StringVarP(&opts.ConfigFile, "config", "c", "", "config file (default $HOME/.config/libraryhub/config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.Server, "server", "", "library service URL, overrides server.url")

	// Add subcommands
	cmd.AddCommand(NewLoginCommand(opts))
	cmd.AddCommand(NewLogoutCommand(opts))
	cmd.AddCommand(NewMockServerCommand(opts))
	cmd.AddCommand(NewVersionCommand())

	return cmd
}

// env is the wiring every command that talks to the service shares
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	tokens *session.Store
	client *api.Client

	closers []io.Closer
}

// loadConfig reads the config file and applies flag overrides
func loadConfig(opts *RootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if opts.Server != "" {
		cfg.Server.URL = opts.Server
	}
	return cfg, nil
}

// setup loads configuration, opens the log file and session store and
// creates the REST client. Call close when done.
func setup(opts *RootOptions) (*env, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	e := &env{cfg: cfg}

	logger, logFile, err := config.SetupLogger(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = config.NullLogger()
	} else {
		e.closers = append(e.closers, logFile)
	}
	slog.SetDefault(logger)
	e.logger = logger

	tokens, err := session.Open(cfg.Session.Path)
	if err != nil {
		e.close()
		return nil, err
	}
	e.closers = append(e.closers, tokens)
	e.tokens = tokens

	e.client = api.New(cfg.Server, tokens, logger)
	return e, nil
}

func (e *env) close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i].Close(); err != nil && e.logger != nil {
			e.logger.Warn("close failed", "error", err)
		}
	}
	e.closers = nil
}
