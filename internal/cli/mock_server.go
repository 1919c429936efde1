package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/mmcdole/libraryhub/internal/config"
	"github.com/mmcdole/libraryhub/internal/mockapi"
)

const shutdownTimeout = 5 * time.Second

// MockServerOptions holds flags for the mock-server command.
type MockServerOptions struct {
	Addr  string
	Empty bool
}

// NewMockServerCommand creates the mock-server command.
func NewMockServerCommand(opts *RootOptions) *cobra.Command {
	mockOpts := &MockServerOptions{}

	cmd := &cobra.Command{
		Use:   "mock-server",
		Short: "Serve an in-memory library API for development",
		Long: `Run an in-memory implementation of the library REST API.

The catalog is seeded with a few authors, books and users unless --empty
is given. Credentials come from the mock section of the config file.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMockServer(cmd, opts, mockOpts)
		},
	}

	cmd.Flags().StringVar(&mockOpts.Addr, "addr", "", "listen address, overrides mock.addr")
	cmd.Flags().BoolVar(&mockOpts.Empty, "empty", false, "start without demo data")

	return cmd
}

func runMockServer(cmd *cobra.Command, opts *RootOptions, mockOpts *MockServerOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	if mockOpts.Addr != "" {
		cfg.Mock.Addr = mockOpts.Addr
	}

	// The mock runs in the foreground, so it logs to stderr
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: config.ParseLogLevel(cfg.Logging.Level),
	}))
	gin.SetMode(gin.ReleaseMode)

	srv := mockapi.New(mockapi.Config{
		AdminEmail:    cfg.Mock.AdminEmail,
		AdminPassword: cfg.Mock.AdminPassword,
		Token:         cfg.Mock.Token,
	}, logger)
	if !mockOpts.Empty {
		srv.Seed()
	}

	ln, err := net.Listen("tcp", cfg.Mock.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Mock.Addr, err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.OutOrStdout(), "Mock library API on http://%s (login %s / %s)\n",
		ln.Addr(), cfg.Mock.AdminEmail, cfg.Mock.AdminPassword)
	return serve(ctx, ln, srv, logger)
}

// serve runs handler on ln until ctx is done, then shuts down gracefully
func serve(ctx context.Context, ln net.Listener, handler http.Handler, logger *slog.Logger) error {
	httpSrv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.Serve(ln)
	}()
	logger.Info("mock server listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down mock server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}
