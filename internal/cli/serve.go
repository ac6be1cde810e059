package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/shelfmap/shelfmap/internal/server"
	"github.com/shelfmap/shelfmap/pkg/store"
)

// serveCommand creates the serve command running the REST API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr       string
		uploadsDir string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the inventory API server",
		Long: `Run the inventory API server.

The server exposes the REST API the web frontend talks to: locations,
regions, items, search, LED positioning, and image uploads. Any configured
store backend works; use the remote backend on satellite machines to point
their editors at this server.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if uploadsDir != "" {
				cfg.Server.UploadsDir = uploadsDir
			}
			return c.runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address (default from config, \":8080\")")
	cmd.Flags().StringVar(&uploadsDir, "uploads", "", "directory for uploaded images")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, cfg Config) error {
	store.SetHooks(logHooks{logger: c.Logger})

	st, err := c.openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	srv, err := server.New(server.Options{
		Store:      st,
		UploadsDir: cfg.Server.UploadsDir,
		Logger:     c.Logger,
	})
	if err != nil {
		return fmt.Errorf("initialize server: %w", err)
	}

	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		c.Logger.Info("serving inventory API", "addr", cfg.Server.Addr, "uploads", cfg.Server.UploadsDir)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	c.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// logHooks reports store operations through the CLI logger. Failures are
// warnings; everything else only shows up with --verbose.
type logHooks struct {
	logger *log.Logger
}

func (h logHooks) OnStoreOp(_ context.Context, backend, op string, duration time.Duration, err error) {
	if err != nil {
		h.logger.Warn("store op failed", "backend", backend, "op", op, "duration", duration, "error", err)
		return
	}
	h.logger.Debug("store op", "backend", backend, "op", op, "duration", duration)
}
