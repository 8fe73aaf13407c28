package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cartopack/cartopack/internal/api"
)

// shutdownTimeout bounds how long in-flight requests may run after the
// serve command is interrupted.
const shutdownTimeout = 10 * time.Second

// serveCommand creates the serve command for the layout HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the layout HTTP API",
		Long: `Run the layout HTTP API.

The server accepts layout requests with inline records, executes the same
pipeline as the CLI commands, and keeps finished runs for later retrieval.
Configure a mongo URI under [server] to persist runs across restarts;
without one, runs live in process memory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), addr, noCache)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default "+api.DefaultAddr+")")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable pipeline caching")
	return cmd
}

// runServe starts the API server and blocks until interrupted.
func (c *CLI) runServe(ctx context.Context, addr string, noCache bool) error {
	if addr == "" {
		addr = c.Config.Server.Addr
	}

	st, err := c.newStore(ctx)
	if err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}
	defer st.Close()

	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	srv := api.NewServer(api.Config{
		Addr:   addr,
		Store:  st,
		Runner: runner,
		Logger: c.Logger,
	})

	storeKind := "memory"
	if c.Config.Server.Mongo != "" {
		storeKind = "mongodb"
	}
	cacheKind := "file"
	switch {
	case noCache:
		cacheKind = "disabled"
	case c.Config.Cache.Redis != "":
		cacheKind = "redis"
	}

	printInfo("Serving layout API on %s", StyleHighlight.Render(srv.Addr()))
	printKeyValue("Store", storeKind)
	printKeyValue("Cache", cacheKind)
	printNewline()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}
	c.Logger.Info("server stopped")
	return ctx.Err()
}
