package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KaramelBytes/corrloom-cli/internal/analysis"
	cfgpkg "github.com/KaramelBytes/corrloom-cli/internal/config"
	"github.com/KaramelBytes/corrloom-cli/internal/server"
)

var (
	serveAddr    string
	serveTimeout time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the correlation engine over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := cfg
		if c == nil {
			c = cfgpkg.Defaults()
		}
		co, err := parseCoercion(c.Decimal, c.Thousands)
		if err != nil {
			return err
		}
		addr := c.ServerAddr
		if cmd.Flags().Changed("addr") {
			addr = serveAddr
		}
		srv := server.New(server.Options{
			Base: analysis.Config{
				Threshold: c.Threshold,
				Coercion:  co,
				Workers:   c.Workers,
				Limits:    analysis.Limits{MaxRows: c.MaxRows, MaxColumns: c.MaxColumns, MaxCells: c.MaxCells},
			},
			MaxBodyBytes: int64(c.ServerMaxBodyMB) << 20,
			Logger:       logger,
			Timeout:      serveTimeout,
		})

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start(addr) }()
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Listening on %s\n", addr)

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
		}
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		logger.Info("server stopped", zap.String("addr", addr))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address (overrides server_addr)")
	serveCmd.Flags().DurationVar(&serveTimeout, "timeout", 60*time.Second, "per-request timeout")
}
