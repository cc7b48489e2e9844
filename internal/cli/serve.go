package cli

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

	"github.com/slkreddy/SafeLayer/internal/logger"
	"github.com/slkreddy/SafeLayer/internal/server"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(g *globalFlags) *cobra.Command {
	var (
		listen     string
		guardNames []string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the guard chain over HTTP and WebSocket",
		Long: `Start the SafeLayer API.

Endpoints:
  GET  /api/v1/health        health check
  POST /api/v1/process       run {"text": "..."} through the guards
  GET  /api/v1/guards        default guard chain
  GET  /api/v1/audit/verify  verify the audit hash chain
  GET  /apidocs.json         OpenAPI document
  GET  /ws                   one run per WebSocket frame`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.config(listen)
			if err != nil {
				return err
			}
			log := newLogger(cfg, cmd.ErrOrStderr())

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			pol, _, err := loadPolicy(cfg, log)
			if err != nil {
				return err
			}
			gs, err := selectGuards(guardNames, pol, log)
			if err != nil {
				return err
			}

			auditLog, err := openLog(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer auditLog.Close()

			srv := server.New(newManager(auditLog, cfg, log), pol, gs, logger.Component(log, "server"))
			httpServer := srv.HTTPServer(cfg.ListenAddr)

			errc := make(chan error, 1)
			go func() {
				log.Info().
					Str("address", cfg.ListenAddr).
					Str("policy", pol.Name).
					Str("backend", cfg.Audit.Backend).
					Int("guards", len(gs)).
					Msg("Starting SafeLayer API")
				errc <- httpServer.ListenAndServe()
			}()

			select {
			case err := <-errc:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("server failed: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			log.Info().Msg("Shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (default: :8080)")
	cmd.Flags().StringSliceVar(&guardNames, "guards", nil, "Default guard chain (default: every guard the policy configures)")
	return cmd
}
