package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/Aviral2610/Lead-gen/internal/api"
	"github.com/Aviral2610/Lead-gen/internal/config"
	"github.com/Aviral2610/Lead-gen/internal/cost"
	"github.com/Aviral2610/Lead-gen/internal/pkg/logger"
	"github.com/Aviral2610/Lead-gen/internal/pkg/policy"
)

func serveCmd() *cobra.Command {
	var (
		port    int
		origins []string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the suppression, reply webhook and health API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(config.RequireServer); err != nil {
				return err
			}
			if port > 0 {
				cfg.Server.Port = port
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				handler, err := a.apiHandler(ctx, origins)
				if err != nil {
					return err
				}
				return serve(ctx, fmt.Sprintf("%s:%d", a.cfg.Server.Host, a.cfg.Server.Port), handler)
			})
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (default from config)")
	cmd.Flags().StringSliceVar(&origins, "cors-origin", nil, "allowed CORS origins")
	return cmd
}

func (a *app) apiHandler(ctx context.Context, origins []string) (http.Handler, error) {
	gate, err := a.gate(ctx)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		cost.NewCollector(a.ledger),
		policy.Collector(),
	)

	deps := api.Deps{
		Suppression:    gate,
		Metrics:        registry,
		AllowedOrigins: origins,
		APIKeys:        a.cfg.Server.APIKeys,
	}
	if router, err := a.router(ctx); err != nil {
		logger.Warn("reply classification disabled", "error", err)
	} else {
		deps.Replies = router
	}
	if a.cfg.Instantly.APIKey != "" {
		m, err := a.monitor(ctx)
		if err != nil {
			return nil, err
		}
		deps.Health = m
	} else {
		logger.Warn("INSTANTLY_API_KEY not set, campaign health disabled")
	}
	return api.NewServer(deps).Routes(), nil
}

// serve runs the HTTP server until ctx is cancelled, then drains for up to
// 30 seconds.
func serve(ctx context.Context, addr string, handler http.Handler) error {
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down api")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
