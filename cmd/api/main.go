package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Sergey0107/verification-products/internal/bootstrap"
	"github.com/Sergey0107/verification-products/internal/shared/config"
	"github.com/Sergey0107/verification-products/internal/shared/server"
	"github.com/Sergey0107/verification-products/internal/shared/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fatal("api.config", err)
	}
	telemetry.SetLevel(cfg.LogLevel)
	defer telemetry.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		fatal("api.bootstrap", err)
	}
	defer app.Close()

	srv := &http.Server{
		Addr:    server.Addr(cfg.Port),
		Handler: app.Router,
	}
	go func() {
		telemetry.Info("api.started", map[string]any{"addr": srv.Addr, "env": cfg.Env})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("api.serve", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		telemetry.Error("api.shutdown_failed", map[string]any{"error": err.Error()})
	}
	if err := app.Wait(shutdownCtx); err != nil {
		telemetry.Warn("api.jobs_abandoned", map[string]any{"error": err.Error()})
	}
	telemetry.Info("api.stopped", nil)
}

func fatal(event string, err error) {
	telemetry.Error(event, map[string]any{"error": err.Error()})
	telemetry.Sync()
	os.Exit(1)
}
