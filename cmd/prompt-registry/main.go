package main

// Serve prompt definitions from PROMPTS_DIR:
//   go run ./cmd/prompt-registry

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Sergey0107/verification-products/internal/prompts"
	"github.com/Sergey0107/verification-products/internal/shared/config"
	"github.com/Sergey0107/verification-products/internal/shared/server"
	"github.com/Sergey0107/verification-products/internal/shared/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fatal("prompts.config", err)
	}
	telemetry.SetLevel(cfg.LogLevel)
	defer telemetry.Sync()

	store, err := prompts.LoadDir(cfg.PromptsDir)
	if err != nil {
		fatal("prompts.load", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:    server.Addr(cfg.Port),
		Handler: server.NewRootRouter(nil, prompts.NewHandler(store)),
	}
	go func() {
		telemetry.Info("prompts.started", map[string]any{"addr": srv.Addr, "types": store.Types()})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("prompts.serve", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func fatal(event string, err error) {
	telemetry.Error(event, map[string]any{"error": err.Error()})
	telemetry.Sync()
	os.Exit(1)
}
