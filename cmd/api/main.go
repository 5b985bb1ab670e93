package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/Stefs-2142/ai-engineering-bootcamp/internal/adapters/http"
	"github.com/Stefs-2142/ai-engineering-bootcamp/internal/bootstrap"
	"github.com/Stefs-2142/ai-engineering-bootcamp/internal/config"
	"github.com/Stefs-2142/ai-engineering-bootcamp/internal/observability/logging"
	"github.com/Stefs-2142/ai-engineering-bootcamp/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logger := logging.New("api", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	serverMetrics := metrics.NewHTTPServerMetrics("api")
	router := httpadapter.NewRouter(
		app.SemanticUC,
		app.StructuredUC,
		app.ChatUC,
		serverMetrics,
		httpadapter.WithTrafficControl(cfg.APIRateLimitRPS, cfg.APIRateLimitBurst),
	).Handler()

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("api listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api shutdown", "error", err)
	}
}
