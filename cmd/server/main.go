package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	httpAdapter "github.com/iho/gorecon/internal/adapter/http"
	"github.com/iho/gorecon/internal/adapter/http/handler"
	"github.com/iho/gorecon/internal/adapter/repository/memory"
	"github.com/iho/gorecon/internal/infrastructure/config"
	"github.com/iho/gorecon/internal/infrastructure/logger"
	"github.com/iho/gorecon/internal/infrastructure/metrics"
	"github.com/iho/gorecon/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Setup logger
	logg := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	log.Logger = logg

	// Validate matching defaults up front so a bad env var fails fast
	matchCfg := cfg.Matching()
	if err := matchCfg.Validate(); err != nil {
		logg.Fatal().Err(err).Msg("invalid matching configuration")
	}

	// Initialize infrastructure
	m := metrics.New()
	sessionRepo := memory.NewSessionRepository(cfg.SessionTTL)
	idGen := memory.NewULIDGenerator()

	// Initialize use case
	reconcileUC := usecase.NewReconcileUseCase(sessionRepo, idGen, logger.Component(logg, "reconcile"), m)

	// Initialize handlers
	reconcileHandler := handler.NewReconcileHandler(reconcileUC, matchCfg)
	healthHandler := handler.NewHealthHandler()

	// Create router
	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		ReconcileHandler: reconcileHandler,
		HealthHandler:    healthHandler,
		Logger:           logger.Component(logg, "http"),
		Metrics:          m,
	})

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logg.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logg.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logg.Info().Msg("shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logg.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logg.Info().Msg("server stopped")
}
