package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/pantrylens/backend/config"
	"github.com/pantrylens/backend/internal/app"
	httpDelivery "github.com/pantrylens/backend/internal/delivery/http"
	"github.com/pantrylens/backend/internal/logx"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logx.Init(logx.Options{Environment: cfg.Server.Environment, Level: cfg.Log.Level})
	logger := logx.Component("server")

	logger.Info().
		Str("environment", cfg.Server.Environment).
		Str("port", cfg.Server.Port).
		Str("storage", cfg.Storage.Driver).
		Str("cache", cfg.Cache.Type).
		Msg("starting PantryLens backend v1.0.0")

	ctx := context.Background()

	// Initialize storage, cache and the pricing service
	application, err := app.New(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize application")
	}
	defer application.Close()

	logger.Info().
		Dur("ledgerWindow", cfg.Pricing.LedgerWindow).
		Int("verificationThreshold", cfg.Pricing.VerificationThreshold).
		Int("defaultMaxDays", cfg.Pricing.DefaultMaxDays).
		Int("defaultMaxStores", cfg.Pricing.DefaultMaxStores).
		Msg("pricing configured")

	handler := httpDelivery.NewHandler(application.Pricing)
	router := httpDelivery.SetupRouter(cfg, handler)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server exited")
}
