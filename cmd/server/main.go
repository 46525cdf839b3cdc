package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/themobileprof/commandbot/internal/api"
	"github.com/themobileprof/commandbot/internal/app"
	"github.com/themobileprof/commandbot/internal/config"
	"github.com/themobileprof/commandbot/internal/logging"
	"github.com/themobileprof/commandbot/internal/ws"
	"github.com/themobileprof/commandbot/pkg/twilio"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "commandbot server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, envLoaded, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if !envLoaded {
		logger.Warn(".env file not found, using environment only")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bot, err := app.New(ctx, cfg, logger, app.Options{})
	if err != nil {
		return fmt.Errorf("failed to assemble pipeline: %w", err)
	}
	defer bot.Close()

	gin.SetMode(cfg.Server.Mode)

	engineCfg := api.EngineConfig{
		Commands:        api.NewCommandHandler(bot.Router, logger),
		Voice:           api.NewVoiceHandler(bot.Router, twilio.NewValidator(cfg.Voice.AuthToken), logger),
		WebSocket:       ws.NewCommandHandler(bot.Router, logger, cfg.Server.AllowedOrigins...).HandleCommand,
		Gatherer:        bot.Registry,
		RateLimitPerMin: cfg.Server.RateLimitPerMin,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		Logger:          logger,
	}
	if bot.Store != nil {
		engineCfg.Database = bot.Store
		engineCfg.Interactions = api.NewInteractionHandler(bot.Store, logger)
	}
	if cfg.Voice.AuthToken == "" {
		logger.Warn("TWILIO_AUTH_TOKEN not set, voice webhooks accept unsigned requests")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           api.NewEngine(engineCfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.Bool("headless", cfg.Headless),
			zap.Bool("interaction_log", bot.Store != nil),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server exited")
	return nil
}
