package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"comprafacil/internal/app"
	"comprafacil/internal/config"
	"comprafacil/internal/logger"
	"comprafacil/internal/session"

	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadConfig()
	logger.Init(cfg.AppEnv)
	defer logger.Sync()
	log := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fg, err := app.NewForeground(cfg)
	if errors.Is(err, session.ErrNoSession) {
		log.Info("not signed in, nothing to run", zap.String("session_file", cfg.SessionFile))
		return
	}
	if err != nil {
		log.Fatal("failed to start session", zap.Error(err))
	}

	if err := fg.Run(ctx); err != nil {
		log.Fatal("session failed", zap.Error(err))
	}
}
