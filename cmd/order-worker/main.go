package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"comprafacil/internal/app"
	"comprafacil/internal/config"
	"comprafacil/internal/logger"
	"comprafacil/internal/scheduler"

	"go.uber.org/zap"
)

// exitRetry is EX_TEMPFAIL; systemd and cron wrappers treat it as try again.
const exitRetry = 75

func main() {
	once := flag.Bool("once", false, "run a single poll and exit (0 success, 75 retry)")
	flag.Parse()

	cfg := config.LoadConfig()
	logger.Init(cfg.AppEnv)
	log := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := newRunner(cfg)
	if err := runner.Register(app.BackgroundTaskName, cfg.PollInterval, app.BackgroundTask(cfg)); err != nil {
		log.Fatal("failed to register task", zap.Error(err))
	}

	if *once {
		code := runOnce(ctx, runner)
		logger.Sync()
		stop()
		os.Exit(code)
	}

	log.Info("order worker started", zap.Duration("interval", cfg.PollInterval))
	runner.Start(ctx)
	logger.Sync()
}

func newRunner(cfg *config.Config) *scheduler.Runner {
	opts := scheduler.DefaultOptions()
	opts.Timeout = cfg.TaskTimeout
	return scheduler.New(opts)
}

func runOnce(ctx context.Context, runner *scheduler.Runner) int {
	res, err := runner.RunOnce(ctx, app.BackgroundTaskName)
	if err != nil || res == scheduler.Retry {
		return exitRetry
	}
	return 0
}
