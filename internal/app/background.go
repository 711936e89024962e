package app

import (
	"context"
	"errors"
	"time"

	"comprafacil/internal/config"
	"comprafacil/internal/logger"
	"comprafacil/internal/order"
	"comprafacil/internal/reconcile"
	"comprafacil/internal/scheduler"
	"comprafacil/internal/session"

	"go.uber.org/zap"
)

const BackgroundTaskName = "order-status-poll"

// BackgroundTask is the periodic poll. Each invocation reads the session,
// opens the store and runs one pass; it shares nothing with the
// foreground process except the store's backing storage.
func BackgroundTask(cfg *config.Config) scheduler.Task {
	return func(ctx context.Context) scheduler.Result {
		log := logger.FromCtx(ctx).With(zap.String("layer", "background"))

		sess, err := session.NewFileStore(cfg.SessionFile).Load()
		if errors.Is(err, session.ErrNoSession) {
			log.Debug("no session, nothing to poll")
			return scheduler.Success
		}
		if err != nil {
			log.Warn("unreadable session, nothing to poll", zap.Error(err))
			return scheduler.Success
		}
		if sess.Expired(time.Now()) {
			log.Info("session expired, nothing to poll", zap.String("user_id", sess.UserID))
			return scheduler.Success
		}

		store, closer, err := NewStatusStore(cfg)
		if err != nil {
			log.Error("open status store failed", zap.Error(err))
			return scheduler.Retry
		}
		defer closer.Close()

		client, err := NewPlatformClient(cfg, sess.AccessToken)
		if err != nil {
			log.Error("platform client failed", zap.Error(err))
			return scheduler.Retry
		}

		coord := reconcile.NewCoordinator(store, NewDispatcher(cfg))
		poller := reconcile.NewPoller(order.NewRepository(client), store, coord)

		if _, err := poller.ReconcileOnce(ctx, sess.UserID); err != nil {
			log.Warn("poll pass failed, will retry", zap.Error(err))
			return scheduler.Retry
		}
		return scheduler.Success
	}
}
