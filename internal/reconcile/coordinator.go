package reconcile

import (
	"context"
	"fmt"

	"comprafacil/internal/lock"
	"comprafacil/internal/logger"
	"comprafacil/internal/metrics"
	"comprafacil/internal/order"
	"comprafacil/internal/statusstore"

	"go.uber.org/zap"
)

// Notifier receives applied transitions.
type Notifier interface {
	Notify(ctx context.Context, orderID string, status order.Status)
}

// Submitter accepts status observations.
type Submitter interface {
	Submit(ctx context.Context, ev Event) (bool, error)
}

// Coordinator is the only writer of the status store and the only caller
// of the notifier. Events for the same order are applied one at a time.
type Coordinator struct {
	store    statusstore.Store
	notifier Notifier
	locks    lock.KeyedMutex
}

func NewCoordinator(store statusstore.Store, notifier Notifier) *Coordinator {
	return &Coordinator{store: store, notifier: notifier}
}

// Submit records ev and notifies when it differs from the stored status.
// Observations behind the stored status in the lifecycle are stale and
// dropped. It reports whether a notification was emitted.
func (c *Coordinator) Submit(ctx context.Context, ev Event) (bool, error) {
	if ev.OrderID == "" || ev.Status == "" {
		return false, ErrInvalidEvent
	}

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "coordinator"),
		zap.String("order_id", ev.OrderID),
		zap.String("status", string(ev.Status)),
		zap.String("source", string(ev.Source)),
	)

	unlock := c.locks.Lock(ev.OrderID)
	defer unlock()

	if err := ctx.Err(); err != nil {
		return false, err
	}

	prev, err := c.store.Get(ctx, ev.OrderID)
	if err != nil {
		log.Error("read stored status failed", zap.Error(err))
		return false, fmt.Errorf("read stored status: %w", err)
	}
	if prev == ev.Status {
		metrics.RecordEvent(string(ev.Source), false)
		log.Debug("status unchanged")
		return false, nil
	}

	if order.IsRegression(prev, ev.Status) {
		metrics.RecordEvent(string(ev.Source), false)
		log.Info("discarding stale observation", zap.String("stored", string(prev)))
		return false, nil
	}

	if swapper, ok := c.store.(statusstore.Swapper); ok {
		changed, err := swapper.Swap(ctx, ev.OrderID, prev, ev.Status)
		if err != nil {
			log.Error("swap stored status failed", zap.Error(err))
			return false, fmt.Errorf("swap stored status: %w", err)
		}
		if !changed {
			// another process got there first
			metrics.RecordEvent(string(ev.Source), false)
			log.Info("stored status moved since read, dropping observation", zap.String("read", string(prev)))
			return false, nil
		}
	} else if err := c.store.Put(ctx, ev.OrderID, ev.Status); err != nil {
		log.Error("write stored status failed", zap.Error(err))
		return false, fmt.Errorf("write stored status: %w", err)
	}

	if !order.CanTransition(prev, ev.Status) {
		log.Warn("unexpected status transition", zap.String("previous", string(prev)))
	}

	metrics.RecordEvent(string(ev.Source), true)
	log.Info("status transition applied", zap.String("previous", string(prev)))

	c.notifier.Notify(ctx, ev.OrderID, ev.Status)
	return true, nil
}
