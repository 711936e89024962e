package reconcile

import (
	"context"
	"errors"
	"time"

	"comprafacil/internal/feed"
	"comprafacil/internal/logger"
	"comprafacil/internal/metrics"
	"comprafacil/internal/order"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const ordersTable = "orders"

type FeedOption func(*FeedReconciler)

// WithBackoff sets the first and the maximum delay between reconnects.
func WithBackoff(initial, max time.Duration) FeedOption {
	return func(f *FeedReconciler) {
		f.initialDelay = initial
		f.maxDelay = max
	}
}

// WithReconnectLimit caps how often the feed may resubscribe.
func WithReconnectLimit(every time.Duration, burst int) FeedOption {
	return func(f *FeedReconciler) {
		f.limiter = rate.NewLimiter(rate.Every(every), burst)
	}
}

// FeedReconciler turns change-feed row updates into events for the
// current user for as long as its context lives.
type FeedReconciler struct {
	source feed.Source
	coord  Submitter

	limiter      *rate.Limiter
	initialDelay time.Duration
	maxDelay     time.Duration
}

func NewFeedReconciler(source feed.Source, coord Submitter, opts ...FeedOption) *FeedReconciler {
	f := &FeedReconciler{
		source:       source,
		coord:        coord,
		limiter:      rate.NewLimiter(rate.Every(5*time.Second), 3),
		initialDelay: time.Second,
		maxDelay:     2 * time.Minute,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Run subscribes and resubscribes until ctx ends. It returns nil on
// cancellation; stream failures are retried with backoff.
func (f *FeedReconciler) Run(ctx context.Context, userID string) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "feed"),
		zap.String("method", "Run"),
	)
	if userID == "" {
		log.Debug("no user, feed not started")
		return nil
	}

	delay := f.initialDelay
	for {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil
		}

		stream, err := f.source.Subscribe(ctx, ordersTable, userID)
		if err == nil {
			log.Info("feed subscribed")
			delay = f.initialDelay
			err = f.consume(ctx, stream, userID)
			_ = stream.Close()
		}

		if ctx.Err() != nil {
			log.Info("feed stopped")
			return nil
		}

		metrics.RecordFeedReconnect()
		log.Warn("feed lost, reconnecting", zap.Duration("delay", delay), zap.Error(err))

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
		delay *= 2
		if delay > f.maxDelay {
			delay = f.maxDelay
		}
	}
}

func (f *FeedReconciler) consume(ctx context.Context, stream feed.Stream, userID string) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case upd, ok := <-stream.Updates():
			if !ok {
				return stream.Err()
			}
			f.Handle(ctx, upd, userID)
		}
	}
}

// Handle applies one row update. Malformed rows and rows of other users
// are dropped.
func (f *FeedReconciler) Handle(ctx context.Context, upd feed.RowUpdate, userID string) {
	ctx = logger.WithRunID(ctx)
	log := logger.FromCtx(ctx).With(zap.String("layer", "feed"))

	row, err := order.DecodeStatusRow(upd.Record)
	if err != nil {
		metrics.RecordMalformedRow(string(SourceFeed))
		log.Warn("skipping malformed order row", zap.Error(err))
		return
	}
	if row.UserID != userID {
		log.Debug("ignoring update for another user", zap.String("order_id", row.ID))
		return
	}

	_, err = f.coord.Submit(ctx, Event{OrderID: row.ID, Status: row.Status, Source: SourceFeed})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("submit feed event failed", zap.String("order_id", row.ID), zap.Error(err))
	}
}
