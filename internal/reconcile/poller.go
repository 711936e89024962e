package reconcile

import (
	"context"
	"errors"
	"fmt"

	"comprafacil/internal/logger"
	"comprafacil/internal/metrics"
	"comprafacil/internal/order"
	"comprafacil/internal/statusstore"

	"go.uber.org/zap"
)

// PassResult summarises one poll pass.
type PassResult struct {
	Checked   int
	Submitted int
	Applied   int
	Malformed int
}

// Poller reconciles the user's active orders in one pass. It only reads
// the store; writes go through the Submitter.
type Poller struct {
	orders order.Repository
	store  statusstore.Store
	coord  Submitter
}

func NewPoller(orders order.Repository, store statusstore.Store, coord Submitter) *Poller {
	return &Poller{orders: orders, store: store, coord: coord}
}

// ReconcileOnce fetches the active orders of userID and submits every
// status that differs from the stored one. A failed fetch returns
// ErrTransientFetch with nothing written. An empty userID is a no-op.
func (p *Poller) ReconcileOnce(ctx context.Context, userID string) (PassResult, error) {
	ctx = logger.WithRunID(ctx)
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "poller"),
		zap.String("method", "ReconcileOnce"),
	)
	timer := metrics.StartTimer()

	var res PassResult
	if userID == "" {
		log.Debug("no user, skipping pass")
		metrics.RecordPass(string(SourcePoll), "skipped", timer.Duration())
		return res, nil
	}

	records, err := p.orders.ActiveOrders(ctx, userID)
	if err != nil {
		log.Warn("fetch active orders failed", zap.Error(err))
		metrics.RecordPass(string(SourcePoll), "transient", timer.Duration())
		return res, fmt.Errorf("%w: %w", ErrTransientFetch, err)
	}

	var errs []error
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			metrics.RecordPass(string(SourcePoll), "canceled", timer.Duration())
			return res, err
		}

		row, err := order.DecodeStatusRow(rec)
		if err != nil {
			res.Malformed++
			metrics.RecordMalformedRow(string(SourcePoll))
			log.Warn("skipping malformed order row", zap.Error(err))
			continue
		}
		res.Checked++

		stored, err := p.store.Get(ctx, row.ID)
		if err != nil {
			log.Error("read stored status failed", zap.String("order_id", row.ID), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		if stored == row.Status {
			continue
		}

		res.Submitted++
		applied, err := p.coord.Submit(ctx, Event{OrderID: row.ID, Status: row.Status, Source: SourcePoll})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if applied {
			res.Applied++
		}
	}

	if err := errors.Join(errs...); err != nil {
		metrics.RecordPass(string(SourcePoll), "error", timer.Duration())
		log.Error("pass finished with errors", zap.Error(err))
		return res, err
	}

	metrics.RecordPass(string(SourcePoll), "ok", timer.Duration())
	log.Info("pass finished",
		zap.Int("checked", res.Checked),
		zap.Int("applied", res.Applied),
		zap.Int("malformed", res.Malformed),
	)
	return res, nil
}
