// Package notify turns applied status transitions into user notifications.
package notify

import (
	"context"
	"fmt"
	"strings"

	"comprafacil/internal/logger"
	"comprafacil/internal/metrics"
	"comprafacil/internal/order"

	"go.uber.org/zap"
)

const Title = "Atualização no Pedido"

// Notifier shows one notification on the device.
type Notifier interface {
	Name() string
	Show(ctx context.Context, title, body string) error
}

// Dispatcher renders notifications and hands them to every sink. Sink
// failures are logged and never reported back to the caller.
type Dispatcher struct {
	sinks []Notifier
}

func NewDispatcher(sinks ...Notifier) *Dispatcher {
	return &Dispatcher{sinks: sinks}
}

func (d *Dispatcher) Notify(ctx context.Context, orderID string, status order.Status) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "notify"),
		zap.String("order_id", orderID),
		zap.String("status", string(status)),
	)

	body := Body(orderID, status)
	for _, s := range d.sinks {
		err := s.Show(ctx, Title, body)
		metrics.RecordNotification(s.Name(), err)
		if err != nil {
			log.Warn("notification sink failed", zap.String("sink", s.Name()), zap.Error(err))
		}
	}
}

// Body renders the notification text for an order.
func Body(orderID string, status order.Status) string {
	return fmt.Sprintf("O status do seu pedido #%s mudou para: %s", ShortID(orderID), status.Label())
}

// ShortID is the last six characters of the order id, upper-cased.
func ShortID(orderID string) string {
	r := []rune(orderID)
	if len(r) > 6 {
		r = r[len(r)-6:]
	}
	return strings.ToUpper(string(r))
}
