// Package statusstore persists the last status this installation notified
// for each order. It survives restarts and is shared by the foreground and
// background processes.
package statusstore

import (
	"context"

	"comprafacil/internal/order"
)

const keyPrefix = "order_"

// Store is a durable key-value store of order statuses. Get returns
// order.StatusPending for orders never written.
type Store interface {
	Get(ctx context.Context, orderID string) (order.Status, error)
	Put(ctx context.Context, orderID string, status order.Status) error
}

// Swapper is implemented by backends that can compare and write in one
// atomic operation. Swap writes status only while the stored value (an
// absent key reads as pendente) still equals expected, and reports whether
// it wrote.
type Swapper interface {
	Swap(ctx context.Context, orderID string, expected, status order.Status) (bool, error)
}

// Key is the persisted key of an order.
func Key(orderID string) string {
	return keyPrefix + orderID
}
