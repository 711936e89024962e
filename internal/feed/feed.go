// Package feed adapts change-data streams of the orders table into row
// updates. Sources deliver full rows and know nothing about reconciliation.
package feed

import (
	"context"

	"comprafacil/internal/order"
)

// RowUpdate is one changed row.
type RowUpdate struct {
	Table  string
	Record order.Record
}

// Stream is a live subscription. Updates is closed when the stream ends;
// Err then reports why.
type Stream interface {
	Updates() <-chan RowUpdate
	Err() error
	Close() error
}

// Source opens update streams for a table, narrowed to one user where the
// backend supports it. Consumers must still filter by user themselves.
type Source interface {
	Subscribe(ctx context.Context, table, userID string) (Stream, error)
}
