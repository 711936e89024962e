// Package reconcile detects order status transitions from polls and change
// feeds and applies each distinct transition exactly once per installation.
package reconcile

import "comprafacil/internal/order"

type Source string

const (
	SourcePoll Source = "poll"
	SourceFeed Source = "feed"
)

// Event is one observation of an order's status.
type Event struct {
	OrderID string
	Status  order.Status
	Source  Source
}
