package reconcile

import "errors"

var (
	// ErrTransientFetch aborts a pass before any write; retry later.
	ErrTransientFetch = errors.New("transient fetch failure")

	ErrInvalidEvent = errors.New("event needs an order id and a status")
)
