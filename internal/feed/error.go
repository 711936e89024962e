package feed

import "errors"

var (
	ErrStreamClosed  = errors.New("change stream closed")
	ErrEmptyTable    = errors.New("table is required")
	ErrNotAChange    = errors.New("message is not a row change")
	ErrNoKafkaBroker = errors.New("at least one kafka broker is required")
)
