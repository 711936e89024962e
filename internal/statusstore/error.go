package statusstore

import "errors"

var (
	ErrEmptyOrderID   = errors.New("order id is required")
	ErrEmptyStatus    = errors.New("status is required")
	ErrUnknownBackend = errors.New("unknown status store backend")
	ErrCorruptFile    = errors.New("status store file is corrupt")
)

func validate(orderID string) error {
	if orderID == "" {
		return ErrEmptyOrderID
	}
	return nil
}
