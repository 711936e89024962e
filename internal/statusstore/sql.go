package statusstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"comprafacil/internal/order"
)

// SQLStore keeps entries in the status_store table (see cmd/migrate).
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Get(ctx context.Context, orderID string) (order.Status, error) {
	if err := validate(orderID); err != nil {
		return "", err
	}

	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM status_store WHERE key = $1`,
		Key(orderID),
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return order.StatusPending, nil
	}
	if err != nil {
		return "", fmt.Errorf("get status: %w", err)
	}
	return order.Status(value), nil
}

func (s *SQLStore) Put(ctx context.Context, orderID string, status order.Status) error {
	if err := validate(orderID); err != nil {
		return err
	}
	if status == "" {
		return ErrEmptyStatus
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO status_store (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = NOW()
	`, Key(orderID), string(status))
	if err != nil {
		return fmt.Errorf("put status: %w", err)
	}
	return nil
}

// Swap is a single conditional statement, so a value written by another
// process after expected was read is never overwritten.
func (s *SQLStore) Swap(ctx context.Context, orderID string, expected, status order.Status) (bool, error) {
	if err := validate(orderID); err != nil {
		return false, err
	}
	if status == "" || expected == "" {
		return false, ErrEmptyStatus
	}
	if status == expected {
		return false, nil
	}

	var (
		res sql.Result
		err error
	)
	if expected == order.StatusPending {
		// an absent row reads as pendente, so it may be inserted
		res, err = s.db.ExecContext(ctx, `
			INSERT INTO status_store (key, value, updated_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (key) DO UPDATE
			SET value = EXCLUDED.value, updated_at = NOW()
			WHERE status_store.value = $3
		`, Key(orderID), string(status), string(expected))
	} else {
		res, err = s.db.ExecContext(ctx, `
			UPDATE status_store
			SET value = $2, updated_at = NOW()
			WHERE key = $1 AND value = $3
		`, Key(orderID), string(status), string(expected))
	}
	if err != nil {
		return false, fmt.Errorf("swap status: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("swap status: %w", err)
	}
	return n > 0, nil
}
