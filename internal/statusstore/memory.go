package statusstore

import (
	"context"
	"sync"

	"comprafacil/internal/order"
)

type MemoryStore struct {
	mu   sync.Mutex
	data map[string]order.Status
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]order.Status)}
}

func (m *MemoryStore) Get(_ context.Context, orderID string) (order.Status, error) {
	if err := validate(orderID); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.data[Key(orderID)]; ok {
		return s, nil
	}
	return order.StatusPending, nil
}

func (m *MemoryStore) Put(_ context.Context, orderID string, status order.Status) error {
	if err := validate(orderID); err != nil {
		return err
	}
	if status == "" {
		return ErrEmptyStatus
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[Key(orderID)] = status
	return nil
}

func (m *MemoryStore) Swap(_ context.Context, orderID string, expected, status order.Status) (bool, error) {
	if err := validate(orderID); err != nil {
		return false, err
	}
	if status == "" || expected == "" {
		return false, ErrEmptyStatus
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.data[Key(orderID)]
	if !ok {
		cur = order.StatusPending
	}
	if cur != expected || cur == status {
		return false, nil
	}
	m.data[Key(orderID)] = status
	return true, nil
}
