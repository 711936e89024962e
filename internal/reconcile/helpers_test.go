package reconcile

import (
	"context"
	"sync"

	"comprafacil/internal/feed"
	"comprafacil/internal/order"
	"comprafacil/internal/statusstore"
)

type notification struct {
	OrderID string
	Status  order.Status
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (n *recordingNotifier) Notify(_ context.Context, orderID string, status order.Status) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification{orderID, status})
}

func (n *recordingNotifier) all() []notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notification(nil), n.sent...)
}

// plainStore hides the Swapper of the memory store so the Get/Put path is
// exercised.
type plainStore struct {
	inner *statusstore.MemoryStore
}

func (p plainStore) Get(ctx context.Context, id string) (order.Status, error) {
	return p.inner.Get(ctx, id)
}

func (p plainStore) Put(ctx context.Context, id string, s order.Status) error {
	return p.inner.Put(ctx, id, s)
}

type fakeOrders struct {
	mu      sync.Mutex
	records []order.Record
	err     error
	calls   int
}

func (f *fakeOrders) set(records ...order.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = records
}

func (f *fakeOrders) ActiveOrders(_ context.Context, _ string) ([]order.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

func (f *fakeOrders) ListOrders(context.Context, string) ([]*order.Order, error) {
	return nil, nil
}

func (f *fakeOrders) StatusHistory(context.Context, string) ([]*order.StatusHistoryEntry, error) {
	return nil, nil
}

func (f *fakeOrders) PlaceOrder(_ context.Context, o *order.Order, _ []order.OrderItem) (*order.Order, error) {
	return o, nil
}

func row(id, status, userID string) order.Record {
	return order.Record{"id": id, "status": status, "user_id": userID}
}

type fakeStream struct {
	updates chan feed.RowUpdate
	err     error
	closed  chan struct{}
	once    sync.Once
}

func newFakeStream(err error) *fakeStream {
	return &fakeStream{updates: make(chan feed.RowUpdate, 16), err: err, closed: make(chan struct{})}
}

func (s *fakeStream) Updates() <-chan feed.RowUpdate { return s.updates }
func (s *fakeStream) Err() error                     { return s.err }
func (s *fakeStream) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

type fakeSource struct {
	mu      sync.Mutex
	streams []*fakeStream
	errs    []error
	calls   int
	tables  []string
	users   []string
}

// Subscribe hands out the queued results in order; once exhausted it
// blocks until ctx ends.
func (f *fakeSource) Subscribe(ctx context.Context, table, userID string) (feed.Stream, error) {
	f.mu.Lock()
	i := f.calls
	f.calls++
	f.tables = append(f.tables, table)
	f.users = append(f.users, userID)
	f.mu.Unlock()

	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.streams) {
		return f.streams[i], nil
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
