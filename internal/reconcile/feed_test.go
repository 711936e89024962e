package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"comprafacil/internal/feed"
	"comprafacil/internal/order"
	"comprafacil/internal/statusstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feedUpdate(rec order.Record) feed.RowUpdate {
	return feed.RowUpdate{Table: "orders", Record: rec}
}

func fastFeed(src feed.Source, coord Submitter) *FeedReconciler {
	return NewFeedReconciler(src, coord,
		WithBackoff(time.Millisecond, 5*time.Millisecond),
		WithReconnectLimit(time.Millisecond, 10),
	)
}

func TestFeedReconciler_Handle(t *testing.T) {
	ctx := context.Background()
	n := &recordingNotifier{}
	f := NewFeedReconciler(&fakeSource{}, NewCoordinator(statusstore.NewMemoryStore(), n))

	f.Handle(ctx, feedUpdate(row("o1", "em_preparo", "u1")), "u1")
	f.Handle(ctx, feedUpdate(row("o2", "em_preparo", "someone-else")), "u1")
	f.Handle(ctx, feedUpdate(order.Record{"id": "o3", "status": "aceito"}), "u1")
	f.Handle(ctx, feedUpdate(nil), "u1")
	f.Handle(ctx, feedUpdate(row("o1", "em_preparo", "u1")), "u1")

	assert.Equal(t, []notification{{"o1", order.StatusPreparing}}, n.all())
}

func TestFeedReconciler_Run(t *testing.T) {
	t.Run("Delivers updates and stops on cancel", func(t *testing.T) {
		n := &recordingNotifier{}
		stream := newFakeStream(nil)
		src := &fakeSource{streams: []*fakeStream{stream}}
		f := fastFeed(src, NewCoordinator(statusstore.NewMemoryStore(), n))

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- f.Run(ctx, "u1") }()

		stream.updates <- feedUpdate(row("o1", "aceito", "u1"))
		require.Eventually(t, func() bool { return len(n.all()) == 1 }, time.Second, 5*time.Millisecond)

		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("Run did not stop")
		}

		<-stream.closed
		assert.Equal(t, "orders", src.tables[0])
		assert.Equal(t, "u1", src.users[0])
	})

	t.Run("Reconnects after subscribe failure and stream loss", func(t *testing.T) {
		n := &recordingNotifier{}
		lost := newFakeStream(errors.New("socket closed"))
		close(lost.updates)
		healthy := newFakeStream(nil)
		src := &fakeSource{
			errs:    []error{errors.New("dial failed"), nil, nil},
			streams: []*fakeStream{nil, lost, healthy},
		}
		f := fastFeed(src, NewCoordinator(statusstore.NewMemoryStore(), n))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() { _ = f.Run(ctx, "u1") }()

		healthy.updates <- feedUpdate(row("o1", "cancelado", "u1"))
		require.Eventually(t, func() bool { return len(n.all()) == 1 }, 2*time.Second, 5*time.Millisecond)
		assert.GreaterOrEqual(t, src.callCount(), 3)
	})

	t.Run("No user", func(t *testing.T) {
		src := &fakeSource{}
		f := fastFeed(src, NewCoordinator(statusstore.NewMemoryStore(), &recordingNotifier{}))

		assert.NoError(t, f.Run(context.Background(), ""))
		assert.Zero(t, src.callCount())
	})
}
