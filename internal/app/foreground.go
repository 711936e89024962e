package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"comprafacil/internal/cart"
	"comprafacil/internal/config"
	"comprafacil/internal/feed"
	"comprafacil/internal/httpx"
	"comprafacil/internal/logger"
	"comprafacil/internal/middleware"
	"comprafacil/internal/order"
	"comprafacil/internal/product"
	"comprafacil/internal/reconcile"
	"comprafacil/internal/session"
	"comprafacil/internal/statusstore"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Foreground is one signed-in session: a catch-up poll at start, the
// change feed, and the local API, all ending together.
type Foreground struct {
	cfg      *config.Config
	sessions *session.FileStore
	sess     *session.Session

	poller *reconcile.Poller
	feed   *reconcile.FeedReconciler
	deps   httpx.Deps
	closer io.Closer

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewForeground returns session.ErrNoSession when nobody is signed in.
func NewForeground(cfg *config.Config) (*Foreground, error) {
	sessions := session.NewFileStore(cfg.SessionFile)
	sess, err := sessions.Load()
	if err != nil {
		return nil, err
	}

	client, err := NewPlatformClient(cfg, sess.AccessToken)
	if err != nil {
		return nil, err
	}
	source, err := NewFeedSource(cfg, client)
	if err != nil {
		return nil, err
	}
	store, closer, err := NewStatusStore(cfg)
	if err != nil {
		return nil, err
	}

	orders := order.NewRepository(client)
	coord := reconcile.NewCoordinator(store, NewDispatcher(cfg))

	return newForeground(cfg, sessions, sess, orders, store, closer, source, coord,
		cart.NewService(cart.NewRepository(client), product.NewRepository(client))), nil
}

func newForeground(
	cfg *config.Config,
	sessions *session.FileStore,
	sess *session.Session,
	orders order.Repository,
	store statusstore.Store,
	closer io.Closer,
	source feed.Source,
	coord *reconcile.Coordinator,
	carts cart.Service,
) *Foreground {
	f := &Foreground{
		cfg:      cfg,
		sessions: sessions,
		sess:     sess,
		poller:   reconcile.NewPoller(orders, store, coord),
		feed:     reconcile.NewFeedReconciler(source, coord),
		closer:   closer,
	}
	f.deps = httpx.Deps{
		Cart:   carts,
		Orders: orders,
		Device: sessions,
		Owner:  sess.UserID,
		Logout: f.Logout,
	}
	return f
}

// Run blocks until ctx ends or the user logs out.
func (f *Foreground) Run(ctx context.Context) error {
	defer f.closer.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	f.mu.Lock()
	f.cancel = cancel
	f.mu.Unlock()

	log := logger.FromCtx(ctx).With(zap.String("layer", "foreground"), zap.String("user_id", f.sess.UserID))
	f.deps.Limiter = middleware.NewRateLimiter(ctx)

	srv := &http.Server{
		Addr:              f.cfg.HTTPAddr,
		Handler:           httpx.NewRouter(f.deps),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if _, err := f.poller.ReconcileOnce(gctx, f.sess.UserID); err != nil {
			log.Warn("catch-up poll failed", zap.Error(err))
		}
		return nil
	})

	g.Go(func() error {
		return f.feed.Run(gctx, f.sess.UserID)
	})

	g.Go(func() error {
		log.Info("local api listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("local api: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, done := context.WithTimeout(context.WithoutCancel(gctx), 5*time.Second)
		defer done()
		return srv.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	log.Info("session ended")
	return err
}

// Logout clears the device session and ends Run.
func (f *Foreground) Logout(ctx context.Context) error {
	logger.FromCtx(ctx).Info("logging out", zap.String("user_id", f.sess.UserID))
	err := f.sessions.Clear()

	f.mu.Lock()
	if f.cancel != nil {
		f.cancel()
	}
	f.mu.Unlock()
	return err
}
