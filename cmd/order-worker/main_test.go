package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"comprafacil/internal/app"
	"comprafacil/internal/config"
	"comprafacil/internal/scheduler"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunOnce(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		SupabaseURL:     "http://localhost",
		SupabaseAnonKey: "anon",
		SessionFile:     filepath.Join(dir, "session.json"),
		StatusStore:     "memory",
		PollInterval:    15 * time.Minute,
		TaskTimeout:     time.Second,
	}

	t.Run("No session exits 0", func(t *testing.T) {
		runner := newRunner(cfg)
		require.NoError(t, runner.Register(app.BackgroundTaskName, cfg.PollInterval, app.BackgroundTask(cfg)))

		assert.Equal(t, 0, runOnce(context.Background(), runner))
	})

	t.Run("Unregistered task exits 75", func(t *testing.T) {
		assert.Equal(t, exitRetry, runOnce(context.Background(), newRunner(cfg)))
	})

	t.Run("Slow platform exits 75", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}))
		defer srv.Close()

		runner := newRunner(cfg)
		slow := func(ctx context.Context) bool {
			req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
			_, err := http.DefaultClient.Do(req)
			return err == nil
		}
		require.NoError(t, runner.Register(app.BackgroundTaskName, cfg.PollInterval, func(ctx context.Context) scheduler.Result {
			if slow(ctx) {
				return scheduler.Success
			}
			return scheduler.Retry
		}))

		assert.Equal(t, exitRetry, runOnce(context.Background(), runner))
	})
}
