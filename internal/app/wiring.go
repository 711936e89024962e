// Package app builds the dependencies of each process entry point. Every
// process constructs its own graph from Config; nothing is global.
package app

import (
	"fmt"
	"io"

	"comprafacil/internal/config"
	"comprafacil/internal/db"
	"comprafacil/internal/feed"
	"comprafacil/internal/logger"
	"comprafacil/internal/notify"
	"comprafacil/internal/statusstore"
	"comprafacil/internal/supabase"

	"go.uber.org/zap"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewStatusStore opens the backend named by STATUS_STORE. The closer
// releases its connections.
func NewStatusStore(cfg *config.Config) (statusstore.Store, io.Closer, error) {
	switch cfg.StatusStore {
	case "file", "":
		s, err := statusstore.NewFileStore(cfg.StatusStorePath)
		if err != nil {
			return nil, nil, err
		}
		return s, nopCloser{}, nil
	case "memory":
		return statusstore.NewMemoryStore(), nopCloser{}, nil
	case "postgres":
		conn, err := db.NewDatabase(cfg)
		if err != nil {
			return nil, nil, err
		}
		return statusstore.NewSQLStore(conn), conn, nil
	case "redis":
		rdb := statusstore.NewRedisClient(cfg.RedisAddr)
		return statusstore.NewRedisStore(rdb), rdb, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", statusstore.ErrUnknownBackend, cfg.StatusStore)
	}
}

// NewPlatformClient returns a client acting as the user behind accessToken.
func NewPlatformClient(cfg *config.Config, accessToken string) (*supabase.Client, error) {
	c, err := supabase.New(supabase.Config{URL: cfg.SupabaseURL, APIKey: cfg.SupabaseAnonKey})
	if err != nil {
		return nil, err
	}
	return c.WithAccessToken(accessToken), nil
}

// NewDispatcher always logs; NOTIFY_COMMAND adds a desktop sink.
func NewDispatcher(cfg *config.Config) *notify.Dispatcher {
	sinks := []notify.Notifier{notify.NewLogNotifier(logger.L())}
	if cfg.NotifyCommand != "" {
		cmd, err := notify.NewCommandNotifier(cfg.NotifyCommand)
		if err != nil {
			logger.L().Warn("ignoring NOTIFY_COMMAND", zap.Error(err))
		} else {
			sinks = append(sinks, cmd)
		}
	}
	return notify.NewDispatcher(sinks...)
}

func NewFeedSource(cfg *config.Config, client *supabase.Client) (feed.Source, error) {
	switch cfg.FeedSource {
	case "realtime", "":
		return feed.NewRealtimeSource(client.Realtime(), client.AccessToken()), nil
	case "kafka":
		return feed.NewKafkaSource(cfg.KafkaBrokers, cfg.KafkaTopic)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFeedSource, cfg.FeedSource)
	}
}
