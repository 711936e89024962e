package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is built once per process entry point (foreground session,
// background worker) and passed down explicitly.
type Config struct {
	AppEnv string

	SupabaseURL     string
	SupabaseAnonKey string
	SessionFile     string

	StatusStore     string
	StatusStorePath string

	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string

	RedisAddr string

	FeedSource   string
	KafkaBrokers []string
	KafkaTopic   string

	PollInterval time.Duration
	TaskTimeout  time.Duration

	HTTPAddr      string
	NotifyCommand string
}

// LoadConfig reads .env (if present) and the process environment.
// It exits the process when the data platform URL is missing.
func LoadConfig() *Config {
	cfg, ok := load()
	if !ok {
		log.Fatal("Environment variables not loaded properly: SUPABASE_URL is required")
	}
	return cfg
}

func load() (*Config, bool) {
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:          os.Getenv("APP_ENV"),
		SupabaseURL:     os.Getenv("SUPABASE_URL"),
		SupabaseAnonKey: os.Getenv("SUPABASE_ANON_KEY"),
		SessionFile:     getenv("SESSION_FILE", "session.json"),
		StatusStore:     getenv("STATUS_STORE", "file"),
		StatusStorePath: getenv("STATUS_STORE_PATH", "order_status.json"),
		DBHost:          os.Getenv("DB_HOST"),
		DBUser:          os.Getenv("DB_USER"),
		DBPassword:      os.Getenv("DB_PASSWORD"),
		DBName:          os.Getenv("DB_NAME"),
		DBPort:          getenv("DB_PORT", "5432"),
		RedisAddr:       getenv("REDIS_ADDR", "localhost:6379"),
		FeedSource:      getenv("FEED_SOURCE", "realtime"),
		KafkaBrokers:    splitCSV(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:      getenv("KAFKA_TOPIC", "storefront.public.orders"),
		PollInterval:    time.Duration(getenvInt("POLL_INTERVAL_MINUTES", 15)) * time.Minute,
		TaskTimeout:     time.Duration(getenvInt("TASK_TIMEOUT_SECONDS", 30)) * time.Second,
		HTTPAddr:        getenv("HTTP_ADDR", "127.0.0.1:8787"),
		NotifyCommand:   os.Getenv("NOTIFY_COMMAND"),
	}

	return cfg, cfg.SupabaseURL != ""
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvInt(k string, def int) int {
	n, err := strconv.Atoi(os.Getenv(k))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
