package config

import (
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig(t *testing.T) {
	t.Run("Success loading from env", func(t *testing.T) {
		t.Setenv("SUPABASE_URL", "https://project.supabase.co")
		t.Setenv("SUPABASE_ANON_KEY", "anon-key")
		t.Setenv("STATUS_STORE", "postgres")
		t.Setenv("DB_HOST", "localhost")
		t.Setenv("DB_USER", "testuser")
		t.Setenv("DB_PASSWORD", "testpass")
		t.Setenv("DB_NAME", "testdb")
		t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
		t.Setenv("POLL_INTERVAL_MINUTES", "5")
		t.Setenv("TASK_TIMEOUT_SECONDS", "20")
		t.Setenv("APP_ENV", "test")

		cfg := LoadConfig()

		assert.NotNil(t, cfg)
		assert.Equal(t, "https://project.supabase.co", cfg.SupabaseURL)
		assert.Equal(t, "anon-key", cfg.SupabaseAnonKey)
		assert.Equal(t, "postgres", cfg.StatusStore)
		assert.Equal(t, "localhost", cfg.DBHost)
		assert.Equal(t, "testuser", cfg.DBUser)
		assert.Equal(t, "testpass", cfg.DBPassword)
		assert.Equal(t, "testdb", cfg.DBName)
		assert.Equal(t, "5432", cfg.DBPort)
		assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
		assert.Equal(t, 5*time.Minute, cfg.PollInterval)
		assert.Equal(t, 20*time.Second, cfg.TaskTimeout)
		assert.Equal(t, "test", cfg.AppEnv)
	})

	t.Run("Defaults", func(t *testing.T) {
		t.Setenv("SUPABASE_URL", "https://project.supabase.co")
		t.Setenv("STATUS_STORE", "")
		t.Setenv("POLL_INTERVAL_MINUTES", "not-a-number")
		t.Setenv("TASK_TIMEOUT_SECONDS", "-3")

		cfg := LoadConfig()

		assert.Equal(t, "file", cfg.StatusStore)
		assert.Equal(t, "order_status.json", cfg.StatusStorePath)
		assert.Equal(t, "realtime", cfg.FeedSource)
		assert.Equal(t, 15*time.Minute, cfg.PollInterval)
		assert.Equal(t, 30*time.Second, cfg.TaskTimeout)
		assert.Empty(t, cfg.KafkaBrokers)
	})
}

func TestLoadConfig_MissingURL(t *testing.T) {
	// LoadConfig calls log.Fatal, so run it in a subprocess.
	if os.Getenv("CONFIG_CRASHER") == "1" {
		os.Setenv("SUPABASE_URL", "")
		LoadConfig()
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=TestLoadConfig_MissingURL")
	cmd.Env = append(os.Environ(), "CONFIG_CRASHER=1")
	err := cmd.Run()

	if e, ok := err.(*exec.ExitError); ok && !e.Success() {
		return
	}
	t.Fatalf("process ran with err %v, want exit status 1", err)
}
