package config

import (
	"os"
	"strings"
	"sync"
	"testing"
	"time"
)

var envMu sync.Mutex

func TestLoadAll_HappyPath_NoRedis(t *testing.T) {
	envMu.Lock()
	defer envMu.Unlock()

	clearTestEnv(t)

	t.Setenv("BRIDGE_URL", "http://localhost:3001")

	cfg, err := LoadAll()
	if err != nil {
		t.Fatalf("LoadAll() error: %v", err)
	}

	if cfg.Bridge.URL != "http://localhost:3001" {
		t.Fatalf("unexpected Bridge.URL: %q", cfg.Bridge.URL)
	}
	if cfg.Server.Address != ":8080" {
		t.Fatalf("unexpected Server.Address default: %q", cfg.Server.Address)
	}
	if cfg.Storage.DataDir != "./data" {
		t.Fatalf("unexpected DataDir default: %q", cfg.Storage.DataDir)
	}
	if cfg.Scheduler.Interval != 60*time.Second {
		t.Fatalf("unexpected Scheduler.Interval default: %v", cfg.Scheduler.Interval)
	}
	if cfg.Phone.CountryPrefix != "55" {
		t.Fatalf("unexpected CountryPrefix default: %q", cfg.Phone.CountryPrefix)
	}
	if cfg.Bridge.Timeout != 30*time.Second {
		t.Fatalf("unexpected Bridge.Timeout default: %v", cfg.Bridge.Timeout)
	}

	if cfg.Redis.Enabled {
		t.Fatalf("expected Redis disabled when REDIS_ADDR not set")
	}
}

func TestLoadAll_HappyPath_WithRedis(t *testing.T) {
	envMu.Lock()
	defer envMu.Unlock()

	clearTestEnv(t)

	t.Setenv("BRIDGE_URL", "http://localhost:3001")

	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_PASSWORD", "secret")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("REDIS_TTL_SECONDS", "42")

	cfg, err := LoadAll()
	if err != nil {
		t.Fatalf("LoadAll() error: %v", err)
	}

	if !cfg.Redis.Enabled {
		t.Fatalf("expected Redis enabled")
	}
	if cfg.Redis.Address != "localhost:6379" {
		t.Fatalf("unexpected Redis.Address: %q", cfg.Redis.Address)
	}
	if cfg.Redis.Password != "secret" {
		t.Fatalf("unexpected Redis.Password: %q", cfg.Redis.Password)
	}
	if cfg.Redis.DB != 3 {
		t.Fatalf("unexpected Redis.DB: %d", cfg.Redis.DB)
	}
	if cfg.Redis.TTL != 42*time.Second {
		t.Fatalf("unexpected Redis.TTL: %v", cfg.Redis.TTL)
	}
}

func TestLoadAll_RequiredEnvMissing(t *testing.T) {
	envMu.Lock()
	defer envMu.Unlock()

	clearTestEnv(t)

	_, err := LoadAll()
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "BRIDGE_URL") {
		t.Fatalf("expected error mentioning BRIDGE_URL, got: %v", err)
	}
}

func TestLoadAll_Validation(t *testing.T) {
	envMu.Lock()
	defer envMu.Unlock()

	t.Run("non-positive interval", func(t *testing.T) {
		clearTestEnv(t)
		t.Setenv("BRIDGE_URL", "http://localhost:3001")
		t.Setenv("SCHED_INTERVAL_SECONDS", "0")

		_, err := LoadAll()
		if err == nil {
			t.Fatalf("expected error, got nil")
		}
		if !strings.Contains(err.Error(), "SCHED_INTERVAL_SECONDS") {
			t.Fatalf("expected error mentioning SCHED_INTERVAL_SECONDS, got: %v", err)
		}
	})

	t.Run("non-numeric country prefix", func(t *testing.T) {
		clearTestEnv(t)
		t.Setenv("BRIDGE_URL", "http://localhost:3001")
		t.Setenv("COUNTRY_PREFIX", "BR")

		_, err := LoadAll()
		if err == nil {
			t.Fatalf("expected error, got nil")
		}
		if !strings.Contains(err.Error(), "COUNTRY_PREFIX") {
			t.Fatalf("expected error mentioning COUNTRY_PREFIX, got: %v", err)
		}
	})

	t.Run("malformed int env", func(t *testing.T) {
		clearTestEnv(t)
		t.Setenv("BRIDGE_URL", "http://localhost:3001")
		t.Setenv("SCHED_INTERVAL_SECONDS", "abc")

		_, err := LoadAll()
		if err == nil {
			t.Fatalf("expected error, got nil")
		}
		if !strings.Contains(err.Error(), "SCHED_INTERVAL_SECONDS") {
			t.Fatalf("expected error mentioning SCHED_INTERVAL_SECONDS, got: %v", err)
		}
	})
}

func clearTestEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"BRIDGE_URL",
		"BRIDGE_TIMEOUT_SECONDS",
		"SERVER_ADDRESS",
		"DATA_DIR",
		"SCHED_INTERVAL_SECONDS",
		"COUNTRY_PREFIX",
		"REDIS_ADDR",
		"REDIS_PASSWORD",
		"REDIS_DB",
		"REDIS_TTL_SECONDS",
	}
	for _, k := range keys {
		_ = os.Unsetenv(k)
	}
}
