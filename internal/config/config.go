package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server    ServerConfig
	Bridge    BridgeConfig
	Storage   StorageConfig
	Redis     RedisConfig
	Scheduler SchedulerConfig
	Phone     PhoneConfig
}

type ServerConfig struct {
	Address string
}

type BridgeConfig struct {
	URL     string
	Timeout time.Duration
}

type StorageConfig struct {
	DataDir string
}

type RedisConfig struct {
	Enabled  bool
	Address  string
	Password string
	DB       int
	TTL      time.Duration
}

type SchedulerConfig struct {
	Interval time.Duration
}

type PhoneConfig struct {
	CountryPrefix string
}

func LoadAll() (*Config, error) {
	bridgeURL, err := mustEnv("BRIDGE_URL")
	if err != nil {
		return nil, err
	}

	redisCfg, err := loadRedisConfig()
	if err != nil {
		return nil, err
	}

	interval, err := getEnvInt("SCHED_INTERVAL_SECONDS", 60)
	if err != nil {
		return nil, err
	}
	timeout, err := getEnvInt("BRIDGE_TIMEOUT_SECONDS", 30)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Address: getEnv("SERVER_ADDRESS", ":8080"),
		},
		Bridge: BridgeConfig{
			URL:     bridgeURL,
			Timeout: time.Duration(timeout) * time.Second,
		},
		Storage: StorageConfig{
			DataDir: getEnv("DATA_DIR", "./data"),
		},
		Scheduler: SchedulerConfig{
			Interval: time.Duration(interval) * time.Second,
		},
		Phone: PhoneConfig{
			CountryPrefix: getEnv("COUNTRY_PREFIX", "55"),
		},
		Redis: redisCfg,
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadRedisConfig() (RedisConfig, error) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return RedisConfig{Enabled: false}, nil
	}

	db, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return RedisConfig{}, err
	}
	ttl, err := getEnvInt("REDIS_TTL_SECONDS", 86400)
	if err != nil {
		return RedisConfig{}, err
	}

	return RedisConfig{
		Enabled:  true,
		Address:  addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
		TTL:      time.Duration(ttl) * time.Second,
	}, nil
}

func validate(cfg *Config) error {
	if cfg.Scheduler.Interval <= 0 {
		return fmt.Errorf("SCHED_INTERVAL_SECONDS must be > 0")
	}
	if cfg.Bridge.Timeout <= 0 {
		return fmt.Errorf("BRIDGE_TIMEOUT_SECONDS must be > 0")
	}
	if cfg.Phone.CountryPrefix == "" {
		return fmt.Errorf("COUNTRY_PREFIX must not be empty")
	}
	for _, r := range cfg.Phone.CountryPrefix {
		if r < '0' || r > '9' {
			return fmt.Errorf("COUNTRY_PREFIX must be digits only, got %q", cfg.Phone.CountryPrefix)
		}
	}
	return nil
}

func mustEnv(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("missing required env var: %s", key)
	}
	return val, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid int for env %s: %s", key, v)
	}
	return i, nil
}
