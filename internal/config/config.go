// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTPAddr        string        `yaml:"http_addr"`
	DatabaseURL     string        `yaml:"database_url"`
	DBMaxConns      int           `yaml:"db_max_conns"`
	Env             string        `yaml:"env"`
	AutoMigrate     bool          `yaml:"auto_migrate"`
	PublicBaseURL   string        `yaml:"public_base_url"`
	DedupWindow     time.Duration `yaml:"dedup_window"`
	SubscriberBuf   int           `yaml:"subscriber_buffer"`
	EvictAfter      time.Duration `yaml:"evict_after"`
	JanitorInterval time.Duration `yaml:"janitor_interval"`
	BrowserDriver   string        `yaml:"browser_driver"`
	BrowserBin      string        `yaml:"browser_bin"`
	BrowserHeadless bool          `yaml:"browser_headless"`
	LaunchTimeout   time.Duration `yaml:"launch_timeout"`
	NATSURL         string        `yaml:"nats_url"`
	IngestRate      float64       `yaml:"ingest_rate_per_sec"`
	IngestBurst     int           `yaml:"ingest_burst"`
	AckCacheSize    int           `yaml:"ack_cache_size"`
}

func defaults() Config {
	return Config{
		HTTPAddr:        ":8080",
		Env:             "dev",
		AutoMigrate:     true,
		DBMaxConns:      5,
		PublicBaseURL:   "http://localhost:8080",
		DedupWindow:     300 * time.Millisecond,
		SubscriberBuf:   64,
		EvictAfter:      10 * time.Minute,
		JanitorInterval: 15 * time.Second,
		BrowserDriver:   "rod",
		LaunchTimeout:   30 * time.Second,
		IngestRate:      50,
		IngestBurst:     100,
		AckCacheSize:    4096,
	}
}

// Load reads configuration from the environment on top of defaults.
func Load() Config {
	return applyEnv(defaults())
}

// LoadFile reads a YAML document, then lets environment variables override
// whatever it set.
func LoadFile(path string) (Config, error) {
	cfg := defaults()

	body, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(body, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
	}

	return applyEnv(cfg), nil
}

func applyEnv(cfg Config) Config {
	cfg.HTTPAddr = getenv("HTTP_ADDR", cfg.HTTPAddr)
	cfg.DatabaseURL = getenv("DATABASE_URL", cfg.DatabaseURL)
	cfg.DBMaxConns = getenvInt("DB_MAX_CONNS", cfg.DBMaxConns)
	cfg.Env = getenv("ENV", cfg.Env)
	cfg.AutoMigrate = getenvBool("AUTO_MIGRATE", cfg.AutoMigrate)
	cfg.PublicBaseURL = getenv("PUBLIC_BASE_URL", cfg.PublicBaseURL)
	cfg.DedupWindow = getenvDuration("DEDUP_WINDOW", cfg.DedupWindow)
	cfg.SubscriberBuf = getenvInt("SUBSCRIBER_BUFFER", cfg.SubscriberBuf)
	cfg.EvictAfter = getenvDuration("EVICT_AFTER", cfg.EvictAfter)
	cfg.JanitorInterval = getenvDuration("JANITOR_INTERVAL", cfg.JanitorInterval)
	cfg.BrowserDriver = getenv("BROWSER_DRIVER", cfg.BrowserDriver)
	cfg.BrowserBin = getenv("BROWSER_BIN", cfg.BrowserBin)
	cfg.BrowserHeadless = getenvBool("BROWSER_HEADLESS", cfg.BrowserHeadless)
	cfg.LaunchTimeout = getenvDuration("LAUNCH_TIMEOUT", cfg.LaunchTimeout)
	cfg.NATSURL = getenv("NATS_URL", cfg.NATSURL)
	cfg.IngestRate = getenvFloat("INGEST_RATE_PER_SEC", cfg.IngestRate)
	cfg.IngestBurst = getenvInt("INGEST_BURST", cfg.IngestBurst)
	cfg.AckCacheSize = getenvInt("ACK_CACHE_SIZE", cfg.AckCacheSize)
	return cfg
}

func getenv(key, defaultValue string) string {
	v := os.Getenv(key)
	if v != "" {
		return v
	}
	return defaultValue
}

func getenvBool(key string, defaultValue bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultValue
	}
	return b
}

func getenvInt(key string, defaultValue int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}

func getenvFloat(key string, defaultValue float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return defaultValue
	}
	return f
}

func getenvDuration(key string, defaultValue time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}
