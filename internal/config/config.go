package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds everything the API and worker need at startup. Values come
// from defaults, then an optional YAML file (CONFIG_FILE), then environment
// variables, each layer overriding the previous.
type Config struct {
	Port             string        `yaml:"port"`
	RunLocal         bool          `yaml:"run_local"`
	LogLevel         string        `yaml:"log_level"`
	ProductsTable    string        `yaml:"products_table"`
	OrdersTable      string        `yaml:"orders_table"`
	ReviewsTable     string        `yaml:"reviews_table"`
	MessagesTable    string        `yaml:"messages_table"`
	IdempotencyTable string        `yaml:"idempotency_table"`
	NotificationsURL string        `yaml:"notifications_queue_url"`
	MetricsNamespace string        `yaml:"metrics_namespace"`
	IdempotencyTTL   time.Duration `yaml:"idempotency_ttl"`
}

// Load builds the configuration.
func Load() (*Config, error) {
	cfg := &Config{
		Port:             "8080",
		LogLevel:         "info",
		MetricsNamespace: "ArtisanMarketplace",
		IdempotencyTTL:   48 * time.Hour,
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.RunLocal = getEnvBool("RUN_LOCAL", cfg.RunLocal)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.ProductsTable = getEnv("PRODUCTS_TABLE", cfg.ProductsTable)
	cfg.OrdersTable = getEnv("ORDERS_TABLE", cfg.OrdersTable)
	cfg.ReviewsTable = getEnv("REVIEWS_TABLE", cfg.ReviewsTable)
	cfg.MessagesTable = getEnv("MESSAGES_TABLE", cfg.MessagesTable)
	cfg.IdempotencyTable = getEnv("IDEMPOTENCY_TABLE", cfg.IdempotencyTable)
	cfg.NotificationsURL = getEnv("NOTIFICATIONS_QUEUE_URL", cfg.NotificationsURL)
	cfg.MetricsNamespace = getEnv("METRICS_NAMESPACE", cfg.MetricsNamespace)

	if ttl := os.Getenv("IDEMPOTENCY_TTL"); ttl != "" {
		d, err := time.ParseDuration(ttl)
		if err != nil {
			return nil, fmt.Errorf("invalid IDEMPOTENCY_TTL: %w", err)
		}
		cfg.IdempotencyTTL = d
	}

	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return nil, fmt.Errorf("invalid port %q", cfg.Port)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		return v == "true"
	}
	return fallback
}
