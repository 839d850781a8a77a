// internal/config/config.go
package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port string

	DBUser string
	DBPass string
	DBHost string
	DBPort string
	DBName string

	// Shared secret for the periodic tick trigger.
	CronSecret string

	// Outbound gateway.
	GatewayURL      string
	DispatchTimeout time.Duration

	// Pacing.
	PacingInterval time.Duration
	PacingJitter   time.Duration

	// Per-tick bounds.
	DiscoveryLimit int
	GlobalSendCap  int
	PendingBatch   int

	// Optional delivery-event broker; empty disables publishing.
	AMQPURL    string
	WebhookURL string
}

// Load reads configuration from the environment. Callers load .env first via
// godotenv; missing values fall back to development defaults.
func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8080"),

		DBUser: getEnv("DB_USER", "postgres"),
		DBPass: getEnv("DB_PASSWORD", "postgres"),
		DBHost: getEnv("DB_HOST", "localhost"),
		DBPort: getEnv("DB_PORT", "5432"),
		DBName: getEnv("DB_NAME", "vitoria"),

		CronSecret: os.Getenv("CRON_SECRET"),

		GatewayURL:      getEnv("GATEWAY_URL", "http://localhost:8081"),
		DispatchTimeout: getDuration("DISPATCH_TIMEOUT", 5*time.Second),

		PacingInterval: getDuration("PACING_INTERVAL", 15*time.Second),
		PacingJitter:   getDuration("PACING_JITTER", 10*time.Second),

		DiscoveryLimit: getInt("DISCOVERY_LIMIT", 30),
		GlobalSendCap:  getInt("GLOBAL_SEND_CAP", 50),
		PendingBatch:   getInt("PENDING_BATCH", 25),

		AMQPURL:    os.Getenv("AMQP_URL"),
		WebhookURL: os.Getenv("DELIVERY_WEBHOOK_URL"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
