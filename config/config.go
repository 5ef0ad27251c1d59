package config

import (
	"log/slog"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// Server configuration
	Environment string

	// Redis configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// PubNub configuration
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string

	// Ticketing
	RequirePayment         bool
	CodeGenerationAttempts int
	PurchaseGuardTTL       time.Duration
	ExpireWorkers          int
	PaymentWebhookToken    string

	// Scan protection
	ScanRateLimit  int
	ScanRateWindow time.Duration

	// Monitoring
	EnableMetrics bool
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENVIRONMENT", "development")

	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("PUBNUB_PUBLISH_KEY", "")
	v.SetDefault("PUBNUB_SUBSCRIBE_KEY", "")
	v.SetDefault("PUBNUB_SECRET_KEY", "")

	v.SetDefault("TICKET_REQUIRE_PAYMENT", false)
	v.SetDefault("CODE_GENERATION_ATTEMPTS", 5)
	v.SetDefault("PURCHASE_GUARD_TTL", "10s")
	v.SetDefault("EXPIRE_WORKERS", 8)
	v.SetDefault("PAYMENT_WEBHOOK_TOKEN", "")

	v.SetDefault("SCAN_RATE_LIMIT", 60)
	v.SetDefault("SCAN_RATE_WINDOW", "1m")

	v.SetDefault("ENABLE_METRICS", true)
}

// LoadConfig reads the configuration from the environment.
func LoadConfig() *Config {
	return load(viper.New())
}

func load(v *viper.Viper) *Config {
	setDefaults(v)
	v.AutomaticEnv()

	cfg := &Config{
		Environment: v.GetString("ENVIRONMENT"),

		RedisURL:      v.GetString("REDIS_URL"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		RedisDB:       v.GetInt("REDIS_DB"),

		PubNubPublishKey:   v.GetString("PUBNUB_PUBLISH_KEY"),
		PubNubSubscribeKey: v.GetString("PUBNUB_SUBSCRIBE_KEY"),
		PubNubSecretKey:    v.GetString("PUBNUB_SECRET_KEY"),

		RequirePayment:         v.GetBool("TICKET_REQUIRE_PAYMENT"),
		CodeGenerationAttempts: v.GetInt("CODE_GENERATION_ATTEMPTS"),
		PurchaseGuardTTL:       v.GetDuration("PURCHASE_GUARD_TTL"),
		ExpireWorkers:          v.GetInt("EXPIRE_WORKERS"),
		PaymentWebhookToken:    v.GetString("PAYMENT_WEBHOOK_TOKEN"),

		ScanRateLimit:  v.GetInt("SCAN_RATE_LIMIT"),
		ScanRateWindow: v.GetDuration("SCAN_RATE_WINDOW"),

		EnableMetrics: v.GetBool("ENABLE_METRICS"),
	}

	if cfg.CodeGenerationAttempts < 1 {
		slog.Warn("CODE_GENERATION_ATTEMPTS must be positive, using default", "value", cfg.CodeGenerationAttempts)
		cfg.CodeGenerationAttempts = 5
	}
	if cfg.ExpireWorkers < 1 {
		cfg.ExpireWorkers = 1
	}
	if cfg.PurchaseGuardTTL <= 0 {
		cfg.PurchaseGuardTTL = 10 * time.Second
	}
	if cfg.ScanRateWindow <= 0 {
		cfg.ScanRateWindow = time.Minute
	}
	return cfg
}

func (c *Config) RedisEnabled() bool {
	return c.RedisURL != ""
}

func (c *Config) PubNubEnabled() bool {
	return c.PubNubPublishKey != "" && c.PubNubSubscribeKey != ""
}
