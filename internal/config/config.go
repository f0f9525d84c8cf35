// Package config provides runtime settings and the task document.
package config

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kelseyhightower/envconfig"
)

// Settings are the process-level knobs read from the environment. The task
// list itself lives in the document at ConfigPath.
type Settings struct {
	ConfigPath string `envconfig:"CONFIG_PATH" default:"config.json"`
	Log        LogSettings
	Monitor    MonitorSettings
	Purchase   PurchaseSettings
	Storefront StorefrontSettings
	History    HistorySettings
	Kafka      KafkaSettings
	Temporal   TemporalSettings
	Status     StatusSettings
}

type LogSettings struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"json"`
}

type MonitorSettings struct {
	PollInterval    time.Duration `envconfig:"MONITOR_POLL_INTERVAL" default:"1s"`
	ChannelCapacity int           `envconfig:"MONITOR_CHANNEL_CAPACITY" default:"32"`
}

type PurchaseSettings struct {
	SessionAttempts int           `envconfig:"PURCHASE_SESSION_ATTEMPTS" default:"6"`
	OrderAttempts   int           `envconfig:"PURCHASE_ORDER_ATTEMPTS" default:"11"`
	AddressAttempts int           `envconfig:"PURCHASE_ADDRESS_ATTEMPTS" default:"11"`
	RetryBackoff    time.Duration `envconfig:"PURCHASE_RETRY_BACKOFF" default:"0s"`
	RefreshVariants bool          `envconfig:"PURCHASE_REFRESH_VARIANTS" default:"false"`
	PaymentMethodID string        `envconfig:"PURCHASE_PAYMENT_METHOD_ID" default:"e13bb06b-392b-49a0-8acd-3f44416e3234"`
}

type StorefrontSettings struct {
	BaseURL   string        `envconfig:"STOREFRONT_BASE_URL"`
	Timeout   time.Duration `envconfig:"STOREFRONT_TIMEOUT" default:"20s"`
	UserAgent string        `envconfig:"STOREFRONT_USER_AGENT"`
}

type HistorySettings struct {
	DBPath string `envconfig:"HISTORY_DB"`
}

type KafkaSettings struct {
	Brokers string `envconfig:"KAFKA_BROKERS"`
	Topic   string `envconfig:"KAFKA_TOPIC" default:"stock-snapshots"`
}

type TemporalSettings struct {
	HostPort  string `envconfig:"TEMPORAL_HOSTPORT"`
	Namespace string `envconfig:"TEMPORAL_NAMESPACE" default:"default"`
	TaskQueue string `envconfig:"TEMPORAL_TASK_QUEUE" default:"restock-checkout"`
}

type StatusSettings struct {
	Addr string `envconfig:"STATUS_ADDR"`
}

// Load collects settings from the environment with defaults.
func Load() (Settings, error) {
	var s Settings
	if err := envconfig.Process("", &s); err != nil {
		return Settings{}, fmt.Errorf("process env config: %w", err)
	}
	if s.Purchase.SessionAttempts < 1 || s.Purchase.OrderAttempts < 1 || s.Purchase.AddressAttempts < 1 {
		return Settings{}, fmt.Errorf("purchase attempts must be at least 1")
	}
	if _, err := uuid.Parse(s.Purchase.PaymentMethodID); err != nil {
		return Settings{}, fmt.Errorf("purchase payment method id: %w", err)
	}
	if s.Monitor.PollInterval <= 0 {
		return Settings{}, fmt.Errorf("monitor poll interval must be positive")
	}
	return s, nil
}
