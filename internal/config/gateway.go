package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v10"
)

// ClickConfig carries the Click merchant credentials shared with the gateway.
type ClickConfig struct {
	ServiceID      string `env:"CLICK_SERVICE_ID"`
	MerchantID     string `env:"CLICK_MERCHANT_ID"`
	MerchantUserID string `env:"CLICK_MERCHANT_USER_ID"`
	SecretKey      string `env:"CLICK_SECRET_KEY,required,notEmpty"`
	PayURL         string `env:"CLICK_PAY_URL" envDefault:"https://my.click.uz/services/pay"`
	ReturnURL      string `env:"CLICK_RETURN_URL" envDefault:"http://localhost:5173/#/payment-status"`
}

// KafkaConfig configures the payment event outbox publisher.
type KafkaConfig struct {
	Brokers        []string `env:"KAFKA_BROKERS" envSeparator:","`
	Topic          string   `env:"KAFKA_PAYMENT_TOPIC" envDefault:"journalpay.payments"`
	BatchSize      int      `env:"OUTBOX_BATCH_SIZE" envDefault:"50"`
	IntervalMillis int      `env:"OUTBOX_INTERVAL_MS" envDefault:"1000"`
	MaxRetries     int      `env:"OUTBOX_MAX_RETRIES" envDefault:"3"`
	BackoffMillis  int      `env:"OUTBOX_BACKOFF_MS" envDefault:"200"`
}

func (k KafkaConfig) Enabled() bool {
	for _, b := range k.Brokers {
		if strings.TrimSpace(b) != "" {
			return true
		}
	}
	return false
}

// ErrClickSecretMissing is returned when CLICK_SECRET_KEY is blank.
var ErrClickSecretMissing = errors.New("click_secret_key_missing")

func LoadClick() (ClickConfig, error) {
	var cfg ClickConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse click env: %w", err)
	}
	cfg.ServiceID = strings.TrimSpace(cfg.ServiceID)
	cfg.MerchantID = strings.TrimSpace(cfg.MerchantID)
	cfg.MerchantUserID = strings.TrimSpace(cfg.MerchantUserID)
	cfg.SecretKey = strings.TrimSpace(cfg.SecretKey)
	if cfg.SecretKey == "" {
		return cfg, ErrClickSecretMissing
	}
	return cfg, nil
}

func LoadKafka() (KafkaConfig, error) {
	var cfg KafkaConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse kafka env: %w", err)
	}
	brokers := make([]string, 0, len(cfg.Brokers))
	for _, b := range cfg.Brokers {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	cfg.Brokers = brokers
	return cfg, nil
}
