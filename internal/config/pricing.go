package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// PricingConfig holds the tariff used for service orders and article fees.
// Amounts are whole UZS.
type PricingConfig struct {
	PrintedPublication PrintedPublicationRates `mapstructure:"printedPublication"`
	Article            ArticleRates            `mapstructure:"article"`
}

type PrintedPublicationRates struct {
	PerPage        int64  `mapstructure:"perPage"`
	HardCover      int64  `mapstructure:"hardCover"`
	SoftCover      int64  `mapstructure:"softCover"`
	ISBN           int64  `mapstructure:"isbn"`
	MinimumTotal   int64  `mapstructure:"minimumTotal"`
	ServiceSlug    string `mapstructure:"serviceSlug"`
	UDCServiceSlug string `mapstructure:"udcServiceSlug"`
}

type ArticleRates struct {
	PartnerMarker string `mapstructure:"partnerMarker"`
}

func DefaultPricingConfig() PricingConfig {
	return PricingConfig{
		PrintedPublication: PrintedPublicationRates{
			PerPage:        400,
			HardCover:      25_000,
			SoftCover:      10_000,
			ISBN:           600_000,
			MinimumTotal:   4_000,
			ServiceSlug:    "printed-publications",
			UDCServiceSlug: "udc-classification",
		},
		Article: ArticleRates{
			PartnerMarker: "hamkor",
		},
	}
}

type PricingConfigHolder struct {
	current atomic.Value // holds PricingConfig
}

// NewStaticPricingConfigHolder returns a holder that never reloads.
func NewStaticPricingConfigHolder(cfg PricingConfig) *PricingConfigHolder {
	holder := &PricingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewPricingConfigHolder() (*PricingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("pricing")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/journalpay/config")
	v.AddConfigPath("/etc/journalpay")
	v.AddConfigPath(".")

	v.SetEnvPrefix("JOURNALPAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultPricingConfig()
	v.SetDefault("pricing.printedPublication.perPage", defaults.PrintedPublication.PerPage)
	v.SetDefault("pricing.printedPublication.hardCover", defaults.PrintedPublication.HardCover)
	v.SetDefault("pricing.printedPublication.softCover", defaults.PrintedPublication.SoftCover)
	v.SetDefault("pricing.printedPublication.isbn", defaults.PrintedPublication.ISBN)
	v.SetDefault("pricing.printedPublication.minimumTotal", defaults.PrintedPublication.MinimumTotal)
	v.SetDefault("pricing.printedPublication.serviceSlug", defaults.PrintedPublication.ServiceSlug)
	v.SetDefault("pricing.printedPublication.udcServiceSlug", defaults.PrintedPublication.UDCServiceSlug)
	v.SetDefault("pricing.article.partnerMarker", defaults.Article.PartnerMarker)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
	}

	var cfg PricingConfig
	if err := v.UnmarshalKey("pricing", &cfg); err != nil {
		return nil, err
	}
	if err := validatePricingConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticPricingConfigHolder(cfg)
	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated PricingConfig
		if err := v.UnmarshalKey("pricing", &updated); err != nil {
			log.Printf("[pricing-config] reload failed: %v", err)
			return
		}
		if err := validatePricingConfig(updated); err != nil {
			log.Printf("[pricing-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[pricing-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *PricingConfigHolder) Get() PricingConfig {
	if h == nil {
		return DefaultPricingConfig()
	}
	cfg, ok := h.current.Load().(PricingConfig)
	if !ok {
		return DefaultPricingConfig()
	}
	return cfg
}

func validatePricingConfig(cfg PricingConfig) error {
	pp := cfg.PrintedPublication
	if pp.PerPage < 0 || pp.HardCover < 0 || pp.SoftCover < 0 || pp.ISBN < 0 || pp.MinimumTotal < 0 {
		return errors.New("pricing.printedPublication rates cannot be negative")
	}
	if strings.TrimSpace(pp.ServiceSlug) == "" {
		return errors.New("pricing.printedPublication.serviceSlug cannot be empty")
	}
	if strings.TrimSpace(cfg.Article.PartnerMarker) == "" {
		return errors.New("pricing.article.partnerMarker cannot be empty")
	}
	return nil
}
