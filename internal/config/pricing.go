package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// PricingConfig holds the rates applied when quoting a booking. Rates are
// expressed in basis points (1/100 of a percent).
type PricingConfig struct {
	GroupDiscountBps       int64 `mapstructure:"groupDiscountBps"`
	GroupDiscountThreshold int   `mapstructure:"groupDiscountThreshold"`
	BookingFeeBps          int64 `mapstructure:"bookingFeeBps"`
	ProcessingFeeBps       int64 `mapstructure:"processingFeeBps"`
	TaxBps                 int64 `mapstructure:"taxBps"`
	MaxParticipants        int   `mapstructure:"maxParticipants"`
	AmountToleranceRupees  int64 `mapstructure:"amountToleranceRupees"`
}

func DefaultPricingConfig() PricingConfig {
	return PricingConfig{
		GroupDiscountBps:       1000,
		GroupDiscountThreshold: 5,
		BookingFeeBps:          500,
		ProcessingFeeBps:       200,
		TaxBps:                 1800,
		MaxParticipants:        20,
		AmountToleranceRupees:  1,
	}
}

type PricingConfigHolder struct {
	current atomic.Value // holds PricingConfig
}

// NewStaticPricingHolder returns a holder that never reloads.
func NewStaticPricingHolder(cfg PricingConfig) *PricingConfigHolder {
	holder := &PricingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewPricingConfigHolder(log *zap.Logger) (*PricingConfigHolder, error) {
	log = log.Named("config.pricing")
	v := viper.New()

	v.SetConfigName("pricing")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/trailbook/config")
	v.AddConfigPath("/etc/trailbook")
	v.AddConfigPath(".")

	v.SetEnvPrefix("TRAILBOOK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultPricingConfig()
	v.SetDefault("pricing.groupDiscountBps", defaults.GroupDiscountBps)
	v.SetDefault("pricing.groupDiscountThreshold", defaults.GroupDiscountThreshold)
	v.SetDefault("pricing.bookingFeeBps", defaults.BookingFeeBps)
	v.SetDefault("pricing.processingFeeBps", defaults.ProcessingFeeBps)
	v.SetDefault("pricing.taxBps", defaults.TaxBps)
	v.SetDefault("pricing.maxParticipants", defaults.MaxParticipants)
	v.SetDefault("pricing.amountToleranceRupees", defaults.AmountToleranceRupees)

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
	if err := ValidatePricingConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticPricingHolder(cfg)
	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated PricingConfig
		if err := v.UnmarshalKey("pricing", &updated); err != nil {
			log.Warn("reload failed", zap.String("file", e.Name), zap.Error(err))
			return
		}
		if err := ValidatePricingConfig(updated); err != nil {
			log.Warn("invalid config ignored", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *PricingConfigHolder) Get() PricingConfig {
	return h.current.Load().(PricingConfig)
}

func ValidatePricingConfig(cfg PricingConfig) error {
	for _, bps := range []int64{cfg.GroupDiscountBps, cfg.BookingFeeBps, cfg.ProcessingFeeBps, cfg.TaxBps} {
		if bps < 0 || bps > 10000 {
			return errors.New("pricing rates must be between 0 and 10000 bps")
		}
	}
	if cfg.GroupDiscountThreshold < 1 {
		return errors.New("pricing.groupDiscountThreshold must be positive")
	}
	if cfg.MaxParticipants < 1 {
		return errors.New("pricing.maxParticipants must be positive")
	}
	if cfg.AmountToleranceRupees < 0 {
		return errors.New("pricing.amountToleranceRupees cannot be negative")
	}
	return nil
}
