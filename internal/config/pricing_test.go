package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePricingConfig(t *testing.T) {
	assert.NoError(t, ValidatePricingConfig(DefaultPricingConfig()))

	cfg := DefaultPricingConfig()
	cfg.TaxBps = 10001
	assert.Error(t, ValidatePricingConfig(cfg))

	cfg = DefaultPricingConfig()
	cfg.MaxParticipants = 0
	assert.Error(t, ValidatePricingConfig(cfg))

	cfg = DefaultPricingConfig()
	cfg.GroupDiscountThreshold = 0
	assert.Error(t, ValidatePricingConfig(cfg))
}

func TestStaticPricingHolder(t *testing.T) {
	cfg := DefaultPricingConfig()
	cfg.MaxParticipants = 8
	holder := NewStaticPricingHolder(cfg)
	assert.Equal(t, 8, holder.Get().MaxParticipants)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("RAZORPAY_KEY_ID", "")
	t.Setenv("RAZORPAY_KEY_SECRET", "")
	t.Setenv("CHECKOUT_HOLD_TTL", "bogus")

	cfg := Load()
	assert.Equal(t, "trailbook", cfg.AppName)
	assert.False(t, cfg.Razorpay.Configured())
	assert.Equal(t, "https://api.razorpay.com/v1", cfg.Razorpay.BaseURL)
	assert.Equal(t, 15*60, int(cfg.Checkout.HoldTTL.Seconds()))
}
