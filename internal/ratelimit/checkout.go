package ratelimit

import (
	"context"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/trailbook/internal/config"
)

const keyCreateOrderClient = "checkout:create_order:%s"

// CheckoutLimiter throttles order creation per client address.
type CheckoutLimiter struct {
	limiter       *GCRA
	ratePerSecond float64
	burst         int
}

func NewCheckoutLimiter(client *redis.Client, cfg config.Config) *CheckoutLimiter {
	if client == nil || cfg.Checkout.CreateOrderRate <= 0 || cfg.Checkout.CreateOrderBurst <= 0 {
		return nil
	}
	return &CheckoutLimiter{
		limiter:       NewGCRA(client),
		ratePerSecond: float64(cfg.Checkout.CreateOrderRate) / 60,
		burst:         cfg.Checkout.CreateOrderBurst,
	}
}

func (l *CheckoutLimiter) Enabled() bool {
	return l != nil && l.limiter != nil
}

func (l *CheckoutLimiter) AllowCreateOrder(ctx context.Context, clientIP string) (Result, error) {
	if !l.Enabled() {
		return Result{Allowed: true}, nil
	}
	key := fmt.Sprintf(keyCreateOrderClient, strings.TrimSpace(clientIP))
	return l.limiter.Allow(ctx, key, l.ratePerSecond, l.burst)
}
