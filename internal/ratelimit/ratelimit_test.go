package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smallbiznis/trailbook/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilLockerRunsUnguarded(t *testing.T) {
	var l *Locker
	called := false
	err := l.WithLock(context.Background(), "booking:verify:TRV1", time.Second, time.Second, func() error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)

	boom := errors.New("boom")
	assert.ErrorIs(t, l.WithLock(context.Background(), "k", time.Second, time.Second, func() error { return boom }), boom)
}

func TestNilLockerTryLock(t *testing.T) {
	var l *Locker
	_, ok, err := l.TryLock(context.Background(), "k", time.Second)
	assert.False(t, ok)
	assert.Error(t, err)
	assert.NoError(t, l.Release(context.Background(), "k", "token"))
}

func TestCheckoutLimiterDisabledWithoutRedis(t *testing.T) {
	cfg := config.Config{Checkout: config.CheckoutConfig{CreateOrderRate: 10, CreateOrderBurst: 10}}
	limiter := NewCheckoutLimiter(nil, cfg)
	assert.False(t, limiter.Enabled())

	res, err := limiter.AllowCreateOrder(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestGCRAValidation(t *testing.T) {
	var limiter *GCRA
	_, err := limiter.Allow(context.Background(), "k", 1, 1)
	assert.ErrorIs(t, err, errLimiterUnset)
	assert.Nil(t, NewGCRA(nil))
}

func TestEmissionInterval(t *testing.T) {
	assert.Equal(t, 6000.0, emissionMillis(10.0/60))
	assert.Equal(t, 100.0, emissionMillis(10))
}
