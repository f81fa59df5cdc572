package payment

import (
	"github.com/smallbiznis/trailbook/internal/config"
	"github.com/smallbiznis/trailbook/internal/payment/domain"
	"github.com/smallbiznis/trailbook/internal/payment/gateway/razorpay"
	"github.com/smallbiznis/trailbook/internal/payment/repository"
	paymentservice "github.com/smallbiznis/trailbook/internal/payment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(func(cfg config.Config) domain.Gateway {
		return razorpay.New(razorpay.Config{
			KeyID:     cfg.Razorpay.KeyID,
			KeySecret: cfg.Razorpay.KeySecret,
			BaseURL:   cfg.Razorpay.BaseURL,
			Timeout:   cfg.Razorpay.Timeout,
		})
	}),
	fx.Provide(paymentservice.NewService),
)
