package broker

import (
	"context"

	"github.com/smallbiznis/trailbook/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("providers.broker",
	fx.Provide(NewFromConfig),
)

// NewFromConfig returns a no-op publisher when AMQP_URL is unset or the broker
// is unreachable at startup; bookings must not depend on the broker.
func NewFromConfig(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) Publisher {
	log = log.Named("providers.broker")
	if cfg.Broker.URL == "" {
		log.Info("amqp url not configured, domain messages are disabled")
		return NoopPublisher{}
	}

	publisher, err := NewAMQP(cfg.Broker.URL, cfg.Broker.Exchange)
	if err != nil {
		log.Error("rabbitmq unavailable, domain messages are disabled", zap.Error(err))
		return NoopPublisher{}
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return publisher.Close()
		},
	})
	log.Info("rabbitmq publisher ready", zap.String("exchange", cfg.Broker.Exchange))
	return publisher
}
