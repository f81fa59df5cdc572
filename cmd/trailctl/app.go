package main

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/trailbook/internal/audit"
	"github.com/smallbiznis/trailbook/internal/booking"
	"github.com/smallbiznis/trailbook/internal/cache"
	"github.com/smallbiznis/trailbook/internal/checkout"
	"github.com/smallbiznis/trailbook/internal/clock"
	"github.com/smallbiznis/trailbook/internal/config"
	"github.com/smallbiznis/trailbook/internal/event"
	"github.com/smallbiznis/trailbook/internal/notification"
	"github.com/smallbiznis/trailbook/internal/observability"
	"github.com/smallbiznis/trailbook/internal/payment"
	"github.com/smallbiznis/trailbook/internal/providers"
	"github.com/smallbiznis/trailbook/internal/ratelimit"
	"github.com/smallbiznis/trailbook/pkg/db"
	"go.uber.org/fx"
)

const startTimeout = 30 * time.Second

// coreModules wires storage and logging without the HTTP server.
func coreModules() fx.Option {
	return fx.Options(
		config.Module,
		fx.Decorate(func(cfg config.Config) config.Config {
			// the CLI drives jobs itself
			cfg.Scheduler.Enabled = false
			return cfg
		}),
		observability.Module,
		fx.Provide(func(cfg config.Config) (*snowflake.Node, error) {
			return snowflake.NewNode(cfg.NodeID)
		}),
		db.Module,
		clock.Module,
		fx.NopLogger,
	)
}

// bookingModules adds everything the checkout lifecycle depends on.
func bookingModules() fx.Option {
	return fx.Options(
		audit.Module,
		cache.Module,
		event.Module,
		booking.Module,
		payment.Module,
		providers.Module,
		notification.Module,
		ratelimit.Module,
		checkout.Module,
	)
}

// runApp starts an fx app long enough to call fn with its populated targets.
func runApp(ctx context.Context, fn func(context.Context) error, opts ...fx.Option) error {
	app := fx.New(opts...)
	if err := app.Err(); err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(ctx, startTimeout)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return err
	}

	runErr := fn(ctx)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), startTimeout)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil && runErr == nil {
		return err
	}
	return runErr
}
