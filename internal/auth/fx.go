package auth

import (
	"context"

	"github.com/smallbiznis/trailbook/internal/auth/domain"
	"github.com/smallbiznis/trailbook/internal/auth/repository"
	"github.com/smallbiznis/trailbook/internal/auth/service"
	"github.com/smallbiznis/trailbook/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("auth.service",
	fx.Provide(repository.New),
	fx.Provide(service.New),
	fx.Invoke(seedAdmin),
)

// seedAdmin makes sure the configured operator can log in after boot.
func seedAdmin(lc fx.Lifecycle, cfg config.Config, svc domain.Service, log *zap.Logger) {
	if cfg.Admin.Username == "" || cfg.Admin.Password == "" {
		log.Warn("ADMIN_USERNAME or ADMIN_PASSWORD not set; skipping admin seed")
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			_, err := svc.Upsert(ctx, cfg.Admin.Username, cfg.Admin.Password, domain.RoleAdmin)
			return err
		},
	})
}
