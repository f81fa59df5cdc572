package cache

import (
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/trailbook/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Cfg    config.Config
	Log    *zap.Logger
	Client *redis.Client `optional:"true"`
}

var Module = fx.Module("cache",
	fx.Provide(func(p Params) EventCache {
		return NewEventCache(p.Client, p.Cfg.EventsCacheTTL, p.Log)
	}),
)
