package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/trailbook/internal/clock"
	"github.com/smallbiznis/trailbook/internal/config"
	"github.com/smallbiznis/trailbook/internal/migration"
	"github.com/smallbiznis/trailbook/internal/observability"
	"github.com/smallbiznis/trailbook/internal/scheduler"
	"github.com/smallbiznis/trailbook/internal/server"
	"github.com/smallbiznis/trailbook/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		server.Module,
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
