package main

import (
	"context"
	"fmt"

	"github.com/smallbiznis/trailbook/internal/config"
	"github.com/smallbiznis/trailbook/internal/migration"
	"github.com/smallbiznis/trailbook/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
				if err := migration.Apply(conn, cfg, log); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
				return nil
			})
		},
	})

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back postgres migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPostgres(func(conn *gorm.DB) error {
				sqlDB, err := conn.DB()
				if err != nil {
					return err
				}
				if err := migration.RollbackMigrations(sqlDB, steps); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "rolled back %d migration(s)\n", steps)
				return nil
			})
		},
	}
	down.Flags().IntVarP(&steps, "steps", "n", 1, "number of migrations to roll back")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the applied migration version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPostgres(func(conn *gorm.DB) error {
				sqlDB, err := conn.DB()
				if err != nil {
					return err
				}
				version, dirty, err := migration.Version(sqlDB)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty=%t)\n", version, dirty)
				return nil
			})
		},
	})

	return cmd
}

func withDB(fn func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error) error {
	cfg := config.Load()
	log, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	conn, err := db.New(nil, cfg, log)
	if err != nil {
		return err
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()
	if err := sqlDB.PingContext(context.Background()); err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	return fn(conn, cfg, log)
}

func withPostgres(fn func(conn *gorm.DB) error) error {
	return withDB(func(conn *gorm.DB, cfg config.Config, _ *zap.Logger) error {
		if conn.Dialector.Name() != "postgres" {
			return fmt.Errorf("versioned migrations need postgres, DATABASE_TYPE is %q", cfg.DBType)
		}
		return fn(conn)
	})
}
