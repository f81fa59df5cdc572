package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/smallbiznis/trailbook/internal/config"
	"github.com/smallbiznis/trailbook/internal/scheduler"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func reconcileCmd() *cobra.Command {
	var jobs []string

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Run the booking lifecycle jobs once",
		Long: `Run the scheduler jobs a single time and exit.

Jobs: abandon_checkouts, complete_bookings, settle_refunds, trip_reminders.

Examples:
  trailctl reconcile
  trailctl reconcile --job settle_refunds`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var sched *scheduler.Scheduler
			return runApp(cmd.Context(), func(ctx context.Context) error {
				if err := sched.RunOnce(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "reconcile finished")
				return nil
			},
				coreModules(),
				bookingModules(),
				fx.Provide(func(cfg config.Config) scheduler.Config {
					schedCfg := scheduler.ProvideConfig(cfg)
					schedCfg.EnabledJobs = normalizeJobs(jobs)
					return schedCfg
				}),
				fx.Provide(scheduler.New),
				fx.Populate(&sched),
			)
		},
	}

	cmd.Flags().StringSliceVar(&jobs, "job", nil, "limit the run to these jobs")
	return cmd
}

func normalizeJobs(jobs []string) []string {
	out := make([]string, 0, len(jobs))
	for _, job := range jobs {
		job = strings.TrimSpace(job)
		if job != "" {
			out = append(out, job)
		}
	}
	return out
}
