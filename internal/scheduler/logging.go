package scheduler

import (
	"context"
	"time"

	bookingdomain "github.com/smallbiznis/trailbook/internal/booking/domain"
	obscontext "github.com/smallbiznis/trailbook/internal/observability/context"
	obslogger "github.com/smallbiznis/trailbook/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/trailbook/internal/observability/metrics"
	"github.com/smallbiznis/trailbook/pkg/telemetry/correlation"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// runStats counts what a single job invocation did to bookings. Nested sweeps
// share the stats of the outermost run found on the context.
type runStats struct {
	job     string
	id      string
	batch   int
	started time.Time

	moved   int
	skipped int
	failed  int
}

type runStatsKey struct{}

func (r *runStats) fields() []zap.Field {
	return []zap.Field{
		zap.String("job", r.job),
		zap.String("run_id", r.id),
		zap.Int64("duration_ms", time.Since(r.started).Milliseconds()),
		zap.Int("moved", r.moved),
		zap.Int("skipped", r.skipped),
		zap.Int("failed", r.failed),
	}
}

// level is debug for idle runs so an empty queue does not fill the logs.
func (r *runStats) level() zapcore.Level {
	switch {
	case r.failed > 0:
		return zapcore.WarnLevel
	case r.moved > 0:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

// beginRun attaches stats to ctx unless an outer run already did. owner is
// true for the call that created them and must call endRun.
func (s *Scheduler) beginRun(ctx context.Context, job string, batch int) (_ context.Context, stats *runStats, owner bool) {
	if stats, ok := ctx.Value(runStatsKey{}).(*runStats); ok {
		return ctx, stats, false
	}
	stats = &runStats{
		job:     job,
		id:      s.genID.Generate().String(),
		batch:   batch,
		started: time.Now(),
	}
	ctx = obscontext.WithActor(context.WithValue(ctx, runStatsKey{}, stats), "system", "scheduler")
	ctx = correlation.WithID(ctx, stats.id)
	s.logger(ctx).Debug("scheduler run started",
		zap.String("job", job),
		zap.String("run_id", stats.id),
		zap.Int("batch_size", batch),
	)
	return ctx, stats, true
}

func (s *Scheduler) endRun(ctx context.Context, stats *runStats) {
	if ce := s.logger(ctx).Check(stats.level(), "scheduler run finished"); ce != nil {
		ce.Write(stats.fields()...)
	}
}

func (s *Scheduler) logger(ctx context.Context) *zap.Logger {
	return obslogger.WithContext(ctx, s.log)
}

func (s *Scheduler) bookingFailed(ctx context.Context, stats *runStats, booking *bookingdomain.Booking, err error) {
	stats.failed++
	s.logger(ctx).Error("scheduler booking step failed",
		zap.String("job", stats.job),
		zap.String("booking_ref", booking.BookingRef),
		zap.String("status", string(booking.Status)),
		zap.String("error_reason", obsmetrics.ClassifySchedulerJobReason(err)),
		zap.Bool("retryable", obsmetrics.IsSchedulerErrorRetryable(err)),
		zap.Error(err),
	)
}
