package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	bookingdomain "github.com/smallbiznis/trailbook/internal/booking/domain"
	checkoutdomain "github.com/smallbiznis/trailbook/internal/checkout/domain"
	"github.com/smallbiznis/trailbook/internal/clock"
	obsmetrics "github.com/smallbiznis/trailbook/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	JobAbandonCheckouts = "abandon_checkouts"
	JobCompleteBookings = "complete_bookings"
	JobSettleRefunds    = "settle_refunds"
	JobTripReminders    = "trip_reminders"
)

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Bookings bookingdomain.Repository
	Checkout checkoutdomain.Service
	Config   Config `optional:"true"`
}

type Scheduler struct {
	db       *gorm.DB
	log      *zap.Logger
	cfg      Config
	genID    *snowflake.Node
	clock    clock.Clock
	bookings bookingdomain.Repository
	checkout checkoutdomain.Service
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.GenID == nil || p.Clock == nil || p.Bookings == nil || p.Checkout == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:       p.DB,
		log:      p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:      p.Config.withDefaults(),
		genID:    p.GenID,
		clock:    p.Clock,
		bookings: p.Bookings,
		checkout: p.Checkout,
	}, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	batchSize int,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, stats, owner := s.beginRun(ctx, name, batchSize)
	log := s.logger(ctx).With(
		zap.String("job", name),
		zap.String("run_id", stats.id),
	)
	schedMetrics := obsmetrics.Scheduler()
	schedMetrics.IncJobRun(name)

	err := fn(ctx)
	schedMetrics.ObserveJobDuration(name, time.Since(start))
	if owner {
		if err != nil && stats.failed == 0 {
			stats.failed++
		}
		s.endRun(ctx, stats)
	}
	if err == nil {
		return nil
	}

	// deadline is a soft timeout; the next tick resumes the backlog
	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	if isTimeout {
		schedMetrics.IncJobTimeout(name)
	}
	schedMetrics.IncJobError(name, err)
	if isTimeout {
		log.Warn("job timed out",
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

// RunOnce runs every enabled job a single time and joins their errors.
func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name string
		Run  func(context.Context) error
	}{
		{JobAbandonCheckouts, s.AbandonCheckoutsJob},
		{JobCompleteBookings, s.CompleteBookingsJob},
		{JobSettleRefunds, s.SettleRefundsJob},
		{JobTripReminders, s.TripRemindersJob},
	}

	for _, job := range jobs {
		if !s.isJobEnabled(job.Name) {
			continue
		}
		err = errors.Join(err, s.runJob(parent, job.Name, s.cfg.BatchSize, s.cfg.JobTimeout, job.Run))
	}
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := time.Now().Add(s.cfg.RunInterval)
	schedMetrics := obsmetrics.Scheduler()

	for {
		runLag := time.Since(nextRun)
		if runLag > 0 {
			schedMetrics.ObserveRunLoopLag(runLag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	// an empty list enables every job
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}

// AbandonCheckoutsJob cancels pending bookings whose seat hold lapsed more
// than AbandonAfter ago.
func (s *Scheduler) AbandonCheckoutsJob(ctx context.Context) error {
	return s.sweep(ctx, JobAbandonCheckouts, bookingdomain.StatusCancelled,
		func(ctx context.Context, now time.Time) ([]*bookingdomain.Booking, error) {
			return s.bookings.ListAbandoned(ctx, s.db, now.Add(-s.cfg.AbandonAfter), s.cfg.BatchSize)
		},
		s.checkout.Abandon,
	)
}

// CompleteBookingsJob marks confirmed bookings whose event date has passed.
func (s *Scheduler) CompleteBookingsJob(ctx context.Context) error {
	return s.sweep(ctx, JobCompleteBookings, bookingdomain.StatusCompleted,
		func(ctx context.Context, now time.Time) ([]*bookingdomain.Booking, error) {
			return s.bookings.ListPastEvents(ctx, s.db, now, s.cfg.BatchSize)
		},
		s.checkout.Complete,
	)
}

// SettleRefundsJob retries gateway refunds left pending by a cancellation.
func (s *Scheduler) SettleRefundsJob(ctx context.Context) error {
	return s.sweep(ctx, JobSettleRefunds, bookingdomain.StatusRefunded,
		func(ctx context.Context, _ time.Time) ([]*bookingdomain.Booking, error) {
			return s.bookings.ListPendingRefunds(ctx, s.db, s.cfg.BatchSize)
		},
		s.checkout.SettleRefund,
	)
}

// TripRemindersJob emails confirmed customers once inside the reminder lead.
func (s *Scheduler) TripRemindersJob(ctx context.Context) error {
	return s.sweep(ctx, JobTripReminders, "",
		func(ctx context.Context, now time.Time) ([]*bookingdomain.Booking, error) {
			return s.bookings.ListReminderDue(ctx, s.db, now, now.Add(s.cfg.ReminderLead), s.cfg.BatchSize)
		},
		s.checkout.SendReminder,
	)
}

// sweep applies step to each fetched booking, batch after batch, until a
// batch makes no progress. Bookings another worker already moved are skipped.
func (s *Scheduler) sweep(
	ctx context.Context,
	job string,
	to bookingdomain.Status,
	fetch func(ctx context.Context, now time.Time) ([]*bookingdomain.Booking, error),
	step func(ctx context.Context, ref string) (bookingdomain.Booking, error),
) error {
	ctx, stats, owner := s.beginRun(ctx, job, s.cfg.BatchSize)
	if owner {
		defer s.endRun(ctx, stats)
	}
	schedMetrics := obsmetrics.Scheduler()
	var jobErr error

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		bookings, err := fetch(ctx, s.clock.Now())
		if err != nil {
			return err
		}
		if len(bookings) == 0 {
			break
		}

		processed := 0
		for _, booking := range bookings {
			if ctx.Err() != nil {
				return errors.Join(jobErr, ctx.Err())
			}
			_, err := step(ctx, booking.BookingRef)
			if err != nil {
				if errors.Is(err, bookingdomain.ErrInvalidTransition) || errors.Is(err, bookingdomain.ErrNotFound) {
					stats.skipped++
					continue
				}
				jobErr = errors.Join(jobErr, err)
				s.bookingFailed(ctx, stats, booking, err)
				continue
			}
			processed++
			if to != "" {
				schedMetrics.IncBookingTransition(string(booking.Status), string(to))
			}
		}

		stats.moved += processed
		schedMetrics.AddBatchProcessed(job, "booking", processed)
		if processed == 0 || len(bookings) < s.cfg.BatchSize {
			break
		}
	}

	return jobErr
}
