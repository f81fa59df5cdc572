package scheduler

import (
	"time"

	"github.com/smallbiznis/trailbook/internal/config"
)

// Config controls scheduler intervals and batch sizes.
type Config struct {
	RunInterval  time.Duration
	JobTimeout   time.Duration
	BatchSize    int
	AbandonAfter time.Duration
	ReminderLead time.Duration
	EnabledJobs  []string
}

func DefaultConfig() Config {
	return Config{
		RunInterval:  time.Minute,
		JobTimeout:   30 * time.Second,
		BatchSize:    100,
		AbandonAfter: 24 * time.Hour,
		ReminderLead: 72 * time.Hour,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		RunInterval:  cfg.Scheduler.Interval,
		JobTimeout:   cfg.Scheduler.JobTimeout,
		BatchSize:    cfg.Scheduler.BatchSize,
		AbandonAfter: cfg.Checkout.AbandonAfter,
	}.withDefaults()
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.AbandonAfter <= 0 {
		c.AbandonAfter = defaults.AbandonAfter
	}
	if c.ReminderLead <= 0 {
		c.ReminderLead = defaults.ReminderLead
	}
	return c
}
