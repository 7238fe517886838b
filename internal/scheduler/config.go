package scheduler

import (
	"time"

	"github.com/smallbiznis/invoicenotify/internal/config"
)

const (
	JobNotifyCompanies     = "notify_companies"
	JobNotifyGlobalSupport = "notify_global_support"
)

// Config controls scheduler intervals and per-job deadlines.
type Config struct {
	TickInterval   time.Duration
	CompanyEvery   time.Duration
	GlobalEvery    time.Duration
	CompanyTimeout time.Duration
	GlobalTimeout  time.Duration
	EnabledJobs    []string
	RunOnStart     bool
}

func DefaultConfig() Config {
	return Config{
		TickInterval:   time.Minute,
		CompanyEvery:   time.Hour,
		GlobalEvery:    24 * time.Hour,
		CompanyTimeout: 30 * time.Minute,
		GlobalTimeout:  10 * time.Minute,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		TickInterval:   cfg.Schedule.TickInterval,
		CompanyEvery:   cfg.Schedule.CompanyEvery,
		GlobalEvery:    cfg.Schedule.GlobalEvery,
		CompanyTimeout: cfg.Schedule.CompanyTimeout,
		GlobalTimeout:  cfg.Schedule.GlobalTimeout,
		EnabledJobs:    cfg.Schedule.EnabledJobs,
		RunOnStart:     cfg.Schedule.RunOnStart,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.TickInterval <= 0 {
		c.TickInterval = defaults.TickInterval
	}
	if c.CompanyEvery <= 0 {
		c.CompanyEvery = defaults.CompanyEvery
	}
	if c.GlobalEvery <= 0 {
		c.GlobalEvery = defaults.GlobalEvery
	}
	if c.CompanyTimeout <= 0 {
		c.CompanyTimeout = defaults.CompanyTimeout
	}
	if c.GlobalTimeout <= 0 {
		c.GlobalTimeout = defaults.GlobalTimeout
	}
	return c
}
