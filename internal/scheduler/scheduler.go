package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicenotify/internal/clock"
	"github.com/smallbiznis/invoicenotify/internal/config"
	"github.com/smallbiznis/invoicenotify/internal/notifier"
	obsmetrics "github.com/smallbiznis/invoicenotify/internal/observability/metrics"
	"github.com/smallbiznis/invoicenotify/internal/ratelimit"
	rejectiondomain "github.com/smallbiznis/invoicenotify/internal/rejection/domain"
	"github.com/smallbiznis/invoicenotify/internal/scheduler/guard"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

// Runner is the notification work the scheduler triggers.
type Runner interface {
	NotifyAll(ctx context.Context) (notifier.RunSummary, error)
	NotifyGlobalSupport(ctx context.Context) (notifier.SupportOutcome, error)
}

type Params struct {
	fx.In

	Log    *zap.Logger
	Runner Runner
	GenID  *snowflake.Node
	Clock  clock.Clock
	AppCfg config.Config
	Policy *config.NotifyPolicyHolder `optional:"true"`
	Locker *ratelimit.Locker          `optional:"true"`
	Config Config                     `optional:"true"`
}

type Scheduler struct {
	log      *zap.Logger
	cfg      Config
	genID    *snowflake.Node
	clock    clock.Clock
	location *time.Location
	runner   Runner
	policy   *config.NotifyPolicyHolder
	locker   *ratelimit.Locker

	mu      sync.Mutex
	lastRun map[string]time.Time
}

type job struct {
	name    string
	every   time.Duration
	timeout time.Duration
	run     func(context.Context) error
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Runner == nil || p.GenID == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	cfg := p.Config.withDefaults()
	s := &Scheduler{
		log:      p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:      cfg,
		genID:    p.GenID,
		clock:    p.Clock,
		location: p.AppCfg.Notify.Location(),
		runner:   p.Runner,
		policy:   p.Policy,
		locker:   p.Locker,
		lastRun:  make(map[string]time.Time),
	}
	if !cfg.RunOnStart {
		now := s.clock.Now()
		s.lastRun[JobNotifyCompanies] = now
		s.lastRun[JobNotifyGlobalSupport] = now
	}
	return s, nil
}

func (s *Scheduler) jobs() []job {
	return []job{
		{JobNotifyCompanies, s.cfg.CompanyEvery, s.cfg.CompanyTimeout, s.NotifyCompaniesJob},
		{JobNotifyGlobalSupport, s.cfg.GlobalEvery, s.cfg.GlobalTimeout, s.NotifyGlobalSupportJob},
	}
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run, owner := s.beginRun(ctx, name)
	log := s.logger(ctx).With(
		zap.String("job", name),
		zap.String("run_id", run.runID),
	)
	schedMetrics := obsmetrics.Scheduler()
	schedMetrics.IncJobRun(name)

	err := fn(ctx)
	schedMetrics.ObserveJobDuration(name, time.Since(start))
	if owner {
		if err != nil && !run.failed() {
			run.record(0, 0, 1)
		}
		s.finishRun(ctx, run)
	}
	if err == nil {
		return nil
	}

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

// RunOnce runs every enabled job that is due. Quiet hours and cross-replica
// locks skip a job without marking it as run, so it fires on the next tick
// that clears them.
func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error
	now := s.clock.Now()
	policy := s.policy.Get()

	for _, j := range s.jobs() {
		if !s.isJobEnabled(j.name) {
			continue
		}
		if guard.EnsureJobDue(s.last(j.name), j.every, now) != nil {
			continue
		}
		if guard.EnsureOutsideQuietHours(policy.QuietHours, now.In(s.location)) != nil {
			s.skip(parent, j.name, obsmetrics.SchedulerSkipReasonQuietHours)
			continue
		}

		release, ok := s.acquire(parent, j)
		if !ok {
			s.skip(parent, j.name, obsmetrics.SchedulerSkipReasonLocked)
			continue
		}
		s.markRun(j.name, now)
		err = errors.Join(err, s.runJob(parent, j.name, j.timeout, j.run))
		release()
	}
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()
	nextRun := time.Now().Add(s.cfg.TickInterval)
	schedMetrics := obsmetrics.Scheduler()

	for {
		runLag := time.Since(nextRun)
		if runLag > 0 {
			schedMetrics.ObserveRunLoopLag(runLag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.TickInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Start launches RunForever in the background. The returned stop cancels
// the loop and waits for an in-flight tick to return or ctx to expire.
func (s *Scheduler) Start() func(context.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.RunForever(ctx)
	}()
	s.log.Info("scheduler started",
		zap.Duration("tick_interval", s.cfg.TickInterval),
		zap.Strings("enabled_jobs", s.cfg.EnabledJobs),
	)

	return func(stopCtx context.Context) error {
		cancel()
		select {
		case <-done:
			s.log.Info("scheduler stopped")
			return nil
		case <-stopCtx.Done():
			return stopCtx.Err()
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	// An empty list enables every job.
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

func (s *Scheduler) last(name string) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun[name]
}

func (s *Scheduler) markRun(name string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRun[name] = at
}

// acquire takes the cross-replica job lock when redis is configured. A redis
// error runs the job anyway.
func (s *Scheduler) acquire(ctx context.Context, j job) (func(), bool) {
	if s.locker == nil {
		return func() {}, true
	}
	key := ratelimit.JobLockKey(j.name)
	token, ok, err := s.locker.TryLock(ctx, key, j.timeout)
	if err != nil {
		s.log.Warn("scheduler.job.lock_unavailable", zap.String("job", j.name), zap.Error(err))
		return func() {}, true
	}
	if !ok {
		return nil, false
	}
	return func() {
		_ = s.locker.Release(context.WithoutCancel(ctx), key, token)
	}, true
}

// NotifyCompaniesJob notifies every configured company. Tenant failures are
// reported in the run summary and counted, not returned.
func (s *Scheduler) NotifyCompaniesJob(ctx context.Context) error {
	ctx, run, owner := s.beginRun(ctx, JobNotifyCompanies)
	if owner {
		defer s.finishRun(ctx, run)
	}

	summary, err := s.runner.NotifyAll(ctx)
	if err != nil {
		s.logJobError(ctx, run, "scheduler.notify_companies.failed", err)
		return err
	}

	schedMetrics := obsmetrics.Scheduler()
	schedMetrics.AddBatchProcessed(JobNotifyCompanies, "tenants", summary.TenantsQueried)
	schedMetrics.AddBatchProcessed(JobNotifyCompanies, "invoices", summary.InvoicesNotified)
	run.record(summary.TenantsQueried, summary.InvoicesNotified, summary.Failed)

	for _, o := range summary.Outcomes {
		if o.Status.Succeeded() || o.Status.Skipped() {
			continue
		}
		s.logger(ctx).Warn("scheduler.notify_companies.tenant_failed",
			zap.String("tenant", o.Subdomain),
			zap.String("status", string(o.Status)),
			zap.String("error", o.Error),
		)
	}
	return ctx.Err()
}

// NotifyGlobalSupportJob sends the daily cross-tenant summary.
func (s *Scheduler) NotifyGlobalSupportJob(ctx context.Context) error {
	ctx, run, owner := s.beginRun(ctx, JobNotifyGlobalSupport)
	if owner {
		defer s.finishRun(ctx, run)
	}

	out, err := s.runner.NotifyGlobalSupport(ctx)
	if errors.Is(err, rejectiondomain.ErrNoActiveTenants) {
		return nil
	}
	if err != nil {
		s.logJobError(ctx, run, "scheduler.notify_global_support.failed", err)
		return err
	}

	obsmetrics.Scheduler().AddBatchProcessed(JobNotifyGlobalSupport, "invoices", out.InvoicesFound)
	if out.Status == notifier.StatusDeliveryFailed || out.Status == notifier.StatusConfigError {
		run.record(0, 0, 1)
		return fmt.Errorf("global support delivery %s", out.Status)
	}
	return nil
}
