package scheduler

import (
	"context"
	"time"

	obscontext "github.com/smallbiznis/invoicenotify/internal/observability/context"
	obslogger "github.com/smallbiznis/invoicenotify/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/invoicenotify/internal/observability/metrics"
	"go.uber.org/zap"
)

// jobRun accumulates what one job execution touched. A job invoked directly
// (outside runJob) owns its own run.
type jobRun struct {
	job       string
	runID     string
	startedAt time.Time
	tenants   int
	invoices  int
	failures  int
}

type jobRunKey struct{}

// record adds a batch of work; nil runs are ignored so jobs never need to
// check ownership.
func (r *jobRun) record(tenants, invoices, failures int) {
	if r == nil {
		return
	}
	r.tenants += max(tenants, 0)
	r.invoices += max(invoices, 0)
	r.failures += max(failures, 0)
}

func (r *jobRun) failed() bool {
	return r != nil && r.failures > 0
}

func (s *Scheduler) beginRun(ctx context.Context, job string) (context.Context, *jobRun, bool) {
	if run := runFromContext(ctx); run != nil {
		return ctx, run, false
	}
	run := &jobRun{
		job:       job,
		runID:     s.genID.Generate().String(),
		startedAt: time.Now(),
	}
	ctx = context.WithValue(ctx, jobRunKey{}, run)
	ctx = obscontext.WithActor(ctx, "system", "scheduler")
	s.logger(ctx).Info("scheduler.job.start",
		zap.String("job", run.job),
		zap.String("run_id", run.runID),
	)
	return ctx, run, true
}

func runFromContext(ctx context.Context) *jobRun {
	run, _ := ctx.Value(jobRunKey{}).(*jobRun)
	return run
}

func (s *Scheduler) logger(ctx context.Context) *zap.Logger {
	return obslogger.WithContext(ctx, s.log)
}

func (s *Scheduler) finishRun(ctx context.Context, run *jobRun) {
	if run == nil {
		return
	}
	fields := []zap.Field{
		zap.String("job", run.job),
		zap.String("run_id", run.runID),
		zap.Int64("duration_ms", time.Since(run.startedAt).Milliseconds()),
		zap.Int("tenants", run.tenants),
		zap.Int("invoices_notified", run.invoices),
		zap.Int("failures", run.failures),
	}
	if run.failed() {
		s.logger(ctx).Warn("scheduler.job.finish", fields...)
		return
	}
	s.logger(ctx).Info("scheduler.job.finish", fields...)
}

func (s *Scheduler) skip(ctx context.Context, job, reason string) {
	obsmetrics.Scheduler().IncJobSkipped(job, reason)
	s.logger(ctx).Debug("scheduler.job.skipped",
		zap.String("job", job),
		zap.String("reason", reason),
	)
}

func (s *Scheduler) logJobError(ctx context.Context, run *jobRun, msg string, err error) {
	run.record(0, 0, 1)
	fields := []zap.Field{
		zap.String("reason", obsmetrics.ClassifySchedulerJobReason(err)),
		zap.Error(err),
	}
	if run != nil {
		fields = append(fields, zap.String("job", run.job), zap.String("run_id", run.runID))
	}
	s.logger(ctx).Error(msg, fields...)
}
