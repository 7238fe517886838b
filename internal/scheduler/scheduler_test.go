package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/smallbiznis/invoicenotify/internal/clock"
	"github.com/smallbiznis/invoicenotify/internal/config"
	"github.com/smallbiznis/invoicenotify/internal/notifier"
	obsmetrics "github.com/smallbiznis/invoicenotify/internal/observability/metrics"
	rejectiondomain "github.com/smallbiznis/invoicenotify/internal/rejection/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testNow = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

type fakeRunner struct {
	mu          sync.Mutex
	companyRuns int
	globalRuns  int
	summary     notifier.RunSummary
	support     notifier.SupportOutcome
	companyErr  error
	globalErr   error
}

func (f *fakeRunner) NotifyAll(ctx context.Context) (notifier.RunSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.companyRuns++
	return f.summary, f.companyErr
}

func (f *fakeRunner) NotifyGlobalSupport(ctx context.Context) (notifier.SupportOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.globalRuns++
	return f.support, f.globalErr
}

func (f *fakeRunner) runs() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.companyRuns, f.globalRuns
}

type schedulerHarness struct {
	sched    *Scheduler
	clock    *clock.FakeClock
	runner   *fakeRunner
	registry *prometheus.Registry
}

func newHarness(t *testing.T, cfg Config, policy config.NotifyPolicy) *schedulerHarness {
	t.Helper()

	registry := prometheus.NewRegistry()
	restore := swapPrometheusRegistry(registry)
	t.Cleanup(restore)
	obsmetrics.ResetSchedulerMetricsForTest()
	obsmetrics.SchedulerWithConfig(obsmetrics.Config{
		ServiceName: "invoicenotify",
		Environment: "test",
	})

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fakeClock := clock.NewFakeClock(testNow)
	runner := &fakeRunner{}
	sched, err := New(Params{
		Log:    zap.NewNop(),
		Runner: runner,
		GenID:  node,
		Clock:  fakeClock,
		Policy: config.NewStaticNotifyPolicyHolder(policy),
		Config: cfg,
	})
	require.NoError(t, err)

	return &schedulerHarness{sched: sched, clock: fakeClock, runner: runner, registry: registry}
}

func TestRunJobTimeoutDoesNotReturnErrorAndIncrementsTimeout(t *testing.T) {
	h := newHarness(t, Config{}, config.DefaultNotifyPolicy())

	err := h.sched.runJob(context.Background(), "timeout_job", 5*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	labels := map[string]string{
		"service": "invoicenotify",
		"env":     "test",
		"job":     "timeout_job",
	}
	if got := getCounterValue(t, h.registry, "invoicenotify_scheduler_job_timeouts_total", labels); got != 1 {
		t.Fatalf("expected timeout count 1, got %v", got)
	}

	errorLabels := map[string]string{
		"service": "invoicenotify",
		"env":     "test",
		"job":     "timeout_job",
		"reason":  obsmetrics.SchedulerJobReasonDeadlineExceeded,
	}
	if got := getCounterValue(t, h.registry, "invoicenotify_scheduler_job_errors_total", errorLabels); got != 1 {
		t.Fatalf("expected error count 1, got %v", got)
	}
}

func TestRunJobWrapsFailure(t *testing.T) {
	h := newHarness(t, Config{}, config.DefaultNotifyPolicy())
	boom := errors.New("boom")

	err := h.sched.runJob(context.Background(), "failing_job", time.Second, func(ctx context.Context) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failing_job")
}

func TestRunOnceWaitsForFirstIntervalByDefault(t *testing.T) {
	h := newHarness(t, Config{}, config.DefaultNotifyPolicy())

	require.NoError(t, h.sched.RunOnce(context.Background()))
	company, global := h.runner.runs()
	assert.Equal(t, 0, company)
	assert.Equal(t, 0, global)

	h.clock.Advance(time.Hour)
	require.NoError(t, h.sched.RunOnce(context.Background()))
	company, global = h.runner.runs()
	assert.Equal(t, 1, company)
	assert.Equal(t, 0, global)

	h.clock.Advance(23 * time.Hour)
	require.NoError(t, h.sched.RunOnce(context.Background()))
	company, global = h.runner.runs()
	assert.Equal(t, 2, company)
	assert.Equal(t, 1, global)
}

func TestRunOnceRunOnStart(t *testing.T) {
	h := newHarness(t, Config{RunOnStart: true}, config.DefaultNotifyPolicy())

	require.NoError(t, h.sched.RunOnce(context.Background()))
	require.NoError(t, h.sched.RunOnce(context.Background()))

	company, global := h.runner.runs()
	assert.Equal(t, 1, company)
	assert.Equal(t, 1, global)
}

func TestRunOnceHonoursEnabledJobs(t *testing.T) {
	h := newHarness(t, Config{RunOnStart: true, EnabledJobs: []string{"NOTIFY_GLOBAL_SUPPORT"}}, config.DefaultNotifyPolicy())

	require.NoError(t, h.sched.RunOnce(context.Background()))

	company, global := h.runner.runs()
	assert.Equal(t, 0, company)
	assert.Equal(t, 1, global)
}

func TestRunOnceSkipsQuietHours(t *testing.T) {
	policy := config.NotifyPolicy{QuietHours: config.QuietHours{Start: 10, End: 14}}
	h := newHarness(t, Config{RunOnStart: true}, policy)

	require.NoError(t, h.sched.RunOnce(context.Background()))
	company, global := h.runner.runs()
	assert.Equal(t, 0, company)
	assert.Equal(t, 0, global)

	skipped := map[string]string{
		"service": "invoicenotify",
		"env":     "test",
		"job":     JobNotifyCompanies,
		"reason":  obsmetrics.SchedulerSkipReasonQuietHours,
	}
	assert.Equal(t, float64(1), getCounterValue(t, h.registry, "invoicenotify_scheduler_job_skipped_total", skipped))

	// Skipped jobs stay due and fire once the window closes.
	h.clock.Advance(2 * time.Hour)
	require.NoError(t, h.sched.RunOnce(context.Background()))
	company, global = h.runner.runs()
	assert.Equal(t, 1, company)
	assert.Equal(t, 1, global)
}

func TestRunOnceJoinsJobErrors(t *testing.T) {
	h := newHarness(t, Config{RunOnStart: true}, config.DefaultNotifyPolicy())
	h.runner.companyErr = errors.New("registry down")
	h.runner.globalErr = errors.New("settings down")

	err := h.sched.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), JobNotifyCompanies)
	assert.Contains(t, err.Error(), JobNotifyGlobalSupport)
}

func TestStartRunsFirstTickAndStops(t *testing.T) {
	h := newHarness(t, Config{RunOnStart: true, TickInterval: time.Hour}, config.DefaultNotifyPolicy())

	stop := h.sched.Start()
	require.Eventually(t, func() bool {
		company, global := h.runner.runs()
		return company == 1 && global == 1
	}, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, stop(ctx))
}

func TestNotifyCompaniesJobCountsBatch(t *testing.T) {
	h := newHarness(t, Config{}, config.DefaultNotifyPolicy())
	h.runner.summary = notifier.RunSummary{
		TenantsQueried:   3,
		Succeeded:        2,
		Failed:           1,
		InvoicesNotified: 5,
		Outcomes: []notifier.Outcome{
			{Subdomain: "empresa1", Status: notifier.StatusNotified},
			{Subdomain: "empresa2", Status: notifier.StatusNothingNew},
			{Subdomain: "empresa3", Status: notifier.StatusConnectionFailed, Error: "dial tcp"},
		},
	}

	require.NoError(t, h.sched.NotifyCompaniesJob(context.Background()))

	tenants := map[string]string{
		"service":  "invoicenotify",
		"env":      "test",
		"job":      JobNotifyCompanies,
		"resource": "tenants",
	}
	invoices := map[string]string{
		"service":  "invoicenotify",
		"env":      "test",
		"job":      JobNotifyCompanies,
		"resource": "invoices",
	}
	assert.Equal(t, float64(3), getCounterValue(t, h.registry, "invoicenotify_scheduler_batch_processed_total", tenants))
	assert.Equal(t, float64(5), getCounterValue(t, h.registry, "invoicenotify_scheduler_batch_processed_total", invoices))
}

func TestNotifyGlobalSupportJobIgnoresEmptyRegistry(t *testing.T) {
	h := newHarness(t, Config{}, config.DefaultNotifyPolicy())
	h.runner.globalErr = rejectiondomain.ErrNoActiveTenants

	assert.NoError(t, h.sched.NotifyGlobalSupportJob(context.Background()))
}

func TestNotifyGlobalSupportJobReportsDeliveryFailure(t *testing.T) {
	h := newHarness(t, Config{}, config.DefaultNotifyPolicy())
	h.runner.support = notifier.SupportOutcome{
		Outcome: notifier.Outcome{Status: notifier.StatusDeliveryFailed, InvoicesFound: 4},
	}

	err := h.sched.NotifyGlobalSupportJob(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), string(notifier.StatusDeliveryFailed))
}

func TestNewRejectsMissingRunner(t *testing.T) {
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	_, err = New(Params{Log: zap.NewNop(), GenID: node, Clock: clock.NewFakeClock(testNow)})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func swapPrometheusRegistry(registry *prometheus.Registry) func() {
	oldRegisterer := prometheus.DefaultRegisterer
	oldGatherer := prometheus.DefaultGatherer
	prometheus.DefaultRegisterer = registry
	prometheus.DefaultGatherer = registry
	return func() {
		prometheus.DefaultRegisterer = oldRegisterer
		prometheus.DefaultGatherer = oldGatherer
		obsmetrics.ResetSchedulerMetricsForTest()
	}
}

func getCounterValue(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metricFamilies {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.Metric {
			if !labelsMatch(metric, labels) {
				continue
			}
			if metric.Counter == nil {
				t.Fatalf("metric %s is not a counter", name)
			}
			return metric.GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func labelsMatch(metric *dto.Metric, labels map[string]string) bool {
	if len(metric.Label) != len(labels) {
		return false
	}
	for _, label := range metric.Label {
		if labels[label.GetName()] != label.GetValue() {
			return false
		}
	}
	return true
}
