package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/smallbiznis/invoicenotify/internal/tenantdb"
	"gorm.io/gorm"
)

func TestClassifySchedulerJobReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "deadline",
			err:  context.DeadlineExceeded,
			want: SchedulerJobReasonDeadlineExceeded,
		},
		{
			name: "tenant_unavailable",
			err:  fmt.Errorf("empresa1: %w", tenantdb.ErrTenantUnavailable),
			want: SchedulerJobReasonTenantUnavailable,
		},
		{
			name: "query_failed",
			err:  fmt.Errorf("empresa1: %w", tenantdb.ErrQueryFailed),
			want: SchedulerJobReasonQueryFailed,
		},
		{
			name: "db_lock_timeout",
			err:  &pgconn.PgError{Code: "55P03"},
			want: SchedulerJobReasonDBLockTimeout,
		},
		{
			name: "unique_violation",
			err:  gorm.ErrDuplicatedKey,
			want: SchedulerJobReasonUniqueViolation,
		},
		{
			name: "unknown",
			err:  errors.New("boom"),
			want: SchedulerJobReasonUnknown,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifySchedulerJobReason(tc.err); got != tc.want {
				t.Fatalf("expected reason %q, got %q", tc.want, got)
			}
		})
	}
}

func TestAddBatchProcessed(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := newSchedulerMetrics(registry, Config{
		ServiceName: "invoicenotify",
		Environment: "test",
	})

	metrics.AddBatchProcessed("notify_companies", "tenants", 3)
	metrics.AddBatchProcessed("notify_companies", "tenants", 0)

	got := testutil.ToFloat64(metrics.batchProcessed.WithLabelValues("notify_companies", "tenants"))
	if got != 3 {
		t.Fatalf("expected processed count 3, got %v", got)
	}
}

func TestObserveRunLoopLagClampsNegative(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := newSchedulerMetrics(registry, Config{})

	metrics.ObserveRunLoopLag(-time.Second)

	got, err := testutil.GatherAndCount(registry, "invoicenotify_scheduler_runloop_lag_seconds")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if got != 1 {
		t.Fatalf("expected one lag series, got %d", got)
	}
}

func TestNotifierMetricsCountDeliveries(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := newNotifierMetrics(registry, Config{ServiceName: "invoicenotify", Environment: "test"})

	metrics.AddDeliveries("alerta_facturas", 2, 1)
	metrics.AddInvoices(5, 2)
	metrics.IncTenantOutcome("company", "notified")

	if got := testutil.ToFloat64(metrics.deliveries.WithLabelValues("alerta_facturas", "success")); got != 2 {
		t.Fatalf("expected 2 successful deliveries, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.deliveries.WithLabelValues("alerta_facturas", "failure")); got != 1 {
		t.Fatalf("expected 1 failed delivery, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.invoices.WithLabelValues("notified")); got != 2 {
		t.Fatalf("expected 2 notified invoices, got %v", got)
	}
}
