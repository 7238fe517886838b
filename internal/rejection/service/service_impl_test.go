package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smallbiznis/invoicenotify/internal/clock"
	"github.com/smallbiznis/invoicenotify/internal/config"
	ledgerdomain "github.com/smallbiznis/invoicenotify/internal/ledger/domain"
	"github.com/smallbiznis/invoicenotify/internal/rejection/domain"
	"github.com/smallbiznis/invoicenotify/internal/rejection/repository"
	tenantdomain "github.com/smallbiznis/invoicenotify/internal/tenant/domain"
	"github.com/smallbiznis/invoicenotify/internal/tenantdb"
	"github.com/smallbiznis/invoicenotify/internal/tenantdb/tenanttest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Wednesday; the week window is 2026-10-12 .. 2026-10-19.
var testNow = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

type fakeLedger struct {
	ledgerdomain.Service
	notified map[string][]int64
}

func (f *fakeLedger) NotifiedIDs(ctx context.Context, subdomain string) ([]int64, error) {
	return f.notified[subdomain], nil
}

func newService(t *testing.T, ledger ledgerdomain.Service, tenants ...tenantdomain.TenantConnection) domain.Service {
	t.Helper()

	cfg := config.Config{
		TenantDB: config.TenantDBConfig{QueryTimeout: 5 * time.Second},
		Notify:   config.NotifyConfig{CompanyWindow: domain.WindowWeek, Timezone: "UTC"},
	}
	if ledger == nil {
		ledger = &fakeLedger{}
	}
	exec := tenantdb.New(tenantdb.Params{Log: zap.NewNop(), Cfg: cfg, Connector: tenantdb.NewConnector(cfg)})
	return New(Params{
		Log:     zap.NewNop(),
		Cfg:     cfg,
		Clock:   clock.NewFakeClock(testNow),
		Tenants: tenanttest.NewTenants(tenants...),
		Exec:    exec,
		Ledger:  ledger,
		Repo:    repository.Provide(),
	})
}

func seededTenant(t *testing.T, subdomain string) tenantdomain.TenantConnection {
	tenant := tenanttest.NewTenant(t, subdomain)
	tenanttest.Insert(t, tenant,
		tenanttest.Invoice{ID: 1, ErrorCode: "150", Description: "RUC no valido", CreatedAt: testNow.Add(-2 * time.Hour)},
		tenanttest.Invoice{ID: 2, ErrorCode: "150", Description: "RUC no valido", CreatedAt: testNow.Add(-1 * time.Hour)},
		tenanttest.Invoice{ID: 3, ErrorCode: "2800", Description: "Serie invalida", CreatedAt: testNow.Add(-24 * time.Hour)},
		tenanttest.Invoice{ID: 4, ErrorCode: "150", CreatedAt: testNow.AddDate(0, 0, -7)},
		tenanttest.Invoice{ID: 5, ErrorCode: "0", CreatedAt: testNow},
		tenanttest.Invoice{ID: 6, ErrorCode: "150", Type: "RC", CreatedAt: testNow},
		tenanttest.Invoice{ID: 7, ErrorCode: "150", Estado: 2, CreatedAt: testNow},
	)
	return tenant
}

func TestFetchRejectedFiltersByWindowAndStatus(t *testing.T) {
	tenant := seededTenant(t, "acme")
	svc := newService(t, nil, tenant)

	window, err := svc.Window(domain.WindowWeek)
	require.NoError(t, err)

	rows, err := svc.FetchRejected(context.Background(), tenant, domain.Query{Window: window})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []int64{2, 1, 3}, ids(rows))
	assert.Equal(t, "RUC no valido", rows[0].ErrorDescription)
	assert.Equal(t, "RF", rows[0].Type)

	grouped, err := svc.FetchRejected(context.Background(), tenant, domain.Query{Window: window, GroupedOrder: true, Exclude: []int64{1}})
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, ids(grouped))
}

func TestFetchRejectedLargeExclusionAppliedInMemory(t *testing.T) {
	tenant := seededTenant(t, "acme")
	svc := newService(t, nil, tenant)
	window, err := svc.Window(domain.WindowWeek)
	require.NoError(t, err)

	exclude := make([]int64, 0, maxBoundExclusions+10)
	for i := int64(1000); len(exclude) < maxBoundExclusions+9; i++ {
		exclude = append(exclude, i)
	}
	exclude = append(exclude, 2)

	rows, err := svc.FetchRejected(context.Background(), tenant, domain.Query{Window: window, Exclude: exclude})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, ids(rows))
}

func TestWeeklyRejectedIsolatesFailingTenants(t *testing.T) {
	acme := seededTenant(t, "acme")
	beta := tenanttest.NewTenant(t, "beta")
	broken := tenanttest.Broken(t, "broken")
	down := tenanttest.Unreachable("down")
	svc := newService(t, nil, acme, beta, broken, down)

	report, err := svc.WeeklyRejected(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, report.Summary.TenantsQueried)
	assert.Equal(t, 2, report.Summary.Succeeded)
	assert.Equal(t, 2, report.Summary.Failed)
	assert.Equal(t, 1, report.Summary.TenantsWithErrors)
	assert.Equal(t, 3, report.Summary.TotalInvoices)
	require.Len(t, report.Companies, 1)
	assert.Equal(t, "acme", report.Companies[0].Company.Subdomain)

	require.Len(t, report.Failures, 2)
	reasons := map[string]string{}
	for _, f := range report.Failures {
		reasons[f.Subdomain] = f.Reason
	}
	assert.Equal(t, FailureQuery, reasons["broken"])
	assert.Equal(t, FailureConnection, reasons["down"])
}

func TestWeeklyRejectedWithoutTenants(t *testing.T) {
	svc := newService(t, nil)

	_, err := svc.WeeklyRejected(context.Background())
	assert.True(t, errors.Is(err, domain.ErrNoActiveTenants))
}

func TestErrorSummaryGroupsByCode(t *testing.T) {
	svc := newService(t, nil, seededTenant(t, "acme"))

	report, err := svc.ErrorSummary(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Companies, 1)

	codes := report.Companies[0].Codes
	require.Len(t, codes, 2)
	assert.Equal(t, "150", codes[0].ErrorCode)
	assert.Equal(t, 2, codes[0].Total)
	assert.Equal(t, "2800", codes[1].ErrorCode)
	assert.Equal(t, 3, report.Companies[0].Total)
}

func TestCompanyRejected(t *testing.T) {
	svc := newService(t, nil, seededTenant(t, "acme"))

	report, window, err := svc.CompanyRejected(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, 3, report.Total)
	assert.Equal(t, domain.WindowWeek, window.Kind)

	_, _, err = svc.CompanyRejected(context.Background(), "ghost")
	assert.True(t, errors.Is(err, tenantdomain.ErrNotFound))
}

func TestUnnotifiedExcludesLedgerIDs(t *testing.T) {
	ledger := &fakeLedger{notified: map[string][]int64{"acme": {1, 4}}}
	svc := newService(t, ledger, seededTenant(t, "acme"))

	report, err := svc.Unnotified(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, ids(report.Invoices))
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 2, report.AlreadyNotified)
}

func TestConnections(t *testing.T) {
	svc := newService(t, nil, tenanttest.NewTenant(t, "acme"), tenanttest.Unreachable("down"))

	report, err := svc.TestConnections(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	assert.True(t, report.Checks[0].OK)
	assert.False(t, report.Checks[1].OK)
	assert.NotEmpty(t, report.Checks[1].Error)
}

func ids(rows []domain.InvoiceError) []int64 {
	out := make([]int64, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.InvoiceID)
	}
	return out
}
