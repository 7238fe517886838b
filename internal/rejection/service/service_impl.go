package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/smallbiznis/invoicenotify/internal/clock"
	"github.com/smallbiznis/invoicenotify/internal/config"
	ledgerdomain "github.com/smallbiznis/invoicenotify/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/invoicenotify/internal/observability/metrics"
	"github.com/smallbiznis/invoicenotify/internal/rejection/domain"
	tenantdomain "github.com/smallbiznis/invoicenotify/internal/tenant/domain"
	"github.com/smallbiznis/invoicenotify/internal/tenantdb"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// maxBoundExclusions caps the NOT IN list sent to a tenant database. Larger
// exclusion sets are applied after the query.
const maxBoundExclusions = 1000

const (
	FailureConnection = "connection_failed"
	FailureQuery      = "query_failed"
)

type Params struct {
	fx.In

	Log        *zap.Logger
	Cfg        config.Config
	Clock      clock.Clock
	Tenants    tenantdomain.Service
	Exec       *tenantdb.Executor
	Ledger     ledgerdomain.Service
	Repo       domain.Repository
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	log        *zap.Logger
	clock      clock.Clock
	location   *time.Location
	window     string
	tenants    tenantdomain.Service
	exec       *tenantdb.Executor
	ledger     ledgerdomain.Service
	repo       domain.Repository
	obsMetrics *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		log:        p.Log.Named("rejection.service"),
		clock:      p.Clock,
		location:   p.Cfg.Notify.Location(),
		window:     p.Cfg.Notify.CompanyWindow,
		tenants:    p.Tenants,
		exec:       p.Exec,
		ledger:     p.Ledger,
		repo:       p.Repo,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) Window(kind string) (domain.Window, error) {
	return domain.NewWindow(kind, s.clock.Now(), s.location)
}

// FetchRejected runs the rejected-invoice query on one tenant database.
// Errors wrap tenantdb.ErrTenantUnavailable or tenantdb.ErrQueryFailed.
func (s *Service) FetchRejected(ctx context.Context, tenant tenantdomain.TenantConnection, q domain.Query) ([]domain.InvoiceError, error) {
	exclude := q.Exclude
	if len(exclude) > maxBoundExclusions {
		q.Exclude = nil
	}

	var rows []domain.InvoiceError
	err := s.exec.WithTenant(ctx, tenant, func(db *gorm.DB) error {
		found, err := s.repo.FindRejected(db.Statement.Context, db, q)
		if err != nil {
			return err
		}
		rows = found
		return nil
	})
	if err != nil {
		s.obsMetrics.RecordTenantQuery(ctx, FailureReason(err))
		return nil, err
	}
	s.obsMetrics.RecordTenantQuery(ctx, "ok")

	if q.Exclude == nil && len(exclude) > 0 {
		rows = domain.Exclude(rows, exclude)
	}
	if rows == nil {
		rows = []domain.InvoiceError{}
	}
	return rows, nil
}

// FailureReason classifies a tenant error for reports and metrics.
func FailureReason(err error) string {
	if errors.Is(err, tenantdb.ErrTenantUnavailable) {
		return FailureConnection
	}
	return FailureQuery
}

func (s *Service) activeTenants(ctx context.Context) ([]tenantdomain.TenantConnection, error) {
	tenants, err := s.tenants.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	if len(tenants) == 0 {
		return nil, domain.ErrNoActiveTenants
	}
	return tenants, nil
}

func (s *Service) WeeklyRejected(ctx context.Context) (domain.WeeklyReport, error) {
	window, err := s.Window(s.window)
	if err != nil {
		return domain.WeeklyReport{}, err
	}
	tenants, err := s.activeTenants(ctx)
	if err != nil {
		return domain.WeeklyReport{}, err
	}

	report := domain.WeeklyReport{Window: window, Companies: []domain.CompanyReport{}}
	report.Summary.TenantsQueried = len(tenants)
	for _, tenant := range tenants {
		rows, err := s.FetchRejected(ctx, tenant, domain.Query{Window: window})
		if err != nil {
			report.Summary.Failed++
			report.Failures = append(report.Failures, failure(tenant, err))
			continue
		}
		report.Summary.Succeeded++
		if len(rows) == 0 {
			continue
		}
		report.Companies = append(report.Companies, domain.CompanyReport{
			Company:  companyOf(tenant),
			Invoices: rows,
			Total:    len(rows),
		})
		report.Summary.TenantsWithErrors++
		report.Summary.TotalInvoices += len(rows)
	}

	s.log.Info("rejection.weekly.completed",
		zap.Int("tenants", report.Summary.TenantsQueried),
		zap.Int("failed", report.Summary.Failed),
		zap.Int("invoices", report.Summary.TotalInvoices),
	)
	return report, nil
}

func (s *Service) CompanyRejected(ctx context.Context, subdomain string) (domain.CompanyReport, domain.Window, error) {
	window, err := s.Window(s.window)
	if err != nil {
		return domain.CompanyReport{}, domain.Window{}, err
	}
	tenant, err := s.tenants.FindBySubdomain(ctx, subdomain)
	if err != nil {
		return domain.CompanyReport{}, window, err
	}
	rows, err := s.FetchRejected(ctx, tenant, domain.Query{Window: window})
	if err != nil {
		return domain.CompanyReport{}, window, err
	}
	return domain.CompanyReport{Company: companyOf(tenant), Invoices: rows, Total: len(rows)}, window, nil
}

func (s *Service) ErrorSummary(ctx context.Context) (domain.ErrorSummaryReport, error) {
	window, err := s.Window(s.window)
	if err != nil {
		return domain.ErrorSummaryReport{}, err
	}
	tenants, err := s.activeTenants(ctx)
	if err != nil {
		return domain.ErrorSummaryReport{}, err
	}

	report := domain.ErrorSummaryReport{Window: window, Companies: []domain.CompanyErrorSummary{}}
	report.Summary.TenantsQueried = len(tenants)
	for _, tenant := range tenants {
		rows, err := s.FetchRejected(ctx, tenant, domain.Query{Window: window, GroupedOrder: true})
		if err != nil {
			report.Summary.Failed++
			report.Failures = append(report.Failures, failure(tenant, err))
			continue
		}
		report.Summary.Succeeded++
		if len(rows) == 0 {
			continue
		}
		report.Companies = append(report.Companies, domain.CompanyErrorSummary{
			Subdomain: tenant.Subdomain,
			Total:     len(rows),
			Codes:     domain.GroupByCode(rows),
		})
		report.Summary.TenantsWithErrors++
		report.Summary.TotalInvoices += len(rows)
	}
	return report, nil
}

func (s *Service) Unnotified(ctx context.Context, subdomain string) (domain.UnnotifiedReport, error) {
	window, err := s.Window(s.window)
	if err != nil {
		return domain.UnnotifiedReport{}, err
	}
	tenant, err := s.tenants.FindBySubdomain(ctx, subdomain)
	if err != nil {
		return domain.UnnotifiedReport{}, err
	}
	notified, err := s.ledger.NotifiedIDs(ctx, tenant.Subdomain)
	if err != nil {
		return domain.UnnotifiedReport{}, err
	}
	rows, err := s.FetchRejected(ctx, tenant, domain.Query{Window: window, Exclude: notified})
	if err != nil {
		return domain.UnnotifiedReport{}, err
	}
	return domain.UnnotifiedReport{
		Window:          window,
		Company:         companyOf(tenant),
		Invoices:        rows,
		Total:           len(rows),
		AlreadyNotified: len(notified),
	}, nil
}

func (s *Service) TestConnections(ctx context.Context) (domain.ConnectionReport, error) {
	tenants, err := s.tenants.ListActive(ctx)
	if err != nil {
		return domain.ConnectionReport{}, err
	}

	report := domain.ConnectionReport{Checks: make([]domain.ConnectionCheck, 0, len(tenants))}
	for _, tenant := range tenants {
		start := time.Now()
		err := s.exec.Ping(ctx, tenant)
		check := domain.ConnectionCheck{
			Subdomain: tenant.Subdomain,
			DBName:    tenant.DBName,
			DBHost:    tenant.DBHost,
			OK:        err == nil,
			LatencyMs: time.Since(start).Milliseconds(),
		}
		if err != nil {
			check.Error = err.Error()
			report.Failed++
		} else {
			report.Succeeded++
		}
		report.Checks = append(report.Checks, check)
	}
	report.Total = len(report.Checks)
	return report, nil
}

func companyOf(t tenantdomain.TenantConnection) domain.Company {
	return domain.Company{ID: t.ID, Subdomain: t.Subdomain, DBName: t.DBName}
}

func failure(t tenantdomain.TenantConnection, err error) domain.TenantFailure {
	return domain.TenantFailure{
		Subdomain: t.Subdomain,
		Reason:    FailureReason(err),
		Error:     strings.TrimSpace(err.Error()),
	}
}
