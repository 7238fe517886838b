package domain

import (
	"context"
	"errors"

	tenantdomain "github.com/smallbiznis/invoicenotify/internal/tenant/domain"
)

type Service interface {
	Window(kind string) (Window, error)
	FetchRejected(ctx context.Context, tenant tenantdomain.TenantConnection, q Query) ([]InvoiceError, error)
	WeeklyRejected(ctx context.Context) (WeeklyReport, error)
	CompanyRejected(ctx context.Context, subdomain string) (CompanyReport, Window, error)
	ErrorSummary(ctx context.Context) (ErrorSummaryReport, error)
	Unnotified(ctx context.Context, subdomain string) (UnnotifiedReport, error)
	TestConnections(ctx context.Context) (ConnectionReport, error)
}

var (
	ErrInvalidWindow   = errors.New("invalid_window")
	ErrNoActiveTenants = errors.New("no_active_tenants")
)
