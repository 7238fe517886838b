package domain

import (
	"context"
	"errors"
)

type Service interface {
	ListActive(ctx context.Context) ([]TenantConnection, error)
	FindBySubdomain(ctx context.Context, subdomain string) (TenantConnection, error)
	FindByID(ctx context.Context, id int64) (TenantConnection, error)
	FindByTaxID(ctx context.Context, taxID string) (TenantConnection, error)
}

var (
	ErrNotFound         = errors.New("tenant_not_found")
	ErrInvalidSubdomain = errors.New("invalid_subdomain")
	ErrInvalidTaxID     = errors.New("invalid_tax_id")
)
