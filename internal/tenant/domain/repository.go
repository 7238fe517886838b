package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	ListActive(ctx context.Context, db *gorm.DB) ([]TenantConnection, error)
	FindBySubdomain(ctx context.Context, db *gorm.DB, subdomain string) (*TenantConnection, error)
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*TenantConnection, error)
	FindByTaxID(ctx context.Context, db *gorm.DB, taxID string) (*TenantConnection, error)
}
