package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	FindActiveSetting(ctx context.Context, db *gorm.DB, subdomain string) (*CompanySetting, error)
	FindActiveGroup(ctx context.Context, db *gorm.DB, id int64) (*Group, error)
	ListActiveContacts(ctx context.Context, db *gorm.DB, groupID int64) ([]Contact, error)
	ListActiveSettings(ctx context.Context, db *gorm.DB) ([]ConfiguredCompany, error)
	ListActiveGroups(ctx context.Context, db *gorm.DB) ([]Group, error)
	ListCompaniesByGroup(ctx context.Context, db *gorm.DB, groupID int64) ([]string, error)
}
