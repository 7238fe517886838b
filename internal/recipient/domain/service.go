package domain

import (
	"context"
	"errors"
)

type Service interface {
	Resolve(ctx context.Context, subdomain string) (Recipients, error)
	ConfiguredCompanies(ctx context.Context) ([]ConfiguredCompany, error)
	ActiveGroups(ctx context.Context) ([]GroupSummary, error)
	CompaniesByGroup(ctx context.Context, groupID int64) ([]string, error)
}

var (
	ErrNotConfigured    = errors.New("notification_not_configured")
	ErrNoContacts       = errors.New("notification_no_contacts")
	ErrInvalidSubdomain = errors.New("invalid_subdomain")
)
