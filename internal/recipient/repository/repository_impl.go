package repository

import (
	"context"

	"github.com/smallbiznis/invoicenotify/internal/recipient/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindActiveSetting(ctx context.Context, db *gorm.DB, subdomain string) (*domain.CompanySetting, error) {
	var settings []domain.CompanySetting
	err := db.WithContext(ctx).
		Table("company_notification_settings s").
		Select("s.*").
		Joins("JOIN notification_groups g ON g.id = s.notification_group_id").
		Where("s.company_subdomain = ? AND s.is_active = ? AND g.is_active = ?", subdomain, true, true).
		Order("s.id").
		Limit(1).
		Scan(&settings).Error
	if err != nil {
		return nil, err
	}
	if len(settings) == 0 {
		return nil, nil
	}
	return &settings[0], nil
}

func (r *repo) FindActiveGroup(ctx context.Context, db *gorm.DB, id int64) (*domain.Group, error) {
	var groups []domain.Group
	err := db.WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		Limit(1).
		Find(&groups).Error
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, nil
	}
	return &groups[0], nil
}

func (r *repo) ListActiveContacts(ctx context.Context, db *gorm.DB, groupID int64) ([]domain.Contact, error) {
	var contacts []domain.Contact
	err := db.WithContext(ctx).
		Where("group_id = ? AND is_active = ?", groupID, true).
		Order("id").
		Find(&contacts).Error
	if err != nil {
		return nil, err
	}
	return contacts, nil
}

func (r *repo) ListActiveSettings(ctx context.Context, db *gorm.DB) ([]domain.ConfiguredCompany, error) {
	var rows []domain.ConfiguredCompany
	err := db.WithContext(ctx).Raw(
		`SELECT s.id AS setting_id, s.company_subdomain AS subdomain, s.notification_group_id AS group_id,
			g.group_name AS group_name, s.template_name AS template_name
		 FROM company_notification_settings s
		 JOIN notification_groups g ON g.id = s.notification_group_id
		 WHERE s.is_active = ? AND g.is_active = ?
		 ORDER BY s.company_subdomain, s.id`,
		true, true,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) ListActiveGroups(ctx context.Context, db *gorm.DB) ([]domain.Group, error) {
	var groups []domain.Group
	err := db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("group_name").
		Find(&groups).Error
	if err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *repo) ListCompaniesByGroup(ctx context.Context, db *gorm.DB, groupID int64) ([]string, error) {
	var subdomains []string
	err := db.WithContext(ctx).
		Model(&domain.CompanySetting{}).
		Where("notification_group_id = ? AND is_active = ?", groupID, true).
		Order("company_subdomain").
		Pluck("company_subdomain", &subdomains).Error
	if err != nil {
		return nil, err
	}
	return subdomains, nil
}
