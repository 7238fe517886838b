package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/invoicenotify/internal/ledger/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

var notifiedStatuses = []domain.Status{domain.StatusSent, domain.StatusPartial}

func (r *repo) NotifiedIDs(ctx context.Context, db *gorm.DB, subdomain string, groupID *int64) ([]int64, error) {
	query := db.WithContext(ctx).
		Model(&domain.Entry{}).
		Distinct("invoice_id").
		Where("company_subdomain = ? AND status IN ?", subdomain, notifiedStatuses)
	if groupID != nil {
		query = query.Where("notification_group_id = ?", *groupID)
	}

	var ids []int64
	if err := query.Order("invoice_id").Pluck("invoice_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repo) Exists(ctx context.Context, db *gorm.DB, subdomain string, invoiceID int64) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Entry{}).
		Where("company_subdomain = ? AND invoice_id = ? AND status IN ?", subdomain, invoiceID, notifiedStatuses).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) InsertBatch(ctx context.Context, db *gorm.DB, entries []domain.Entry) (int64, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	result := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "company_subdomain"},
				{Name: "invoice_id"},
				{Name: "notification_group_id"},
			},
			DoNothing: true,
		}).
		Create(&entries)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repo) Stats(ctx context.Context, db *gorm.DB, subdomain string, since time.Time) (domain.Stats, error) {
	var row struct {
		Total          int64
		Successful     int64
		Failed         int64
		Partial        int64
		UniqueInvoices int64
	}
	err := db.WithContext(ctx).Raw(
		`SELECT
			COUNT(*) AS total,
			COUNT(CASE WHEN status = 'sent' THEN 1 END) AS successful,
			COUNT(CASE WHEN status = 'failed' THEN 1 END) AS failed,
			COUNT(CASE WHEN status = 'partial' THEN 1 END) AS partial,
			COUNT(DISTINCT invoice_id) AS unique_invoices
		 FROM invoice_notifications
		 WHERE company_subdomain = ? AND notified_at >= ?`,
		subdomain, since,
	).Scan(&row).Error
	if err != nil {
		return domain.Stats{}, err
	}
	return domain.Stats{
		Total:          row.Total,
		Successful:     row.Successful,
		Failed:         row.Failed,
		Partial:        row.Partial,
		UniqueInvoices: row.UniqueInvoices,
	}, nil
}

func (r *repo) History(ctx context.Context, db *gorm.DB, subdomain string, limit int) ([]domain.HistoryEntry, error) {
	query := db.WithContext(ctx).
		Table("invoice_notifications n").
		Select("n.*, g.group_name AS group_name").
		Joins("LEFT JOIN notification_groups g ON g.id = n.notification_group_id")
	if subdomain != "" {
		query = query.Where("n.company_subdomain = ?", subdomain)
	}

	var entries []domain.HistoryEntry
	if err := query.Order("n.notified_at DESC").Order("n.id DESC").Limit(limit).Scan(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
