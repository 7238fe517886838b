package repository

import (
	"context"

	"github.com/smallbiznis/invoicenotify/internal/rejection/domain"
	"gorm.io/gorm"
)

const rejectedColumns = "id, file_name, error_code, response_descrip, reference_date, issue_date, fCrea, type, status_ticket"

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindRejected(ctx context.Context, db *gorm.DB, q domain.Query) ([]domain.InvoiceError, error) {
	query := db.WithContext(ctx).
		Table("tec_send_invoice").
		Select(rejectedColumns).
		Where("error_code <> ? AND estado = ? AND type = ?", "0", 1, "RF").
		Where("fCrea >= ? AND fCrea < ?", q.Window.Start, q.Window.End)
	if len(q.Exclude) > 0 {
		query = query.Where("id NOT IN ?", q.Exclude)
	}
	if q.GroupedOrder {
		query = query.Order("error_code")
	}

	var rows []domain.InvoiceError
	if err := query.Order("fCrea DESC").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
