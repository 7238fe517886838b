package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	NotifiedIDs(ctx context.Context, db *gorm.DB, subdomain string, groupID *int64) ([]int64, error)
	Exists(ctx context.Context, db *gorm.DB, subdomain string, invoiceID int64) (bool, error)
	InsertBatch(ctx context.Context, db *gorm.DB, entries []Entry) (int64, error)
	Stats(ctx context.Context, db *gorm.DB, subdomain string, since time.Time) (Stats, error)
	History(ctx context.Context, db *gorm.DB, subdomain string, limit int) ([]HistoryEntry, error)
}
