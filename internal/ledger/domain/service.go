package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/invoicenotify/internal/providers/whatsapp"
)

type Service interface {
	NotifiedIDs(ctx context.Context, subdomain string) ([]int64, error)
	NotifiedIDsForGroup(ctx context.Context, subdomain string, groupID int64) ([]int64, error)
	IsNotified(ctx context.Context, subdomain string, invoiceID int64) (bool, error)
	RecordBatch(ctx context.Context, req RecordBatchRequest) (RecordBatchResult, error)
	Stats(ctx context.Context, subdomain string, days int) (Stats, error)
	History(ctx context.Context, subdomain string, limit int) ([]HistoryEntry, error)
}

type RecordBatchRequest struct {
	Subdomain    string
	Invoices     []InvoiceRef
	TemplateUsed string
	GroupID      int64
	Results      []whatsapp.DeliveryResult
	NotifiedAt   time.Time
}

type RecordBatchResult struct {
	BatchID         string `json:"batch_id"`
	Status          Status `json:"status"`
	Inserted        int    `json:"inserted"`
	AlreadyRecorded int    `json:"already_recorded"`
}

var (
	ErrInvalidSubdomain = errors.New("invalid_subdomain")
	ErrInvalidGroup     = errors.New("invalid_notification_group")
	ErrInvalidTemplate  = errors.New("invalid_template")
	ErrEmptyBatch       = errors.New("empty_batch")
)
