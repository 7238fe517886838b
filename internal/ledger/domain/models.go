package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Status is the delivery outcome shared by every row of one batch.
type Status string

const (
	StatusSent    Status = "sent"
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
)

// Entry records that one invoice was announced to one notification group.
// Rows are never updated once written.
type Entry struct {
	ID                  snowflake.ID   `gorm:"primaryKey;autoIncrement:false" json:"id"`
	CompanySubdomain    string         `gorm:"type:varchar(100);not null;uniqueIndex:ux_invoice_notifications_company_invoice_group,priority:1;index:idx_invoice_notifications_company_notified,priority:1" json:"company_subdomain"`
	InvoiceID           int64          `gorm:"not null;uniqueIndex:ux_invoice_notifications_company_invoice_group,priority:2" json:"invoice_id"`
	InvoiceFileName     string         `gorm:"type:varchar(255);not null" json:"invoice_file_name"`
	ErrorCode           string         `gorm:"type:varchar(50);not null" json:"error_code"`
	ErrorDescription    string         `gorm:"type:text" json:"error_description,omitempty"`
	InvoiceDate         *time.Time     `json:"invoice_date,omitempty"`
	NotifiedAt          time.Time      `gorm:"not null;index:idx_invoice_notifications_company_notified,priority:2" json:"notified_at"`
	TemplateUsed        string         `gorm:"type:varchar(100);not null" json:"template_used"`
	NotificationGroupID int64          `gorm:"not null;uniqueIndex:ux_invoice_notifications_company_invoice_group,priority:3" json:"notification_group_id"`
	DeliveryResults     datatypes.JSON `json:"delivery_results"`
	Status              Status         `gorm:"type:varchar(20);not null;index" json:"status"`
	BatchID             string         `gorm:"type:varchar(26);not null;index" json:"batch_id"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}

func (Entry) TableName() string { return "invoice_notifications" }

// HistoryEntry is a ledger row decorated with its group name.
type HistoryEntry struct {
	Entry
	GroupName string `json:"group_name,omitempty"`
}

// InvoiceRef carries the invoice fields copied into the ledger.
type InvoiceRef struct {
	InvoiceID        int64
	FileName         string
	ErrorCode        string
	ErrorDescription string
	InvoiceDate      *time.Time
}

type Stats struct {
	Total          int64   `json:"total_notifications"`
	Successful     int64   `json:"successful_notifications"`
	Failed         int64   `json:"failed_notifications"`
	Partial        int64   `json:"partial_notifications"`
	UniqueInvoices int64   `json:"unique_invoices"`
	SuccessRate    float64 `json:"success_rate"`
	PeriodDays     int     `json:"period_days"`
}

const (
	DefaultStatsDays    = 7
	MaxStatsDays        = 90
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 200
)

// DeriveStatus maps delivery counts onto a batch status. No deliveries at
// all counts as failed.
func DeriveStatus(successful, total int) Status {
	switch {
	case total <= 0 || successful <= 0:
		return StatusFailed
	case successful >= total:
		return StatusSent
	default:
		return StatusPartial
	}
}
