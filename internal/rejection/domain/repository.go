package domain

import (
	"context"

	"gorm.io/gorm"
)

// Query selects rejected invoices in a window. Exclude ids are bound as a
// parameter list. GroupedOrder sorts by error code first.
type Query struct {
	Window       Window
	Exclude      []int64
	GroupedOrder bool
}

type Repository interface {
	FindRejected(ctx context.Context, db *gorm.DB, q Query) ([]InvoiceError, error)
}
