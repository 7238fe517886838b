package domain

import (
	"time"
)

// InvoiceError is a rejected invoice read from a tenant's tec_send_invoice
// table. It is never stored by this service.
type InvoiceError struct {
	InvoiceID        int64      `gorm:"column:id" json:"id"`
	FileName         string     `gorm:"column:file_name" json:"file_name"`
	ErrorCode        string     `gorm:"column:error_code" json:"error_code"`
	ErrorDescription string     `gorm:"column:response_descrip" json:"error_description"`
	ReferenceDate    *time.Time `gorm:"column:reference_date" json:"reference_date,omitempty"`
	IssueDate        *time.Time `gorm:"column:issue_date" json:"issue_date,omitempty"`
	CreatedAt        time.Time  `gorm:"column:fCrea" json:"created_at"`
	Type             string     `gorm:"column:type" json:"type"`
	Status           string     `gorm:"column:status_ticket" json:"status"`
}

// CodeGroup collects invoices sharing an error code.
type CodeGroup struct {
	ErrorCode   string         `json:"error_code"`
	Description string         `json:"error_description"`
	Total       int            `json:"total"`
	Invoices    []InvoiceError `json:"invoices,omitempty"`
}

// GroupByCode groups invoices by error code keeping the order in which each
// code first appears. The description is the first non-empty one seen.
func GroupByCode(invoices []InvoiceError) []CodeGroup {
	groups := make([]CodeGroup, 0)
	index := make(map[string]int)
	for _, inv := range invoices {
		i, ok := index[inv.ErrorCode]
		if !ok {
			groups = append(groups, CodeGroup{ErrorCode: inv.ErrorCode})
			i = len(groups) - 1
			index[inv.ErrorCode] = i
		}
		if groups[i].Description == "" {
			groups[i].Description = inv.ErrorDescription
		}
		groups[i].Total++
		groups[i].Invoices = append(groups[i].Invoices, inv)
	}
	return groups
}

// MainCode returns the most frequent code. Ties go to the code seen first.
func MainCode(invoices []InvoiceError) (CodeGroup, bool) {
	groups := GroupByCode(invoices)
	if len(groups) == 0 {
		return CodeGroup{}, false
	}
	best := groups[0]
	for _, g := range groups[1:] {
		if g.Total > best.Total {
			best = g
		}
	}
	return best, true
}

// Exclude drops invoices whose id is in ids.
func Exclude(invoices []InvoiceError, ids []int64) []InvoiceError {
	if len(ids) == 0 {
		return invoices
	}
	skip := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		skip[id] = struct{}{}
	}
	out := make([]InvoiceError, 0, len(invoices))
	for _, inv := range invoices {
		if _, ok := skip[inv.InvoiceID]; !ok {
			out = append(out, inv)
		}
	}
	return out
}

type Company struct {
	ID        int64  `json:"id"`
	Subdomain string `json:"subdomain"`
	DBName    string `json:"db_name"`
}

type CompanyReport struct {
	Company  Company        `json:"company"`
	Invoices []InvoiceError `json:"invoices"`
	Total    int            `json:"total"`
}

// FanOutSummary counts what happened across tenants in one report.
type FanOutSummary struct {
	TenantsQueried    int `json:"tenants_queried"`
	Succeeded         int `json:"connections_succeeded"`
	Failed            int `json:"connections_failed"`
	TenantsWithErrors int `json:"tenants_with_errors"`
	TotalInvoices     int `json:"total_invoices"`
}

// TenantFailure is a tenant skipped because of a connection or query error.
type TenantFailure struct {
	Subdomain string `json:"subdomain"`
	Reason    string `json:"reason"`
	Error     string `json:"error"`
}

type WeeklyReport struct {
	Window    Window          `json:"window"`
	Companies []CompanyReport `json:"companies"`
	Failures  []TenantFailure `json:"failures,omitempty"`
	Summary   FanOutSummary   `json:"summary"`
}

type CompanyErrorSummary struct {
	Subdomain string      `json:"subdomain"`
	Total     int         `json:"total"`
	Codes     []CodeGroup `json:"codes"`
}

type ErrorSummaryReport struct {
	Window    Window                `json:"window"`
	Companies []CompanyErrorSummary `json:"companies"`
	Failures  []TenantFailure       `json:"failures,omitempty"`
	Summary   FanOutSummary         `json:"summary"`
}

type UnnotifiedReport struct {
	Window          Window         `json:"window"`
	Company         Company        `json:"company"`
	Invoices        []InvoiceError `json:"invoices"`
	Total           int            `json:"total"`
	AlreadyNotified int            `json:"already_notified"`
}

type ConnectionCheck struct {
	Subdomain string `json:"subdomain"`
	DBName    string `json:"db_name"`
	DBHost    string `json:"db_host"`
	OK        bool   `json:"ok"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

type ConnectionReport struct {
	Checks    []ConnectionCheck `json:"checks"`
	Total     int               `json:"total"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
}
