package notifier

import (
	"time"

	"github.com/smallbiznis/invoicenotify/internal/providers/whatsapp"
	rejectiondomain "github.com/smallbiznis/invoicenotify/internal/rejection/domain"
)

const (
	FlowCompany = "company"
	FlowGlobal  = "global_support"
	FlowTest    = "test_support"
)

// Status is the per-tenant result of one notification pass.
type Status string

const (
	StatusNotified         Status = "notified"
	StatusNothingNew       Status = "nothing_new"
	StatusSkipped          Status = "skipped"
	StatusLocked           Status = "locked"
	StatusNotConfigured    Status = "not_configured"
	StatusNoContacts       Status = "no_contacts"
	StatusTenantNotFound   Status = "tenant_not_found"
	StatusConnectionFailed Status = "connection_failed"
	StatusQueryFailed      Status = "query_failed"
	StatusDeliveryFailed   Status = "delivery_failed"
	StatusConfigError      Status = "config_error"
	StatusLedgerFailed     Status = "ledger_failed"
	StatusFailed           Status = "failed"
)

// Succeeded reports whether the status counts as a successful tenant.
func (s Status) Succeeded() bool {
	return s == StatusNotified || s == StatusNothingNew
}

// Skipped reports whether the tenant was left alone on purpose.
func (s Status) Skipped() bool {
	return s == StatusSkipped || s == StatusLocked
}

// Policy reports a configuration gap rather than a system fault.
func (s Status) Policy() bool {
	return s == StatusNotConfigured || s == StatusNoContacts
}

// Outcome describes what happened to one tenant.
type Outcome struct {
	Subdomain        string                         `json:"subdomain"`
	Status           Status                         `json:"status"`
	InvoicesFound    int                            `json:"invoices_found"`
	InvoicesNotified int                            `json:"invoices_notified"`
	AlreadyRecorded  int                            `json:"already_recorded,omitempty"`
	TemplateUsed     string                         `json:"template_used,omitempty"`
	GroupName        string                         `json:"group_name,omitempty"`
	BatchID          string                         `json:"batch_id,omitempty"`
	Params           []any                          `json:"template_params,omitempty"`
	Stats            *whatsapp.DeliveryStats        `json:"delivery_stats,omitempty"`
	Deliveries       []whatsapp.DeliveryResult      `json:"delivery_details,omitempty"`
	Errors           []whatsapp.ErrorGroup          `json:"delivery_errors,omitempty"`
	Invoices         []rejectiondomain.InvoiceError `json:"invoices,omitempty"`
	Error            string                         `json:"error,omitempty"`
	DurationMs       int64                          `json:"duration_ms"`
}

// RunSummary is the folded result of a fan-out run. It is built once from
// the per-tenant outcomes and not modified afterwards.
type RunSummary struct {
	Flow             string                 `json:"flow"`
	Window           rejectiondomain.Window `json:"window"`
	StartedAt        time.Time              `json:"started_at"`
	FinishedAt       time.Time              `json:"finished_at"`
	TenantsQueried   int                    `json:"tenants_queried"`
	Succeeded        int                    `json:"succeeded"`
	Failed           int                    `json:"failed"`
	Skipped          int                    `json:"skipped"`
	InvoicesFound    int                    `json:"invoices_found"`
	InvoicesNotified int                    `json:"invoices_notified"`
	Outcomes         []Outcome              `json:"outcomes"`
}

func summarize(flow string, window rejectiondomain.Window, started, finished time.Time, outcomes []Outcome) RunSummary {
	summary := RunSummary{
		Flow:       flow,
		Window:     window,
		StartedAt:  started,
		FinishedAt: finished,
		Outcomes:   append([]Outcome(nil), outcomes...),
	}
	if summary.Outcomes == nil {
		summary.Outcomes = []Outcome{}
	}
	for _, o := range outcomes {
		summary.TenantsQueried++
		switch {
		case o.Status.Succeeded():
			summary.Succeeded++
		case o.Status.Skipped():
			summary.Skipped++
		default:
			summary.Failed++
		}
		summary.InvoicesFound += o.InvoicesFound
		summary.InvoicesNotified += o.InvoicesNotified
	}
	return summary
}

// CompanyCount is one tenant's line in the global support summary.
type CompanyCount struct {
	Subdomain  string   `json:"subdomain"`
	Invoices   int      `json:"total_invoices"`
	ErrorCodes []string `json:"error_codes"`
}

// GlobalSummary aggregates unnotified rejected invoices across tenants.
type GlobalSummary struct {
	Window         rejectiondomain.Window          `json:"window"`
	GeneratedAt    time.Time                       `json:"generated_at"`
	TotalCompanies int                             `json:"total_companies"`
	TotalInvoices  int                             `json:"total_invoices"`
	Companies      []CompanyCount                  `json:"companies_detail"`
	Failures       []rejectiondomain.TenantFailure `json:"failures,omitempty"`
}

// SupportOutcome is the result of a dispatch to the global support group.
type SupportOutcome struct {
	Outcome
	TotalContacts int            `json:"total_contacts"`
	Summary       *GlobalSummary `json:"summary,omitempty"`
}
