package notifier

import (
	"fmt"
	"strings"
	"time"

	rejectiondomain "github.com/smallbiznis/invoicenotify/internal/rejection/domain"
)

const (
	unknownErrorDescription = "Error desconocido"
	defaultDescriptionLimit = 50
)

// companyParams builds the positional template parameters for a company
// alert: subdomain, total, main code, main code count, timestamp and a
// shortened description of the main code.
func companyParams(subdomain string, invoices []rejectiondomain.InvoiceError, now time.Time, limit int) []any {
	main, ok := rejectiondomain.MainCode(invoices)
	code, count, desc := "UNKNOWN", 0, unknownErrorDescription
	if ok {
		code, count = main.ErrorCode, main.Total
		if d := strings.TrimSpace(main.Description); d != "" {
			desc = d
		}
	}
	return []any{
		subdomain,
		len(invoices),
		code,
		count,
		now.Format("02/01/2006 15:04"),
		truncate(desc, limit),
	}
}

// globalParams builds the support template parameters: date, time, company
// count, invoice count, per-company lines and the admin URL.
func globalParams(summary GlobalSummary, now time.Time, systemURL string) []any {
	return []any{
		now.Format("02/01/2006"),
		now.Format("15:04"),
		summary.TotalCompanies,
		summary.TotalInvoices,
		companyLines(summary.Companies),
		systemURL,
	}
}

// companyLines renders one "• SUB: N facturas" entry per company. Template
// parameters cannot carry newlines, so entries are separated with " | ".
func companyLines(companies []CompanyCount) string {
	lines := make([]string, 0, len(companies))
	for _, c := range companies {
		lines = append(lines, fmt.Sprintf("• %s: %d facturas", strings.ToUpper(c.Subdomain), c.Invoices))
	}
	return strings.Join(lines, " | ")
}

func truncate(s string, limit int) string {
	if limit <= 0 {
		limit = defaultDescriptionLimit
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
