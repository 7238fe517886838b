package notifier

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/smallbiznis/invoicenotify/internal/providers/whatsapp"
	recipientdomain "github.com/smallbiznis/invoicenotify/internal/recipient/domain"
	rejectiondomain "github.com/smallbiznis/invoicenotify/internal/rejection/domain"
	"github.com/smallbiznis/invoicenotify/internal/tenantdb"
	"go.uber.org/zap"
)

// GlobalSummary counts unnotified rejected invoices per active tenant in the
// global window. Tenants that cannot be queried are listed as failures.
func (n *Notifier) GlobalSummary(ctx context.Context) (GlobalSummary, error) {
	r, err := n.newRun(n.notifyCfg.GlobalWindow)
	if err != nil {
		return GlobalSummary{}, err
	}
	tenants, err := n.tenants.ListActive(ctx)
	if err != nil {
		return GlobalSummary{}, err
	}
	if len(tenants) == 0 {
		return GlobalSummary{}, rejectiondomain.ErrNoActiveTenants
	}

	summary := GlobalSummary{Window: r.window, GeneratedAt: r.now, Companies: []CompanyCount{}}
	for _, tenant := range tenants {
		notified, err := n.ledger.NotifiedIDs(ctx, tenant.Subdomain)
		if err != nil {
			return GlobalSummary{}, err
		}
		invoices, err := n.rejections.FetchRejected(ctx, tenant, rejectiondomain.Query{Window: r.window, Exclude: notified})
		if err != nil {
			reason := string(StatusQueryFailed)
			if errors.Is(err, tenantdb.ErrTenantUnavailable) {
				reason = string(StatusConnectionFailed)
			}
			summary.Failures = append(summary.Failures, rejectiondomain.TenantFailure{
				Subdomain: tenant.Subdomain,
				Reason:    reason,
				Error:     err.Error(),
			})
			n.log.Warn("notifier.global.tenant_failed", zap.String("subdomain", tenant.Subdomain), zap.Error(err))
			continue
		}
		if len(invoices) == 0 {
			continue
		}

		codes := make([]string, 0)
		for _, group := range rejectiondomain.GroupByCode(invoices) {
			codes = append(codes, group.ErrorCode)
		}
		summary.Companies = append(summary.Companies, CompanyCount{
			Subdomain:  tenant.Subdomain,
			Invoices:   len(invoices),
			ErrorCodes: codes,
		})
		summary.TotalCompanies++
		summary.TotalInvoices += len(invoices)
	}
	return summary, nil
}

// NotifyGlobalSupport sends the cross-tenant summary to the support group.
// Support alerts are informational and leave the ledger untouched, so the
// company flow still notifies each company of the same invoices. The cost is
// that the digest is not deduplicated: every call within the same global
// window (one day by default) resends the same invoices. The scheduler runs
// it once per window; extra manual triggers repeat it.
func (n *Notifier) NotifyGlobalSupport(ctx context.Context) (SupportOutcome, error) {
	start := time.Now()
	if err := n.sender.Configured(); err != nil {
		return SupportOutcome{}, err
	}

	summary, err := n.GlobalSummary(ctx)
	if err != nil {
		return SupportOutcome{}, err
	}
	out := SupportOutcome{
		Outcome: Outcome{Subdomain: n.notifyCfg.GlobalSupportSubdomain, InvoicesFound: summary.TotalInvoices},
		Summary: &summary,
	}
	if summary.TotalInvoices == 0 {
		out.Status = StatusNothingNew
		n.finishSupport(FlowGlobal, &out, start)
		return out, nil
	}

	recipients, err := n.recipients.Resolve(ctx, n.notifyCfg.GlobalSupportSubdomain)
	if err != nil {
		return SupportOutcome{}, err
	}

	template := n.supportTemplate(recipients.Setting)
	var params []any
	if recipients.Setting.IncludeParameters() {
		params = globalParams(summary, n.clock.Now().In(n.location), n.notifyCfg.SystemURL)
	}
	n.dispatchSupport(ctx, &out, recipients, template, params)
	n.finishSupport(FlowGlobal, &out, start)
	return out, nil
}

// TestSupport sends the parameterless test template to the support group.
func (n *Notifier) TestSupport(ctx context.Context) (SupportOutcome, error) {
	start := time.Now()
	if err := n.sender.Configured(); err != nil {
		return SupportOutcome{}, err
	}
	recipients, err := n.recipients.Resolve(ctx, n.notifyCfg.GlobalSupportSubdomain)
	if err != nil {
		return SupportOutcome{}, err
	}

	out := SupportOutcome{Outcome: Outcome{Subdomain: n.notifyCfg.GlobalSupportSubdomain}}
	template := strings.TrimSpace(n.notifyCfg.TestTemplate)
	if template == "" {
		template = "hello_world"
	}
	n.dispatchSupport(ctx, &out, recipients, template, nil)
	n.finishSupport(FlowTest, &out, start)
	return out, nil
}

func (n *Notifier) supportTemplate(setting recipientdomain.CompanySetting) string {
	if t := strings.TrimSpace(setting.TemplateName); t != "" {
		return t
	}
	return n.notifyCfg.GlobalTemplate
}

func (n *Notifier) dispatchSupport(ctx context.Context, out *SupportOutcome, recipients recipientdomain.Recipients, template string, params []any) {
	results := n.sender.SendTemplate(ctx, recipients.Phones, template, params)
	stats := whatsapp.Stats(results)

	out.TemplateUsed = template
	out.GroupName = recipients.Group.GroupName
	out.Params = params
	out.Deliveries = results
	out.Stats = &stats
	out.Errors = whatsapp.UniqueErrors(results)
	out.TotalContacts = len(recipients.Phones)
	n.metrics.AddDeliveries(template, stats.SuccessfulDeliveries, stats.FailedDeliveries)

	if stats.SuccessfulDeliveries == 0 {
		out.Status = StatusDeliveryFailed
		if allConfigErrors(results) {
			out.Status = StatusConfigError
		}
		n.obsMetrics.RecordDispatchBatch(ctx, template, "failed")
		return
	}
	out.Status = StatusNotified
	out.InvoicesNotified = out.InvoicesFound
	status := "sent"
	if stats.FailedDeliveries > 0 {
		status = "partial"
	}
	n.obsMetrics.RecordDispatchBatch(ctx, template, status)
}

func (n *Notifier) finishSupport(flow string, out *SupportOutcome, start time.Time) {
	out.DurationMs = time.Since(start).Milliseconds()
	n.metrics.IncTenantOutcome(flow, string(out.Status))
	n.metrics.ObserveTenantDuration(flow, time.Since(start))
	fields := []zap.Field{
		zap.String("flow", flow),
		zap.String("status", string(out.Status)),
		zap.String("template", out.TemplateUsed),
		zap.Int("invoices", out.InvoicesFound),
	}
	if out.Stats != nil {
		fields = append(fields,
			zap.Int("successful", out.Stats.SuccessfulDeliveries),
			zap.Int("failed", out.Stats.FailedDeliveries),
		)
	}
	n.log.Info("notifier.support.completed", fields...)
}
