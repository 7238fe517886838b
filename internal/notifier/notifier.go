package notifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/smallbiznis/invoicenotify/internal/clock"
	"github.com/smallbiznis/invoicenotify/internal/config"
	ledgerdomain "github.com/smallbiznis/invoicenotify/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/invoicenotify/internal/observability/metrics"
	"github.com/smallbiznis/invoicenotify/internal/providers/whatsapp"
	"github.com/smallbiznis/invoicenotify/internal/ratelimit"
	recipientdomain "github.com/smallbiznis/invoicenotify/internal/recipient/domain"
	rejectiondomain "github.com/smallbiznis/invoicenotify/internal/rejection/domain"
	tenantdomain "github.com/smallbiznis/invoicenotify/internal/tenant/domain"
	"github.com/smallbiznis/invoicenotify/internal/tenantdb"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Sender delivers a template to a list of phones.
type Sender interface {
	Configured() error
	SendTemplate(ctx context.Context, phones []string, templateName string, params []any) []whatsapp.DeliveryResult
}

type Params struct {
	fx.In

	Log        *zap.Logger
	Cfg        config.Config
	Clock      clock.Clock
	Tenants    tenantdomain.Service
	Rejections rejectiondomain.Service
	Ledger     ledgerdomain.Service
	Recipients recipientdomain.Service
	Sender     Sender
	Policy     *config.NotifyPolicyHolder  `optional:"true"`
	Lock       *ratelimit.TenantLock       `optional:"true"`
	Metrics    *obsmetrics.NotifierMetrics `optional:"true"`
	ObsMetrics *obsmetrics.Metrics         `optional:"true"`
}

type Notifier struct {
	log        *zap.Logger
	clock      clock.Clock
	location   *time.Location
	notifyCfg  config.NotifyConfig
	tenants    tenantdomain.Service
	rejections rejectiondomain.Service
	ledger     ledgerdomain.Service
	recipients recipientdomain.Service
	sender     Sender
	policy     *config.NotifyPolicyHolder
	lock       *ratelimit.TenantLock
	metrics    *obsmetrics.NotifierMetrics
	obsMetrics *obsmetrics.Metrics
}

func New(p Params) *Notifier {
	cfg := p.Cfg.Notify
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if strings.TrimSpace(cfg.GlobalSupportSubdomain) == "" {
		cfg.GlobalSupportSubdomain = "global_support"
	}
	return &Notifier{
		log:        p.Log.Named("notifier"),
		clock:      p.Clock,
		location:   cfg.Location(),
		notifyCfg:  cfg,
		tenants:    p.Tenants,
		rejections: p.Rejections,
		ledger:     p.Ledger,
		recipients: p.Recipients,
		sender:     p.Sender,
		policy:     p.Policy,
		lock:       p.Lock,
		metrics:    p.Metrics,
		obsMetrics: p.ObsMetrics,
	}
}

// run carries the values shared by every tenant of one pass.
type run struct {
	window rejectiondomain.Window
	now    time.Time
	policy config.NotifyPolicy
}

func (n *Notifier) newRun(kind string) (run, error) {
	window, err := n.rejections.Window(kind)
	if err != nil {
		return run{}, err
	}
	return run{
		window: window,
		now:    n.clock.Now().In(n.location),
		policy: n.policy.Get(),
	}, nil
}

// NotifyCompany runs one notification pass for a single company. The only
// error returned is a missing provider configuration; everything else is
// reported in the outcome.
func (n *Notifier) NotifyCompany(ctx context.Context, subdomain string) (Outcome, error) {
	if err := n.sender.Configured(); err != nil {
		return Outcome{Subdomain: subdomain, Status: StatusConfigError, Error: err.Error()}, err
	}
	r, err := n.newRun(n.notifyCfg.CompanyWindow)
	if err != nil {
		return Outcome{}, err
	}
	return n.processTenant(ctx, r, strings.TrimSpace(subdomain)), nil
}

// NotifyAll runs a pass over every company with an active setting. Tenants
// are processed by at most Concurrency workers; one tenant failing never
// stops the others.
func (n *Notifier) NotifyAll(ctx context.Context) (RunSummary, error) {
	started := n.clock.Now()
	if err := n.sender.Configured(); err != nil {
		return RunSummary{}, err
	}
	r, err := n.newRun(n.notifyCfg.CompanyWindow)
	if err != nil {
		return RunSummary{}, err
	}
	companies, err := n.recipients.ConfiguredCompanies(ctx)
	if err != nil {
		return RunSummary{}, fmt.Errorf("list configured companies: %w", err)
	}

	outcomes := make([]Outcome, len(companies))
	var g errgroup.Group
	g.SetLimit(n.notifyCfg.Concurrency)
	for i, company := range companies {
		g.Go(func() error {
			outcomes[i] = n.processTenant(ctx, r, company.Subdomain)
			return nil
		})
	}
	_ = g.Wait()

	summary := summarize(FlowCompany, r.window, started, n.clock.Now(), outcomes)
	n.log.Info("notifier.run.completed",
		zap.String("flow", FlowCompany),
		zap.Int("tenants", summary.TenantsQueried),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
		zap.Int("invoices_found", summary.InvoicesFound),
		zap.Int("invoices_notified", summary.InvoicesNotified),
	)
	return summary, nil
}

// processTenant never panics and never returns an error: every failure is
// folded into the outcome.
func (n *Notifier) processTenant(ctx context.Context, r run, subdomain string) (out Outcome) {
	start := time.Now()
	out = Outcome{Subdomain: subdomain}
	log := n.log.With(zap.String("subdomain", subdomain))

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("notifier.company.panic", zap.Any("panic", rec), zap.Stack("stack"))
			out.Status = StatusFailed
			out.Error = fmt.Sprintf("panic: %v", rec)
		}
		out.DurationMs = time.Since(start).Milliseconds()
		n.metrics.IncTenantOutcome(FlowCompany, string(out.Status))
		n.metrics.ObserveTenantDuration(FlowCompany, time.Since(start))
		n.metrics.AddInvoices(out.InvoicesFound, out.InvoicesNotified)
	}()

	if r.policy.Skips(subdomain) {
		out.Status = StatusSkipped
		log.Info("notifier.company.skipped")
		return out
	}

	release, ok, err := n.lock.Acquire(ctx, FlowCompany, subdomain)
	if err != nil {
		log.Warn("notifier.company.lock_unavailable", zap.Error(err))
	} else if !ok {
		out.Status = StatusLocked
		log.Info("notifier.company.locked")
		return out
	}
	defer release(context.WithoutCancel(ctx))

	tenant, err := n.tenants.FindBySubdomain(ctx, subdomain)
	if err != nil {
		out.Status = StatusFailed
		if errors.Is(err, tenantdomain.ErrNotFound) || errors.Is(err, tenantdomain.ErrInvalidSubdomain) {
			out.Status = StatusTenantNotFound
		}
		out.Error = err.Error()
		log.Warn("notifier.company.tenant_lookup_failed", zap.Error(err))
		return out
	}

	notified, err := n.ledger.NotifiedIDs(ctx, tenant.Subdomain)
	if err != nil {
		out.Status = StatusFailed
		out.Error = err.Error()
		log.Error("notifier.company.ledger_read_failed", zap.Error(err))
		return out
	}

	invoices, err := n.rejections.FetchRejected(ctx, tenant, rejectiondomain.Query{Window: r.window, Exclude: notified})
	if err != nil {
		out.Status = StatusQueryFailed
		if errors.Is(err, tenantdb.ErrTenantUnavailable) {
			out.Status = StatusConnectionFailed
		}
		out.Error = err.Error()
		log.Warn("notifier.company.query_failed", zap.String("status", string(out.Status)), zap.Error(err))
		return out
	}
	out.InvoicesFound = len(invoices)
	if len(invoices) == 0 {
		out.Status = StatusNothingNew
		return out
	}

	recipients, err := n.recipients.Resolve(ctx, tenant.Subdomain)
	out.GroupName = recipients.Group.GroupName
	out.TemplateUsed = recipients.Setting.TemplateName
	if err != nil {
		switch {
		case errors.Is(err, recipientdomain.ErrNotConfigured):
			out.Status = StatusNotConfigured
		case errors.Is(err, recipientdomain.ErrNoContacts):
			out.Status = StatusNoContacts
		default:
			out.Status = StatusFailed
		}
		out.Error = err.Error()
		log.Warn("notifier.company.recipients_unresolved", zap.String("status", string(out.Status)), zap.Error(err))
		return out
	}

	params := companyParams(tenant.Subdomain, invoices, r.now, n.notifyCfg.DescriptionBudget)
	results := n.sender.SendTemplate(ctx, recipients.Phones, recipients.Setting.TemplateName, params)
	stats := whatsapp.Stats(results)
	out.Params = params
	out.Invoices = invoices
	out.Deliveries = results
	out.Stats = &stats
	out.Errors = whatsapp.UniqueErrors(results)
	n.metrics.AddDeliveries(recipients.Setting.TemplateName, stats.SuccessfulDeliveries, stats.FailedDeliveries)

	if stats.SuccessfulDeliveries == 0 {
		out.Status = StatusDeliveryFailed
		if allConfigErrors(results) {
			out.Status = StatusConfigError
		}
		n.obsMetrics.RecordDispatchBatch(ctx, recipients.Setting.TemplateName, string(ledgerdomain.StatusFailed))
		log.Warn("notifier.company.delivery_failed",
			zap.Int("invoices", len(invoices)),
			zap.Int("failed", stats.FailedDeliveries),
		)
		return out
	}

	recorded, err := n.ledger.RecordBatch(ctx, ledgerdomain.RecordBatchRequest{
		Subdomain:    tenant.Subdomain,
		Invoices:     invoiceRefs(invoices),
		TemplateUsed: recipients.Setting.TemplateName,
		GroupID:      recipients.Setting.NotificationGroupID,
		Results:      results,
		NotifiedAt:   r.now,
	})
	if err != nil {
		out.Status = StatusLedgerFailed
		out.Error = err.Error()
		log.Error("notifier.company.ledger_write_failed", zap.Error(err))
		return out
	}
	n.obsMetrics.RecordDispatchBatch(ctx, recipients.Setting.TemplateName, string(recorded.Status))

	out.Status = StatusNotified
	out.BatchID = recorded.BatchID
	out.InvoicesNotified = len(invoices)
	out.AlreadyRecorded = recorded.AlreadyRecorded
	log.Info("notifier.company.notified",
		zap.String("template", recipients.Setting.TemplateName),
		zap.String("group", recipients.Group.GroupName),
		zap.Int("invoices", len(invoices)),
		zap.Int("successful", stats.SuccessfulDeliveries),
		zap.Int("failed", stats.FailedDeliveries),
		zap.String("batch_id", recorded.BatchID),
	)
	return out
}

func allConfigErrors(results []whatsapp.DeliveryResult) bool {
	if len(results) == 0 {
		return false
	}
	for _, r := range results {
		if r.ErrorCode != whatsapp.ErrorCodeConfig {
			return false
		}
	}
	return true
}

func invoiceRefs(invoices []rejectiondomain.InvoiceError) []ledgerdomain.InvoiceRef {
	refs := make([]ledgerdomain.InvoiceRef, 0, len(invoices))
	for _, inv := range invoices {
		created := inv.CreatedAt
		refs = append(refs, ledgerdomain.InvoiceRef{
			InvoiceID:        inv.InvoiceID,
			FileName:         inv.FileName,
			ErrorCode:        inv.ErrorCode,
			ErrorDescription: inv.ErrorDescription,
			InvoiceDate:      &created,
		})
	}
	return refs
}
