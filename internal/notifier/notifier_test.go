package notifier

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/invoicenotify/internal/clock"
	"github.com/smallbiznis/invoicenotify/internal/config"
	ledgerdomain "github.com/smallbiznis/invoicenotify/internal/ledger/domain"
	ledgerrepository "github.com/smallbiznis/invoicenotify/internal/ledger/repository"
	ledgerservice "github.com/smallbiznis/invoicenotify/internal/ledger/service"
	"github.com/smallbiznis/invoicenotify/internal/providers/whatsapp"
	recipientdomain "github.com/smallbiznis/invoicenotify/internal/recipient/domain"
	recipientrepository "github.com/smallbiznis/invoicenotify/internal/recipient/repository"
	recipientservice "github.com/smallbiznis/invoicenotify/internal/recipient/service"
	rejectionrepository "github.com/smallbiznis/invoicenotify/internal/rejection/repository"
	rejectionservice "github.com/smallbiznis/invoicenotify/internal/rejection/service"
	tenantdomain "github.com/smallbiznis/invoicenotify/internal/tenant/domain"
	"github.com/smallbiznis/invoicenotify/internal/tenantdb"
	"github.com/smallbiznis/invoicenotify/internal/tenantdb/tenanttest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Wednesday noon; the company window is 2026-10-12 .. 2026-10-19 and the
// global window is 2026-10-14.
var testNow = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

type sendCall struct {
	Phones   []string
	Template string
	Params   []any
}

type fakeSender struct {
	mu          sync.Mutex
	calls       []sendCall
	notReady    error
	failPhones  map[string]bool
	panicOnSend bool
}

func (f *fakeSender) Configured() error {
	return f.notReady
}

func (f *fakeSender) SendTemplate(ctx context.Context, phones []string, template string, params []any) []whatsapp.DeliveryResult {
	f.mu.Lock()
	f.calls = append(f.calls, sendCall{Phones: phones, Template: template, Params: params})
	f.mu.Unlock()
	if f.panicOnSend {
		panic("provider exploded")
	}

	results := make([]whatsapp.DeliveryResult, 0, len(phones))
	for _, phone := range phones {
		r := whatsapp.DeliveryResult{Phone: phone, Success: true, MessageID: "wamid." + phone, StatusCode: 200, Timestamp: testNow}
		if f.failPhones[phone] {
			r = whatsapp.DeliveryResult{Phone: phone, ErrorCode: "131026", Error: "Message undeliverable", StatusCode: 400, Timestamp: testNow}
		}
		results = append(results, r)
	}
	return results
}

func (f *fakeSender) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type harness struct {
	notifier *Notifier
	db       *gorm.DB
	sender   *fakeSender
}

type option func(*config.Config, *Params)

func withConcurrency(n int) option {
	return func(cfg *config.Config, _ *Params) { cfg.Notify.Concurrency = n }
}

func withPolicy(policy config.NotifyPolicy) option {
	return func(_ *config.Config, p *Params) { p.Policy = config.NewStaticNotifyPolicyHolder(policy) }
}

func withSender(s Sender) option {
	return func(_ *config.Config, p *Params) { p.Sender = s }
}

func newHarness(t *testing.T, tenants []tenantdomain.TenantConnection, opts ...option) *harness {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&ledgerdomain.Entry{},
		&recipientdomain.Group{},
		&recipientdomain.Contact{},
		&recipientdomain.CompanySetting{},
	))
	seedRecipients(t, db)

	cfg := config.Config{
		TenantDB: config.TenantDBConfig{QueryTimeout: 5 * time.Second},
		Notify: config.NotifyConfig{
			CompanyWindow:          "week",
			GlobalWindow:           "day",
			Timezone:               "UTC",
			DescriptionBudget:      20,
			Concurrency:            1,
			GlobalSupportSubdomain: "global_support",
			GlobalTemplate:         "alerta_soporte_facturas_global",
			TestTemplate:           "hello_world",
			SystemURL:              "https://admin.example.com",
		},
	}
	sender := &fakeSender{failPhones: map[string]bool{}}
	p := Params{Sender: sender}
	for _, opt := range opts {
		opt(&cfg, &p)
	}

	clk := clock.NewFakeClock(testNow)
	log := zap.NewNop()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	registry := tenanttest.NewTenants(tenants...)
	ledger := ledgerservice.New(ledgerservice.Params{
		DB: db, Log: log, GenID: node, Clock: clk, Repo: ledgerrepository.Provide(),
	})
	exec := tenantdb.New(tenantdb.Params{Log: log, Cfg: cfg, Connector: tenantdb.NewConnector(cfg)})

	p.Log = log
	p.Cfg = cfg
	p.Clock = clk
	p.Tenants = registry
	p.Ledger = ledger
	p.Rejections = rejectionservice.New(rejectionservice.Params{
		Log: log, Cfg: cfg, Clock: clk, Tenants: registry, Exec: exec, Ledger: ledger, Repo: rejectionrepository.Provide(),
	})
	p.Recipients = recipientservice.New(recipientservice.Params{
		DB: db, Log: log, Cfg: cfg, Repo: recipientrepository.Provide(),
	})

	return &harness{notifier: New(p), db: db, sender: sender}
}

func seedRecipients(t *testing.T, db *gorm.DB) {
	t.Helper()

	groups := []recipientdomain.Group{
		{ID: 1, GroupName: "soporte_tecnico", IsActive: true},
		{ID: 2, GroupName: "sin_contactos", IsActive: true},
	}
	require.NoError(t, db.Create(&groups).Error)
	contacts := []recipientdomain.Contact{
		{ID: 1, GroupID: 1, Name: "Ana", PhoneNumber: "3001112222", IsActive: true},
		{ID: 2, GroupID: 1, Name: "Luis", PhoneNumber: "3003334444", IsActive: true},
	}
	require.NoError(t, db.Create(&contacts).Error)

	settings := []recipientdomain.CompanySetting{
		{ID: 1, CompanySubdomain: "empresa1", NotificationGroupID: 1, TemplateName: "alerta_facturas_empresa", IsActive: true},
		{ID: 2, CompanySubdomain: "empresa2", NotificationGroupID: 1, TemplateName: "alerta_facturas_empresa", IsActive: true},
		{ID: 3, CompanySubdomain: "empresa3", NotificationGroupID: 1, TemplateName: "alerta_facturas_empresa", IsActive: true},
		{ID: 4, CompanySubdomain: "vacia", NotificationGroupID: 2, TemplateName: "alerta_facturas_empresa", IsActive: true},
		{ID: 5, CompanySubdomain: "global_support", NotificationGroupID: 1, TemplateName: "alerta_soporte_facturas_global", IsActive: true},
	}
	require.NoError(t, db.Create(&settings).Error)
}

func rejected(ids ...int64) []tenanttest.Invoice {
	out := make([]tenanttest.Invoice, 0, len(ids))
	for i, id := range ids {
		out = append(out, tenanttest.Invoice{
			ID:          id,
			ErrorCode:   "150",
			Description: "El RUC del emisor no esta habilitado para emitir",
			CreatedAt:   testNow.Add(-time.Duration(i+1) * time.Hour),
		})
	}
	return out
}

func tenantWith(t *testing.T, subdomain string, invoices ...tenanttest.Invoice) tenantdomain.TenantConnection {
	tenant := tenanttest.NewTenant(t, subdomain)
	tenanttest.Insert(t, tenant, invoices...)
	return tenant
}

func ledgerRows(t *testing.T, db *gorm.DB, subdomain string) []ledgerdomain.Entry {
	t.Helper()

	var rows []ledgerdomain.Entry
	require.NoError(t, db.Where("company_subdomain = ?", subdomain).Order("invoice_id").Find(&rows).Error)
	return rows
}

func TestNotifyCompanyRecordsSentBatch(t *testing.T) {
	h := newHarness(t, []tenantdomain.TenantConnection{tenantWith(t, "empresa1", rejected(101, 102)...)})

	out, err := h.notifier.NotifyCompany(context.Background(), "empresa1")
	require.NoError(t, err)

	assert.Equal(t, StatusNotified, out.Status)
	assert.Equal(t, 2, out.InvoicesFound)
	assert.Equal(t, 2, out.InvoicesNotified)
	assert.Equal(t, "alerta_facturas_empresa", out.TemplateUsed)
	assert.Equal(t, "soporte_tecnico", out.GroupName)
	assert.NotEmpty(t, out.BatchID)
	require.NotNil(t, out.Stats)
	assert.Equal(t, 2, out.Stats.SuccessfulDeliveries)
	assert.Equal(t, []any{"empresa1", 2, "150", 2, "14/10/2026 12:00", "El RUC del emisor no"}, out.Params)

	require.Equal(t, 1, h.sender.callCount())
	assert.Equal(t, []string{"3001112222", "3003334444"}, h.sender.calls[0].Phones)

	rows := ledgerRows(t, h.db, "empresa1")
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, ledgerdomain.StatusSent, row.Status)
		assert.Equal(t, int64(1), row.NotificationGroupID)
		assert.Equal(t, "alerta_facturas_empresa", row.TemplateUsed)
		assert.Equal(t, out.BatchID, row.BatchID)
	}
	assert.Equal(t, int64(101), rows[0].InvoiceID)
}

func TestNotifyCompanyIsIdempotent(t *testing.T) {
	h := newHarness(t, []tenantdomain.TenantConnection{tenantWith(t, "empresa1", rejected(101, 102)...)})
	ctx := context.Background()

	first, err := h.notifier.NotifyCompany(ctx, "empresa1")
	require.NoError(t, err)
	require.Equal(t, StatusNotified, first.Status)

	second, err := h.notifier.NotifyCompany(ctx, "empresa1")
	require.NoError(t, err)
	assert.Equal(t, StatusNothingNew, second.Status)
	assert.Equal(t, 0, second.InvoicesNotified)
	assert.Equal(t, 1, h.sender.callCount())
	assert.Len(t, ledgerRows(t, h.db, "empresa1"), 2)
}

func TestNotifyCompanyWithNothingNewIsNoop(t *testing.T) {
	h := newHarness(t, []tenantdomain.TenantConnection{tenanttest.NewTenant(t, "empresa1")})

	out, err := h.notifier.NotifyCompany(context.Background(), "empresa1")
	require.NoError(t, err)
	assert.Equal(t, StatusNothingNew, out.Status)
	assert.True(t, out.Status.Succeeded())
	assert.Equal(t, 0, h.sender.callCount())
	assert.Empty(t, ledgerRows(t, h.db, "empresa1"))
}

func TestNotifyCompanyPartialDeliveryStillRecords(t *testing.T) {
	h := newHarness(t, []tenantdomain.TenantConnection{tenantWith(t, "empresa1", rejected(101)...)})
	h.sender.failPhones["3003334444"] = true

	out, err := h.notifier.NotifyCompany(context.Background(), "empresa1")
	require.NoError(t, err)
	assert.Equal(t, StatusNotified, out.Status)
	require.Len(t, out.Errors, 1)
	assert.Equal(t, "131026", out.Errors[0].ErrorCode)

	rows := ledgerRows(t, h.db, "empresa1")
	require.Len(t, rows, 1)
	assert.Equal(t, ledgerdomain.StatusPartial, rows[0].Status)
}

func TestNotifyCompanyAllDeliveriesFailedLeavesLedgerEmpty(t *testing.T) {
	h := newHarness(t, []tenantdomain.TenantConnection{tenantWith(t, "empresa1", rejected(101)...)})
	h.sender.failPhones["3001112222"] = true
	h.sender.failPhones["3003334444"] = true

	out, err := h.notifier.NotifyCompany(context.Background(), "empresa1")
	require.NoError(t, err)
	assert.Equal(t, StatusDeliveryFailed, out.Status)
	assert.Equal(t, 0, out.InvoicesNotified)
	assert.Empty(t, ledgerRows(t, h.db, "empresa1"))
}

func TestNotifyCompanyPolicyFailures(t *testing.T) {
	h := newHarness(t, []tenantdomain.TenantConnection{
		tenantWith(t, "vacia", rejected(1)...),
		tenantWith(t, "sinconfig", rejected(1)...),
	})
	ctx := context.Background()

	out, err := h.notifier.NotifyCompany(ctx, "vacia")
	require.NoError(t, err)
	assert.Equal(t, StatusNoContacts, out.Status)
	assert.Equal(t, "sin_contactos", out.GroupName)
	assert.True(t, out.Status.Policy())

	out, err = h.notifier.NotifyCompany(ctx, "sinconfig")
	require.NoError(t, err)
	assert.Equal(t, StatusNotConfigured, out.Status)

	out, err = h.notifier.NotifyCompany(ctx, "ghost")
	require.NoError(t, err)
	assert.Equal(t, StatusTenantNotFound, out.Status)
	assert.Equal(t, 0, h.sender.callCount())
}

func TestNotifyCompanyRequiresProviderConfiguration(t *testing.T) {
	h := newHarness(t, []tenantdomain.TenantConnection{tenantWith(t, "empresa1", rejected(101)...)})
	h.sender.notReady = fmt.Errorf("%w: missing access token", whatsapp.ErrNotConfigured)

	out, err := h.notifier.NotifyCompany(context.Background(), "empresa1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, whatsapp.ErrNotConfigured))
	assert.Equal(t, StatusConfigError, out.Status)
	assert.Equal(t, 0, h.sender.callCount())

	_, err = h.notifier.NotifyAll(context.Background())
	assert.True(t, errors.Is(err, whatsapp.ErrNotConfigured))
}

func TestNotifyAllIsolatesTenantFailures(t *testing.T) {
	tenants := []tenantdomain.TenantConnection{
		tenantWith(t, "empresa1", rejected(1, 2)...),
		tenanttest.Unreachable("empresa2"),
		tenantWith(t, "empresa3", rejected(7)...),
		tenantWith(t, "vacia", rejected(9)...),
	}
	h := newHarness(t, tenants)

	summary, err := h.notifier.NotifyAll(context.Background())
	require.NoError(t, err)

	assertIsolatedRun(t, h, summary)
}

func TestNotifyAllWithWorkers(t *testing.T) {
	tenants := []tenantdomain.TenantConnection{
		tenantWith(t, "empresa1", rejected(1, 2)...),
		tenanttest.Unreachable("empresa2"),
		tenantWith(t, "empresa3", rejected(7)...),
		tenantWith(t, "vacia", rejected(9)...),
	}
	h := newHarness(t, tenants, withConcurrency(3))

	summary, err := h.notifier.NotifyAll(context.Background())
	require.NoError(t, err)

	assertIsolatedRun(t, h, summary)
}

func assertIsolatedRun(t *testing.T, h *harness, summary RunSummary) {
	t.Helper()

	assert.Equal(t, FlowCompany, summary.Flow)
	assert.Equal(t, 4, summary.TenantsQueried)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 2, summary.Failed)
	assert.Equal(t, 4, summary.InvoicesFound)
	assert.Equal(t, 3, summary.InvoicesNotified)

	statuses := map[string]Status{}
	for _, o := range summary.Outcomes {
		statuses[o.Subdomain] = o.Status
	}
	assert.Equal(t, map[string]Status{
		"empresa1": StatusNotified,
		"empresa2": StatusConnectionFailed,
		"empresa3": StatusNotified,
		"vacia":    StatusNoContacts,
	}, statuses)
	assert.Len(t, ledgerRows(t, h.db, "empresa1"), 2)
	assert.Len(t, ledgerRows(t, h.db, "empresa3"), 1)
	assert.Empty(t, ledgerRows(t, h.db, "vacia"))
}

func TestNotifyAllRecoversPanics(t *testing.T) {
	sender := &fakeSender{panicOnSend: true}
	h := newHarness(t, []tenantdomain.TenantConnection{
		tenantWith(t, "empresa1", rejected(1)...),
		tenantWith(t, "empresa3", rejected(2)...),
	}, withSender(sender))

	summary, err := h.notifier.NotifyAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Failed)
	assert.Equal(t, 2, sender.callCount())
	for _, o := range summary.Outcomes {
		switch o.Subdomain {
		case "empresa1", "empresa3":
			assert.Equal(t, StatusFailed, o.Status)
			assert.Contains(t, o.Error, "provider exploded")
		default:
			assert.Equal(t, StatusTenantNotFound, o.Status)
		}
	}
}

func TestNotifyAllHonoursSkipPolicy(t *testing.T) {
	policy := config.DefaultNotifyPolicy()
	policy.SkipTenants = []string{"EMPRESA1"}
	h := newHarness(t, []tenantdomain.TenantConnection{
		tenantWith(t, "empresa1", rejected(1)...),
		tenantWith(t, "empresa3", rejected(2)...),
	}, withPolicy(policy))

	summary, err := h.notifier.NotifyAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Empty(t, ledgerRows(t, h.db, "empresa1"))
}

func TestGlobalSummaryCountsUnnotifiedToday(t *testing.T) {
	empresa1 := tenantWith(t, "empresa1",
		tenanttest.Invoice{ID: 1, ErrorCode: "150", CreatedAt: testNow.Add(-time.Hour)},
		tenanttest.Invoice{ID: 2, ErrorCode: "2800", CreatedAt: testNow.Add(-2 * time.Hour)},
		tenanttest.Invoice{ID: 3, ErrorCode: "150", CreatedAt: testNow.AddDate(0, 0, -1)},
	)
	empresa3 := tenantWith(t, "empresa3", tenanttest.Invoice{ID: 4, ErrorCode: "150", CreatedAt: testNow.Add(-time.Hour)})
	h := newHarness(t, []tenantdomain.TenantConnection{empresa1, tenanttest.Unreachable("empresa2"), empresa3})

	summary, err := h.notifier.GlobalSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalCompanies)
	assert.Equal(t, 3, summary.TotalInvoices)
	require.Len(t, summary.Companies, 2)
	assert.Equal(t, []string{"150", "2800"}, summary.Companies[0].ErrorCodes)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, "empresa2", summary.Failures[0].Subdomain)
}

func TestNotifyGlobalSupportSendsSummaryWithoutLedgerWrites(t *testing.T) {
	h := newHarness(t, []tenantdomain.TenantConnection{
		tenantWith(t, "empresa1", rejected(1, 2)...),
		tenantWith(t, "empresa3", rejected(3)...),
	})

	out, err := h.notifier.NotifyGlobalSupport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusNotified, out.Status)
	assert.Equal(t, 2, out.TotalContacts)
	assert.Equal(t, "alerta_soporte_facturas_global", out.TemplateUsed)
	assert.Equal(t, []any{
		"14/10/2026", "12:00", 2, 3,
		"• EMPRESA1: 2 facturas | • EMPRESA3: 1 facturas",
		"https://admin.example.com",
	}, out.Params)

	var count int64
	require.NoError(t, h.db.Model(&ledgerdomain.Entry{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestNotifyGlobalSupportResendsWithinSameWindow(t *testing.T) {
	h := newHarness(t, []tenantdomain.TenantConnection{tenantWith(t, "empresa1", rejected(1, 2)...)})

	first, err := h.notifier.NotifyGlobalSupport(context.Background())
	require.NoError(t, err)
	second, err := h.notifier.NotifyGlobalSupport(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatusNotified, first.Status)
	assert.Equal(t, StatusNotified, second.Status)
	assert.Equal(t, first.Params, second.Params)
	assert.Equal(t, 2, h.sender.callCount())
}

func TestNotifyGlobalSupportWithoutParameters(t *testing.T) {
	h := newHarness(t, []tenantdomain.TenantConnection{tenantWith(t, "empresa1", rejected(1)...)})
	require.NoError(t, h.db.Model(&recipientdomain.CompanySetting{}).Where("id = ?", 5).Updates(map[string]any{
		"template_name":       "hello_world",
		"additional_settings": datatypes.JSONMap{"include_parameters": false},
	}).Error)

	out, err := h.notifier.NotifyGlobalSupport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hello_world", out.TemplateUsed)
	assert.Nil(t, out.Params)
	require.Equal(t, 1, h.sender.callCount())
	assert.Nil(t, h.sender.calls[0].Params)
}

func TestNotifyGlobalSupportNothingToReport(t *testing.T) {
	h := newHarness(t, []tenantdomain.TenantConnection{tenanttest.NewTenant(t, "empresa1")})

	out, err := h.notifier.NotifyGlobalSupport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusNothingNew, out.Status)
	assert.Equal(t, 0, h.sender.callCount())
}

func TestNotifyGlobalSupportRequiresSetting(t *testing.T) {
	h := newHarness(t, []tenantdomain.TenantConnection{tenantWith(t, "empresa1", rejected(1)...)})
	require.NoError(t, h.db.Model(&recipientdomain.CompanySetting{}).Where("id = ?", 5).Update("is_active", false).Error)

	_, err := h.notifier.NotifyGlobalSupport(context.Background())
	assert.True(t, errors.Is(err, recipientdomain.ErrNotConfigured))
}

func TestTestSupportSendsHelloWorld(t *testing.T) {
	h := newHarness(t, nil)

	out, err := h.notifier.TestSupport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusNotified, out.Status)
	assert.Equal(t, "hello_world", out.TemplateUsed)
	require.Equal(t, 1, h.sender.callCount())
	assert.Nil(t, h.sender.calls[0].Params)
}

func TestNotifyCompanyThroughProvider(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/10987/messages", r.URL.Path)
		assert.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.ok"}]}`))
	}))
	defer srv.Close()

	client := whatsapp.New(whatsapp.Params{
		Cfg: config.Config{WhatsApp: config.WhatsAppConfig{
			APIURL:             srv.URL,
			AccessToken:        "token-123",
			PhoneNumberID:      "10987",
			Language:           "es",
			DefaultCountryCode: "57",
			Timeout:            2 * time.Second,
		}},
		Log: zap.NewNop(),
	})
	h := newHarness(t, []tenantdomain.TenantConnection{tenantWith(t, "empresa1", rejected(101, 102)...)}, withSender(client))

	out, err := h.notifier.NotifyCompany(context.Background(), "empresa1")
	require.NoError(t, err)
	assert.Equal(t, StatusNotified, out.Status)
	assert.Equal(t, int32(2), hits.Load())
	require.Len(t, out.Deliveries, 2)
	assert.Equal(t, "573001112222", out.Deliveries[0].CleanPhone)
	assert.Equal(t, "wamid.ok", out.Deliveries[0].MessageID)

	rows := ledgerRows(t, h.db, "empresa1")
	require.Len(t, rows, 2)
	assert.Equal(t, ledgerdomain.StatusSent, rows[0].Status)
	assert.Contains(t, string(rows[0].DeliveryResults), "573001112222")
}
