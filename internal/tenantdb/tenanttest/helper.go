// Package tenanttest builds throwaway SQLite tenant databases shaped like the
// production tec_send_invoice schema.
package tenanttest

import (
	"context"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/invoicenotify/internal/tenant/domain"
	"gorm.io/gorm"
)

const schema = `CREATE TABLE tec_send_invoice (
	id INTEGER PRIMARY KEY,
	file_name TEXT,
	error_code TEXT,
	response_descrip TEXT,
	reference_date DATETIME,
	issue_date DATETIME,
	fCrea DATETIME,
	type TEXT,
	status_ticket TEXT,
	estado INTEGER
)`

// Invoice is one tec_send_invoice row. Zero Estado and Type default to an
// active RF row.
type Invoice struct {
	ID          int64
	FileName    string
	ErrorCode   string
	Description string
	CreatedAt   time.Time
	Type        string
	Estado      int
}

// NewTenant creates an empty tenant database file and returns its connection.
func NewTenant(t testing.TB, subdomain string) domain.TenantConnection {
	t.Helper()

	path := filepath.Join(t.TempDir(), subdomain+".db")
	conn := open(t, path)
	defer closeDB(t, conn)
	if err := conn.Exec(schema).Error; err != nil {
		t.Fatalf("create tenant schema: %v", err)
	}
	return domain.TenantConnection{Subdomain: subdomain, DBName: path, Driver: "sqlite", Active: true}
}

// Unreachable returns a tenant whose driver cannot be opened.
func Unreachable(subdomain string) domain.TenantConnection {
	return domain.TenantConnection{Subdomain: subdomain, DBName: subdomain, DBHost: "10.255.255.1", Driver: "oracle", Active: true}
}

// Broken returns a tenant database without the invoice table.
func Broken(t testing.TB, subdomain string) domain.TenantConnection {
	t.Helper()

	path := filepath.Join(t.TempDir(), subdomain+".db")
	conn := open(t, path)
	closeDB(t, conn)
	return domain.TenantConnection{Subdomain: subdomain, DBName: path, Driver: "sqlite", Active: true}
}

func Insert(t testing.TB, tenant domain.TenantConnection, invoices ...Invoice) {
	t.Helper()

	conn := open(t, tenant.DBName)
	defer closeDB(t, conn)
	for _, inv := range invoices {
		if inv.Type == "" {
			inv.Type = "RF"
		}
		if inv.Estado == 0 {
			inv.Estado = 1
		}
		if inv.FileName == "" {
			inv.FileName = "F001-" + strconv.FormatInt(inv.ID, 10)
		}
		err := conn.Exec(
			`INSERT INTO tec_send_invoice (id, file_name, error_code, response_descrip, fCrea, type, status_ticket, estado)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			inv.ID, inv.FileName, inv.ErrorCode, inv.Description, inv.CreatedAt.UTC(), inv.Type, "REJECTED", inv.Estado,
		).Error
		if err != nil {
			t.Fatalf("insert invoice %d: %v", inv.ID, err)
		}
	}
}

// Tenants is an in-memory tenant registry.
type Tenants struct {
	List []domain.TenantConnection
}

func NewTenants(tenants ...domain.TenantConnection) *Tenants {
	return &Tenants{List: tenants}
}

func (r *Tenants) ListActive(ctx context.Context) ([]domain.TenantConnection, error) {
	out := make([]domain.TenantConnection, 0, len(r.List))
	for _, tenant := range r.List {
		if tenant.Active {
			out = append(out, tenant)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Subdomain < out[j].Subdomain })
	return out, nil
}

func (r *Tenants) FindBySubdomain(ctx context.Context, subdomain string) (domain.TenantConnection, error) {
	subdomain = strings.TrimSpace(subdomain)
	if subdomain == "" {
		return domain.TenantConnection{}, domain.ErrInvalidSubdomain
	}
	for _, tenant := range r.List {
		if tenant.Subdomain == subdomain && tenant.Active {
			return tenant, nil
		}
	}
	return domain.TenantConnection{}, domain.ErrNotFound
}

func (r *Tenants) FindByID(ctx context.Context, id int64) (domain.TenantConnection, error) {
	for _, tenant := range r.List {
		if tenant.ID == id && tenant.Active {
			return tenant, nil
		}
	}
	return domain.TenantConnection{}, domain.ErrNotFound
}

func (r *Tenants) FindByTaxID(ctx context.Context, taxID string) (domain.TenantConnection, error) {
	return domain.TenantConnection{}, domain.ErrNotFound
}

func open(t testing.TB, path string) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		t.Fatalf("open tenant database: %v", err)
	}
	return conn
}

func closeDB(t testing.TB, conn *gorm.DB) {
	t.Helper()

	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("tenant database handle: %v", err)
	}
	_ = sqlDB.Close()
}
