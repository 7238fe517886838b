package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/invoicenotify/internal/config"
	"github.com/smallbiznis/invoicenotify/internal/tenant/domain"
	"github.com/smallbiznis/invoicenotify/internal/tenant/repository"
	"github.com/smallbiznis/invoicenotify/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupRegistry(t *testing.T) domain.Service {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	stmts := []string{
		`CREATE TABLE empresas (
			id_empresa INTEGER PRIMARY KEY,
			id_persona INTEGER,
			sub_dominio TEXT NOT NULL,
			db_host TEXT, db_name TEXT, db_usuario TEXT, db_contrasena TEXT,
			estado INTEGER NOT NULL, status INTEGER NOT NULL
		)`,
		`CREATE TABLE personas (id_persona INTEGER PRIMARY KEY, ruc TEXT, status INTEGER)`,
		`INSERT INTO personas VALUES (10, '20123456789', 1), (11, '20999999999', 0)`,
		`INSERT INTO empresas VALUES
			(1, 10, 'zeta', 'db1', 'zeta_db', 'u1', 'p1', 1, 1),
			(2, NULL, 'alpha', 'db2', 'alpha_db', 'u2', 'p2', 1, 1),
			(3, NULL, 'suspended', 'db3', 'susp_db', 'u3', 'p3', 1, 0),
			(4, 11, 'closed', 'db4', 'closed_db', 'u4', 'p4', 0, 1)`,
	}
	for _, stmt := range stmts {
		require.NoError(t, conn.Exec(stmt).Error)
	}

	return New(Params{
		DB:   &db.RegistryDB{DB: conn},
		Log:  zap.NewNop(),
		Cfg:  config.Config{TenantDB: config.TenantDBConfig{Driver: "mysql", Port: "3306"}},
		Repo: repository.Provide(),
	})
}

func TestListActiveOrdersBySubdomainAndFiltersInactive(t *testing.T) {
	svc := setupRegistry(t)

	tenants, err := svc.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, tenants, 2)

	assert.Equal(t, "alpha", tenants[0].Subdomain)
	assert.Equal(t, "zeta", tenants[1].Subdomain)
	assert.Equal(t, "alpha_db", tenants[0].DBName)
	assert.Equal(t, "u2", tenants[0].DBUser)
	assert.Equal(t, "mysql", tenants[0].Driver)
	assert.Equal(t, "3306", tenants[0].Port)
	assert.True(t, tenants[0].Active)
}

func TestFindBySubdomain(t *testing.T) {
	svc := setupRegistry(t)
	ctx := context.Background()

	tenant, err := svc.FindBySubdomain(ctx, " zeta ")
	require.NoError(t, err)
	assert.Equal(t, int64(1), tenant.ID)

	_, err = svc.FindBySubdomain(ctx, "suspended")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = svc.FindBySubdomain(ctx, "")
	assert.True(t, errors.Is(err, domain.ErrInvalidSubdomain))
}

func TestFindByIDAndTaxID(t *testing.T) {
	svc := setupRegistry(t)
	ctx := context.Background()

	tenant, err := svc.FindByID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "alpha", tenant.Subdomain)

	_, err = svc.FindByID(ctx, 4)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	tenant, err = svc.FindByTaxID(ctx, "20123456789")
	require.NoError(t, err)
	assert.Equal(t, "zeta", tenant.Subdomain)

	_, err = svc.FindByTaxID(ctx, "20999999999")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
