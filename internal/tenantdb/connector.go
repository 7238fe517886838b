package tenantdb

import (
	"context"
	"time"

	"github.com/smallbiznis/invoicenotify/internal/config"
	obslogger "github.com/smallbiznis/invoicenotify/internal/observability/logger"
	"github.com/smallbiznis/invoicenotify/internal/tenant/domain"
	"github.com/smallbiznis/invoicenotify/pkg/db"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/gorm"
)

// Connector opens a dedicated connection to one tenant database. Callers own
// the returned handle and must close it.
type Connector interface {
	Open(ctx context.Context, tenant domain.TenantConnection) (*gorm.DB, error)
}

type gormConnector struct {
	params      string
	dialTimeout time.Duration
	location    *time.Location
	gormLog     *obslogger.GormLogger
}

func NewConnector(cfg config.Config) Connector {
	gormCfg := obslogger.TenantGormLoggerConfig()
	return &gormConnector{
		params:      cfg.TenantDB.Params,
		dialTimeout: cfg.TenantDB.DialTimeout,
		location:    cfg.Notify.Location(),
		gormLog:     obslogger.NewGormLogger(gormCfg),
	}
}

func (c *gormConnector) Open(ctx context.Context, tenant domain.TenantConnection) (*gorm.DB, error) {
	dialector, err := db.Dialect(db.Config{
		Type:        tenant.Driver,
		Host:        tenant.DBHost,
		Port:        tenant.Port,
		Name:        tenant.DBName,
		User:        tenant.DBUser,
		Password:    tenant.DBPassword,
		Params:      c.params,
		DialTimeout: c.dialTimeout,
		Location:    c.location,
	})
	if err != nil {
		return nil, err
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 c.gormLog,
		SkipDefaultTransaction: true,
		DisableAutomaticPing:   true,
	})
	if err != nil {
		return nil, err
	}
	return prepare(ctx, conn, tenant.DBName)
}

// prepare instruments and pings a freshly opened handle. The pool is closed
// on every failure so a rejected tenant never leaks a connection.
func prepare(ctx context.Context, conn *gorm.DB, dbName string) (*gorm.DB, error) {
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	if err := conn.Use(otelgorm.NewPlugin(otelgorm.WithDBName(dbName))); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return conn, nil
}
