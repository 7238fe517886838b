package tenantdb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/smallbiznis/invoicenotify/internal/config"
	obscontext "github.com/smallbiznis/invoicenotify/internal/observability/context"
	obslogger "github.com/smallbiznis/invoicenotify/internal/observability/logger"
	"github.com/smallbiznis/invoicenotify/internal/tenant/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrTenantUnavailable = errors.New("tenant_unavailable")
	ErrQueryFailed       = errors.New("tenant_query_failed")
)

// Result is the outcome of one statement. Rows is set for reads,
// RowsAffected for everything else.
type Result struct {
	Operation    string
	Rows         []map[string]any
	RowsAffected int64
}

type Params struct {
	fx.In

	Log       *zap.Logger
	Cfg       config.Config
	Connector Connector
}

// Executor runs statements against tenant databases, one connection per
// call. Nothing is pooled across tenants.
type Executor struct {
	log       *zap.Logger
	connector Connector
	timeout   time.Duration
}

func New(p Params) *Executor {
	timeout := p.Cfg.TenantDB.QueryTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Executor{
		log:       p.Log.Named("tenantdb"),
		connector: p.Connector,
		timeout:   timeout,
	}
}

// Execute runs a parameterized statement on the tenant database.
func (e *Executor) Execute(ctx context.Context, tenant domain.TenantConnection, statement string, args ...any) (Result, error) {
	result := Result{Operation: obslogger.OperationFromSQL(statement)}

	err := e.WithTenant(ctx, tenant, func(conn *gorm.DB) error {
		if result.Operation == "SELECT" {
			rows := []map[string]any{}
			if err := conn.Raw(statement, args...).Scan(&rows).Error; err != nil {
				return err
			}
			result.Rows = rows
			return nil
		}

		tx := conn.Exec(statement, args...)
		if tx.Error != nil {
			return tx.Error
		}
		result.RowsAffected = tx.RowsAffected
		return nil
	})
	if err != nil {
		return Result{Operation: result.Operation}, err
	}
	return result, nil
}

// WithTenant opens the tenant database, hands fn a context-bound handle and
// closes the connection when fn returns.
func (e *Executor) WithTenant(ctx context.Context, tenant domain.TenantConnection, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(obscontext.WithTenant(ctx, tenant.Subdomain), e.timeout)
	defer cancel()

	log := obslogger.WithContext(ctx, e.log)

	conn, err := e.connector.Open(ctx, tenant)
	if err != nil {
		log.Warn("tenantdb.connect.failed",
			zap.String("db_host", tenant.DBHost),
			zap.String("db_name", tenant.DBName),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %s: %v", ErrTenantUnavailable, tenant.Subdomain, err)
	}
	defer closeConn(log, conn)

	if err := fn(conn.WithContext(ctx)); err != nil {
		log.Warn("tenantdb.query.failed", zap.Error(err))
		return fmt.Errorf("%w: %s: %v", ErrQueryFailed, tenant.Subdomain, err)
	}
	return nil
}

// Ping checks that the tenant database accepts connections.
func (e *Executor) Ping(ctx context.Context, tenant domain.TenantConnection) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	conn, err := e.connector.Open(ctx, tenant)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrTenantUnavailable, tenant.Subdomain, err)
	}
	closeConn(e.log, conn)
	return nil
}

func closeConn(log *zap.Logger, conn *gorm.DB) {
	sqlDB, err := conn.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Debug("tenantdb.close.failed", zap.Error(err))
	}
}
