package db

import (
	"context"
	"time"

	"github.com/smallbiznis/invoicenotify/internal/config"
	obslogger "github.com/smallbiznis/invoicenotify/internal/observability/logger"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormprometheus "gorm.io/plugin/prometheus"
)

// RegistryDB is the handle used to read the tenant list. It is the
// control-plane connection unless a separate provisioning database is set.
type RegistryDB struct {
	*gorm.DB
}

var Module = fx.Module("db",
	fx.Provide(NewDB),
	fx.Provide(NewRegistryDB),
)

func NewDB(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (*gorm.DB, error) {
	conn, err := Open(FromAppConfig(cfg), cfg.AppName)
	if err != nil {
		return nil, err
	}
	log.Info("control plane database connected",
		zap.String("type", cfg.DBType),
		zap.String("host", cfg.DBHost),
		zap.String("name", cfg.DBName),
	)
	appendClose(lc, conn)
	return conn, nil
}

func NewRegistryDB(lc fx.Lifecycle, cfg config.Config, main *gorm.DB, log *zap.Logger) (*RegistryDB, error) {
	if !cfg.Registry.Enabled() {
		return &RegistryDB{DB: main}, nil
	}
	conn, err := Open(FromRegistryConfig(cfg.Registry), "registry")
	if err != nil {
		return nil, err
	}
	log.Info("tenant registry database connected",
		zap.String("type", cfg.Registry.DBType),
		zap.String("host", cfg.Registry.DBHost),
	)
	appendClose(lc, conn)
	return &RegistryDB{DB: conn}, nil
}

// Open builds an instrumented, pooled gorm connection.
func Open(cfg Config, name string) (*gorm.DB, error) {
	dialector, err := Dialect(cfg)
	if err != nil {
		return nil, err
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger:         obslogger.NewGormLogger(obslogger.DefaultGormLoggerConfig()),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	if cfg.MaxIdleConn > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConn)
	}
	if cfg.MaxOpenConn > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConn)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	}
	if cfg.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Second)
	}

	if err := conn.Use(otelgorm.NewPlugin(otelgorm.WithDBName(cfg.Name))); err != nil {
		return nil, err
	}
	if err := conn.Use(gormprometheus.New(gormprometheus.Config{
		DBName:          name,
		RefreshInterval: 15,
		StartServer:     false,
	})); err != nil {
		return nil, err
	}

	return conn, nil
}

func appendClose(lc fx.Lifecycle, conn *gorm.DB) {
	if lc == nil {
		return
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})
}
