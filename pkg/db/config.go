package db

import (
	"time"

	"github.com/smallbiznis/invoicenotify/internal/config"
)

type Config struct {
	Type        string
	Host        string
	Port        string
	Name        string
	User        string
	Password    string
	SSLMode     string
	Params      string
	DialTimeout time.Duration
	Location    *time.Location
	// MultiStatements lets one Exec carry several statements. Only the
	// control plane enables it, for the embedded MySQL migrations; tenant
	// connections never do.
	MultiStatements bool
	MaxIdleConn     int
	MaxOpenConn     int
	ConnMaxLifetime int
	ConnMaxIdleTime int
}

// FromAppConfig returns the control-plane connection settings.
func FromAppConfig(cfg config.Config) Config {
	return Config{
		Type:            cfg.DBType,
		Host:            cfg.DBHost,
		Port:            cfg.DBPort,
		Name:            cfg.DBName,
		User:            cfg.DBUser,
		Password:        cfg.DBPassword,
		SSLMode:         cfg.DBSSLMode,
		MultiStatements: true,
		MaxIdleConn:     cfg.DBMaxIdleConn,
		MaxOpenConn:     cfg.DBMaxOpenConn,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	}
}

// FromRegistryConfig returns the provisioning database settings.
func FromRegistryConfig(cfg config.RegistryConfig) Config {
	return Config{
		Type:        cfg.DBType,
		Host:        cfg.DBHost,
		Port:        cfg.DBPort,
		Name:        cfg.DBName,
		User:        cfg.DBUser,
		Password:    cfg.DBPassword,
		SSLMode:     cfg.DBSSLMode,
		MaxIdleConn: 2,
		MaxOpenConn: 5,
	}
}
