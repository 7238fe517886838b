package db

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Dialect(cfg Config) (gorm.Dialector, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case "mysql":
		dsn, err := mysqlDSN(cfg)
		if err != nil {
			return nil, err
		}
		return mysql.Open(dsn), nil
	case "postgres":
		return postgres.Open(postgresDSN(cfg)), nil
	case "sqlite":
		name := strings.TrimSpace(cfg.Name)
		if name == "" {
			name = "invoicenotify.db"
		}
		return sqlite.Open(name), nil
	default:
		return nil, fmt.Errorf("unsupported %s type", cfg.Type)
	}
}

func mysqlDSN(cfg Config) (string, error) {
	port := strings.TrimSpace(cfg.Port)
	if port == "" {
		port = "3306"
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}

	mc := mysqldriver.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, port)
	mc.DBName = cfg.Name
	mc.ParseTime = true
	mc.Loc = loc
	mc.MultiStatements = cfg.MultiStatements
	if cfg.DialTimeout > 0 {
		mc.Timeout = cfg.DialTimeout
		mc.ReadTimeout = cfg.DialTimeout * 3
	}

	params := map[string]string{"charset": "utf8mb4"}
	if raw := strings.TrimSpace(cfg.Params); raw != "" {
		values, err := url.ParseQuery(raw)
		if err != nil {
			return "", fmt.Errorf("invalid mysql params: %w", err)
		}
		for key := range values {
			switch strings.ToLower(key) {
			case "parsetime", "loc", "timeout", "multistatements":
				continue
			}
			params[key] = values.Get(key)
		}
	}
	mc.Params = params

	return mc.FormatDSN(), nil
}

func postgresDSN(cfg Config) string {
	port := strings.TrimSpace(cfg.Port)
	if port == "" {
		port = "5432"
	}
	sslMode := strings.TrimSpace(cfg.SSLMode)
	if sslMode == "" {
		sslMode = "disable"
	}

	query := url.Values{}
	query.Set("sslmode", sslMode)
	query.Set("TimeZone", "UTC")
	if cfg.DialTimeout > 0 {
		query.Set("connect_timeout", fmt.Sprintf("%d", int(cfg.DialTimeout.Seconds())))
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, port),
		Path:     "/" + cfg.Name,
		RawQuery: query.Encode(),
	}
	return u.String()
}
