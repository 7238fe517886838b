package db

import (
	"strings"
	"testing"
	"time"

	"github.com/smallbiznis/invoicenotify/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
)

func TestMySQLDSN(t *testing.T) {
	dsn, err := mysqlDSN(Config{
		Host:        "10.0.0.5",
		Name:        "empresa1_db",
		User:        "app",
		Password:    "p@ss:word/1",
		Params:      "charset=utf8mb4&parseTime=False&collation=utf8mb4_unicode_ci",
		DialTimeout: 5 * time.Second,
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(dsn, "app:p@ss:word/1@tcp(10.0.0.5:3306)/empresa1_db?"))
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "timeout=5s")
	assert.Contains(t, dsn, "collation=utf8mb4_unicode_ci")
}

func TestPostgresDSN(t *testing.T) {
	dsn := postgresDSN(Config{
		Host:        "db",
		Name:        "control",
		User:        "svc",
		Password:    "a b",
		DialTimeout: 10 * time.Second,
	})

	assert.True(t, strings.HasPrefix(dsn, "postgres://svc:a%20b@db:5432/control?"))
	assert.Contains(t, dsn, "sslmode=disable")
	assert.Contains(t, dsn, "connect_timeout=10")
}

func TestDialectRejectsUnknownType(t *testing.T) {
	_, err := Dialect(Config{Type: "oracle"})
	assert.Error(t, err)
}

func TestControlPlaneMySQLAllowsMultiStatements(t *testing.T) {
	cfg := FromAppConfig(config.Config{
		DBType:     "mysql",
		DBHost:     "control",
		DBPort:     "3306",
		DBName:     "invoicenotify",
		DBUser:     "svc",
		DBPassword: "secret",
	})
	require.True(t, cfg.MultiStatements)

	dialector, err := Dialect(cfg)
	require.NoError(t, err)
	mysqlDialector, ok := dialector.(*mysql.Dialector)
	require.True(t, ok)
	assert.Contains(t, mysqlDialector.DSN, "multiStatements=true")
}

func TestTenantMySQLNeverAllowsMultiStatements(t *testing.T) {
	dsn, err := mysqlDSN(Config{
		Host:   "10.0.0.5",
		Name:   "empresa1_db",
		User:   "app",
		Params: "multiStatements=true&charset=utf8mb4",
	})
	require.NoError(t, err)
	assert.NotContains(t, dsn, "multiStatements")

	assert.False(t, FromRegistryConfig(config.RegistryConfig{DBType: "mysql"}).MultiStatements)
}
