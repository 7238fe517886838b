package migration

import (
	"fmt"
	"io/fs"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestApplySQLiteCreatesControlPlaneTables(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, Apply(conn))
	require.NoError(t, Apply(conn))

	for _, table := range []string{
		"notification_groups",
		"notification_contacts",
		"company_notification_settings",
		"invoice_notifications",
	} {
		assert.True(t, conn.Migrator().HasTable(table), table)
	}
	assert.True(t, conn.Migrator().HasIndex("invoice_notifications", "ux_invoice_notifications_company_invoice_group"))
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	for _, dialect := range []string{"postgres", "mysql"} {
		up, err := fs.Glob(embeddedMigrations, migrationsDir+"/"+dialect+"/*.up.sql")
		require.NoError(t, err)
		down, err := fs.Glob(embeddedMigrations, migrationsDir+"/"+dialect+"/*.down.sql")
		require.NoError(t, err)

		assert.NotEmpty(t, up, dialect)
		assert.Len(t, down, len(up), dialect)
	}
}

func TestRunMigrationsRejectsUnknownDialect(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)

	assert.Error(t, RunMigrations(sqlDB, "oracle"))
}
