package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/invoicenotify/internal/config"
	"github.com/smallbiznis/invoicenotify/internal/recipient/domain"
	"github.com/smallbiznis/invoicenotify/internal/recipient/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func setupResolver(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.Group{}, &domain.Contact{}, &domain.CompanySetting{}))

	groups := []domain.Group{
		{ID: 1, GroupName: "soporte_tecnico", IsActive: true},
		{ID: 2, GroupName: "contabilidad", IsActive: true},
		{ID: 3, GroupName: "administracion", IsActive: true},
	}
	require.NoError(t, conn.Create(&groups).Error)
	require.NoError(t, conn.Model(&domain.Group{}).Where("id = ?", 3).Update("is_active", false).Error)

	contacts := []domain.Contact{
		{ID: 1, GroupID: 1, Name: "Ana", PhoneNumber: "3001112222", IsActive: true},
		{ID: 2, GroupID: 1, Name: "Luis", PhoneNumber: " +57 300 333 4444 ", IsActive: true},
		{ID: 3, GroupID: 1, Name: "Old", PhoneNumber: "3005556666", IsActive: true},
		{ID: 4, GroupID: 2, Name: "Blank", PhoneNumber: " ", IsActive: true},
	}
	require.NoError(t, conn.Create(&contacts).Error)
	require.NoError(t, conn.Model(&domain.Contact{}).Where("id = ?", 3).Update("is_active", false).Error)

	settings := []domain.CompanySetting{
		{ID: 1, CompanySubdomain: "acme", NotificationGroupID: 1, TemplateName: "alerta_facturas_rechazadas", IsActive: true},
		{ID: 2, CompanySubdomain: "acme", NotificationGroupID: 2, TemplateName: "alerta_contabilidad", IsActive: true},
		{ID: 3, CompanySubdomain: "beta", NotificationGroupID: 2, TemplateName: "alerta_facturas_rechazadas", IsActive: true},
		{ID: 4, CompanySubdomain: "gamma", NotificationGroupID: 3, TemplateName: "alerta_facturas_rechazadas", IsActive: true},
		{ID: 5, CompanySubdomain: "global_support", NotificationGroupID: 1, TemplateName: "hello_world", IsActive: true,
			AdditionalSettings: datatypes.JSONMap{"include_parameters": false}},
	}
	require.NoError(t, conn.Create(&settings).Error)

	svc := New(Params{
		DB:   conn,
		Log:  zap.NewNop(),
		Cfg:  config.Config{Notify: config.NotifyConfig{GlobalSupportSubdomain: "global_support"}},
		Repo: repository.Provide(),
	})
	return svc, conn
}

func TestResolveReturnsActivePhonesInContactOrder(t *testing.T) {
	svc, _ := setupResolver(t)

	recipients, err := svc.Resolve(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, int64(1), recipients.Setting.ID)
	assert.Equal(t, "soporte_tecnico", recipients.Group.GroupName)
	assert.Equal(t, []string{"3001112222", "+57 300 333 4444"}, recipients.Phones)
	assert.Len(t, recipients.Contacts, 2)
}

func TestResolvePolicyFailures(t *testing.T) {
	svc, _ := setupResolver(t)
	ctx := context.Background()

	_, err := svc.Resolve(ctx, "unknown")
	assert.True(t, errors.Is(err, domain.ErrNotConfigured))

	_, err = svc.Resolve(ctx, "gamma")
	assert.True(t, errors.Is(err, domain.ErrNotConfigured))

	recipients, err := svc.Resolve(ctx, "beta")
	assert.True(t, errors.Is(err, domain.ErrNoContacts))
	assert.Equal(t, "contabilidad", recipients.Group.GroupName)

	_, err = svc.Resolve(ctx, " ")
	assert.True(t, errors.Is(err, domain.ErrInvalidSubdomain))
}

func TestGlobalSupportSettingOptsOutOfParameters(t *testing.T) {
	svc, _ := setupResolver(t)

	recipients, err := svc.Resolve(context.Background(), "global_support")
	require.NoError(t, err)
	assert.Equal(t, "hello_world", recipients.Setting.TemplateName)
	assert.False(t, recipients.Setting.IncludeParameters())

	assert.True(t, domain.CompanySetting{}.IncludeParameters())
	assert.False(t, domain.CompanySetting{AdditionalSettings: datatypes.JSONMap{"include_parameters": "false"}}.IncludeParameters())
}

func TestConfiguredCompaniesSkipsGlobalSupportAndDuplicates(t *testing.T) {
	svc, _ := setupResolver(t)

	companies, err := svc.ConfiguredCompanies(context.Background())
	require.NoError(t, err)

	var names []string
	for _, c := range companies {
		names = append(names, c.Subdomain)
	}
	assert.Equal(t, []string{"acme", "beta"}, names)
	assert.Equal(t, "soporte_tecnico", companies[0].GroupName)
	assert.Equal(t, int64(1), companies[0].GroupID)
}

func TestActiveGroupsAndCompaniesByGroup(t *testing.T) {
	svc, _ := setupResolver(t)
	ctx := context.Background()

	groups, err := svc.ActiveGroups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "contabilidad", groups[0].GroupName)
	assert.Equal(t, []string{"acme", "beta"}, groups[0].Companies)
	assert.Equal(t, "soporte_tecnico", groups[1].GroupName)
	assert.Len(t, groups[1].Contacts, 2)

	companies, err := svc.CompaniesByGroup(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"acme", "global_support"}, companies)
}
