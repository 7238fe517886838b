package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("WHATSAPP_API_URL", "https://graph.example.com/v18.0/")
	t.Setenv("NOTIFY_CONCURRENCY", "4")
	t.Setenv("WHATSAPP_SEND_INTERVAL", "bogus")
	t.Setenv("SCHEDULER_JOBS", "notify_companies, ,notify_global_support")

	cfg := Load()

	assert.Equal(t, "https://graph.example.com/v18.0", cfg.WhatsApp.APIURL)
	assert.Equal(t, 4, cfg.Notify.Concurrency)
	assert.Equal(t, 300*time.Millisecond, cfg.WhatsApp.SendInterval)
	assert.Equal(t, "week", cfg.Notify.CompanyWindow)
	assert.Equal(t, "day", cfg.Notify.GlobalWindow)
	assert.Equal(t, 50, cfg.Notify.DescriptionBudget)
	assert.Equal(t, "57", cfg.WhatsApp.DefaultCountryCode)
	assert.Equal(t, []string{"notify_companies", "notify_global_support"}, cfg.Schedule.EnabledJobs)
}

func TestRegistryEnabled(t *testing.T) {
	assert.False(t, RegistryConfig{}.Enabled())
	assert.True(t, RegistryConfig{DBHost: "registry.internal"}.Enabled())
}

func TestNotifyLocationFallsBackToUTC(t *testing.T) {
	assert.Equal(t, time.UTC, NotifyConfig{Timezone: "Not/AZone"}.Location())
	assert.Equal(t, time.UTC, NotifyConfig{}.Location())
}
