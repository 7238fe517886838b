package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// NotifyPolicy holds operator-tunable notification rules that can change
// without a restart.
type NotifyPolicy struct {
	SkipTenants []string   `mapstructure:"skipTenants"`
	QuietHours  QuietHours `mapstructure:"quietHours"`
}

// QuietHours is a daily window, in the notification timezone, during which
// scheduled runs do not dispatch. Start == End disables the window.
type QuietHours struct {
	Start int `mapstructure:"start"`
	End   int `mapstructure:"end"`
}

func DefaultNotifyPolicy() NotifyPolicy {
	return NotifyPolicy{
		SkipTenants: []string{},
		QuietHours:  QuietHours{Start: 0, End: 0},
	}
}

// Skips reports whether the subdomain is muted by policy.
func (p NotifyPolicy) Skips(subdomain string) bool {
	subdomain = strings.TrimSpace(subdomain)
	for _, skipped := range p.SkipTenants {
		if strings.EqualFold(strings.TrimSpace(skipped), subdomain) {
			return true
		}
	}
	return false
}

// Quiet reports whether t falls inside the quiet window. Windows may wrap
// past midnight (22 -> 6).
func (q QuietHours) Quiet(t time.Time) bool {
	if q.Start == q.End {
		return false
	}
	hour := t.Hour()
	if q.Start < q.End {
		return hour >= q.Start && hour < q.End
	}
	return hour >= q.Start || hour < q.End
}

type NotifyPolicyHolder struct {
	current atomic.Value // holds NotifyPolicy
}

// NewStaticNotifyPolicyHolder wraps a fixed policy, mainly for tests.
func NewStaticNotifyPolicyHolder(policy NotifyPolicy) *NotifyPolicyHolder {
	holder := &NotifyPolicyHolder{}
	holder.current.Store(policy)
	return holder
}

func NewNotifyPolicyHolder() (*NotifyPolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("notify")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/invoicenotify/config")
	v.AddConfigPath("/etc/invoicenotify")
	v.AddConfigPath(".")

	v.SetEnvPrefix("INVOICENOTIFY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultNotifyPolicy()
	v.SetDefault("notify.skipTenants", defaults.SkipTenants)
	v.SetDefault("notify.quietHours.start", defaults.QuietHours.Start)
	v.SetDefault("notify.quietHours.end", defaults.QuietHours.End)

	found := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		found = false
	}

	var policy NotifyPolicy
	if err := v.UnmarshalKey("notify", &policy); err != nil {
		return nil, err
	}
	if err := validateNotifyPolicy(policy); err != nil {
		return nil, err
	}

	holder := NewStaticNotifyPolicyHolder(policy)
	if !found {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated NotifyPolicy
		if err := v.UnmarshalKey("notify", &updated); err != nil {
			log.Printf("[notify-policy] reload failed: %v", err)
			return
		}
		if err := validateNotifyPolicy(updated); err != nil {
			log.Printf("[notify-policy] invalid policy ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[notify-policy] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *NotifyPolicyHolder) Get() NotifyPolicy {
	if h == nil {
		return DefaultNotifyPolicy()
	}
	return h.current.Load().(NotifyPolicy)
}

func validateNotifyPolicy(p NotifyPolicy) error {
	if p.QuietHours.Start < 0 || p.QuietHours.Start > 23 {
		return errors.New("notify.quietHours.start must be between 0 and 23")
	}
	if p.QuietHours.End < 0 || p.QuietHours.End > 23 {
		return errors.New("notify.quietHours.end must be between 0 and 23")
	}
	return nil
}
