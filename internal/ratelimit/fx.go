package ratelimit

import (
	"context"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/invoicenotify/internal/config"
	obsmetrics "github.com/smallbiznis/invoicenotify/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("rate.limit",
	fx.Provide(NewRedisClient),
	fx.Provide(NewTokenBucket),
	fx.Provide(NewLocker),
	fx.Provide(newDispatchLimiter),
	fx.Provide(newTenantLock),
)

type limiterParams struct {
	fx.In

	Cfg     config.Config
	Log     *zap.Logger
	Bucket  *TokenBucket
	Metrics *obsmetrics.Metrics `optional:"true"`
}

// NewRedisClient returns nil when redis is disabled; consumers fall back to
// in-process coordination.
func NewRedisClient(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) *redis.Client {
	if !cfg.Redis.Enabled || strings.TrimSpace(cfg.Redis.Addr) == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				log.Warn("redis unavailable, using in-process limits", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
			}
			return nil
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client
}

func newDispatchLimiter(p limiterParams) *DispatchLimiter {
	return NewDispatchLimiter(p.Cfg.WhatsApp.SendInterval, p.Bucket, p.Cfg.WhatsApp.PhoneNumberID, p.Log, p.Metrics)
}

func newTenantLock(cfg config.Config, locker *Locker) *TenantLock {
	return NewTenantLock(locker, cfg.Notify.TenantLockTTL)
}
