package ratelimit

import (
	"context"
	"time"

	obsmetrics "github.com/smallbiznis/invoicenotify/internal/observability/metrics"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	BackendLocal = "local"
	BackendRedis = "redis"

	keyDispatch = "invoicenotify:dispatch:%s"
)

// DispatchLimiter paces outbound provider calls. Every send in the process
// goes through the same instance.
type DispatchLimiter struct {
	local    *rate.Limiter
	bucket   *TokenBucket
	key      string
	rate     float64
	log      *zap.Logger
	metrics  *obsmetrics.Metrics
	sleep    func(ctx context.Context, d time.Duration) error
	maxSleep time.Duration
}

// NewDispatchLimiter allows one send per interval. A nil bucket keeps pacing
// in-process; otherwise replicas share the redis bucket stored under scope.
func NewDispatchLimiter(interval time.Duration, bucket *TokenBucket, scope string, log *zap.Logger, metrics *obsmetrics.Metrics) *DispatchLimiter {
	if log == nil {
		log = zap.NewNop()
	}
	limit := rate.Inf
	perSecond := 0.0
	if interval > 0 {
		limit = rate.Every(interval)
		perSecond = float64(time.Second) / float64(interval)
	}
	return &DispatchLimiter{
		local:    rate.NewLimiter(limit, 1),
		bucket:   bucket,
		key:      keyFor(scope),
		rate:     perSecond,
		log:      log.Named("ratelimit.dispatch"),
		metrics:  metrics,
		sleep:    sleepContext,
		maxSleep: 5 * time.Second,
	}
}

func keyFor(scope string) string {
	if scope == "" {
		scope = "default"
	}
	return fmtKey(keyDispatch, scope)
}

func (l *DispatchLimiter) Backend() string {
	if l != nil && l.bucket != nil && l.rate > 0 {
		return BackendRedis
	}
	return BackendLocal
}

// Wait blocks until a send is allowed or ctx is done. When redis is
// unreachable the limiter degrades to in-process pacing.
func (l *DispatchLimiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	if l.Backend() == BackendRedis {
		err := l.waitShared(ctx)
		if err == nil || ctx.Err() != nil {
			return err
		}
		l.log.Warn("ratelimit.dispatch.redis_unavailable", zap.Error(err))
	}
	l.metrics.RecordLimiterWait(ctx, BackendLocal)
	return l.local.Wait(ctx)
}

func (l *DispatchLimiter) waitShared(ctx context.Context) error {
	l.metrics.RecordLimiterWait(ctx, BackendRedis)
	for {
		grant, err := l.bucket.Take(ctx, l.key, l.rate, 1)
		if err != nil {
			return err
		}
		if grant.Allowed {
			return nil
		}
		delay := grant.RetryAfter
		if delay <= 0 {
			delay = 10 * time.Millisecond
		}
		if delay > l.maxSleep {
			delay = l.maxSleep
		}
		if err := l.sleep(ctx, delay); err != nil {
			return err
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
