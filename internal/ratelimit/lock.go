package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const (
	lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`
	keyTenantLock = "invoicenotify:lock:%s:%s"
	keyJobLock    = "invoicenotify:lock:job:%s"
)

type Locker struct {
	client *redis.Client
	script *redis.Script
}

func NewLocker(client *redis.Client) *Locker {
	if client == nil {
		return nil
	}
	return &Locker{
		client: client,
		script: redis.NewScript(lockReleaseScript),
	}
}

func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if l == nil || l.client == nil {
		return "", false, errors.New("lock client not configured")
	}
	if key == "" {
		return "", false, errors.New("lock key is empty")
	}
	if ttl <= 0 {
		return "", false, errors.New("lock ttl must be positive")
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

func (l *Locker) Release(ctx context.Context, key, token string) error {
	if l == nil || l.client == nil {
		return nil
	}
	if key == "" || token == "" {
		return nil
	}
	return l.script.Run(ctx, l.client, []string{key}, token).Err()
}

// TenantLock serialises runs of one flow for one tenant across replicas.
// Without redis every acquisition succeeds.
type TenantLock struct {
	locker *Locker
	ttl    time.Duration
}

func NewTenantLock(locker *Locker, ttl time.Duration) *TenantLock {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &TenantLock{locker: locker, ttl: ttl}
}

func (t *TenantLock) Enabled() bool {
	return t != nil && t.locker != nil
}

// Acquire returns a release func and whether the lock was obtained.
func (t *TenantLock) Acquire(ctx context.Context, flow, subdomain string) (func(context.Context), bool, error) {
	noop := func(context.Context) {}
	if !t.Enabled() {
		return noop, true, nil
	}
	key := fmtKey(keyTenantLock, strings.TrimSpace(flow), strings.ToLower(strings.TrimSpace(subdomain)))
	token, ok, err := t.locker.TryLock(ctx, key, t.ttl)
	if err != nil || !ok {
		return noop, false, err
	}
	return func(ctx context.Context) {
		_ = t.locker.Release(ctx, key, token)
	}, true, nil
}

// JobLockKey is the lock key guarding one scheduler job across replicas.
func JobLockKey(job string) string {
	return fmtKey(keyJobLock, strings.TrimSpace(job))
}

func fmtKey(format string, args ...any) string {
	return fmt.Sprintf(format, args...)
}
