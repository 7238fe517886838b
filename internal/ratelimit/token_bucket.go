package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// sendBucketScript refills from the redis clock so every replica draws from
// one provider budget. The remaining balance is returned as a string to keep
// fractions.
const sendBucketScript = `
local per_second = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local ttl_ms = tonumber(ARGV[3])

local clock = redis.call("TIME")
local now_ms = (clock[1] * 1000) + math.floor(clock[2] / 1000)

local state = redis.call("HMGET", KEYS[1], "balance", "at")
local balance = tonumber(state[1]) or burst
local at = tonumber(state[2]) or now_ms

local elapsed = math.max(0, now_ms - at)
balance = math.min(burst, balance + (elapsed / 1000) * per_second)

local granted = 0
if balance >= 1 then
  granted = 1
  balance = balance - 1
end

redis.call("HSET", KEYS[1], "balance", balance, "at", now_ms)
redis.call("PEXPIRE", KEYS[1], ttl_ms)

return {granted, tostring(balance)}
`

var ErrBucketNotConfigured = errors.New("send_bucket_not_configured")

// TokenBucket is a redis token bucket shared by every replica sending
// through the same provider account.
type TokenBucket struct {
	client *redis.Client
	script *redis.Script
}

// Grant is the answer to one Take.
type Grant struct {
	Allowed    bool
	Remaining  float64
	RetryAfter time.Duration
}

func NewTokenBucket(client *redis.Client) *TokenBucket {
	if client == nil {
		return nil
	}
	return &TokenBucket{
		client: client,
		script: redis.NewScript(sendBucketScript),
	}
}

// Take draws one send from the bucket at key, refilled at perSecond.
func (t *TokenBucket) Take(ctx context.Context, key string, perSecond float64, burst int) (Grant, error) {
	switch {
	case t == nil || t.client == nil:
		return Grant{}, ErrBucketNotConfigured
	case key == "":
		return Grant{}, errors.New("send bucket key is empty")
	case perSecond <= 0 || burst <= 0:
		return Grant{}, fmt.Errorf("send bucket needs a positive rate and burst, got %v/%d", perSecond, burst)
	}

	res, err := t.script.Run(ctx, t.client, []string{key}, perSecond, burst, bucketTTL(perSecond, burst).Milliseconds()).Slice()
	if err != nil {
		return Grant{}, err
	}
	return parseGrant(res, perSecond)
}

func parseGrant(res []any, perSecond float64) (Grant, error) {
	if len(res) < 2 {
		return Grant{}, errors.New("invalid send bucket response")
	}
	granted, _ := res[0].(int64)
	balance, err := strconv.ParseFloat(fmt.Sprint(res[1]), 64)
	if err != nil {
		return Grant{}, fmt.Errorf("parse send bucket balance: %w", err)
	}

	grant := Grant{Allowed: granted == 1, Remaining: balance}
	if !grant.Allowed && perSecond > 0 {
		if missing := 1 - balance; missing > 0 {
			grant.RetryAfter = time.Duration(missing / perSecond * float64(time.Second))
		}
	}
	return grant, nil
}

// bucketTTL keeps an idle bucket around for two full refills.
func bucketTTL(perSecond float64, burst int) time.Duration {
	if perSecond <= 0 || burst <= 0 {
		return time.Second
	}
	seconds := math.Max(1, math.Ceil(float64(burst)/perSecond*2))
	return time.Duration(seconds) * time.Second
}
