/**
 * @description
 * Redis-backed limiter for bid submission. Each freelancer gets a fixed
 * window of bid submissions; the window and limit are set at construction
 * from config. A missing or unreachable Redis never blocks a bid, the
 * limiter fails open and the caller logs the outage.
 *
 * @dependencies
 * - github.com/redis/go-redis/v9: Redis client and Lua script support.
 */

package app

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// One round trip: bump the window counter, arm the expiry on first use and
// report the remaining window so callers can surface a retry hint.
var bidWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

// RedisBidRateLimiter throttles bid submissions per freelancer across all
// service instances sharing the same Redis.
type RedisBidRateLimiter struct {
	client redis.UniversalClient
	prefix string
	limit  int
	window time.Duration
}

func NewRedisBidRateLimiter(client redis.UniversalClient, prefix string, limit int, window time.Duration) *RedisBidRateLimiter {
	p := strings.TrimSpace(prefix)
	if p == "" {
		p = "workbridge:rate_limit"
	}
	p = strings.TrimSuffix(p, ":")

	if window < time.Second {
		window = time.Second
	}

	return &RedisBidRateLimiter{
		client: client,
		prefix: p,
		limit:  limit,
		window: window,
	}
}

// ConsumeBidSubmission counts one submission attempt against the
// freelancer's window. It reports whether the attempt is within the limit
// and, when it is not, how many seconds remain until the window resets.
func (r *RedisBidRateLimiter) ConsumeBidSubmission(ctx context.Context, freelancerID string) (allowed bool, retryAfterSeconds int, err error) {
	if r == nil || r.client == nil || r.limit <= 0 {
		return true, 0, nil
	}
	subject := strings.TrimSpace(freelancerID)
	if subject == "" {
		return true, 0, nil
	}

	windowMs := r.window.Milliseconds()
	key := fmt.Sprintf("%s:bids:%s", r.prefix, subject)
	raw, err := bidWindowScript.Run(ctx, r.client, []string{key}, windowMs).Result()
	if err != nil {
		return true, 0, err
	}

	count, ttlMs, err := decodeBidWindowReply(raw)
	if err != nil {
		return true, 0, err
	}
	if ttlMs < 0 {
		ttlMs = windowMs
	}

	if count <= int64(r.limit) {
		return true, 0, nil
	}
	retryAfter := int(math.Ceil(float64(ttlMs) / 1000.0))
	if retryAfter < 1 {
		retryAfter = 1
	}
	return false, retryAfter, nil
}

func decodeBidWindowReply(raw interface{}) (count int64, ttlMs int64, err error) {
	values, ok := raw.([]interface{})
	if !ok || len(values) != 2 {
		return 0, 0, fmt.Errorf("unexpected bid limiter reply shape: %T", raw)
	}
	count, ok = values[0].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("unexpected bid limiter count type: %T", values[0])
	}
	ttlMs, ok = values[1].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("unexpected bid limiter ttl type: %T", values[1])
	}
	return count, ttlMs, nil
}
