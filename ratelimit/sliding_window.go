// Package ratelimit implements a Redis-backed sliding window limiter.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "chirp:ratelimit:"

// slidingWindowScript keeps one sorted-set member per accepted attempt, scored by its
// timestamp in milliseconds. Attempts older than the window are evicted before counting,
// and the current attempt is only recorded when it fits.
//
// KEYS[1] set key; ARGV: now ms, window ms, limit, member.
// Returns {allowed (0|1), count after the call, oldest score or -1}.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call("ZREMRANGEBYSCORE", key, "-inf", now - window)
local count = redis.call("ZCARD", key)
local allowed = 0
if count < limit then
	redis.call("ZADD", key, ARGV[1], ARGV[4])
	count = count + 1
	allowed = 1
end
redis.call("PEXPIRE", key, window)

local oldest = -1
local first = redis.call("ZRANGE", key, 0, 0, "WITHSCORES")
if first[2] then
	oldest = tonumber(first[2])
end
return {allowed, count, oldest}
`)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	// ResetAt is when the oldest counted attempt leaves the window.
	ResetAt time.Time
}

// SlidingWindow allows at most Limit attempts per key within any trailing Window.
type SlidingWindow struct {
	client redis.Scripter
	limit  int
	window time.Duration
	now    func() time.Time
}

// Option customises a SlidingWindow.
type Option func(*SlidingWindow)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *SlidingWindow) { s.now = now }
}

// NewSlidingWindow builds a limiter of limit attempts per window.
func NewSlidingWindow(client redis.Scripter, limit int, window time.Duration, opts ...Option) *SlidingWindow {
	s := &SlidingWindow{client: client, limit: limit, window: window, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Allow records an attempt for key and reports whether it is within the limit.
// An allowed attempt consumes a slot even if the caller later abandons the action.
func (s *SlidingWindow) Allow(ctx context.Context, key string) (Decision, error) {
	now := s.now()
	nowMs := now.UnixMilli()
	windowMs := s.window.Milliseconds()

	res, err := slidingWindowScript.Run(ctx, s.client,
		[]string{keyPrefix + key},
		nowMs, windowMs, s.limit, fmt.Sprintf("%d-%s", nowMs, uuid.NewString()),
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit %q: %w", key, err)
	}
	if len(res) != 3 {
		return Decision{}, fmt.Errorf("rate limit %q: unexpected script reply %v", key, res)
	}

	d := Decision{
		Allowed:   res[0] == 1,
		Limit:     s.limit,
		Remaining: s.limit - int(res[1]),
		ResetAt:   now.Add(s.window),
	}
	if d.Remaining < 0 {
		d.Remaining = 0
	}
	if res[2] >= 0 {
		d.ResetAt = time.UnixMilli(res[2]).In(now.Location()).Add(s.window)
	}
	return d, nil
}
