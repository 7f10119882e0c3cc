package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/leafbox-next/internal/http/response"
	"github.com/leafbox-next/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimitKeyFunc derives the bucket key for a request
type RateLimitKeyFunc func(*gin.Context) string

// RateLimitRule one fixed window bucket family
type RateLimitRule struct {
	Prefix        string
	WindowSeconds int
	MaxRequests   int
	Message       string
}

func (r RateLimitRule) active() bool {
	return r.WindowSeconds > 0 && r.MaxRequests > 0
}

func (r RateLimitRule) bucket(key string) string {
	if r.Prefix == "" {
		return key
	}
	return r.Prefix + ":" + key
}

// retryAfter seconds until the window resets, never below one
func (r RateLimitRule) retryAfter(ttl int64) int {
	switch {
	case ttl > 0:
		return int(ttl)
	case r.WindowSeconds > 0:
		return r.WindowSeconds
	default:
		return 1
	}
}

func (r RateLimitRule) rejection(wait int) string {
	message := strings.TrimSpace(r.Message)
	if message == "" {
		message = "too many requests"
	}
	return fmt.Sprintf("%s, retry in %d seconds", message, wait)
}

// INCR and TTL run atomically so the first hit of a window sets its expiry.
var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return {current, redis.call("TTL", KEYS[1])}
`)

// countHit returns the hit count inside the current window and its ttl.
func countHit(ctx context.Context, client *redis.Client, bucket string, window int) (int64, int64, error) {
	values, err := fixedWindowScript.Run(ctx, client, []string{bucket}, window).Int64Slice()
	if err != nil {
		return 0, 0, err
	}
	if len(values) != 2 {
		return 0, 0, fmt.Errorf("rate limit script returned %d values", len(values))
	}
	return values[0], values[1], nil
}

// RateLimitMiddleware fixed window limit counted in redis. A redis
// outage lets requests through rather than blocking checkout.
func RateLimitMiddleware(client *redis.Client, rule RateLimitRule, keyFunc RateLimitKeyFunc) gin.HandlerFunc {
	if keyFunc == nil {
		keyFunc = KeyByIP
	}
	return func(c *gin.Context) {
		if client == nil || !rule.active() {
			c.Next()
			return
		}

		key := strings.TrimSpace(keyFunc(c))
		if key == "" {
			key = c.ClientIP()
		}
		count, ttl, err := countHit(c.Request.Context(), client, rule.bucket(key), rule.WindowSeconds)
		if err != nil {
			logger.Warnw("rate_limit_unavailable", "prefix", rule.Prefix, "error", err)
			c.Next()
			return
		}
		if count <= int64(rule.MaxRequests) {
			c.Next()
			return
		}

		wait := rule.retryAfter(ttl)
		c.Header("Retry-After", strconv.Itoa(wait))
		logger.Infow("rate_limited", "prefix", rule.Prefix, "client_ip", c.ClientIP(), "count", count)
		response.TooManyRequests(c, rule.rejection(wait))
		c.Abort()
	}
}

// KeyByIP buckets by client ip
func KeyByIP(c *gin.Context) string {
	return c.ClientIP()
}

// KeyByIPAndJSONField buckets by a JSON body field plus client ip, so one
// order's slip retries do not starve other buyers behind the same NAT.
func KeyByIPAndJSONField(field string) RateLimitKeyFunc {
	return func(c *gin.Context) string {
		value := strings.ToLower(peekJSONString(c, field))
		if value == "" {
			return c.ClientIP()
		}
		return value + "|" + c.ClientIP()
	}
}

// peekJSONString reads one top-level string field and puts the body back
// for the handler.
func peekJSONString(c *gin.Context, field string) string {
	if c == nil || c.Request == nil || c.Request.Body == nil {
		return ""
	}
	body, err := io.ReadAll(c.Request.Body)
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil || len(body) == 0 {
		return ""
	}
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	var value string
	if err := json.Unmarshal(payload[field], &value); err != nil {
		return ""
	}
	return strings.TrimSpace(value)
}
