package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/eldtechnologies/hookcase/internal/metrics"
	"github.com/eldtechnologies/hookcase/internal/session"
)

const (
	violationLimit = 10
	violationTTL   = time.Hour
	blockDuration  = 24 * time.Hour

	// sessionsPerIP scales a per-session limit into the ceiling shared by
	// every session behind one IP.
	sessionsPerIP = 4
)

// RateLimit defines limits for an endpoint pattern.
type RateLimit struct {
	Requests int
	Window   time.Duration
	KeyFunc  func(r *http.Request) string

	// PerIP caps requests from one IP across all of its sessions; 0 disables.
	// Session cookies are free to mint, so a per-session limit alone is not
	// a limit.
	PerIP int
}

func perIP(n int) RateLimit {
	return RateLimit{Requests: n, Window: time.Minute, KeyFunc: ipKey}
}

func perSession(n int) RateLimit {
	return RateLimit{Requests: n, Window: time.Minute, KeyFunc: sessionKey, PerIP: n * sessionsPerIP}
}

// RateLimiterConfig holds configuration for the rate limiter.
type RateLimiterConfig struct {
	Whitelist        []string // IPs or CIDRs exempt from rate limiting
	AutoBlockEnabled bool     // Enable auto-blocking after repeated violations
}

// RateLimiter implements sliding window rate limiting in Redis. Without a
// Redis client it falls back to per-process token buckets.
type RateLimiter struct {
	client           *redis.Client
	local            *localLimiter
	limits           map[string]RateLimit
	blocker          *IPBlocker
	logger           zerolog.Logger
	whitelist        []*net.IPNet
	whitelistIPs     map[string]bool
	autoBlockEnabled bool
}

// NewRateLimiter creates a new rate limiter. client may be nil.
func NewRateLimiter(client *redis.Client, logger zerolog.Logger, cfg RateLimiterConfig) *RateLimiter {
	rl := &RateLimiter{
		client:           client,
		blocker:          NewIPBlocker(client),
		logger:           logger,
		whitelistIPs:     make(map[string]bool),
		autoBlockEnabled: cfg.AutoBlockEnabled,
		limits: map[string]RateLimit{
			"GET /threads/":    perIP(120),
			"POST /threads/":   perSession(30),
			"DELETE /threads/": perSession(60),
			"POST /posts":      perSession(20),
			"POST /cart":       perSession(30),
			"GET /resources/":  perIP(60),
			"POST /resources/": perSession(30),
			"PUT /search":      perSession(600),
			"POST /tabs/":      perSession(120),
			"POST /theme":      perSession(60),
			"PUT /theme":       perSession(60),
		},
	}
	if client == nil {
		rl.local = newLocalLimiter()
	}

	// Parse whitelist entries
	for _, entry := range cfg.Whitelist {
		if strings.Contains(entry, "/") {
			// CIDR notation
			_, ipNet, err := net.ParseCIDR(entry)
			if err != nil {
				logger.Warn().Str("entry", entry).Err(err).Msg("invalid CIDR in whitelist")
				continue
			}
			rl.whitelist = append(rl.whitelist, ipNet)
		} else {
			// Single IP
			rl.whitelistIPs[entry] = true
		}
	}

	if len(cfg.Whitelist) > 0 {
		logger.Info().
			Int("ips", len(rl.whitelistIPs)).
			Int("cidrs", len(rl.whitelist)).
			Msg("rate limit whitelist configured")
	}

	return rl
}

// isWhitelisted checks if an IP is in the whitelist.
func (rl *RateLimiter) isWhitelisted(ipStr string) bool {
	// Check exact IP match
	if rl.whitelistIPs[ipStr] {
		return true
	}

	// Check CIDR ranges
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}
	for _, ipNet := range rl.whitelist {
		if ipNet.Contains(ip) {
			return true
		}
	}
	return false
}

// ipKey returns rate limit key based on client IP.
func ipKey(r *http.Request) string {
	return "ratelimit:ip:" + RealIP(r)
}

// sessionKey returns rate limit key based on the session. Requests without
// one, or whose session was only just issued, are keyed by client IP.
func sessionKey(r *http.Request) string {
	ctx := r.Context()
	if id := session.IDFromContext(ctx); id != "" && !session.Issued(ctx) {
		return "ratelimit:session:" + id
	}
	return ipKey(r)
}

// RealIP extracts the real client IP from headers or connection.
func RealIP(r *http.Request) string {
	// Check Fly.io header first
	if ip := r.Header.Get("Fly-Client-IP"); ip != "" {
		return ip
	}
	// Then X-Forwarded-For
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return strings.TrimSpace(strings.Split(ip, ",")[0])
	}
	// Then X-Real-IP
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	// Fallback to RemoteAddr
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// CheckAndIncrement checks rate limit and increments counter.
// Returns (allowed, remaining, resetAt).
func (rl *RateLimiter) CheckAndIncrement(ctx context.Context, key string, limit int, window time.Duration) (bool, int, time.Time) {
	if rl.client == nil {
		return rl.local.allow(key, limit, window)
	}

	now := time.Now()
	windowStart := now.Add(-window)

	// Use a fixed window key based on current time bucket
	windowKey := fmt.Sprintf("%s:%d", key, now.Unix()/int64(window.Seconds()))

	pipe := rl.client.Pipeline()

	// Remove old entries outside window
	pipe.ZRemRangeByScore(ctx, windowKey, "-inf", fmt.Sprintf("%d", windowStart.UnixMilli()))

	// Count current entries
	countCmd := pipe.ZCard(ctx, windowKey)

	// Add current request with unique member
	pipe.ZAdd(ctx, windowKey, redis.Z{
		Score:  float64(now.UnixMilli()),
		Member: fmt.Sprintf("%d", now.UnixNano()),
	})

	// Set TTL on key
	pipe.Expire(ctx, windowKey, window*2)

	_, _ = pipe.Exec(ctx)

	count := countCmd.Val()
	remaining := limit - int(count) - 1
	if remaining < 0 {
		remaining = 0
	}

	resetAt := now.Add(window)
	allowed := count < int64(limit)

	return allowed, remaining, resetAt
}

// Middleware returns the rate limiting middleware.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := RealIP(r)

		// Skip rate limiting for whitelisted IPs
		if rl.isWhitelisted(ip) {
			next.ServeHTTP(w, r)
			return
		}

		// Check IP block first
		if rl.blocker.IsBlocked(r.Context(), ip) {
			rl.logger.Warn().
				Str("type", "security").
				Str("event", "blocked_request").
				Str("ip", ip).
				Str("endpoint", r.URL.Path).
				Msg("blocked IP attempted request")
			metrics.BlockedRequests.WithLabelValues("ip_blocked").Inc()
			http.Error(w, `{"error":"temporarily blocked"}`, http.StatusForbidden)
			return
		}

		// Find matching limit
		pattern, limit := rl.findLimit(r)
		if limit == nil {
			next.ServeHTTP(w, r)
			return
		}

		// Keys are per route so limits of different sizes never share a bucket
		key := limit.KeyFunc(r) + ":" + pattern
		allowed, remaining, resetAt := rl.CheckAndIncrement(r.Context(), key, limit.Requests, limit.Window)
		reported := limit.Requests

		if allowed && limit.PerIP > 0 {
			ceilingKey := "ratelimit:ceiling:" + ip + ":" + pattern
			ok, left, reset := rl.CheckAndIncrement(r.Context(), ceilingKey, limit.PerIP, limit.Window)
			if !ok || left < remaining {
				allowed, remaining, resetAt, reported, key = ok, left, reset, limit.PerIP, ceilingKey
			}
		}

		// Set rate limit headers
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(reported))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if !allowed {
			w.Header().Set("Retry-After", strconv.Itoa(int(time.Until(resetAt).Seconds())))

			// Track violation
			rl.trackViolation(r.Context(), ip)
			metrics.RateLimitHits.WithLabelValues(normalizePath(r.URL.Path)).Inc()

			rl.logger.Warn().
				Str("type", "security").
				Str("event", "rate_limit_exceeded").
				Str("ip", ip).
				Str("session", session.IDFromContext(r.Context())).
				Str("endpoint", r.URL.Path).
				Str("key", key).
				Msg("rate limit exceeded")

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"rate limit exceeded"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// findLimit finds the matching rate limit for a request and the pattern
// that matched it.
func (rl *RateLimiter) findLimit(r *http.Request) (string, *RateLimit) {
	key := r.Method + " " + r.URL.Path

	for pattern, limit := range rl.limits {
		if strings.HasPrefix(key, pattern) {
			l := limit // Copy to avoid pointer issues
			return pattern, &l
		}
	}
	return "", nil
}

// trackViolation tracks rate limit violations and auto-blocks repeat offenders.
func (rl *RateLimiter) trackViolation(ctx context.Context, ip string) {
	if !rl.autoBlockEnabled {
		return
	}

	var count int64
	if rl.client == nil {
		count = rl.local.violation(ip, violationTTL)
	} else {
		key := fmt.Sprintf("violations:ip:%s", ip)
		count, _ = rl.client.Incr(ctx, key).Result()
		rl.client.Expire(ctx, key, violationTTL)
	}

	if count >= violationLimit {
		rl.blocker.Block(ctx, ip, blockDuration, "repeated rate limit violations")
		rl.logger.Warn().
			Str("type", "security").
			Str("event", "ip_auto_blocked").
			Str("ip", ip).
			Int64("violations", count).
			Msg("IP auto-blocked for repeated violations")
	}
}

// IPBlocker manages temporary IP blocks, in Redis when a client is given
// and in process memory otherwise.
type IPBlocker struct {
	client *redis.Client

	mu    sync.Mutex
	local map[string]time.Time // ip -> block expiry
}

// NewIPBlocker creates a new IP blocker. client may be nil.
func NewIPBlocker(client *redis.Client) *IPBlocker {
	return &IPBlocker{client: client, local: make(map[string]time.Time)}
}

// IsBlocked checks if an IP is blocked.
func (b *IPBlocker) IsBlocked(ctx context.Context, ip string) bool {
	if b.client == nil {
		b.mu.Lock()
		defer b.mu.Unlock()
		until, ok := b.local[ip]
		if ok && time.Now().After(until) {
			delete(b.local, ip)
			return false
		}
		return ok
	}

	key := fmt.Sprintf("blocked:ip:%s", ip)
	exists, _ := b.client.Exists(ctx, key).Result()
	return exists > 0
}

// Block blocks an IP for the specified duration.
func (b *IPBlocker) Block(ctx context.Context, ip string, duration time.Duration, reason string) {
	if b.client == nil {
		b.mu.Lock()
		b.local[ip] = time.Now().Add(duration)
		b.mu.Unlock()
		return
	}

	key := fmt.Sprintf("blocked:ip:%s", ip)
	b.client.Set(ctx, key, reason, duration)
}

// Unblock removes an IP block.
func (b *IPBlocker) Unblock(ctx context.Context, ip string) {
	if b.client == nil {
		b.mu.Lock()
		delete(b.local, ip)
		b.mu.Unlock()
		return
	}

	key := fmt.Sprintf("blocked:ip:%s", ip)
	b.client.Del(ctx, key)
}

// localLimiter keeps one token bucket per key. A bucket refills limit
// tokens per window and holds at most limit.
type localLimiter struct {
	mu         sync.Mutex
	buckets    map[string]*rate.Limiter
	violations map[string]*violationCount
}

type violationCount struct {
	count   int64
	expires time.Time
}

func newLocalLimiter() *localLimiter {
	return &localLimiter{
		buckets:    make(map[string]*rate.Limiter),
		violations: make(map[string]*violationCount),
	}
}

func (l *localLimiter) allow(key string, limit int, window time.Duration) (bool, int, time.Time) {
	l.mu.Lock()
	lim, ok := l.buckets[key]
	if !ok {
		lim = rate.NewLimiter(rate.Every(window/time.Duration(limit)), limit)
		l.buckets[key] = lim
	}
	l.mu.Unlock()

	now := time.Now()
	allowed := lim.AllowN(now, 1)
	remaining := int(lim.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}
	return allowed, remaining, now.Add(window)
}

func (l *localLimiter) violation(ip string, ttl time.Duration) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	v, ok := l.violations[ip]
	if !ok || now.After(v.expires) {
		v = &violationCount{}
		l.violations[ip] = v
	}
	v.count++
	v.expires = now.Add(ttl)
	return v.count
}
