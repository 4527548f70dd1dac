package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"loan-agreement-engine/internal/config"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

const (
	rateLimitKeyPrefix = "ratelimit:"
	unknownIP          = "unknown"
	limiterIdleCheck   = 10 * time.Minute
)

// RedisCounter is the part of a Redis client the shared limiter needs.
type RedisCounter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

var _ RedisCounter = (*redis.Client)(nil)

// RateLimiterMiddleware limits requests per client IP. With a Redis counter it
// uses a fixed one-second window shared by every replica; otherwise each
// process keeps its own token buckets.
type RateLimiterMiddleware struct {
	counter  RedisCounter
	limiters sync.Map
	cfg      config.RateLimitConfig
	logger   *slog.Logger
	window   time.Duration
	stop     chan struct{}
	stopOnce sync.Once
}

func NewRateLimiterMiddleware(cfg config.RateLimitConfig, counter RedisCounter, logger *slog.Logger) *RateLimiterMiddleware {
	if logger == nil {
		panic("logger cannot be nil")
	}
	logger = logger.With("component", "RateLimiter")

	rl := &RateLimiterMiddleware{
		counter: counter,
		cfg:     cfg,
		logger:  logger,
		window:  time.Second,
		stop:    make(chan struct{}),
	}

	switch {
	case !cfg.Enabled:
		logger.Info("Rate limiting is disabled via configuration.")
	case counter != nil:
		logger.Info("Rate limiter using shared Redis counters", "limit", rl.windowLimit(), "window", rl.window)
	default:
		logger.Info("Rate limiter using in-process token buckets", "rps", cfg.RPS, "burst", cfg.Burst)
		go rl.cleanupLimiters()
	}
	return rl
}

func (rl *RateLimiterMiddleware) IsEnabled() bool {
	return rl.cfg.Enabled
}

// Stop ends the idle limiter cleanup loop.
func (rl *RateLimiterMiddleware) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// windowLimit is the number of requests allowed per window in Redis mode.
func (rl *RateLimiterMiddleware) windowLimit() int64 {
	limit := int64(math.Ceil(rl.cfg.RPS * rl.window.Seconds()))
	if b := int64(rl.cfg.Burst); b > limit {
		limit = b
	}
	if limit < 1 {
		limit = 1
	}
	return limit
}

func (rl *RateLimiterMiddleware) getLimiter(ip string) *rate.Limiter {
	if limiter, ok := rl.limiters.Load(ip); ok {
		return limiter.(*rate.Limiter)
	}
	limiter, _ := rl.limiters.LoadOrStore(ip, rate.NewLimiter(rate.Limit(rl.cfg.RPS), rl.cfg.Burst))
	return limiter.(*rate.Limiter)
}

func (rl *RateLimiterMiddleware) cleanupLimiters() {
	ticker := time.NewTicker(limiterIdleCheck)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.pruneFullLimiters()
		}
	}
}

// pruneFullLimiters drops buckets that have refilled completely, i.e. clients
// that have gone quiet.
func (rl *RateLimiterMiddleware) pruneFullLimiters() int {
	removed := 0
	rl.limiters.Range(func(key, value any) bool {
		limiter := value.(*rate.Limiter)
		if limiter.Tokens() >= float64(limiter.Burst()) {
			rl.limiters.Delete(key)
			removed++
		}
		return true
	})
	return removed
}

func (rl *RateLimiterMiddleware) extractIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ip := strings.TrimSpace(strings.Split(xff, ",")[0])
		if net.ParseIP(ip) != nil {
			return ip
		}
	}

	if xRealIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); xRealIP != "" && net.ParseIP(xRealIP) != nil {
		return xRealIP
	}

	if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return ip
	}
	if parsed := net.ParseIP(r.RemoteAddr); parsed != nil {
		return parsed.String()
	}
	return unknownIP
}

// allowShared counts the request in Redis. Redis failures fail open.
func (rl *RateLimiterMiddleware) allowShared(ctx context.Context, ip string) bool {
	key := rateLimitKeyPrefix + ip
	count, err := rl.counter.Incr(ctx, key).Result()
	if err != nil {
		rl.logger.ErrorContext(ctx, "Redis INCR failed during rate limiting check", "error", err, "ip", ip)
		return true
	}
	if count == 1 {
		if err := rl.counter.Expire(ctx, key, rl.window).Err(); err != nil {
			rl.logger.ErrorContext(ctx, "Failed to set rate limit window expiry", "error", err, "key", key)
		}
	}
	return count <= rl.windowLimit()
}

func (rl *RateLimiterMiddleware) Middleware(next http.Handler) http.Handler {
	if !rl.IsEnabled() {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := rl.extractIP(r)
		if ip == unknownIP {
			rl.logger.Error("Blocking request due to unknown client IP for rate limiting", "remoteAddr", r.RemoteAddr)
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		var allowed bool
		if rl.counter != nil {
			allowed = rl.allowShared(r.Context(), ip)
		} else {
			allowed = rl.getLimiter(ip).Allow()
		}

		if !allowed {
			rl.logger.Warn("Rate limit exceeded", "ip", ip)
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", fmt.Sprintf("%.0f", math.Ceil(rl.window.Seconds())))
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]string{
					"message": "Rate limit exceeded",
				},
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}
