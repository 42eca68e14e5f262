package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sealvault/sealvault-backend/internal/pkg/logger"
	"go.uber.org/zap"
)

// RateLimiterConfig configures the fixed-window limiter.
type RateLimiterConfig struct {
	MaxRequests   int
	WindowSeconds int
	Strategy      string // user, ip
}

// RateLimiter is a Redis-backed fixed-window rate limiter. When Redis is
// unreachable the limiter fails open: mutations are still guarded by the
// database, the limiter only absorbs abuse.
func RateLimiter(redisClient *redis.Client, cfg RateLimiterConfig, log *logger.Logger) gin.HandlerFunc {
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = 100
	}
	if cfg.WindowSeconds <= 0 {
		cfg.WindowSeconds = 60
	}
	if cfg.Strategy == "" {
		cfg.Strategy = "ip"
	}

	return func(c *gin.Context) {
		key := buildRateLimitKey(c, cfg.Strategy)

		ctx := c.Request.Context()
		allowed, remaining, err := checkRateLimit(ctx, redisClient, key, cfg)
		if err != nil {
			log.Error("rate limiter error", zap.Error(err), zap.String("key", key))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", cfg.MaxRequests))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))

		if !allowed {
			c.Header("Retry-After", fmt.Sprintf("%d", cfg.WindowSeconds))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate limit exceeded",
				"message": fmt.Sprintf("too many requests, please try again in %d seconds", cfg.WindowSeconds),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

func buildRateLimitKey(c *gin.Context, strategy string) string {
	const prefix = "rate_limit"

	if strategy == "user" {
		if addr := CallerAddress(c); addr != "" {
			return fmt.Sprintf("%s:user:%s", prefix, addr)
		}
	}
	return fmt.Sprintf("%s:ip:%s", prefix, c.ClientIP())
}

func checkRateLimit(ctx context.Context, client *redis.Client, key string, cfg RateLimiterConfig) (allowed bool, remaining int, err error) {
	count, err := client.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, err
	}
	if count == 1 {
		if err := client.Expire(ctx, key, time.Duration(cfg.WindowSeconds)*time.Second).Err(); err != nil {
			return false, 0, err
		}
	}

	remaining = cfg.MaxRequests - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return count <= int64(cfg.MaxRequests), remaining, nil
}
