package middlewares

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/suman7063/Restaurant-Managment-sub002/utils"
)

// KeyFunc picks the bucket a request is counted against.
type KeyFunc func(c *gin.Context) string

func ByIP(prefix string) KeyFunc {
	return func(c *gin.Context) string { return prefix + ":" + c.ClientIP() }
}

// ByParamAndIP buckets per path parameter and client, e.g. per table and IP
// for OTP join attempts.
func ByParamAndIP(prefix, param string) KeyFunc {
	return func(c *gin.Context) string {
		return fmt.Sprintf("%s:%s:%s", prefix, c.Param(param), c.ClientIP())
	}
}

// RateLimiter allows limit requests per window per key. With a redis client
// the window is shared across instances; without one each process keeps its
// own token buckets.
type RateLimiter struct {
	limit  int
	window time.Duration
	rdb    *redis.Client

	mu    sync.Mutex
	local map[string]*rate.Limiter
}

func NewRateLimiter(rdb *redis.Client, limit int, window time.Duration) *RateLimiter {
	if limit < 1 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{limit: limit, window: window, rdb: rdb, local: make(map[string]*rate.Limiter)}
}

func (rl *RateLimiter) allowLocal(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	lim, ok := rl.local[key]
	if !ok {
		every := rl.window / time.Duration(rl.limit)
		lim = rate.NewLimiter(rate.Every(every), rl.limit)
		rl.local[key] = lim
	}
	return lim.Allow()
}

// allowRedis is a fixed window counter. SET NX EX creates the window with
// its expiry and INCR counts the hit, both in one MULTI/EXEC so a key never
// lives without a TTL.
func (rl *RateLimiter) allowRedis(ctx context.Context, key string) (bool, time.Duration, error) {
	var incr *redis.IntCmd
	_, err := rl.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, key, 0, rl.window)
		incr = pipe.Incr(ctx, key)
		return nil
	})
	if err != nil {
		return false, 0, err
	}
	n := incr.Val()
	if n <= int64(rl.limit) {
		return true, 0, nil
	}
	ttl, err := rl.rdb.TTL(ctx, key).Result()
	if err != nil || ttl < 0 {
		ttl = rl.window
	}
	return false, ttl, nil
}

// Allow reports whether the request for key may proceed and, if not, how
// long to wait.
func (rl *RateLimiter) Allow(ctx context.Context, key string) (bool, time.Duration) {
	if rl.rdb != nil {
		ok, retry, err := rl.allowRedis(ctx, "rl:"+key)
		if err == nil {
			return ok, retry
		}
		utils.ErrorLogger.WithError(err).WithField("key", key).Warn("redis rate limit failed, using local limiter")
	}
	if rl.allowLocal(key) {
		return true, 0
	}
	return false, rl.window / time.Duration(rl.limit)
}

func (rl *RateLimiter) Middleware(keyFn KeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFn(c)
		ok, retry := rl.Allow(c.Request.Context(), key)
		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.limit))
		if !ok {
			secs := int(math.Ceil(retry.Seconds()))
			c.Header("Retry-After", strconv.Itoa(secs))
			utils.InfoLogger.WithFields(logrus.Fields{
				"key":         key,
				"retry_after": secs,
			}).Warn("rate limited")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, utils.JSONResponse{
				Status:  false,
				Message: "Terlalu banyak percobaan, silakan tunggu beberapa saat",
			})
			return
		}
		c.Next()
	}
}
