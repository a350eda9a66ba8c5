package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/bizbridge-auth/internal/interface/middleware"
)

// Limiter builds per-minute rate limiters sharing one Redis and bypass rule.
type Limiter struct {
	Redis *redis.Client
	Allow middleware.AllowFunc
}

func (l Limiter) PerMinute(max int, key middleware.KeyFunc) gin.HandlerFunc {
	return middleware.RateLimit(l.Redis, max, time.Minute, key, l.Allow)
}
