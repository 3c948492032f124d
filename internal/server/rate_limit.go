package server

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/purchasing/pkg/log/ctxlogger"
	"go.uber.org/zap"
)

// RecomputeRateLimit throttles manual recomputes per X-User-Name, falling
// back to the client IP. Limiter failures reject with 503.
func (s *Server) RecomputeRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Enabled() {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		caller := userName(c)
		if caller == "" {
			caller = c.ClientIP()
		}

		res, err := s.limiter.Allow(ctx, caller)
		if err != nil {
			ctxlogger.FromContext(ctx).Warn("recompute rate limit check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}

		route := routeOf(c)
		if !res.Allowed {
			ctxlogger.FromContext(ctx).Warn("recompute rate limit exceeded", zap.String("caller", caller))
			s.metrics.RecordRateLimit(route, "denied")
			c.Header("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())))
			AbortWithError(c, ErrRateLimited)
			return
		}

		s.metrics.RecordRateLimit(route, "allowed")
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		c.Next()
	}
}
