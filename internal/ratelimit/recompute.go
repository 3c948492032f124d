package ratelimit

import (
	"context"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/purchasing/internal/config"
	"go.uber.org/fx"
)

const keyRecompute = "purchasing:recompute:%s"

type Params struct {
	fx.In

	Config config.Config
	Client *redis.Client `optional:"true"`
}

// RecomputeLimiter throttles manual payment status recomputes per caller.
// A nil limiter allows everything.
type RecomputeLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewRecomputeLimiter(p Params) *RecomputeLimiter {
	if p.Client == nil || p.Config.RecomputeRateLimit <= 0 || p.Config.RecomputeRateBurst <= 0 {
		return nil
	}
	return &RecomputeLimiter{
		bucket: NewTokenBucket(p.Client),
		rate:   p.Config.RecomputeRateLimit,
		burst:  p.Config.RecomputeRateBurst,
	}
}

func (l *RecomputeLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

func (l *RecomputeLimiter) Allow(ctx context.Context, caller string) (Result, error) {
	if !l.Enabled() {
		return Result{Allowed: true}, nil
	}
	caller = strings.TrimSpace(caller)
	if caller == "" {
		caller = "anonymous"
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyRecompute, strings.ToLower(caller)), l.rate, l.burst)
}
