// Package ratelimit throttles unauthenticated endpoints per client address.
package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/Skotchmaster/optica/internal/logging"
)

const maxTracked = 10000

type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

// PerMinute allows n requests per minute per key with the given burst.
func PerMinute(n, burst int) *Limiter {
	if n <= 0 {
		n = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Every(time.Minute / time.Duration(n)),
		burst:    burst,
	}
}

func (rl *Limiter) get(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	lim, ok := rl.limiters[key]
	if !ok {
		if len(rl.limiters) >= maxTracked {
			rl.limiters = make(map[string]*rate.Limiter)
		}
		lim = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = lim
	}
	return lim
}

func (rl *Limiter) Allow(key string) bool { return rl.get(key).Allow() }

func (rl *Limiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.RealIP()
			if key == "" {
				key = "unknown"
			}
			if !rl.Allow(key) {
				retry := time.Duration(float64(time.Second) / float64(rl.rate))
				c.Response().Header().Set("Retry-After", strconv.Itoa(int(retry.Seconds())+1))
				logging.FromContext(c.Request().Context()).Warn("rate_limited",
					"status", 429, "key", key, "path", c.Path())
				return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests, try again later")
			}
			return next(c)
		}
	}
}
