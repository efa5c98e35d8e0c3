package middleware

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"habitarc/internal/lib/logger/sl"
	"habitarc/internal/metrics"
	"habitarc/internal/ratelimit"
	"habitarc/internal/transport/http/dto/response"

	"github.com/labstack/echo/v4"
)

// KeyFunc derives the bucket key from the request.
type KeyFunc func(c echo.Context) string

// PerIPAndPath buckets each client separately per endpoint, so hammering
// the login route does not lock a client out of refresh.
func PerIPAndPath(c echo.Context) string {
	return c.RealIP() + ":" + c.Path()
}

// DemoPerIP buckets demo session creation by client alone.
func DemoPerIP(c echo.Context) string {
	return "demo:" + c.RealIP()
}

// RateLimit rejects requests over the policy's fixed-window budget with a
// 429 and a retry hint. A broken store fails open: auth must not go down
// with the limiter backend.
func RateLimit(log *slog.Logger, store ratelimit.Store, policy ratelimit.Policy, name string, keyFn KeyFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			_, retryAfter, err := store.Allow(c.Request().Context(), keyFn(c), policy.Max, policy.Window)
			if err != nil {
				log.Error("rate limit store failed", sl.Err(err), slog.String("policy", name))
				return next(c)
			}

			if retryAfter > 0 {
				metrics.RateLimitedTotal.WithLabelValues(name).Inc()

				seconds := int64(math.Ceil(retryAfter.Seconds()))
				c.Response().Header().Set("Retry-After", strconv.FormatInt(seconds, 10))
				return c.JSON(http.StatusTooManyRequests, response.TooManyRequests(seconds))
			}

			return next(c)
		}
	}
}
