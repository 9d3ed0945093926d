package middleware

import (
	"strconv"

	"intake_server/pkg/apperr"
	"intake_server/pkg/ratelimit"

	"github.com/gofiber/fiber/v2"
)

// RateLimit rejects clients that exceed limiter, keyed by client IP.
func RateLimit(limiter ratelimit.Limiter, scope string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		allowed, wait := limiter.Allow(c.UserContext(), scope+":"+c.IP())
		if allowed {
			return c.Next()
		}

		retryAfter := int(wait.Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))
		return apperr.New(apperr.CodeRateLimited, "too many requests", fiber.StatusTooManyRequests).
			WithDetail("retry_after", retryAfter)
	}
}
