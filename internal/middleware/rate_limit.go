package middleware

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

// RateLimit sheds load with a single process-wide token bucket before any
// handler work. It is independent of authentication and runs first; a
// rejected request gets 429 with an empty body.
func RateLimit(perSecond int) fiber.Handler {
	if perSecond <= 0 {
		perSecond = 100
	}
	limiter := rate.NewLimiter(rate.Limit(perSecond), perSecond)

	return func(c *fiber.Ctx) error {
		if !limiter.Allow() {
			return c.Status(http.StatusTooManyRequests).SendString("")
		}
		return c.Next()
	}
}
