package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/monitor-mbg/monitor_mbg/internal/auth"
)

const bearerPrefix = "Bearer "

// BearerAuth rejects requests without a valid bearer token and attaches the
// decoded claims for downstream handlers. The handler body only runs after
// a successful decode.
func BearerAuth(codec *auth.TokenCodec) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(authz, bearerPrefix) {
			return fiber.NewError(http.StatusUnauthorized, "Invalid token")
		}

		claims, err := codec.Decode(authz[len(bearerPrefix):])
		if err != nil {
			return err
		}

		c.Locals(auth.ClaimsLocalKey, claims)
		return c.Next()
	}
}
