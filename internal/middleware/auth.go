package middleware

import (
	"github.com/gofiber/fiber/v2"

	"inkwell/internal/store"
)

// RequireSession gates a route behind an authenticated session. This mirrors
// the browser's protected-route behavior: it is a UI-level gate, while the
// backend's own row-level rules remain the authorization boundary.
func RequireSession(sessions *store.SessionStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity := sessions.Identity()
		if identity == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authentication required",
			})
		}
		c.Locals("identity", identity)
		return c.Next()
	}
}
