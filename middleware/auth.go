// middleware/auth.go
package middleware

import (
	"log"
	"strings"

	"result-verification-system/services"

	"github.com/gofiber/fiber/v2"
)

const (
	localUserID    = "user_id"
	localUserRoles = "user_roles"
)

// OrganizerRoles may act on submissions and disputes.
var OrganizerRoles = []string{"organizer", "admin"}

// UserContextMiddleware reads the identity the Gateway forwards in X-User-ID
// and X-User-Roles and rejects requests without a user.
func UserContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := strings.TrimSpace(c.Get("X-User-ID"))
		if userID == "" {
			log.Printf("❌ [USER_CTX] X-User-ID required but missing on secured route: %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-User-ID — request must come through gateway with auth context",
				"code":  "unauthorized",
			})
		}

		var roles []string
		for _, r := range strings.Split(c.Get("X-User-Roles"), ",") {
			if r = strings.ToLower(strings.TrimSpace(r)); r != "" {
				roles = append(roles, r)
			}
		}

		c.Locals(localUserID, userID)
		c.Locals(localUserRoles, roles)
		return c.Next()
	}
}

// UserID returns the caller set by UserContextMiddleware.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(localUserID).(string)
	return id
}

// Roles returns the caller's roles set by UserContextMiddleware.
func Roles(c *fiber.Ctx) []string {
	roles, _ := c.Locals(localUserRoles).([]string)
	return roles
}

// HasRole reports whether the caller holds any of roles.
func HasRole(c *fiber.Ctx, roles ...string) bool {
	for _, have := range Roles(c) {
		for _, want := range roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

// RequireRole rejects callers holding none of roles with 403.
func RequireRole(action string, roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if HasRole(c, roles...) {
			return c.Next()
		}
		err := &services.PermissionDeniedError{UserID: UserID(c), Action: action}
		log.Printf("🚫 [USER_CTX] %v (roles=%v) on %s", err, Roles(c), c.Path())
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": err.Error(),
			"code":  services.ErrorCode(err),
		})
	}
}
