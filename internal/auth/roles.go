package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/policy"
)

// Require gates a route on a capability of the authenticated caller's role.
func Require(capability policy.Capability) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, err := CallerFromContext(c)
		if err != nil {
			return err
		}
		if err := policy.Require(caller.Role, capability); err != nil {
			return err
		}
		return c.Next()
	}
}
