package handlers

import "github.com/gofiber/fiber/v2"

// respond writes the success envelope.
func respond(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"data":    data,
		"error":   nil,
	})
}
