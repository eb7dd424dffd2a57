package handlers

import (
	"log"

	"result-verification-system/services"

	"github.com/gofiber/fiber/v2"
)

var statusByCode = map[string]int{
	"not_found":                fiber.StatusNotFound,
	"invalid_submission_state": fiber.StatusConflict,
	"dispute_already_resolved": fiber.StatusConflict,
	"conflict":                 fiber.StatusConflict,
	"validation_error":         fiber.StatusUnprocessableEntity,
	"permission_denied":        fiber.StatusForbidden,
}

// respondError writes a domain error as {"error", "code"} with its HTTP status.
func respondError(c *fiber.Ctx, err error) error {
	code := services.ErrorCode(err)
	status, ok := statusByCode[code]
	if !ok {
		log.Printf("❌ [Handlers] %s %s: %v", c.Method(), c.Path(), err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal error",
			"code":  code,
		})
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error(), "code": code})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg, "code": "bad_request"})
}
