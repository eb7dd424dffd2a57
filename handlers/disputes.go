package handlers

import (
	"encoding/json"

	"result-verification-system/middleware"
	"result-verification-system/services"

	"github.com/gofiber/fiber/v2"
)

type resolveRequest struct {
	ResolutionType string          `json:"resolution_type"`
	Notes          string          `json:"notes"`
	CustomPayload  json.RawMessage `json:"custom_payload"`
}

// ResolveDispute serves POST /disputes/:id/resolve.
func (h *ResultHandler) ResolveDispute(c *fiber.Ctx) error {
	var req resolveRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid JSON")
	}
	r, err := services.ParseResolution(req.ResolutionType, req.Notes, req.CustomPayload)
	if err != nil {
		return respondError(c, err)
	}

	out, err := h.Resolution.ResolveDispute(c.UserContext(), c.Params("id"), middleware.UserID(c), r)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// MarkUnderReview serves POST /disputes/:id/review.
func (h *ResultHandler) MarkUnderReview(c *fiber.Ctx) error {
	d, err := h.Resolution.MarkUnderReview(c.UserContext(), c.Params("id"), middleware.UserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(d)
}

type escalateRequest struct {
	Notes string `json:"notes"`
}

// EscalateDispute serves POST /disputes/:id/escalate.
func (h *ResultHandler) EscalateDispute(c *fiber.Ctx) error {
	var req escalateRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid JSON")
		}
	}
	d, err := h.Resolution.EscalateDispute(c.UserContext(), c.Params("id"), middleware.UserID(c), req.Notes)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(d)
}
