package handlers

import (
	"errors"

	"result-verification-system/middleware"
	"result-verification-system/services"
	"result-verification-system/stores"

	"github.com/gofiber/fiber/v2"
)

// SubmitResult serves POST /submissions. The submitter is the caller.
func (h *ResultHandler) SubmitResult(c *fiber.Ctx) error {
	var in services.SubmitResultInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid JSON")
	}
	in.SubmittedByUserID = middleware.UserID(c)

	sub, err := h.Intake.SubmitResult(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(sub)
}

// ConfirmSubmission serves POST /submissions/:id/confirm.
func (h *ResultHandler) ConfirmSubmission(c *fiber.Ctx) error {
	sub, err := h.Intake.ConfirmSubmission(c.UserContext(), c.Params("id"), middleware.UserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(sub)
}

// OpenDispute serves POST /submissions/:id/disputes.
func (h *ResultHandler) OpenDispute(c *fiber.Ctx) error {
	var in services.OpenDisputeInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid JSON")
	}
	in.SubmissionID = c.Params("id")
	in.OpenedByUserID = middleware.UserID(c)

	d, err := h.Intake.OpenDispute(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(d)
}

type rejectRequest struct {
	Notes string `json:"notes"`
}

// FinalizeSubmission serves POST /organizer/submissions/:id/finalize.
func (h *ResultHandler) FinalizeSubmission(c *fiber.Ctx) error {
	sub, err := h.Resolution.FinalizeSubmission(c.UserContext(), c.Params("id"), middleware.UserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(sub)
}

// RejectSubmission serves POST /organizer/submissions/:id/reject.
func (h *ResultHandler) RejectSubmission(c *fiber.Ctx) error {
	var req rejectRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid JSON")
		}
	}
	sub, err := h.Resolution.RejectSubmission(c.UserContext(), c.Params("id"), middleware.UserID(c), req.Notes)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(sub)
}

// GetRanking serves GET /rankings/:game_id/:team_id.
func (h *ResultHandler) GetRanking(c *fiber.Ctx) error {
	r, err := h.Rankings.Get(c.UserContext(), c.Params("team_id"), c.Params("game_id"))
	if errors.Is(err, stores.ErrNotFound) {
		return respondError(c, &services.NotFoundError{Entity: "ranking", ID: c.Params("game_id") + "/" + c.Params("team_id")})
	}
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(r)
}
