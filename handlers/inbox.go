package handlers

import (
	"strings"
	"time"

	"result-verification-system/middleware"
	"result-verification-system/models"
	"result-verification-system/services"

	"github.com/gofiber/fiber/v2"
)

// ListInbox serves GET /organizer/results-inbox.
func (h *ResultHandler) ListInbox(c *fiber.Ctx) error {
	q := services.InboxQuery{
		TournamentID:  c.Query("tournament_id"),
		Status:        models.SubmissionStatus(c.Query("status")),
		DisputeStatus: models.DisputeStatus(c.Query("dispute_status")),
		Page:          c.QueryInt("page", 1),
		PageSize:      c.QueryInt("page_size", 0),
	}

	var err error
	if q.DateFrom, err = parseDate(c.Query("date_from"), false); err != nil {
		return respondError(c, &services.ValidationError{Field: "date_from", Message: err.Error()})
	}
	if q.DateTo, err = parseDate(c.Query("date_to"), true); err != nil {
		return respondError(c, &services.ValidationError{Field: "date_to", Message: err.Error()})
	}

	page, err := h.Inbox.Query(c.UserContext(), q)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// parseDate accepts RFC 3339 timestamps or plain dates. A plain date used as
// an upper bound covers the whole day.
func parseDate(raw string, endOfDay bool) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

type bulkActionRequest struct {
	Action        string   `json:"action"`
	SubmissionIDs []string `json:"submission_ids"`
	Notes         string   `json:"notes"`
}

// BulkAction serves POST /organizer/results-inbox/bulk-action.
func (h *ResultHandler) BulkAction(c *fiber.Ctx) error {
	var req bulkActionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid JSON")
	}
	if len(req.SubmissionIDs) == 0 {
		return respondError(c, &services.ValidationError{Field: "submission_ids", Message: "must not be empty"})
	}

	userID := middleware.UserID(c)
	var res services.BulkResult
	switch req.Action {
	case "finalize":
		res = h.Resolution.BulkFinalize(c.UserContext(), req.SubmissionIDs, userID)
	case "reject":
		res = h.Resolution.BulkReject(c.UserContext(), req.SubmissionIDs, userID, req.Notes)
	default:
		return respondError(c, &services.ValidationError{Field: "action", Message: "must be finalize or reject"})
	}
	return c.JSON(res)
}
