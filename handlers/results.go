package handlers

import (
	"result-verification-system/middleware"
	"result-verification-system/services"
	"result-verification-system/stores"

	"github.com/gofiber/fiber/v2"
)

// ResultHandler serves the result intake, organizer inbox and dispute routes.
type ResultHandler struct {
	Inbox      *services.InboxService
	Resolution *services.ResolutionService
	Intake     *services.IntakeService
	Rankings   stores.RankingRepository
}

func SetupResultRoutes(app *fiber.App, h *ResultHandler) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// 🔐 Authenticated routes
	secured := app.Group("/", middleware.UserContextMiddleware())

	// Player flow
	secured.Post("/submissions", h.SubmitResult)
	secured.Post("/submissions/:id/confirm", h.ConfirmSubmission)
	secured.Post("/submissions/:id/disputes", h.OpenDispute)
	secured.Get("/rankings/:game_id/:team_id", h.GetRanking)

	// 🔒 Organizer/admin only
	organizer := secured.Group("/organizer", middleware.RequireRole("review match results", middleware.OrganizerRoles...))
	organizer.Get("/results-inbox", h.ListInbox)
	organizer.Post("/results-inbox/bulk-action", h.BulkAction)
	organizer.Post("/submissions/:id/finalize", h.FinalizeSubmission)
	organizer.Post("/submissions/:id/reject", h.RejectSubmission)

	disputes := secured.Group("/disputes", middleware.RequireRole("resolve disputes", middleware.OrganizerRoles...))
	disputes.Post("/:id/resolve", h.ResolveDispute)
	disputes.Post("/:id/review", h.MarkUnderReview)
	disputes.Post("/:id/escalate", h.EscalateDispute)
}
