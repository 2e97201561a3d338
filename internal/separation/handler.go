package separation

import (
	"errors"

	"romaneio-backend/internal/audit"
	"romaneio-backend/internal/auth"
	"romaneio-backend/internal/models"
	"romaneio-backend/internal/sheets"

	"github.com/gofiber/fiber/v2"
)

type PickInput struct {
	Picked   int    `json:"picked"`
	Notes    string `json:"notes"`
	Override string `json:"status_override,omitempty"`
}

type ProcessRequest struct {
	// Keyed by line item id. Items of the run missing here are treated as
	// picked zero for this pass.
	Picks map[string]PickInput `json:"picks"`
}

// POST /api/print-runs/:id/process
func ProcessHandler(proc *Processor) fiber.Handler {
	return func(c *fiber.Ctx) error {
		runID := c.Params("id")

		var body ProcessRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		picks := make(map[string]Pick, len(body.Picks))
		for id, in := range body.Picks {
			if in.Picked < 0 {
				return fiber.NewError(fiber.StatusBadRequest, "Picked quantity cannot be negative")
			}
			override := models.Status(in.Override)
			if in.Override != "" && !models.IsManualOverride(override) {
				return fiber.NewError(fiber.StatusBadRequest, "status_override must be Finalized or Missing")
			}
			picks[id] = Pick{Picked: in.Picked, Notes: in.Notes, Override: override}
		}

		operator := auth.UserName(c)
		summary, err := proc.Process(c.Context(), runID, picks, operator)
		if err != nil {
			switch {
			case errors.Is(err, ErrRunNotFound):
				return fiber.NewError(fiber.StatusNotFound, "Print run not found")
			case errors.Is(err, sheets.ErrStoreUnreachable):
				return fiber.NewError(fiber.StatusServiceUnavailable, "Tabular store is unreachable, try again shortly")
			default:
				return fiber.NewError(fiber.StatusInternalServerError, "Run could not be processed")
			}
		}

		audit.Record(audit.Entry{
			UserName:    operator,
			EntityType:  "print_run",
			EntityID:    runID,
			Action:      models.AuditActionProcess,
			Description: "separation pass processed",
			Details:     summary,
		})

		return c.JSON(summary)
	}
}
