package printrun

import (
	"errors"

	"romaneio-backend/internal/audit"
	"romaneio-backend/internal/auth"
	"romaneio-backend/internal/models"
	"romaneio-backend/internal/sheets"

	"github.com/gofiber/fiber/v2"
)

type CreateRunRequest struct {
	Items []Selection `json:"items"`
	Notes string      `json:"notes"`
}

type ConflictResponse struct {
	Error       string   `json:"error"`
	Reason      string   `json:"reason"`
	Conflicting []string `json:"conflicting"`
}

// POST /api/print-runs
func CreateHandler(mgr *Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateRunRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if len(body.Items) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Select at least one request")
		}
		for _, sel := range body.Items {
			if sel.Code == "" || sel.Requester == "" {
				return fiber.NewError(fiber.StatusBadRequest, "Every item needs code and requester")
			}
		}

		user := auth.UserName(c)
		run, err := mgr.Create(c.Context(), user, body.Items, body.Notes)
		if err != nil {
			var conflict *ConflictError
			switch {
			case errors.As(err, &conflict):
				return c.Status(fiber.StatusConflict).JSON(ConflictResponse{
					Error:       "selection conflicts with existing state",
					Reason:      conflict.Reason,
					Conflicting: conflict.Conflicting,
				})
			case errors.Is(err, sheets.ErrStoreUnreachable):
				return fiber.NewError(fiber.StatusServiceUnavailable, "Tabular store is unreachable, try again shortly")
			default:
				return fiber.NewError(fiber.StatusInternalServerError, "Print run could not be created")
			}
		}

		audit.Record(audit.Entry{
			UserName:    user,
			EntityType:  "print_run",
			EntityID:    run.ID,
			Action:      models.AuditActionCreate,
			Description: "print run created",
			Details:     body,
		})

		return c.Status(fiber.StatusCreated).JSON(run)
	}
}

// GET /api/print-runs and GET /api/print-runs/pending
func ListHandler(mgr *Manager, onlyPending bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		runs, err := mgr.List(c.Context(), onlyPending)
		if err != nil {
			return listError(err)
		}
		return c.JSON(runs)
	}
}

// GET /api/print-runs/:id
func GetHandler(mgr *Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		run, err := mgr.Get(c.Context(), c.Params("id"))
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Print run not found")
			}
			return listError(err)
		}
		return c.JSON(run)
	}
}

// GET /api/print-runs/:id/items
func ItemsHandler(mgr *Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		runID := c.Params("id")
		if _, err := mgr.Get(c.Context(), runID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Print run not found")
			}
			return listError(err)
		}
		items, err := mgr.Items(c.Context(), runID)
		if err != nil {
			return listError(err)
		}
		return c.JSON(items)
	}
}

func listError(err error) error {
	if errors.Is(err, sheets.ErrStoreUnreachable) {
		return fiber.NewError(fiber.StatusServiceUnavailable, "Tabular store is unreachable, try again shortly")
	}
	return fiber.NewError(fiber.StatusInternalServerError, "Print runs could not be loaded")
}
