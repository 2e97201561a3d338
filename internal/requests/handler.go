package requests

import (
	"errors"

	"romaneio-backend/internal/sheets"

	"github.com/gofiber/fiber/v2"
)

// GET /api/requests?open=true
func ListHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.QueryBool("open") {
			open, err := svc.Open(c.Context())
			if err != nil {
				return storeError(err)
			}
			return c.JSON(open)
		}

		all, err := svc.List(c.Context())
		if err != nil {
			return storeError(err)
		}
		return c.JSON(all)
	}
}

// GET /api/requests/summary
func SummaryHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		summary, err := svc.Summary(c.Context())
		if err != nil {
			return storeError(err)
		}
		return c.JSON(summary)
	}
}

func storeError(err error) error {
	if errors.Is(err, sheets.ErrStoreUnreachable) {
		return fiber.NewError(fiber.StatusServiceUnavailable, "Tabular store is unreachable, try again shortly")
	}
	return fiber.NewError(fiber.StatusInternalServerError, "Requests could not be loaded")
}
