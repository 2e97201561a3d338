package admin

import (
	"romaneio-backend/internal/cache"

	"github.com/gofiber/fiber/v2"
)

type InvalidateRequest struct {
	// Optional source prefix: "requests", "runs" or "items". Empty drops
	// everything.
	Source string `json:"source"`
}

// POST /api/cache/invalidate
// The escape hatch for when someone edits the spreadsheet by hand and the
// screens keep serving the cached view.
func InvalidateCacheHandler(c *cache.Cache) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		var body InvalidateRequest
		// An empty body is a full flush.
		_ = ctx.BodyParser(&body)

		switch body.Source {
		case "":
			c.InvalidateAll()
		case "requests", "runs", "items":
			c.InvalidateByPrefix(body.Source)
		default:
			return fiber.NewError(fiber.StatusBadRequest, "Unknown cache source")
		}

		return ctx.JSON(fiber.Map{
			"invalidated": body.Source,
			"remaining":   c.Len(),
		})
	}
}
