package document

import "github.com/gofiber/fiber/v2"

// GET /api/print-runs/:id/document
// Returns generation status; add ?download=true to stream the file once done.
func StatusHandler(tracker *Tracker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		runID := c.Params("id")

		status, ok := tracker.Get(runID)
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "No document task for this print run")
		}

		if c.QueryBool("download") {
			if status.State != StateDone {
				return fiber.NewError(fiber.StatusConflict, "Document is not ready yet")
			}
			return c.Download(status.File)
		}

		return c.JSON(status)
	}
}
