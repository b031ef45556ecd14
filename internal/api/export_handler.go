package api

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/pagelens/pagelens/internal/ocr"
)

// exportRequest is a serialized benchmark session posted back for export. The
// engine does not persist sessions; the caller holds the outcome set and the
// export endpoint is a pure transformation over it.
type exportRequest struct {
	Format      string        `json:"format"`
	SessionID   string        `json:"sessionId"`
	CompletedAt int64         `json:"completedAt"`
	Outcomes    []ocr.Outcome `json:"outcomes"`
}

// ExportHandler serializes benchmark outcome sets as downloadable JSON or CSV.
type ExportHandler struct{}

// NewExportHandler creates the export handler.
func NewExportHandler() *ExportHandler {
	return &ExportHandler{}
}

// Export renders a posted outcome set in the requested format
// POST /api/v1/export
func (h *ExportHandler) Export(c *fiber.Ctx) error {
	var req exportRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "invalid export request body",
		})
	}
	if len(req.Outcomes) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "outcomes are required",
		})
	}

	sess := ocr.RestoreSession(req.SessionID, req.Outcomes, req.CompletedAt)
	stamp := time.Now().UTC().Format("2006-01-02T15-04-05")

	switch req.Format {
	case "", "json":
		out, err := ocr.ExportJSON(sess)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="ocr-benchmark-%s.json"`, stamp))
		return c.SendString(out)
	case "csv":
		out, err := ocr.ExportCSV(sess)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		c.Set(fiber.HeaderContentType, "text/csv")
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="ocr-benchmark-%s.csv"`, stamp))
		return c.SendString(out)
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   fmt.Sprintf("unsupported export format %q", req.Format),
		})
	}
}
