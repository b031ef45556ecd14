package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/pagelens/pagelens/internal/ocr"
)

// ProviderHandler serves the static provider catalog and the availability probe.
type ProviderHandler struct {
	registry *ocr.Registry
}

// NewProviderHandler creates the provider catalog handler.
func NewProviderHandler(registry *ocr.Registry) *ProviderHandler {
	return &ProviderHandler{registry: registry}
}

// ListProviders returns the provider catalog
// GET /api/v1/providers
func (h *ProviderHandler) ListProviders(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"providers": h.registry.List(),
	})
}

// CheckAvailability runs a live credential probe against every
// credential-gated provider
// GET /api/v1/providers/availability
func (h *ProviderHandler) CheckAvailability(c *fiber.Ctx) error {
	probeCtx, cancel := context.WithTimeout(c.Context(), 15*time.Second)
	defer cancel()

	return c.JSON(fiber.Map{
		"availability": ocr.Probe(probeCtx, h.registry),
	})
}
