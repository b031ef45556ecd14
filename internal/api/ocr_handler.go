package api

import (
	"errors"
	"io"
	"mime"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/pagelens/pagelens/internal/document"
	"github.com/pagelens/pagelens/internal/observability"
	"github.com/pagelens/pagelens/internal/ocr"
)

// OCRHandler serves single-provider OCR runs.
type OCRHandler struct {
	normalizer  *document.Normalizer
	runner      *ocr.Runner
	maxDocBytes int64
	metrics     *observability.Metrics
}

// NewOCRHandler creates the single-run handler.
func NewOCRHandler(normalizer *document.Normalizer, runner *ocr.Runner, maxDocBytes int64, metrics *observability.Metrics) *OCRHandler {
	return &OCRHandler{
		normalizer:  normalizer,
		runner:      runner,
		maxDocBytes: maxDocBytes,
		metrics:     metrics,
	}
}

// RunOCR handles a single-provider OCR run
// POST /api/v1/ocr
//
// Multipart form: "file" is the document, "provider" the provider id.
func (h *OCRHandler) RunOCR(c *fiber.Ctx) error {
	providerID := c.FormValue("provider")
	if providerID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "provider is required",
		})
	}

	pages, err := readDocument(c, h.normalizer, h.maxDocBytes, h.metrics)
	if err != nil {
		return writeOCRError(c, err)
	}

	done := h.metrics.OCRRunStarted()
	defer done()

	start := time.Now()
	result, err := h.runner.Run(c.Context(), providerID, pages, ocr.Credential{Mode: ocr.SystemHeld})
	h.metrics.RecordOCRRun(providerID, time.Since(start), err)
	if err != nil {
		log.Warn().Err(err).Str("provider", providerID).Msg("OCR run failed")
		return writeOCRError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"result":  result,
	})
}

// readDocument extracts and normalizes the uploaded document from the
// multipart form.
func readDocument(c *fiber.Ctx, normalizer *document.Normalizer, maxDocBytes int64, metrics *observability.Metrics) ([]document.PageImage, error) {
	file, err := c.FormFile("file")
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "file is required")
	}

	if file.Size > maxDocBytes {
		return nil, document.ErrDocumentTooLarge
	}

	mediaType := file.Header.Get("Content-Type")
	if mediaType == "" {
		mediaType = mime.TypeByExtension(filepath.Ext(file.Filename))
	}
	if !document.IsSupportedMediaType(mediaType) {
		return nil, document.ErrUnsupportedMediaType
	}

	src, err := file.Open()
	if err != nil {
		return nil, fiber.NewError(fiber.StatusInternalServerError, "failed to open uploaded file")
	}
	defer func() { _ = src.Close() }()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusInternalServerError, "failed to read uploaded file")
	}

	start := time.Now()
	pages, err := normalizer.Normalize(c.Context(), document.Document{Data: data, MediaType: mediaType})
	metrics.RecordDocument(mediaType, len(pages), time.Since(start), err)
	if err != nil {
		return nil, err
	}

	log.Debug().Str("media_type", mediaType).Int("pages", len(pages)).Msg("Document normalized")
	return pages, nil
}

// writeOCRError maps domain errors onto HTTP statuses with the uniform
// {success, error} envelope.
func writeOCRError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError

	var fiberErr *fiber.Error
	var convErr *document.ConversionError
	var provErr *ocr.ProviderError

	switch {
	case errors.As(err, &fiberErr):
		status = fiberErr.Code
	case errors.Is(err, document.ErrDocumentTooLarge):
		status = fiber.StatusRequestEntityTooLarge
	case errors.Is(err, document.ErrUnsupportedMediaType):
		status = fiber.StatusUnsupportedMediaType
	case errors.As(err, &convErr):
		status = fiber.StatusUnprocessableEntity
	case errors.Is(err, ocr.ErrUnknownProvider):
		status = fiber.StatusNotFound
	case errors.Is(err, ocr.ErrTooManyProviders),
		errors.Is(err, ocr.ErrNoCredentialsAvailable),
		errors.Is(err, ocr.ErrMissingUserCredential):
		status = fiber.StatusBadRequest
	case errors.As(err, &provErr):
		status = fiber.StatusBadGateway
	}

	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   err.Error(),
	})
}
