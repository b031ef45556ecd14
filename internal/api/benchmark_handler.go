package api

import (
	"bufio"
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"

	"github.com/pagelens/pagelens/internal/document"
	"github.com/pagelens/pagelens/internal/observability"
	"github.com/pagelens/pagelens/internal/ocr"
)

// BenchmarkHandler serves the mediated-class benchmark: one upload, several
// providers, results streamed back incrementally as newline-delimited JSON.
type BenchmarkHandler struct {
	normalizer  *document.Normalizer
	orch        *ocr.Orchestrator
	maxDocBytes int64
	metrics     *observability.Metrics
}

// NewBenchmarkHandler creates the benchmark stream handler.
func NewBenchmarkHandler(normalizer *document.Normalizer, orch *ocr.Orchestrator, maxDocBytes int64, metrics *observability.Metrics) *BenchmarkHandler {
	return &BenchmarkHandler{
		normalizer:  normalizer,
		orch:        orch,
		maxDocBytes: maxDocBytes,
		metrics:     metrics,
	}
}

// RunBenchmark handles a multi-provider benchmark run
// POST /api/v1/benchmark
//
// Multipart form: "file" is the document, "providers" a comma-separated list
// of provider ids. The response body is an NDJSON stream of outcome frames
// followed by a {"done":true} sentinel.
func (h *BenchmarkHandler) RunBenchmark(c *fiber.Ctx) error {
	providersField := c.FormValue("providers")
	if providersField == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "providers is required",
		})
	}

	var providerIDs []string
	for _, id := range strings.Split(providersField, ",") {
		if id = strings.TrimSpace(id); id != "" {
			providerIDs = append(providerIDs, id)
		}
	}

	pages, err := readDocument(c, h.normalizer, h.maxDocBytes, h.metrics)
	if err != nil {
		return writeOCRError(c, err)
	}

	// The orchestration must outlive this handler: the stream writer below
	// runs after RunBenchmark returns. Patches are buffered, so the run also
	// finishes if the client goes away mid-stream.
	sess, updates, err := h.orch.Run(context.Background(), providerIDs, pages)
	if err != nil {
		return writeOCRError(c, err)
	}

	c.Set(fiber.HeaderContentType, "application/x-ndjson")
	c.Set(fiber.HeaderCacheControl, "no-cache")

	start := time.Now()
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		sw := ocr.NewStreamWriter(w, w.Flush)

		for p := range updates {
			o, err := sess.Outcome(p.ProviderID)
			if err != nil {
				continue
			}
			if err := sw.WriteOutcome(o); err != nil {
				log.Debug().Err(err).Str("session", sess.ID).Msg("Benchmark stream consumer gone")
				// keep draining so the orchestration can finish
				for range updates {
				}
				break
			}
		}

		if err := sw.WriteDone(); err != nil {
			log.Debug().Err(err).Str("session", sess.ID).Msg("Could not deliver stream sentinel")
		}

		h.metrics.RecordBenchmarkSession(len(providerIDs), !sess.Complete())
		log.Info().
			Str("session", sess.ID).
			Dur("elapsed", time.Since(start)).
			Bool("complete", sess.Complete()).
			Msg("Benchmark stream closed")
	}))

	return nil
}
