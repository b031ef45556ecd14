package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/zerolog/log"

	"github.com/pagelens/pagelens/internal/config"
	"github.com/pagelens/pagelens/internal/document"
	"github.com/pagelens/pagelens/internal/keystore"
	"github.com/pagelens/pagelens/internal/observability"
	"github.com/pagelens/pagelens/internal/ocr"
)

// Version is the build version reported by the server, overridden via
// ldflags at build time.
var Version = "dev"

// Server represents the HTTP server
type Server struct {
	app       *fiber.App
	config    *config.Config
	registry  *ocr.Registry
	metrics   *observability.Metrics
	startTime time.Time

	ocrHandler       *OCRHandler
	benchmarkHandler *BenchmarkHandler
	providerHandler  *ProviderHandler
	exportHandler    *ExportHandler
}

// NewServer creates a new HTTP server over the given provider registry.
//
// The server only ever runs on system-held credentials: user-supplied keys
// live on the caller's machine and never reach this process, so the resolver
// is backed by a null key store.
func NewServer(cfg *config.Config, registry *ocr.Registry) *Server {
	app := fiber.New(fiber.Config{
		ServerHeader:          "PageLens",
		AppName:               "PageLens " + Version,
		BodyLimit:             cfg.Server.BodyLimit,
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		IdleTimeout:           cfg.Server.IdleTimeout,
		DisableStartupMessage: !cfg.Debug,
		ErrorHandler:          customErrorHandler,
		Prefork:               false,
	})

	metrics := observability.NewMetrics()

	normalizer := document.NewNormalizer(document.NewFitzRasterizer(cfg.OCR.RasterDPI))
	runner := ocr.NewRunner(registry)
	resolver := ocr.NewResolver(registry, keystore.NullStore{})
	orchestrator := ocr.NewOrchestrator(registry, runner, resolver, ocr.NewInProcessDispatcher(runner), cfg.OCR.MaxBenchmark)

	server := &Server{
		app:              app,
		config:           cfg,
		registry:         registry,
		metrics:          metrics,
		startTime:        time.Now(),
		ocrHandler:       NewOCRHandler(normalizer, runner, cfg.OCR.MaxDocBytes, metrics),
		benchmarkHandler: NewBenchmarkHandler(normalizer, orchestrator, cfg.OCR.MaxDocBytes, metrics),
		providerHandler:  NewProviderHandler(registry),
		exportHandler:    NewExportHandler(),
	}

	server.setupMiddlewares()
	server.setupRoutes()

	return server
}

// setupMiddlewares sets up global middlewares
func (s *Server) setupMiddlewares() {
	s.app.Use(requestid.New())

	if s.config.Debug {
		s.app.Use(logger.New(logger.Config{
			Format: "[${time}] ${status} - ${latency} ${method} ${path} ${error}\n",
		}))
	}

	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: s.config.Debug,
	}))

	s.app.Use(cors.New())

	s.app.Use(s.metrics.MetricsMiddleware())

	// Compression must skip the benchmark stream: buffering would defeat
	// incremental delivery.
	s.app.Use(compress.New(compress.Config{
		Level: compress.LevelDefault,
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/api/v1/benchmark"
		},
	}))
}

// setupRoutes sets up all routes
func (s *Server) setupRoutes() {
	s.app.Get("/health", s.handleHealth)
	s.app.Get("/metrics", s.metrics.Handler())

	v1 := s.app.Group("/api/v1")

	v1.Get("/providers", s.providerHandler.ListProviders)
	v1.Get("/providers/availability", s.providerHandler.CheckAvailability)

	v1.Post("/ocr", s.ocrHandler.RunOCR)
	v1.Post("/benchmark", s.benchmarkHandler.RunBenchmark)
	v1.Post("/export", s.exportHandler.Export)
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	s.metrics.UpdateUptime(s.startTime)

	return c.JSON(fiber.Map{
		"status":    "ok",
		"providers": len(s.registry.IDs()),
		"timestamp": time.Now().UTC(),
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	return s.app.Listen(s.config.Server.Address)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down HTTP server")
	return s.app.ShutdownWithContext(ctx)
}

// App returns the underlying Fiber app instance for testing
func (s *Server) App() *fiber.App {
	return s.app
}

// customErrorHandler handles errors globally
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	if code >= 500 {
		log.Error().Err(err).Str("path", c.Path()).Msg("Server error")
	}

	return c.Status(code).JSON(fiber.Map{
		"error": message,
		"code":  code,
	})
}
