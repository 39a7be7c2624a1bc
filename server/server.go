package server

import (
	"context"
	"os"
	"strconv"

	"contactdesk/apperrors"
	"contactdesk/config"
	"contactdesk/db"
	"contactdesk/pkg/logger"
	"contactdesk/pkg/metrics"
	"contactdesk/server/handlers"
	"contactdesk/server/middleware/limiter"
	"contactdesk/server/middleware/security"
	"contactdesk/server/routes"
	"contactdesk/services/token"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

type Server struct {
	App    *fiber.App
	store  *db.Store
	tokens *token.Manager
	icons  *handlers.IconStore
	cfg    *config.Config
	log    *logger.Logger
}

func NewServer(cfg *config.Config, store *db.Store, tokens *token.Manager, appLogger *logger.Logger) (*Server, error) {
	icons, err := handlers.NewIconStore(cfg.Server.UploadsDir, cfg.Upload.MaxFileSize)
	if err != nil {
		return nil, err
	}

	errorConfig := apperrors.HandlerConfig{
		Logger:             appLogger,
		ShowInternalErrors: os.Getenv("APP_ENV") == "development",
		OnError: func(c *fiber.Ctx, err *apperrors.AppError) {
			metrics.RecordError(string(err.Code), strconv.Itoa(err.StatusCode))
		},
	}

	app := fiber.New(fiber.Config{
		AppName:      "ContactDesk",
		ServerHeader: "ContactDesk",
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		// The body limit sits above the icon ceiling so oversized uploads
		// reach the upload validator and get the file-too-large response
		// instead of Fiber's generic one.
		BodyLimit:    int(cfg.Upload.MaxFileSize) + 1024*1024,
		ErrorHandler: apperrors.Handler(errorConfig),
	})

	app.Use(recover.New())
	app.Use(security.New())
	app.Use(metrics.HTTPMetricsMiddleware())

	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} ${path}\n",
		Output: appLogger.OutputWriter,
	}))

	app.Use(limiter.New(limiter.Config{
		Capacity:     cfg.RateLimit.Capacity,
		RefillRate:   cfg.RateLimit.RefillRate,
		RefillPeriod: cfg.RateLimit.RefillPeriod,
		Next: func(c *fiber.Ctx) bool {
			// Scrapes and probes never count against a client budget.
			return c.Path() == "/metrics" || c.Path() == "/api/health"
		},
		LimitReachedHandler: func(c *fiber.Ctx) error {
			return apperrors.NewRateLimitError()
		},
	}))

	app.Static("/uploads", cfg.Server.UploadsDir)
	app.Static("/", cfg.Server.PublicDir)

	routes.Register(app, store, tokens, icons)

	return &Server{
		App:    app,
		store:  store,
		tokens: tokens,
		icons:  icons,
		cfg:    cfg,
		log:    appLogger,
	}, nil
}

func (s *Server) Start() error {
	addr := s.cfg.ServerAddress()
	s.log.Info("Starting server on %s", addr)
	return s.App.Listen(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down server...")
	return s.App.ShutdownWithContext(ctx)
}
