package handler

import (
	"time"

	"quiz-pilot/internal/config"
	"quiz-pilot/internal/middleware"
	"quiz-pilot/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
)

// NewApp creates the Fiber app with the shared middleware stack. Zero
// values in cfg fall back to the defaults.
func NewApp(cfg config.ServerConfig) *fiber.App {
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 20 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 20 * time.Second
	}
	if cfg.BodyLimit <= 0 {
		cfg.BodyLimit = 10 * 1024 * 1024
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  20 * time.Second,
		BodyLimit:    cfg.BodyLimit,
		ErrorHandler: middleware.ErrorHandler(),
	})

	app.Use(recover.New())
	app.Use(middleware.RequestLogger())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
		MaxAge:       300,
	}))
	return app
}

// RegisterRoutes mounts every endpoint on app.
func RegisterRoutes(app *fiber.App, runs *RunHandler, health *HealthHandler, authService service.AuthService) {
	validate := middleware.NewValidationMiddleware()
	protected := middleware.Protected(authService)

	app.Get("/health", health.Health)
	app.Get("/swagger/*", swagger.HandlerDefault)
	app.Post("/phase1", runs.Phase1)

	api := app.Group("/api")
	api.Post("/runs", runs.CreateRun)
	api.Get("/runs", protected, validate.ValidateListParams(), runs.ListRuns)
	api.Get("/runs/:id", protected, validate.ValidateRunID(), runs.GetRun)
	api.Post("/extract", protected, runs.Extract)
}
