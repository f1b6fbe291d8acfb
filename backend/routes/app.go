package routes

import (
	"cognitory/backend/middleware"
	"cognitory/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// BodyLimit caps request bodies, uploads included.
const BodyLimit = 20 * 1024 * 1024

// NewApp builds the Fiber app with the middleware stack and every route.
// reg receives the HTTP metrics; it is also what /metrics exposes.
func NewApp(deps Deps, logger zerolog.Logger, reg *prometheus.Registry) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "cognitory",
		ErrorHandler: utils.ErrorHandler,
		BodyLimit:    BodyLimit,
	})

	// Middleware
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PATCH,DELETE,OPTIONS",
	}))
	app.Use(middleware.LoggingMiddleware(logger))
	if reg != nil {
		app.Use(middleware.NewMetrics(reg).Handler())
		deps.Gatherer = reg
	}

	SetupRoutes(app, deps)

	// anything left is an unknown route
	app.Use(func(c *fiber.Ctx) error {
		return utils.Error(c, fiber.StatusNotFound, "Route not found")
	})

	return app
}
