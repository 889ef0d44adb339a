package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/smartedu-app/smartedu-api/internal/config"
	"github.com/smartedu-app/smartedu-api/internal/gate"
	"github.com/smartedu-app/smartedu-api/internal/handler"
	"github.com/smartedu-app/smartedu-api/internal/middleware"
	"github.com/smartedu-app/smartedu-api/internal/models"
	"github.com/smartedu-app/smartedu-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	PromotionHandler    *handler.PromotionHandler
	AcademicHandler     *handler.AcademicHandler
	LessonHandler       *handler.LessonHandler
	GradingHandler      *handler.GradingHandler
	MessageHandler      *handler.MessageHandler
	NotificationHandler *handler.NotificationHandler
	BackupHandler       *handler.BackupHandler
	ActivityHandler     *handler.ActivityHandler
	JWTMiddleware       fiber.Handler
	PromotionGate       *gate.Gate
}

// Register wires the HTTP routes into the fiber application. The promotion
// endpoints live at /academic-years/promotions/* so the decision screen and
// the dashboard talk to the same prefix the gate allowlists.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	app.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	guard := func(c *fiber.Ctx) error { return c.Next() }
	if deps.PromotionGate != nil {
		guard = gate.Guard(deps.PromotionGate)
	}

	// Academic years and the promotion workflow
	if deps.AcademicHandler != nil {
		years := app.Group("/academic-years", jwtMiddleware, guard)
		deps.AcademicHandler.RegisterYears(years)

		if deps.PromotionHandler != nil {
			promotions := years.Group("/promotions")
			deps.PromotionHandler.Register(promotions)
		}

		structure := app.Group("/api/v1/academic", jwtMiddleware, guard)
		deps.AcademicHandler.Register(structure)
	}

	if deps.LessonHandler != nil {
		lessons := app.Group("/api/v1/lessons", jwtMiddleware, guard)
		deps.LessonHandler.Register(lessons)
	}

	if deps.GradingHandler != nil {
		submissions := app.Group("/api/v1/submissions", jwtMiddleware, guard)
		deps.GradingHandler.Register(submissions)
	}

	if deps.MessageHandler != nil {
		messages := app.Group("/api/v1/messages", jwtMiddleware, guard, middleware.RateLimit("messages", 60, time.Minute))
		deps.MessageHandler.Register(messages)
	}

	if deps.NotificationHandler != nil {
		notifications := app.Group("/api/v1/notifications", jwtMiddleware)
		deps.NotificationHandler.Register(notifications)
	}

	if deps.BackupHandler != nil {
		backups := app.Group("/api/v1/backups", jwtMiddleware, middleware.RequireRole(models.RoleDirector))
		deps.BackupHandler.Register(backups)
	}

	if deps.ActivityHandler != nil {
		activity := app.Group("/api/v1/activity", jwtMiddleware, middleware.RequireRole(models.RoleDirector, models.RoleSupervisor))
		deps.ActivityHandler.Register(activity)
	}
}
