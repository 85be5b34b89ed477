package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/agency-dashboard/internal/api/http/handlers"
	"github.com/spec-kit/agency-dashboard/internal/auth"
	"github.com/spec-kit/agency-dashboard/internal/events"
	"github.com/spec-kit/agency-dashboard/internal/observability"
	"github.com/spec-kit/agency-dashboard/internal/service"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Employees      *handlers.EmployeesHandler
	Clients        *handlers.ClientsHandler
	Tasks          *handlers.TasksHandler
	Dashboard      *handlers.DashboardHandler
	Changes        *handlers.ChangesHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Metrics.Registry, promhttp.HandlerOpts{})))
	}

	api := app.Group("/api")
	api.Post("/auth/sign-in", cfg.Auth.SignIn)

	protected := api.Group("", cfg.AuthMiddleware.Handle, withActor)
	protected.Post("/auth/password", cfg.Auth.ChangePassword)

	admin := auth.RequireAdmin()
	employees := protected.Group("/employees")
	employees.Get("/", cfg.Employees.List)
	employees.Post("/", admin, cfg.Employees.Create)
	employees.Get("/:id", cfg.Employees.Get)
	employees.Put("/:id", admin, cfg.Employees.Update)
	employees.Delete("/:id", admin, cfg.Employees.Delete)

	clients := protected.Group("/clients")
	clients.Get("/", cfg.Clients.List)
	clients.Post("/", admin, cfg.Clients.Create)
	clients.Get("/next-id", cfg.Clients.NextID)
	clients.Get("/:id", cfg.Clients.Get)
	clients.Put("/:id", admin, cfg.Clients.Update)
	clients.Delete("/:id", admin, cfg.Clients.Delete)
	clients.Post("/:id/workflow/:event", cfg.Clients.Transition)
	clients.Post("/:id/tasks", cfg.Clients.AssignTask)

	tasks := protected.Group("/tasks")
	tasks.Get("/", cfg.Tasks.List)
	tasks.Post("/", cfg.Tasks.Create)
	tasks.Get("/:id", cfg.Tasks.Get)
	tasks.Put("/:id", cfg.Tasks.Update)
	tasks.Patch("/:id/status", cfg.Tasks.UpdateStatus)
	tasks.Delete("/:id", cfg.Tasks.Delete)

	protected.Get("/dashboard/overview", cfg.Dashboard.Overview)
	protected.Get("/reports/:kind", cfg.Dashboard.Report)

	if cfg.Changes != nil {
		app.Get("/ws/changes", cfg.AuthMiddleware.Handle, cfg.Changes.Upgrade, cfg.Changes.Stream())
	}
}

// withActor records the signed-in operator on the request context so
// services can attribute events and cleanup flags.
func withActor(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if ok && principal.Employee != nil {
		c.SetUserContext(service.WithActor(c.UserContext(), events.Actor{
			EmployeeID: principal.Employee.ID,
			Role:       principal.Role,
		}))
	}
	return c.Next()
}
