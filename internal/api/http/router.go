package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/api/http/handlers"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/observability"
	"github.com/spec-kit/support-desk/internal/policy"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// Options tunes the HTTP stack. RateLimitMax bounds requests per client IP
// and RateLimitWindow on /api; zero disables limiting.
type Options struct {
	AppName         string
	Production      bool
	RequestTimeout  time.Duration
	RateLimitMax    int
	RateLimitWindow time.Duration
}

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Comments       *handlers.CommentsHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// NewApp builds the fiber application with middlewares and routes.
func NewApp(opts Options, logger *zap.Logger, routes RouteConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               opts.AppName,
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return writeError(c, err, logger, routes.Metrics, opts.Production)
		},
	})
	app.Use(requestid.New())
	RegisterMiddlewares(app, logger, routes.Metrics, opts)
	app.Use(helmet.New())
	RegisterRoutes(app, opts, routes)
	return app
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, opts Options, cfg RouteConfig) {
	app.Get("/", cfg.Health.Root)
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Metrics.Registry(), promhttp.HandlerOpts{})))
	}

	api := app.Group("/api")
	if opts.RateLimitMax > 0 {
		api.Use(limiter.New(limiter.Config{
			Max:        opts.RateLimitMax,
			Expiration: opts.RateLimitWindow,
			LimitReached: func(c *fiber.Ctx) error {
				return apperrors.NewRateLimited()
			},
		}))
	}

	authGroup := api.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/logout", cfg.AuthMiddleware.Handle, cfg.Auth.Logout)

	tickets := api.Group("/tickets", cfg.AuthMiddleware.Handle)
	tickets.Post("/", auth.Require(policy.CapTicketCreate), cfg.Tickets.CreateTicket)
	tickets.Get("/", auth.Require(policy.CapTicketRead), cfg.Tickets.ListTickets)
	tickets.Get("/:id", auth.Require(policy.CapTicketRead), cfg.Tickets.GetTicket)
	tickets.Patch("/:id/status", auth.Require(policy.CapTicketChangeStatus), cfg.Tickets.UpdateStatus)
	tickets.Patch("/:id/assign", auth.Require(policy.CapTicketAssign), cfg.Tickets.AssignTicket)
	tickets.Get("/:id/history", auth.Require(policy.CapTicketHistory), cfg.Tickets.ListHistory)
	tickets.Post("/:id/comments", auth.Require(policy.CapCommentCreate), cfg.Comments.AddComment)
	tickets.Get("/:id/comments", auth.Require(policy.CapCommentRead), cfg.Comments.ListComments)
}
