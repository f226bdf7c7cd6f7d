package httpserver

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	ecM "github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/optica/internal/logging"
	"github.com/Skotchmaster/optica/internal/metrics"
	authmw "github.com/Skotchmaster/optica/internal/middleware/auth"
	loggingmw "github.com/Skotchmaster/optica/internal/middleware/logging"
	"github.com/Skotchmaster/optica/internal/middleware/ratelimit"
)

type Options struct {
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
	CORSOrigins []string
}

// NewEcho builds the echo instance with the common middleware chain.
func NewEcho(opts Options) *echo.Echo {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()

	e.Use(ecM.Recover(), ecM.RequestID(), ecM.Secure())
	if len(opts.CORSOrigins) > 0 {
		e.Use(ecM.CORSWithConfig(ecM.CORSConfig{
			AllowOrigins: opts.CORSOrigins,
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		}))
	}
	if opts.Metrics != nil {
		e.Use(opts.Metrics.Middleware())
	}
	e.Use(loggingmw.RequestLogger(opts.Logger))
	return e
}

type Deps struct {
	Auth          *AuthHTTP
	Users         *UsersHTTP
	Clients       *ClientsHTTP
	Prescriptions *PrescriptionsHTTP
	WorkOrders    *WorkOrdersHTTP

	Tokens       authmw.TokenParser
	LoginLimiter *ratelimit.Limiter
	Metrics      *metrics.Metrics
	Ready        func(ctx context.Context) error
}

func Register(e *echo.Echo, d *Deps) {
	if e.Validator == nil {
		e.Validator = NewValidator()
	}

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			if err := d.Ready(c.Request().Context()); err != nil {
				logging.FromContext(c.Request().Context()).Warn("readiness_failed", "status", 503, "error", err)
				return echo.NewHTTPError(http.StatusServiceUnavailable, "not ready")
			}
		}
		return c.NoContent(http.StatusOK)
	})
	if d.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(d.Metrics.Handler()))
	}

	requireAuth := authmw.RequireAuth(d.Tokens)
	adminOnly := authmw.AdminOnly()

	var loginMw []echo.MiddlewareFunc
	if d.LoginLimiter != nil {
		loginMw = append(loginMw, d.LoginLimiter.Middleware())
	}

	auth := e.Group("/auth")
	auth.POST("/login", d.Auth.Login, loginMw...)
	auth.POST("/register", d.Auth.Register, requireAuth, adminOnly)
	auth.GET("/profile", d.Auth.Profile, requireAuth)
	auth.POST("/refresh", d.Auth.Refresh, requireAuth)
	auth.GET("/token-info", d.Auth.TokenInfo, requireAuth)

	users := e.Group("/users", requireAuth, adminOnly)
	users.GET("", d.Users.List)
	users.GET("/:id", d.Users.Get)
	users.PATCH("/:id", d.Users.Patch)

	clients := e.Group("/clients", requireAuth)
	clients.POST("", d.Clients.Create)
	clients.POST("/find-or-create", d.Clients.FindOrCreate)
	clients.GET("", d.Clients.List)
	clients.GET("/search", d.Clients.Search)
	clients.GET("/by-national-id/:national_id", d.Clients.GetByNationalID)
	clients.GET("/:id", d.Clients.Get)
	clients.PATCH("/:id", d.Clients.Patch, adminOnly)
	clients.DELETE("/:id", d.Clients.Delete, adminOnly)

	rx := e.Group("/prescriptions", requireAuth)
	rx.POST("", d.Prescriptions.Create)
	rx.GET("", d.Prescriptions.List)
	rx.GET("/search", d.Prescriptions.Search)
	rx.GET("/by-national-id", d.Prescriptions.ByNationalID)
	rx.GET("/latest-by-national-id", d.Prescriptions.Latest)
	rx.GET("/by-national-id-and-type", d.Prescriptions.ByNationalIDAndType)
	rx.GET("/latest-by-national-id-and-type", d.Prescriptions.LatestByType)
	rx.GET("/:id", d.Prescriptions.Get)
	rx.PATCH("/:id", d.Prescriptions.Patch, adminOnly)
	rx.DELETE("/:id", d.Prescriptions.Delete, adminOnly)

	wo := e.Group("/work-orders", requireAuth)
	wo.POST("", d.WorkOrders.Create)
	wo.GET("", d.WorkOrders.List)
	wo.GET("/by-national-id", d.WorkOrders.ByNationalID)
	wo.GET("/by-number/:order_number", d.WorkOrders.ByNumber)
	wo.GET("/:id", d.WorkOrders.Get)
	wo.PATCH("/:id", d.WorkOrders.Patch, adminOnly)
	wo.DELETE("/:id", d.WorkOrders.Delete, adminOnly)
}
