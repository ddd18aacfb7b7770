package api

import (
	"strings"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/acquisitions/acquisitions-api/internal/api/handler"
	"github.com/acquisitions/acquisitions-api/internal/api/middleware"
	"github.com/acquisitions/acquisitions-api/internal/api/session"
	"github.com/acquisitions/acquisitions-api/internal/core/domain"
	"github.com/acquisitions/acquisitions-api/internal/core/ports"
)

// Dependencies are the collaborators the router wires into handlers and
// middleware.
type Dependencies struct {
	Log zerolog.Logger

	AuthService ports.AuthService
	UserService ports.UserService
	Codec       ports.CredentialCodec
	Carrier     *session.Carrier

	Admission       ports.AdmissionEngine
	AdmissionDryRun bool
	// PreAuthenticate resolves an optional actor before admission control.
	PreAuthenticate bool
	Audit           middleware.AuditSubmitter

	// TrustProxy takes the client IP from X-Forwarded-For.
	TrustProxy bool
	Readiness  map[string]handler.Check

	// Registerer and Gatherer default to the Prometheus default registry.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer

	Swagger bool
	Started time.Time
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)
	if d.TrustProxy {
		e.IPExtractor = echo.ExtractIPFromXFFHeader()
	} else {
		e.IPExtractor = echo.ExtractIPDirect()
	}

	if d.Registerer == nil {
		d.Registerer = prometheus.DefaultRegisterer
	}
	if d.Gatherer == nil {
		d.Gatherer = prometheus.DefaultGatherer
	}
	if d.Started.IsZero() {
		d.Started = time.Now()
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(d.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "acquisitions",
		Registerer: d.Registerer,
		Skipper:    skipOps,
	}))
	e.Use(echomiddleware.BodyLimit("1M"))

	// --- Operational routes (outside admission control) ---
	health := handler.NewHealthHandler(d.Started)
	e.GET("/health", health.Liveness)
	e.GET("/health/ready", handler.NewReadinessHandler(d.Readiness).Readiness)
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: d.Gatherer}))
	if d.Swagger {
		e.GET("/swagger/*", echoSwagger.WrapHandler)
	}

	// --- API pipeline: admission → authentication → authorization → handler ---
	authenticate := middleware.Authenticate(d.Codec, d.Carrier, middleware.Required)
	adminOnly := middleware.RequireRole(domain.RoleAdmin)

	apiMiddleware := []echo.MiddlewareFunc{}
	if d.PreAuthenticate {
		apiMiddleware = append(apiMiddleware, middleware.Authenticate(d.Codec, d.Carrier, middleware.Optional))
	}
	apiMiddleware = append(apiMiddleware, middleware.Admission(d.Admission, middleware.AdmissionOptions{
		DryRun: d.AdmissionDryRun,
		Audit:  d.Audit,
		Log:    d.Log,
	}))
	g := e.Group("/api", apiMiddleware...)

	g.GET("", health.Root)

	authHandler := handler.NewAuthHandler(d.AuthService, d.Carrier)
	g.POST("/auth/sign-up", authHandler.SignUp)
	g.POST("/auth/sign-in", authHandler.SignIn)
	g.POST("/auth/sign-out", authHandler.SignOut)

	userHandler := handler.NewUserHandler(d.UserService)
	users := g.Group("/users", authenticate)
	users.GET("", userHandler.List, adminOnly)
	users.GET("/:id", userHandler.Get)
	users.PUT("/:id", userHandler.Update)
	users.DELETE("/:id", userHandler.Delete, adminOnly)

	return e
}

func skipOps(c echo.Context) bool {
	p := c.Request().URL.Path
	return p == "/metrics" || strings.HasPrefix(p, "/health") || strings.HasPrefix(p, "/swagger")
}
