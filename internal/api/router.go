package api

import (
	"strings"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	_ "github.com/habittracker/habit-api/docs"
	"github.com/habittracker/habit-api/internal/api/handler"
	"github.com/habittracker/habit-api/internal/api/middleware"
	"github.com/habittracker/habit-api/internal/audit"
	"github.com/habittracker/habit-api/internal/core/service"
	"github.com/habittracker/habit-api/internal/infrastructure/config"
	mongodb "github.com/habittracker/habit-api/internal/infrastructure/db/mongo"
	redisdb "github.com/habittracker/habit-api/internal/infrastructure/db/redis"
	"github.com/habittracker/habit-api/internal/ratelimit"
)

// maxBodySize bounds request bodies; larger payloads are rejected with 413.
const maxBodySize = "1M"

// Deps carries everything the router needs to assemble the API.
type Deps struct {
	Config        *config.Config
	DB            *mongo.Database
	Redis         *redis.Client
	Recorder      audit.Recorder
	GlobalLimiter *ratelimit.Limiter
	AuthLimiter   *ratelimit.Limiter
	Log           zerolog.Logger
}

// NewRouter builds and returns the Echo instance with the full middleware
// pipeline and all routes registered. Order matters here: correlation ids
// are assigned before anything can fail, security headers apply to every
// outcome, and rate limiting runs before authentication so rejected
// requests stay cheap.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(middleware.Correlation())
	e.Use(middleware.SecurityHeaders())
	e.Use(echomiddleware.Recover())
	e.Use(requestLogger(d.Log))
	e.Use(echomiddleware.BodyLimit(maxBodySize))
	e.Use(echoprometheus.NewMiddleware("habits"))
	e.Use(middleware.RateLimit(middleware.RateLimitConfig{
		Limiter:  d.GlobalLimiter,
		Name:     "global",
		Recorder: d.Recorder,
		Skipper:  infraSkipper,
	}))

	// --- Dependencies ---
	userRepo := mongodb.NewUserRepository(d.DB)
	habitRepo := mongodb.NewHabitRepository(d.DB)
	trackingRepo := mongodb.NewTrackingRepository(d.DB)
	marker := redisdb.NewTrackedMarker(d.Redis)

	authService := service.NewAuthService(userRepo, d.Recorder, d.Config.JWTSecret, d.Config.TokenTTL, d.Log)
	habitService := service.NewHabitService(habitRepo, trackingRepo, d.Recorder, d.Log)
	trackingService := service.NewTrackingService(habitRepo, trackingRepo, marker, d.Recorder, d.Log)

	authHandler := handler.NewAuthHandler(authService)
	habitHandler := handler.NewHabitHandler(habitService)
	trackingHandler := handler.NewTrackingHandler(trackingService)
	healthHandler := handler.NewHealthHandler(d.DB, d.Redis)

	// --- Infrastructure endpoints (no auth, no rate limit) ---
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthHandler.Readiness)
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- Credential endpoints: stricter bucket on top of the global one ---
	auth := e.Group("/auth", middleware.RateLimit(middleware.RateLimitConfig{
		Limiter:  d.AuthLimiter,
		Name:     "auth",
		Recorder: d.Recorder,
	}))
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	// --- Authenticated API ---
	v1 := e.Group("/v1", middleware.Auth(authService))
	v1.GET("/me", authHandler.Me)
	v1.POST("/habits", habitHandler.Create)
	v1.GET("/habits", habitHandler.List)
	v1.GET("/habits/:id", habitHandler.Get)
	v1.PUT("/habits/:id", habitHandler.Update)
	v1.DELETE("/habits/:id", habitHandler.Delete)
	v1.POST("/habits/:id/track", trackingHandler.Track)
	v1.GET("/habits/:id/stats", trackingHandler.Stats)

	return e
}

// infraSkipper exempts monitoring and documentation endpoints from rate
// limiting so probes cannot be starved by API traffic from the same host.
func infraSkipper(c echo.Context) bool {
	p := c.Request().URL.Path
	return p == "/health" || p == "/health/ready" || p == "/metrics" ||
		strings.HasPrefix(p, "/swagger")
}

// requestLogger emits one structured line per request through the
// application logger, correlation id included.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			log.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("correlation_id", audit.CorrelationID(c.Request().Context())).
				Msg("request")
			return nil
		},
	})
}
