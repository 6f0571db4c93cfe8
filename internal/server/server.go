package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/nfrund/profilesync/internal/appstore"
	"github.com/nfrund/profilesync/internal/handlers"
	"github.com/nfrund/profilesync/internal/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	shutdownTimeout = 10 * time.Second
	// profileWritesPerMinute caps profile submits per user.
	profileWritesPerMinute = 30
)

// Deps are the handlers and services the HTTP server routes to.
type Deps struct {
	JWTSecret    []byte
	MaxBodyBytes int64
	Profile      *handlers.ProfileHandler
	Outcomes     *handlers.OutcomeStream
	AppStore     *appstore.Handler
	Gatherer     prometheus.Gatherer
	// Health reports whether backing services are usable. Nil means always healthy.
	Health func(ctx context.Context) error
}

// Server is the HTTP entry point for both the profile surface and the
// application store backend.
type Server struct {
	E    *echo.Echo
	deps Deps
}

// New builds the echo instance and registers every route.
func New(deps Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handlers.NewValidator()

	e.Use(echomw.RequestID())
	e.Use(middleware.Logger)
	e.Use(echomw.Recover())
	if deps.MaxBodyBytes > 0 {
		// multipart overhead on top of the image itself
		e.Use(echomw.BodyLimitWithConfig(echomw.BodyLimitConfig{Limit: bodyLimit(deps.MaxBodyBytes)}))
	}
	setupErrorHandling(e)

	s := &Server{E: e, deps: deps}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	auth := middleware.JWTAuth(s.deps.JWTSecret)

	s.E.GET("/health", s.health)
	if s.deps.Gatherer != nil {
		s.E.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{})))
	}

	if s.deps.AppStore != nil {
		s.deps.AppStore.Register(s.E.Group("/api/users", auth))
	}

	profile := s.E.Group("/app/profile", auth)
	if s.deps.Profile != nil {
		s.deps.Profile.Register(profile, middleware.RateLimiter(profileWritesPerMinute))
	}
	if s.deps.Outcomes != nil {
		profile.GET("/outcomes", s.deps.Outcomes.ServeWS)
	}
}

func (s *Server) health(c echo.Context) error {
	if s.deps.Health != nil {
		if err := s.deps.Health(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, handlers.ErrorResponse{Code: "unhealthy", Message: err.Error()})
		}
	}
	return c.String(http.StatusOK, "OK")
}

// Start serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "event", "server_start", "addr", addr)
		if err := s.E.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down HTTP server", "event", "server_shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.E.Shutdown(shutdownCtx)
}

// setupErrorHandling logs unhandled errors with a stack trace before echo
// writes the response.
func setupErrorHandling(e *echo.Echo) {
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		var he *echo.HTTPError
		if !errors.As(err, &he) {
			middleware.FromContext(c.Request().Context()).Error("Internal Server Error (Unhandled)",
				"event", "http_unhandled_error",
				"method", c.Request().Method,
				"path", c.Path(),
				"error", err.Error(),
				"stack_trace", string(debug.Stack()),
			)
		}
		e.DefaultHTTPErrorHandler(err, c)
	}
}

func bodyLimit(maxImage int64) string {
	return strconv.FormatInt((maxImage+64<<10)>>10, 10) + "K"
}
