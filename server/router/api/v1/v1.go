package v1

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/hrygo/secretary/internal/profile"
	apierrors "github.com/hrygo/secretary/server/internal/errors"
	"github.com/hrygo/secretary/server/internal/observability"
	authmw "github.com/hrygo/secretary/server/middleware"
	"github.com/hrygo/secretary/server/service/assistant"
)

const identityKey = "identity"

type APIV1Service struct {
	Profile   *profile.Profile
	Assistant *assistant.Service

	authenticator *authmw.Authenticator
	limiter       *authmw.RateLimiter
	metrics       *observability.Metrics
	startTime     time.Time
}

// NewAPIV1Service creates the JSON API. Header-based identity is accepted only outside
// prod mode when no JWT secret is configured.
func NewAPIV1Service(profile *profile.Profile, svc *assistant.Service) *APIV1Service {
	allowHeaders := profile.IsDev() && profile.Runtime.JWTSecret == ""
	return &APIV1Service{
		Profile:       profile,
		Assistant:     svc,
		authenticator: authmw.NewAuthenticator(profile.Runtime.JWTSecret, allowHeaders),
		limiter:       authmw.NewRateLimiter(profile.Runtime.RateLimit, profile.Runtime.RateBurst),
		metrics:       observability.NewMetrics(1000),
		startTime:     time.Now(),
	}
}

// RegisterRoutes registers the API routes with the given Echo instance.
func (s *APIV1Service) RegisterRoutes(echoServer *echo.Echo) {
	echoServer.GET("/healthz", s.GetHealth)

	api := echoServer.Group("/api/v1",
		middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOriginFunc: func(_ string) (bool, error) {
				return true, nil
			},
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders: []string{"*"},
		}),
		s.withRequestContext,
		s.authenticate,
		s.rateLimit,
	)
	api.POST("/messages", s.PostMessage)
	api.POST("/agent/messages", s.PostAgentMessage)
}

// withRequestContext attaches a request-scoped logger and records endpoint metrics.
func (s *APIV1Service) withRequestContext(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		requestID := req.Header.Get(echo.HeaderXRequestID)
		if requestID == "" {
			requestID = c.Response().Header().Get(echo.HeaderXRequestID)
		}
		rc := observability.NewRequestContext(slog.Default(), requestID, c.Path())
		c.Response().Header().Set(echo.HeaderXRequestID, rc.RequestID)
		c.SetRequest(req.WithContext(observability.WithRequestContext(req.Context(), rc)))

		err := next(c)
		status := c.Response().Status
		s.metrics.RecordRequest(rc.Endpoint, rc.Duration(), err != nil || status >= http.StatusInternalServerError)
		rc.Debug("request finished",
			slog.Int("status", status),
			slog.Int64(observability.LogFieldDuration, rc.DurationMs()),
		)
		return err
	}
}

func (s *APIV1Service) authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := s.authenticator.Authenticate(c.Request())
		if err != nil {
			if rc, ok := observability.FromContext(c.Request().Context()); ok {
				rc.Warn("authentication failed", slog.String("error", err.Error()))
			}
			return writeError(c, apierrors.Unauthorized("authentication required"))
		}
		if rc, ok := observability.FromContext(c.Request().Context()); ok {
			rc.TenantID, rc.UserID = id.TenantID, id.UserID
		}
		c.Set(identityKey, id)
		return next(c)
	}
}

func (s *APIV1Service) rateLimit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := identityFrom(c)
		if !s.limiter.Allow(id.TenantID) {
			return writeError(c, apierrors.RateLimitExceeded("too many requests"))
		}
		return next(c)
	}
}

func identityFrom(c echo.Context) authmw.Identity {
	id, _ := c.Get(identityKey).(authmw.Identity)
	return id
}

func writeError(c echo.Context, err *apierrors.APIError) error {
	if rc, ok := observability.FromContext(c.Request().Context()); ok && err.Cause != nil {
		rc.Error("request failed", err.Cause, slog.String(observability.LogFieldErrorCode, string(err.Code)))
	}
	return c.JSON(err.HTTPStatus(), err.Envelope())
}
