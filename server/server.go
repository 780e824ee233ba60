package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/hrygo/secretary/internal/profile"
	apiv1 "github.com/hrygo/secretary/server/router/api/v1"
	"github.com/hrygo/secretary/server/service/assistant"
)

// Server serves the HTTP API on top of the assistant service.
type Server struct {
	Profile *profile.Profile

	echoServer *echo.Echo
	apiV1      *apiv1.APIV1Service
}

func NewServer(ctx context.Context, profile *profile.Profile, svc *assistant.Service) (*Server, error) {
	if svc == nil {
		return nil, errors.New("assistant service is required")
	}

	echoServer := echo.New()
	echoServer.HideBanner = true
	echoServer.HidePort = true
	echoServer.Use(middleware.Recover())
	echoServer.Use(middleware.RequestID())

	s := &Server{
		Profile:    profile,
		echoServer: echoServer,
		apiV1:      apiv1.NewAPIV1Service(profile, svc),
	}
	s.apiV1.RegisterRoutes(echoServer)

	slog.Debug("server created", "mode", profile.Mode, "ai_enabled", profile.IsAIEnabled())
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echoServer
}

// Start blocks serving on Addr:Port until Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	address := net.JoinHostPort(s.Profile.Addr, fmt.Sprint(s.Profile.Port))
	listener, err := (&net.ListenConfig{}).Listen(ctx, "tcp", address)
	if err != nil {
		return errors.Wrap(err, "failed to listen")
	}
	s.echoServer.Listener = listener

	slog.Info("secretary is up and running", "address", address)
	if err := s.echoServer.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "failed to start echo server")
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	slog.Info("server shutting down")
	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", slog.String("error", err.Error()))
	}
	slog.Info("server stopped properly")
}
