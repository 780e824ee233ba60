package v1

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/secretary/internal/version"
	"github.com/hrygo/secretary/plugin/ai/agent"
	"github.com/hrygo/secretary/server/internal/observability"
)

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status        string                         `json:"status"`
	Version       string                         `json:"version"`
	UptimeSeconds int64                          `json:"uptime_seconds"`
	SuccessRate   float64                        `json:"success_rate"`
	Requests      *observability.MetricsSnapshot `json:"requests"`
	Agents        agent.MetricsSnapshot          `json:"agents"`
}

// GetHealth reports liveness together with request and agent runtime counters.
// GET /healthz
func (s *APIV1Service) GetHealth(c echo.Context) error {
	snapshot := s.metrics.Snapshot()
	return c.JSON(http.StatusOK, HealthResponse{
		Status:        "ok",
		Version:       version.GetCurrentVersion(s.Profile.Mode),
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		SuccessRate:   snapshot.SuccessRate(),
		Requests:      snapshot,
		Agents:        s.Assistant.AgentMetrics(),
	})
}
