package api

import (
	"fmt"
	"net/http"
	"time"
)

// HealthStatus is the overall health state of the server.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusUnhealthy HealthStatus = "unhealthy"
)

// HealthResponse is the /health payload.
type HealthResponse struct {
	Status    HealthStatus `json:"status"`
	Timestamp string       `json:"timestamp"`
	StartedAt string       `json:"started_at"`
	Uptime    UptimeInfo   `json:"uptime"`
	Services  ServiceInfo  `json:"services"`
}

// UptimeInfo reports uptime in seconds and a human-readable form.
type UptimeInfo struct {
	Seconds int64  `json:"seconds"`
	Human   string `json:"human"`
}

// ServiceInfo reports per-service status.
type ServiceInfo struct {
	Sessions       string `json:"sessions"`
	ActiveSessions int    `json:"active_sessions"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	uptime := time.Since(s.startedAt)
	respondJSON(w, http.StatusOK, HealthResponse{
		Status:    StatusHealthy,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		StartedAt: s.startedAt.Format(time.RFC3339),
		Uptime: UptimeInfo{
			Seconds: int64(uptime.Seconds()),
			Human:   humanUptime(uptime),
		},
		Services: ServiceInfo{
			Sessions:       "up",
			ActiveSessions: s.store.Count(),
		},
	})
}

func humanUptime(d time.Duration) string {
	secs := int64(d.Seconds()) % 60
	minutes := int64(d.Minutes()) % 60
	hours := int64(d.Hours()) % 24
	days := int64(d.Hours()) / 24

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, secs)
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, secs)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, secs)
	default:
		return fmt.Sprintf("%ds", secs)
	}
}
