package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthResponse is GET /health's body.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// UsageSummary is the token/cost rollup embedded in StatusResponse.
type UsageSummary struct {
	Tokens int     `json:"tokens"`
	Cost   float64 `json:"cost"`
}

// StatusResponse is GET /api/status's body, exactly per spec §6.
type StatusResponse struct {
	Running      bool         `json:"running"`
	Model        string       `json:"model"`
	UptimeS      float64      `json:"uptime"`
	ActiveTasks  []string     `json:"activeTasks"`
	HaltedTasks  []string     `json:"haltedTasks"`
	Usage        UsageSummary `json:"usage"`
}

func (s *Server) handleStatus(c *gin.Context) {
	halted, err := s.interrupts.ListHalted(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	tokens, cost := s.budget.TotalUsage()

	c.JSON(http.StatusOK, StatusResponse{
		Running:     !s.stopping,
		Model:       s.model,
		UptimeS:     time.Since(s.startedAt).Seconds(),
		ActiveTasks: s.orchestrator.ActiveTaskIDs(),
		HaltedTasks: halted,
		Usage:       UsageSummary{Tokens: tokens, Cost: cost},
	})
}

// handleStop acknowledges a graceful-shutdown request and schedules it.
// Mirrors spec §6's "acknowledgement; schedules graceful shutdown" — the
// actual Orchestrator.Stop() is invoked on a short delay so the HTTP
// response for this very request has a chance to flush first.
func (s *Server) handleStop(c *gin.Context) {
	s.stopping = true
	c.JSON(http.StatusAccepted, gin.H{"status": "stopping"})
	go func() {
		time.Sleep(200 * time.Millisecond)
		s.orchestrator.Stop()
	}()
}
