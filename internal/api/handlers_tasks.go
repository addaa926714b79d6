package api

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tarsy-labs/agentruntime/internal/types"
)

// StopTaskRequest is POST /api/tasks/{id}/stop's optional body.
type StopTaskRequest struct {
	Force bool `json:"force"`
}

// handleTaskStop halts a task with reason "user", per spec §6.
func (s *Server) handleTaskStop(c *gin.Context) {
	taskID := c.Param("id")

	var req StopTaskRequest
	if c.Request.ContentLength > 0 {
		if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	message := "stopped by user"
	if req.Force {
		message = "force-stopped by user"
	}
	if err := s.interrupts.Halt(c.Request.Context(), taskID, types.InterruptUser, message); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "halted", "taskId": taskID})
}

// handleTaskResume clears a task's halt.
func (s *Server) handleTaskResume(c *gin.Context) {
	taskID := c.Param("id")
	if err := s.interrupts.Resume(c.Request.Context(), taskID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "resumed", "taskId": taskID})
}
