// Package api implements the runtime's HTTP/WebSocket ingress (spec §6):
// health/status/admin endpoints, task halt/resume, memory and skills
// listing, a log tail/stream, and the WebSocket task-submission and
// approval channel. Grounded on tarsy's gin-based pkg/api/handlers.go +
// cmd/tarsy/main.go wiring (gin is the HTTP framework go.mod actually
// declares; the alternate echo-v5 server.go also present in the teacher's
// tree is not carried forward).
package api

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tarsy-labs/agentruntime/internal/approval"
	"github.com/tarsy-labs/agentruntime/internal/budget"
	"github.com/tarsy-labs/agentruntime/internal/events"
	"github.com/tarsy-labs/agentruntime/internal/interrupt"
	"github.com/tarsy-labs/agentruntime/internal/orchestrator"
)

// Server is the HTTP/WebSocket API server.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server

	orchestrator *orchestrator.Orchestrator
	interrupts   *interrupt.Store
	approvals    *approval.Gate
	approvalRows approval.Store
	listener     *events.Listener
	budget       *budget.Engine

	hub *Hub

	memory MemoryStore
	skills SkillRegistry
	logs   *LogBuffer

	startedAt time.Time
	model     string
	stopping  bool
	log       *slog.Logger
}

// Deps bundles the already-constructed subsystems NewServer wires into routes.
type Deps struct {
	Orchestrator *orchestrator.Orchestrator
	Interrupts   *interrupt.Store
	Approvals    *approval.Gate
	ApprovalRows approval.Store
	Listener     *events.Listener
	Budget       *budget.Engine
	Model        string
}

// NewServer builds a Server and registers all routes. The middleware stack
// is gin.Recovery() (gin.Logger() is not installed), requestLogger, which
// adds a per-request slog line with a generated request id, and
// securityHeaders, generalizing pkg/api/middleware.go's security-header
// idiom to gin.
func NewServer(d Deps) *Server {
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(), securityHeaders())

	s := &Server{
		engine:       engine,
		orchestrator: d.Orchestrator,
		interrupts:   d.Interrupts,
		approvals:    d.Approvals,
		approvalRows: d.ApprovalRows,
		listener:     d.Listener,
		budget:       d.Budget,
		memory:       NewMemoryMemoryStore(),
		skills:       NewMemorySkillRegistry(),
		logs:         NewLogBuffer(1000),
		startedAt:    time.Now(),
		model:        d.Model,
		log:          slog.With("component", "api"),
	}
	s.hub = newHub(s)
	go s.hub.run()

	s.setupRoutes()
	return s
}

// LogHandler returns an slog.Handler that tees every record into the
// in-memory ring buffer served by GET /api/logs and /api/logs/stream,
// alongside whatever handler boot wraps it with (e.g. a JSON stdout handler).
func (s *Server) LogHandler(next slog.Handler) slog.Handler {
	return newTeeHandler(next, s.logs)
}

func (s *Server) setupRoutes() {
	s.engine.GET("/health", s.handleHealth)

	api := s.engine.Group("/api")
	api.GET("/status", s.handleStatus)
	api.POST("/stop", s.handleStop)

	api.POST("/tasks/:id/stop", s.handleTaskStop)
	api.POST("/tasks/:id/resume", s.handleTaskResume)

	api.GET("/memory", s.handleMemoryList)
	api.GET("/memory/:id", s.handleMemoryGet)
	api.DELETE("/memory/:id", s.handleMemoryDelete)

	api.GET("/skills", s.handleSkillsList)
	api.POST("/skills/install", s.handleSkillInstall)
	api.POST("/skills/:name/enable", s.handleSkillEnable)
	api.POST("/skills/:name/disable", s.handleSkillDisable)
	api.DELETE("/skills/:name", s.handleSkillDelete)

	api.GET("/logs", s.handleLogsList)
	api.GET("/logs/stream", s.handleLogsStream)

	s.engine.GET("/ws", s.hub.handleWS)
}

// Start starts the HTTP server on addr (blocking).
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.engine}
	return s.httpServer.ListenAndServe()
}

// StartWithListener starts the HTTP server on a pre-created listener,
// mirroring the teacher's test-infrastructure idiom for random-port testing.
func (s *Server) StartWithListener(ln net.Listener) error {
	s.httpServer = &http.Server{Handler: s.engine}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
