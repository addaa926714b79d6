package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/tarsy-labs/agentruntime/internal/orchestrator"
	"github.com/tarsy-labs/agentruntime/internal/types"
)

// upgrader allows any origin, matching pkg/api/websocket.go's PoC-stage
// CheckOrigin policy; SPEC_FULL.md's auth story is out of scope for this
// transport layer.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// clientMessage is one inbound WebSocket frame, covering both message
// shapes spec §6 names: {type:"task", payload:{task, agent?}} and
// {type:"approve"|"decline", taskId}.
type clientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	TaskID  string          `json:"taskId,omitempty"`
}

// taskPayload is the wire shape for a task submission's single root task.
type taskPayload struct {
	Task struct {
		SpecText           string   `json:"specText"`
		AcceptanceCriteria []string `json:"acceptanceCriteria"`
		EstimatedTokens    int      `json:"estimatedTokens"`
		EstimatedDollars   float64  `json:"estimatedDollars"`
	} `json:"task"`
	Agent     string `json:"agent"`
	CompanyID string `json:"companyId"`
}

// Hub manages live WebSocket connections: task submission, approve/decline
// actions, and forwarding each submitted task's Event stream back to its
// originating connection. Grounded on pkg/api/websocket.go's WSHub
// (register/unregister/broadcast channel idiom), generalized from a global
// broadcast hub to one that also subscribes per-connection to per-task
// event streams via internal/events.Listener.Subscribe.
type Hub struct {
	server *Server
	log    *slog.Logger

	mu    sync.Mutex
	conns map[*wsConn]struct{}
}

// wsConn is one live connection plus its write lock (gorilla/websocket
// connections are not safe for concurrent writers) and the cancel funcs for
// every task event stream currently being forwarded to it.
type wsConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	subsMu sync.Mutex
	subs   map[string]func()
}

func newHub(s *Server) *Hub {
	return &Hub{server: s, log: slog.With("component", "ws_hub"), conns: map[*wsConn]struct{}{}}
}

// run periodically pings every live connection, pruning ones that no longer
// answer — the same keepalive role pkg/api/websocket.go's read loop plays
// implicitly via ReadJSON errors, made explicit here since this hub has no
// dedicated broadcast goroutine to piggyback the check on.
func (h *Hub) run() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		h.mu.Lock()
		conns := make([]*wsConn, 0, len(h.conns))
		for c := range h.conns {
			conns = append(conns, c)
		}
		h.mu.Unlock()

		for _, c := range conns {
			if err := c.writeJSON(gin.H{"type": "ping"}); err != nil {
				h.remove(c)
			}
		}
	}
}

func (h *Hub) add(c *wsConn) {
	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) remove(c *wsConn) {
	h.mu.Lock()
	delete(h.conns, c)
	h.mu.Unlock()

	c.subsMu.Lock()
	for _, cancel := range c.subs {
		cancel()
	}
	c.subsMu.Unlock()

	c.conn.Close()
}

func (c *wsConn) writeJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(v)
}

func (h *Hub) handleWS(c *gin.Context) {
	raw, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	conn := &wsConn{conn: raw, subs: map[string]func(){}}
	h.add(conn)
	defer h.remove(conn)

	for {
		var msg clientMessage
		if err := raw.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Warn("websocket read error", "error", err)
			}
			return
		}
		h.dispatch(c, conn, msg)
	}
}

func (h *Hub) dispatch(c *gin.Context, conn *wsConn, msg clientMessage) {
	switch msg.Type {
	case "task":
		h.handleTaskSubmit(c, conn, msg.Payload)
	case "approve":
		h.handleApproval(c, msg.TaskID, true)
	case "decline":
		h.handleApproval(c, msg.TaskID, false)
	default:
		conn.writeJSON(gin.H{"type": "error", "message": "unknown message type: " + msg.Type})
	}
}

func (h *Hub) handleTaskSubmit(c *gin.Context, conn *wsConn, payload json.RawMessage) {
	var p taskPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		conn.writeJSON(gin.H{"type": "error", "message": "invalid task payload: " + err.Error()})
		return
	}

	spec := orchestrator.TaskSpec{
		Key: uuid.NewString(),
		Definition: types.TaskDefinition{
			SpecText:           p.Task.SpecText,
			AcceptanceCriteria: p.Task.AcceptanceCriteria,
			EstimatedTokens:    p.Task.EstimatedTokens,
			EstimatedDollars:   p.Task.EstimatedDollars,
		},
	}

	dagID, err := h.server.orchestrator.Submit(c.Request.Context(), []orchestrator.TaskSpec{spec}, p.Agent, p.CompanyID)
	if err != nil {
		conn.writeJSON(gin.H{"type": "error", "message": err.Error()})
		return
	}

	dag, ok := h.server.orchestrator.DAG(dagID)
	if !ok || len(dag.Roots) == 0 {
		conn.writeJSON(gin.H{"type": "error", "message": "submitted task produced no root node"})
		return
	}
	taskID := dag.Roots[0]
	conn.writeJSON(gin.H{"type": "submitted", "taskId": taskID})

	h.forwardEvents(conn, taskID)
}

// forwardEvents subscribes to taskID's event stream and relays every Event
// to conn as JSON until the subscription is cancelled or conn is removed.
func (h *Hub) forwardEvents(conn *wsConn, taskID string) {
	if h.server.listener == nil {
		return
	}

	ch, cancel, err := h.server.listener.Subscribe(context.Background(), taskID)
	if err != nil {
		h.log.Error("failed to subscribe to task events", "task_id", taskID, "error", err)
		return
	}

	conn.subsMu.Lock()
	conn.subs[taskID] = cancel
	conn.subsMu.Unlock()

	go func() {
		defer cancel()
		for ev := range ch {
			if err := conn.writeJSON(ev); err != nil {
				return
			}
			if ev.Kind == types.EventDone || ev.Kind == types.EventError {
				return
			}
		}
	}()
}

func (h *Hub) handleApproval(c *gin.Context, taskID string, approve bool) {
	if taskID == "" {
		return
	}
	req, err := h.server.approvalRows.FindPendingByTask(c.Request.Context(), taskID)
	if err != nil {
		h.log.Warn("approve/decline for task with no pending approval", "task_id", taskID, "error", err)
		return
	}
	if _, err := h.server.approvals.Resolve(c.Request.Context(), req.ID, "ws_client", approve, "resolved via websocket", ""); err != nil {
		h.log.Error("failed to resolve approval", "request_id", req.ID, "error", err)
	}
}
