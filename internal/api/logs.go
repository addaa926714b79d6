package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// LogLine is one entry in the ring buffer and one SSE payload, matching
// spec §6's `{level, ts, msg, taskId?}` shape exactly.
type LogLine struct {
	Level  string    `json:"level"`
	TS     time.Time `json:"ts"`
	Msg    string    `json:"msg"`
	TaskID string    `json:"taskId,omitempty"`
}

// LogBuffer is a fixed-capacity ring buffer of recent log lines, fanned out
// to any live GET /api/logs/stream subscriber. Grounded on events.Listener's
// subscriber-map idiom (internal/events/listener.go), generalized from
// Postgres-delivered task events to process-local log lines.
type LogBuffer struct {
	mu       sync.Mutex
	lines    []LogLine
	capacity int

	subsMu sync.Mutex
	subs   map[chan LogLine]struct{}
}

// NewLogBuffer constructs a ring buffer holding at most capacity lines.
func NewLogBuffer(capacity int) *LogBuffer {
	return &LogBuffer{capacity: capacity, subs: map[chan LogLine]struct{}{}}
}

// Append records a line, trimming the oldest entry once over capacity, and
// fans it out to every live subscriber without blocking on a slow reader.
func (b *LogBuffer) Append(line LogLine) {
	b.mu.Lock()
	b.lines = append(b.lines, line)
	if len(b.lines) > b.capacity {
		b.lines = b.lines[len(b.lines)-b.capacity:]
	}
	b.mu.Unlock()

	b.subsMu.Lock()
	for ch := range b.subs {
		select {
		case ch <- line:
		default:
		}
	}
	b.subsMu.Unlock()
}

// Tail returns up to n most recent lines, optionally filtered by level and
// taskID (empty string means no filter on that dimension).
func (b *LogBuffer) Tail(n int, level, taskID string) []LogLine {
	b.mu.Lock()
	defer b.mu.Unlock()

	var filtered []LogLine
	for _, l := range b.lines {
		if level != "" && l.Level != level {
			continue
		}
		if taskID != "" && l.TaskID != taskID {
			continue
		}
		filtered = append(filtered, l)
	}
	if n > 0 && len(filtered) > n {
		filtered = filtered[len(filtered)-n:]
	}
	return filtered
}

// Subscribe registers ch to receive every future Append. The returned
// function unregisters it; callers must call it to avoid leaking the map
// entry once their stream ends.
func (b *LogBuffer) Subscribe(ch chan LogLine) func() {
	b.subsMu.Lock()
	b.subs[ch] = struct{}{}
	b.subsMu.Unlock()
	return func() {
		b.subsMu.Lock()
		delete(b.subs, ch)
		b.subsMu.Unlock()
	}
}

// teeHandler is an slog.Handler that forwards every record to next and also
// appends it to a LogBuffer, so the structured-logging stack set up at boot
// doubles as the source for GET /api/logs without a second logging path.
type teeHandler struct {
	next slog.Handler
	buf  *LogBuffer
}

func newTeeHandler(next slog.Handler, buf *LogBuffer) *teeHandler {
	return &teeHandler{next: next, buf: buf}
}

func (h *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *teeHandler) Handle(ctx context.Context, r slog.Record) error {
	line := LogLine{Level: r.Level.String(), TS: r.Time, Msg: r.Message}
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "task_id" || a.Key == "taskId" {
			line.TaskID = a.Value.String()
		}
		return true
	})
	h.buf.Append(line)
	return h.next.Handle(ctx, r)
}

func (h *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &teeHandler{next: h.next.WithAttrs(attrs), buf: h.buf}
}

func (h *teeHandler) WithGroup(name string) slog.Handler {
	return &teeHandler{next: h.next.WithGroup(name), buf: h.buf}
}

func (s *Server) handleLogsList(c *gin.Context) {
	lines := 100
	if raw := c.Query("lines"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			lines = n
		}
	}
	c.JSON(http.StatusOK, s.logs.Tail(lines, c.Query("level"), c.Query("taskId")))
}

// handleLogsStream streams new log lines as Server-Sent Events.
func (s *Server) handleLogsStream(c *gin.Context) {
	ch := make(chan LogLine, 64)
	unsubscribe := s.logs.Subscribe(ch)
	defer unsubscribe()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case line := <-ch:
			c.SSEvent("log", line)
			return true
		case <-ctx.Done():
			return false
		}
	})
}
