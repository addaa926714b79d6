package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer() *Server {
	return &Server{
		engine:    gin.New(),
		memory:    NewMemoryMemoryStore(),
		skills:    NewMemorySkillRegistry(),
		logs:      NewLogBuffer(100),
		startedAt: time.Now(),
		model:     "test-model",
	}
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer()
	s.engine.GET("/health", s.handleHealth)

	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestMemoryHandlers_ListGetDelete(t *testing.T) {
	s := newTestServer()
	s.engine.GET("/api/memory", s.handleMemoryList)
	s.engine.GET("/api/memory/:id", s.handleMemoryGet)
	s.engine.DELETE("/api/memory/:id", s.handleMemoryDelete)

	store := s.memory.(*MemoryMemoryStore)
	store.Put(MemoryRecord{ID: "m1", Type: "note", Content: "remember the deploy window", AgentID: "a1", CreatedAt: time.Now()})
	store.Put(MemoryRecord{ID: "m2", Type: "fact", Content: "other content", AgentID: "a2", CreatedAt: time.Now()})

	t.Run("list filters by type", func(t *testing.T) {
		rec := httptest.NewRecorder()
		s.engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/memory?type=note", nil))
		assert.Equal(t, http.StatusOK, rec.Code)

		var records []MemoryRecord
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
		require.Len(t, records, 1)
		assert.Equal(t, "m1", records[0].ID)
	})

	t.Run("get existing record", func(t *testing.T) {
		rec := httptest.NewRecorder()
		s.engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/memory/m2", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("get missing record returns 404", func(t *testing.T) {
		rec := httptest.NewRecorder()
		s.engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/memory/missing", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("delete removes record", func(t *testing.T) {
		rec := httptest.NewRecorder()
		s.engine.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/memory/m1", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)

		_, ok := store.Get("m1")
		assert.False(t, ok)
	})
}

func TestSkillHandlers_InstallEnableDisableDelete(t *testing.T) {
	s := newTestServer()
	s.engine.GET("/api/skills", s.handleSkillsList)
	s.engine.POST("/api/skills/install", s.handleSkillInstall)
	s.engine.POST("/api/skills/:name/enable", s.handleSkillEnable)
	s.engine.POST("/api/skills/:name/disable", s.handleSkillDisable)
	s.engine.DELETE("/api/skills/:name", s.handleSkillDelete)

	t.Run("install requires source", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/skills/install", bytes.NewBufferString(`{}`))
		req.Header.Set("Content-Type", "application/json")
		s.engine.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("install then enable/disable then delete", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/skills/install", bytes.NewBufferString(`{"source":"github.com/example/skill","name":"example"}`))
		req.Header.Set("Content-Type", "application/json")
		s.engine.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var installed Skill
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &installed))
		assert.True(t, installed.Enabled)

		rec = httptest.NewRecorder()
		s.engine.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/skills/example/disable", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		var disabled Skill
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &disabled))
		assert.False(t, disabled.Enabled)

		rec = httptest.NewRecorder()
		s.engine.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/skills/example", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = httptest.NewRecorder()
		s.engine.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/skills/example/enable", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestLogsHandlers(t *testing.T) {
	s := newTestServer()
	s.engine.GET("/api/logs", s.handleLogsList)

	s.logs.Append(LogLine{Level: "INFO", TS: time.Now(), Msg: "first", TaskID: "t1"})
	s.logs.Append(LogLine{Level: "ERROR", TS: time.Now(), Msg: "second", TaskID: "t2"})

	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/logs?level=ERROR", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var lines []LogLine
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &lines))
	require.Len(t, lines, 1)
	assert.Equal(t, "second", lines[0].Msg)
}

func TestLogBuffer_TrimsToCapacity(t *testing.T) {
	buf := NewLogBuffer(2)
	buf.Append(LogLine{Msg: "a"})
	buf.Append(LogLine{Msg: "b"})
	buf.Append(LogLine{Msg: "c"})

	all := buf.Tail(0, "", "")
	require.Len(t, all, 2)
	assert.Equal(t, "b", all[0].Msg)
	assert.Equal(t, "c", all[1].Msg)
}

func TestLogBuffer_SubscribeReceivesNewLines(t *testing.T) {
	buf := NewLogBuffer(10)
	ch := make(chan LogLine, 4)
	unsubscribe := buf.Subscribe(ch)
	defer unsubscribe()

	buf.Append(LogLine{Msg: "hello"})

	select {
	case line := <-ch:
		assert.Equal(t, "hello", line.Msg)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for subscribed log line")
	}
}
