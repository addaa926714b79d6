package llmprovider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarsy-labs/agentruntime/internal/router"
	"github.com/tarsy-labs/agentruntime/internal/types"
)

func TestHTTPProvider_Complete_SendsAuthAndParsesResponse(t *testing.T) {
	var gotAuth string
	var gotReq httpCompleteRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(httpCompleteResponse{
			Text:         "the answer",
			Model:        "gpt-test",
			InputTokens:  10,
			OutputTokens: 5,
			StopReason:   "end_turn",
		})
	}))
	defer server.Close()

	p := NewHTTPProvider(HTTPProviderConfig{ID: "http1", Name: "HTTP One", Model: "gpt-test", Endpoint: server.URL, APIKey: "secret-key"})

	res, err := p.Complete(context.Background(), "you are helpful", []types.TaggedMessage{{Role: types.RoleUser, Content: "hi"}}, router.CompleteOptions{MaxTokens: 100})
	require.NoError(t, err)
	assert.Equal(t, "the answer", res.Text)
	assert.Equal(t, "http1", res.ProviderID)
	assert.Equal(t, types.StopEndTurn, res.StopReason)
	assert.Equal(t, "Bearer secret-key", gotAuth)
	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
}

func TestHTTPProvider_Complete_4xxIsNotRetried(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	p := NewHTTPProvider(HTTPProviderConfig{ID: "http1", Endpoint: server.URL})
	_, err := p.Complete(context.Background(), "sys", nil, router.CompleteOptions{})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestHTTPProvider_CanHandle_RespectsLocalOnly(t *testing.T) {
	localOnly := NewHTTPProvider(HTTPProviderConfig{ID: "local", Local: true})
	remote := NewHTTPProvider(HTTPProviderConfig{ID: "remote", Local: false})

	sensitiveTask := router.ClassifiedTask{RequiresLocalOnly: true}
	assert.True(t, localOnly.CanHandle(sensitiveTask))
	assert.False(t, remote.CanHandle(sensitiveTask))

	standardTask := router.ClassifiedTask{}
	assert.True(t, remote.CanHandle(standardTask))
}

func TestHTTPProvider_Health(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	p := NewHTTPProvider(HTTPProviderConfig{ID: "http1", Endpoint: server.URL})
	health := p.Health(context.Background())
	assert.True(t, health.Healthy)
}
