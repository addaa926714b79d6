package llmprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/tarsy-labs/agentruntime/internal/router"
	"github.com/tarsy-labs/agentruntime/internal/types"
)

// HTTPProvider calls a REST-fronted model API (e.g. an OpenAI-compatible
// completions endpoint) rather than the gRPC sidecar. Used for providers
// whose only integration surface is HTTP.
type HTTPProvider struct {
	id       string
	name     string
	model    string
	endpoint string
	apiKey   string
	client   *http.Client
	local    bool
}

// HTTPProviderConfig configures an HTTPProvider.
type HTTPProviderConfig struct {
	ID       string
	Name     string
	Model    string
	Endpoint string
	APIKey   string
	Local    bool
	Timeout  time.Duration
}

// NewHTTPProvider builds an HTTPProvider with a bounded request timeout.
func NewHTTPProvider(cfg HTTPProviderConfig) *HTTPProvider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &HTTPProvider{
		id:       cfg.ID,
		name:     cfg.Name,
		model:    cfg.Model,
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: timeout},
		local:    cfg.Local,
	}
}

func (p *HTTPProvider) ID() string   { return p.id }
func (p *HTTPProvider) Name() string { return p.name }

func (p *HTTPProvider) CanHandle(task router.ClassifiedTask) bool {
	if task.RequiresLocalOnly {
		return p.local
	}
	return true
}

func (p *HTTPProvider) EstimateCost(prompt string, maxTokens int) router.CostEstimate {
	return router.CostEstimate{InputTokens: len(prompt) / 4, OutputTokens: maxTokens}
}

type httpMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type httpCompleteRequest struct {
	Model       string        `json:"model"`
	Messages    []httpMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type httpCompleteResponse struct {
	Text         string   `json:"text"`
	Model        string   `json:"model"`
	InputTokens  int      `json:"input_tokens"`
	OutputTokens int      `json:"output_tokens"`
	StopReason   string   `json:"stop_reason"`
	Confidence   *float64 `json:"confidence,omitempty"`
}

// Complete POSTs a JSON completion request, retrying transient (5xx/network)
// failures with an exponential backoff bounded to 20s, mirroring
// internal/approval's correction forwarder.
func (p *HTTPProvider) Complete(ctx context.Context, systemPrompt string, messages []types.TaggedMessage, opts router.CompleteOptions) (types.CompletionResult, error) {
	reqBody := httpCompleteRequest{
		Model:       p.model,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}
	reqBody.Messages = append(reqBody.Messages, httpMessage{Role: string(types.RoleSystem), Content: systemPrompt})
	for _, m := range messages {
		reqBody.Messages = append(reqBody.Messages, httpMessage{Role: string(m.Role), Content: m.Content})
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return types.CompletionResult{}, fmt.Errorf("marshal request: %w", err)
	}

	start := time.Now()
	var parsed httpCompleteResponse
	policy := backoff.WithContext(backoff.WithMaxElapsedTime(backoff.NewExponentialBackOff(), 20*time.Second), ctx)

	err = backoff.Retry(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		if p.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+p.apiKey)
		}

		resp, err := p.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("provider %s returned %d", p.id, resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			return backoff.Permanent(fmt.Errorf("provider %s rejected request: %d", p.id, resp.StatusCode))
		}
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return backoff.Permanent(fmt.Errorf("decode response: %w", err))
		}
		return nil
	}, policy)
	if err != nil {
		return types.CompletionResult{}, err
	}

	return types.CompletionResult{
		Text:         parsed.Text,
		Model:        parsed.Model,
		ProviderID:   p.id,
		InputTokens:  parsed.InputTokens,
		OutputTokens: parsed.OutputTokens,
		LatencyMS:    time.Since(start).Milliseconds(),
		StopReason:   httpStopReason(parsed.StopReason),
		Confidence:   parsed.Confidence,
	}, nil
}

func httpStopReason(s string) types.StopReason {
	switch s {
	case "max_tokens":
		return types.StopMaxTokens
	case "stop_sequence":
		return types.StopSequence
	default:
		return types.StopEndTurn
	}
}

// Health issues a cheap GET against the provider's health path.
func (p *HTTPProvider) Health(ctx context.Context) router.ProviderHealth {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"/health", nil)
	if err != nil {
		return router.ProviderHealth{Healthy: false, Message: err.Error()}
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return router.ProviderHealth{Healthy: false, Message: err.Error()}
	}
	defer resp.Body.Close()
	return router.ProviderHealth{Healthy: resp.StatusCode < 300}
}
