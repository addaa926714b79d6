package router

import (
	"context"
	"strings"

	"github.com/tarsy-labs/agentruntime/internal/types"
)

// MockProvider is a deterministic Provider for tests and local development
// without a live LLM backend: it echoes a canned response and reports
// always-healthy, zero-cost estimates.
type MockProvider struct {
	IDValue      string
	Response     string
	HandlesLocal bool
}

func (m *MockProvider) ID() string   { return m.IDValue }
func (m *MockProvider) Name() string { return m.IDValue }

// CanHandle reports true unless the task requires local-only execution and
// this mock isn't configured to offer it.
func (m *MockProvider) CanHandle(task ClassifiedTask) bool {
	if task.RequiresLocalOnly {
		return m.HandlesLocal
	}
	return true
}

func (m *MockProvider) EstimateCost(prompt string, maxTokens int) CostEstimate {
	return CostEstimate{InputTokens: len(strings.Fields(prompt)), OutputTokens: maxTokens}
}

func (m *MockProvider) Health(context.Context) ProviderHealth {
	return ProviderHealth{Healthy: true}
}

func (m *MockProvider) Complete(_ context.Context, _ string, _ []types.TaggedMessage, _ CompleteOptions) (types.CompletionResult, error) {
	text := m.Response
	if text == "" {
		text = "mock completion"
	}
	return types.CompletionResult{
		Text:       text,
		Model:      "mock-model",
		ProviderID: m.IDValue,
		StopReason: types.StopEndTurn,
	}, nil
}
