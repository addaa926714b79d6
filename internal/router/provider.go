package router

import (
	"context"

	"github.com/tarsy-labs/agentruntime/internal/types"
)

// CostEstimate is a Provider's pre-call cost projection.
type CostEstimate struct {
	Dollars      float64
	InputTokens  int
	OutputTokens int
}

// ProviderHealth is the outcome of a Provider's own health check, folded
// into the Circuit Breaker's provider rolling window by the caller.
type ProviderHealth struct {
	Healthy bool
	Message string
}

// CompleteOptions carries per-call generation parameters.
type CompleteOptions struct {
	MaxTokens   int
	Temperature float64
}

// Provider is the capability set spec §4.5 requires: a registered LLM
// backend the Router can classify tasks against, cost, and call. Mirrors
// the shape of pkg/agent/llm_client.go's LLMClient interface, generalized
// from a single streaming Generate call to the closed complete()/health()
// contract the Router's lens needs.
type Provider interface {
	ID() string
	Name() string
	CanHandle(task ClassifiedTask) bool
	EstimateCost(prompt string, maxTokens int) CostEstimate
	Complete(ctx context.Context, systemPrompt string, messages []types.TaggedMessage, opts CompleteOptions) (types.CompletionResult, error)
	Health(ctx context.Context) ProviderHealth
}
