// Package router implements the LLM Router: task classification, provider
// selection, constraint re-injection, provider invocation, and the
// expert-judgment lens applied to every completion (spec §4.5).
package router

import (
	"context"
	"fmt"

	"github.com/tarsy-labs/agentruntime/internal/types"
)

// PolicyLens is the subset of the Policy Engine the Router depends on,
// declared here (rather than imported as a concrete type) to keep
// internal/policy free of a reverse dependency on internal/router —
// the same pattern pkg/agent/factory.go uses for ControllerFactory.
type PolicyLens interface {
	BuildConstraintRejectionMessage() (types.TaggedMessage, error)
	ValidateOutput(completionText string, confidence *float64) (types.LensedResult, error)
}

// Rules maps a classification to the id of the provider preferred for it.
type Rules map[Classification]string

// Router selects and calls a Provider, then lenses the result through the
// Policy Engine's expert-judgment checks.
type Router struct {
	policy        PolicyLens
	providers     []Provider
	providersByID map[string]Provider
	rules         Rules
}

// New constructs a Router. providers order matters only as the final
// fallback (the first registered provider that CanHandle the task).
func New(policyEngine PolicyLens, providers []Provider, rules Rules) *Router {
	byID := make(map[string]Provider, len(providers))
	for _, p := range providers {
		byID[p.ID()] = p
	}
	if rules == nil {
		rules = Rules{}
	}
	return &Router{policy: policyEngine, providers: providers, providersByID: byID, rules: rules}
}

// Options forwards per-call generation parameters and the hard-constraint
// count used by the `fast`→`standard` classification upgrade.
type Options struct {
	MaxTokens           int
	Temperature         float64
	HardConstraintCount int
}

// Route classifies the task, selects a provider, assembles the message
// list with the constraint-rejection message prepended, calls the
// provider, and lenses the completion. It never returns a raw string.
func (r *Router) Route(ctx context.Context, systemPrompt string, taggedMessages []types.TaggedMessage, opts Options, specText string) (types.LensedResult, error) {
	task := Classify(specText, opts.HardConstraintCount)

	provider, err := r.selectProvider(task)
	if err != nil {
		return types.LensedResult{}, err
	}

	constraintMsg, err := r.policy.BuildConstraintRejectionMessage()
	if err != nil {
		return types.LensedResult{}, fmt.Errorf("building constraint message: %w", err)
	}
	messages := make([]types.TaggedMessage, 0, len(taggedMessages)+1)
	messages = append(messages, constraintMsg)
	messages = append(messages, taggedMessages...)

	completion, err := provider.Complete(ctx, systemPrompt, messages, CompleteOptions{
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	})
	if err != nil {
		return types.LensedResult{}, fmt.Errorf("provider %s: %w", provider.ID(), err)
	}

	lensed, err := r.policy.ValidateOutput(completion.Text, completion.Confidence)
	if err != nil {
		return types.LensedResult{}, err
	}

	lensed.Model = completion.Model
	lensed.ProviderID = completion.ProviderID
	lensed.InputTokens = completion.InputTokens
	lensed.OutputTokens = completion.OutputTokens
	lensed.DollarCost = completion.DollarCost
	lensed.LatencyMS = completion.LatencyMS
	lensed.StopReason = string(completion.StopReason)

	return lensed, nil
}

// selectProvider checks the routing rule for task.Classification for a
// provider whose CanHandle returns true; falls back to the first
// registered provider that can handle it; falls back to the first
// registered provider (spec §4.5 provider-selection fallback chain).
func (r *Router) selectProvider(task ClassifiedTask) (Provider, error) {
	if len(r.providers) == 0 {
		return nil, fmt.Errorf("router: no providers registered")
	}

	if preferredID, ok := r.rules[task.Classification]; ok {
		if p, ok := r.providersByID[preferredID]; ok && p.CanHandle(task) {
			return p, nil
		}
	}

	for _, p := range r.providers {
		if p.CanHandle(task) {
			return p, nil
		}
	}

	return r.providers[0], nil
}
