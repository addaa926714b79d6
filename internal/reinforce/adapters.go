package reinforce

import (
	"context"

	"github.com/tarsy-labs/agentruntime/internal/router"
)

// RouterPolicyAdapter is a thin decorator over the base Router's provider
// selection: it consults the learned per-provider Q-values without ever
// mutating Router or Policy Engine state (spec §4.8).
type RouterPolicyAdapter struct {
	Store Store
}

// SelectProvider returns base (the Router's own choice) when the key is
// frozen or has no positive Q-values recorded; otherwise it returns the
// provider with the highest positive Q-value that can handle task, falling
// back to base if none of the candidates qualify.
func (a RouterPolicyAdapter) SelectProvider(ctx context.Context, task router.ClassifiedTask, companyID, agentID, taskClassification string, candidates []router.Provider, base router.Provider) (router.Provider, error) {
	params, err := a.Store.Load(ctx, companyID, agentID, taskClassification)
	if err != nil {
		return base, err
	}
	if params.Frozen {
		return base, nil
	}

	var best router.Provider
	bestQ := 0.0
	for _, p := range candidates {
		if !p.CanHandle(task) {
			continue
		}
		q, ok := params.ProviderQ[p.ID()]
		if !ok || q <= 0 {
			continue
		}
		if best == nil || q > bestQ {
			best = p
			bestQ = q
		}
	}
	if best == nil {
		return base, nil
	}
	return best, nil
}

// EscalationThresholdAdapter applies the learned escalation-threshold
// delta on top of the Policy Engine's base threshold, clamped to the
// non-bypassable [0.30, 0.95] range (spec §4.8).
type EscalationThresholdAdapter struct {
	Store Store
}

// EffectiveThreshold returns baseThreshold unchanged when the key is
// frozen, otherwise baseThreshold+delta clamped to [ThresholdClampMin,
// ThresholdClampMax].
func (a EscalationThresholdAdapter) EffectiveThreshold(ctx context.Context, baseThreshold float64, companyID, agentID, taskClassification string) (float64, error) {
	params, err := a.Store.Load(ctx, companyID, agentID, taskClassification)
	if err != nil {
		return baseThreshold, err
	}
	if params.Frozen {
		return baseThreshold, nil
	}
	return clamp(baseThreshold+params.EscalationDelta, ThresholdClampMin, ThresholdClampMax), nil
}
