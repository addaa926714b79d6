package reinforce

import "math"

// Parameter bounds spec §4.8 names explicitly.
const (
	ProviderQMin = -1.0
	ProviderQMax = 1.0

	EscalationDeltaMin = -0.2
	EscalationDeltaMax = 0.2

	BudgetMultiplierMin = 0.5
	BudgetMultiplierMax = 2.0

	// ThresholdClampMin/Max is the EscalationThresholdAdapter's final
	// output range, applied on top of whatever the Policy Engine's base
	// threshold plus the learned delta computes to.
	ThresholdClampMin = 0.30
	ThresholdClampMax = 0.95

	// deltaCapFraction is the per-update delta cap: 10% of each
	// parameter's range.
	deltaCapFraction = 0.10
)

// Guardrail tunables.
const (
	volatilityWindow            = 10
	volatilityMinSamples        = 5
	volatilityVarianceThreshold = 0.6

	alphaDecayStreak = 5
	alphaFloor       = 0.001
)

// updateParam applies the spec §4.8 Q-update:
//
//	p_{t+1} = clamp( p_t + capped(α · (r − p_t), 0.1·range(p)), bounds(p) )
func updateParam(current, reward, alpha, lo, hi float64) float64 {
	rng := hi - lo
	maxStep := deltaCapFraction * rng

	step := alpha * (reward - current)
	if step > maxStep {
		step = maxStep
	} else if step < -maxStep {
		step = -maxStep
	}

	return clamp(current+step, lo, hi)
}

// variance returns the population variance of samples and whether there
// were enough samples (volatilityMinSamples) to evaluate the freeze rule.
func variance(samples []float64) (float64, bool) {
	if len(samples) < volatilityMinSamples {
		return 0, false
	}

	var mean float64
	for _, s := range samples {
		mean += s
	}
	mean /= float64(len(samples))

	var sumSq float64
	for _, s := range samples {
		d := s - mean
		sumSq += d * d
	}
	return sumSq / float64(len(samples)), true
}

// decayedAlpha halves alpha, never below alphaFloor.
func decayedAlpha(alpha float64) float64 {
	return math.Max(alpha/2, alphaFloor)
}
