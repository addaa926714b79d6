package reinforce

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpdateParam_MatchesSpecExample(t *testing.T) {
	// spec §8 worked example: start at 0.0, reward +1.0, alpha 0.05 ->
	// clamp(0.0 + 0.05*(1.0-0.0), ±0.1*2.0) = 0.05.
	got := updateParam(0.0, 1.0, 0.05, ProviderQMin, ProviderQMax)
	assert.InDelta(t, 0.05, got, 1e-9)
}

func TestUpdateParam_DeltaCapLimitsLargeJumps(t *testing.T) {
	// range is 2.0 (providerQ bounds), so a 10% cap is 0.2; even with a
	// reward of 1.0 far from current -1.0, one update moves at most 0.2.
	got := updateParam(-1.0, 1.0, 1.0, ProviderQMin, ProviderQMax)
	assert.InDelta(t, -0.8, got, 1e-9)
}

func TestUpdateParam_ClampsToBounds(t *testing.T) {
	got := updateParam(1.9, 1.0, 1.0, BudgetMultiplierMin, BudgetMultiplierMax)
	assert.LessOrEqual(t, got, BudgetMultiplierMax)
}

func TestVariance_RequiresMinimumSamples(t *testing.T) {
	_, ok := variance([]float64{1, 2, 3})
	assert.False(t, ok)

	_, ok = variance([]float64{1, 1, 1, 1, 1})
	assert.True(t, ok)
}

func TestVariance_ZeroForConstantSamples(t *testing.T) {
	v, ok := variance([]float64{0.5, 0.5, 0.5, 0.5, 0.5})
	require := assert.New(t)
	require.True(ok)
	require.InDelta(0.0, v, 1e-9)
}

func TestDecayedAlpha_HalvesButNeverBelowFloor(t *testing.T) {
	assert.InDelta(t, 0.05, decayedAlpha(0.1), 1e-9)
	assert.Equal(t, alphaFloor, decayedAlpha(0.001))
	assert.Equal(t, alphaFloor, decayedAlpha(0.0005))
}
