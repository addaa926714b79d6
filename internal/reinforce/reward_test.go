package reinforce

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRewardComponents_Total_WeightedSum(t *testing.T) {
	c := RewardComponents{
		OutcomeDelta:        1.0,
		CostEfficiency:      1.0,
		EscalationPrecision: 1.0,
		OverridePenalty:     1.0,
		CalibrationError:    1.0,
	}
	assert.InDelta(t, 1.0, c.Total(), 1e-9)
}

func TestRewardComponents_Total_ClampedToRange(t *testing.T) {
	c := RewardComponents{OutcomeDelta: -5, CostEfficiency: -5, EscalationPrecision: -5, OverridePenalty: -5, CalibrationError: -5}
	assert.Equal(t, -1.0, c.Total())
}

func TestOutcomeDeltaFallback(t *testing.T) {
	assert.Equal(t, 0.5, OutcomeDeltaFallback(true))
	assert.Equal(t, -0.5, OutcomeDeltaFallback(false))
}

func TestCostEfficiencyFrom(t *testing.T) {
	assert.InDelta(t, 0.5, CostEfficiencyFrom(5, 10), 1e-9)
	assert.Equal(t, 0.0, CostEfficiencyFrom(5, 0), "non-positive budget has no cost signal")
	assert.Equal(t, -1.0, CostEfficiencyFrom(100, 10), "overspend clamps at -1")
}

func TestEscalationPrecisionFrom(t *testing.T) {
	assert.Equal(t, 0.0, EscalationPrecisionFrom(EscalationNone))
	assert.Equal(t, 1.0, EscalationPrecisionFrom(EscalationWarranted))
	assert.Equal(t, -1.0, EscalationPrecisionFrom(EscalationWasted))
}

func TestCalibrationErrorFrom(t *testing.T) {
	assert.InDelta(t, -0.1, CalibrationErrorFrom(0.9, true), 1e-9)
	assert.InDelta(t, -0.2, CalibrationErrorFrom(0.8, false), 1e-9)
}
