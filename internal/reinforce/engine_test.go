package reinforce

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_Update_AppliesQUpdateAndRecordsAudit(t *testing.T) {
	store := NewMemoryStore()
	audit := NewMemoryAuditLog()
	e := New(store, audit, nil)

	params, err := e.Update(context.Background(), UpdateInput{
		CompanyID:          "c1",
		AgentID:            "a1",
		TaskClassification: "standard",
		ProviderID:         "p1",
		Reward:             RewardComponents{OutcomeDelta: 1.0},
	})
	require.NoError(t, err)

	// reward total = 0.4*1.0 = 0.4; from a 0.0 start with default alpha 0.1
	// the step is 0.1*(0.4-0.0)=0.04, inside the 0.1*2.0=0.2 delta cap.
	assert.InDelta(t, 0.04, params.ProviderQ["p1"], 1e-9)
	assert.Equal(t, 1, params.UpdateCount)
	assert.False(t, params.Frozen)

	entries := audit.Entries()
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Frozen)
	assert.InDelta(t, 0.4, entries[0].RewardTotal, 1e-9)
}

func TestEngine_Update_VolatilityFreezeStopsFurtherUpdates(t *testing.T) {
	store := NewMemoryStore()
	audit := NewMemoryAuditLog()
	e := New(store, audit, nil)

	// Alternate full-swing rewards (every component pinned to the same
	// extreme, so Total hits the ±1 clamp) to push variance above threshold.
	for i := 0; i < 6; i++ {
		extreme := 1.0
		if i%2 == 0 {
			extreme = -1.0
		}
		_, err := e.Update(context.Background(), UpdateInput{
			CompanyID: "c1", AgentID: "a1", TaskClassification: "standard",
			ProviderID: "p1",
			Reward: RewardComponents{
				OutcomeDelta:        extreme,
				CostEfficiency:      extreme,
				EscalationPrecision: extreme,
				OverridePenalty:     extreme,
				CalibrationError:    extreme,
			},
		})
		require.NoError(t, err)
	}

	params, err := store.Load(context.Background(), "c1", "a1", "standard")
	require.NoError(t, err)
	assert.True(t, params.Frozen, "wide reward swings should trip the volatility freeze")

	entries := audit.Entries()
	last := entries[len(entries)-1]
	assert.True(t, last.Frozen)
	assert.NotEmpty(t, last.FreezeReason)
}

func TestEngine_Update_AlphaDecaysAfterConsecutiveNegativeOutcomes(t *testing.T) {
	store := NewMemoryStore()
	audit := NewMemoryAuditLog()
	e := New(store, audit, nil)

	var lastAlpha float64
	for i := 0; i < 5; i++ {
		p, err := e.Update(context.Background(), UpdateInput{
			CompanyID: "c1", AgentID: "a1", TaskClassification: "standard",
			ProviderID: "p1", Reward: RewardComponents{OutcomeDelta: -0.1},
		})
		require.NoError(t, err)
		lastAlpha = p.Alpha
	}

	assert.InDelta(t, 0.05, lastAlpha, 1e-9, "alpha should halve once after 5 consecutive negative-outcome updates")
}

func TestEngine_Update_FrozenKeyStillAuditsButSkipsParamChange(t *testing.T) {
	store := NewMemoryStore()
	audit := NewMemoryAuditLog()
	e := New(store, audit, nil)

	// Force a freeze first (full-swing rewards, same as the test above).
	for i := 0; i < 6; i++ {
		extreme := 1.0
		if i%2 == 0 {
			extreme = -1.0
		}
		_, err := e.Update(context.Background(), UpdateInput{
			CompanyID: "c1", AgentID: "a1", TaskClassification: "standard",
			ProviderID: "p1",
			Reward: RewardComponents{
				OutcomeDelta:        extreme,
				CostEfficiency:      extreme,
				EscalationPrecision: extreme,
				OverridePenalty:     extreme,
				CalibrationError:    extreme,
			},
		})
		require.NoError(t, err)
	}
	frozenParams, err := store.Load(context.Background(), "c1", "a1", "standard")
	require.NoError(t, err)
	require.True(t, frozenParams.Frozen)
	before := frozenParams.ProviderQ["p1"]

	params, err := e.Update(context.Background(), UpdateInput{
		CompanyID: "c1", AgentID: "a1", TaskClassification: "standard",
		ProviderID: "p1", Reward: RewardComponents{OutcomeDelta: 1.0},
	})
	require.NoError(t, err)

	assert.Equal(t, before, params.ProviderQ["p1"], "a frozen key's params don't move")
	entries := audit.Entries()
	assert.True(t, entries[len(entries)-1].Frozen)
}
