package breaker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarsy-labs/agentruntime/internal/apperrors"
)

func TestBeforeIteration_HardCapBoundary(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxIterations = 25
	b := New(cfg)

	for i := 0; i < 23; i++ {
		_, err := b.BeforeIteration("t1", "output "+string(rune('a'+i)), true)
		require.NoError(t, err)
	}
	// 24th call -> count becomes 24 == cap-1, must not hard trip.
	ev, err := b.BeforeIteration("t1", "more output here", true)
	require.NoError(t, err)
	_ = ev

	// 25th call -> count becomes 25 == cap, hard trip.
	_, err = b.BeforeIteration("t1", "final output line", true)
	var tripped *apperrors.BreakerTrippedError
	require.ErrorAs(t, err, &tripped)
	assert.Equal(t, apperrors.SeverityHard, tripped.Severity)
}

func TestBeforeIteration_NoProgressBoundary(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxNoProgress = 5
	b := New(cfg)

	// 3 no-tool-call iterations -> streak 3.
	for i := 0; i < 3; i++ {
		_, err := b.BeforeIteration("t2", "", false)
		require.NoError(t, err)
	}
	// 4th: streak becomes 4 == maxNoProgress-1 -> soft.
	ev, err := b.BeforeIteration("t2", "", false)
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, "no_progress_soft", ev.Reason)

	// 5th: streak becomes 5 == maxNoProgress -> hard.
	_, err = b.BeforeIteration("t2", "", false)
	var tripped *apperrors.BreakerTrippedError
	require.ErrorAs(t, err, &tripped)
}

func TestBeforeIteration_ToolCallResetsStreak(t *testing.T) {
	cfg := DefaultConfig()
	b := New(cfg)
	for i := 0; i < 4; i++ {
		_, err := b.BeforeIteration("t3", "", false)
		require.NoError(t, err)
	}
	_, err := b.BeforeIteration("t3", "", true) // tool call resets streak
	require.NoError(t, err)
	_, err = b.BeforeIteration("t3", "", false)
	require.NoError(t, err) // streak only 1 now, far from trip
}

func TestJaccardDetector_BoundaryThreshold(t *testing.T) {
	d := JaccardDetector{}
	// Construct two strings with a known Jaccard similarity of exactly 0.85:
	// 17 shared words out of a union of 20 (17/20 = 0.85).
	shared := make([]string, 17)
	for i := range shared {
		shared[i] = "word" + string(rune('a'+i))
	}
	a := append(append([]string{}, shared...), "uniquea1", "uniquea2")
	bWords := append(append([]string{}, shared...), "uniqueb1")

	candidate := join(a)
	recent := join(bWords)

	sim, dup := d.IsDuplicate(candidate, []string{recent}, 0.85)
	assert.InDelta(t, 0.85, sim, 0.001)
	assert.True(t, dup)

	sim2, dup2 := d.IsDuplicate(candidate, []string{recent}, 0.8501)
	assert.InDelta(t, 0.85, sim2, 0.001)
	assert.False(t, dup2)
}

func join(words []string) string {
	out := ""
	for i, w := range words {
		if i > 0 {
			out += " "
		}
		out += w
	}
	return out
}

func TestBeforeIteration_DuplicateTripsHard_NoSelfMatch(t *testing.T) {
	b := New(DefaultConfig())
	_, err := b.BeforeIteration("t4", "please clarify your request", true)
	require.NoError(t, err) // first occurrence: nothing to compare against yet

	_, err = b.BeforeIteration("t4", "please clarify your request", true)
	var tripped *apperrors.BreakerTrippedError
	require.ErrorAs(t, err, &tripped)
	assert.Contains(t, tripped.Reason, "duplicate_output")
}

func TestProviderHealth_FourSamplesAllFailRemainsClosed(t *testing.T) {
	b := New(DefaultConfig())
	for i := 0; i < 4; i++ {
		b.RecordProviderCall("p1", 100, false)
	}
	assert.True(t, b.IsProviderHealthy("p1"))
}

func TestProviderHealth_FiveSamplesAllFailOpens(t *testing.T) {
	b := New(DefaultConfig())
	for i := 0; i < 5; i++ {
		b.RecordProviderCall("p1", 100, false)
	}
	assert.False(t, b.IsProviderHealthy("p1"))
}

func TestProviderHealth_RecoversThroughHalfOpen(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RecoveryDelay = 0 // force immediate eligibility for half-open in this test
	b := New(cfg)
	for i := 0; i < 5; i++ {
		b.RecordProviderCall("p1", 100, false)
	}
	require.Equal(t, "open", string(b.ProviderBreakerState("p1")))

	// With the recovery delay elapsed, the next recorded call moves the
	// breaker from open to half_open; the call after that decides the outcome.
	b.RecordProviderCall("p1", 50, false)
	require.Equal(t, "half_open", string(b.ProviderBreakerState("p1")))

	// A successful probe in half_open closes the breaker again.
	b.RecordProviderCall("p1", 50, true)
	assert.Equal(t, "closed", string(b.ProviderBreakerState("p1")))
	assert.True(t, b.IsProviderHealthy("p1"))
}
