package breaker

import (
	"sort"
	"time"

	"github.com/tarsy-labs/agentruntime/internal/types"
)

func (b *Breaker) providerFor(providerID string) *types.ProviderState {
	st, ok := b.providers[providerID]
	if !ok {
		st = &types.ProviderState{ProviderID: providerID, State: types.BreakerClosed}
		b.providers[providerID] = st
	}
	return st
}

// RecordProviderCall appends a call outcome to the provider's rolling window
// and evaluates the closed/open/half-open transition table from spec §4.3.
func (b *Breaker) RecordProviderCall(providerID string, latencyMS int64, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	st := b.providerFor(providerID)
	now := time.Now()

	// half_open: the very next recorded call decides closed vs open.
	if st.State == types.BreakerHalfOpen {
		if success {
			st.State = types.BreakerClosed
		} else {
			st.State = types.BreakerOpen
			st.OpenedAt = now
		}
		st.Calls = appendCall(st.Calls, now, latencyMS, success, b.cfg.HealthWindow)
		return
	}

	st.Calls = appendCall(st.Calls, now, latencyMS, success, b.cfg.HealthWindow)

	switch st.State {
	case types.BreakerClosed:
		if b.shouldOpen(st) {
			st.State = types.BreakerOpen
			st.OpenedAt = now
		}
	case types.BreakerOpen:
		if now.Sub(st.OpenedAt) >= b.cfg.RecoveryDelay {
			st.State = types.BreakerHalfOpen
			st.LastProbeAt = now
		}
	}
}

func appendCall(calls []types.CallRecord, now time.Time, latencyMS int64, success bool, window time.Duration) []types.CallRecord {
	cutoff := now.Add(-window)
	trimmed := calls[:0]
	for _, c := range calls {
		if c.Timestamp.After(cutoff) {
			trimmed = append(trimmed, c)
		}
	}
	return append(trimmed, types.CallRecord{Timestamp: now, LatencyMS: latencyMS, Success: success})
}

func (b *Breaker) shouldOpen(st *types.ProviderState) bool {
	if len(st.Calls) < b.cfg.MinHealthSamples {
		return false
	}
	failures := 0
	latencies := make([]int64, 0, len(st.Calls))
	for _, c := range st.Calls {
		if !c.Success {
			failures++
		}
		latencies = append(latencies, c.LatencyMS)
	}
	errorRate := float64(failures) / float64(len(st.Calls))
	if errorRate >= b.cfg.ErrorRateTrip {
		return true
	}
	return p99(latencies) >= b.cfg.P99LatencyTripMS
}

func p99(latencies []int64) int64 {
	if len(latencies) == 0 {
		return 0
	}
	sorted := append([]int64(nil), latencies...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(float64(len(sorted))*0.99)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// IsProviderHealthy returns false only for the open state.
func (b *Breaker) IsProviderHealthy(providerID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	st, ok := b.providers[providerID]
	if !ok {
		return true
	}
	return st.State != types.BreakerOpen
}

// ProviderBreakerState returns the current state for providerID (closed if unseen).
func (b *Breaker) ProviderBreakerState(providerID string) types.BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	st, ok := b.providers[providerID]
	if !ok {
		return types.BreakerClosed
	}
	return st.State
}
