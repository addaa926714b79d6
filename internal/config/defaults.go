package config

import (
	"time"

	"github.com/tarsy-labs/agentruntime/internal/approval"
	"github.com/tarsy-labs/agentruntime/internal/breaker"
	"github.com/tarsy-labs/agentruntime/internal/budget"
	"github.com/tarsy-labs/agentruntime/internal/interrupt"
)

// Default server/breaker/approval/interrupt values the resolved Config falls
// back to when the YAML file leaves a section (or a field) unset. Numeric
// defaults are pulled from each package's own Default* constant rather than
// re-declared here, so a change to e.g. breaker.DefaultMaxIterations doesn't
// silently drift out of sync with the config layer.
const (
	defaultHTTPAddr = ":8080"
)

func defaultYAMLConfig() YAMLConfig {
	bc := breaker.DefaultConfig()
	return YAMLConfig{
		Server: &ServerYAML{
			HTTPAddr:         defaultHTTPAddr,
			AllowedWSOrigins: []string{},
		},
		Budget: &BudgetYAML{
			SessionCeilingDollars: budget.DefaultSessionCeiling,
			HourlyCapDollars:      budget.DefaultHourlyCap,
			Prices:                map[string]ModelPriceYAML{},
		},
		Breaker: &BreakerYAML{
			MaxIterations:      bc.MaxIterations,
			MaxNoProgress:      bc.MaxNoProgress,
			DuplicateWindow:    bc.DuplicateWindow,
			DuplicateThreshold: bc.DuplicateThreshold,
			SoftWarningRatio:   bc.SoftWarningRatio,
			HealthWindow:       bc.HealthWindow.String(),
			RecoveryDelay:      bc.RecoveryDelay.String(),
			MinHealthSamples:   bc.MinHealthSamples,
			ErrorRateTrip:      bc.ErrorRateTrip,
			P99LatencyTripMS:   bc.P99LatencyTripMS,
		},
		Approval: &ApprovalYAML{
			PollInterval:  approval.DefaultPollInterval.String(),
			Timeout:       approval.DefaultTimeout.String(),
			TimeoutAction: string(approval.TimeoutActionReject),
		},
		Interrupt: &InterruptYAML{
			TTL: interrupt.DefaultTTL.String(),
		},
		Routing: map[string]string{},
	}
}

// parseDuration falls back to def when s is empty; a malformed duration
// string is a validation-time concern, surfaced by the loader's own parse
// step rather than swallowed here.
func parseDuration(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	return time.ParseDuration(s)
}
