package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
database:
  dsn_env: TEST_DATABASE_DSN
budget:
  session_ceiling_dollars: 25
  hourly_cap_dollars: 10
  prices:
    gpt-5:
      input_per_million: 3
      output_per_million: 15
providers:
  - id: primary
    name: Primary
    kind: http
    endpoint_env: TEST_PROVIDER_ENDPOINT
    api_key_env: TEST_PROVIDER_KEY
    model: gpt-5
routing_rules:
  sensitive: primary
companies:
  - id: acme
    agents:
      - id: support-bot
        goal: resolve tickets fast
        optimization_mode: balanced
        constraints:
          - id: no-pii-leak
            description: never echo customer PII
            rule: redact before responding
            category: security
            critical: true
        triggers:
          - id: refund-over-limit
            patterns: ["refund", "chargeback"]
            action: escalate
            priority: 1
        confidence_ranges:
          - min: 0.0
            max: 0.5
            action: escalate
        security:
          allowed_adapter_ids: ["zendesk"]
          max_spend_dollars: 5
`

func writeTestConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "agentruntime.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_ResolvesFullPipeline(t *testing.T) {
	t.Setenv("TEST_DATABASE_DSN", "postgres://localhost/agentruntime")
	t.Setenv("TEST_PROVIDER_ENDPOINT", "https://api.example.com")
	t.Setenv("TEST_PROVIDER_KEY", "sk-test")

	path := writeTestConfig(t, validYAML)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "postgres://localhost/agentruntime", cfg.DatabaseDSN)
	assert.Equal(t, 25.0, cfg.SessionCeilingDollars)
	assert.Equal(t, 10.0, cfg.HourlyCapDollars)
	assert.InDelta(t, 3.0, cfg.BudgetPrices["gpt-5"].InputPerMillion, 1e-9)

	// Unset fields fall back to package defaults (mergo merge over builtins).
	assert.Greater(t, cfg.Breaker.MaxIterations, 0)
	assert.Greater(t, cfg.ApprovalTimeout.Seconds(), 0.0)
	assert.Greater(t, cfg.InterruptTTL.Seconds(), 0.0)

	provider, err := cfg.GetProvider("primary")
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com", provider.Endpoint)
	assert.Equal(t, "sk-test", provider.APIKey)

	assert.Equal(t, "primary", string(cfg.RoutingRules["sensitive"]))

	agent, err := cfg.GetAgent("acme", "support-bot")
	require.NoError(t, err)
	require.Len(t, agent.Constraints, 1)
	assert.Equal(t, "no-pii-leak", agent.Constraints[0].ID)
	require.Len(t, agent.Triggers, 1)
	assert.Equal(t, []string{"refund", "chargeback"}, agent.Triggers[0].Patterns)
	_, allowed := agent.Security.AllowedAdapterIDs["zendesk"]
	assert.True(t, allowed)
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfigNotFound)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeTestConfig(t, "{{{not yaml")
	_, err := Load(path)
	require.Error(t, err)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
}

func TestLoad_MissingRequiredEnvVar(t *testing.T) {
	// TEST_DATABASE_DSN_UNSET is deliberately never set.
	body := `
database:
  dsn_env: TEST_DATABASE_DSN_UNSET
budget:
  session_ceiling_dollars: 10
  hourly_cap_dollars: 5
`
	path := writeTestConfig(t, body)
	_, err := Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingEnvVar)
}

func TestLoad_ValidationFailureOnMissingAgentID(t *testing.T) {
	body := `
database:
  dsn_env: TEST_DATABASE_DSN
budget:
  session_ceiling_dollars: 10
  hourly_cap_dollars: 5
companies:
  - id: acme
    agents:
      - goal: missing its required id field
`
	t.Setenv("TEST_DATABASE_DSN", "postgres://localhost/x")
	path := writeTestConfig(t, body)
	_, err := Load(path)
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}
