package config

import (
	"fmt"
	"os"
	"time"

	"github.com/tarsy-labs/agentruntime/internal/breaker"
	"github.com/tarsy-labs/agentruntime/internal/budget"
	"github.com/tarsy-labs/agentruntime/internal/router"
	"github.com/tarsy-labs/agentruntime/internal/types"
)

// Config is the resolved, ready-to-wire configuration: YAML durations are
// parsed, *_env indirections are resolved against the process environment,
// and package-native types (breaker.Config, budget.ModelPricing, types.
// Constraint, ...) are built so main.go never touches the YAML shape
// directly. Mirrors pkg/config.Config's role as the aggregation point handed
// to every subsystem constructor.
type Config struct {
	HTTPAddr         string
	AllowedWSOrigins []string

	DatabaseDSN string

	BudgetPrices          map[string]budget.ModelPricing
	SessionCeilingDollars float64
	HourlyCapDollars      float64

	Breaker breaker.Config

	ApprovalPollInterval  time.Duration
	ApprovalTimeout       time.Duration
	ApprovalTimeoutAction string

	InterruptTTL time.Duration

	Providers   []Provider
	RoutingRules router.Rules

	Companies map[string]Company
}

// Provider is a resolved LLM backend: env-indirected endpoint/API key
// already read, ready for the llmprovider adapter to dial.
type Provider struct {
	ID           string
	Name         string
	Kind         string
	Endpoint     string
	APIKey       string
	Model        string
	HandlesLocal bool
}

// Company groups the resolved agents operated by one tenant.
type Company struct {
	ID     string
	Agents map[string]Agent
}

// Agent is one resolved agent: its boot-time policy bundle (fed straight
// into policy.Engine.Boot) plus its fixed security posture.
type Agent struct {
	ID               string
	Goal             string
	KeyPeople        []string
	OptimizationMode types.OptimizationMode
	Constraints      []types.Constraint
	Triggers         []types.Trigger
	ConfidenceMap    []types.ConfidenceRange
	Security         types.SecurityContext
}

// GetCompany looks up a company by ID.
func (c *Config) GetCompany(id string) (Company, error) {
	co, ok := c.Companies[id]
	if !ok {
		return Company{}, fmt.Errorf("%w: %s", ErrCompanyNotFound, id)
	}
	return co, nil
}

// GetAgent looks up an agent under companyID.
func (c *Config) GetAgent(companyID, agentID string) (Agent, error) {
	co, err := c.GetCompany(companyID)
	if err != nil {
		return Agent{}, err
	}
	a, ok := co.Agents[agentID]
	if !ok {
		return Agent{}, fmt.Errorf("%w: %s/%s", ErrAgentNotFound, companyID, agentID)
	}
	return a, nil
}

// GetProvider looks up a provider by ID.
func (c *Config) GetProvider(id string) (Provider, error) {
	for _, p := range c.Providers {
		if p.ID == id {
			return p, nil
		}
	}
	return Provider{}, fmt.Errorf("%w: %s", ErrProviderNotFound, id)
}

// resolve converts a validated YAMLConfig into a resolved Config, reading
// every *_env indirection from the process environment.
func resolve(y YAMLConfig) (*Config, error) {
	cfg := &Config{
		HTTPAddr:         y.Server.HTTPAddr,
		AllowedWSOrigins: y.Server.AllowedWSOrigins,
	}

	if y.Database != nil {
		dsn, err := requiredEnv(y.Database.DSNEnv)
		if err != nil {
			return nil, err
		}
		cfg.DatabaseDSN = dsn
	}

	cfg.SessionCeilingDollars = y.Budget.SessionCeilingDollars
	cfg.HourlyCapDollars = y.Budget.HourlyCapDollars
	cfg.BudgetPrices = make(map[string]budget.ModelPricing, len(y.Budget.Prices))
	for model, p := range y.Budget.Prices {
		cfg.BudgetPrices[model] = budget.ModelPricing{
			InputPerMillion:  p.InputPerMillion,
			OutputPerMillion: p.OutputPerMillion,
		}
	}

	bc, err := resolveBreaker(y.Breaker)
	if err != nil {
		return nil, err
	}
	cfg.Breaker = bc

	pollInterval, err := parseDuration(y.Approval.PollInterval, 0)
	if err != nil {
		return nil, NewValidationError("approval", "poll_interval", "poll_interval", err)
	}
	timeout, err := parseDuration(y.Approval.Timeout, 0)
	if err != nil {
		return nil, NewValidationError("approval", "timeout", "timeout", err)
	}
	cfg.ApprovalPollInterval = pollInterval
	cfg.ApprovalTimeout = timeout
	cfg.ApprovalTimeoutAction = y.Approval.TimeoutAction

	interruptTTL, err := parseDuration(y.Interrupt.TTL, 0)
	if err != nil {
		return nil, NewValidationError("interrupt", "ttl", "ttl", err)
	}
	cfg.InterruptTTL = interruptTTL

	providers := make([]Provider, 0, len(y.Providers))
	for _, p := range y.Providers {
		endpoint, err := optionalEnv(p.EndpointEnv)
		if err != nil {
			return nil, err
		}
		apiKey, err := optionalEnv(p.APIKeyEnv)
		if err != nil {
			return nil, err
		}
		providers = append(providers, Provider{
			ID:           p.ID,
			Name:         p.Name,
			Kind:         p.Kind,
			Endpoint:     endpoint,
			APIKey:       apiKey,
			Model:        p.Model,
			HandlesLocal: p.HandlesLocal,
		})
	}
	cfg.Providers = providers

	rules := make(router.Rules, len(y.Routing))
	for classification, providerID := range y.Routing {
		rules[router.Classification(classification)] = providerID
	}
	cfg.RoutingRules = rules

	companies := make(map[string]Company, len(y.Companies))
	for _, c := range y.Companies {
		agents := make(map[string]Agent, len(c.Agents))
		for _, a := range c.Agents {
			agents[a.ID] = resolveAgent(a)
		}
		companies[c.ID] = Company{ID: c.ID, Agents: agents}
	}
	cfg.Companies = companies

	return cfg, nil
}

func resolveBreaker(b *BreakerYAML) (breaker.Config, error) {
	healthWindow, err := parseDuration(b.HealthWindow, breaker.DefaultHealthWindow)
	if err != nil {
		return breaker.Config{}, NewValidationError("breaker", "health_window", "health_window", err)
	}
	recoveryDelay, err := parseDuration(b.RecoveryDelay, breaker.DefaultRecoveryDelay)
	if err != nil {
		return breaker.Config{}, NewValidationError("breaker", "recovery_delay", "recovery_delay", err)
	}
	return breaker.Config{
		MaxIterations:      b.MaxIterations,
		MaxNoProgress:       b.MaxNoProgress,
		DuplicateWindow:    b.DuplicateWindow,
		DuplicateThreshold: b.DuplicateThreshold,
		SoftWarningRatio:   b.SoftWarningRatio,
		HealthWindow:       healthWindow,
		RecoveryDelay:      recoveryDelay,
		MinHealthSamples:   b.MinHealthSamples,
		ErrorRateTrip:      b.ErrorRateTrip,
		P99LatencyTripMS:   b.P99LatencyTripMS,
	}, nil
}

func resolveAgent(a AgentYAML) Agent {
	constraints := make([]types.Constraint, 0, len(a.Constraints))
	for _, c := range a.Constraints {
		constraints = append(constraints, types.Constraint{
			ID:          c.ID,
			Description: c.Description,
			Rule:        c.Rule,
			Category:    types.ConstraintCategory(c.Category),
			Critical:    c.Critical,
		})
	}

	triggers := make([]types.Trigger, 0, len(a.Triggers))
	for _, t := range a.Triggers {
		triggers = append(triggers, types.Trigger{
			ID:          t.ID,
			Description: t.Description,
			Patterns:    t.Patterns,
			Action:      types.TriggerAction(t.Action),
			Priority:    t.Priority,
		})
	}

	confidence := make([]types.ConfidenceRange, 0, len(a.ConfidenceRanges))
	for _, cr := range a.ConfidenceRanges {
		confidence = append(confidence, types.ConfidenceRange{
			Min:    cr.Min,
			Max:    cr.Max,
			Action: types.ConfidenceAction(cr.Action),
		})
	}

	allowed := make(map[string]struct{}, len(a.Security.AllowedAdapterIDs))
	for _, id := range a.Security.AllowedAdapterIDs {
		allowed[id] = struct{}{}
	}

	return Agent{
		ID:               a.ID,
		Goal:             a.Goal,
		KeyPeople:        a.KeyPeople,
		OptimizationMode: types.OptimizationMode(a.OptimizationMode),
		Constraints:      constraints,
		Triggers:         triggers,
		ConfidenceMap:    confidence,
		Security: types.SecurityContext{
			AllowedAdapterIDs: allowed,
			MaxSpendDollars:   a.Security.MaxSpendDollars,
		},
	}
}

func requiredEnv(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: env var name is empty", ErrMissingEnvVar)
	}
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingEnvVar, name)
	}
	return v, nil
}

func optionalEnv(name string) (string, error) {
	if name == "" {
		return "", nil
	}
	v, ok := os.LookupEnv(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingEnvVar, name)
	}
	return v, nil
}
