package config

// YAMLConfig is the top-level shape of agentruntime.yaml, mirroring the
// teacher's TarsyYAMLConfig layout: one file, grouped top-level sections,
// env-var values expanded before parsing.
type YAMLConfig struct {
	Server    *ServerYAML              `yaml:"server"`
	Database  *DatabaseYAML            `yaml:"database"`
	Budget    *BudgetYAML              `yaml:"budget"`
	Breaker   *BreakerYAML             `yaml:"breaker"`
	Approval  *ApprovalYAML            `yaml:"approval"`
	Interrupt *InterruptYAML           `yaml:"interrupt"`
	Providers []ProviderYAML           `yaml:"providers" validate:"dive"`
	Routing   map[string]string        `yaml:"routing_rules"`
	Companies []CompanyYAML            `yaml:"companies" validate:"dive"`
}

// ServerYAML configures the API/WebSocket listener.
type ServerYAML struct {
	HTTPAddr         string   `yaml:"http_addr"`
	AllowedWSOrigins []string `yaml:"allowed_ws_origins"`
}

// DatabaseYAML names the environment variable holding the Postgres DSN,
// the same TokenEnv-indirection idiom the teacher uses for every secret
// (GitHubYAMLConfig.TokenEnv, SlackYAMLConfig.TokenEnv) so no credential
// ever appears in the YAML file itself.
type DatabaseYAML struct {
	DSNEnv string `yaml:"dsn_env" validate:"required"`
}

// ModelPriceYAML is one model's per-million-token input/output rate.
type ModelPriceYAML struct {
	InputPerMillion  float64 `yaml:"input_per_million" validate:"gte=0"`
	OutputPerMillion float64 `yaml:"output_per_million" validate:"gte=0"`
}

// BudgetYAML configures the Budget Engine's static price table and ceilings.
type BudgetYAML struct {
	SessionCeilingDollars float64                   `yaml:"session_ceiling_dollars" validate:"gt=0"`
	HourlyCapDollars      float64                   `yaml:"hourly_cap_dollars" validate:"gt=0"`
	Prices                map[string]ModelPriceYAML `yaml:"prices"`
}

// BreakerYAML configures the Circuit Breaker's iteration/health tunables.
type BreakerYAML struct {
	MaxIterations      int     `yaml:"max_iterations" validate:"gt=0"`
	MaxNoProgress      int     `yaml:"max_no_progress" validate:"gt=0"`
	DuplicateWindow    int     `yaml:"duplicate_window" validate:"gt=0"`
	DuplicateThreshold float64 `yaml:"duplicate_threshold" validate:"gt=0,lte=1"`
	SoftWarningRatio   float64 `yaml:"soft_warning_ratio" validate:"gt=0,lte=1"`
	HealthWindow       string  `yaml:"health_window"`
	RecoveryDelay      string  `yaml:"recovery_delay"`
	MinHealthSamples   int     `yaml:"min_health_samples" validate:"gt=0"`
	ErrorRateTrip      float64 `yaml:"error_rate_trip" validate:"gt=0,lte=1"`
	P99LatencyTripMS   int64   `yaml:"p99_latency_trip_ms" validate:"gt=0"`
}

// ApprovalYAML configures the Approval Gate's polling and timeout behavior.
type ApprovalYAML struct {
	PollInterval  string `yaml:"poll_interval"`
	Timeout       string `yaml:"timeout"`
	TimeoutAction string `yaml:"timeout_action" validate:"omitempty,oneof=reject auto_approve_low_risk"`
}

// InterruptYAML configures the Interrupt Store's halt-record TTL.
type InterruptYAML struct {
	TTL string `yaml:"ttl"`
}

// ProviderYAML registers one LLM backend. APIKeyEnv follows the same
// TokenEnv-indirection idiom as DatabaseYAML.
type ProviderYAML struct {
	ID          string `yaml:"id" validate:"required"`
	Name        string `yaml:"name" validate:"required"`
	Kind        string `yaml:"kind" validate:"required,oneof=http grpc"`
	EndpointEnv string `yaml:"endpoint_env"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model" validate:"required"`
	HandlesLocal bool  `yaml:"handles_local"`
}

// CompanyYAML groups the agents operated by one tenant.
type CompanyYAML struct {
	ID     string      `yaml:"id" validate:"required"`
	Agents []AgentYAML `yaml:"agents" validate:"required,dive"`
}

// AgentYAML is one agent's boot-locked policy bundle plus its descriptive
// org profile (spec §4.1 Policy Engine boot, §4.6 OrgProfile).
type AgentYAML struct {
	ID               string              `yaml:"id" validate:"required"`
	Goal             string              `yaml:"goal"`
	KeyPeople        []string            `yaml:"key_people"`
	OptimizationMode string              `yaml:"optimization_mode" validate:"omitempty,oneof=balanced speed thoroughness cost"`
	Constraints      []ConstraintYAML    `yaml:"constraints" validate:"dive"`
	Triggers         []TriggerYAML       `yaml:"triggers" validate:"dive"`
	ConfidenceRanges []ConfidenceYAML    `yaml:"confidence_ranges" validate:"dive"`
	Security         SecurityYAML        `yaml:"security"`
}

// ConstraintYAML is one boot-locked hard rule.
type ConstraintYAML struct {
	ID          string `yaml:"id" validate:"required"`
	Description string `yaml:"description" validate:"required"`
	Rule        string `yaml:"rule" validate:"required"`
	Category    string `yaml:"category" validate:"required,oneof=security compliance brand operational legal"`
	Critical    bool   `yaml:"critical"`
}

// TriggerYAML is one boot-locked escalation rule.
type TriggerYAML struct {
	ID          string   `yaml:"id" validate:"required"`
	Description string   `yaml:"description"`
	Patterns    []string `yaml:"patterns" validate:"required,min=1"`
	Action      string   `yaml:"action" validate:"required,oneof=escalate pause abort"`
	Priority    int      `yaml:"priority"`
}

// ConfidenceYAML maps a confidence band to an action.
type ConfidenceYAML struct {
	Min    float64 `yaml:"min" validate:"gte=0,lte=1"`
	Max    float64 `yaml:"max" validate:"gte=0,lte=1,gtefield=Min"`
	Action string  `yaml:"action" validate:"required,oneof=act slow_down escalate"`
}

// SecurityYAML is an agent's fixed security posture.
type SecurityYAML struct {
	AllowedAdapterIDs []string `yaml:"allowed_adapter_ids"`
	MaxSpendDollars   float64  `yaml:"max_spend_dollars" validate:"gte=0"`
}
