// agentruntime boots the judgment-native agent runtime: it loads the
// resolved configuration, wires the Policy/Budget/Breaker/Router stack and
// the Orchestrator's worker pool, and serves the HTTP/WebSocket API.
package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/tarsy-labs/agentruntime/internal/api"
	"github.com/tarsy-labs/agentruntime/internal/approval"
	"github.com/tarsy-labs/agentruntime/internal/breaker"
	"github.com/tarsy-labs/agentruntime/internal/budget"
	"github.com/tarsy-labs/agentruntime/internal/config"
	"github.com/tarsy-labs/agentruntime/internal/events"
	"github.com/tarsy-labs/agentruntime/internal/interrupt"
	"github.com/tarsy-labs/agentruntime/internal/llmprovider"
	"github.com/tarsy-labs/agentruntime/internal/migrate"
	"github.com/tarsy-labs/agentruntime/internal/orchestrator"
	"github.com/tarsy-labs/agentruntime/internal/policy"
	"github.com/tarsy-labs/agentruntime/internal/reinforce"
	"github.com/tarsy-labs/agentruntime/internal/router"
	"github.com/tarsy-labs/agentruntime/internal/types"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	configFile := flag.String("config-file",
		getEnv("CONFIG_FILE", "config.yaml"),
		"Config file name within config-dir")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("warning: could not load %s: %v", envPath, err)
		log.Printf("continuing with existing environment variables")
	} else {
		log.Printf("loaded environment from %s", envPath)
	}

	cfg, err := config.Load(filepath.Join(*configDir, *configFile))
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()
	if err := db.PingContext(context.Background()); err != nil {
		log.Fatalf("failed to ping database: %v", err)
	}
	logger.Info("connected to postgres")

	if err := migrate.Run(db); err != nil {
		log.Fatalf("failed to run database migrations: %v", err)
	}
	logger.Info("database migrations applied")

	policyEngine := policy.NewEngine()
	constraints, triggers, confidence := mergeBootPolicy(cfg)
	if err := policyEngine.Boot(constraints, triggers, confidence); err != nil {
		log.Fatalf("failed to boot policy engine: %v", err)
	}
	logger.Info("policy engine booted",
		"constraints", len(constraints), "triggers", len(triggers), "confidence_ranges", len(confidence))

	budgetEngine := budget.NewEngine(cfg.BudgetPrices,
		budget.WithSessionCeiling(cfg.SessionCeilingDollars),
		budget.WithHourlyCap(cfg.HourlyCapDollars))

	circuitBreaker := breaker.New(cfg.Breaker)

	providers := buildProviders(cfg.Providers, logger)
	taskRouter := router.New(policyEngine, providers, cfg.RoutingRules)

	approvalStore := approval.NewMemoryStore()
	approvalGate := approval.New(approvalStore, nil, approval.Config{
		PollInterval:  cfg.ApprovalPollInterval,
		Timeout:       cfg.ApprovalTimeout,
		TimeoutAction: cfg.ApprovalTimeoutAction,
	})

	interruptStore := interrupt.New(db)

	publisher := events.NewPublisher(db)
	listener := events.NewListener(cfg.DatabaseDSN, logger)
	if err := listener.Start(context.Background()); err != nil {
		log.Fatalf("failed to start event listener: %v", err)
	}
	defer listener.Stop(context.Background())

	reinforceStore := reinforce.NewMemoryStore()
	reinforceAudit := reinforce.NewMemoryAuditLog()
	reinforcement := reinforcementHook{engine: reinforce.New(reinforceStore, reinforceAudit, logger), log: logger}

	orgProfiles := buildOrgProfiles(cfg)

	pipeline := orchestrator.NewPipeline(orchestrator.Pipeline{
		Policy:         policyEngine,
		Budget:         budgetEngine,
		Breaker:        circuitBreaker,
		Router:         taskRouter,
		Events:         publisher,
		Interrupts:     interruptStore,
		Approval:       approvalGate,
		ActiveContext:  orchestrator.NewInMemoryActiveContextStore(),
		KnowledgeGraph: orchestrator.NoopKnowledgeGraphStore{},
		OrgProfiles:    orgProfiles,
		DecisionLog:    orchestrator.NewInMemoryDecisionLog(),
		Reinforcement:  reinforcement,
		Log:            logger,
	})

	queue := orchestrator.NewChannelQueue(1024)
	orc := orchestrator.New(pipeline, queue, orchestrator.Config{WorkerCount: workerCount(), Log: logger})

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	orc.Start(runCtx)

	server := api.NewServer(api.Deps{
		Orchestrator: orc,
		Interrupts:   interruptStore,
		Approvals:    approvalGate,
		ApprovalRows: approvalStore,
		Listener:     listener,
		Budget:       budgetEngine,
		Model:        firstProviderModel(cfg.Providers),
	})

	addr := cfg.HTTPAddr
	if addr == "" {
		addr = ":8080"
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", addr)
		if err := server.Start(addr); err != nil {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Fatalf("http server error: %v", err)
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig.String())
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("error shutting down http server", "error", err)
	}
	runCancel()
	queue.Close()
}

// mergeBootPolicy unions the constraints, triggers, and confidence ranges
// of every configured agent across every company. The Policy Engine boots
// exactly once per process (policy.Engine.Boot is a single-call lock), so
// a deployment with multiple companies/agents gets the union of their
// policy bundles rather than one engine per agent; IDs are deduplicated so
// a constraint shared by two agents only contributes once.
func mergeBootPolicy(cfg *config.Config) ([]types.Constraint, []types.Trigger, []types.ConfidenceRange) {
	seenConstraint := map[string]struct{}{}
	seenTrigger := map[string]struct{}{}

	var constraints []types.Constraint
	var triggers []types.Trigger
	var confidence []types.ConfidenceRange

	for _, company := range cfg.Companies {
		for _, agent := range company.Agents {
			for _, c := range agent.Constraints {
				if _, ok := seenConstraint[c.ID]; ok {
					continue
				}
				seenConstraint[c.ID] = struct{}{}
				constraints = append(constraints, c)
			}
			for _, t := range agent.Triggers {
				if _, ok := seenTrigger[t.ID]; ok {
					continue
				}
				seenTrigger[t.ID] = struct{}{}
				triggers = append(triggers, t)
			}
			if len(confidence) == 0 {
				confidence = agent.ConfidenceMap
			}
		}
	}
	return constraints, triggers, confidence
}

// buildProviders constructs a router.Provider for each configured backend:
// gRPC-sidecar providers use llmprovider.GRPCProvider, everything else
// dials over HTTP.
func buildProviders(configured []config.Provider, logger *slog.Logger) []router.Provider {
	providers := make([]router.Provider, 0, len(configured))
	for _, p := range configured {
		switch p.Kind {
		case "grpc":
			gp, err := llmprovider.NewGRPCProvider(p.ID, p.Name, p.Endpoint, p.Model, p.HandlesLocal)
			if err != nil {
				logger.Error("failed to construct grpc provider, skipping", "provider", p.ID, "error", err)
				continue
			}
			providers = append(providers, gp)
		default:
			providers = append(providers, llmprovider.NewHTTPProvider(llmprovider.HTTPProviderConfig{
				ID:       p.ID,
				Name:     p.Name,
				Model:    p.Model,
				Endpoint: p.Endpoint,
				APIKey:   p.APIKey,
				Local:    p.HandlesLocal,
			}))
		}
	}
	return providers
}

// buildOrgProfiles seeds a StaticOrgProfileStore from every configured
// agent's goal/key-people, keyed the same way orchestrator.OrgProfileStore
// looks them up.
func buildOrgProfiles(cfg *config.Config) *orchestrator.StaticOrgProfileStore {
	profiles := map[string]orchestrator.OrgProfile{}
	for _, company := range cfg.Companies {
		for _, agent := range company.Agents {
			profiles[company.ID+"/"+agent.ID] = orchestrator.OrgProfile{
				Goal:             agent.Goal,
				KeyPeople:        agent.KeyPeople,
				OptimizationMode: agent.OptimizationMode,
			}
		}
	}
	return orchestrator.NewStaticOrgProfileStore(profiles)
}

func firstProviderModel(providers []config.Provider) string {
	if len(providers) == 0 {
		return ""
	}
	return providers[0].Model
}

func workerCount() int {
	n, err := strconv.Atoi(getEnv("WORKER_COUNT", "1"))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// reinforcementHook adapts reinforce.Engine to orchestrator.ReinforcementHook,
// translating a PipelineOutcome into the reward vector spec §4.8 defines.
// Kept in main.go rather than either package: reinforce has no reason to
// import the orchestrator package for one struct's shape, and orchestrator
// only needs the interface, not a concrete reinforcement implementation.
type reinforcementHook struct {
	engine *reinforce.Engine
	log    *slog.Logger
}

func (h reinforcementHook) Measure(ctx context.Context, outcome orchestrator.PipelineOutcome) {
	escalation := reinforce.EscalationNone
	switch {
	case outcome.Escalated && outcome.Success:
		escalation = reinforce.EscalationWarranted
	case outcome.Escalated && !outcome.Success:
		escalation = reinforce.EscalationWasted
	}

	// PipelineOutcome carries the task's actual dollar cost but not its
	// per-task budget ceiling (that lives in budget.Engine, already spent by
	// the time this hook fires), so cost efficiency falls back to neutral
	// (0) rather than a fabricated ratio.
	reward := reinforce.RewardComponents{
		OutcomeDelta:        reinforce.OutcomeDeltaFallback(outcome.Success),
		CostEfficiency:      0,
		EscalationPrecision: reinforce.EscalationPrecisionFrom(escalation),
		OverridePenalty:     reinforce.OverridePenaltyFrom(outcome.ConstraintViolated),
		CalibrationError:    reinforce.CalibrationErrorFrom(outcome.Confidence, outcome.Success),
	}

	if _, err := h.engine.Update(ctx, reinforce.UpdateInput{
		CompanyID:          outcome.CompanyID,
		AgentID:            outcome.AgentID,
		TaskClassification: outcome.TaskClassification,
		ProviderID:         outcome.ProviderID,
		Reward:             reward,
	}); err != nil {
		h.log.Error("reinforcement update failed", "task_id", outcome.TaskID, "error", err)
	}
}
