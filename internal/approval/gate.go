package approval

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Config bundles the Gate's tunables.
type Config struct {
	PollInterval  time.Duration
	Timeout       time.Duration
	TimeoutAction TimeoutAction
}

// DefaultConfig returns the spec-mandated defaults.
func DefaultConfig() Config {
	return Config{
		PollInterval:  DefaultPollInterval,
		Timeout:       DefaultTimeout,
		TimeoutAction: TimeoutActionReject,
	}
}

// CorrectionForwarder submits a reviewer's correction text to the training
// service. Implemented by internal/approval's HTTPCorrectionForwarder;
// Gate only depends on the interface so tests can stub it out.
type CorrectionForwarder interface {
	Forward(ctx context.Context, taskID, agentID, correction string) error
}

// Gate is the Approval Gate. One Gate instance is shared across the process;
// RequestApproval is safe to call concurrently for independent tasks.
type Gate struct {
	cfg        Config
	store      Store
	forwarder  CorrectionForwarder
	log        *slog.Logger
}

// New constructs a Gate. forwarder may be nil (corrections are persisted but
// never POSTed, e.g. in tests).
func New(store Store, forwarder CorrectionForwarder, cfg Config) *Gate {
	return &Gate{cfg: cfg, store: store, forwarder: forwarder, log: slog.With("component", "approval_gate")}
}

// RequestApproval inserts a pending row and blocks (polling at PollInterval)
// until the row is approved, rejected, or the gate's Timeout elapses, at
// which point TimeoutAction resolves it. Returns early if ctx is cancelled
// (the row is left pending for a later poller/resume to pick up).
func (g *Gate) RequestApproval(ctx context.Context, taskID, agentID, reason string) (Result, error) {
	now := time.Now()
	req := Request{
		ID:        uuid.NewString(),
		TaskID:    taskID,
		AgentID:   agentID,
		Reason:    reason,
		Status:    StatusPending,
		CreatedAt: now,
		TimeoutAt: now.Add(g.cfg.Timeout),
	}
	if err := g.store.Insert(ctx, req); err != nil {
		return Result{}, err
	}
	g.log.Info("approval requested", "request_id", req.ID, "task_id", taskID, "agent_id", agentID)

	ticker := time.NewTicker(g.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-ticker.C:
			res, resolved, err := g.pollOnce(ctx, req.ID)
			if err != nil {
				return Result{}, err
			}
			if resolved {
				return res, nil
			}
		}
	}
}

// pollOnce fetches the current row state; if it's still pending but past its
// deadline, it resolves it via TimeoutAction; otherwise it reports whatever
// terminal state (if any) a human resolver already wrote.
func (g *Gate) pollOnce(ctx context.Context, id string) (Result, bool, error) {
	current, err := g.store.Get(ctx, id)
	if err != nil {
		return Result{}, false, err
	}

	switch current.Status {
	case StatusApproved, StatusRejected, StatusTimedOut:
		return g.finalize(ctx, current), true, nil
	}

	if time.Now().Before(current.TimeoutAt) {
		return Result{}, false, nil
	}

	resolved, err := g.resolveTimeout(ctx, id)
	if err != nil {
		if err == ErrNotPending {
			// A human resolution landed between Get and ResolveIfPending; refetch.
			latest, getErr := g.store.Get(ctx, id)
			if getErr != nil {
				return Result{}, false, getErr
			}
			return g.finalize(ctx, latest), true, nil
		}
		return Result{}, false, err
	}
	return g.finalize(ctx, resolved), true, nil
}

func (g *Gate) resolveTimeout(ctx context.Context, id string) (Request, error) {
	status := StatusTimedOut
	reason := "timeout: no reviewer response within deadline"
	if g.cfg.TimeoutAction == TimeoutActionAutoApproveLow {
		status = StatusApproved
		reason = "timeout: auto-approved (low risk policy)"
	}
	g.log.Warn("approval request timed out", "request_id", id, "action", g.cfg.TimeoutAction)
	return g.store.ResolveIfPending(ctx, id, status, "system:timeout", reason, "", true)
}

func (g *Gate) finalize(ctx context.Context, req Request) Result {
	if req.CorrectionContent != "" && !req.CorrectionIncorporated && g.forwarder != nil {
		if err := g.forwarder.Forward(ctx, req.TaskID, req.AgentID, req.CorrectionContent); err != nil {
			g.log.Error("failed to forward correction to training service", "request_id", req.ID, "error", err)
		} else {
			req.CorrectionIncorporated = true
		}
	}
	return Result{
		Approved:          req.Status == StatusApproved,
		ResolvedBy:        req.ResolvedBy,
		ResolvedAt:        req.ResolvedAt,
		Reason:            req.ResolutionReason,
		CorrectionContent: req.CorrectionContent,
		AutoResolved:      req.AutoResolved,
	}
}

// Resolve is called by a human reviewer (via the API layer) to approve or
// reject a pending request, optionally attaching correction text.
func (g *Gate) Resolve(ctx context.Context, id, resolvedBy string, approve bool, reason, correction string) (Result, error) {
	status := StatusRejected
	if approve {
		status = StatusApproved
	}
	req, err := g.store.ResolveIfPending(ctx, id, status, resolvedBy, reason, correction, false)
	if err != nil {
		return Result{}, err
	}
	return g.finalize(ctx, req), nil
}
