// Package approval implements the Approval Gate: it pauses a task for human
// review, persists the request durably, polls for resolution, and forwards
// any reviewer correction as a training signal. The poll-loop/graceful-stop
// idiom is grounded on pkg/queue/worker.go's Worker.run.
package approval

import (
	"context"
	"errors"
	"time"
)

// Status is the approval queue row's lifecycle state (spec §4.4 state machine).
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusTimedOut Status = "timed_out"
)

// TimeoutAction decides what happens when a pending request outlives Config.Timeout.
type TimeoutAction string

const (
	TimeoutActionReject          TimeoutAction = "reject"
	TimeoutActionAutoApproveLow  TimeoutAction = "auto_approve_low_risk"
)

// Defaults per spec §4.4.
const (
	DefaultPollInterval = 5 * time.Second
	DefaultTimeout      = 4 * time.Hour
)

// ErrNotPending is returned by Resolve when the row was already resolved
// (by another resolver or by the timeout poller) before this call landed.
var ErrNotPending = errors.New("approval gate: request is not pending")

// Request is one durable row in the approval queue.
type Request struct {
	ID                     string
	TaskID                 string
	AgentID                string
	Reason                 string
	Status                 Status
	ResolvedBy             string
	ResolvedAt             time.Time
	ResolutionReason       string
	CorrectionContent      string
	CorrectionIncorporated bool
	AutoResolved           bool
	CreatedAt              time.Time
	TimeoutAt              time.Time
}

// Result is the contract's return value, handed back to whatever caller is
// blocked inside RequestApproval.
type Result struct {
	Approved          bool
	ResolvedBy        string
	ResolvedAt        time.Time
	Reason            string
	CorrectionContent string
	AutoResolved      bool
}

// Store is the approval-queue persistence boundary. The `approval_queue`
// table has an ent schema (ent/schema/approvalrequest.go), but no ent-backed
// Store exists; the process and the tests use the in-memory MemoryStore in
// this package, so pending requests do not survive a restart.
type Store interface {
	Insert(ctx context.Context, req Request) error
	Get(ctx context.Context, id string) (Request, error)
	// ResolveIfPending atomically transitions a pending row to status,
	// returning ErrNotPending if the row was no longer pending (guards the
	// race between a human resolution and the timeout poller).
	ResolveIfPending(ctx context.Context, id string, status Status, resolvedBy, reason, correction string, autoResolved bool) (Request, error)
	// FindPendingByTask looks up the (at most one) pending request for a
	// task, used by the API layer to resolve approve/decline actions that
	// name the task rather than the request.
	FindPendingByTask(ctx context.Context, taskID string) (Request, error)
}
