package orchestrator

import (
	"context"
	"fmt"

	"github.com/cenkalti/backoff/v4"

	"github.com/tarsy-labs/agentruntime/internal/types"
)

// Job is a dispatched unit of work: enough to run the full task pipeline
// without consulting the DAG again, matching the durable-job shape spec
// §4.6's scheduleReadyTasks names: {task id, agent id, company id, task
// definition, security context}.
type Job struct {
	DAGID     string
	TaskID    string
	AgentID   string
	CompanyID string
	Task      types.TaskDefinition
	Security  types.SecurityContext
}

// Queue is the durable job dispatch surface. Backed by an in-memory
// buffered channel today; swapping in a Postgres-backed claim (the `tasks`
// status column scheduleReadyTasks transitions, per SPEC_FULL §6) only
// requires a new implementation of this interface, not a change to the
// scheduler or worker pool.
type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Dequeue(ctx context.Context) (Job, bool)
	Close()
}

// ChannelQueue is the default Queue: a buffered channel, matching the
// "single concurrency-1 consumer (configurable)" worker shape spec §4.6
// describes before any cross-pod durability requirement is layered on.
type ChannelQueue struct {
	ch chan Job
}

// NewChannelQueue builds a ChannelQueue with the given buffer capacity.
func NewChannelQueue(capacity int) *ChannelQueue {
	return &ChannelQueue{ch: make(chan Job, capacity)}
}

func (q *ChannelQueue) Enqueue(ctx context.Context, job Job) error {
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dequeue blocks until a job is available, the queue is closed, or ctx is
// cancelled. The bool return is false in the latter two cases.
func (q *ChannelQueue) Dequeue(ctx context.Context) (Job, bool) {
	select {
	case job, ok := <-q.ch:
		return job, ok
	case <-ctx.Done():
		return Job{}, false
	}
}

func (q *ChannelQueue) Close() { close(q.ch) }

// DefaultDispatchRetries is spec §4.6's "bounded retries (3 attempts,
// exponential backoff)" for durable job dispatch.
const DefaultDispatchRetries = 3

// enqueueWithRetry attempts to enqueue job up to DefaultDispatchRetries
// times with exponential backoff, the same retry shape
// internal/approval/correction.go and internal/llmprovider/http_provider.go
// use for their own bounded-retry calls.
func enqueueWithRetry(ctx context.Context, q Queue, job Job) error {
	attempt := 0
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), DefaultDispatchRetries-1), ctx)

	return backoff.Retry(func() error {
		attempt++
		if err := q.Enqueue(ctx, job); err != nil {
			return fmt.Errorf("dispatch attempt %d/%d for task %s: %w", attempt, DefaultDispatchRetries, job.TaskID, err)
		}
		return nil
	}, policy)
}
