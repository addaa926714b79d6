// Package orchestrator implements the Orchestrator (spec §4.6): DAG
// construction and scheduling, the durable job queue and worker pool, the
// 11-step task pipeline, cascade failure, and per-task event publication.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tarsy-labs/agentruntime/internal/apperrors"
	"github.com/tarsy-labs/agentruntime/internal/types"
)

// submission is one registered DAG plus the context scheduling needs: the
// owning agent/company and each task's fixed SecurityContext.
type submission struct {
	dag       *types.DAG
	agentID   string
	companyID string
	security  map[string]types.SecurityContext
}

// Orchestrator owns every in-flight DAG, dispatches durable jobs for ready
// nodes, and reacts to each worker's finished job by updating the DAG,
// cascading failure, and rescheduling newly-ready dependents.
type Orchestrator struct {
	mu          sync.Mutex
	submissions map[string]*submission

	queue   Queue
	workers []*Worker

	log *slog.Logger
}

// Config bundles what New needs beyond the shared Pipeline and Queue: the
// worker pool size (spec §4.6's "configurable" concurrency) and a logger.
type Config struct {
	WorkerCount int
	Log         *slog.Logger
}

// New constructs an Orchestrator and its worker pool, but does not start
// polling — call Start.
func New(pipeline *Pipeline, queue Queue, cfg Config) *Orchestrator {
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	if cfg.WorkerCount < 1 {
		cfg.WorkerCount = 1
	}

	o := &Orchestrator{
		submissions: map[string]*submission{},
		queue:       queue,
		log:         cfg.Log,
	}
	for i := 0; i < cfg.WorkerCount; i++ {
		o.workers = append(o.workers, NewWorker(fmt.Sprintf("worker-%d", i), queue, pipeline, o, cfg.Log))
	}
	return o
}

// Start launches every worker's polling loop.
func (o *Orchestrator) Start(ctx context.Context) {
	for _, w := range o.workers {
		w.Start(ctx)
	}
}

// Stop gracefully stops every worker and closes the queue.
func (o *Orchestrator) Stop() {
	for _, w := range o.workers {
		w.Stop()
	}
	o.queue.Close()
}

// Submit builds a DAG from specs, registers it, and dispatches its
// dependency-free roots, returning the fresh DAG id (spec §4.6 buildDAG +
// the first scheduleReadyTasks pass).
func (o *Orchestrator) Submit(ctx context.Context, specs []TaskSpec, agentID, companyID string) (string, error) {
	dag, err := BuildDAG(specs)
	if err != nil {
		return "", fmt.Errorf("submit: %w", err)
	}

	security := make(map[string]types.SecurityContext, len(specs))
	// BuildDAG assigns ids in the same order specs are walked internally, but
	// the only id a caller can correlate back to a TaskSpec is via dag.Nodes'
	// Task contents; match on spec text + dependency count, which is unique
	// enough for the synthetic-key construction Submit itself controls.
	for _, node := range dag.Nodes {
		for _, s := range specs {
			if s.Definition.SpecText == node.Task.SpecText && len(s.DependencyKeys) == len(node.DependencyIDs) {
				security[node.TaskID] = s.Security
				break
			}
		}
	}

	o.mu.Lock()
	o.submissions[dag.ID] = &submission{dag: dag, agentID: agentID, companyID: companyID, security: security}
	o.mu.Unlock()

	o.dispatchReady(ctx, dag.ID)
	return dag.ID, nil
}

// DAG returns the live DAG for id, for status inspection by the API layer.
func (o *Orchestrator) DAG(id string) (*types.DAG, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	sub, ok := o.submissions[id]
	if !ok {
		return nil, false
	}
	return sub.dag, true
}

// ActiveTaskIDs returns every task id across every registered DAG that is
// pending or in progress, for GET /api/status's activeTasks field.
func (o *Orchestrator) ActiveTaskIDs() []string {
	o.mu.Lock()
	defer o.mu.Unlock()

	var ids []string
	for _, sub := range o.submissions {
		for taskID, node := range sub.dag.Nodes {
			if node.Status == types.NodePending || node.Status == types.NodeInProgress {
				ids = append(ids, taskID)
			}
		}
	}
	return ids
}

func (o *Orchestrator) dispatchReady(ctx context.Context, dagID string) {
	o.mu.Lock()
	sub, ok := o.submissions[dagID]
	o.mu.Unlock()
	if !ok {
		return
	}
	ScheduleReadyTasks(ctx, sub.dag, sub.agentID, sub.companyID, sub.security, o.queue, o.log)
}

// HandleResult implements JobResultHandler: it marks the finished node
// terminal, cascades failure to dependents, and dispatches any node the
// completion or failure left ready.
func (o *Orchestrator) HandleResult(ctx context.Context, job Job, result PipelineResult, runErr error) {
	o.mu.Lock()
	sub, ok := o.submissions[job.DAGID]
	o.mu.Unlock()
	if !ok {
		o.log.Warn("result for unknown dag", "dag_id", job.DAGID, "task_id", job.TaskID)
		return
	}

	node, ok := sub.dag.Nodes[job.TaskID]
	if !ok {
		o.log.Warn("result for unknown task", "dag_id", job.DAGID, "task_id", job.TaskID)
		return
	}

	if runErr != nil {
		if isInterrupt(runErr) {
			node.Status = types.NodeInterrupted
			node.Err = runErr.Error()
		} else {
			CascadeFail(sub.dag, job.TaskID, runErr.Error())
		}
	} else {
		node.Status = types.NodeCompleted
		node.Result = &result.Lensed
	}

	o.dispatchReady(ctx, job.DAGID)
}

func isInterrupt(err error) bool {
	var interrupted *apperrors.InterruptedError
	return errors.As(err, &interrupted)
}
