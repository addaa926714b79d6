package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/tarsy-labs/agentruntime/internal/apperrors"
)

// emptyQueuePollInterval is how long a worker waits after an empty dequeue
// before polling again, mirroring pkg/queue/worker.go's brief-backoff idiom
// (there, a fixed one-second sleep on a processing error).
const emptyQueuePollInterval = 200 * time.Millisecond

// JobResultHandler reacts to a finished pipeline run: updating the owning
// DAG node, rescheduling newly-ready dependents, and cascading failure.
// Declared here rather than depending on a concrete Orchestrator type so
// Worker can be exercised in isolation.
type JobResultHandler interface {
	HandleResult(ctx context.Context, job Job, result PipelineResult, runErr error)
}

// Worker is a single concurrency-1 consumer of the durable job queue (spec
// §4.6 "Worker"); running more than one gives the configurable concurrency
// the same section allows. Grounded on pkg/queue/worker.go's run/sleep
// graceful-shutdown idiom, generalized from ent-backed AlertSession polling
// to the Queue interface.
type Worker struct {
	id       string
	queue    Queue
	pipeline *Pipeline
	handler  JobResultHandler

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	log *slog.Logger
}

// NewWorker constructs a Worker consuming jobs from queue.
func NewWorker(id string, queue Queue, pipeline *Pipeline, handler JobResultHandler, log *slog.Logger) *Worker {
	if log == nil {
		log = slog.Default()
	}
	return &Worker{
		id:       id,
		queue:    queue,
		pipeline: pipeline,
		handler:  handler,
		stopCh:   make(chan struct{}),
		log:      log.With("worker_id", id),
	}
}

// Start begins the worker's polling loop in a goroutine.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop signals the worker to stop and waits for the current job, if any, to
// finish. Safe to call more than once.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()
	w.log.Info("worker started")

	// Dequeue waits on dequeueCtx, which Stop also cancels, so an idle
	// worker returns promptly; a dequeued job still runs under ctx.
	dequeueCtx, cancelDequeue := context.WithCancel(ctx)
	defer cancelDequeue()
	go func() {
		select {
		case <-w.stopCh:
			cancelDequeue()
		case <-dequeueCtx.Done():
		}
	}()

	for {
		select {
		case <-w.stopCh:
			w.log.Info("worker shutting down")
			return
		case <-ctx.Done():
			w.log.Info("context cancelled, worker shutting down")
			return
		default:
			job, ok := w.queue.Dequeue(dequeueCtx)
			if !ok {
				w.sleep(emptyQueuePollInterval)
				continue
			}
			w.processJob(ctx, job)
		}
	}
}

func (w *Worker) sleep(d time.Duration) {
	select {
	case <-w.stopCh:
	case <-time.After(d):
	}
}

func (w *Worker) processJob(ctx context.Context, job Job) {
	log := w.log.With("task_id", job.TaskID, "dag_id", job.DAGID)

	result, err := w.pipeline.Run(ctx, job)
	logFailureSemantics(log, err)

	if w.handler != nil {
		w.handler.HandleResult(ctx, job, result, err)
	}
}

// logFailureSemantics logs a finished job per spec §4.6's classification: a
// hard breaker trip is circuit_breaker_hard_trip, an interrupt is logged
// distinctly so the caller can surface it as user-initiated, everything
// else is task_failed. A nil error logs nothing (success is logged by the
// pipeline's own event publication).
func logFailureSemantics(log *slog.Logger, err error) {
	if err == nil {
		return
	}

	var tripped *apperrors.BreakerTrippedError
	var interrupted *apperrors.InterruptedError
	switch {
	case errors.As(err, &tripped):
		log.Error("circuit_breaker_hard_trip", "reason", tripped.Reason, "iteration", tripped.Iteration)
	case errors.As(err, &interrupted):
		log.Warn("task_interrupted", "reason", interrupted.Reason)
	default:
		log.Error("task_failed", "error", err)
	}
}
