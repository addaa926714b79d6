package orchestrator

import (
	"context"
	"log/slog"

	"github.com/tarsy-labs/agentruntime/internal/types"
)

// ScheduleReadyTasks finds every pending node in dag whose dependencies are
// all completed, dispatches a durable job for it, and transitions the node
// to in_progress — spec §4.6's scheduleReadyTasks. security supplies the
// per-task SecurityContext keyed by task id (populated at submission time,
// since it expresses the agent/company's fixed security posture rather than
// anything the pipeline computes).
func ScheduleReadyTasks(ctx context.Context, dag *types.DAG, agentID, companyID string, security map[string]types.SecurityContext, q Queue, log *slog.Logger) []string {
	if log == nil {
		log = slog.Default()
	}

	var scheduled []string
	for _, node := range ReadyNodes(dag) {
		job := Job{
			DAGID:     dag.ID,
			TaskID:    node.TaskID,
			AgentID:   agentID,
			CompanyID: companyID,
			Task:      node.Task,
			Security:  security[node.TaskID],
		}

		if err := enqueueWithRetry(ctx, q, job); err != nil {
			log.Error("failed to dispatch task after retries", "task_id", node.TaskID, "error", err)
			CascadeFail(dag, node.TaskID, "dispatch failed: "+err.Error())
			continue
		}

		node.Status = types.NodeInProgress
		scheduled = append(scheduled, node.TaskID)
	}

	return scheduled
}
