package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarsy-labs/agentruntime/internal/types"
)

func TestScheduleReadyTasks_DispatchesRootsAndTransitionsStatus(t *testing.T) {
	dag, err := BuildDAG([]TaskSpec{
		{Key: "a", Definition: types.TaskDefinition{}},
		{Key: "b", Definition: types.TaskDefinition{}, DependencyKeys: []string{"a"}},
	})
	require.NoError(t, err)

	q := NewChannelQueue(4)
	scheduled := ScheduleReadyTasks(context.Background(), dag, "agent-1", "company-1", nil, q, nil)

	require.Len(t, scheduled, 1)
	assert.Equal(t, dag.Roots[0], scheduled[0])
	assert.Equal(t, types.NodeInProgress, dag.Nodes[dag.Roots[0]].Status)
	assert.Equal(t, types.NodePending, dag.Nodes[childOf(dag, dag.Roots[0])].Status, "b isn't ready until a completes")

	job, ok := q.Dequeue(context.Background())
	require.True(t, ok)
	assert.Equal(t, dag.Roots[0], job.TaskID)
	assert.Equal(t, "agent-1", job.AgentID)
}

func TestScheduleReadyTasks_DispatchFailureCascadesFailure(t *testing.T) {
	dag, err := BuildDAG([]TaskSpec{
		{Key: "a", Definition: types.TaskDefinition{}},
		{Key: "b", Definition: types.TaskDefinition{}, DependencyKeys: []string{"a"}},
	})
	require.NoError(t, err)

	q := NewChannelQueue(0) // unbuffered, unconsumed: every enqueue blocks until ctx is cancelled
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	scheduled := ScheduleReadyTasks(ctx, dag, "agent-1", "company-1", nil, q, nil)
	assert.Empty(t, scheduled)
	assert.Equal(t, types.NodeFailed, dag.Nodes[dag.Roots[0]].Status)
	assert.Equal(t, types.NodeFailed, dag.Nodes[childOf(dag, dag.Roots[0])].Status, "b's only dependency (a) failed, so it cascades")
}

func childOf(dag *types.DAG, parentID string) string {
	for id, n := range dag.Nodes {
		for _, dep := range n.DependencyIDs {
			if dep == parentID {
				return id
			}
		}
	}
	return ""
}
