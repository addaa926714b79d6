package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarsy-labs/agentruntime/internal/apperrors"
	"github.com/tarsy-labs/agentruntime/internal/types"
)

func TestOrchestrator_SubmitDispatchesRootsAndCompletesDAG(t *testing.T) {
	p, _ := testPipeline(t, "summary text", "mock-model")
	o := New(p, NewChannelQueue(4), Config{WorkerCount: 1})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	o.Start(ctx)
	defer o.Stop()

	specs := []TaskSpec{
		{Key: "a", Definition: types.TaskDefinition{SpecText: "summarize the quarterly report", EstimatedDollars: 1}},
		{Key: "b", Definition: types.TaskDefinition{SpecText: "summarize the quarterly report", EstimatedDollars: 1}, DependencyKeys: []string{"a"}},
	}

	dagID, err := o.Submit(ctx, specs, "agent-1", "company-1")
	require.NoError(t, err)

	dag, ok := o.DAG(dagID)
	require.True(t, ok)
	assert.Len(t, dag.Nodes, 2)

	require.Eventually(t, func() bool {
		dag, _ := o.DAG(dagID)
		for _, n := range dag.Nodes {
			if n.Status != types.NodeCompleted {
				return false
			}
		}
		return true
	}, time.Second, 5*time.Millisecond, "both tasks should complete once their dependencies clear")
}

func TestOrchestrator_DAG_UnknownIDReturnsFalse(t *testing.T) {
	p, _ := testPipeline(t, "ok", "mock-model")
	o := New(p, NewChannelQueue(1), Config{})

	_, ok := o.DAG("does-not-exist")
	assert.False(t, ok)
}

func TestOrchestrator_HandleResult_CascadesFailureToDependents(t *testing.T) {
	p, _ := testPipeline(t, "ok", "mock-model")
	o := New(p, NewChannelQueue(4), Config{WorkerCount: 0})

	dag, err := BuildDAG([]TaskSpec{
		{Key: "a", Definition: types.TaskDefinition{}},
		{Key: "b", Definition: types.TaskDefinition{}, DependencyKeys: []string{"a"}},
	})
	require.NoError(t, err)

	o.mu.Lock()
	o.submissions[dag.ID] = &submission{dag: dag, agentID: "agent-1", companyID: "company-1", security: nil}
	o.mu.Unlock()

	rootID := dag.Roots[0]
	var childID string
	for id := range dag.Nodes {
		if id != rootID {
			childID = id
		}
	}

	job := Job{DAGID: dag.ID, TaskID: rootID}
	o.HandleResult(context.Background(), job, PipelineResult{}, assertableErr{})

	assert.Equal(t, types.NodeFailed, dag.Nodes[rootID].Status)
	assert.Equal(t, types.NodeFailed, dag.Nodes[childID].Status, "child cascades from its only dependency failing")
}

func TestOrchestrator_HandleResult_InterruptDoesNotCascade(t *testing.T) {
	p, _ := testPipeline(t, "ok", "mock-model")
	o := New(p, NewChannelQueue(4), Config{WorkerCount: 0})

	dag, err := BuildDAG([]TaskSpec{
		{Key: "a", Definition: types.TaskDefinition{}},
		{Key: "b", Definition: types.TaskDefinition{}, DependencyKeys: []string{"a"}},
	})
	require.NoError(t, err)

	o.mu.Lock()
	o.submissions[dag.ID] = &submission{dag: dag, agentID: "agent-1", companyID: "company-1", security: nil}
	o.mu.Unlock()

	rootID := dag.Roots[0]
	var childID string
	for id := range dag.Nodes {
		if id != rootID {
			childID = id
		}
	}

	job := Job{DAGID: dag.ID, TaskID: rootID}
	o.HandleResult(context.Background(), job, PipelineResult{}, &apperrors.InterruptedError{Reason: "user"})

	assert.Equal(t, types.NodeInterrupted, dag.Nodes[rootID].Status)
	assert.Equal(t, types.NodePending, dag.Nodes[childID].Status, "an interrupt pauses, it does not cascade failure")
}

func TestOrchestrator_HandleResult_UnknownDAGIsIgnored(t *testing.T) {
	p, _ := testPipeline(t, "ok", "mock-model")
	o := New(p, NewChannelQueue(1), Config{})

	assert.NotPanics(t, func() {
		o.HandleResult(context.Background(), Job{DAGID: "ghost", TaskID: "t1"}, PipelineResult{}, nil)
	})
}
