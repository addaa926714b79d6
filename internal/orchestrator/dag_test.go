package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarsy-labs/agentruntime/internal/types"
)

func TestBuildDAG_RootsAndDependencyResolution(t *testing.T) {
	dag, err := BuildDAG([]TaskSpec{
		{Key: "a", Definition: types.TaskDefinition{SpecText: "fetch data"}},
		{Key: "b", Definition: types.TaskDefinition{SpecText: "summarize"}, DependencyKeys: []string{"a"}},
	})
	require.NoError(t, err)
	require.Len(t, dag.Nodes, 2)
	assert.Len(t, dag.Roots, 1)

	var rootID string
	for _, id := range dag.Roots {
		rootID = id
	}
	root := dag.Nodes[rootID]
	assert.Equal(t, "fetch data", root.Task.SpecText)

	var child *types.DAGNode
	for id, n := range dag.Nodes {
		if id != rootID {
			child = n
		}
	}
	require.NotNil(t, child)
	assert.Equal(t, []string{rootID}, child.DependencyIDs)
}

func TestBuildDAG_DuplicateKeyErrors(t *testing.T) {
	_, err := BuildDAG([]TaskSpec{
		{Key: "a", Definition: types.TaskDefinition{}},
		{Key: "a", Definition: types.TaskDefinition{}},
	})
	assert.Error(t, err)
}

func TestBuildDAG_UnknownDependencyKeyErrors(t *testing.T) {
	_, err := BuildDAG([]TaskSpec{
		{Key: "a", Definition: types.TaskDefinition{}, DependencyKeys: []string{"ghost"}},
	})
	assert.Error(t, err)
}

func TestReadyNodes_OnlyRootsReadyInitially(t *testing.T) {
	dag, err := BuildDAG([]TaskSpec{
		{Key: "a", Definition: types.TaskDefinition{}},
		{Key: "b", Definition: types.TaskDefinition{}, DependencyKeys: []string{"a"}},
	})
	require.NoError(t, err)

	ready := ReadyNodes(dag)
	require.Len(t, ready, 1)
	assert.Equal(t, dag.Roots[0], ready[0].TaskID)
}

func TestReadyNodes_ChildReadyAfterParentCompletes(t *testing.T) {
	dag, err := BuildDAG([]TaskSpec{
		{Key: "a", Definition: types.TaskDefinition{}},
		{Key: "b", Definition: types.TaskDefinition{}, DependencyKeys: []string{"a"}},
	})
	require.NoError(t, err)

	dag.Nodes[dag.Roots[0]].Status = types.NodeCompleted

	ready := ReadyNodes(dag)
	require.Len(t, ready, 1)
	assert.NotEqual(t, dag.Roots[0], ready[0].TaskID)
}
