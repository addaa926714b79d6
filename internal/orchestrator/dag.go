package orchestrator

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/tarsy-labs/agentruntime/internal/types"
)

// TaskSpec is one task submission item: a caller-chosen correlation key
// (unique within the submission) plus its definition and the keys of tasks
// it depends on. buildDAG assigns the fresh, persistent task ids spec §4.6
// calls for; Key exists only to let callers express dependency edges before
// those ids exist.
type TaskSpec struct {
	Key            string
	Definition     types.TaskDefinition
	DependencyKeys []string
	Security       types.SecurityContext
}

// BuildDAG assigns fresh task ids, resolves dependency edges, and places
// dependency-free tasks as roots, mirroring spec §4.6's buildDAG.
func BuildDAG(specs []TaskSpec) (*types.DAG, error) {
	dag := &types.DAG{
		ID:    uuid.New().String(),
		Nodes: make(map[string]*types.DAGNode, len(specs)),
	}

	idByKey := make(map[string]string, len(specs))
	for _, s := range specs {
		if _, dup := idByKey[s.Key]; dup {
			return nil, fmt.Errorf("buildDAG: duplicate task key %q", s.Key)
		}
		idByKey[s.Key] = uuid.New().String()
	}

	for _, s := range specs {
		taskID := idByKey[s.Key]

		depIDs := make([]string, 0, len(s.DependencyKeys))
		for _, depKey := range s.DependencyKeys {
			depID, ok := idByKey[depKey]
			if !ok {
				return nil, fmt.Errorf("buildDAG: task %q depends on unknown key %q", s.Key, depKey)
			}
			depIDs = append(depIDs, depID)
		}

		def := s.Definition
		def.DependencyIDs = depIDs

		dag.Nodes[taskID] = &types.DAGNode{
			TaskID:        taskID,
			Task:          def,
			DependencyIDs: depIDs,
			Status:        types.NodePending,
		}

		if len(depIDs) == 0 {
			dag.Roots = append(dag.Roots, taskID)
		}
	}

	return dag, nil
}

// ReadyNodes returns the pending nodes whose dependencies are all completed,
// the set scheduleReadyTasks dispatches on each scheduling pass.
func ReadyNodes(dag *types.DAG) []*types.DAGNode {
	var ready []*types.DAGNode
	for _, node := range dag.Nodes {
		if node.Status != types.NodePending {
			continue
		}
		if allCompleted(dag, node.DependencyIDs) {
			ready = append(ready, node)
		}
	}
	return ready
}

func allCompleted(dag *types.DAG, depIDs []string) bool {
	for _, id := range depIDs {
		dep, ok := dag.Nodes[id]
		if !ok || dep.Status != types.NodeCompleted {
			return false
		}
	}
	return true
}
