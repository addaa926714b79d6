package orchestrator

import "github.com/tarsy-labs/agentruntime/internal/types"

// CascadeFail marks failedTaskID failed (if not already terminal) and
// iteratively fails any pending node all of whose dependencies are now
// failed, per spec §4.6: "a pending node with even one non-failed
// dependency remains pending." Implemented as a non-recursive worklist so a
// long dependency chain cannot blow the stack.
func CascadeFail(dag *types.DAG, failedTaskID string, errMsg string) []string {
	var newlyFailed []string

	seed, ok := dag.Nodes[failedTaskID]
	if ok && seed.Status != types.NodeFailed && seed.Status != types.NodeCompleted {
		seed.Status = types.NodeFailed
		seed.Err = errMsg
		newlyFailed = append(newlyFailed, failedTaskID)
	}

	worklist := []string{failedTaskID}
	for len(worklist) > 0 {
		current := worklist[0]
		worklist = worklist[1:]

		for _, node := range dag.Nodes {
			if node.Status != types.NodePending {
				continue
			}
			if !dependsOn(node, current) {
				continue
			}
			if !allFailed(dag, node.DependencyIDs) {
				continue
			}
			node.Status = types.NodeFailed
			node.Err = "upstream dependency failed"
			newlyFailed = append(newlyFailed, node.TaskID)
			worklist = append(worklist, node.TaskID)
		}
	}

	return newlyFailed
}

func dependsOn(node *types.DAGNode, taskID string) bool {
	for _, id := range node.DependencyIDs {
		if id == taskID {
			return true
		}
	}
	return false
}

func allFailed(dag *types.DAG, depIDs []string) bool {
	for _, id := range depIDs {
		dep, ok := dag.Nodes[id]
		if !ok || dep.Status != types.NodeFailed {
			return false
		}
	}
	return true
}
