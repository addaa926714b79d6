// Package events implements the Orchestrator's event publication: the
// tagged-union Event stream (spec §3/§4.6 "every status transition... is
// published on the per-task channel") delivered over Postgres LISTEN/NOTIFY,
// grounded directly on pkg/events (persistAndNotify/notifyOnly, transactional
// pg_notify, per-task channel naming).
package events

import "fmt"

// GlobalChannel carries transient orchestrator-wide notifications (e.g. for
// a dashboard's "active tasks" list), mirroring pkg/events.GlobalSessionsChannel.
const GlobalChannel = "agentruntime_tasks"

// TaskChannel returns the Postgres NOTIFY channel name for one task's event
// stream, mirroring pkg/events.SessionChannel's naming idiom.
func TaskChannel(taskID string) string {
	return fmt.Sprintf("agentruntime_task_%s", taskID)
}

// pgNotifyByteLimit is Postgres's NOTIFY payload size limit; payloads over
// this are replaced with a truncation envelope carrying only routing fields,
// exactly as pkg/events.truncateIfNeeded does.
const pgNotifyByteLimit = 7900
