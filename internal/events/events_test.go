package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarsy-labs/agentruntime/internal/types"
)

func TestTaskChannel(t *testing.T) {
	assert.Equal(t, "agentruntime_task_abc-123", TaskChannel("abc-123"))
}

func TestIsPersistent(t *testing.T) {
	assert.False(t, isPersistent(types.EventStream))
	assert.True(t, isPersistent(types.EventStatus))
	assert.True(t, isPersistent(types.EventToolCall))
	assert.True(t, isPersistent(types.EventApprovalNeeded))
	assert.True(t, isPersistent(types.EventDone))
	assert.True(t, isPersistent(types.EventError))
}

func TestTruncateIfNeeded_PassesThroughSmallPayload(t *testing.T) {
	ev := types.Event{Kind: types.EventStatus, TaskID: "t-1", Status: "in_progress", Timestamp: time.Unix(0, 0)}
	payload, err := json.Marshal(ev)
	require.NoError(t, err)

	result, err := truncateIfNeeded(payload)
	require.NoError(t, err)
	assert.Contains(t, result, "t-1")
	assert.NotContains(t, result, "truncated")
}

func TestTruncateIfNeeded_TruncatesOversizedPayload(t *testing.T) {
	big := make([]byte, pgNotifyByteLimit+500)
	for i := range big {
		big[i] = 'x'
	}
	ev := types.Event{Kind: types.EventStream, TaskID: "t-2", Chunk: string(big)}
	payload, err := json.Marshal(ev)
	require.NoError(t, err)
	require.Greater(t, len(payload), pgNotifyByteLimit)

	result, err := truncateIfNeeded(payload)
	require.NoError(t, err)
	assert.Less(t, len(result), pgNotifyByteLimit)
	assert.Contains(t, result, `"truncated":true`)
	assert.Contains(t, result, "t-2")

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(result), &decoded))
	assert.Equal(t, "t-2", decoded["TaskID"])
	assert.Equal(t, string(types.EventStream), decoded["Kind"])
}

func TestTruncateIfNeeded_BoundaryExactLimitNotTruncated(t *testing.T) {
	base := types.Event{Kind: types.EventStatus, TaskID: "t"}
	baseLen := mustLen(t, base)
	padding := pgNotifyByteLimit - baseLen
	require.Positive(t, padding)

	ev := types.Event{Kind: types.EventStatus, TaskID: "t", Status: padString(padding)}
	payload, err := json.Marshal(ev)
	require.NoError(t, err)
	require.LessOrEqual(t, len(payload), pgNotifyByteLimit)

	result, err := truncateIfNeeded(payload)
	require.NoError(t, err)
	assert.NotContains(t, result, "truncated")
}

func mustLen(t *testing.T, ev types.Event) int {
	t.Helper()
	b, err := json.Marshal(ev)
	require.NoError(t, err)
	return len(b)
}

func padString(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = 'a'
	}
	return string(b)
}
