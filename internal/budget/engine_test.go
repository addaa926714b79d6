package budget

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testPrices() map[string]ModelPricing {
	return map[string]ModelPricing{
		"gpt-expensive": {InputPerMillion: 10, OutputPerMillion: 30},
		"gpt-cheap":     {InputPerMillion: 0.5, OutputPerMillion: 1.5},
	}
}

func TestEstimateCost_UnknownModelFallsBackToCheapest(t *testing.T) {
	e := NewEngine(testPrices())
	cheap := e.EstimateCost("gpt-cheap", 1_000_000, 0)
	unknown := e.EstimateCost("totally-unknown-model", 1_000_000, 0)
	assert.Equal(t, cheap, unknown)
}

func TestCheckBudget_TaskCapShortCircuits(t *testing.T) {
	e := NewEngine(testPrices(), WithSessionCeiling(1000), WithHourlyCap(1000))
	res := e.CheckBudget("t1", "a1", 5.0, 6.0)
	assert.False(t, res.Allowed)
	assert.Contains(t, res.Reason, "task budget")
}

func TestCheckBudget_SessionCeiling_ExactBoundaryAllowsZero(t *testing.T) {
	e := NewEngine(testPrices(), WithSessionCeiling(10), WithHourlyCap(1000))
	e.RecordCost(Record{TaskID: "t1", AgentID: "a1", Dollars: 10, Timestamp: time.Now()})

	// Exactly at ceiling: a zero-cost estimate is allowed.
	res := e.CheckBudget("t2", "a1", 0, 0)
	assert.True(t, res.Allowed)

	// Any positive estimate is blocked.
	res2 := e.CheckBudget("t2", "a1", 0, 0.01)
	assert.False(t, res2.Allowed)
	assert.Contains(t, res2.Reason, "session ceiling")
}

func TestCheckBudget_HourlyCap(t *testing.T) {
	e := NewEngine(testPrices(), WithSessionCeiling(1000), WithHourlyCap(5))
	e.RecordCost(Record{TaskID: "t1", AgentID: "a1", Dollars: 4.5, Timestamp: time.Now()})

	res := e.CheckBudget("t2", "a1", 0, 1)
	assert.False(t, res.Allowed)
	assert.Contains(t, res.Reason, "rolling-hour")
}

func TestCheckBudget_HourlyWindowExpires(t *testing.T) {
	e := NewEngine(testPrices(), WithSessionCeiling(1000), WithHourlyCap(5))
	e.RecordCost(Record{TaskID: "t1", AgentID: "a1", Dollars: 4.9, Timestamp: time.Now().Add(-2 * time.Hour)})

	res := e.CheckBudget("t2", "a1", 0, 4)
	assert.True(t, res.Allowed)
}

func TestRecordCost_UpdatesAggregates(t *testing.T) {
	e := NewEngine(testPrices())
	e.RecordCost(Record{TaskID: "t1", AgentID: "a1", Dollars: 1.23, Timestamp: time.Now()})
	assert.Equal(t, 1.23, e.TaskSpend("t1"))
	assert.Equal(t, 1.23, e.SessionSpend("a1"))
}

func TestRemainingBudget(t *testing.T) {
	e := NewEngine(testPrices(), WithSessionCeiling(10))
	assert.Equal(t, 10.0, e.RemainingBudget("a1"))

	e.RecordCost(Record{TaskID: "t1", AgentID: "a1", Dollars: 4, Timestamp: time.Now()})
	assert.Equal(t, 6.0, e.RemainingBudget("a1"))
}
