package router

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarsy-labs/agentruntime/internal/types"
)

type stubPolicy struct {
	constraintMsg types.TaggedMessage
	lensed        types.LensedResult
}

func (s stubPolicy) BuildConstraintRejectionMessage() (types.TaggedMessage, error) {
	return s.constraintMsg, nil
}

func (s stubPolicy) ValidateOutput(completionText string, confidence *float64) (types.LensedResult, error) {
	out := s.lensed
	out.Text = completionText
	return out, nil
}

type mockProvider struct {
	id          string
	handles     bool
	lastMessages []types.TaggedMessage
}

func (m *mockProvider) ID() string   { return m.id }
func (m *mockProvider) Name() string { return m.id }
func (m *mockProvider) CanHandle(ClassifiedTask) bool { return m.handles }
func (m *mockProvider) EstimateCost(string, int) CostEstimate { return CostEstimate{} }
func (m *mockProvider) Health(context.Context) ProviderHealth { return ProviderHealth{Healthy: true} }

func (m *mockProvider) Complete(_ context.Context, _ string, messages []types.TaggedMessage, _ CompleteOptions) (types.CompletionResult, error) {
	m.lastMessages = messages
	return types.CompletionResult{Text: "hello from " + m.id, Model: "mock-model", ProviderID: m.id, StopReason: types.StopEndTurn}, nil
}

func TestRoute_PrependsConstraintMessage(t *testing.T) {
	constraintMsg := types.TaggedMessage{Role: types.RoleSystem, Content: "obey constraints", Source: types.SourceSystem}
	p := &mockProvider{id: "p1", handles: true}
	r := New(stubPolicy{constraintMsg: constraintMsg}, []Provider{p}, nil)

	_, err := r.Route(context.Background(), "sys", []types.TaggedMessage{{Role: types.RoleUser, Content: "do thing"}}, Options{}, "summarize this document")
	require.NoError(t, err)

	require.Len(t, p.lastMessages, 2)
	assert.Equal(t, constraintMsg, p.lastMessages[0])
}

func TestRoute_PreferredProviderWinsWhenItCanHandle(t *testing.T) {
	preferred := &mockProvider{id: "preferred", handles: true}
	fallback := &mockProvider{id: "fallback", handles: true}
	r := New(stubPolicy{}, []Provider{fallback, preferred}, Rules{ClassStandard: "preferred"})

	lensed, err := r.Route(context.Background(), "sys", nil, Options{}, "do something ambiguous")
	require.NoError(t, err)
	assert.Equal(t, "hello from preferred", lensed.Text)
}

func TestRoute_FallsBackWhenPreferredCannotHandle(t *testing.T) {
	preferred := &mockProvider{id: "preferred", handles: false}
	fallback := &mockProvider{id: "fallback", handles: true}
	r := New(stubPolicy{}, []Provider{preferred, fallback}, Rules{ClassStandard: "preferred"})

	lensed, err := r.Route(context.Background(), "sys", nil, Options{}, "do something ambiguous")
	require.NoError(t, err)
	assert.Equal(t, "hello from fallback", lensed.Text)
}

func TestRoute_NoProviderCanHandleFallsBackToFirstRegistered(t *testing.T) {
	a := &mockProvider{id: "a", handles: false}
	b := &mockProvider{id: "b", handles: false}
	r := New(stubPolicy{}, []Provider{a, b}, nil)

	lensed, err := r.Route(context.Background(), "sys", nil, Options{}, "anything")
	require.NoError(t, err)
	assert.Equal(t, "hello from a", lensed.Text)
}

func TestRoute_FillsCompletionFieldsOntoLensedResult(t *testing.T) {
	p := &mockProvider{id: "p1", handles: true}
	r := New(stubPolicy{}, []Provider{p}, nil)

	lensed, err := r.Route(context.Background(), "sys", nil, Options{}, "anything")
	require.NoError(t, err)
	assert.Equal(t, "mock-model", lensed.Model)
	assert.Equal(t, "p1", lensed.ProviderID)
	assert.Equal(t, string(types.StopEndTurn), lensed.StopReason)
}

func TestClassify_SensitiveForcesLocalOnly(t *testing.T) {
	task := Classify("store this credit card number securely", 0)
	assert.Equal(t, ClassSensitive, task.Classification)
	assert.True(t, task.RequiresLocalOnly)
}

func TestClassify_JudgmentHeavyBeatsFast(t *testing.T) {
	task := Classify("analyze and summarize", 0)
	assert.Equal(t, ClassJudgmentHeavy, task.Classification)
}

func TestClassify_FastUpgradedToStandardWithManyConstraints(t *testing.T) {
	task := Classify("summarize this", 6)
	assert.Equal(t, ClassStandard, task.Classification)
}

func TestClassify_FastStaysFastWithFewConstraints(t *testing.T) {
	task := Classify("summarize this", 2)
	assert.Equal(t, ClassFast, task.Classification)
}

func TestClassify_LongSpecIsNotFastEvenWithFastKeyword(t *testing.T) {
	long := "summarize "
	for len(long) < 250 {
		long += "padding "
	}
	task := Classify(long, 0)
	assert.Equal(t, ClassStandard, task.Classification)
}
