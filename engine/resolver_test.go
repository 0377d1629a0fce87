package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"leadpilot/models"
)

func branchingFlow() *models.ConversationFlow {
	return &models.ConversationFlow{
		Questions: []models.FlowQuestion{
			{ID: "q1", NextStep: "q3"},
			{ID: "q2"},
			{ID: "q3", NextStep: models.NextStepHandoff},
			{ID: "q4", NextStep: models.NextStepFinish},
			{ID: "q5", NextStep: "missing-id"},
		},
	}
}

func TestResolveNextStepOrder(t *testing.T) {
	flow := branchingFlow()

	res := ResolveNextStep(flow, 1, flow.Questions[1])
	assert.Equal(t, ActionNext, res.Action)
	assert.Equal(t, 2, res.NextIndex)
}

func TestResolveNextStepByID(t *testing.T) {
	flow := branchingFlow()

	res := ResolveNextStep(flow, 0, flow.Questions[0])
	assert.Equal(t, ActionNext, res.Action)
	assert.Equal(t, 2, res.NextIndex)
}

func TestResolveNextStepControlSignals(t *testing.T) {
	flow := branchingFlow()

	assert.Equal(t, ActionHandoff, ResolveNextStep(flow, 2, flow.Questions[2]).Action)
	assert.Equal(t, ActionFinish, ResolveNextStep(flow, 3, flow.Questions[3]).Action)
}

func TestResolveNextStepUnknownIDFallsThrough(t *testing.T) {
	flow := branchingFlow()

	// An id that resolves to nothing falls back to the next question
	// in order. Flows in the wild depend on this.
	res := ResolveNextStep(flow, 4, flow.Questions[4])
	assert.Equal(t, ActionNext, res.Action)
	assert.Equal(t, 5, res.NextIndex)
}
