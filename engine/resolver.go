package engine

import "leadpilot/models"

// StepAction is the control signal a resolved step yields
type StepAction int

const (
	ActionNext StepAction = iota
	ActionHandoff
	ActionFinish
)

// StepResolution carries the resolved pointer for the next step
type StepResolution struct {
	Action    StepAction
	NextIndex int
}

// ResolveNextStep maps a question's next_step field onto the next
// cursor position. Explicit "handoff"/"finish" short-circuit; a
// question id is looked up by id. An id that resolves to nothing falls
// through to currentIndex+1, matching long-standing flow behavior that
// editors may depend on.
func ResolveNextStep(flow *models.ConversationFlow, currentIndex int, question models.FlowQuestion) StepResolution {
	switch question.NextStep {
	case models.NextStepHandoff:
		return StepResolution{Action: ActionHandoff}
	case models.NextStepFinish:
		return StepResolution{Action: ActionFinish}
	case "":
		return StepResolution{Action: ActionNext, NextIndex: currentIndex + 1}
	}

	if idx := flow.QuestionByID(question.NextStep); idx >= 0 {
		return StepResolution{Action: ActionNext, NextIndex: idx}
	}
	return StepResolution{Action: ActionNext, NextIndex: currentIndex + 1}
}
