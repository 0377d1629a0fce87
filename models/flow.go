package models

import (
	"gorm.io/gorm"
)

// Next-step control signals inside a flow question
const (
	NextStepHandoff = "handoff"
	NextStepFinish  = "finish"
)

// ConversationFlow is an ordered, branchable script of qualification
// questions. Immutable while a conversation is running against it.
type ConversationFlow struct {
	gorm.Model
	CompanyID uint `gorm:"not null;index" json:"company_id"`

	Name     string `gorm:"not null" json:"name"`
	IsActive bool   `gorm:"default:true" json:"is_active"`

	// Questions stored as JSON, like a campaign flowchart
	Questions []FlowQuestion `gorm:"type:jsonb;serializer:json" json:"questions"`

	// Scoring thresholds
	WarmLeadThreshold int `gorm:"default:40" json:"warm_lead_threshold"`
	HotLeadThreshold  int `gorm:"default:70" json:"hot_lead_threshold"`

	// Canned messages
	GreetingMessage   string `gorm:"type:text" json:"greeting_message"`
	HandoffMessage    string `gorm:"type:text" json:"handoff_message"`
	CompletionMessage string `gorm:"type:text" json:"completion_message"`

	// Selection: highest priority active flow whose trigger sources match
	// the lead's source/channel wins; is_default flows are the fallback.
	TriggerSources []string `gorm:"type:jsonb;serializer:json" json:"trigger_sources"`
	Priority       int      `gorm:"default:0" json:"priority"`
	IsDefault      bool     `gorm:"default:false" json:"is_default"`
}

// FlowQuestion is a single scripted step in a flow
type FlowQuestion struct {
	ID              string   `json:"id"`
	Question        string   `json:"question"`
	ExpectedAnswers []string `json:"expected_answers"`
	FieldToUpdate   string   `json:"field_to_update"`
	ScoreImpact     int      `json:"score_impact"`
	NextStep        string   `json:"next_step"` // question id, "handoff", "finish", or empty for next in order
	Generate        bool     `json:"generate"`  // free-form AI reply instead of a scripted question
}

// QuestionByID returns the index of the question with the given id, or -1.
func (f *ConversationFlow) QuestionByID(id string) int {
	for i, q := range f.Questions {
		if q.ID == id {
			return i
		}
	}
	return -1
}
