package models

import (
	"time"

	"gorm.io/gorm"
)

// Lead temperature buckets derived from the numeric score
const (
	TemperatureCold = "cold"
	TemperatureWarm = "warm"
	TemperatureHot  = "hot"
)

// Lead represents a single prospective customer
type Lead struct {
	gorm.Model
	CompanyID uint `gorm:"not null;index" json:"company_id"`

	Name   string `json:"name"`
	Phone  string `gorm:"index" json:"phone"`
	Email  string `gorm:"index" json:"email"`
	Source string `json:"source"` // whatsapp, webchat, messenger, lead_ad, manual

	// Funnel position
	Score           int    `gorm:"default:0" json:"score"` // 0-100
	Temperature     string `gorm:"default:'cold'" json:"temperature"`
	FunnelStage     string `gorm:"default:'new'" json:"funnel_stage"`
	PipelineID      *uint  `gorm:"index" json:"pipeline_id"`
	PipelineStageID *uint  `gorm:"index" json:"pipeline_stage_id"`

	// Engagement state
	ActiveConversationID *uint      `json:"active_conversation_id"`
	LastInteractionAt    *time.Time `json:"last_interaction_at"`

	// Consent; leads are archived on opt-out, never hard-deleted
	OptOut     bool   `gorm:"default:false" json:"opt_out"`
	IsArchived bool   `gorm:"default:false" json:"is_archived"`
	Notes      string `gorm:"type:text" json:"notes"`

	// Relations
	CustomFields []LeadCustomField `gorm:"foreignKey:LeadID" json:"custom_fields,omitempty"`
	Activities   []ActivityLog     `gorm:"foreignKey:LeadID" json:"activities,omitempty"`
}

// LeadCustomField represents arbitrary per-lead fields written by flow steps
type LeadCustomField struct {
	gorm.Model
	LeadID uint   `gorm:"not null;index" json:"lead_id"`
	Name   string `gorm:"not null;index" json:"name"`
	Value  string `gorm:"type:text" json:"value"`
}

// ActivityLog is an append-only audit of stage changes and qualification events
type ActivityLog struct {
	gorm.Model
	CompanyID      uint   `gorm:"not null;index" json:"company_id"`
	LeadID         uint   `gorm:"not null;index" json:"lead_id"`
	ConversationID *uint  `gorm:"index" json:"conversation_id,omitempty"`
	ActivityType   string `gorm:"not null" json:"activity_type"` // stage_change, qualification, handoff, opt_out
	Details        string `gorm:"type:text" json:"details"`
}

// FollowUpTask is a human work item created by voice campaign outcomes
type FollowUpTask struct {
	gorm.Model
	CompanyID  uint      `gorm:"not null;index" json:"company_id"`
	LeadID     uint      `gorm:"not null;index" json:"lead_id"`
	CampaignID *uint     `gorm:"index" json:"campaign_id,omitempty"`
	Title      string    `gorm:"not null" json:"title"`
	Priority   string    `gorm:"default:'normal'" json:"priority"` // high, normal
	DueAt      time.Time `gorm:"not null" json:"due_at"`
	Done       bool      `gorm:"default:false" json:"done"`
}
