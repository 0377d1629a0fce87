package models

import (
	"time"

	"gorm.io/gorm"
)

// Campaign types and statuses
const (
	CampaignTypeText  = "text"
	CampaignTypeVoice = "voice"

	CampaignDraft    = "draft"
	CampaignRunning  = "running"
	CampaignFinished = "finished"
)

// Campaign is a scheduled, rate-limited outbound re-engagement run
// over a filtered set of leads.
type Campaign struct {
	gorm.Model
	CompanyID uint `gorm:"not null;index" json:"company_id"`

	Name    string `gorm:"not null" json:"name"`
	Type    string `gorm:"not null" json:"type"`             // text, voice
	Status  string `gorm:"default:'draft'" json:"status"`    // draft, running, finished
	Channel string `gorm:"default:'whatsapp'" json:"channel"` // outbound channel for text campaigns

	// Outbound content
	MessageTemplate string `gorm:"type:text" json:"message_template"` // text campaigns
	CallScript      string `gorm:"type:text" json:"call_script"`      // voice campaigns

	// Lead filters resolved when the campaign starts
	ScoreMin        int      `gorm:"default:0" json:"score_min"`
	ScoreMax        int      `gorm:"default:100" json:"score_max"`
	Temperatures    []string `gorm:"type:jsonb;serializer:json" json:"temperatures"`
	FunnelStages    []string `gorm:"type:jsonb;serializer:json" json:"funnel_stages"`
	InactiveForDays int      `gorm:"default:0" json:"inactive_for_days"`

	// Pacing constraints
	MaxPerDay          int        `gorm:"default:50" json:"max_per_day"`
	SentToday          int        `gorm:"default:0" json:"sent_today"` // messages or calls, reset at midnight
	IntervalSecondsMin int        `gorm:"default:60" json:"interval_seconds_min"`
	ActiveHoursStart   int        `gorm:"default:9" json:"active_hours_start"` // hour of day, campaign timezone
	ActiveHoursEnd     int        `gorm:"default:18" json:"active_hours_end"`
	CallingDays        []string   `gorm:"type:jsonb;serializer:json" json:"calling_days"` // lowercase weekday names
	Timezone           string     `gorm:"default:'America/Sao_Paulo'" json:"timezone"`
	MaxAttemptsPerLead int        `gorm:"default:3" json:"max_attempts_per_lead"`
	LastSentAt         *time.Time `json:"last_sent_at"`
	LastRunAt          *time.Time `json:"last_run_at"`

	// Running totals (denormalized for dashboards)
	TotalMessagesSent      int `gorm:"default:0" json:"total_messages_sent"`
	TotalCallsMade         int `gorm:"default:0" json:"total_calls_made"`
	TotalPositiveResponses int `gorm:"default:0" json:"total_positive_responses"`
	TotalNegativeResponses int `gorm:"default:0" json:"total_negative_responses"`
	TotalMaybeResponses    int `gorm:"default:0" json:"total_maybe_responses"`

	// Relations
	Contacts []CampaignContact `gorm:"foreignKey:CampaignID" json:"contacts,omitempty"`
}

// CampaignContact statuses. The pending -> queued flip is the dispatch
// lock: a contact is never reverted to pending after a failed attempt.
const (
	ContactPending = "pending"
	ContactQueued  = "queued"
	ContactSent    = "sent"
	ContactFailed  = "failed"
)

// CampaignContact is the per-lead work item for one campaign
type CampaignContact struct {
	gorm.Model
	CampaignID uint `gorm:"not null;index;uniqueIndex:idx_campaign_lead" json:"campaign_id"`
	LeadID     uint `gorm:"not null;index;uniqueIndex:idx_campaign_lead" json:"lead_id"`

	Status    string     `gorm:"default:'pending'" json:"status"` // pending, queued, sent, failed
	Attempts  int        `gorm:"default:0" json:"attempts"`
	LastError string     `json:"last_error"`
	SentAt    *time.Time `json:"sent_at"`

	// External call id while a voice attempt is in flight
	ExternalCallID string `json:"external_call_id"`

	// Relations
	Campaign Campaign `json:"-"`
	Lead     Lead     `json:"-"`
}
