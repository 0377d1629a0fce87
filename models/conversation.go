package models

import (
	"time"

	"gorm.io/gorm"
)

// Conversation statuses
const (
	ConversationBotActive       = "bot_active"
	ConversationHumanActive     = "human_active"
	ConversationWaitingResponse = "waiting_response"
	ConversationClosed          = "closed"
)

// Messaging channels
const (
	ChannelWhatsApp  = "whatsapp"
	ChannelWebchat   = "webchat"
	ChannelMessenger = "messenger"
	ChannelVoice     = "voice"
)

// Conversation represents one lead's dialog on a single channel.
// A lead has at most one non-closed conversation at a time.
type Conversation struct {
	gorm.Model
	CompanyID uint `gorm:"not null;index" json:"company_id"`
	LeadID    uint `gorm:"not null;index" json:"lead_id"`

	Channel string `gorm:"not null" json:"channel"`
	Status  string `gorm:"default:'bot_active'" json:"status"` // bot_active, human_active, waiting_response, closed

	// Qualification state
	AIActive              bool  `gorm:"default:true" json:"ai_active"`
	AIFlowID              *uint `gorm:"index" json:"ai_flow_id"`
	QualificationStep     int   `gorm:"default:0" json:"qualification_step"` // cursor into the flow's question list
	QualificationComplete bool  `gorm:"default:false" json:"qualification_complete"`

	LastMessagePreview string     `json:"last_message_preview"`
	LastMessageAt      *time.Time `json:"last_message_at"`

	// Relations
	Lead     Lead      `json:"-"`
	Messages []Message `gorm:"foreignKey:ConversationID" json:"messages,omitempty"`
}

// Message sender types and directions
const (
	SenderLead  = "lead"
	SenderBot   = "bot"
	SenderHuman = "human"

	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// Message is an immutable, append-only transcript record
type Message struct {
	gorm.Model
	ConversationID uint `gorm:"not null;index" json:"conversation_id"`
	LeadID         uint `gorm:"not null;index" json:"lead_id"`

	SenderType string `gorm:"not null" json:"sender_type"` // lead, bot, human
	Direction  string `gorm:"not null" json:"direction"`   // inbound, outbound
	Body       string `gorm:"type:text" json:"body"`
	ExternalID string `json:"external_id"` // provider-side message id, when known
}
