package repository

import (
	"context"
	"errors"
	"time"

	"leadpilot/models"
)

// ErrNotFound is returned when a requested entity does not exist.
// Callers treat it as a reportable condition, never a retry trigger.
var ErrNotFound = errors.New("repository: not found")

// LeadFilter narrows lead selection for campaign enrollment. Predicates
// are limited to equality, set membership and ranges.
type LeadFilter struct {
	CompanyID      uint
	ScoreMin       int
	ScoreMax       int
	Temperatures   []string
	FunnelStages   []string
	InactiveSince  *time.Time // leads whose last interaction is older than this
	IncludeArchive bool       // archived/opted-out leads are excluded unless set
}

// Store abstracts persisted entities behind create/update/filter
// operations. The engine never assumes a specific storage backend.
type Store interface {
	// Leads
	GetLead(ctx context.Context, id uint) (*models.Lead, error)
	GetLeadByPhone(ctx context.Context, companyID uint, phone string) (*models.Lead, error)
	CreateLead(ctx context.Context, lead *models.Lead) error
	UpdateLead(ctx context.Context, id uint, fields map[string]interface{}) error
	UpsertLeadCustomField(ctx context.Context, leadID uint, name, value string) error
	FilterLeads(ctx context.Context, filter LeadFilter) ([]models.Lead, error)

	// Conversations
	GetConversation(ctx context.Context, id uint) (*models.Conversation, error)
	FindActiveConversation(ctx context.Context, leadID uint) (*models.Conversation, error)
	CreateConversation(ctx context.Context, conv *models.Conversation) error
	UpdateConversation(ctx context.Context, id uint, fields map[string]interface{}) error
	// AdvanceQualificationStep moves the cursor from one index to another
	// only if it still sits at the expected index. Returns false when the
	// cursor has moved, which aborts the caller's step.
	AdvanceQualificationStep(ctx context.Context, convID uint, from, to int) (bool, error)
	CreateMessage(ctx context.Context, msg *models.Message) error

	// Flows
	GetFlow(ctx context.Context, id uint) (*models.ConversationFlow, error)
	ListActiveFlows(ctx context.Context, companyID uint) ([]models.ConversationFlow, error)

	// Pipelines
	// EnsureDefaultPipeline returns the company's default pipeline,
	// seeding it with the stock stages when missing.
	EnsureDefaultPipeline(ctx context.Context, companyID uint) (*models.Pipeline, error)
	FindStageByType(ctx context.Context, pipelineID uint, stageType string) (*models.PipelineStage, error)

	// Audit
	CreateActivity(ctx context.Context, entry *models.ActivityLog) error
	CreateFollowUpTask(ctx context.Context, task *models.FollowUpTask) error

	// Campaigns
	CreateCampaign(ctx context.Context, campaign *models.Campaign) error
	GetCampaign(ctx context.Context, id uint) (*models.Campaign, error)
	ListRunningCampaigns(ctx context.Context, campaignType string) ([]models.Campaign, error)
	UpdateCampaign(ctx context.Context, id uint, fields map[string]interface{}) error
	BumpCampaignCounters(ctx context.Context, id uint, counters map[string]int) error
	CreateContacts(ctx context.Context, contacts []models.CampaignContact) error
	// NextPendingContact returns the oldest pending contact (FIFO by
	// creation order) or ErrNotFound when the queue is drained.
	NextPendingContact(ctx context.Context, campaignID uint) (*models.CampaignContact, error)
	// ClaimContact flips a contact from pending to queued. Returns false
	// if another invocation claimed it first.
	ClaimContact(ctx context.Context, contactID uint) (bool, error)
	GetContact(ctx context.Context, id uint) (*models.CampaignContact, error)
	UpdateContact(ctx context.Context, id uint, fields map[string]interface{}) error
}
