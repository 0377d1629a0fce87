package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"leadpilot/models"
)

// MemoryStore is an in-memory Store used by tests and local development.
// It honors the same optimistic claim/advance semantics as GormStore.
type MemoryStore struct {
	mu sync.Mutex

	nextID        uint
	Leads         map[uint]*models.Lead
	CustomFields  []models.LeadCustomField
	Conversations map[uint]*models.Conversation
	Messages      []models.Message
	Flows         map[uint]*models.ConversationFlow
	Pipelines     map[uint]*models.Pipeline
	Stages        map[uint]*models.PipelineStage
	Activities    []models.ActivityLog
	Tasks         []models.FollowUpTask
	Campaigns     map[uint]*models.Campaign
	Contacts      map[uint]*models.CampaignContact
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		Leads:         make(map[uint]*models.Lead),
		Conversations: make(map[uint]*models.Conversation),
		Flows:         make(map[uint]*models.ConversationFlow),
		Pipelines:     make(map[uint]*models.Pipeline),
		Stages:        make(map[uint]*models.PipelineStage),
		Campaigns:     make(map[uint]*models.Campaign),
		Contacts:      make(map[uint]*models.CampaignContact),
	}
}

func (s *MemoryStore) id() uint {
	s.nextID++
	return s.nextID
}

// AddFlow registers a flow, assigning an id when missing
func (s *MemoryStore) AddFlow(flow *models.ConversationFlow) *models.ConversationFlow {
	s.mu.Lock()
	defer s.mu.Unlock()
	if flow.ID == 0 {
		flow.ID = s.id()
	}
	s.Flows[flow.ID] = flow
	return flow
}

// AddStage registers a pipeline stage
func (s *MemoryStore) AddStage(stage *models.PipelineStage) *models.PipelineStage {
	s.mu.Lock()
	defer s.mu.Unlock()
	if stage.ID == 0 {
		stage.ID = s.id()
	}
	s.Stages[stage.ID] = stage
	return stage
}

// AddCampaign registers a campaign
func (s *MemoryStore) AddCampaign(c *models.Campaign) *models.Campaign {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == 0 {
		c.ID = s.id()
	}
	s.Campaigns[c.ID] = c
	return c
}

func (s *MemoryStore) GetLead(ctx context.Context, id uint) (*models.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lead, ok := s.Leads[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *lead
	return &copied, nil
}

func (s *MemoryStore) GetLeadByPhone(ctx context.Context, companyID uint, phone string) (*models.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var found *models.Lead
	for _, lead := range s.Leads {
		if lead.CompanyID == companyID && lead.Phone == phone {
			if found == nil || lead.ID < found.ID {
				found = lead
			}
		}
	}
	if found == nil {
		return nil, ErrNotFound
	}
	copied := *found
	return &copied, nil
}

func (s *MemoryStore) CreateLead(ctx context.Context, lead *models.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lead.ID == 0 {
		lead.ID = s.id()
	}
	copied := *lead
	s.Leads[lead.ID] = &copied
	return nil
}

func (s *MemoryStore) UpdateLead(ctx context.Context, id uint, fields map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lead, ok := s.Leads[id]
	if !ok {
		return ErrNotFound
	}
	for column, value := range fields {
		switch column {
		case "score":
			lead.Score = asInt(value)
		case "temperature":
			lead.Temperature = value.(string)
		case "funnel_stage":
			lead.FunnelStage = value.(string)
		case "name":
			lead.Name = value.(string)
		case "email":
			lead.Email = value.(string)
		case "notes":
			lead.Notes = value.(string)
		case "pipeline_id":
			lead.PipelineID = asUintPtr(value)
		case "pipeline_stage_id":
			lead.PipelineStageID = asUintPtr(value)
		case "active_conversation_id":
			lead.ActiveConversationID = asUintPtr(value)
		case "last_interaction_at":
			lead.LastInteractionAt = asTimePtr(value)
		case "is_archived":
			lead.IsArchived = value.(bool)
		case "opt_out":
			lead.OptOut = value.(bool)
		}
	}
	return nil
}

func (s *MemoryStore) UpsertLeadCustomField(ctx context.Context, leadID uint, name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.CustomFields {
		if s.CustomFields[i].LeadID == leadID && s.CustomFields[i].Name == name {
			s.CustomFields[i].Value = value
			return nil
		}
	}
	s.CustomFields = append(s.CustomFields, models.LeadCustomField{LeadID: leadID, Name: name, Value: value})
	return nil
}

func (s *MemoryStore) FilterLeads(ctx context.Context, filter LeadFilter) ([]models.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Lead
	for _, lead := range s.Leads {
		if lead.CompanyID != filter.CompanyID {
			continue
		}
		if lead.Score < filter.ScoreMin || lead.Score > filter.ScoreMax {
			continue
		}
		if len(filter.Temperatures) > 0 && !contains(filter.Temperatures, lead.Temperature) {
			continue
		}
		if len(filter.FunnelStages) > 0 && !contains(filter.FunnelStages, lead.FunnelStage) {
			continue
		}
		if filter.InactiveSince != nil && lead.LastInteractionAt != nil &&
			!lead.LastInteractionAt.Before(*filter.InactiveSince) {
			continue
		}
		if !filter.IncludeArchive && (lead.IsArchived || lead.OptOut) {
			continue
		}
		out = append(out, *lead)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) GetConversation(ctx context.Context, id uint) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.Conversations[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *conv
	return &copied, nil
}

func (s *MemoryStore) FindActiveConversation(ctx context.Context, leadID uint) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var found *models.Conversation
	for _, conv := range s.Conversations {
		if conv.LeadID == leadID && conv.Status != models.ConversationClosed {
			if found == nil || conv.ID < found.ID {
				found = conv
			}
		}
	}
	if found == nil {
		return nil, ErrNotFound
	}
	copied := *found
	return &copied, nil
}

func (s *MemoryStore) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if conv.ID == 0 {
		conv.ID = s.id()
	}
	copied := *conv
	s.Conversations[conv.ID] = &copied
	return nil
}

func (s *MemoryStore) UpdateConversation(ctx context.Context, id uint, fields map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.Conversations[id]
	if !ok {
		return ErrNotFound
	}
	for column, value := range fields {
		switch column {
		case "status":
			conv.Status = value.(string)
		case "ai_active":
			conv.AIActive = value.(bool)
		case "qualification_complete":
			conv.QualificationComplete = value.(bool)
		case "last_message_preview":
			conv.LastMessagePreview = value.(string)
		case "last_message_at":
			conv.LastMessageAt = asTimePtr(value)
		}
	}
	return nil
}

func (s *MemoryStore) AdvanceQualificationStep(ctx context.Context, convID uint, from, to int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.Conversations[convID]
	if !ok {
		return false, ErrNotFound
	}
	if conv.QualificationStep != from {
		return false, nil
	}
	conv.QualificationStep = to
	return true, nil
}

func (s *MemoryStore) CreateMessage(ctx context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg.ID == 0 {
		msg.ID = s.id()
	}
	s.Messages = append(s.Messages, *msg)
	return nil
}

func (s *MemoryStore) GetFlow(ctx context.Context, id uint) (*models.ConversationFlow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	flow, ok := s.Flows[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *flow
	return &copied, nil
}

func (s *MemoryStore) ListActiveFlows(ctx context.Context, companyID uint) ([]models.ConversationFlow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ConversationFlow
	for _, flow := range s.Flows {
		if flow.CompanyID == companyID && flow.IsActive {
			out = append(out, *flow)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) EnsureDefaultPipeline(ctx context.Context, companyID uint) (*models.Pipeline, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, pipeline := range s.Pipelines {
		if pipeline.CompanyID == companyID && pipeline.IsDefault {
			copied := *pipeline
			return &copied, nil
		}
	}

	pipeline := &models.Pipeline{CompanyID: companyID, Name: "Sales", IsDefault: true}
	pipeline.ID = s.id()
	s.Pipelines[pipeline.ID] = pipeline

	stages := []struct {
		name      string
		stageType string
	}{
		{"New", models.StageTypeNew},
		{"Qualifying", models.StageTypeQualifying},
		{"Attended", models.StageTypeAttended},
		{"Closed", models.StageTypeClosed},
	}
	for pos, stage := range stages {
		entry := &models.PipelineStage{
			PipelineID: pipeline.ID,
			Name:       stage.name,
			StageType:  stage.stageType,
			Position:   pos,
		}
		entry.ID = s.id()
		s.Stages[entry.ID] = entry
	}

	copied := *pipeline
	return &copied, nil
}

func (s *MemoryStore) FindStageByType(ctx context.Context, pipelineID uint, stageType string) (*models.PipelineStage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var found *models.PipelineStage
	for _, stage := range s.Stages {
		if stage.PipelineID == pipelineID && stage.StageType == stageType {
			if found == nil || stage.Position < found.Position {
				found = stage
			}
		}
	}
	if found == nil {
		return nil, ErrNotFound
	}
	copied := *found
	return &copied, nil
}

func (s *MemoryStore) CreateActivity(ctx context.Context, entry *models.ActivityLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.ID == 0 {
		entry.ID = s.id()
	}
	s.Activities = append(s.Activities, *entry)
	return nil
}

func (s *MemoryStore) CreateFollowUpTask(ctx context.Context, task *models.FollowUpTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if task.ID == 0 {
		task.ID = s.id()
	}
	s.Tasks = append(s.Tasks, *task)
	return nil
}

func (s *MemoryStore) CreateCampaign(ctx context.Context, campaign *models.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if campaign.ID == 0 {
		campaign.ID = s.id()
	}
	copied := *campaign
	s.Campaigns[campaign.ID] = &copied
	return nil
}

func (s *MemoryStore) GetCampaign(ctx context.Context, id uint) (*models.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	campaign, ok := s.Campaigns[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *campaign
	return &copied, nil
}

func (s *MemoryStore) ListRunningCampaigns(ctx context.Context, campaignType string) ([]models.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Campaign
	for _, campaign := range s.Campaigns {
		if campaign.Status == models.CampaignRunning && campaign.Type == campaignType {
			out = append(out, *campaign)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) UpdateCampaign(ctx context.Context, id uint, fields map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	campaign, ok := s.Campaigns[id]
	if !ok {
		return ErrNotFound
	}
	for column, value := range fields {
		switch column {
		case "status":
			campaign.Status = value.(string)
		case "sent_today":
			campaign.SentToday = asInt(value)
		case "last_sent_at":
			campaign.LastSentAt = asTimePtr(value)
		case "last_run_at":
			campaign.LastRunAt = asTimePtr(value)
		}
	}
	return nil
}

func (s *MemoryStore) BumpCampaignCounters(ctx context.Context, id uint, counters map[string]int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	campaign, ok := s.Campaigns[id]
	if !ok {
		return ErrNotFound
	}
	for column, by := range counters {
		switch column {
		case "sent_today":
			campaign.SentToday += by
		case "total_messages_sent":
			campaign.TotalMessagesSent += by
		case "total_calls_made":
			campaign.TotalCallsMade += by
		case "total_positive_responses":
			campaign.TotalPositiveResponses += by
		case "total_negative_responses":
			campaign.TotalNegativeResponses += by
		case "total_maybe_responses":
			campaign.TotalMaybeResponses += by
		}
	}
	return nil
}

func (s *MemoryStore) CreateContacts(ctx context.Context, contacts []models.CampaignContact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range contacts {
		if contacts[i].ID == 0 {
			contacts[i].ID = s.id()
		}
		copied := contacts[i]
		s.Contacts[copied.ID] = &copied
	}
	return nil
}

func (s *MemoryStore) NextPendingContact(ctx context.Context, campaignID uint) (*models.CampaignContact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var found *models.CampaignContact
	for _, contact := range s.Contacts {
		if contact.CampaignID == campaignID && contact.Status == models.ContactPending {
			if found == nil || contact.ID < found.ID {
				found = contact
			}
		}
	}
	if found == nil {
		return nil, ErrNotFound
	}
	copied := *found
	return &copied, nil
}

func (s *MemoryStore) ClaimContact(ctx context.Context, contactID uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	contact, ok := s.Contacts[contactID]
	if !ok {
		return false, ErrNotFound
	}
	if contact.Status != models.ContactPending {
		return false, nil
	}
	contact.Status = models.ContactQueued
	return true, nil
}

func (s *MemoryStore) GetContact(ctx context.Context, id uint) (*models.CampaignContact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	contact, ok := s.Contacts[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *contact
	return &copied, nil
}

func (s *MemoryStore) UpdateContact(ctx context.Context, id uint, fields map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	contact, ok := s.Contacts[id]
	if !ok {
		return ErrNotFound
	}
	for column, value := range fields {
		switch column {
		case "status":
			contact.Status = value.(string)
		case "attempts":
			contact.Attempts = asInt(value)
		case "last_error":
			contact.LastError = value.(string)
		case "sent_at":
			contact.SentAt = asTimePtr(value)
		case "external_call_id":
			contact.ExternalCallID = value.(string)
		}
	}
	return nil
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func asInt(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case uint:
		return int(n)
	}
	return 0
}

func asUintPtr(v interface{}) *uint {
	switch n := v.(type) {
	case *uint:
		return n
	case uint:
		return &n
	case nil:
		return nil
	}
	return nil
}

func asTimePtr(v interface{}) *time.Time {
	switch t := v.(type) {
	case *time.Time:
		return t
	case time.Time:
		return &t
	case nil:
		return nil
	}
	return nil
}
