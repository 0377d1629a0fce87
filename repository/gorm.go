package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"leadpilot/models"
)

// GormStore is the postgres-backed Store implementation
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

func translateErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *GormStore) GetLead(ctx context.Context, id uint) (*models.Lead, error) {
	var lead models.Lead
	if err := s.DB.WithContext(ctx).First(&lead, id).Error; err != nil {
		return nil, translateErr(err)
	}
	return &lead, nil
}

func (s *GormStore) GetLeadByPhone(ctx context.Context, companyID uint, phone string) (*models.Lead, error) {
	var lead models.Lead
	err := s.DB.WithContext(ctx).
		Where("company_id = ? AND phone = ?", companyID, phone).
		Order("id").
		First(&lead).Error
	if err != nil {
		return nil, translateErr(err)
	}
	return &lead, nil
}

func (s *GormStore) CreateLead(ctx context.Context, lead *models.Lead) error {
	return s.DB.WithContext(ctx).Create(lead).Error
}

func (s *GormStore) UpdateLead(ctx context.Context, id uint, fields map[string]interface{}) error {
	return s.DB.WithContext(ctx).Model(&models.Lead{}).Where("id = ?", id).Updates(fields).Error
}

func (s *GormStore) UpsertLeadCustomField(ctx context.Context, leadID uint, name, value string) error {
	var field models.LeadCustomField
	err := s.DB.WithContext(ctx).
		Where("lead_id = ? AND name = ?", leadID, name).
		First(&field).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.DB.WithContext(ctx).Create(&models.LeadCustomField{
			LeadID: leadID,
			Name:   name,
			Value:  value,
		}).Error
	}
	if err != nil {
		return err
	}
	return s.DB.WithContext(ctx).Model(&field).Update("value", value).Error
}

func (s *GormStore) FilterLeads(ctx context.Context, filter LeadFilter) ([]models.Lead, error) {
	q := s.DB.WithContext(ctx).
		Where("company_id = ?", filter.CompanyID).
		Where("score >= ? AND score <= ?", filter.ScoreMin, filter.ScoreMax)

	if len(filter.Temperatures) > 0 {
		q = q.Where("temperature IN ?", filter.Temperatures)
	}
	if len(filter.FunnelStages) > 0 {
		q = q.Where("funnel_stage IN ?", filter.FunnelStages)
	}
	if filter.InactiveSince != nil {
		q = q.Where("last_interaction_at IS NULL OR last_interaction_at < ?", filter.InactiveSince)
	}
	if !filter.IncludeArchive {
		q = q.Where("is_archived = ? AND opt_out = ?", false, false)
	}

	var leads []models.Lead
	if err := q.Order("id").Find(&leads).Error; err != nil {
		return nil, err
	}
	return leads, nil
}

func (s *GormStore) GetConversation(ctx context.Context, id uint) (*models.Conversation, error) {
	var conv models.Conversation
	if err := s.DB.WithContext(ctx).First(&conv, id).Error; err != nil {
		return nil, translateErr(err)
	}
	return &conv, nil
}

func (s *GormStore) FindActiveConversation(ctx context.Context, leadID uint) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.DB.WithContext(ctx).
		Where("lead_id = ? AND status <> ?", leadID, models.ConversationClosed).
		Order("id").
		First(&conv).Error
	if err != nil {
		return nil, translateErr(err)
	}
	return &conv, nil
}

func (s *GormStore) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	return s.DB.WithContext(ctx).Create(conv).Error
}

func (s *GormStore) UpdateConversation(ctx context.Context, id uint, fields map[string]interface{}) error {
	return s.DB.WithContext(ctx).Model(&models.Conversation{}).Where("id = ?", id).Updates(fields).Error
}

// AdvanceQualificationStep is the optimistic cursor move. The WHERE on
// the current cursor value makes concurrent replays of the same inbound
// message advance at most once.
func (s *GormStore) AdvanceQualificationStep(ctx context.Context, convID uint, from, to int) (bool, error) {
	res := s.DB.WithContext(ctx).
		Model(&models.Conversation{}).
		Where("id = ? AND qualification_step = ?", convID, from).
		Update("qualification_step", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *GormStore) CreateMessage(ctx context.Context, msg *models.Message) error {
	return s.DB.WithContext(ctx).Create(msg).Error
}

func (s *GormStore) GetFlow(ctx context.Context, id uint) (*models.ConversationFlow, error) {
	var flow models.ConversationFlow
	if err := s.DB.WithContext(ctx).First(&flow, id).Error; err != nil {
		return nil, translateErr(err)
	}
	return &flow, nil
}

func (s *GormStore) ListActiveFlows(ctx context.Context, companyID uint) ([]models.ConversationFlow, error) {
	var flows []models.ConversationFlow
	err := s.DB.WithContext(ctx).
		Where("company_id = ? AND is_active = ?", companyID, true).
		Order("priority DESC, id").
		Find(&flows).Error
	if err != nil {
		return nil, err
	}
	return flows, nil
}

func (s *GormStore) EnsureDefaultPipeline(ctx context.Context, companyID uint) (*models.Pipeline, error) {
	var pipeline models.Pipeline
	err := s.DB.WithContext(ctx).
		Where("company_id = ? AND is_default = ?", companyID, true).
		First(&pipeline).Error
	if err == nil {
		return &pipeline, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return models.CreateDefaultPipeline(s.DB.WithContext(ctx), companyID)
}

func (s *GormStore) FindStageByType(ctx context.Context, pipelineID uint, stageType string) (*models.PipelineStage, error) {
	var stage models.PipelineStage
	err := s.DB.WithContext(ctx).
		Where("pipeline_id = ? AND stage_type = ?", pipelineID, stageType).
		Order("position").
		First(&stage).Error
	if err != nil {
		return nil, translateErr(err)
	}
	return &stage, nil
}

func (s *GormStore) CreateActivity(ctx context.Context, entry *models.ActivityLog) error {
	return s.DB.WithContext(ctx).Create(entry).Error
}

func (s *GormStore) CreateFollowUpTask(ctx context.Context, task *models.FollowUpTask) error {
	return s.DB.WithContext(ctx).Create(task).Error
}

func (s *GormStore) CreateCampaign(ctx context.Context, campaign *models.Campaign) error {
	return s.DB.WithContext(ctx).Create(campaign).Error
}

func (s *GormStore) GetCampaign(ctx context.Context, id uint) (*models.Campaign, error) {
	var campaign models.Campaign
	if err := s.DB.WithContext(ctx).First(&campaign, id).Error; err != nil {
		return nil, translateErr(err)
	}
	return &campaign, nil
}

func (s *GormStore) ListRunningCampaigns(ctx context.Context, campaignType string) ([]models.Campaign, error) {
	var campaigns []models.Campaign
	err := s.DB.WithContext(ctx).
		Where("status = ? AND type = ?", models.CampaignRunning, campaignType).
		Order("id").
		Find(&campaigns).Error
	if err != nil {
		return nil, err
	}
	return campaigns, nil
}

func (s *GormStore) UpdateCampaign(ctx context.Context, id uint, fields map[string]interface{}) error {
	return s.DB.WithContext(ctx).Model(&models.Campaign{}).Where("id = ?", id).Updates(fields).Error
}

func (s *GormStore) BumpCampaignCounters(ctx context.Context, id uint, counters map[string]int) error {
	updates := make(map[string]interface{}, len(counters))
	for column, by := range counters {
		updates[column] = gorm.Expr(column+" + ?", by)
	}
	return s.DB.WithContext(ctx).Model(&models.Campaign{}).Where("id = ?", id).Updates(updates).Error
}

func (s *GormStore) CreateContacts(ctx context.Context, contacts []models.CampaignContact) error {
	if len(contacts) == 0 {
		return nil
	}
	return s.DB.WithContext(ctx).Create(&contacts).Error
}

func (s *GormStore) NextPendingContact(ctx context.Context, campaignID uint) (*models.CampaignContact, error) {
	var contact models.CampaignContact
	err := s.DB.WithContext(ctx).
		Where("campaign_id = ? AND status = ?", campaignID, models.ContactPending).
		Order("id").
		First(&contact).Error
	if err != nil {
		return nil, translateErr(err)
	}
	return &contact, nil
}

// ClaimContact is the at-most-once dispatch lock: the conditional flip
// away from pending succeeds for exactly one concurrent invocation.
func (s *GormStore) ClaimContact(ctx context.Context, contactID uint) (bool, error) {
	res := s.DB.WithContext(ctx).
		Model(&models.CampaignContact{}).
		Where("id = ? AND status = ?", contactID, models.ContactPending).
		Update("status", models.ContactQueued)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *GormStore) GetContact(ctx context.Context, id uint) (*models.CampaignContact, error) {
	var contact models.CampaignContact
	if err := s.DB.WithContext(ctx).First(&contact, id).Error; err != nil {
		return nil, translateErr(err)
	}
	return &contact, nil
}

func (s *GormStore) UpdateContact(ctx context.Context, id uint, fields map[string]interface{}) error {
	return s.DB.WithContext(ctx).Model(&models.CampaignContact{}).Where("id = ?", id).Updates(fields).Error
}
