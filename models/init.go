package models

import "gorm.io/gorm"

// AutoMigrate creates or updates all engine tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Lead{},
		&LeadCustomField{},
		&ActivityLog{},
		&FollowUpTask{},
		&Conversation{},
		&Message{},
		&ConversationFlow{},
		&Campaign{},
		&CampaignContact{},
		&Pipeline{},
		&PipelineStage{},
	)
}

// CreateDefaultPipeline seeds a company's stage board when its first
// lead arrives.
func CreateDefaultPipeline(db *gorm.DB, companyID uint) (*Pipeline, error) {
	pipeline := Pipeline{
		CompanyID: companyID,
		Name:      "Sales",
		IsDefault: true,
	}
	if err := db.FirstOrCreate(&pipeline, "company_id = ? AND is_default = ?", companyID, true).Error; err != nil {
		return nil, err
	}

	defaultStages := []PipelineStage{
		{PipelineID: pipeline.ID, Name: "New", StageType: StageTypeNew, Position: 0},
		{PipelineID: pipeline.ID, Name: "Qualifying", StageType: StageTypeQualifying, Position: 1},
		{PipelineID: pipeline.ID, Name: "Attended", StageType: StageTypeAttended, Position: 2},
		{PipelineID: pipeline.ID, Name: "Closed", StageType: StageTypeClosed, Position: 3},
	}
	for _, stage := range defaultStages {
		if err := db.FirstOrCreate(&stage, "pipeline_id = ? AND stage_type = ?", pipeline.ID, stage.StageType).Error; err != nil {
			return nil, err
		}
	}
	return &pipeline, nil
}
