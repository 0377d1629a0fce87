package models

import "gorm.io/gorm"

// Stage types a pipeline can carry; "attended" stages receive leads
// after a human handoff.
const (
	StageTypeNew        = "new"
	StageTypeQualifying = "qualifying"
	StageTypeAttended   = "attended"
	StageTypeClosed     = "closed"
)

// Pipeline is a company's sales board
type Pipeline struct {
	gorm.Model
	CompanyID uint   `gorm:"not null;index" json:"company_id"`
	Name      string `gorm:"not null" json:"name"`
	IsDefault bool   `gorm:"default:false" json:"is_default"`

	Stages []PipelineStage `gorm:"foreignKey:PipelineID" json:"stages,omitempty"`
}

// PipelineStage is one column of the board
type PipelineStage struct {
	gorm.Model
	PipelineID uint   `gorm:"not null;index" json:"pipeline_id"`
	Name       string `gorm:"not null" json:"name"`
	StageType  string `gorm:"not null" json:"stage_type"` // new, qualifying, attended, closed
	Position   int    `gorm:"default:0" json:"position"`
}
