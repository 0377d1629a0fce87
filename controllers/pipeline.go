package controller

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"leadpilot/models"
	"leadpilot/repository"
)

// attachDefaultPipeline places a freshly created lead on the company's
// default board, seeding it on first contact. Failures are logged and
// swallowed; a lead without a pipeline is still fully workable.
func attachDefaultPipeline(ctx context.Context, store repository.Store, lead *models.Lead, logger *logrus.Logger) {
	pipeline, err := store.EnsureDefaultPipeline(ctx, lead.CompanyID)
	if err != nil {
		logger.WithError(err).Warn("failed to ensure default pipeline")
		return
	}

	fields := map[string]interface{}{"pipeline_id": pipeline.ID}
	stage, err := store.FindStageByType(ctx, pipeline.ID, models.StageTypeNew)
	if err == nil {
		fields["pipeline_stage_id"] = stage.ID
	} else if !errors.Is(err, repository.ErrNotFound) {
		logger.WithError(err).Warn("failed to look up entry stage")
	}

	if err := store.UpdateLead(ctx, lead.ID, fields); err != nil {
		logger.WithError(err).Warn("failed to place lead on pipeline")
		return
	}
	lead.PipelineID = &pipeline.ID
	if stage != nil {
		lead.PipelineStageID = &stage.ID
	}
}
