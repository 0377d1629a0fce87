package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"leadpilot/models"
)

const (
	voicePositiveScoreDelta = 25
	maybeFollowUpDelay      = 3 * 24 * time.Hour
)

// VoiceResult reports how a voice callback was classified
type VoiceResult struct {
	Outcome    string
	Confidence float64
}

// HandleVoiceOutcome processes the transcript callback for one voice
// campaign attempt. Positive answers warm the lead up and queue a human
// follow-up; refusals archive the lead with an opt-out note; hesitant
// answers schedule a later follow-up.
func (c *Controller) HandleVoiceOutcome(ctx context.Context, campaignID, contactID uint, transcript string) (*VoiceResult, error) {
	campaign, err := c.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("load campaign %d: %w", campaignID, err)
	}
	contact, err := c.store.GetContact(ctx, contactID)
	if err != nil {
		return nil, fmt.Errorf("load contact %d: %w", contactID, err)
	}
	lead, err := c.store.GetLead(ctx, contact.LeadID)
	if err != nil {
		return nil, fmt.Errorf("load lead %d: %w", contact.LeadID, err)
	}

	outcome, confidence := ClassifyVoiceOutcome(transcript)

	switch outcome {
	case VoiceYes:
		newScore := ApplyScore(lead.Score, voicePositiveScoreDelta)
		if err := c.store.UpdateLead(ctx, lead.ID, map[string]interface{}{
			"score":       newScore,
			"temperature": models.TemperatureHot,
		}); err != nil {
			return nil, fmt.Errorf("raise lead score: %w", err)
		}
		if err := c.store.CreateFollowUpTask(ctx, &models.FollowUpTask{
			CompanyID:  lead.CompanyID,
			LeadID:     lead.ID,
			CampaignID: &campaign.ID,
			Title:      fmt.Sprintf("Interesse confirmado por voz: %s", lead.Name),
			Priority:   "high",
			DueAt:      time.Now(),
		}); err != nil {
			c.logger.WithError(err).Warn("failed to queue follow-up task")
		}
		if err := c.store.BumpCampaignCounters(ctx, campaign.ID, map[string]int{
			"total_positive_responses": 1,
		}); err != nil {
			c.logger.WithError(err).Warn("failed to bump campaign counters")
		}

	case VoiceNo:
		notes := strings.TrimSpace(lead.Notes + "\nopt-out: recusou na campanha de voz " + campaign.Name)
		if err := c.store.UpdateLead(ctx, lead.ID, map[string]interface{}{
			"is_archived": true,
			"opt_out":     true,
			"notes":       notes,
		}); err != nil {
			return nil, fmt.Errorf("archive lead: %w", err)
		}
		if err := c.store.CreateActivity(ctx, &models.ActivityLog{
			CompanyID:    lead.CompanyID,
			LeadID:       lead.ID,
			ActivityType: "opt_out",
			Details:      fmt.Sprintf("declined voice campaign %d", campaign.ID),
		}); err != nil {
			c.logger.WithError(err).Warn("failed to log opt-out")
		}
		if err := c.store.BumpCampaignCounters(ctx, campaign.ID, map[string]int{
			"total_negative_responses": 1,
		}); err != nil {
			c.logger.WithError(err).Warn("failed to bump campaign counters")
		}

	case VoiceMaybe:
		if err := c.store.CreateFollowUpTask(ctx, &models.FollowUpTask{
			CompanyID:  lead.CompanyID,
			LeadID:     lead.ID,
			CampaignID: &campaign.ID,
			Title:      fmt.Sprintf("Retornar ligação: %s pediu para falar depois", lead.Name),
			Priority:   "normal",
			DueAt:      time.Now().Add(maybeFollowUpDelay),
		}); err != nil {
			c.logger.WithError(err).Warn("failed to queue follow-up task")
		}
		if err := c.store.BumpCampaignCounters(ctx, campaign.ID, map[string]int{
			"total_maybe_responses": 1,
		}); err != nil {
			c.logger.WithError(err).Warn("failed to bump campaign counters")
		}
	}

	return &VoiceResult{Outcome: outcome, Confidence: confidence}, nil
}
