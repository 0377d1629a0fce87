package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"leadpilot/dispatch"
	"leadpilot/models"
	"leadpilot/repository"
	"leadpilot/utils"
)

// maxCallsPerRun bounds one invocation's work so a tick never runs
// unbounded against a large queue.
const maxCallsPerRun = 10

// VoiceWorker paces automated voice campaigns. Unlike text campaigns
// there is no inter-send interval; instead each invocation is capped at
// maxCallsPerRun calls.
type VoiceWorker struct {
	Store           repository.Store
	Gateway         dispatch.Gateway
	Logger          *logrus.Logger
	Interval        time.Duration
	CallbackBaseURL string
	SigningSecret   string
}

func NewVoiceWorker(store repository.Store, gateway dispatch.Gateway, logger *logrus.Logger, callbackBaseURL, signingSecret string) *VoiceWorker {
	return &VoiceWorker{
		Store:           store,
		Gateway:         gateway,
		Logger:          logger,
		Interval:        2 * time.Minute,
		CallbackBaseURL: callbackBaseURL,
		SigningSecret:   signingSecret,
	}
}

func (w *VoiceWorker) Start(ctx context.Context) {
	time.Sleep(15 * time.Second)

	w.Logger.Info("voice worker started")

	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.Logger.Info("voice worker shutting down")
			return
		case <-ticker.C:
			w.Tick(ctx)
		}
	}
}

// Tick runs one pass over running voice campaigns
func (w *VoiceWorker) Tick(ctx context.Context) {
	campaigns, err := w.Store.ListRunningCampaigns(ctx, models.CampaignTypeVoice)
	if err != nil {
		w.Logger.WithError(err).Error("failed to list running voice campaigns")
		return
	}
	for i := range campaigns {
		if err := w.processCampaign(ctx, &campaigns[i]); err != nil {
			w.Logger.WithField("campaign", campaigns[i].ID).WithError(err).Error("voice campaign tick failed")
		}
	}
}

func (w *VoiceWorker) processCampaign(ctx context.Context, c *models.Campaign) error {
	now := time.Now()
	if err := w.Store.UpdateCampaign(ctx, c.ID, map[string]interface{}{"last_run_at": now}); err != nil {
		w.Logger.WithError(err).Warn("failed to stamp campaign run")
	}

	if !withinWindow(c, now) {
		return nil
	}

	callsMade := c.SentToday
	for calls := 0; calls < maxCallsPerRun; calls++ {
		if callsMade >= c.MaxPerDay {
			return nil
		}

		contact, err := w.Store.NextPendingContact(ctx, c.ID)
		if errors.Is(err, repository.ErrNotFound) {
			w.Logger.WithField("campaign", c.ID).Info("voice campaign drained, finishing")
			return w.Store.UpdateCampaign(ctx, c.ID, map[string]interface{}{"status": models.CampaignFinished})
		}
		if err != nil {
			return err
		}

		lead, err := w.Store.GetLead(ctx, contact.LeadID)
		if err != nil {
			return err
		}

		if reason := contactIneligible(c, contact, lead); reason != "" {
			if err := w.Store.UpdateContact(ctx, contact.ID, map[string]interface{}{
				"status":     models.ContactFailed,
				"last_error": reason,
			}); err != nil {
				return err
			}
			continue
		}

		claimed, err := w.Store.ClaimContact(ctx, contact.ID)
		if err != nil {
			return err
		}
		if !claimed {
			return nil
		}

		if err := w.placeCall(ctx, c, contact, lead, now); err != nil {
			w.Logger.WithFields(logrus.Fields{
				"campaign": c.ID,
				"lead":     lead.ID,
			}).WithError(err).Warn("voice call failed")
			continue
		}
		callsMade++
	}
	return nil
}

func (w *VoiceWorker) placeCall(ctx context.Context, c *models.Campaign, contact *models.CampaignContact, lead *models.Lead, now time.Time) error {
	token, err := utils.GenerateCallbackToken(c.ID, contact.ID, lead.ID, w.SigningSecret)
	if err != nil {
		return fmt.Errorf("sign callback token: %w", err)
	}
	callbackURL := fmt.Sprintf("%s/webhooks/voice/%s", w.CallbackBaseURL, token)

	script := renderTemplate(c.CallScript, lead)
	callID, dialErr := w.Gateway.InitiateVoiceCall(ctx, lead.Phone, script, callbackURL)
	if dialErr != nil {
		if err := w.Store.UpdateContact(ctx, contact.ID, map[string]interface{}{
			"status":     models.ContactFailed,
			"last_error": dialErr.Error(),
			"attempts":   contact.Attempts + 1,
		}); err != nil {
			return err
		}
		return dialErr
	}

	if err := w.Store.UpdateContact(ctx, contact.ID, map[string]interface{}{
		"status":           models.ContactSent,
		"sent_at":          now,
		"attempts":         contact.Attempts + 1,
		"external_call_id": callID,
	}); err != nil {
		return err
	}
	if err := w.Store.BumpCampaignCounters(ctx, c.ID, map[string]int{
		"sent_today":       1,
		"total_calls_made": 1,
	}); err != nil {
		w.Logger.WithError(err).Warn("failed to bump campaign counters")
	}
	if err := w.Store.UpdateCampaign(ctx, c.ID, map[string]interface{}{"last_sent_at": now}); err != nil {
		w.Logger.WithError(err).Warn("failed to stamp campaign send")
	}

	w.Logger.WithFields(logrus.Fields{
		"campaign": c.ID,
		"lead":     lead.ID,
		"call_id":  callID,
	}).Info("voice call placed")
	return nil
}
