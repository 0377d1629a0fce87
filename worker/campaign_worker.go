package worker

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"leadpilot/dispatch"
	"leadpilot/models"
	"leadpilot/repository"
)

// CampaignWorker paces text re-engagement campaigns. Each tick
// processes at most one contact per running campaign; every gate that
// fails defers the campaign to the next tick.
type CampaignWorker struct {
	Store    repository.Store
	Gateway  dispatch.Gateway
	Logger   *logrus.Logger
	Interval time.Duration
}

func NewCampaignWorker(store repository.Store, gateway dispatch.Gateway, logger *logrus.Logger) *CampaignWorker {
	return &CampaignWorker{
		Store:    store,
		Gateway:  gateway,
		Logger:   logger,
		Interval: 1 * time.Minute,
	}
}

func (w *CampaignWorker) Start(ctx context.Context) {
	// Initial delay to let the server start up
	time.Sleep(10 * time.Second)

	w.Logger.Info("campaign worker started")

	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.Logger.Info("campaign worker shutting down")
			return
		case <-ticker.C:
			w.Tick(ctx)
		}
	}
}

// Tick runs one scheduler pass. It is safe to invoke concurrently and
// more often than the timer does: contact claiming keeps dispatch
// at-most-once.
func (w *CampaignWorker) Tick(ctx context.Context) {
	campaigns, err := w.Store.ListRunningCampaigns(ctx, models.CampaignTypeText)
	if err != nil {
		w.Logger.WithError(err).Error("failed to list running text campaigns")
		return
	}
	for i := range campaigns {
		if err := w.processCampaign(ctx, &campaigns[i]); err != nil {
			w.Logger.WithField("campaign", campaigns[i].ID).WithError(err).Error("campaign tick failed")
		}
	}
}

func (w *CampaignWorker) processCampaign(ctx context.Context, c *models.Campaign) error {
	now := time.Now()
	if err := w.Store.UpdateCampaign(ctx, c.ID, map[string]interface{}{"last_run_at": now}); err != nil {
		w.Logger.WithError(err).Warn("failed to stamp campaign run")
	}

	if !withinWindow(c, now) {
		return nil
	}
	if c.SentToday >= c.MaxPerDay {
		return nil
	}
	if !intervalElapsed(c, now) {
		return nil
	}

	contact, err := w.Store.NextPendingContact(ctx, c.ID)
	if errors.Is(err, repository.ErrNotFound) {
		w.Logger.WithField("campaign", c.ID).Info("campaign drained, finishing")
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
		// Failed, not re-queued: keeps the FIFO moving on the next tick.
		return w.Store.UpdateContact(ctx, contact.ID, map[string]interface{}{
			"status":     models.ContactFailed,
			"last_error": reason,
		})
	}

	claimed, err := w.Store.ClaimContact(ctx, contact.ID)
	if err != nil {
		return err
	}
	if !claimed {
		// A concurrent tick owns this contact.
		return nil
	}

	body := renderTemplate(c.MessageTemplate, lead)
	externalID, sendErr := w.Gateway.SendText(ctx, c.Channel, lead.Phone, body)
	if sendErr != nil {
		return w.Store.UpdateContact(ctx, contact.ID, map[string]interface{}{
			"status":     models.ContactFailed,
			"last_error": sendErr.Error(),
			"attempts":   contact.Attempts + 1,
		})
	}

	if err := w.Store.UpdateContact(ctx, contact.ID, map[string]interface{}{
		"status":   models.ContactSent,
		"sent_at":  now,
		"attempts": contact.Attempts + 1,
	}); err != nil {
		return err
	}
	if err := w.Store.BumpCampaignCounters(ctx, c.ID, map[string]int{
		"sent_today":          1,
		"total_messages_sent": 1,
	}); err != nil {
		w.Logger.WithError(err).Warn("failed to bump campaign counters")
	}
	if err := w.Store.UpdateCampaign(ctx, c.ID, map[string]interface{}{"last_sent_at": now}); err != nil {
		w.Logger.WithError(err).Warn("failed to stamp campaign send")
	}

	// Audit row lands in the lead's transcript when a conversation exists.
	if conv, err := w.Store.FindActiveConversation(ctx, lead.ID); err == nil {
		if err := w.Store.CreateMessage(ctx, &models.Message{
			ConversationID: conv.ID,
			LeadID:         lead.ID,
			SenderType:     models.SenderBot,
			Direction:      models.DirectionOutbound,
			Body:           body,
			ExternalID:     externalID,
		}); err != nil {
			w.Logger.WithError(err).Warn("failed to record campaign message")
		}
	}

	w.Logger.WithFields(logrus.Fields{
		"campaign": c.ID,
		"lead":     lead.ID,
	}).Info("campaign message sent")
	return nil
}

// ResetDailyCounters zeroes the per-day campaign quota, scheduled at
// midnight by cron.
func ResetDailyCounters(db *gorm.DB, logger *logrus.Logger) {
	if err := db.Model(&models.Campaign{}).
		Where("sent_today > 0").
		Update("sent_today", 0).
		Error; err != nil {
		logger.WithError(err).Error("failed to reset campaign daily counters")
		return
	}
	logger.Info("campaign daily counters reset")
}
