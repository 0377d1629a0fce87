package controller

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"leadpilot/models"
	"leadpilot/repository"
	"leadpilot/utils"
)

// CampaignController manages drip campaign lifecycle
type CampaignController struct {
	Store  repository.Store
	Logger *logrus.Logger
}

func NewCampaignController(store repository.Store, logger *logrus.Logger) *CampaignController {
	return &CampaignController{Store: store, Logger: logger}
}

// CreateCampaign creates a draft campaign
func (cc *CampaignController) CreateCampaign(c *fiber.Ctx) error {
	var input struct {
		CompanyID          uint     `json:"company_id" validate:"required"`
		Name               string   `json:"name" validate:"required,max=200"`
		Type               string   `json:"type" validate:"required,oneof=text voice"`
		Channel            string   `json:"channel" validate:"omitempty,oneof=whatsapp messenger"`
		MessageTemplate    string   `json:"message_template"`
		CallScript         string   `json:"call_script"`
		ScoreMin           int      `json:"score_min" validate:"min=0,max=100"`
		ScoreMax           int      `json:"score_max" validate:"min=0,max=100"`
		Temperatures       []string `json:"temperatures"`
		FunnelStages       []string `json:"funnel_stages"`
		InactiveForDays    int      `json:"inactive_for_days" validate:"min=0"`
		MaxPerDay          int      `json:"max_per_day" validate:"min=1"`
		IntervalSecondsMin int      `json:"interval_seconds_min" validate:"min=0"`
		ActiveHoursStart   int      `json:"active_hours_start" validate:"min=0,max=23"`
		ActiveHoursEnd     int      `json:"active_hours_end" validate:"min=1,max=24"`
		CallingDays        []string `json:"calling_days"`
		Timezone           string   `json:"timezone"`
		MaxAttemptsPerLead int      `json:"max_attempts_per_lead" validate:"min=1"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}
	if input.Type == models.CampaignTypeText && input.MessageTemplate == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "message_template is required for text campaigns", nil)
	}
	if input.Type == models.CampaignTypeVoice && input.CallScript == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "call_script is required for voice campaigns", nil)
	}

	campaign := models.Campaign{
		CompanyID:          input.CompanyID,
		Name:               input.Name,
		Type:               input.Type,
		Channel:            input.Channel,
		Status:             models.CampaignDraft,
		MessageTemplate:    input.MessageTemplate,
		CallScript:         input.CallScript,
		ScoreMin:           input.ScoreMin,
		ScoreMax:           input.ScoreMax,
		Temperatures:       input.Temperatures,
		FunnelStages:       input.FunnelStages,
		InactiveForDays:    input.InactiveForDays,
		MaxPerDay:          input.MaxPerDay,
		IntervalSecondsMin: input.IntervalSecondsMin,
		ActiveHoursStart:   input.ActiveHoursStart,
		ActiveHoursEnd:     input.ActiveHoursEnd,
		CallingDays:        input.CallingDays,
		MaxAttemptsPerLead: input.MaxAttemptsPerLead,
	}
	if campaign.Channel == "" {
		campaign.Channel = models.ChannelWhatsApp
	}
	if input.Timezone != "" {
		campaign.Timezone = input.Timezone
	}

	if err := cc.Store.CreateCampaign(c.Context(), &campaign); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create campaign", err)
	}
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(campaign))
}

// StartCampaign enrolls the filtered leads and begins executing
func (cc *CampaignController) StartCampaign(c *fiber.Ctx) error {
	campaignID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid campaign id", nil)
	}
	ctx := c.Context()

	campaign, err := cc.Store.GetCampaign(ctx, uint(campaignID))
	if errors.Is(err, repository.ErrNotFound) {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", nil)
	}
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load campaign", err)
	}
	if campaign.Status == models.CampaignRunning {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Campaign is already running", nil)
	}

	filter := repository.LeadFilter{
		CompanyID:    campaign.CompanyID,
		ScoreMin:     campaign.ScoreMin,
		ScoreMax:     campaign.ScoreMax,
		Temperatures: campaign.Temperatures,
		FunnelStages: campaign.FunnelStages,
	}
	if campaign.InactiveForDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -campaign.InactiveForDays)
		filter.InactiveSince = &cutoff
	}

	leads, err := cc.Store.FilterLeads(ctx, filter)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to select leads", err)
	}
	if len(leads) == 0 {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "No leads match the campaign filters", nil)
	}

	contacts := make([]models.CampaignContact, 0, len(leads))
	for _, lead := range leads {
		contacts = append(contacts, models.CampaignContact{
			CampaignID: campaign.ID,
			LeadID:     lead.ID,
			Status:     models.ContactPending,
		})
	}
	if err := cc.Store.CreateContacts(ctx, contacts); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to enroll contacts", err)
	}

	if err := cc.Store.UpdateCampaign(ctx, campaign.ID, map[string]interface{}{
		"status": models.CampaignRunning,
	}); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to start campaign", err)
	}

	cc.Logger.WithFields(logrus.Fields{
		"campaign": campaign.ID,
		"contacts": len(contacts),
	}).Info("campaign started")
	return c.JSON(utils.SuccessResponse(fiber.Map{
		"campaign_id": campaign.ID,
		"enrolled":    len(contacts),
	}))
}

// StopCampaign halts a running campaign
func (cc *CampaignController) StopCampaign(c *fiber.Ctx) error {
	campaignID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid campaign id", nil)
	}
	ctx := c.Context()

	campaign, err := cc.Store.GetCampaign(ctx, uint(campaignID))
	if errors.Is(err, repository.ErrNotFound) {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", nil)
	}
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load campaign", err)
	}
	if campaign.Status != models.CampaignRunning {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Campaign is not running", nil)
	}

	if err := cc.Store.UpdateCampaign(ctx, campaign.ID, map[string]interface{}{
		"status": models.CampaignFinished,
	}); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to stop campaign", err)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{"campaign_id": campaign.ID}))
}

// GetCampaign returns one campaign with its counters
func (cc *CampaignController) GetCampaign(c *fiber.Ctx) error {
	campaignID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid campaign id", nil)
	}

	campaign, err := cc.Store.GetCampaign(c.Context(), uint(campaignID))
	if errors.Is(err, repository.ErrNotFound) {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", nil)
	}
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load campaign", err)
	}
	return c.JSON(utils.SuccessResponse(campaign))
}
