package controller

import (
	"errors"

	"github.com/badoux/checkmail"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"leadpilot/engine"
	"leadpilot/models"
	"leadpilot/repository"
	"leadpilot/utils"
)

// LeadAdController ingests normalized lead payloads from social
// lead-ad providers.
type LeadAdController struct {
	Store  repository.Store
	Engine *engine.Controller
	Logger *logrus.Logger
}

func NewLeadAdController(store repository.Store, eng *engine.Controller, logger *logrus.Logger) *LeadAdController {
	return &LeadAdController{Store: store, Engine: eng, Logger: logger}
}

// HandleLeadAd creates the lead and opens its qualification
// conversation on the lead's preferred channel.
func (lc *LeadAdController) HandleLeadAd(c *fiber.Ctx) error {
	var input struct {
		CompanyID uint   `json:"company_id" validate:"required"`
		Name      string `json:"name" validate:"required,max=200"`
		Phone     string `json:"phone" validate:"required"`
		Email     string `json:"email"`
		Source    string `json:"source" validate:"required,max=100"`
		Channel   string `json:"channel" validate:"omitempty,oneof=whatsapp webchat messenger"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}
	if input.Email != "" {
		if err := checkmail.ValidateFormat(input.Email); err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid email address", err)
		}
	}
	if input.Channel == "" {
		input.Channel = models.ChannelWhatsApp
	}

	ctx := c.Context()

	lead, err := lc.Store.GetLeadByPhone(ctx, input.CompanyID, input.Phone)
	if errors.Is(err, repository.ErrNotFound) {
		lead = &models.Lead{
			CompanyID: input.CompanyID,
			Name:      input.Name,
			Phone:     input.Phone,
			Email:     input.Email,
			Source:    input.Source,
		}
		if err := lc.Store.CreateLead(ctx, lead); err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create lead", err)
		}
		attachDefaultPipeline(ctx, lc.Store, lead, lc.Logger)
	} else if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to look up lead", err)
	}

	result, err := lc.Engine.StartConversation(ctx, lead, input.Channel)
	if err != nil {
		lc.Logger.WithError(err).Error("failed to start lead-ad conversation")
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to start conversation", err)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{
		"lead_id": lead.ID,
		"result":  result,
	}))
}
