package controller

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"leadpilot/engine"
	"leadpilot/models"
	"leadpilot/repository"
	"leadpilot/utils"
)

// InboundController receives normalized inbound payloads from channel
// adapters and runs them through the conversation engine.
type InboundController struct {
	Store  repository.Store
	Engine *engine.Controller
	Logger *logrus.Logger
}

func NewInboundController(store repository.Store, eng *engine.Controller, logger *logrus.Logger) *InboundController {
	return &InboundController{Store: store, Engine: eng, Logger: logger}
}

// HandleInbound processes one normalized inbound message
func (ic *InboundController) HandleInbound(c *fiber.Ctx) error {
	var input struct {
		CompanyID      uint   `json:"company_id" validate:"required"`
		ConversationID *uint  `json:"conversation_id"`
		LeadPhone      string `json:"lead_phone"`
		Message        string `json:"message" validate:"required"`
		Channel        string `json:"channel" validate:"required,oneof=whatsapp webchat messenger voice"`
		SenderName     string `json:"sender_name"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}
	if input.ConversationID == nil && input.LeadPhone == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Either conversation_id or lead_phone is required", nil)
	}

	ctx := c.Context()

	if input.ConversationID != nil {
		result, err := ic.Engine.HandleInbound(ctx, engine.InboundMessage{
			ConversationID: *input.ConversationID,
			Body:           input.Message,
			SenderName:     input.SenderName,
		})
		if errors.Is(err, repository.ErrNotFound) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Conversation not found", nil)
		}
		if err != nil {
			ic.Logger.WithError(err).Error("inbound step failed")
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to process message", err)
		}
		return c.JSON(utils.SuccessResponse(result))
	}

	// First-contact path: resolve or create the lead by phone, then
	// continue or open its conversation.
	lead, err := ic.Store.GetLeadByPhone(ctx, input.CompanyID, input.LeadPhone)
	if errors.Is(err, repository.ErrNotFound) {
		lead = &models.Lead{
			CompanyID: input.CompanyID,
			Name:      input.SenderName,
			Phone:     input.LeadPhone,
			Source:    input.Channel,
		}
		if err := ic.Store.CreateLead(ctx, lead); err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create lead", err)
		}
		attachDefaultPipeline(ctx, ic.Store, lead, ic.Logger)
	} else if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to look up lead", err)
	}

	if conv, err := ic.Store.FindActiveConversation(ctx, lead.ID); err == nil {
		result, stepErr := ic.Engine.HandleInbound(ctx, engine.InboundMessage{
			ConversationID: conv.ID,
			Body:           input.Message,
			SenderName:     input.SenderName,
		})
		if stepErr != nil {
			ic.Logger.WithError(stepErr).Error("inbound step failed")
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to process message", stepErr)
		}
		return c.JSON(utils.SuccessResponse(result))
	} else if !errors.Is(err, repository.ErrNotFound) {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to look up conversation", err)
	}

	result, err := ic.Engine.StartConversation(ctx, lead, input.Channel)
	if err != nil {
		ic.Logger.WithError(err).Error("failed to start conversation")
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to start conversation", err)
	}
	return c.JSON(utils.SuccessResponse(result))
}
