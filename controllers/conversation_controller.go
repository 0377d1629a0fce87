package controller

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"leadpilot/engine"
	"leadpilot/repository"
	"leadpilot/utils"
)

// ConversationController exposes the explicit human takeover/release
// transitions.
type ConversationController struct {
	Engine *engine.Controller
	Logger *logrus.Logger
}

func NewConversationController(eng *engine.Controller, logger *logrus.Logger) *ConversationController {
	return &ConversationController{Engine: eng, Logger: logger}
}

// TakeOver moves a conversation to a human agent
func (cc *ConversationController) TakeOver(c *fiber.Ctx) error {
	convID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid conversation id", nil)
	}

	if err := cc.Engine.TakeOver(c.Context(), uint(convID)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Conversation not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to take over conversation", err)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{"conversation_id": convID}))
}

// Release gives the conversation back to the bot
func (cc *ConversationController) Release(c *fiber.Ctx) error {
	convID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid conversation id", nil)
	}

	if err := cc.Engine.Reactivate(c.Context(), uint(convID)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Conversation not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to release conversation", err)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{"conversation_id": convID}))
}
