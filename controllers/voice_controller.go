package controller

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"leadpilot/config"
	"leadpilot/engine"
	"leadpilot/repository"
	"leadpilot/utils"
)

// VoiceCallbackController receives call-outcome callbacks from the
// voice provider, authenticated by the signed token minted at dial
// time.
type VoiceCallbackController struct {
	Engine *engine.Controller
	Logger *logrus.Logger
}

func NewVoiceCallbackController(eng *engine.Controller, logger *logrus.Logger) *VoiceCallbackController {
	return &VoiceCallbackController{Engine: eng, Logger: logger}
}

// HandleCallback classifies the transcript and applies the outcome
func (vc *VoiceCallbackController) HandleCallback(c *fiber.Ctx) error {
	claims, err := utils.ParseCallbackToken(c.Params("token"), config.AppConfig.CallbackSigningSecret)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid callback token", nil)
	}

	var input struct {
		Transcript string `json:"transcript"`
		CallStatus string `json:"call_status"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	result, err := vc.Engine.HandleVoiceOutcome(c.Context(), claims.CampaignID, claims.ContactID, input.Transcript)
	if errors.Is(err, repository.ErrNotFound) {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Campaign attempt not found", nil)
	}
	if err != nil {
		vc.Logger.WithError(err).Error("voice outcome handling failed")
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to process call outcome", err)
	}

	vc.Logger.WithFields(logrus.Fields{
		"campaign": claims.CampaignID,
		"contact":  claims.ContactID,
		"outcome":  result.Outcome,
	}).Info("voice callback processed")
	return c.JSON(utils.SuccessResponse(result))
}
