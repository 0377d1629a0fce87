package controller

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"

	"leadpilot/dispatch"
	"leadpilot/engine"
	"leadpilot/models"
	"leadpilot/repository"
)

// WebchatController bridges webchat sockets into the engine. Each
// socket is registered under its session id; bot replies flow back
// through the dispatch registry. Webchat leads are addressed by their
// session id until a phone number is captured by a flow step.
type WebchatController struct {
	Store    repository.Store
	Engine   *engine.Controller
	Registry *dispatch.SessionRegistry
	Logger   *logrus.Logger
}

func NewWebchatController(store repository.Store, eng *engine.Controller, registry *dispatch.SessionRegistry, logger *logrus.Logger) *WebchatController {
	return &WebchatController{Store: store, Engine: eng, Registry: registry, Logger: logger}
}

type webchatInbound struct {
	Message    string `json:"message"`
	SenderName string `json:"sender_name"`
}

// HandleSession owns one webchat socket's lifecycle
func (wc *WebchatController) HandleSession(c *websocket.Conn) {
	defer c.Close()

	companyID, err := strconv.ParseUint(c.Params("company"), 10, 32)
	if err != nil {
		wc.Logger.Warn("webchat session rejected: bad company id")
		return
	}
	sessionID := c.Params("session")
	if sessionID == "" {
		wc.Logger.Warn("webchat session rejected: missing session id")
		return
	}

	wc.Registry.Register(sessionID, c)
	defer wc.Registry.Unregister(sessionID, c)

	for {
		var input webchatInbound
		if err := c.ReadJSON(&input); err != nil {
			return
		}
		if input.Message == "" {
			continue
		}
		wc.processFrame(context.Background(), uint(companyID), sessionID, input)
	}
}

func (wc *WebchatController) processFrame(ctx context.Context, companyID uint, sessionID string, input webchatInbound) {
	lead, err := wc.Store.GetLeadByPhone(ctx, companyID, sessionID)
	if errors.Is(err, repository.ErrNotFound) {
		lead = &models.Lead{
			CompanyID: companyID,
			Name:      input.SenderName,
			Phone:     sessionID,
			Source:    models.ChannelWebchat,
		}
		if err := wc.Store.CreateLead(ctx, lead); err != nil {
			wc.Logger.WithError(err).Error("failed to create webchat lead")
			return
		}
		attachDefaultPipeline(ctx, wc.Store, lead, wc.Logger)
	} else if err != nil {
		wc.Logger.WithError(err).Error("failed to look up webchat lead")
		return
	}

	if conv, err := wc.Store.FindActiveConversation(ctx, lead.ID); err == nil {
		if _, err := wc.Engine.HandleInbound(ctx, engine.InboundMessage{
			ConversationID: conv.ID,
			Body:           input.Message,
			SenderName:     input.SenderName,
		}); err != nil {
			wc.Logger.WithError(err).Error("webchat step failed")
		}
		return
	} else if !errors.Is(err, repository.ErrNotFound) {
		wc.Logger.WithError(err).Error("failed to look up webchat conversation")
		return
	}

	if _, err := wc.Engine.StartConversation(ctx, lead, models.ChannelWebchat); err != nil {
		wc.Logger.WithError(err).Error("failed to start webchat conversation")
	}
}
