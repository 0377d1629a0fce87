package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"

	controller "leadpilot/controllers"
	"leadpilot/dispatch"
	"leadpilot/engine"
	"leadpilot/middleware"
	"leadpilot/repository"
)

// Deps carries everything the HTTP surface needs. main.go assembles it
// once and hands it over.
type Deps struct {
	Store    repository.Store
	Engine   *engine.Controller
	Registry *dispatch.SessionRegistry
	Logger   *logrus.Logger
}

func Setup(app *fiber.App, deps Deps) {
	inbound := controller.NewInboundController(deps.Store, deps.Engine, deps.Logger)
	leadAd := controller.NewLeadAdController(deps.Store, deps.Engine, deps.Logger)
	voice := controller.NewVoiceCallbackController(deps.Engine, deps.Logger)
	campaigns := controller.NewCampaignController(deps.Store, deps.Logger)
	conversations := controller.NewConversationController(deps.Engine, deps.Logger)
	webchat := controller.NewWebchatController(deps.Store, deps.Engine, deps.Registry, deps.Logger)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Provider-facing webhooks, rate limited per sender address
	webhooks := app.Group("/webhooks",
		middleware.WebhookRateLimiter(),
		logger.New(logger.Config{
			Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
		}),
	)
	webhooks.Post("/inbound", inbound.HandleInbound)
	webhooks.Post("/lead-ad", leadAd.HandleLeadAd)
	webhooks.Post("/voice/:token", voice.HandleCallback)

	campaignGroup := app.Group("/campaigns")
	campaignGroup.Post("/", campaigns.CreateCampaign)
	campaignGroup.Get("/:id", campaigns.GetCampaign)
	campaignGroup.Post("/:id/start", campaigns.StartCampaign)
	campaignGroup.Post("/:id/stop", campaigns.StopCampaign)

	conversationGroup := app.Group("/conversations")
	conversationGroup.Post("/:id/takeover", conversations.TakeOver)
	conversationGroup.Post("/:id/release", conversations.Release)

	// Webchat widget socket. The session id doubles as the lead address
	// so outbound replies can find the open socket.
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/chat/:company/:session", websocket.New(webchat.HandleSession))

	deps.Logger.Info("Routes initialized successfully")
}
