package main

import (
	"context"
	"os"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"leadpilot/config"
	"leadpilot/dispatch"
	"leadpilot/engine"
	"leadpilot/genai"
	"leadpilot/middleware"
	"leadpilot/models"
	"leadpilot/repository"
	"leadpilot/routes"
	"leadpilot/worker"
)

func main() {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if err := config.LoadConfig(); err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	if config.AppConfig.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         config.AppConfig.SentryDSN,
			Environment: config.AppConfig.Environment,
		}); err != nil {
			logger.Warnf("Sentry initialization failed: %v", err)
		}
	}

	if err := config.ConnectDB(); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	store := repository.NewGormStore(config.DB)

	// Channel dispatch. Webchat replies go straight to the open socket,
	// everything else through the provider HTTP gateways.
	registry := dispatch.NewSessionRegistry()
	senders := map[string]dispatch.Sender{
		models.ChannelWhatsApp:  dispatch.NewHTTPSender(config.AppConfig.WhatsApp.Endpoint, config.AppConfig.WhatsApp.APIKey),
		models.ChannelMessenger: dispatch.NewHTTPSender(config.AppConfig.Messenger.Endpoint, config.AppConfig.Messenger.APIKey),
		models.ChannelWebchat:   dispatch.NewWebchatSender(registry),
	}
	dialer := dispatch.NewHTTPVoiceDialer(config.AppConfig.Voice.Endpoint, config.AppConfig.Voice.APIKey)
	gateway := dispatch.NewProviderGateway(senders, dialer, logger)

	generator := genai.NewOpenAIGenerator(config.AppConfig.OpenAIAPIKey, config.AppConfig.OpenAIModel)

	eng := engine.NewController(store, gateway, generator, engine.DefaultHandoffConfig(), logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	campaignWorker := worker.NewCampaignWorker(store, gateway, logger)
	go campaignWorker.Start(ctx)

	voiceWorker := worker.NewVoiceWorker(store, gateway, logger,
		config.AppConfig.CallbackBaseURL, config.AppConfig.CallbackSigningSecret)
	go voiceWorker.Start(ctx)

	// Daily send counters roll over at midnight, campaign local time
	scheduler := cron.New(cron.WithLocation(config.DefaultLocation()))
	if _, err := scheduler.AddFunc("0 0 * * *", func() {
		worker.ResetDailyCounters(config.DB, logger)
	}); err != nil {
		logger.Fatalf("Failed to schedule daily counter reset: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	app := fiber.New()
	app.Use(middleware.CORS())

	routes.Setup(app, routes.Deps{
		Store:    store,
		Engine:   eng,
		Registry: registry,
		Logger:   logger,
	})

	logger.Infof("Server starting on port %s", config.AppConfig.ServerPort)
	if err := app.Listen(":" + config.AppConfig.ServerPort); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}
