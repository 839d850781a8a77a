// cmd/server/main.go
package main

import (
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/streadway/amqp"

	"github.com/CesarNXT/vitoria4u-v2-sub002/internal/config"
	"github.com/CesarNXT/vitoria4u-v2-sub002/internal/controller"
	"github.com/CesarNXT/vitoria4u-v2-sub002/internal/db"
	"github.com/CesarNXT/vitoria4u-v2-sub002/internal/dispatcher"
	"github.com/CesarNXT/vitoria4u-v2-sub002/internal/engine"
	"github.com/CesarNXT/vitoria4u-v2-sub002/internal/events"
	"github.com/CesarNXT/vitoria4u-v2-sub002/internal/pacing"
	"github.com/CesarNXT/vitoria4u-v2-sub002/internal/repository"
	"github.com/CesarNXT/vitoria4u-v2-sub002/internal/service"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(os.Stderr)

	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("no .env file found, relying on OS environment variables")
	}

	cfg := config.Load()
	if cfg.CronSecret == "" {
		log.Fatal().Msg("CRON_SECRET must be set")
	}

	conn, err := db.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer conn.Close()
	log.Info().Str("db", cfg.DBName).Msg("connected to database")

	campaignRepo := &repository.CampaignRepository{DB: conn}
	recipientRepo := &repository.RecipientRepository{DB: conn}
	indexRepo := &repository.ActiveWorkRepository{DB: conn}
	tenantRepo := &repository.TenantRepository{DB: conn}

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.AMQPURL != "" {
		amqpConn, err := amqp.Dial(cfg.AMQPURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
		}
		defer amqpConn.Close()

		pub, err := events.NewAMQPPublisher(amqpConn, log.With().Str("component", "events").Logger())
		if err != nil {
			log.Fatal().Err(err).Msg("failed to set up event publisher")
		}
		defer pub.Close()
		publisher = pub
		log.Info().Msg("delivery events enabled")
	}

	gateway := dispatcher.NewGatewayClient(cfg.GatewayURL, cfg.DispatchTimeout,
		log.With().Str("component", "dispatcher").Logger())

	eng := &engine.Engine{
		Campaigns:  campaignRepo,
		Recipients: recipientRepo,
		Index:      indexRepo,
		Tenants:    tenantRepo,
		Dispatcher: gateway,
		Pacer:      pacing.New(cfg.PacingInterval, cfg.PacingJitter),
		Events:     publisher,
		Cfg: engine.Config{
			DiscoveryLimit: cfg.DiscoveryLimit,
			GlobalSendCap:  cfg.GlobalSendCap,
			PendingBatch:   cfg.PendingBatch,
		},
		Log: log.With().Str("component", "engine").Logger(),
	}

	campaignService := &service.CampaignService{
		CampaignRepo:  campaignRepo,
		RecipientRepo: recipientRepo,
		IndexRepo:     indexRepo,
		TenantRepo:    tenantRepo,
		Log:           log.With().Str("component", "service").Logger(),
	}

	campaignController := &controller.CampaignController{
		CampaignService: campaignService,
		Engine:          eng,
		Log:             log.With().Str("component", "http").Logger(),
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	// Campaign routes
	r.Post("/campaigns", campaignController.CreateCampaign)
	r.Get("/campaigns/{id}", campaignController.GetCampaign)
	r.Post("/campaigns/{id}/cancel", campaignController.CancelCampaign)
	r.Post("/campaigns/{id}/reschedule", campaignController.RescheduleCampaign)
	r.Post("/campaigns/{id}/requeue-failed", campaignController.RequeueFailed)
	r.Delete("/campaigns/{id}", campaignController.DeleteCampaign)

	// Periodic tick trigger, guarded by the shared cron secret
	r.Group(func(r chi.Router) {
		r.Use(controller.RequireCronSecret(cfg.CronSecret))
		r.Post("/cron/process-campaigns", campaignController.ProcessCampaigns)
	})

	log.Info().Str("port", cfg.Port).Msg("server running")
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
