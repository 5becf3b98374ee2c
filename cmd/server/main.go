// cmd/server/main.go
package main

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/AllPhaseMedia/unionsoftware-sub001/internal/config"
	"github.com/AllPhaseMedia/unionsoftware-sub001/internal/db"
	"github.com/AllPhaseMedia/unionsoftware-sub001/internal/handler"
	"github.com/AllPhaseMedia/unionsoftware-sub001/internal/mailer"
	"github.com/AllPhaseMedia/unionsoftware-sub001/internal/queue"
	"github.com/AllPhaseMedia/unionsoftware-sub001/internal/ratelimit"
	"github.com/AllPhaseMedia/unionsoftware-sub001/internal/repository"
	"github.com/AllPhaseMedia/unionsoftware-sub001/internal/service"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, relying on OS environment variables")
	}

	cfg := config.Load()

	// Init DB
	db.Init()

	campaignRepo := &repository.CampaignRepository{DB: db.DB}
	memberRepo := &repository.MemberRepository{DB: db.DB}
	recipientRepo := &repository.RecipientRepository{DB: db.DB}
	engagementRepo := &repository.EngagementRepository{DB: db.DB}
	orgRepo := &repository.OrganizationRepository{DB: db.DB}
	templateRepo := &repository.TemplateRepository{DB: db.DB}

	var limiter ratelimit.Limiter = ratelimit.NoopLimiter{}
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("invalid REDIS_URL: %v", err)
		}
		limiter = ratelimit.NewRedisLimiter(redis.NewClient(opts))
		log.Println("✅ Send-rate limiting via Redis")
	}

	var publisher queue.BatchPublisher
	if cfg.AmqpURL != "" {
		q, err := queue.Dial(cfg.AmqpURL)
		if err != nil {
			log.Println("⚠️ RabbitMQ unavailable, batches run synchronously only:", err)
		} else {
			defer q.Close()
			publisher = q
		}
	}

	campaignService := &service.CampaignService{
		CampaignRepo:  campaignRepo,
		RecipientRepo: recipientRepo,
		OrgRepo:       orgRepo,
		TemplateRepo:  templateRepo,
	}
	recipientService := &service.RecipientService{
		CampaignRepo:  campaignRepo,
		RecipientRepo: recipientRepo,
		MemberRepo:    memberRepo,
	}
	deliveryService := &service.DeliveryService{
		CampaignRepo:     campaignRepo,
		RecipientRepo:    recipientRepo,
		OrgRepo:          orgRepo,
		Mailer:           mailer.NewMockMailer(),
		Limiter:          limiter,
		MailerTimeout:    time.Duration(cfg.MailerTimeoutSec) * time.Second,
		DefaultBatchSize: cfg.DefaultBatchSize,
	}
	trackingService := &service.TrackingService{
		CampaignRepo:   campaignRepo,
		RecipientRepo:  recipientRepo,
		EngagementRepo: engagementRepo,
	}

	campaignHandler := &handler.CampaignHandler{
		Campaigns:     campaignService,
		Recipients:    recipientService,
		Delivery:      deliveryService,
		RecipientRepo: recipientRepo,
		Publisher:     publisher,
	}
	trackingHandler := &handler.TrackingHandler{
		Tracking:    trackingService,
		FallbackURL: cfg.PublicBaseURL,
	}
	templateHandler := &handler.TemplateHandler{Repo: templateRepo}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/healthz"))

	// Campaign routes
	r.Route("/campaigns", func(r chi.Router) {
		r.Post("/", campaignHandler.CreateCampaign)
		r.Get("/", campaignHandler.ListCampaigns)
		r.Get("/{id}", campaignHandler.GetCampaign)
		r.Put("/{id}", campaignHandler.UpdateCampaign)
		r.Delete("/{id}", campaignHandler.DeleteCampaign)

		r.Post("/{id}/recipients", campaignHandler.GenerateRecipients)
		r.Get("/{id}/recipients", campaignHandler.ListRecipients)
		r.Post("/{id}/preview", campaignHandler.Preview)

		r.Post("/{id}/schedule", campaignHandler.Schedule)
		r.Post("/{id}/start", campaignHandler.Start)
		r.Post("/{id}/pause", campaignHandler.Pause)
		r.Post("/{id}/resume", campaignHandler.Resume)
		r.Post("/{id}/cancel", campaignHandler.Cancel)
		r.Post("/{id}/send-batch", campaignHandler.SendBatch)
	})

	// Template routes
	r.Post("/templates", templateHandler.Create)
	r.Get("/templates", templateHandler.List)

	// Engagement tracking, hit by email clients
	r.Get("/t/o/{token}", trackingHandler.Open)
	r.Get("/t/c/{token}", trackingHandler.Click)

	log.Println("🚀 Server running on :" + cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, r))
}
