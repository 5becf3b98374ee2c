// cmd/worker/main.go
package main

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/streadway/amqp"

	"github.com/AllPhaseMedia/unionsoftware-sub001/internal/config"
	"github.com/AllPhaseMedia/unionsoftware-sub001/internal/db"
	"github.com/AllPhaseMedia/unionsoftware-sub001/internal/mailer"
	"github.com/AllPhaseMedia/unionsoftware-sub001/internal/queue"
	"github.com/AllPhaseMedia/unionsoftware-sub001/internal/ratelimit"
	"github.com/AllPhaseMedia/unionsoftware-sub001/internal/repository"
	"github.com/AllPhaseMedia/unionsoftware-sub001/internal/service"
)

// The worker is the cron-style caller from the delivery model: it pulls a
// batch job off the queue, runs exactly one batch, and while the campaign
// stays in sending with recipients remaining it republishes the job. The
// campaign state guard stops the loop the moment an operator pauses or
// cancels.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, relying on OS environment variables")
	}

	cfg := config.Load()
	db.Init()

	campaignRepo := &repository.CampaignRepository{DB: db.DB}
	recipientRepo := &repository.RecipientRepository{DB: db.DB}
	orgRepo := &repository.OrganizationRepository{DB: db.DB}

	var limiter ratelimit.Limiter = ratelimit.NoopLimiter{}
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("invalid REDIS_URL: %v", err)
		}
		limiter = ratelimit.NewRedisLimiter(redis.NewClient(opts))
	}

	delivery := &service.DeliveryService{
		CampaignRepo:     campaignRepo,
		RecipientRepo:    recipientRepo,
		OrgRepo:          orgRepo,
		Mailer:           mailer.NewMockMailer(),
		Limiter:          limiter,
		MailerTimeout:    time.Duration(cfg.MailerTimeoutSec) * time.Second,
		DefaultBatchSize: cfg.DefaultBatchSize,
	}

	q, err := queue.Dial(cfg.AmqpURL)
	if err != nil {
		log.Fatal("Failed to connect to RabbitMQ:", err)
	}
	defer q.Close()

	msgs, err := q.Consume()
	if err != nil {
		log.Fatal("Failed to register consumer:", err)
	}

	log.Println("Worker running, waiting for batch jobs...")
	for d := range msgs {
		handleDelivery(d, delivery, q)
	}
}

func handleDelivery(d amqp.Delivery, delivery *service.DeliveryService, q *queue.AMQPQueue) {
	var job queue.BatchJob
	if err := json.Unmarshal(d.Body, &job); err != nil {
		log.Println("Invalid batch job:", err)
		d.Ack(false)
		return
	}

	result, err := delivery.SendBatch(context.Background(), job.CampaignID, job.BatchSize)
	if err != nil {
		// Invalid transitions are terminal for this job: the campaign was
		// paused, cancelled or finished since the job was queued.
		log.Printf("batch for campaign %d not run: %v", job.CampaignID, err)
		d.Ack(false)
		return
	}

	log.Printf("campaign %d: sent=%d failed=%d remaining=%d completed=%v",
		job.CampaignID, result.Sent, result.Failed, result.Remaining, result.Completed)

	if !result.Completed && result.Remaining > 0 {
		if delay := nextBatchDelay(result); delay > 0 {
			time.Sleep(delay)
		}
		if err := q.PublishBatch(job); err != nil {
			log.Println("⚠️ failed to requeue next batch:", err)
			d.Nack(false, true) // let the broker redeliver this one
			return
		}
	}
	d.Ack(false)
}

// nextBatchDelay spaces out the requeue when a batch made no progress:
// the rate limiter denied the whole claim, and an immediate republish
// would spin against the broker, the database and Redis until the
// limiter window frees budget again. One window of delay is enough.
func nextBatchDelay(result *service.BatchResult) time.Duration {
	if result.Sent+result.Failed == 0 {
		return time.Second
	}
	return 0
}
