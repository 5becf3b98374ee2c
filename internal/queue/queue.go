package queue

import (
	"encoding/json"

	"github.com/streadway/amqp"
)

const BatchQueueName = "campaign_batches"

// BatchJob asks the worker to run one delivery batch for a campaign.
type BatchJob struct {
	CampaignID int `json:"campaign_id"`
	BatchSize  int `json:"batch_size"`
}

// BatchPublisher enqueues batch jobs. The in-process server and the
// RabbitMQ-backed worker both drive delivery through this.
type BatchPublisher interface {
	PublishBatch(job BatchJob) error
}

// AMQPQueue wraps a RabbitMQ channel with the campaign_batches queue
// declared durable.
type AMQPQueue struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func Dial(url string) (*AMQPQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := ch.QueueDeclare(
		BatchQueueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	return &AMQPQueue{conn: conn, ch: ch}, nil
}

func (q *AMQPQueue) PublishBatch(job BatchJob) error {
	body, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.ch.Publish(
		"",
		BatchQueueName,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

// Consume returns the delivery channel for batch jobs. Manual ack so a
// crashed worker leaves the job requeueable.
func (q *AMQPQueue) Consume() (<-chan amqp.Delivery, error) {
	return q.ch.Consume(
		BatchQueueName,
		"",
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
}

func (q *AMQPQueue) Close() {
	if q.ch != nil {
		q.ch.Close()
	}
	if q.conn != nil {
		q.conn.Close()
	}
}

var _ BatchPublisher = (*AMQPQueue)(nil)
