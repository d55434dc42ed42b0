package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"task_tracker/internal/config"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const MailQueue = "mail_queue"

// MailMessage is the payload queued for the mail worker.
type MailMessage struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// RabbitMQ owns one AMQP connection and reopens it after the broker drops it.
type RabbitMQ struct {
	url    string
	logger *zap.Logger

	mu     sync.Mutex
	conn   *amqp.Connection
	closed bool
}

type RabbitMQParams struct {
	fx.In

	Config    *config.Config
	Logger    *zap.Logger
	Lifecycle fx.Lifecycle
}

func NewRabbitMQ(p RabbitMQParams) *RabbitMQ {
	mq := &RabbitMQ{
		url:    p.Config.RabbitMQURL,
		logger: p.Logger.Named("rabbitmq"),
	}

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ch, err := mq.Channel()
			if err != nil {
				return err
			}
			defer ch.Close()
			return declareMailQueue(ch)
		},
		OnStop: func(ctx context.Context) error {
			return mq.Close()
		},
	})
	return mq
}

// Channel opens a channel, dialing first when there is no live connection.
func (r *RabbitMQ) Channel() (*amqp.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, errors.New("rabbitmq: client closed")
	}
	if r.conn == nil || r.conn.IsClosed() {
		conn, err := amqp.Dial(r.url)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		r.logger.Info("connected to RabbitMQ")
		r.conn = conn
	}
	return r.conn.Channel()
}

// PublishMail queues msg as a persistent message on the mail queue.
func (r *RabbitMQ) PublishMail(ctx context.Context, msg MailMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode mail message: %w", err)
	}

	ch, err := r.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := declareMailQueue(ch); err != nil {
		return err
	}
	err = ch.PublishWithContext(ctx,
		"",        // default exchange
		MailQueue, // routing key
		false,     // mandatory
		false,     // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish mail message: %w", err)
	}
	return nil
}

func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	if r.conn == nil || r.conn.IsClosed() {
		return nil
	}
	return r.conn.Close()
}

func declareMailQueue(ch *amqp.Channel) error {
	_, err := ch.QueueDeclare(
		MailQueue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	return nil
}
