package messaging

import (
	"context"
	"encoding/json"
	"task_tracker/pkg/mailer"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	reconnectDelay = 5 * time.Second
	redeliverDelay = 2 * time.Second
)

type MailSender interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// MailWorker drains the mail queue. Messages are acked only after the relay
// accepted them; transport failures are requeued.
type MailWorker struct {
	mq     *RabbitMQ
	sender MailSender
	logger *zap.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

type MailWorkerParams struct {
	fx.In

	RabbitMQ  *RabbitMQ
	Sender    MailSender
	Logger    *zap.Logger
	Lifecycle fx.Lifecycle
}

func NewMailWorker(p MailWorkerParams) *MailWorker {
	w := &MailWorker{
		mq:     p.RabbitMQ,
		sender: p.Sender,
		logger: p.Logger.Named("mail_worker"),
	}

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ctx, cancel := context.WithCancel(context.Background())
			w.cancel = cancel
			w.done = make(chan struct{})
			go w.run(ctx)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if w.cancel == nil {
				return nil
			}
			w.cancel()
			select {
			case <-w.done:
			case <-ctx.Done():
			}
			return nil
		},
	})
	return w
}

func (w *MailWorker) run(ctx context.Context) {
	defer close(w.done)
	for {
		if err := w.consume(ctx); err != nil {
			w.logger.Error("mail consumer stopped", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
			w.logger.Info("restarting mail consumer")
		}
	}
}

func (w *MailWorker) consume(ctx context.Context) error {
	ch, err := w.mq.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := ch.Qos(1, 0, false); err != nil {
		return err
	}
	if err := declareMailQueue(ch); err != nil {
		return err
	}

	deliveries, err := ch.Consume(
		MailQueue,
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return err
	}

	w.logger.Info("waiting for mail messages", zap.String("queue", MailQueue))
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return amqp.ErrClosed
			}
			w.handle(ctx, d)
		}
	}
}

func (w *MailWorker) handle(ctx context.Context, d amqp.Delivery) {
	var msg MailMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		w.logger.Error("dropping malformed mail message", zap.Error(err))
		if err := d.Nack(false, false); err != nil {
			w.logger.Error("failed to nack message", zap.Error(err))
		}
		return
	}

	err := w.sender.Send(ctx, mailer.Message{To: msg.To, Subject: msg.Subject, Body: msg.Body})
	if err != nil {
		w.logger.Warn("mail delivery failed, requeueing", zap.String("to", msg.To), zap.Error(err))
		select {
		case <-ctx.Done():
		case <-time.After(redeliverDelay):
		}
		if err := d.Nack(false, true); err != nil {
			w.logger.Error("failed to nack message", zap.Error(err))
		}
		return
	}

	if err := d.Ack(false); err != nil {
		w.logger.Error("failed to ack message", zap.Error(err))
		return
	}
	w.logger.Info("mail delivered", zap.String("to", msg.To), zap.String("subject", msg.Subject))
}
