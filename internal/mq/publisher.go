package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/Feedactions/internal/domain"
)

// Publisher публикует сообщения в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{conn: conn, logger: logger}
}

// Publish отправляет конверт в exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(ctx,
			string(exchange),
			string(routingKey),
			false, // mandatory
			false, // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    msg.ID,
				Type:         string(msg.Type),
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)
		return nil
	})
}

// PublishActionRequested ставит запрос на действие в очередь.
// Потребитель: serve (dispatch).
func (p *Publisher) PublishActionRequested(ctx context.Context, payload ActionRequestedPayload) (string, error) {
	msg, err := NewMessage(MessageTypeActionRequested, payload)
	if err != nil {
		return "", err
	}
	if err := p.Publish(ctx, ExchangeActions, RoutingKeyRequested, msg); err != nil {
		return "", err
	}
	return msg.ID, nil
}

// PublishActionFinished публикует итог action.
// Потребитель: внешние подписчики журнала.
func (p *Publisher) PublishActionFinished(ctx context.Context, instance uuid.UUID, rec domain.ActionRecord) error {
	msg, err := NewMessage(MessageTypeActionFinished, ActionFinishedPayload{
		Instance: instance,
		Record:   rec,
	})
	if err != nil {
		return err
	}
	return p.Publish(ctx, ExchangeActions, RoutingKeyFinished, msg)
}

// FinishedSink адаптирует Publisher к приёмнику журнала.
type FinishedSink struct {
	Publisher *Publisher
	Instance  uuid.UUID
}

// Save публикует запись как action.finished.
func (s FinishedSink) Save(ctx context.Context, rec domain.ActionRecord) error {
	return s.Publisher.PublishActionFinished(ctx, s.Instance, rec)
}
