package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrDiscard — сообщение некорректно и повтор ничего не изменит.
// Обработчик оборачивает им ошибку, чтобы сообщение было подтверждено и забыто.
var ErrDiscard = errors.New("discard message")

// Handler обрабатывает одно сообщение.
//
//   - nil — ack
//   - ошибка с ErrDiscard — ack с предупреждением в логе
//   - любая другая ошибка — nack без requeue, сообщение уходит в DLQ
type Handler func(ctx context.Context, msg *Message) error

// disposition переводит результат обработчика в ack/nack.
type disposition int

const (
	dispAck disposition = iota
	dispDiscard
	dispDeadLetter
)

func dispositionOf(err error) disposition {
	switch {
	case err == nil:
		return dispAck
	case errors.Is(err, ErrDiscard):
		return dispDiscard
	default:
		return dispDeadLetter
	}
}

// ConsumerConfig — конфигурация consumer.
type ConsumerConfig struct {
	Queue    Queue
	Handler  Handler
	Prefetch int
}

// Consumer читает очередь и передаёт сообщения обработчику по одному.
type Consumer struct {
	conn     *Connection
	logger   *slog.Logger
	queue    Queue
	handler  Handler
	prefetch int
}

// NewConsumer создаёт новый Consumer.
func NewConsumer(conn *Connection, logger *slog.Logger, cfg ConsumerConfig) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 1
	}

	return &Consumer{
		conn:     conn,
		logger:   logger.With("queue", cfg.Queue),
		queue:    cfg.Queue,
		handler:  cfg.Handler,
		prefetch: prefetch,
	}
}

// Run потребляет сообщения до отмены ctx, переживая переподключения.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		deliveries, err := c.subscribe()
		if err != nil {
			c.logger.Error("failed to subscribe", "error", err)
		} else {
			c.logger.Info("consumer started")
			c.drain(ctx, deliveries)
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		c.logger.Warn("waiting for reconnect")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.conn.ReconnectNotify():
		}
	}
}

func (c *Consumer) subscribe() (<-chan amqp.Delivery, error) {
	ch := c.conn.Channel()
	if ch == nil {
		return nil, ErrNoChannel
	}
	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := ch.Consume(string(c.queue), "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume: %w", err)
	}
	return deliveries, nil
}

// drain обрабатывает доставки, пока канал открыт и ctx жив.
func (c *Consumer) drain(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-deliveries:
			if !ok {
				return
			}
			c.handle(ctx, raw)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, raw amqp.Delivery) {
	var msg Message
	if err := json.Unmarshal(raw.Body, &msg); err != nil {
		c.logger.Error("malformed message", "error", err)
		_ = raw.Nack(false, false)
		return
	}

	err := c.handler(ctx, &msg)
	log := c.logger.With("message_id", msg.ID, "type", msg.Type)

	switch dispositionOf(err) {
	case dispAck:
		_ = raw.Ack(false)
	case dispDiscard:
		log.Warn("message discarded", "error", err)
		_ = raw.Ack(false)
	case dispDeadLetter:
		log.Error("handler failed, dead-lettering", "error", err)
		_ = raw.Nack(false, false)
	}
}
