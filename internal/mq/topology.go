package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — имя обменника.
type Exchange string

// Queue — имя очереди.
type Queue string

// RoutingKey — ключ маршрутизации.
type RoutingKey string

// Exchanges.
const (
	ExchangeActions Exchange = "feedactions.actions"
	ExchangeDLQ     Exchange = "feedactions.dlq"
)

// Queues.
const (
	QueueActionsRequested Queue = "actions.requested"
	QueueActionsFinished  Queue = "actions.finished"
	QueueDLQActions       Queue = "dlq.actions"
)

// Routing keys.
const (
	RoutingKeyRequested  RoutingKey = "requested"
	RoutingKeyFinished   RoutingKey = "finished"
	RoutingKeyDLQActions RoutingKey = "actions"
)

// binding — очередь, её аргументы и привязка.
type binding struct {
	queue      Queue
	exchange   Exchange
	routingKey RoutingKey
	args       amqp.Table
}

// topology возвращает описание всех очередей.
func topology() []binding {
	// Отклонённые запросы уходят в DLQ для ручного разбора.
	dlq := amqp.Table{
		"x-dead-letter-exchange":    string(ExchangeDLQ),
		"x-dead-letter-routing-key": string(RoutingKeyDLQActions),
	}

	return []binding{
		{QueueActionsRequested, ExchangeActions, RoutingKeyRequested, dlq},
		{QueueActionsFinished, ExchangeActions, RoutingKeyFinished, nil},
		{QueueDLQActions, ExchangeDLQ, RoutingKeyDLQActions, nil},
	}
}

// SetupTopology объявляет exchanges, очереди и привязки. Идемпотентна.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		for _, ex := range []Exchange{ExchangeActions, ExchangeDLQ} {
			err := ch.ExchangeDeclare(
				string(ex), // name
				"direct",   // type
				true,       // durable
				false,      // auto-deleted
				false,      // internal
				false,      // no-wait
				nil,        // arguments
			)
			if err != nil {
				return fmt.Errorf("declare exchange %s: %w", ex, err)
			}
		}

		for _, b := range topology() {
			_, err := ch.QueueDeclare(
				string(b.queue), // name
				true,            // durable
				false,           // delete when unused
				false,           // exclusive
				false,           // no-wait
				b.args,          // arguments
			)
			if err != nil {
				return fmt.Errorf("declare queue %s: %w", b.queue, err)
			}

			err = ch.QueueBind(string(b.queue), string(b.routingKey), string(b.exchange), false, nil)
			if err != nil {
				return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
			}
		}
		return nil
	})
}
