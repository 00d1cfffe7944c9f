package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	FriendExchange   = "friend_events"
	EventFriendAdded = "friend_added"
)

// FriendEvent - событие "FromID добавил ToID в друзья"
type FriendEvent struct {
	Event     string    `json:"event"`
	FromID    int64     `json:"from_id"`
	ToID      int64     `json:"to_id"`
	CreatedAt time.Time `json:"created_at"`
}

func friendRoutingKey(userID int64) string {
	return fmt.Sprintf("user.%d", userID)
}

// EventBus - topic exchange в RabbitMQ, ключ маршрутизации user.<id получателя>
type EventBus struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	log     *zap.Logger
}

// NewEventBus открывает соединение, канал и объявляет exchange
func NewEventBus(url string, log *zap.Logger) (*EventBus, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err = channel.ExchangeDeclare(
		FriendExchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}
	log.Info("RabbitMQ initialized", zap.String("exchange", FriendExchange))
	return &EventBus{conn: conn, channel: channel, log: log}, nil
}

func (b *EventBus) PublishFriendEvent(ctx context.Context, event FriendEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return b.channel.PublishWithContext(ctx,
		FriendExchange,
		friendRoutingKey(event.ToID),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

// StartConsumer читает события из очереди queueName, пока не отменен ctx
func (b *EventBus) StartConsumer(ctx context.Context, queueName string, handle func(FriendEvent)) error {
	q, err := b.channel.QueueDeclare(
		queueName,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	if err = b.channel.QueueBind(q.Name, "user.*", FriendExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}
	msgs, err := b.channel.Consume(
		q.Name,
		"",
		true,  // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to start consumer: %w", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					b.log.Warn("friend events channel closed")
					return
				}
				var event FriendEvent
				if err := json.Unmarshal(msg.Body, &event); err != nil {
					b.log.Warn("failed to unmarshal friend event", zap.Error(err))
					continue
				}
				handle(event)
			}
		}
	}()
	return nil
}

func (b *EventBus) Close() error {
	if b.channel != nil {
		_ = b.channel.Close()
	}
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}
