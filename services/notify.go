package services

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
)

// Notifier пересылает события о дружбе в websocket соединения получателя
type Notifier struct {
	conns *WSConnManager
	log   *zap.Logger
}

func NewNotifier(conns *WSConnManager, log *zap.Logger) *Notifier {
	return &Notifier{conns: conns, log: log}
}

func (n *Notifier) HandleFriendEvent(event FriendEvent) {
	if event.ToID == 0 {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		n.log.Warn("failed to marshal friend event", zap.Error(err))
		return
	}
	sent := n.conns.Send(event.ToID, data)
	n.log.Debug("friend event delivered",
		zap.String("event", event.Event),
		zap.Int64("to_id", event.ToID),
		zap.Int("connections", sent))
}

// LocalPublisher доставляет события сразу в процессе, когда RabbitMQ не настроен
type LocalPublisher struct {
	Handle func(FriendEvent)
}

func (p LocalPublisher) PublishFriendEvent(_ context.Context, event FriendEvent) error {
	if p.Handle != nil {
		p.Handle(event)
	}
	return nil
}
