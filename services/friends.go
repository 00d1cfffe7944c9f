package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ratingsite/db"
	"ratingsite/models"
)

// mutualFriendsSQL: исходящие связи пересекаются с входящими,
// результат соединяется с users
const mutualFriendsSQL = `
SELECT u.id, u.nickname, u.first_name, u.last_name, u.is_superuser
FROM users u
WHERE u.disabled = ? AND u.id IN (
	SELECT second_id FROM users_friends_association WHERE first_id = ?
	INTERSECT
	SELECT first_id FROM users_friends_association WHERE second_id = ?
)`

// EventPublisher отправляет события о дружбе (реализация - EventBus на RabbitMQ)
type EventPublisher interface {
	PublishFriendEvent(ctx context.Context, event FriendEvent) error
}

// FRIENDS_REINVALIDATE_DELAY - повторная очистка кеша после добавления.
// Чтение, начатое до вставки, могло положить в кеш старый список уже после
// первой очистки. Старый список живет не дольше этой задержки.
const FRIENDS_REINVALIDATE_DELAY = 500 * time.Millisecond

type FriendService struct {
	store  *db.Store
	users  *UserService
	cache  FriendCache
	events EventPublisher
	log    *zap.Logger

	reinvalidateDelay time.Duration
}

// NewFriendService: cache и events могут быть nil
func NewFriendService(store *db.Store, users *UserService, cache FriendCache, events EventPublisher, log *zap.Logger) *FriendService {
	return &FriendService{
		store:             store,
		users:             users,
		cache:             cache,
		events:            events,
		log:               log,
		reinvalidateDelay: FRIENDS_REINVALIDATE_DELAY,
	}
}

// AddFriend добавляет направленную связь owner -> target.
// Пустой target или добавление самого себя ничего не делают.
func (s *FriendService) AddFriend(ctx context.Context, ownerID int64, targetID *int64) error {
	if targetID == nil || *targetID == ownerID {
		return nil
	}

	edge := &models.FriendEdge{
		FirstID:   ownerID,
		SecondID:  *targetID,
		CreatedAt: time.Now(),
	}
	err := s.store.Write(ctx).Create(edge).Error
	if err != nil {
		switch {
		case db.IsUniqueViolation(err):
			return ErrFriendAlreadyAdded
		case db.IsForeignKeyViolation(err):
			return s.missingSide(ctx, ownerID)
		}
		return fmt.Errorf("failed to add friend: %w", err)
	}

	if s.cache != nil {
		s.invalidate(ctx, ownerID, *targetID)
	}
	s.log.Info("friend added", zap.Int64("owner_id", ownerID), zap.Int64("target_id", *targetID))

	if s.events != nil {
		event := FriendEvent{
			Event:     EventFriendAdded,
			FromID:    ownerID,
			ToID:      *targetID,
			CreatedAt: edge.CreatedAt,
		}
		if err = s.events.PublishFriendEvent(ctx, event); err != nil {
			s.log.Warn("failed to publish friend event", zap.Error(err))
		}
	}
	return nil
}

func (s *FriendService) invalidate(ctx context.Context, userIDs ...int64) {
	s.cache.Invalidate(ctx, userIDs...)
	if s.reinvalidateDelay <= 0 {
		return
	}
	// контекст запроса к этому моменту уже отменен
	time.AfterFunc(s.reinvalidateDelay, func() {
		s.cache.Invalidate(context.Background(), userIDs...)
	})
}

// missingSide: нарушение внешнего ключа значит, что нет одной из сторон.
// Токен владельца может пережить его запись в БД.
func (s *FriendService) missingSide(ctx context.Context, ownerID int64) error {
	var count int64
	err := s.store.Write(ctx).Model(&models.User{}).Where("id = ?", ownerID).Count(&count).Error
	if err != nil {
		return fmt.Errorf("failed to check friend owner: %w", err)
	}
	if count == 0 {
		return ErrUserNotFound
	}
	return ErrFriendNotExists
}

// MutualFriendsOf - пользователи, связанные с userID в обе стороны
func (s *FriendService) MutualFriendsOf(ctx context.Context, userID int64) ([]models.PublicUser, error) {
	if s.cache != nil {
		if friends, ok := s.cache.Get(ctx, userID); ok {
			return friends, nil
		}
	}

	friends := make([]models.PublicUser, 0)
	err := s.store.ReadOnly(ctx).Raw(mutualFriendsSQL, false, userID, userID).Scan(&friends).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get friends: %w", err)
	}
	if friends == nil {
		friends = []models.PublicUser{}
	}

	if s.cache != nil {
		s.cache.Set(ctx, userID, friends)
	}
	return friends, nil
}

func (s *FriendService) MutualFriendsOfNickname(ctx context.Context, nickname string) ([]models.PublicUser, error) {
	user, err := s.users.GetByNickname(ctx, nickname)
	if err != nil {
		return nil, err
	}
	return s.MutualFriendsOf(ctx, user.ID)
}
