package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ratingsite/db"
	"ratingsite/models"
)

type RatingData struct {
	Nickname    string `json:"nickname" validate:"required"`
	RatingValue *int   `json:"rating_value" validate:"required"`
	Improve     string `json:"improve" validate:"max=100"`
}

type RatingService struct {
	store *db.Store
	users *UserService
	log   *zap.Logger
}

func NewRatingService(store *db.Store, users *UserService, log *zap.Logger) *RatingService {
	return &RatingService{store: store, users: users, log: log}
}

// RatingBetween - оценка creator -> receiver. Для анонима (creatorID == nil)
// сразу nil, без запроса в БД.
func (s *RatingService) RatingBetween(ctx context.Context, creatorID *int64, receiverID int64) (*models.RatingView, error) {
	if creatorID == nil {
		return nil, nil
	}

	var rating models.Rating
	err := s.store.ReadOnly(ctx).
		Where("creator_id = ? AND receiver_id = ?", *creatorID, receiverID).
		First(&rating).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get rating: %w", err)
	}
	return &models.RatingView{RatingValue: rating.RatingValue, Improve: rating.Improve}, nil
}

// RateUser ставит или обновляет оценку пользователю с никнеймом data.Nickname
func (s *RatingService) RateUser(ctx context.Context, creatorID int64, data RatingData) (*models.RatingView, error) {
	if err := validateStruct(data); err != nil {
		return nil, err
	}
	if *data.RatingValue < models.MinRatingValue || *data.RatingValue > models.MaxRatingValue {
		return nil, &ValidationError{Fields: map[string]string{
			"rating_value": fmt.Sprintf("rating_value must be between %d and %d", models.MinRatingValue, models.MaxRatingValue),
		}}
	}

	receiver, err := s.users.GetByNickname(ctx, data.Nickname)
	if err != nil {
		return nil, err
	}
	if receiver.ID == creatorID {
		return nil, ErrSelfRating
	}

	rating := &models.Rating{
		CreatorID:   creatorID,
		ReceiverID:  receiver.ID,
		RatingValue: *data.RatingValue,
		Improve:     data.Improve,
	}
	err = s.store.Write(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "creator_id"}, {Name: "receiver_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"rating_value", "improve"}),
	}).Create(rating).Error
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to save rating: %w", err)
	}
	s.log.Info("user rated",
		zap.Int64("creator_id", creatorID),
		zap.Int64("receiver_id", receiver.ID),
		zap.Int("rating_value", rating.RatingValue))

	return &models.RatingView{RatingValue: rating.RatingValue, Improve: rating.Improve}, nil
}
