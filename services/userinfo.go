package services

import (
	"context"

	"ratingsite/models"
)

// UserInfo - профиль пользователя вместе с друзьями и оценкой смотрящего
type UserInfo struct {
	models.PublicUser
	Friends []models.PublicUser `json:"friends"`
	Rating  *models.RatingView  `json:"rating"`
}

// InfoService только собирает данные из других сервисов, ничего не пишет
type InfoService struct {
	users   *UserService
	friends *FriendService
	ratings *RatingService
}

func NewInfoService(users *UserService, friends *FriendService, ratings *RatingService) *InfoService {
	return &InfoService{users: users, friends: friends, ratings: ratings}
}

// FullInfo: viewerID == nil для анонимного запроса.
// Аноним и "еще не оценивал" одинаково дают rating == nil.
func (s *InfoService) FullInfo(ctx context.Context, viewerID *int64, nickname string) (*UserInfo, error) {
	user, err := s.users.GetByNickname(ctx, nickname)
	if err != nil {
		return nil, err
	}
	return s.compose(ctx, viewerID, user)
}

// CurrentUser - профиль самого пользователя из токена
func (s *InfoService) CurrentUser(ctx context.Context, identity *Claims) (*UserInfo, error) {
	user, err := s.users.GetByID(ctx, identity.ID)
	if err != nil {
		return nil, err
	}
	return s.compose(ctx, nil, user)
}

func (s *InfoService) compose(ctx context.Context, viewerID *int64, user *models.User) (*UserInfo, error) {
	friends, err := s.friends.MutualFriendsOf(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	rating, err := s.ratings.RatingBetween(ctx, viewerID, user.ID)
	if err != nil {
		return nil, err
	}
	return &UserInfo{
		PublicUser: user.Public(),
		Friends:    friends,
		Rating:     rating,
	}, nil
}
