package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"ratingsite/db"
	"ratingsite/models"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 1000
)

const publicUserColumns = "id, nickname, first_name, last_name, is_superuser"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

type UserService struct {
	store *db.Store
	creds *Credentials
	log   *zap.Logger
}

func NewUserService(store *db.Store, creds *Credentials, log *zap.Logger) *UserService {
	return &UserService{store: store, creds: creds, log: log}
}

// Register создает пользователя и возвращает токен
func (s *UserService) Register(ctx context.Context, data RegistrationData) (string, error) {
	if err := validateStruct(data); err != nil {
		return "", err
	}

	hash, err := s.creds.Hash(data.Password1)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Nickname:  data.Nickname,
		Email:     data.Email,
		FirstName: data.FirstName,
		LastName:  data.LastName,
		Password:  hash,
	}
	if err = s.store.Write(ctx).Create(user).Error; err != nil {
		if db.IsUniqueViolation(err) {
			return "", ErrUserAlreadyExists
		}
		return "", fmt.Errorf("create user: %w", err)
	}
	s.log.Info("user registered", zap.Int64("user_id", user.ID), zap.String("nickname", user.Nickname))

	return s.creds.IssueToken(user.ID, user.Email, user.Nickname)
}

// Login проверяет email и пароль. Неизвестный email и неверный пароль
// дают одну и ту же ошибку.
func (s *UserService) Login(ctx context.Context, data LoginData) (string, error) {
	if err := validateStruct(data); err != nil {
		return "", err
	}

	var user models.User
	err := s.store.ReadOnly(ctx).
		Where("email = ? AND disabled = ?", data.Email, false).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("get user: %w", err)
	}

	if !s.creds.Verify(data.Password, user.Password) {
		s.log.Debug("wrong password", zap.Int64("user_id", user.ID))
		return "", ErrInvalidCredentials
	}
	return s.creds.IssueToken(user.ID, user.Email, user.Nickname)
}

// GetByNickname ищет активного пользователя по никнейму
func (s *UserService) GetByNickname(ctx context.Context, nickname string) (*models.User, error) {
	var user models.User
	err := s.store.ReadOnly(ctx).
		Where("nickname = ? AND disabled = ?", nickname, false).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by nickname: %w", err)
	}
	return &user, nil
}

func (s *UserService) GetByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := s.store.ReadOnly(ctx).
		Where("id = ? AND disabled = ?", id, false).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

// ListUsers - все активные пользователи по порядку id
func (s *UserService) ListUsers(ctx context.Context, limit, offset int) ([]models.PublicUser, error) {
	limit, offset = normalizePage(limit, offset)
	users := make([]models.PublicUser, 0)
	err := s.store.ReadOnly(ctx).
		Model(&models.User{}).
		Select(publicUserColumns).
		Where("disabled = ?", false).
		Order("id").
		Limit(limit).
		Offset(offset).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// SearchUsers ищет подстроку в никнейме, имени и фамилии без учета регистра
func (s *UserService) SearchUsers(ctx context.Context, query string, limit, offset int) ([]models.PublicUser, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &ValidationError{Fields: map[string]string{"search_by": "search_by is required"}}
	}
	limit, offset = normalizePage(limit, offset)

	pattern := "%" + likeEscaper.Replace(strings.ToLower(query)) + "%"
	users := make([]models.PublicUser, 0)
	err := s.store.ReadOnly(ctx).
		Model(&models.User{}).
		Select(publicUserColumns).
		Where("disabled = ?", false).
		Where(`(LOWER(nickname) LIKE ? ESCAPE '\' OR LOWER(first_name) LIKE ? ESCAPE '\' OR LOWER(last_name) LIKE ? ESCAPE '\')`,
			pattern, pattern, pattern).
		Order("id").
		Limit(limit).
		Offset(offset).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	return users, nil
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
