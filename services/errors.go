package services

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrFriendAlreadyAdded = errors.New("user is already in friends")
	ErrFriendNotExists    = errors.New("friend does not exist")
	ErrSelfRating         = errors.New("cannot rate yourself")
)

// ValidationError - ошибки валидации по полям: поле -> сообщение
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// IsClientError - ошибка вызвана входными данными клиента, а не сбоем хранилища
func IsClientError(err error) bool {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return true
	}
	for _, e := range []error{
		ErrUserNotFound, ErrUserAlreadyExists, ErrInvalidCredentials,
		ErrFriendAlreadyAdded, ErrFriendNotExists, ErrSelfRating,
	} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}
