package services

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/argon2"
)

const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
	saltLen      = 16
)

// Claims - содержимое токена идентичности
type Claims struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
	jwt.RegisteredClaims
}

// Credentials хеширует пароли и выпускает/проверяет JWT.
// Секрет и время жизни задаются один раз при старте.
type Credentials struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewCredentials(secret string, ttl time.Duration) *Credentials {
	return &Credentials{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Hash возвращает "hex(salt)$hex(argon2id)"
func (c *Credentials) Hash(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return hex.EncodeToString(salt) + "$" + hex.EncodeToString(hash), nil
}

func (c *Credentials) Verify(password, stored string) bool {
	parts := strings.Split(stored, "$")
	if len(parts) != 2 {
		return false
	}
	salt, err := hex.DecodeString(parts[0])
	if err != nil {
		return false
	}
	expected, err := hex.DecodeString(parts[1])
	if err != nil || len(expected) != argonKeyLen {
		return false
	}
	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return subtle.ConstantTimeCompare(hash, expected) == 1
}

// IssueToken подписывает HS256 токен. exp ставится только при ttl > 0.
func (c *Credentials) IssueToken(id int64, email, nickname string) (string, error) {
	if len(c.secret) == 0 {
		return "", errors.New("jwt secret is empty")
	}
	now := c.now()
	claims := Claims{
		ID:       id,
		Email:    email,
		Nickname: nickname,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if c.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(c.ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// VerifyToken никогда не возвращает ошибку: невалидный токен значит "аноним"
func (c *Credentials) VerifyToken(token string) (*Claims, bool) {
	if token == "" || len(c.secret) == 0 {
		return nil, false
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return nil, false
	}
	if claims.ID <= 0 || claims.Email == "" || claims.Nickname == "" {
		return nil, false
	}
	return claims, true
}
