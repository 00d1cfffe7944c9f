package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ratingsite/services"
)

const identityKey = "identity"

// TokenVerifier - то, что умеет проверять токен (services.Credentials)
type TokenVerifier interface {
	VerifyToken(token string) (*services.Claims, bool)
}

// IdentityMiddleware кладет в контекст личность из Bearer токена.
// Нет токена или он невалиден - запрос идет дальше анонимно.
func IdentityMiddleware(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if token, ok := strings.CutPrefix(authHeader, "Bearer "); ok {
			if claims, valid := verifier.VerifyToken(strings.TrimSpace(token)); valid {
				c.Set(identityKey, claims)
			}
		}
		c.Next()
	}
}

// RequireAuth отвечает 403 анонимным запросам
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := Identity(c); !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "authentication required"})
			return
		}
		c.Next()
	}
}

// Identity возвращает личность текущего запроса, если она есть
func Identity(c *gin.Context) (*services.Claims, bool) {
	v, exists := c.Get(identityKey)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*services.Claims)
	return claims, ok && claims != nil
}

// IdentityID - id текущего пользователя или nil для анонима
func IdentityID(c *gin.Context) *int64 {
	claims, ok := Identity(c)
	if !ok {
		return nil
	}
	id := claims.ID
	return &id
}
