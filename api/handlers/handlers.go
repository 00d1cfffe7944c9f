package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ratingsite/services"
)

const serviceName = "ratingsite"

// Handlers - http обработчики поверх сервисов
type Handlers struct {
	Users   *services.UserService
	Friends *services.FriendService
	Ratings *services.RatingService
	Info    *services.InfoService
	Conns   *services.WSConnManager
	Log     *zap.Logger
}

// respondError: валидация и бизнес-ошибки -> 400, остальное -> 500
func (h *Handlers) respondError(c *gin.Context, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, verr.Fields)
	case services.IsClientError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		_ = c.Error(err)
		h.Log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func badRequest(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
}

func pagination(c *gin.Context) (limit, offset int) {
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 && l <= services.MaxPageSize {
		limit = l
	}
	if o, err := strconv.Atoi(c.Query("offset")); err == nil && o >= 0 {
		offset = o
	}
	return limit, offset
}
