package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ratingsite/api/middleware"
	"ratingsite/services"
)

// RateUser - POST /api/v1/ratings/
func (h *Handlers) RateUser(c *gin.Context) {
	identity, _ := middleware.Identity(c)

	var data services.RatingData
	if err := c.ShouldBindJSON(&data); err != nil {
		badRequest(c)
		return
	}

	rating, err := h.Ratings.RateUser(c.Request.Context(), identity.ID, data)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rating)
}
