package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ratingsite/api/middleware"
)

// AllUsers - GET /api/v1/users/
func (h *Handlers) AllUsers(c *gin.Context) {
	limit, offset := pagination(c)
	users, err := h.Users.ListUsers(c.Request.Context(), limit, offset)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// SearchUsers - GET /api/v1/users/search/:search_by/
func (h *Handlers) SearchUsers(c *gin.Context) {
	limit, offset := pagination(c)
	users, err := h.Users.SearchUsers(c.Request.Context(), c.Param("search_by"), limit, offset)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// CurrentUserInfo - GET /api/v1/users/current/, только с токеном
func (h *Handlers) CurrentUserInfo(c *gin.Context) {
	identity, _ := middleware.Identity(c)
	info, err := h.Info.CurrentUser(c.Request.Context(), identity)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// AnotherUserInfo - GET /api/v1/users/:user_nickname/
func (h *Handlers) AnotherUserInfo(c *gin.Context) {
	info, err := h.Info.FullInfo(c.Request.Context(), middleware.IdentityID(c), c.Param("user_nickname"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}
