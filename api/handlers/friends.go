package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ratingsite/api/middleware"
)

type AddFriendRequest struct {
	FriendID *int64 `json:"friend_id"`
}

// AddFriend - POST /api/v1/friends/add/
func (h *Handlers) AddFriend(c *gin.Context) {
	identity, _ := middleware.Identity(c)

	var r AddFriendRequest
	if err := c.ShouldBindJSON(&r); err != nil {
		badRequest(c)
		return
	}

	err := h.Friends.AddFriend(c.Request.Context(), identity.ID, r.FriendID)
	middleware.RecordFriendOperation("add", serviceName, err)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UserFriends - GET /api/v1/friends/:user_nickname/
func (h *Handlers) UserFriends(c *gin.Context) {
	friends, err := h.Friends.MutualFriendsOfNickname(c.Request.Context(), c.Param("user_nickname"))
	middleware.RecordFriendOperation("list", serviceName, err)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"friends": friends})
}
