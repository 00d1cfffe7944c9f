package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ratingsite/services"
)

type TokenResponse struct {
	JWTToken string `json:"jwt_token"`
}

// Registration - POST /api/v1/registration/
func (h *Handlers) Registration(c *gin.Context) {
	var data services.RegistrationData
	if err := c.ShouldBindJSON(&data); err != nil {
		badRequest(c)
		return
	}

	token, err := h.Users.Register(c.Request.Context(), data)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, TokenResponse{JWTToken: token})
}

// Login - POST /api/v1/login/
func (h *Handlers) Login(c *gin.Context) {
	var data services.LoginData
	if err := c.ShouldBindJSON(&data); err != nil {
		badRequest(c)
		return
	}

	token, err := h.Users.Login(c.Request.Context(), data)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, TokenResponse{JWTToken: token})
}
