package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ratingsite/api/handlers"
	"ratingsite/api/middleware"
)

// PublicApi регистрирует маршруты. Личность из токена доступна во всех
// обработчиках, защищенные маршруты дополнительно проходят RequireAuth.
func PublicApi(router *gin.Engine, h *handlers.Handlers, verifier middleware.TokenVerifier) *gin.RouterGroup {
	router.GET(middleware.MetricsPath, gin.WrapH(promhttp.Handler()))

	publicEndpoints := router.Group("/api/v1/")
	publicEndpoints.Use(middleware.IdentityMiddleware(verifier))
	{
		publicEndpoints.POST("registration/", h.Registration)
		publicEndpoints.POST("login/", h.Login)

		publicEndpoints.GET("users/", h.AllUsers)
		publicEndpoints.GET("users/current/", middleware.RequireAuth(), h.CurrentUserInfo)
		publicEndpoints.GET("users/search/:search_by/", h.SearchUsers)
		publicEndpoints.GET("users/:user_nickname/", h.AnotherUserInfo)

		// Друзья
		publicEndpoints.POST("friends/add/", middleware.RequireAuth(), h.AddFriend)
		publicEndpoints.GET("friends/:user_nickname/", h.UserFriends)

		publicEndpoints.POST("ratings/", middleware.RequireAuth(), h.RateUser)
		publicEndpoints.GET("ws/", middleware.RequireAuth(), h.Notifications)
	}
	return publicEndpoints
}
