package api

import (
	"net/http"

	"pulsefit/workout-app/internal/service"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	authService service.AuthService,
	sessionService service.SessionService,
	commandService service.CommandService,
) {
	authHandler := NewAuthHandler(authService)
	sessionHandler := NewSessionHandler(sessionService)
	commandHandler := NewCommandHandler(commandService)

	authMiddleware := AuthMiddleware(jwtSecret)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}
	}

	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", authHandler.Me)

		sessionGroup := protected.Group("/sessions")
		{
			sessionGroup.POST("", sessionHandler.CreateSession)
			sessionGroup.GET("", sessionHandler.History)
			sessionGroup.GET("/:id", sessionHandler.GetSession)
			sessionGroup.POST("/:id/finalize", sessionHandler.FinalizeSession)
		}

		exerciseGroup := protected.Group("/exercises")
		{
			exerciseGroup.POST("/:id/commands", commandHandler.SubmitCommand)
		}
	}
}
