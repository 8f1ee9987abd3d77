package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/chefshare/backend/internal/api"
	"github.com/chefshare/backend/internal/middleware"
	"github.com/chefshare/backend/internal/service"
)

// SetupRouter configures the application routes
func SetupRouter(
	authHandler *api.AuthHandler,
	recipeHandler *api.RecipeHandler,
	userHandler *api.UserHandler,
	tagHandler *api.TagHandler,
	ingredientHandler *api.IngredientHandler,
	authService *service.AuthService,
	limiter *middleware.RateLimiter,
) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173", "http://frontend:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization", "Accept", "Origin"},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1 routes
	v1 := router.Group("/api/v1")

	// The optional identity runs for every route so the rate limiter can
	// key on the authenticated user. Routes that require authentication
	// still enforce it themselves.
	v1.Use(middleware.OptionalAuthMiddleware(authService))
	if limiter != nil {
		v1.Use(limiter.Middleware())
	}

	authHandler.RegisterRoutes(v1)
	userHandler.RegisterRoutes(v1)
	recipeHandler.RegisterRoutes(v1)
	tagHandler.RegisterRoutes(v1)
	ingredientHandler.RegisterRoutes(v1)

	return router
}
