package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/chefshare/backend/config"
	"github.com/chefshare/backend/internal/api"
	"github.com/chefshare/backend/internal/database"
	"github.com/chefshare/backend/internal/logger"
	"github.com/chefshare/backend/internal/middleware"
	"github.com/chefshare/backend/internal/router"
	"github.com/chefshare/backend/internal/server"
	"github.com/chefshare/backend/internal/service"
)

func main() {
	log := logger.New()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}
	gin.SetMode(cfg.GinMode)

	db, err := database.New(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		log.WithError(err).Fatal("failed to run migrations")
	}

	ctx := context.Background()

	// Rate limiting is skipped when Redis is unreachable rather than
	// keeping the API from starting.
	var limiter *middleware.RateLimiter
	if redisClient, err := database.NewRedisClient(cfg, log); err != nil {
		log.WithError(err).Warn("redis unavailable, rate limiting disabled")
	} else {
		limiter = middleware.NewRateLimiter(redisClient, middleware.RateLimitConfig{
			Window:    time.Minute,
			Limit:     120,
			KeyPrefix: "ratelimit",
		})
	}

	s3Config, err := config.NewS3Config(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to configure S3 storage")
	}

	authService := service.NewAuthService(db, cfg.JWTSecret)
	userService := service.NewUserService(db)
	relationService := service.NewRelationService(db)
	shoppingListService := service.NewShoppingListService(db)
	recipeService := service.NewRecipeService(db, service.NewS3ImageStore(s3Config))

	authHandler := api.NewAuthHandler(authService)
	userHandler := api.NewUserHandler(userService, relationService, authService)
	recipeHandler := api.NewRecipeHandler(db, recipeService, relationService, shoppingListService, authService)
	tagHandler := api.NewTagHandler(db)
	ingredientHandler := api.NewIngredientHandler(db)

	engine := router.SetupRouter(authHandler, recipeHandler, userHandler, tagHandler, ingredientHandler, authService, limiter)
	srv := server.New(engine, cfg.ServerHost, cfg.ServerPort, log)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil {
			log.WithError(err).Fatal("server error")
		}
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("shutting down")
	}

	if err := srv.Shutdown(context.Background()); err != nil {
		log.WithError(err).Fatal("server shutdown error")
	}
	log.Info("server stopped")
}
