package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/chefshare/backend/internal/middleware"
	"github.com/chefshare/backend/internal/service"
)

type UserHandler struct {
	users     *service.UserService
	relations *service.RelationService
	auth      *service.AuthService
}

func NewUserHandler(users *service.UserService, relations *service.RelationService, auth *service.AuthService) *UserHandler {
	return &UserHandler{
		users:     users,
		relations: relations,
		auth:      auth,
	}
}

func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	users := router.Group("/users")
	{
		users.GET("", middleware.OptionalAuthMiddleware(h.auth), h.ListUsers)
		users.GET("/me", middleware.AuthMiddleware(h.auth), h.Me)
		users.GET("/subscriptions", middleware.AuthMiddleware(h.auth), h.ListSubscriptions)
		users.GET("/:id", middleware.OptionalAuthMiddleware(h.auth), h.GetUser)
		users.POST("/:id/subscribe", middleware.AuthMiddleware(h.auth), h.Subscribe)
		users.DELETE("/:id/subscribe", middleware.AuthMiddleware(h.auth), h.Unsubscribe)
	}
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	limit, offset := pagination(c)

	users, total, err := h.users.List(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	ids := make([]uuid.UUID, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	subscribed, err := h.users.SubscribedSet(c.Request.Context(), viewerID(c), ids)
	if err != nil {
		respondError(c, err)
		return
	}

	results := make([]UserResponse, len(users))
	for i := range users {
		results[i] = newUserResponse(&users[i], subscribed[users[i].ID])
	}
	c.JSON(http.StatusOK, gin.H{
		"count":   total,
		"results": results,
	})
}

func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	user, err := h.users.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	subscribed := false
	if viewer := viewerID(c); viewer != nil {
		subscribed, err = h.relations.Exists(c.Request.Context(), *viewer, user.ID, service.RelationSubscription)
		if err != nil {
			respondError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, newUserResponse(user, subscribed))
}

func (h *UserHandler) Me(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	user, err := h.users.Get(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newUserResponse(user, false))
}

func (h *UserHandler) Subscribe(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	target, err := h.relations.Add(c.Request.Context(), userID, id, service.RelationSubscription)
	if err != nil {
		respondError(c, err)
		return
	}

	// The response matches the GET /users/subscriptions entry shape.
	entry, err := h.users.FolloweeEntry(c.Request.Context(), *target.User, recipesLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.subscriptionResponse(entry))
}

func (h *UserHandler) Unsubscribe(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := h.relations.Remove(c.Request.Context(), userID, id, service.RelationSubscription); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) ListSubscriptions(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	limit, offset := pagination(c)

	entries, total, err := h.users.Subscriptions(c.Request.Context(), userID, limit, offset, recipesLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}

	results := make([]SubscriptionResponse, len(entries))
	for i := range entries {
		results[i] = h.subscriptionResponse(&entries[i])
	}
	c.JSON(http.StatusOK, gin.H{
		"count":   total,
		"results": results,
	})
}

func (h *UserHandler) subscriptionResponse(entry *service.SubscriptionEntry) SubscriptionResponse {
	recipes := make([]RecipeShortResponse, len(entry.Recipes))
	for i := range entry.Recipes {
		recipes[i] = newRecipeShortResponse(&entry.Recipes[i])
	}
	return SubscriptionResponse{
		UserResponse: newUserResponse(&entry.User, true),
		Recipes:      recipes,
		RecipesCount: entry.RecipesCount,
	}
}

// recipesLimit reads the per-followee recipe page size.
func recipesLimit(c *gin.Context) int {
	if v := c.Query("recipes_limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return 10
}
