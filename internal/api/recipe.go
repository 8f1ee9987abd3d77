package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/chefshare/backend/internal/middleware"
	"github.com/chefshare/backend/internal/models"
	"github.com/chefshare/backend/internal/service"
)

type RecipeHandler struct {
	db           *gorm.DB
	recipes      *service.RecipeService
	relations    *service.RelationService
	shoppingList *service.ShoppingListService
	auth         *service.AuthService
}

func NewRecipeHandler(db *gorm.DB, recipes *service.RecipeService, relations *service.RelationService, shoppingList *service.ShoppingListService, auth *service.AuthService) *RecipeHandler {
	return &RecipeHandler{
		db:           db,
		recipes:      recipes,
		relations:    relations,
		shoppingList: shoppingList,
		auth:         auth,
	}
}

func (h *RecipeHandler) RegisterRoutes(router *gin.RouterGroup) {
	recipes := router.Group("/recipes")
	{
		recipes.GET("", middleware.OptionalAuthMiddleware(h.auth), h.ListRecipes)
		recipes.POST("", middleware.AuthMiddleware(h.auth), h.CreateRecipe)
		recipes.GET("/download_shopping_cart", middleware.AuthMiddleware(h.auth), h.DownloadShoppingCart)
		recipes.GET("/:id", middleware.OptionalAuthMiddleware(h.auth), h.GetRecipe)
		recipes.PATCH("/:id", middleware.AuthMiddleware(h.auth), h.UpdateRecipe)
		recipes.DELETE("/:id", middleware.AuthMiddleware(h.auth), h.DeleteRecipe)
		recipes.POST("/:id/favorite", middleware.AuthMiddleware(h.auth), h.toggleOn(service.RelationFavorite))
		recipes.DELETE("/:id/favorite", middleware.AuthMiddleware(h.auth), h.toggleOff(service.RelationFavorite))
		recipes.POST("/:id/shopping_cart", middleware.AuthMiddleware(h.auth), h.toggleOn(service.RelationShoppingCart))
		recipes.DELETE("/:id/shopping_cart", middleware.AuthMiddleware(h.auth), h.toggleOff(service.RelationShoppingCart))
	}
}

type recipeIngredientRequest struct {
	ID     uuid.UUID `json:"id" binding:"required"`
	Amount int       `json:"amount"`
}

type createRecipeRequest struct {
	Name        string                    `json:"name" binding:"required"`
	Text        string                    `json:"text" binding:"required"`
	CookingTime int                       `json:"cooking_time" binding:"required"`
	Image       string                    `json:"image"`
	Ingredients []recipeIngredientRequest `json:"ingredients"`
	Tags        []uuid.UUID               `json:"tags"`
}

type updateRecipeRequest struct {
	Name        *string                   `json:"name"`
	Text        *string                   `json:"text"`
	CookingTime *int                      `json:"cooking_time"`
	Image       *string                   `json:"image"`
	Ingredients []recipeIngredientRequest `json:"ingredients"`
	Tags        []uuid.UUID               `json:"tags"`
}

func toIngredientInputs(reqs []recipeIngredientRequest) []service.RecipeIngredientInput {
	if reqs == nil {
		return nil
	}
	inputs := make([]service.RecipeIngredientInput, len(reqs))
	for i, r := range reqs {
		inputs[i] = service.RecipeIngredientInput{ID: r.ID, Amount: r.Amount}
	}
	return inputs
}

func (h *RecipeHandler) ListRecipes(c *gin.Context) {
	viewer := viewerID(c)
	limit, offset := pagination(c)

	filter := service.RecipeFilter{
		TagSlugs: c.QueryArray("tags"),
		Limit:    limit,
		Offset:   offset,
	}
	if author := c.Query("author"); author != "" {
		id, err := uuid.Parse(author)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid author id"})
			return
		}
		filter.Author = &id
	}
	if v := c.Query("is_favorited"); v != "" {
		want := v == "1" || v == "true"
		filter.IsFavorited = &want
	}
	if v := c.Query("is_in_shopping_cart"); v != "" {
		want := v == "1" || v == "true"
		filter.IsInShoppingCart = &want
	}

	recipes, total, err := h.recipes.List(c.Request.Context(), viewer, filter)
	if err != nil {
		respondError(c, err)
		return
	}

	results, err := h.buildRecipeResponses(c, viewer, recipes)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":   total,
		"results": results,
	})
}

func (h *RecipeHandler) GetRecipe(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	recipe, err := h.recipes.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	responses, err := h.buildRecipeResponses(c, viewerID(c), []models.Recipe{*recipe})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses[0])
}

func (h *RecipeHandler) CreateRecipe(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req createRecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	recipe, err := h.recipes.Create(c.Request.Context(), userID, &service.RecipeInput{
		Name:        req.Name,
		Text:        req.Text,
		CookingTime: req.CookingTime,
		Image:       req.Image,
		Ingredients: toIngredientInputs(req.Ingredients),
		Tags:        req.Tags,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newRecipeResponse(recipe, false, false, false))
}

func (h *RecipeHandler) UpdateRecipe(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req updateRecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor, err := h.auth.GetUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	recipe, err := h.recipes.Update(c.Request.Context(), actor, id, &service.RecipeUpdate{
		Name:        req.Name,
		Text:        req.Text,
		CookingTime: req.CookingTime,
		Image:       req.Image,
		Ingredients: toIngredientInputs(req.Ingredients),
		Tags:        req.Tags,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	viewer := &userID
	responses, err := h.buildRecipeResponses(c, viewer, []models.Recipe{*recipe})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses[0])
}

func (h *RecipeHandler) DeleteRecipe(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	actor, err := h.auth.GetUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.recipes.Delete(c.Request.Context(), actor, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// toggleOn handles POST /recipes/:id/{favorite,shopping_cart}.
func (h *RecipeHandler) toggleOn(kind service.RelationKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		id, ok := parseIDParam(c)
		if !ok {
			return
		}

		target, err := h.relations.Add(c.Request.Context(), userID, id, kind)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, newRecipeShortResponse(target.Recipe))
	}
}

// toggleOff handles DELETE /recipes/:id/{favorite,shopping_cart}.
func (h *RecipeHandler) toggleOff(kind service.RelationKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		id, ok := parseIDParam(c)
		if !ok {
			return
		}

		if err := h.relations.Remove(c.Request.Context(), userID, id, kind); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func (h *RecipeHandler) DownloadShoppingCart(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	items, err := h.shoppingList.Aggregate(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	fileName := h.shoppingList.FileName(time.Now())
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(h.shoppingList.Render(items)))
}

// buildRecipeResponses resolves the viewer-dependent flags for a batch of
// recipes in two membership queries instead of one per row.
func (h *RecipeHandler) buildRecipeResponses(c *gin.Context, viewer *uuid.UUID, recipes []models.Recipe) ([]RecipeResponse, error) {
	ids := make([]uuid.UUID, len(recipes))
	authorIDs := make([]uuid.UUID, len(recipes))
	for i, r := range recipes {
		ids[i] = r.ID
		authorIDs[i] = r.AuthorID
	}

	favorited, inCart, err := h.recipes.Flags(c.Request.Context(), viewer, ids)
	if err != nil {
		return nil, err
	}

	subscribed := make(map[uuid.UUID]bool)
	if viewer != nil && len(authorIDs) > 0 {
		var followees []uuid.UUID
		err := h.db.WithContext(c.Request.Context()).Model(&models.Subscription{}).
			Where("follower_id = ? AND followee_id IN ?", *viewer, authorIDs).
			Pluck("followee_id", &followees).Error
		if err != nil {
			return nil, fmt.Errorf("failed to load subscription flags: %w", err)
		}
		for _, id := range followees {
			subscribed[id] = true
		}
	}

	results := make([]RecipeResponse, len(recipes))
	for i := range recipes {
		r := &recipes[i]
		results[i] = newRecipeResponse(r, favorited[r.ID], inCart[r.ID], subscribed[r.AuthorID])
	}
	return results, nil
}
