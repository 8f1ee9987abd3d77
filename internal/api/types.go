package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/chefshare/backend/internal/models"
	"github.com/chefshare/backend/internal/service"
)

// UserResponse is the public representation of a user.
type UserResponse struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	IsSubscribed bool      `json:"is_subscribed"`
}

func newUserResponse(u *models.User, isSubscribed bool) UserResponse {
	return UserResponse{
		ID:           u.ID,
		Email:        u.Email,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		IsSubscribed: isSubscribed,
	}
}

// IngredientInRecipe is one flattened ingredient line of a recipe.
type IngredientInRecipe struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	MeasurementUnit string    `json:"measurement_unit"`
	Amount          int       `json:"amount"`
}

// RecipeResponse is the full representation of a recipe, including the
// viewer-dependent flags.
type RecipeResponse struct {
	ID               uuid.UUID            `json:"id"`
	Tags             []models.Tag         `json:"tags"`
	Author           UserResponse         `json:"author"`
	Ingredients      []IngredientInRecipe `json:"ingredients"`
	IsFavorited      bool                 `json:"is_favorited"`
	IsInShoppingCart bool                 `json:"is_in_shopping_cart"`
	Name             string               `json:"name"`
	Image            string               `json:"image"`
	Text             string               `json:"text"`
	CookingTime      int                  `json:"cooking_time"`
}

func newRecipeResponse(r *models.Recipe, favorited, inCart, authorSubscribed bool) RecipeResponse {
	ingredients := make([]IngredientInRecipe, len(r.Ingredients))
	for i, line := range r.Ingredients {
		ingredients[i] = IngredientInRecipe{
			ID:              line.Ingredient.ID,
			Name:            line.Ingredient.Name,
			MeasurementUnit: line.Ingredient.MeasurementUnit,
			Amount:          line.Amount,
		}
	}
	tags := r.Tags
	if tags == nil {
		tags = []models.Tag{}
	}
	return RecipeResponse{
		ID:               r.ID,
		Tags:             tags,
		Author:           newUserResponse(&r.Author, authorSubscribed),
		Ingredients:      ingredients,
		IsFavorited:      favorited,
		IsInShoppingCart: inCart,
		Name:             r.Name,
		Image:            r.ImageURL,
		Text:             r.Text,
		CookingTime:      r.CookingTime,
	}
}

// RecipeShortResponse is the reduced recipe payload used by toggle
// responses and subscription listings.
type RecipeShortResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Image       string    `json:"image"`
	CookingTime int       `json:"cooking_time"`
}

func newRecipeShortResponse(r *models.Recipe) RecipeShortResponse {
	return RecipeShortResponse{
		ID:          r.ID,
		Name:        r.Name,
		Image:       r.ImageURL,
		CookingTime: r.CookingTime,
	}
}

// SubscriptionResponse is one followee with their recipe count and a page
// of their recipes.
type SubscriptionResponse struct {
	UserResponse
	Recipes      []RecipeShortResponse `json:"recipes"`
	RecipesCount int64                 `json:"recipes_count"`
}

// respondError maps service taxonomy errors onto HTTP status codes.
func respondError(c *gin.Context, err error) {
	var vErr *service.ValidationError
	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Message, "field": vErr.Field})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, service.ErrAlreadyExists),
		errors.Is(err, service.ErrRelationNotFound),
		errors.Is(err, service.ErrSelfSubscription):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": "permission denied"})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// viewerID returns the authenticated user's id, or nil for anonymous
// requests on optional-auth routes.
func viewerID(c *gin.Context) *uuid.UUID {
	v, exists := c.Get("user_id")
	if !exists {
		return nil
	}
	id, ok := v.(uuid.UUID)
	if !ok {
		return nil
	}
	return &id
}

// currentUserID returns the authenticated user's id on required-auth routes.
func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	id := viewerID(c)
	if id == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return uuid.Nil, false
	}
	return *id, true
}

const maxPageSize = 100

// pagination reads limit/offset query params with a default page size.
// The limit is capped so a single request cannot page in the whole table.
func pagination(c *gin.Context) (limit, offset int) {
	limit = 10
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
			if limit > maxPageSize {
				limit = maxPageSize
			}
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

func parseIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return uuid.Nil, false
	}
	return id, true
}
