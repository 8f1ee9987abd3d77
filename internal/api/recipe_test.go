package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFavoriteToggle(t *testing.T) {
	a := setupTestAPI(t)
	author, _ := a.register(t, "author")
	_, token := a.register(t, "fan")
	recipe := a.seedRecipe(t, author, "soup")

	path := fmt.Sprintf("/api/v1/recipes/%s/favorite", recipe.ID)

	w := a.request(t, http.MethodPost, path, token, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	var short RecipeShortResponse
	decodeJSON(t, w, &short)
	assert.Equal(t, recipe.ID, short.ID)
	assert.Equal(t, "soup", short.Name)

	// Second add is a client error, not a silent no-op.
	w = a.request(t, http.MethodPost, path, token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.request(t, http.MethodDelete, path, token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	// Removing again reports the missing relation.
	w = a.request(t, http.MethodDelete, path, token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestShoppingCartToggleRequiresAuth(t *testing.T) {
	a := setupTestAPI(t)
	author, _ := a.register(t, "author")
	recipe := a.seedRecipe(t, author, "soup")

	path := fmt.Sprintf("/api/v1/recipes/%s/shopping_cart", recipe.ID)
	w := a.request(t, http.MethodPost, path, "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestToggleMissingRecipe(t *testing.T) {
	a := setupTestAPI(t)
	_, token := a.register(t, "fan")

	path := fmt.Sprintf("/api/v1/recipes/%s/favorite", uuid.New())
	w := a.request(t, http.MethodPost, path, token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Malformed ids read as absent targets.
	w = a.request(t, http.MethodPost, "/api/v1/recipes/not-a-uuid/favorite", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateRecipe(t *testing.T) {
	a := setupTestAPI(t)
	_, token := a.register(t, "author")
	salt := a.seedIngredient(t, "salt", "g")
	dinner := a.seedTag(t, "dinner")

	body := gin.H{
		"name":         "bread",
		"text":         "mix and bake",
		"cooking_time": 90,
		"image":        testImage(),
		"ingredients":  []gin.H{{"id": salt.ID, "amount": 5}},
		"tags":         []uuid.UUID{dinner.ID},
	}

	w := a.request(t, http.MethodPost, "/api/v1/recipes", token, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp RecipeResponse
	decodeJSON(t, w, &resp)
	assert.Equal(t, "bread", resp.Name)
	assert.Equal(t, "https://images.test/recipe.png", resp.Image)
	require.Len(t, resp.Ingredients, 1)
	assert.Equal(t, "salt", resp.Ingredients[0].Name)
	assert.Equal(t, 5, resp.Ingredients[0].Amount)
	require.Len(t, resp.Tags, 1)
	assert.Equal(t, "dinner", resp.Tags[0].Slug)
}

func TestCreateRecipeValidation(t *testing.T) {
	a := setupTestAPI(t)
	_, token := a.register(t, "author")
	salt := a.seedIngredient(t, "salt", "g")
	dinner := a.seedTag(t, "dinner")

	// Unknown ingredient id fails the whole request.
	body := gin.H{
		"name":         "bread",
		"text":         "mix",
		"cooking_time": 90,
		"image":        testImage(),
		"ingredients":  []gin.H{{"id": uuid.New(), "amount": 5}},
		"tags":         []uuid.UUID{dinner.ID},
	}
	w := a.request(t, http.MethodPost, "/api/v1/recipes", token, body)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Zero amount is rejected.
	body["ingredients"] = []gin.H{{"id": salt.ID, "amount": 0}}
	w = a.request(t, http.MethodPost, "/api/v1/recipes", token, body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateRecipeForbiddenForStranger(t *testing.T) {
	a := setupTestAPI(t)
	author, _ := a.register(t, "author")
	_, strangerToken := a.register(t, "stranger")
	recipe := a.seedRecipe(t, author, "soup")

	body := gin.H{"name": "stolen"}
	w := a.request(t, http.MethodPatch, "/api/v1/recipes/"+recipe.ID.String(), strangerToken, body)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUpdateRecipeOnlyViaPatch(t *testing.T) {
	a := setupTestAPI(t)
	author, token := a.register(t, "author")
	recipe := a.seedRecipe(t, author, "soup")

	body := gin.H{"name": "renamed"}

	w := a.request(t, http.MethodPut, "/api/v1/recipes/"+recipe.ID.String(), token, body)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.request(t, http.MethodPatch, "/api/v1/recipes/"+recipe.ID.String(), token, body)
	require.Equal(t, http.StatusOK, w.Code)

	var resp RecipeResponse
	decodeJSON(t, w, &resp)
	assert.Equal(t, "renamed", resp.Name)
}

func TestDeleteRecipe(t *testing.T) {
	a := setupTestAPI(t)
	author, token := a.register(t, "author")
	recipe := a.seedRecipe(t, author, "soup")

	w := a.request(t, http.MethodDelete, "/api/v1/recipes/"+recipe.ID.String(), token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = a.request(t, http.MethodGet, "/api/v1/recipes/"+recipe.ID.String(), "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListRecipesAnonymous(t *testing.T) {
	a := setupTestAPI(t)
	author, _ := a.register(t, "author")
	a.seedRecipe(t, author, "soup")
	a.seedRecipe(t, author, "bread")

	w := a.request(t, http.MethodGet, "/api/v1/recipes", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var page struct {
		Count   int64            `json:"count"`
		Results []RecipeResponse `json:"results"`
	}
	decodeJSON(t, w, &page)
	assert.Equal(t, int64(2), page.Count)
	require.Len(t, page.Results, 2)
	for _, r := range page.Results {
		assert.False(t, r.IsFavorited)
		assert.False(t, r.IsInShoppingCart)
	}

	// Anonymous favorites filter yields an empty page.
	w = a.request(t, http.MethodGet, "/api/v1/recipes?is_favorited=true", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeJSON(t, w, &page)
	assert.Equal(t, int64(0), page.Count)
	assert.Empty(t, page.Results)
}

func TestListRecipesViewerFlags(t *testing.T) {
	a := setupTestAPI(t)
	author, _ := a.register(t, "author")
	_, token := a.register(t, "fan")
	liked := a.seedRecipe(t, author, "soup")
	a.seedRecipe(t, author, "bread")

	w := a.request(t, http.MethodPost, fmt.Sprintf("/api/v1/recipes/%s/favorite", liked.ID), token, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = a.request(t, http.MethodGet, "/api/v1/recipes", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var page struct {
		Results []RecipeResponse `json:"results"`
	}
	decodeJSON(t, w, &page)
	require.Len(t, page.Results, 2)
	for _, r := range page.Results {
		assert.Equal(t, r.ID == liked.ID, r.IsFavorited)
	}
}

func TestDownloadShoppingCart(t *testing.T) {
	a := setupTestAPI(t)
	author, _ := a.register(t, "author")
	_, token := a.register(t, "fan")

	salt := a.seedIngredient(t, "salt", "g")
	bread := a.seedRecipe(t, author, "bread")
	soup := a.seedRecipe(t, author, "soup")
	a.addIngredientLine(t, bread, salt, 5)
	a.addIngredientLine(t, soup, salt, 3)

	for _, recipe := range []string{bread.ID.String(), soup.ID.String()} {
		w := a.request(t, http.MethodPost, "/api/v1/recipes/"+recipe+"/shopping_cart", token, nil)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := a.request(t, http.MethodGet, "/api/v1/recipes/download_shopping_cart", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "shopping_cart_")
	assert.Equal(t, "salt (g) — 8\n", w.Body.String())
}

func TestDownloadShoppingCartEmpty(t *testing.T) {
	a := setupTestAPI(t)
	_, token := a.register(t, "fan")

	w := a.request(t, http.MethodGet, "/api/v1/recipes/download_shopping_cart", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "", w.Body.String())
}
