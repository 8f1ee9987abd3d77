package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/chefshare/backend/internal/models"
	"github.com/chefshare/backend/internal/service"
	"github.com/chefshare/backend/internal/testdb"
)

type stubImageStore struct{}

func (stubImageStore) Store(ctx context.Context, data []byte, contentType string) (string, error) {
	return "https://images.test/recipe.png", nil
}

type testAPI struct {
	engine *gin.Engine
	db     *gorm.DB
	auth   *service.AuthService
}

func setupTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testdb.Open(t)
	auth := service.NewAuthService(db, "test-secret")
	users := service.NewUserService(db)
	relations := service.NewRelationService(db)
	shoppingList := service.NewShoppingListService(db)
	recipes := service.NewRecipeService(db, stubImageStore{})

	engine := gin.New()
	v1 := engine.Group("/api/v1")
	NewAuthHandler(auth).RegisterRoutes(v1)
	NewUserHandler(users, relations, auth).RegisterRoutes(v1)
	NewRecipeHandler(db, recipes, relations, shoppingList, auth).RegisterRoutes(v1)
	NewTagHandler(db).RegisterRoutes(v1)
	NewIngredientHandler(db).RegisterRoutes(v1)

	return &testAPI{engine: engine, db: db, auth: auth}
}

// register creates an account directly and returns the user plus a valid
// bearer token.
func (a *testAPI) register(t *testing.T, username string) (*models.User, string) {
	t.Helper()
	user, err := a.auth.Register(context.Background(), &service.RegisterInput{
		Email:     username + "@example.com",
		Username:  username,
		FirstName: "Test",
		LastName:  "User",
		Password:  "password123",
	})
	require.NoError(t, err)

	token, err := a.auth.GenerateToken(user.ID)
	require.NoError(t, err)
	return user, token
}

func (a *testAPI) request(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func (a *testAPI) seedIngredient(t *testing.T, name, unit string) *models.Ingredient {
	t.Helper()
	ingredient := &models.Ingredient{Name: name, MeasurementUnit: unit}
	require.NoError(t, a.db.Create(ingredient).Error)
	return ingredient
}

func (a *testAPI) seedTag(t *testing.T, name string) *models.Tag {
	t.Helper()
	tag := &models.Tag{Name: name, Color: "#" + name, Slug: name}
	require.NoError(t, a.db.Create(tag).Error)
	return tag
}

func (a *testAPI) seedRecipe(t *testing.T, author *models.User, name string) *models.Recipe {
	t.Helper()
	recipe := &models.Recipe{
		Name:        name,
		Text:        "instructions",
		CookingTime: 15,
		ImageURL:    "https://images.test/seed.png",
		AuthorID:    author.ID,
	}
	require.NoError(t, a.db.Create(recipe).Error)
	return recipe
}

func (a *testAPI) addIngredientLine(t *testing.T, recipe *models.Recipe, ingredient *models.Ingredient, amount int) {
	t.Helper()
	line := &models.RecipeIngredient{
		RecipeID:     recipe.ID,
		IngredientID: ingredient.ID,
		Amount:       amount,
	}
	require.NoError(t, a.db.Create(line).Error)
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dest))
}

func testImage() string {
	return base64.StdEncoding.EncodeToString([]byte("not a real png"))
}
