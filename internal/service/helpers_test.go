package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/chefshare/backend/internal/models"
	"github.com/chefshare/backend/internal/testdb"
)

type stubImageStore struct {
	url string
	err error
}

func (s *stubImageStore) Store(ctx context.Context, data []byte, contentType string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.url, nil
}

func newTestImageStore() *stubImageStore {
	return &stubImageStore{url: "https://images.test/recipe.png"}
}

func testImagePayload() string {
	return base64.StdEncoding.EncodeToString([]byte("not a real png"))
}

func createTestUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{
		Email:        username + "@example.com",
		Username:     username,
		FirstName:    "Test",
		LastName:     "User",
		PasswordHash: "x",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createTestIngredient(t *testing.T, db *gorm.DB, name, unit string) *models.Ingredient {
	t.Helper()
	ingredient := &models.Ingredient{Name: name, MeasurementUnit: unit}
	require.NoError(t, db.Create(ingredient).Error)
	return ingredient
}

func createTestTag(t *testing.T, db *gorm.DB, name string) *models.Tag {
	t.Helper()
	tag := &models.Tag{Name: name, Color: fmt.Sprintf("#%06x", len(name)*31337), Slug: name}
	require.NoError(t, db.Create(tag).Error)
	return tag
}

func createTestRecipe(t *testing.T, db *gorm.DB, author *models.User, name string, lines map[*models.Ingredient]int, tags ...*models.Tag) *models.Recipe {
	t.Helper()
	recipe := &models.Recipe{
		Name:        name,
		Text:        "instructions for " + name,
		CookingTime: 10,
		ImageURL:    "https://images.test/seed.png",
		AuthorID:    author.ID,
	}
	require.NoError(t, db.Create(recipe).Error)
	for ingredient, amount := range lines {
		line := &models.RecipeIngredient{
			RecipeID:     recipe.ID,
			IngredientID: ingredient.ID,
			Amount:       amount,
		}
		require.NoError(t, db.Create(line).Error)
	}
	for _, tag := range tags {
		require.NoError(t, db.Model(recipe).Association("Tags").Append(tag))
	}
	return recipe
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return testdb.Open(t)
}

func ptr[T any](v T) *T {
	return &v
}
