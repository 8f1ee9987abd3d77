package database

import (
	"gorm.io/gorm"

	"github.com/chefshare/backend/internal/models"
)

// Migrate applies the schema for the full model set, including the join
// tables with their composite unique indexes and check constraints.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Ingredient{},
		&models.Tag{},
		&models.Recipe{},
		&models.RecipeIngredient{},
		&models.FavoriteRecipe{},
		&models.ShoppingCartItem{},
		&models.Subscription{},
	)
}
