package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ShoppingListItem is one aggregated line of a user's shopping list.
type ShoppingListItem struct {
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
	TotalAmount     int64  `json:"amount"`
}

// ShoppingListService computes the aggregated shopping list for a user and
// renders it as downloadable plain text.
type ShoppingListService struct {
	db *gorm.DB
}

func NewShoppingListService(db *gorm.DB) *ShoppingListService {
	return &ShoppingListService{db: db}
}

// Aggregate sums ingredient amounts across every recipe in the user's
// shopping cart, grouped by (name, measurement_unit) and ordered by name.
// An empty cart yields an empty slice.
//
// Grouping by name+unit instead of ingredient id is kept for compatibility
// with the original aggregation query: two distinct ingredient rows that
// happen to share a name and unit are summed into one line. Known
// data-quality hazard.
func (s *ShoppingListService) Aggregate(ctx context.Context, userID uuid.UUID) ([]ShoppingListItem, error) {
	var items []ShoppingListItem
	err := s.db.WithContext(ctx).
		Table("recipe_ingredients").
		Select("ingredients.name AS name, ingredients.measurement_unit AS measurement_unit, SUM(recipe_ingredients.amount) AS total_amount").
		Joins("JOIN ingredients ON ingredients.id = recipe_ingredients.ingredient_id").
		Joins("JOIN shopping_cart_items ON shopping_cart_items.recipe_id = recipe_ingredients.recipe_id").
		Where("shopping_cart_items.user_id = ?", userID).
		Group("ingredients.name, ingredients.measurement_unit").
		Order("ingredients.name").
		Scan(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate shopping list: %w", err)
	}
	return items, nil
}

// Render emits one newline-terminated line per item in the order received:
// "{name} ({unit}) — {amount}". An empty list renders to an empty string.
func (s *ShoppingListService) Render(items []ShoppingListItem) string {
	var b strings.Builder
	for _, item := range items {
		fmt.Fprintf(&b, "%s (%s) — %d\n", item.Name, item.MeasurementUnit, item.TotalAmount)
	}
	return b.String()
}

// FileName returns the timestamped attachment name for a download.
func (s *ShoppingListService) FileName(now time.Time) string {
	return fmt.Sprintf("shopping_cart_%s.txt", now.Format("2006-01-02_15-04-05"))
}
