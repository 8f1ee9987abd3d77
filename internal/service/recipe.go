package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/chefshare/backend/internal/models"
)

// ImageStore persists a decoded image payload and returns its public URL.
type ImageStore interface {
	Store(ctx context.Context, data []byte, contentType string) (string, error)
}

// RecipeIngredientInput is one ingredient line of a create/update request.
type RecipeIngredientInput struct {
	ID     uuid.UUID
	Amount int
}

// RecipeInput carries the validated fields for a recipe create.
type RecipeInput struct {
	Name        string
	Text        string
	CookingTime int
	Image       string // base64 payload, optionally a data URL
	Ingredients []RecipeIngredientInput
	Tags        []uuid.UUID
}

// RecipeUpdate carries a partial update. Nil fields are left unchanged;
// supplied ingredient/tag lists replace the full prior set.
type RecipeUpdate struct {
	Name        *string
	Text        *string
	CookingTime *int
	Image       *string
	Ingredients []RecipeIngredientInput
	Tags        []uuid.UUID
}

// RecipeFilter holds the optional, AND-combined listing predicates.
type RecipeFilter struct {
	Author           *uuid.UUID
	TagSlugs         []string
	IsFavorited      *bool
	IsInShoppingCart *bool
	Limit            int
	Offset           int
}

// RecipeService handles recipe listing, lookup and atomic create/update.
type RecipeService struct {
	db     *gorm.DB
	images ImageStore
}

func NewRecipeService(db *gorm.DB, images ImageStore) *RecipeService {
	return &RecipeService{db: db, images: images}
}

// Create validates the input and persists the recipe, its ingredient lines
// and its tag links as one transaction. Constraint violations that slip past
// validation roll the whole transaction back and surface as ValidationError.
func (s *RecipeService) Create(ctx context.Context, authorID uuid.UUID, input *RecipeInput) (*models.Recipe, error) {
	if err := validateRecipeFields(input.Name, input.Text, input.CookingTime); err != nil {
		return nil, err
	}
	if err := validateIngredientList(input.Ingredients, true); err != nil {
		return nil, err
	}
	if err := validateTagList(input.Tags, true); err != nil {
		return nil, err
	}
	if input.Image == "" {
		return nil, newValidationError("image", "image must not be empty")
	}

	imageURL, err := s.storeImage(ctx, input.Image)
	if err != nil {
		return nil, err
	}

	recipe := &models.Recipe{
		Name:        input.Name,
		Text:        input.Text,
		CookingTime: input.CookingTime,
		ImageURL:    imageURL,
		AuthorID:    authorID,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tags, err := loadTags(tx, input.Tags)
		if err != nil {
			return err
		}

		if err := tx.Create(recipe).Error; err != nil {
			return translateIntegrityError(err, "recipe")
		}
		if err := createIngredientLines(tx, recipe.ID, input.Ingredients); err != nil {
			return err
		}
		if err := tx.Model(recipe).Association("Tags").Replace(tags); err != nil {
			return translateIntegrityError(err, "tags")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, recipe.ID)
}

// Update applies a partial update. Supplied ingredient and tag lists are
// replaced wholesale, never merged. All-or-nothing.
func (s *RecipeService) Update(ctx context.Context, actor *models.User, recipeID uuid.UUID, input *RecipeUpdate) (*models.Recipe, error) {
	if input.Ingredients != nil {
		if err := validateIngredientList(input.Ingredients, true); err != nil {
			return nil, err
		}
	}
	if input.Tags != nil {
		if err := validateTagList(input.Tags, true); err != nil {
			return nil, err
		}
	}
	if input.Name != nil && *input.Name == "" {
		return nil, newValidationError("name", "name must not be empty")
	}
	if input.Text != nil && *input.Text == "" {
		return nil, newValidationError("text", "text must not be empty")
	}
	if input.CookingTime != nil && *input.CookingTime < 1 {
		return nil, newValidationError("cooking_time", "cooking time must be at least 1")
	}

	var recipe models.Recipe
	if err := s.db.WithContext(ctx).First(&recipe, "id = ?", recipeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load recipe: %w", err)
	}
	if recipe.AuthorID != actor.ID && !actor.IsAdmin {
		return nil, ErrPermissionDenied
	}

	updates := map[string]interface{}{}
	if input.Name != nil {
		updates["name"] = *input.Name
	}
	if input.Text != nil {
		updates["text"] = *input.Text
	}
	if input.CookingTime != nil {
		updates["cooking_time"] = *input.CookingTime
	}
	if input.Image != nil && *input.Image != "" {
		imageURL, err := s.storeImage(ctx, *input.Image)
		if err != nil {
			return nil, err
		}
		updates["image_url"] = imageURL
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(&recipe).Updates(updates).Error; err != nil {
				return translateIntegrityError(err, "recipe")
			}
		}
		if input.Ingredients != nil {
			if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.RecipeIngredient{}).Error; err != nil {
				return fmt.Errorf("failed to clear ingredient lines: %w", err)
			}
			if err := createIngredientLines(tx, recipe.ID, input.Ingredients); err != nil {
				return err
			}
		}
		if input.Tags != nil {
			tags, err := loadTags(tx, input.Tags)
			if err != nil {
				return err
			}
			if err := tx.Model(&recipe).Association("Tags").Replace(tags); err != nil {
				return translateIntegrityError(err, "tags")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, recipe.ID)
}

// Delete removes the recipe and everything that hangs off it: ingredient
// lines, tag links, favorites and cart entries.
func (s *RecipeService) Delete(ctx context.Context, actor *models.User, recipeID uuid.UUID) error {
	var recipe models.Recipe
	if err := s.db.WithContext(ctx).First(&recipe, "id = ?", recipeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to load recipe: %w", err)
	}
	if recipe.AuthorID != actor.ID && !actor.IsAdmin {
		return ErrPermissionDenied
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.RecipeIngredient{}).Error; err != nil {
			return fmt.Errorf("failed to delete ingredient lines: %w", err)
		}
		if err := tx.Model(&recipe).Association("Tags").Clear(); err != nil {
			return fmt.Errorf("failed to clear tag links: %w", err)
		}
		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.FavoriteRecipe{}).Error; err != nil {
			return fmt.Errorf("failed to delete favorites: %w", err)
		}
		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.ShoppingCartItem{}).Error; err != nil {
			return fmt.Errorf("failed to delete cart entries: %w", err)
		}
		if err := tx.Delete(&recipe).Error; err != nil {
			return fmt.Errorf("failed to delete recipe: %w", err)
		}
		return nil
	})
}

// Get loads one recipe with its author, tags and ingredient lines.
func (s *RecipeService) Get(ctx context.Context, id uuid.UUID) (*models.Recipe, error) {
	var recipe models.Recipe
	err := s.db.WithContext(ctx).
		Preload("Author").
		Preload("Tags").
		Preload("Ingredients.Ingredient").
		First(&recipe, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load recipe: %w", err)
	}
	return &recipe, nil
}

// List returns one page of recipes for the viewer plus the total match
// count, newest publication first. The tag filter matches recipes having at
// least one of the given slugs; all predicates are combined with AND. The
// EXISTS predicates keep the result duplicate-free without a DISTINCT.
func (s *RecipeService) List(ctx context.Context, viewer *uuid.UUID, filter RecipeFilter) ([]models.Recipe, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Recipe{})

	if filter.Author != nil {
		query = query.Where("recipes.author_id = ?", *filter.Author)
	}
	if len(filter.TagSlugs) > 0 {
		query = query.Where(
			"EXISTS (SELECT 1 FROM recipe_tags rt JOIN tags ON tags.id = rt.tag_id WHERE rt.recipe_id = recipes.id AND tags.slug IN ?)",
			filter.TagSlugs,
		)
	}
	query = applyRelationFilter(query, viewer, filter.IsFavorited, "favorite_recipes")
	query = applyRelationFilter(query, viewer, filter.IsInShoppingCart, "shopping_cart_items")

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count recipes: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}

	var recipes []models.Recipe
	err := query.
		Preload("Author").
		Preload("Tags").
		Preload("Ingredients.Ingredient").
		Order("recipes.pub_date DESC").
		Limit(limit).
		Offset(filter.Offset).
		Find(&recipes).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list recipes: %w", err)
	}
	return recipes, total, nil
}

// Flags reports, for each of the given recipes, whether the viewer has
// favorited it and whether it sits in the viewer's cart. Anonymous viewers
// get empty sets, so every flag renders false.
func (s *RecipeService) Flags(ctx context.Context, viewer *uuid.UUID, recipeIDs []uuid.UUID) (map[uuid.UUID]bool, map[uuid.UUID]bool, error) {
	favorited := make(map[uuid.UUID]bool)
	inCart := make(map[uuid.UUID]bool)
	if viewer == nil || len(recipeIDs) == 0 {
		return favorited, inCart, nil
	}

	var ids []uuid.UUID
	err := s.db.WithContext(ctx).Model(&models.FavoriteRecipe{}).
		Where("user_id = ? AND recipe_id IN ?", *viewer, recipeIDs).
		Pluck("recipe_id", &ids).Error
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load favorite flags: %w", err)
	}
	for _, id := range ids {
		favorited[id] = true
	}

	ids = ids[:0]
	err = s.db.WithContext(ctx).Model(&models.ShoppingCartItem{}).
		Where("user_id = ? AND recipe_id IN ?", *viewer, recipeIDs).
		Pluck("recipe_id", &ids).Error
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load cart flags: %w", err)
	}
	for _, id := range ids {
		inCart[id] = true
	}

	return favorited, inCart, nil
}

// applyRelationFilter narrows the listing on a derived membership column.
// For anonymous viewers the derived value is always false, so asking for
// true yields an empty page.
func applyRelationFilter(query *gorm.DB, viewer *uuid.UUID, want *bool, table string) *gorm.DB {
	if want == nil {
		return query
	}
	if viewer == nil {
		if *want {
			return query.Where("1 = 0")
		}
		return query
	}
	cond := fmt.Sprintf(
		"EXISTS (SELECT 1 FROM %s rel WHERE rel.recipe_id = recipes.id AND rel.user_id = ?)", table)
	if !*want {
		cond = "NOT " + cond
	}
	return query.Where(cond, *viewer)
}

func (s *RecipeService) storeImage(ctx context.Context, payload string) (string, error) {
	data, contentType, err := decodeBase64Image(payload)
	if err != nil {
		return "", newValidationError("image", err.Error())
	}
	url, err := s.images.Store(ctx, data, contentType)
	if err != nil {
		return "", fmt.Errorf("failed to store image: %w", err)
	}
	return url, nil
}

// decodeBase64Image accepts a raw base64 string or a data URL
// ("data:image/png;base64,....") and returns the payload bytes and content
// type.
func decodeBase64Image(payload string) ([]byte, string, error) {
	contentType := "image/png"
	if strings.HasPrefix(payload, "data:") {
		meta, rest, ok := strings.Cut(payload, ",")
		if !ok {
			return nil, "", errors.New("malformed data URL")
		}
		contentType = strings.TrimSuffix(strings.TrimPrefix(meta, "data:"), ";base64")
		payload = rest
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("invalid base64 image payload: %v", err)
	}
	if len(data) == 0 {
		return nil, "", errors.New("image must not be empty")
	}
	return data, contentType, nil
}

func validateRecipeFields(name, text string, cookingTime int) error {
	if name == "" {
		return newValidationError("name", "name must not be empty")
	}
	if text == "" {
		return newValidationError("text", "text must not be empty")
	}
	if cookingTime < 1 {
		return newValidationError("cooking_time", "cooking time must be at least 1")
	}
	return nil
}

func validateIngredientList(ingredients []RecipeIngredientInput, required bool) error {
	if len(ingredients) == 0 {
		if required {
			return newValidationError("ingredients", "ingredient list must not be empty")
		}
		return nil
	}
	seen := make(map[uuid.UUID]struct{}, len(ingredients))
	for _, ing := range ingredients {
		if _, dup := seen[ing.ID]; dup {
			return newValidationError("ingredients", "ingredients must not repeat")
		}
		seen[ing.ID] = struct{}{}
		if ing.Amount < 1 {
			return newValidationError("ingredients", "amount must be at least 1")
		}
	}
	return nil
}

func validateTagList(tags []uuid.UUID, required bool) error {
	if len(tags) == 0 {
		if required {
			return newValidationError("tags", "tag list must not be empty")
		}
		return nil
	}
	seen := make(map[uuid.UUID]struct{}, len(tags))
	for _, id := range tags {
		if _, dup := seen[id]; dup {
			return newValidationError("tags", "tags must not repeat")
		}
		seen[id] = struct{}{}
	}
	return nil
}

func loadTags(tx *gorm.DB, ids []uuid.UUID) ([]models.Tag, error) {
	var tags []models.Tag
	if err := tx.Where("id IN ?", ids).Find(&tags).Error; err != nil {
		return nil, fmt.Errorf("failed to load tags: %w", err)
	}
	if len(tags) != len(ids) {
		return nil, newValidationError("tags", "unknown tag id")
	}
	return tags, nil
}

func createIngredientLines(tx *gorm.DB, recipeID uuid.UUID, inputs []RecipeIngredientInput) error {
	var count int64
	ids := make([]uuid.UUID, len(inputs))
	for i, in := range inputs {
		ids[i] = in.ID
	}
	if err := tx.Model(&models.Ingredient{}).Where("id IN ?", ids).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check ingredients: %w", err)
	}
	if count != int64(len(ids)) {
		return newValidationError("ingredients", "unknown ingredient id")
	}

	lines := make([]models.RecipeIngredient, len(inputs))
	for i, in := range inputs {
		lines[i] = models.RecipeIngredient{
			RecipeID:     recipeID,
			IngredientID: in.ID,
			Amount:       in.Amount,
		}
	}
	if err := tx.Create(&lines).Error; err != nil {
		return translateIntegrityError(err, "ingredients")
	}
	return nil
}

// translateIntegrityError reclassifies store constraint violations into the
// error taxonomy instead of surfacing raw storage errors.
func translateIntegrityError(err error, field string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return newValidationError(field, "uniqueness constraint violated")
	}
	return fmt.Errorf("failed to persist %s: %w", field, err)
}
