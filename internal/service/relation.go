package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/chefshare/backend/internal/models"
)

// RelationKind selects which user→target join table a toggle operates on.
type RelationKind string

const (
	RelationFavorite     RelationKind = "favorite"
	RelationShoppingCart RelationKind = "shopping_cart"
	RelationSubscription RelationKind = "subscription"
)

// relationSchema describes one join table: how to build a row for it, which
// columns hold the user/target pair, and how to look up the target entity.
type relationSchema struct {
	userCol   string
	targetCol string
	newRow    func(userID, targetID uuid.UUID) interface{}
	rowModel  func() interface{}
	newTarget func() interface{}
}

var relationSchemas = map[RelationKind]relationSchema{
	RelationFavorite: {
		userCol:   "user_id",
		targetCol: "recipe_id",
		newRow: func(userID, targetID uuid.UUID) interface{} {
			return &models.FavoriteRecipe{UserID: userID, RecipeID: targetID}
		},
		rowModel:  func() interface{} { return &models.FavoriteRecipe{} },
		newTarget: func() interface{} { return &models.Recipe{} },
	},
	RelationShoppingCart: {
		userCol:   "user_id",
		targetCol: "recipe_id",
		newRow: func(userID, targetID uuid.UUID) interface{} {
			return &models.ShoppingCartItem{UserID: userID, RecipeID: targetID}
		},
		rowModel:  func() interface{} { return &models.ShoppingCartItem{} },
		newTarget: func() interface{} { return &models.Recipe{} },
	},
	RelationSubscription: {
		userCol:   "follower_id",
		targetCol: "followee_id",
		newRow: func(userID, targetID uuid.UUID) interface{} {
			return &models.Subscription{FollowerID: userID, FolloweeID: targetID}
		},
		rowModel:  func() interface{} { return &models.Subscription{} },
		newTarget: func() interface{} { return &models.User{} },
	},
}

// RelationTarget carries the looked-up target entity back to the handler so
// it can render the public representation without a second query.
type RelationTarget struct {
	Recipe *models.Recipe
	User   *models.User
}

// RelationService implements the idempotent-by-contract add/remove of
// user→target relationships over the three join tables.
type RelationService struct {
	db *gorm.DB
}

func NewRelationService(db *gorm.DB) *RelationService {
	return &RelationService{db: db}
}

// Add inserts one relationship row for (userID, targetID, kind). The target
// lookup and the insert run in one transaction; the uniqueness constraint is
// the final arbiter under concurrent adds and is reported as
// ErrAlreadyExists rather than a raw store error.
func (s *RelationService) Add(ctx context.Context, userID, targetID uuid.UUID, kind RelationKind) (*RelationTarget, error) {
	schema, ok := relationSchemas[kind]
	if !ok {
		return nil, fmt.Errorf("unknown relation kind %q", kind)
	}

	if kind == RelationSubscription && userID == targetID {
		return nil, ErrSelfSubscription
	}

	target := schema.newTarget()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(target, "id = ?", targetID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to look up relation target: %w", err)
		}

		if err := tx.Create(schema.newRow(userID, targetID)).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyExists
			}
			return fmt.Errorf("failed to create %s relation: %w", kind, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &RelationTarget{}
	switch t := target.(type) {
	case *models.Recipe:
		result.Recipe = t
	case *models.User:
		result.User = t
	}
	return result, nil
}

// Remove deletes exactly one relationship row for (userID, targetID, kind).
// A missing target entity is ErrNotFound; a missing relationship row is
// ErrRelationNotFound.
func (s *RelationService) Remove(ctx context.Context, userID, targetID uuid.UUID, kind RelationKind) error {
	schema, ok := relationSchemas[kind]
	if !ok {
		return fmt.Errorf("unknown relation kind %q", kind)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(schema.newTarget(), "id = ?", targetID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to look up relation target: %w", err)
		}

		res := tx.Where(
			fmt.Sprintf("%s = ? AND %s = ?", schema.userCol, schema.targetCol),
			userID, targetID,
		).Delete(schema.rowModel())
		if res.Error != nil {
			return fmt.Errorf("failed to delete %s relation: %w", kind, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrRelationNotFound
		}
		return nil
	})
}

// Exists reports whether a relationship row is present for the pair.
func (s *RelationService) Exists(ctx context.Context, userID, targetID uuid.UUID, kind RelationKind) (bool, error) {
	schema, ok := relationSchemas[kind]
	if !ok {
		return false, fmt.Errorf("unknown relation kind %q", kind)
	}

	var count int64
	err := s.db.WithContext(ctx).Model(schema.rowModel()).
		Where(fmt.Sprintf("%s = ? AND %s = ?", schema.userCol, schema.targetCol), userID, targetID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check %s relation: %w", kind, err)
	}
	return count > 0, nil
}
