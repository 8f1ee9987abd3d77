package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/chefshare/backend/internal/models"
)

// SubscriptionEntry is one followee in a subscriptions listing: the user,
// their total recipe count and the first page of their recipes.
type SubscriptionEntry struct {
	User         models.User
	RecipesCount int64
	Recipes      []models.Recipe
}

// UserService handles user listing and the subscriptions view.
type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// List returns one page of users ordered by id, plus the total count.
func (s *UserService) List(ctx context.Context, limit, offset int) ([]models.User, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	if limit <= 0 {
		limit = 10
	}
	var users []models.User
	err := s.db.WithContext(ctx).
		Order("id").
		Limit(limit).
		Offset(offset).
		Find(&users).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}

// Get loads a user by id.
func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}

// SubscribedSet reports which of the given users the viewer follows.
func (s *UserService) SubscribedSet(ctx context.Context, viewer *uuid.UUID, userIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	subscribed := make(map[uuid.UUID]bool)
	if viewer == nil || len(userIDs) == 0 {
		return subscribed, nil
	}
	var ids []uuid.UUID
	err := s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("follower_id = ? AND followee_id IN ?", *viewer, userIDs).
		Pluck("followee_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load subscription flags: %w", err)
	}
	for _, id := range ids {
		subscribed[id] = true
	}
	return subscribed, nil
}

// Subscriptions returns one page of users the follower subscribes to, each
// with their recipe count and up to recipesLimit of their newest recipes.
func (s *UserService) Subscriptions(ctx context.Context, followerID uuid.UUID, limit, offset, recipesLimit int) ([]SubscriptionEntry, int64, error) {
	base := s.db.WithContext(ctx).
		Table("users").
		Joins("JOIN subscriptions ON subscriptions.followee_id = users.id").
		Where("subscriptions.follower_id = ?", followerID).
		Where("users.deleted_at IS NULL").
		Session(&gorm.Session{})

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count subscriptions: %w", err)
	}

	if limit <= 0 {
		limit = 10
	}
	if recipesLimit <= 0 {
		recipesLimit = 10
	}

	var followees []models.User
	err := base.
		Order("users.id").
		Limit(limit).
		Offset(offset).
		Find(&followees).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	entries := make([]SubscriptionEntry, 0, len(followees))
	for _, followee := range followees {
		entry, err := s.FolloweeEntry(ctx, followee, recipesLimit)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, *entry)
	}
	return entries, total, nil
}

// FolloweeEntry builds the subscriptions-listing payload for one followee.
func (s *UserService) FolloweeEntry(ctx context.Context, followee models.User, recipesLimit int) (*SubscriptionEntry, error) {
	if recipesLimit <= 0 {
		recipesLimit = 10
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Recipe{}).
		Where("author_id = ?", followee.ID).
		Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to count recipes: %w", err)
	}

	var recipes []models.Recipe
	if err := s.db.WithContext(ctx).
		Where("author_id = ?", followee.ID).
		Order("pub_date DESC").
		Limit(recipesLimit).
		Find(&recipes).Error; err != nil {
		return nil, fmt.Errorf("failed to load followee recipes: %w", err)
	}

	return &SubscriptionEntry{
		User:         followee,
		RecipesCount: count,
		Recipes:      recipes,
	}, nil
}
