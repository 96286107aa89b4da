package store

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"learning-planner-backend/internal/model"
)

// gormSubscriptionStore implements SubscriptionStore using GORM.
type gormSubscriptionStore struct {
	db *gorm.DB
}

// NewGormSubscriptionStore creates a GORM-backed subscription store.
func NewGormSubscriptionStore(db *gorm.DB) SubscriptionStore {
	return &gormSubscriptionStore{db: db}
}

func (s *gormSubscriptionStore) ListActiveByUser(ctx context.Context, userID string) ([]model.PushSubscription, error) {
	var subscriptions []model.PushSubscription
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND active = ?", userID, true).
		Order("created_at").
		Find(&subscriptions).Error; err != nil {
		return nil, storageErr("list active subscriptions", err)
	}
	return subscriptions, nil
}

func (s *gormSubscriptionStore) Deactivate(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).
		Model(&model.PushSubscription{}).
		Where("id = ? AND active = ?", id, true).
		Update("active", false).Error
	if err != nil {
		return storageErr("deactivate subscription", err)
	}
	return nil
}

func (s *gormSubscriptionStore) Create(ctx context.Context, userID, endpoint string) (*model.PushSubscription, error) {
	subscription := model.PushSubscription{
		ID:       uuid.NewString(),
		UserID:   userID,
		Endpoint: endpoint,
		Active:   true,
	}
	if err := s.db.WithContext(ctx).Create(&subscription).Error; err != nil {
		return nil, storageErr("create subscription", err)
	}
	return &subscription, nil
}

func (s *gormSubscriptionStore) DeleteAllByUser(ctx context.Context, userID string) error {
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&model.PushSubscription{}).Error; err != nil {
		return storageErr("delete subscriptions", err)
	}
	return nil
}
