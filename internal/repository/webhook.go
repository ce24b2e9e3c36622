package repository

import (
	"context"

	"mfl/internal/models"

	"gorm.io/gorm"
)

// WebhookRepository defines persistence operations for webhook subscriptions.
type WebhookRepository interface {
	Create(ctx context.Context, sub *models.WebhookSubscription) error
	List(ctx context.Context) ([]models.WebhookSubscription, error)
	ListActive(ctx context.Context) ([]models.WebhookSubscription, error)
	Update(ctx context.Context, sub *models.WebhookSubscription) error
	Delete(ctx context.Context, id uint) error
}

type webhookRepository struct {
	db *gorm.DB
}

// NewWebhookRepository returns a new WebhookRepository implementation.
func NewWebhookRepository(db *gorm.DB) WebhookRepository {
	return &webhookRepository{db: db}
}

func (r *webhookRepository) Create(ctx context.Context, sub *models.WebhookSubscription) error {
	return r.db.WithContext(ctx).Create(sub).Error
}

func (r *webhookRepository) List(ctx context.Context) ([]models.WebhookSubscription, error) {
	var subs []models.WebhookSubscription
	err := readDB(r.db).WithContext(ctx).Order("id ASC").Find(&subs).Error
	return subs, err
}

func (r *webhookRepository) ListActive(ctx context.Context) ([]models.WebhookSubscription, error) {
	var subs []models.WebhookSubscription
	err := readDB(r.db).WithContext(ctx).Where("active = ?", true).Find(&subs).Error
	return subs, err
}

func (r *webhookRepository) Update(ctx context.Context, sub *models.WebhookSubscription) error {
	return r.db.WithContext(ctx).Save(sub).Error
}

func (r *webhookRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.WebhookSubscription{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Webhook subscription", id)
	}
	return nil
}
