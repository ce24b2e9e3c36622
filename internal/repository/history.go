package repository

import (
	"context"

	"mfl/internal/models"

	"gorm.io/gorm"
)

// HistoryRepository defines read access to request status history. Entries
// are appended by RequestRepository inside its transactions; this interface
// only reads them back, oldest first.
type HistoryRepository interface {
	ListByRequest(ctx context.Context, requestID uint) ([]models.StatusHistoryEntry, error)
	ListByOwner(ctx context.Context, ownerUserID uint, limit, offset int) ([]models.StatusHistoryEntry, error)
	ListByActor(ctx context.Context, actorUserID uint, limit, offset int) ([]models.StatusHistoryEntry, error)
}

type historyRepository struct {
	db *gorm.DB
}

// NewHistoryRepository returns a new HistoryRepository implementation.
func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) ListByRequest(ctx context.Context, requestID uint) ([]models.StatusHistoryEntry, error) {
	var entries []models.StatusHistoryEntry
	err := readDB(r.db).WithContext(ctx).
		Preload("Actor").
		Where("request_id = ?", requestID).
		Order("created_at ASC, id ASC").
		Find(&entries).Error
	return entries, err
}

func (r *historyRepository) ListByOwner(ctx context.Context, ownerUserID uint, limit, offset int) ([]models.StatusHistoryEntry, error) {
	var entries []models.StatusHistoryEntry
	err := readDB(r.db).WithContext(ctx).
		Joins("JOIN facility_requests ON facility_requests.id = status_history_entries.request_id").
		Where("facility_requests.requested_by_user_id = ?", ownerUserID).
		Order("status_history_entries.created_at ASC, status_history_entries.id ASC").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error
	return entries, err
}

func (r *historyRepository) ListByActor(ctx context.Context, actorUserID uint, limit, offset int) ([]models.StatusHistoryEntry, error) {
	var entries []models.StatusHistoryEntry
	err := readDB(r.db).WithContext(ctx).
		Where("actor_user_id = ?", actorUserID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error
	return entries, err
}
