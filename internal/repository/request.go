package repository

import (
	"context"
	"errors"

	"mfl/internal/cache"
	"mfl/internal/models"
	"mfl/internal/observability"

	"gorm.io/gorm"
)

// RequestFilter narrows request listings. Zero values mean "no filter".
type RequestFilter struct {
	Status      models.RequestStatus
	RequestType models.RequestType
	DistrictID  uint
	Limit       int
	Offset      int
}

// RequestRepository defines persistence operations for facility requests.
// Status is never written directly; it only changes through TransitionStatus.
type RequestRepository interface {
	// Create persists a new request together with its initial history entry
	// in one transaction.
	Create(ctx context.Context, request *models.FacilityRequest, initial *models.StatusHistoryEntry) error
	GetByID(ctx context.Context, id uint) (*models.FacilityRequest, error)
	GetByReference(ctx context.Context, reference string) (*models.FacilityRequest, error)
	List(ctx context.Context, filter RequestFilter) ([]models.FacilityRequest, int64, error)
	ListByOwner(ctx context.Context, userID uint, limit, offset int) ([]models.FacilityRequest, error)
	// TransitionStatus atomically moves a request from one status to another.
	// The update is conditioned on the current status still being from; if
	// another reviewer won the race, no row matches and a conflict error is
	// returned. The history entry, any extra column updates and the publish
	// callback all commit or roll back together with the status change.
	TransitionStatus(ctx context.Context, id uint, from, to models.RequestStatus,
		updates map[string]interface{}, entry *models.StatusHistoryEntry,
		publish func(tx *gorm.DB) error) error
	// LinkFacility records which published facility a request produced. It
	// is called from inside a publish callback with that callback's tx so
	// the link commits atomically with the snapshot.
	LinkFacility(tx *gorm.DB, requestID, facilityID uint) error
}

type requestRepository struct {
	db      *gorm.DB
	metrics *observability.DatabaseMetrics
	log     *observability.RepoLogger
}

// NewRequestRepository returns a new RequestRepository implementation.
func NewRequestRepository(db *gorm.DB) RequestRepository {
	return &requestRepository{
		db:      db,
		metrics: observability.NewDatabaseMetrics(),
		log:     observability.NewRepoLogger("facility_requests"),
	}
}

func (r *requestRepository) Create(ctx context.Context, request *models.FacilityRequest, initial *models.StatusHistoryEntry) error {
	defer r.metrics.TrackQuery("insert", "facility_requests")()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(request).Error; err != nil {
			return err
		}
		initial.RequestID = request.ID
		return tx.Create(initial).Error
	})
	if err != nil {
		r.log.LogError(ctx, err, "create")
		return err
	}

	r.log.LogCreate(ctx, map[string]interface{}{
		"request_id": request.ID,
		"reference":  request.Reference,
		"type":       request.RequestType,
	})
	return nil
}

func (r *requestRepository) GetByID(ctx context.Context, id uint) (*models.FacilityRequest, error) {
	var request models.FacilityRequest
	err := readDB(r.db).WithContext(ctx).
		Preload("District").
		Preload("Facility").
		Preload("Facility.Region").
		Preload("Facility.District").
		Preload("Facility.Subcounty").
		Preload("RequestedByUser").
		Preload("RejectedByUser").
		Preload("Documents").
		First(&request, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Request", id)
		}
		return nil, err
	}
	return &request, nil
}

func (r *requestRepository) GetByReference(ctx context.Context, reference string) (*models.FacilityRequest, error) {
	var request models.FacilityRequest
	err := readDB(r.db).WithContext(ctx).
		Preload("District").
		Preload("Documents").
		Where("reference = ?", reference).
		First(&request).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Request", reference)
		}
		return nil, err
	}
	return &request, nil
}

func (r *requestRepository) List(ctx context.Context, filter RequestFilter) ([]models.FacilityRequest, int64, error) {
	defer r.metrics.TrackQuery("select", "facility_requests")()

	query := readDB(r.db).WithContext(ctx).Model(&models.FacilityRequest{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.RequestType != "" {
		query = query.Where("request_type = ?", filter.RequestType)
	}
	if filter.DistrictID != 0 {
		query = query.Where("district_id = ?", filter.DistrictID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var requests []models.FacilityRequest
	err := query.
		Preload("District").
		Preload("RequestedByUser").
		Order("created_at DESC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&requests).Error
	if err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}

func (r *requestRepository) ListByOwner(ctx context.Context, userID uint, limit, offset int) ([]models.FacilityRequest, error) {
	var requests []models.FacilityRequest
	err := readDB(r.db).WithContext(ctx).
		Preload("District").
		Where("requested_by_user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&requests).Error
	return requests, err
}

func (r *requestRepository) LinkFacility(tx *gorm.DB, requestID, facilityID uint) error {
	db := r.db
	if tx != nil {
		db = tx
	}
	return db.Model(&models.FacilityRequest{}).
		Where("id = ?", requestID).
		Update("facility_id", facilityID).Error
}

func (r *requestRepository) TransitionStatus(ctx context.Context, id uint, from, to models.RequestStatus,
	updates map[string]interface{}, entry *models.StatusHistoryEntry,
	publish func(tx *gorm.DB) error) error {

	defer r.metrics.TrackQuery("update", "facility_requests")()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		values := map[string]interface{}{"status": to}
		for k, v := range updates {
			values[k] = v
		}

		result := tx.Model(&models.FacilityRequest{}).
			Where("id = ? AND status = ?", id, from).
			Updates(values)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			observability.RequestTransitionConflicts.Inc()
			return models.NewConflictError("request was modified by another reviewer; re-fetch and retry")
		}

		entry.RequestID = id
		entry.Status = to
		if err := tx.Create(entry).Error; err != nil {
			return err
		}

		if publish != nil {
			if err := publish(tx); err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		r.log.LogError(ctx, err, "transition")
		return err
	}

	cache.InvalidateRequest(ctx, id)
	observability.RequestTransitions.WithLabelValues(string(from), string(to)).Inc()
	r.log.LogUpdate(ctx, map[string]interface{}{
		"request_id": id,
		"from":       from,
		"to":         to,
	})
	return nil
}
