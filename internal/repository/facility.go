package repository

import (
	"context"
	"errors"

	"mfl/internal/cache"
	"mfl/internal/models"
	"mfl/internal/observability"

	"gorm.io/gorm"
)

// FacilityFilter narrows facility listings. Zero values mean "no filter".
type FacilityFilter struct {
	Name       string
	Level      string
	DistrictID uint
	Active     *bool
	Limit      int
	Offset     int
}

// FacilityRepository defines persistence operations for published facilities.
type FacilityRepository interface {
	Create(ctx context.Context, facility *models.Facility) error
	GetByID(ctx context.Context, id uint) (*models.Facility, error)
	GetByCode(ctx context.Context, code string) (*models.Facility, error)
	List(ctx context.Context, filter FacilityFilter) ([]models.Facility, int64, error)
	Update(ctx context.Context, facility *models.Facility) error
	Deactivate(ctx context.Context, id uint) error
	// WithTx returns a repository bound to the given transaction handle so
	// publish writes can join a request's status transaction.
	WithTx(tx *gorm.DB) FacilityRepository
}

type facilityRepository struct {
	db      *gorm.DB
	metrics *observability.DatabaseMetrics
}

// NewFacilityRepository returns a new FacilityRepository implementation.
func NewFacilityRepository(db *gorm.DB) FacilityRepository {
	return &facilityRepository{db: db, metrics: observability.NewDatabaseMetrics()}
}

func (r *facilityRepository) WithTx(tx *gorm.DB) FacilityRepository {
	return &facilityRepository{db: tx, metrics: r.metrics}
}

func (r *facilityRepository) Create(ctx context.Context, facility *models.Facility) error {
	defer r.metrics.TrackQuery("insert", "facilities")()
	if err := r.db.WithContext(ctx).Create(facility).Error; err != nil {
		return err
	}
	cache.InvalidateFacilityLists(ctx)
	return nil
}

func (r *facilityRepository) GetByID(ctx context.Context, id uint) (*models.Facility, error) {
	var facility models.Facility
	key := cache.FacilityKey(id)

	err := cache.Aside(ctx, key, &facility, cache.FacilityTTL, func() error {
		defer r.metrics.TrackQuery("select", "facilities")()
		err := readDB(r.db).WithContext(ctx).
			Preload("Region").
			Preload("District").
			Preload("Subcounty").
			First(&facility, id).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Facility", id)
			}
			return err
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return &facility, nil
}

func (r *facilityRepository) GetByCode(ctx context.Context, code string) (*models.Facility, error) {
	var facility models.Facility
	defer r.metrics.TrackQuery("select", "facilities")()
	err := readDB(r.db).WithContext(ctx).
		Preload("Region").
		Preload("District").
		Preload("Subcounty").
		Where("code = ?", code).
		First(&facility).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Facility", code)
		}
		return nil, err
	}
	return &facility, nil
}

func (r *facilityRepository) List(ctx context.Context, filter FacilityFilter) ([]models.Facility, int64, error) {
	defer r.metrics.TrackQuery("select", "facilities")()

	query := readDB(r.db).WithContext(ctx).Model(&models.Facility{})
	if filter.Name != "" {
		query = query.Where("LOWER(name) LIKE LOWER(?)", "%"+filter.Name+"%")
	}
	if filter.Level != "" {
		query = query.Where("level = ?", filter.Level)
	}
	if filter.DistrictID != 0 {
		query = query.Where("district_id = ?", filter.DistrictID)
	}
	if filter.Active != nil {
		query = query.Where("active = ?", *filter.Active)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var facilities []models.Facility
	err := query.
		Preload("Region").
		Preload("District").
		Preload("Subcounty").
		Order("name ASC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&facilities).Error
	if err != nil {
		return nil, 0, err
	}
	return facilities, total, nil
}

func (r *facilityRepository) Update(ctx context.Context, facility *models.Facility) error {
	defer r.metrics.TrackQuery("update", "facilities")()
	if err := r.db.WithContext(ctx).Save(facility).Error; err != nil {
		return err
	}
	cache.InvalidateFacility(ctx, facility.ID)
	return nil
}

func (r *facilityRepository) Deactivate(ctx context.Context, id uint) error {
	defer r.metrics.TrackQuery("update", "facilities")()
	result := r.db.WithContext(ctx).
		Model(&models.Facility{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"active":  false,
			"version": gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Facility", id)
	}
	cache.InvalidateFacility(ctx, id)
	return nil
}
