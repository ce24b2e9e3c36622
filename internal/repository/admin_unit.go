package repository

import (
	"context"
	"errors"
	"fmt"

	"mfl/internal/cache"
	"mfl/internal/models"

	"gorm.io/gorm"
)

// ResolvedUnits carries the administrative unit IDs a payload's unit names
// resolve to. SubcountyID is nil when the payload names no subcounty.
type ResolvedUnits struct {
	RegionID    uint
	DistrictID  uint
	SubcountyID *uint
}

// AdminUnitRepository defines persistence operations for the administrative
// hierarchy (regions, districts, subcounties).
type AdminUnitRepository interface {
	ListRegions(ctx context.Context) ([]models.Region, error)
	ListDistricts(ctx context.Context) ([]models.District, error)
	ListSubcounties(ctx context.Context, districtID uint) ([]models.Subcounty, error)
	GetDistrictByID(ctx context.Context, id uint) (*models.District, error)
	FindDistrictByName(ctx context.Context, name string) (*models.District, error)
	CreateRegion(ctx context.Context, region *models.Region) error
	CreateDistrict(ctx context.Context, district *models.District) error
	CreateSubcounty(ctx context.Context, subcounty *models.Subcounty) error
	// ResolveUnits maps a payload's unit names to IDs. It runs against the
	// given db handle so publish can resolve inside its transaction.
	ResolveUnits(db *gorm.DB, payload models.FacilityPayload) (*ResolvedUnits, error)
}

type adminUnitRepository struct {
	db *gorm.DB
}

// NewAdminUnitRepository returns a new AdminUnitRepository implementation.
func NewAdminUnitRepository(db *gorm.DB) AdminUnitRepository {
	return &adminUnitRepository{db: db}
}

func (r *adminUnitRepository) ListRegions(ctx context.Context) ([]models.Region, error) {
	var regions []models.Region
	err := cache.Aside(ctx, cache.RegionListKey(), &regions, cache.AdminUnitTTL, func() error {
		return readDB(r.db).WithContext(ctx).Order("name ASC").Find(&regions).Error
	})
	return regions, err
}

func (r *adminUnitRepository) ListDistricts(ctx context.Context) ([]models.District, error) {
	var districts []models.District
	err := cache.Aside(ctx, cache.DistrictListKey(), &districts, cache.AdminUnitTTL, func() error {
		return readDB(r.db).WithContext(ctx).Preload("Region").Order("name ASC").Find(&districts).Error
	})
	return districts, err
}

func (r *adminUnitRepository) ListSubcounties(ctx context.Context, districtID uint) ([]models.Subcounty, error) {
	var subcounties []models.Subcounty
	key := cache.SubcountyListKey(districtID)
	err := cache.Aside(ctx, key, &subcounties, cache.AdminUnitTTL, func() error {
		return readDB(r.db).WithContext(ctx).
			Where("district_id = ?", districtID).
			Order("name ASC").
			Find(&subcounties).Error
	})
	return subcounties, err
}

func (r *adminUnitRepository) GetDistrictByID(ctx context.Context, id uint) (*models.District, error) {
	var district models.District
	if err := readDB(r.db).WithContext(ctx).Preload("Region").First(&district, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("District", id)
		}
		return nil, err
	}
	return &district, nil
}

func (r *adminUnitRepository) CreateRegion(ctx context.Context, region *models.Region) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Region{}).
		Where("LOWER(name) = LOWER(?)", region.Name).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return models.NewConflictError(fmt.Sprintf("region %q already exists", region.Name))
	}
	if err := r.db.WithContext(ctx).Create(region).Error; err != nil {
		return err
	}
	cache.InvalidateAdminUnits(ctx)
	return nil
}

func (r *adminUnitRepository) CreateDistrict(ctx context.Context, district *models.District) error {
	if err := r.db.WithContext(ctx).First(&models.Region{}, district.RegionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewValidationError(fmt.Sprintf("unknown region %d", district.RegionID))
		}
		return err
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&models.District{}).
		Where("region_id = ? AND LOWER(name) = LOWER(?)", district.RegionID, district.Name).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return models.NewConflictError(fmt.Sprintf("district %q already exists in this region", district.Name))
	}
	if err := r.db.WithContext(ctx).Create(district).Error; err != nil {
		return err
	}
	cache.InvalidateAdminUnits(ctx)
	return nil
}

func (r *adminUnitRepository) CreateSubcounty(ctx context.Context, subcounty *models.Subcounty) error {
	if err := r.db.WithContext(ctx).First(&models.District{}, subcounty.DistrictID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewValidationError(fmt.Sprintf("unknown district %d", subcounty.DistrictID))
		}
		return err
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Subcounty{}).
		Where("district_id = ? AND LOWER(name) = LOWER(?)", subcounty.DistrictID, subcounty.Name).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return models.NewConflictError(fmt.Sprintf("subcounty %q already exists in this district", subcounty.Name))
	}
	if err := r.db.WithContext(ctx).Create(subcounty).Error; err != nil {
		return err
	}
	cache.Invalidate(ctx, cache.SubcountyListKey(subcounty.DistrictID))
	return nil
}

func (r *adminUnitRepository) FindDistrictByName(ctx context.Context, name string) (*models.District, error) {
	var district models.District
	err := readDB(r.db).WithContext(ctx).
		Preload("Region").
		Where("LOWER(name) = LOWER(?)", name).
		First(&district).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewValidationError(fmt.Sprintf("unknown district %q", name))
		}
		return nil, err
	}
	return &district, nil
}

func (r *adminUnitRepository) ResolveUnits(db *gorm.DB, payload models.FacilityPayload) (*ResolvedUnits, error) {
	var region models.Region
	if err := db.Where("LOWER(name) = LOWER(?)", payload.Region).First(&region).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewValidationError(fmt.Sprintf("unknown region %q", payload.Region))
		}
		return nil, err
	}

	var district models.District
	err := db.Where("region_id = ? AND LOWER(name) = LOWER(?)", region.ID, payload.District).
		First(&district).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewValidationError(
				fmt.Sprintf("unknown district %q in region %q", payload.District, payload.Region))
		}
		return nil, err
	}

	resolved := &ResolvedUnits{RegionID: region.ID, DistrictID: district.ID}

	if payload.Subcounty != "" {
		var subcounty models.Subcounty
		err := db.Where("district_id = ? AND LOWER(name) = LOWER(?)", district.ID, payload.Subcounty).
			First(&subcounty).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, models.NewValidationError(
					fmt.Sprintf("unknown subcounty %q in district %q", payload.Subcounty, payload.District))
			}
			return nil, err
		}
		resolved.SubcountyID = &subcounty.ID
	}

	return resolved, nil
}
