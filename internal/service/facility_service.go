// Package service contains the application's business logic.
package service

import (
	"context"
	"strings"

	"mfl/internal/models"
	"mfl/internal/repository"
)

// FacilityService serves the published registry: facility lookups and the
// administrative unit hierarchy. Facilities change only through approved
// requests; administrative units are maintained here by administrators.
type FacilityService struct {
	facilities repository.FacilityRepository
	adminUnits repository.AdminUnitRepository
}

// NewFacilityService returns a new FacilityService.
func NewFacilityService(facilities repository.FacilityRepository, adminUnits repository.AdminUnitRepository) *FacilityService {
	return &FacilityService{facilities: facilities, adminUnits: adminUnits}
}

// ListFacilitiesInput narrows a registry listing.
type ListFacilitiesInput struct {
	Name       string
	Level      string
	DistrictID uint
	// IncludeInactive also returns deactivated facilities; the default
	// view is the current registry, not its full history.
	IncludeInactive bool
	Limit           int
	Offset          int
}

// ListFacilities returns registry entries matching the input with a total.
func (s *FacilityService) ListFacilities(ctx context.Context, in ListFacilitiesInput) ([]models.Facility, int64, error) {
	filter := repository.FacilityFilter{
		Name:       in.Name,
		Level:      in.Level,
		DistrictID: in.DistrictID,
		Limit:      in.Limit,
		Offset:     in.Offset,
	}
	if !in.IncludeInactive {
		active := true
		filter.Active = &active
	}
	return s.facilities.List(ctx, filter)
}

// GetFacility returns one published facility by ID.
func (s *FacilityService) GetFacility(ctx context.Context, id uint) (*models.Facility, error) {
	return s.facilities.GetByID(ctx, id)
}

// GetFacilityByCode returns one published facility by its registry code.
func (s *FacilityService) GetFacilityByCode(ctx context.Context, code string) (*models.Facility, error) {
	return s.facilities.GetByCode(ctx, code)
}

// ListRegions returns all regions.
func (s *FacilityService) ListRegions(ctx context.Context) ([]models.Region, error) {
	return s.adminUnits.ListRegions(ctx)
}

// ListDistricts returns all districts with their regions.
func (s *FacilityService) ListDistricts(ctx context.Context) ([]models.District, error) {
	return s.adminUnits.ListDistricts(ctx)
}

// ListSubcounties returns a district's subcounties.
func (s *FacilityService) ListSubcounties(ctx context.Context, districtID uint) ([]models.Subcounty, error) {
	if _, err := s.adminUnits.GetDistrictByID(ctx, districtID); err != nil {
		return nil, err
	}
	return s.adminUnits.ListSubcounties(ctx, districtID)
}

// CreateRegion adds a region to the administrative hierarchy.
func (s *FacilityService) CreateRegion(ctx context.Context, name string) (*models.Region, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, models.NewValidationError("region name is required")
	}
	region := &models.Region{Name: name}
	if err := s.adminUnits.CreateRegion(ctx, region); err != nil {
		return nil, err
	}
	return region, nil
}

// CreateDistrict adds a district under an existing region.
func (s *FacilityService) CreateDistrict(ctx context.Context, name string, regionID uint) (*models.District, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, models.NewValidationError("district name is required")
	}
	district := &models.District{Name: name, RegionID: regionID}
	if err := s.adminUnits.CreateDistrict(ctx, district); err != nil {
		return nil, err
	}
	return district, nil
}

// CreateSubcounty adds a subcounty under an existing district.
func (s *FacilityService) CreateSubcounty(ctx context.Context, name string, districtID uint) (*models.Subcounty, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, models.NewValidationError("subcounty name is required")
	}
	subcounty := &models.Subcounty{Name: name, DistrictID: districtID}
	if err := s.adminUnits.CreateSubcounty(ctx, subcounty); err != nil {
		return nil, err
	}
	return subcounty, nil
}
