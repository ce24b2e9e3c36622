package seed

import (
	"fmt"
	"time"

	"mfl/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Factory generates realistic synthetic records for development databases.
type Factory struct {
	db *gorm.DB
}

// NewFactory creates a seeded factory.
func NewFactory(db *gorm.DB) *Factory {
	gofakeit.Seed(time.Now().UnixNano())
	return &Factory{db: db}
}

var facilityLevels = []string{"HC II", "HC III", "HC IV", "General Hospital", "Regional Referral Hospital"}

var facilityOwnerships = []string{"Government", "PNFP", "Private"}

var facilityServices = []string{
	"OPD", "Maternity", "Laboratory", "Immunization", "ART Clinic",
	"Dental", "Radiology", "Ambulance", "Theatre", "Pharmacy",
}

// BuildFacility builds one unsaved facility placed in a random seeded
// district. Codes use a high range so they never collide with codes minted
// from approved requests.
func (f *Factory) BuildFacility(seq int, district *models.District) *models.Facility {
	level := facilityLevels[gofakeit.Number(0, len(facilityLevels)-1)]

	services := make([]string, 0, 4)
	for _, svc := range facilityServices {
		if gofakeit.Bool() {
			services = append(services, svc)
		}
	}
	if len(services) == 0 {
		services = append(services, "OPD")
	}

	var subcountyID *uint
	var subcounty models.Subcounty
	err := f.db.Where("district_id = ?", district.ID).Order("RANDOM()").First(&subcounty).Error
	if err == nil {
		subcountyID = &subcounty.ID
	}

	return &models.Facility{
		Code:         fmt.Sprintf("MFL-9%05d", seq),
		Name:         fmt.Sprintf("%s %s", gofakeit.City(), level),
		Level:        level,
		Ownership:    facilityOwnerships[gofakeit.Number(0, len(facilityOwnerships)-1)],
		Authority:    "Ministry of Health",
		RegionID:     district.RegionID,
		DistrictID:   district.ID,
		SubcountyID:  subcountyID,
		Address:      gofakeit.Street(),
		Latitude:     fmt.Sprintf("%.4f", gofakeit.Float64Range(-1.5, 4.2)),
		Longitude:    fmt.Sprintf("%.4f", gofakeit.Float64Range(29.5, 35.0)),
		BedCapacity:  gofakeit.Number(0, 400),
		Services:     services,
		ContactPhone: gofakeit.Phone(),
		ContactEmail: gofakeit.Email(),
		Active:       true,
		Version:      1,
	}
}

// CreateFacilities persists n synthetic facilities spread across the seeded
// districts.
func (f *Factory) CreateFacilities(n int) ([]*models.Facility, error) {
	var districts []models.District
	if err := f.db.Find(&districts).Error; err != nil {
		return nil, err
	}
	if len(districts) == 0 {
		return nil, fmt.Errorf("no districts seeded")
	}

	facilities := make([]*models.Facility, 0, n)
	for i := 0; i < n; i++ {
		district := districts[gofakeit.Number(0, len(districts)-1)]
		facility := f.BuildFacility(i+1, &district)
		if err := f.db.Create(facility).Error; err != nil {
			return nil, err
		}
		facilities = append(facilities, facility)
	}
	return facilities, nil
}

// CreateRequests persists n pending requests from the given submitter. A
// mix of additions and updates, all left in the initiated state so reviewers
// have a queue to work through.
func (f *Factory) CreateRequests(n int, submitter *models.User, facilities []*models.Facility) error {
	for i := 0; i < n; i++ {
		var request *models.FacilityRequest
		if len(facilities) > 0 && i%3 == 0 {
			request = f.buildUpdateRequest(submitter, facilities[gofakeit.Number(0, len(facilities)-1)])
		} else {
			request = f.buildAdditionRequest(submitter)
		}
		if request == nil {
			continue
		}

		err := f.db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(request).Error; err != nil {
				return err
			}
			entry := models.StatusHistoryEntry{
				RequestID: request.ID,
				Status:    models.StatusInitiated,
				Comments:  "Request initiated",
			}
			return tx.Create(&entry).Error
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (f *Factory) buildAdditionRequest(submitter *models.User) *models.FacilityRequest {
	var district models.District
	if err := f.db.Preload("Region").Order("RANDOM()").First(&district).Error; err != nil {
		return nil
	}

	level := facilityLevels[gofakeit.Number(0, 2)]
	payload := models.FacilityPayload{
		Name:         fmt.Sprintf("%s %s", gofakeit.City(), level),
		Level:        level,
		Ownership:    facilityOwnerships[gofakeit.Number(0, len(facilityOwnerships)-1)],
		Authority:    "Ministry of Health",
		Region:       district.Region.Name,
		District:     district.Name,
		Address:      gofakeit.Street(),
		Latitude:     fmt.Sprintf("%.4f", gofakeit.Float64Range(-1.5, 4.2)),
		Longitude:    fmt.Sprintf("%.4f", gofakeit.Float64Range(29.5, 35.0)),
		BedCapacity:  gofakeit.Number(0, 60),
		Services:     []string{"OPD", "Immunization"},
		ContactPhone: gofakeit.Phone(),
		ContactEmail: gofakeit.Email(),
	}

	return &models.FacilityRequest{
		Reference:         uuid.NewString(),
		RequestType:       models.RequestTypeAddition,
		Status:            models.StatusInitiated,
		Payload:           payload,
		DistrictID:        &district.ID,
		RequestedByUserID: submitter.ID,
		RequestedByRole:   submitter.Role,
	}
}

func (f *Factory) buildUpdateRequest(submitter *models.User, facility *models.Facility) *models.FacilityRequest {
	if err := f.db.Preload("Region").Preload("District").Preload("Subcounty").
		First(facility, facility.ID).Error; err != nil {
		return nil
	}

	payload := facility.AsPayload()
	payload.BedCapacity = facility.BedCapacity + gofakeit.Number(5, 40)
	payload.ContactPhone = gofakeit.Phone()

	return &models.FacilityRequest{
		Reference:         uuid.NewString(),
		RequestType:       models.RequestTypeUpdate,
		Status:            models.StatusInitiated,
		Payload:           payload,
		FacilityID:        &facility.ID,
		DistrictID:        &facility.DistrictID,
		RequestedByUserID: submitter.ID,
		RequestedByRole:   submitter.Role,
	}
}
