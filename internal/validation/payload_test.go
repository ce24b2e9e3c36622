package validation

import (
	"testing"

	"mfl/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestValidateFacilityCode(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		code    string
		wantErr bool
	}{
		{"Valid Six Digits", "MFL-000042", false},
		{"Valid Four Digits", "MFL-1234", false},
		{"Too Few Digits", "MFL-123", true},
		{"Missing Prefix", "000042", true},
		{"Lowercase Prefix", "mfl-000042", true},
		{"Letters In Number", "MFL-00A042", true},
		{"Trailing Garbage", "MFL-000042X", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFacilityCode(tt.code)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateRequestInput(t *testing.T) {
	t.Parallel()

	validPayload := models.FacilityPayload{
		Name:     "Nakawa Health Centre III",
		Level:    "HC III",
		Region:   "Central",
		District: "Kampala",
	}
	facilityID := uint(7)

	tests := []struct {
		name        string
		requestType models.RequestType
		facilityID  *uint
		payload     models.FacilityPayload
		wantErr     string
	}{
		{
			name:        "Valid Addition",
			requestType: models.RequestTypeAddition,
			payload:     validPayload,
		},
		{
			name:        "Valid Update",
			requestType: models.RequestTypeUpdate,
			facilityID:  &facilityID,
			payload:     validPayload,
		},
		{
			name:        "Valid Deactivation Without Payload",
			requestType: models.RequestTypeDeactivation,
			facilityID:  &facilityID,
		},
		{
			name:        "Unknown Type",
			requestType: models.RequestType("merger"),
			payload:     validPayload,
			wantErr:     "unknown request type",
		},
		{
			name:        "Addition With Target Facility",
			requestType: models.RequestTypeAddition,
			facilityID:  &facilityID,
			payload:     validPayload,
			wantErr:     "must not reference",
		},
		{
			name:        "Update Without Target Facility",
			requestType: models.RequestTypeUpdate,
			payload:     validPayload,
			wantErr:     "must reference",
		},
		{
			name:        "Deactivation Without Target Facility",
			requestType: models.RequestTypeDeactivation,
			wantErr:     "must reference",
		},
		{
			name:        "Missing Name",
			requestType: models.RequestTypeAddition,
			payload: models.FacilityPayload{
				Level: "HC III", Region: "Central", District: "Kampala",
			},
			wantErr: "name is required",
		},
		{
			name:        "Blank District",
			requestType: models.RequestTypeAddition,
			payload: models.FacilityPayload{
				Name: "Clinic", Level: "HC II", Region: "Central", District: "   ",
			},
			wantErr: "district is required",
		},
		{
			name:        "Negative Bed Capacity",
			requestType: models.RequestTypeAddition,
			payload: func() models.FacilityPayload {
				p := validPayload
				p.BedCapacity = -1
				return p
			}(),
			wantErr: "bed capacity",
		},
		{
			name:        "Bad Contact Email",
			requestType: models.RequestTypeAddition,
			payload: func() models.FacilityPayload {
				p := validPayload
				p.ContactEmail = "not-an-email"
				return p
			}(),
			wantErr: "contact email",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRequestInput(tt.requestType, tt.facilityID, tt.payload)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateCoordinates(t *testing.T) {
	t.Parallel()

	base := models.FacilityPayload{
		Name:     "Gulu Regional Referral",
		Level:    "Hospital",
		Region:   "Northern",
		District: "Gulu",
	}

	tests := []struct {
		name     string
		lat, lon string
		wantErr  string
	}{
		{name: "Both Empty"},
		{name: "Valid Pair", lat: "2.7746", lon: "32.2990"},
		{name: "Negative Latitude", lat: "-1.2500", lon: "30.0000"},
		{name: "Latitude Only", lat: "2.7746", wantErr: "provided together"},
		{name: "Longitude Only", lon: "32.2990", wantErr: "provided together"},
		{name: "Non Numeric Latitude", lat: "north", lon: "32.0", wantErr: "invalid latitude"},
		{name: "Latitude Out Of Range", lat: "91.0", lon: "32.0", wantErr: "latitude out of range"},
		{name: "Longitude Out Of Range", lat: "2.0", lon: "181.0", wantErr: "longitude out of range"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base
			p.Latitude, p.Longitude = tt.lat, tt.lon
			err := ValidateRequestInput(models.RequestTypeAddition, nil, p)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
