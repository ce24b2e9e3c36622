package service

import (
	"testing"

	"mfl/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func basePayload() models.FacilityPayload {
	return models.FacilityPayload{
		Name:        "Nakawa Health Centre III",
		Level:       "HC III",
		Ownership:   "Government",
		Authority:   "Ministry of Health",
		Region:      "Central",
		District:    "Kampala",
		Subcounty:   "Nakawa",
		Address:     "Plot 12, Port Bell Road",
		Latitude:    "0.3321",
		Longitude:   "32.6170",
		BedCapacity: 24,
		Services:    []string{"OPD", "Maternity", "Lab"},
	}
}

func TestDiffService_IdenticalPayloadsProduceNoChanges(t *testing.T) {
	t.Parallel()

	diffs := NewDiffService()
	baseline := basePayload()
	proposed := basePayload()

	diff := diffs.Compute(&baseline, proposed)
	assert.False(t, diff.BaselineMissing)
	assert.Empty(t, diff.Changes)
	assert.Empty(t, diff.ServicesAdded)
	assert.Empty(t, diff.ServicesRemoved)
}

func TestDiffService_NormalizedStringsAreNotChanges(t *testing.T) {
	t.Parallel()

	diffs := NewDiffService()
	baseline := basePayload()
	proposed := basePayload()
	proposed.Name = "  nakawa health centre iii "
	proposed.District = "KAMPALA"
	proposed.Services = []string{"opd", " MATERNITY", "Lab "}

	diff := diffs.Compute(&baseline, proposed)
	assert.Empty(t, diff.Changes)
	assert.Empty(t, diff.ServicesAdded)
	assert.Empty(t, diff.ServicesRemoved)
}

func TestDiffService_ScalarAndCapacityChanges(t *testing.T) {
	t.Parallel()

	diffs := NewDiffService()
	baseline := basePayload()
	proposed := basePayload()
	proposed.Level = "HC IV"
	proposed.BedCapacity = 48

	diff := diffs.Compute(&baseline, proposed)
	require.Len(t, diff.Changes, 2)

	assert.Equal(t, "level", diff.Changes[0].Field)
	assert.Equal(t, "HC III", diff.Changes[0].Baseline)
	assert.Equal(t, "HC IV", diff.Changes[0].Proposed)

	assert.Equal(t, "bed_capacity", diff.Changes[1].Field)
	assert.Equal(t, "24", diff.Changes[1].Baseline)
	assert.Equal(t, "48", diff.Changes[1].Proposed)
}

func TestDiffService_GeolocationIsOnePairedChange(t *testing.T) {
	t.Parallel()

	diffs := NewDiffService()
	baseline := basePayload()
	proposed := basePayload()
	proposed.Longitude = "32.9000"

	diff := diffs.Compute(&baseline, proposed)
	require.Len(t, diff.Changes, 1)
	assert.Equal(t, "geolocation", diff.Changes[0].Field)
	assert.Equal(t, "0.3321, 32.6170", diff.Changes[0].Baseline)
	assert.Equal(t, "0.3321, 32.9000", diff.Changes[0].Proposed)
}

func TestDiffService_ServiceSetChanges(t *testing.T) {
	t.Parallel()

	diffs := NewDiffService()
	baseline := basePayload()
	proposed := basePayload()
	proposed.Services = []string{"OPD", "Lab", "Dental", "Ambulance"}

	diff := diffs.Compute(&baseline, proposed)
	assert.Empty(t, diff.Changes)
	assert.Equal(t, []string{"Ambulance", "Dental"}, diff.ServicesAdded)
	assert.Equal(t, []string{"Maternity"}, diff.ServicesRemoved)
}

func TestDiffService_MissingBaselineIsTagged(t *testing.T) {
	t.Parallel()

	diffs := NewDiffService()
	proposed := basePayload()

	diff := diffs.Compute(nil, proposed)
	assert.True(t, diff.BaselineMissing)
	// The absence is reported on its own, not as a wall of field changes
	assert.Empty(t, diff.Changes)
	assert.Empty(t, diff.ServicesAdded)
	assert.Empty(t, diff.ServicesRemoved)
}

func TestDiffService_ComputeIsIdempotent(t *testing.T) {
	t.Parallel()

	diffs := NewDiffService()
	baseline := basePayload()
	proposed := basePayload()
	proposed.Name = "Renamed Facility"
	proposed.Services = []string{"OPD"}

	first := diffs.Compute(&baseline, proposed)
	second := diffs.Compute(&baseline, proposed)
	assert.Equal(t, first, second)
}
