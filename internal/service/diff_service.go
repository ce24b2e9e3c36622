package service

import (
	"sort"
	"strconv"
	"strings"

	"mfl/internal/models"
)

// FieldChange is one reviewable difference between the published facility
// and a request's proposed payload.
type FieldChange struct {
	Field    string `json:"field"`
	Baseline string `json:"baseline"`
	Proposed string `json:"proposed"`
}

// RequestDiff is what reviewers see when deciding on an update request.
// BaselineMissing distinguishes "no published facility to compare against"
// from "identical payloads"; when it is true no per-field comparison is
// reported.
type RequestDiff struct {
	BaselineMissing bool          `json:"baseline_missing"`
	Changes         []FieldChange `json:"changes"`
	ServicesAdded   []string      `json:"services_added,omitempty"`
	ServicesRemoved []string      `json:"services_removed,omitempty"`
}

// DiffService computes payload diffs for reviewer screens. It is pure: the
// same inputs always yield the same diff, and computing one has no side
// effects on request or facility state.
type DiffService struct{}

// NewDiffService returns a new DiffService.
func NewDiffService() *DiffService {
	return &DiffService{}
}

// scalarFields lists compared payload fields in display order. Latitude and
// longitude are handled separately as one geolocation pair.
var scalarFields = []struct {
	name string
	get  func(p models.FacilityPayload) string
}{
	{"name", func(p models.FacilityPayload) string { return p.Name }},
	{"level", func(p models.FacilityPayload) string { return p.Level }},
	{"ownership", func(p models.FacilityPayload) string { return p.Ownership }},
	{"authority", func(p models.FacilityPayload) string { return p.Authority }},
	{"region", func(p models.FacilityPayload) string { return p.Region }},
	{"district", func(p models.FacilityPayload) string { return p.District }},
	{"subcounty", func(p models.FacilityPayload) string { return p.Subcounty }},
	{"address", func(p models.FacilityPayload) string { return p.Address }},
	{"contact_phone", func(p models.FacilityPayload) string { return p.ContactPhone }},
	{"contact_email", func(p models.FacilityPayload) string { return p.ContactEmail }},
}

// Compute diffs a proposed payload against the published baseline. A nil
// baseline marks the absence case rather than diffing against zero values
// blindly; the caller passes nil when the target facility no longer exists
// (or never did), and no field-level comparison is produced then.
func (s *DiffService) Compute(baseline *models.FacilityPayload, proposed models.FacilityPayload) RequestDiff {
	if baseline == nil {
		return RequestDiff{BaselineMissing: true}
	}

	diff := RequestDiff{}
	base := *baseline

	for _, f := range scalarFields {
		b, p := f.get(base), f.get(proposed)
		if !equalNormalized(b, p) {
			diff.Changes = append(diff.Changes, FieldChange{
				Field:    f.name,
				Baseline: strings.TrimSpace(b),
				Proposed: strings.TrimSpace(p),
			})
		}
	}

	// Coordinates change together or not at all; reviewers see one entry.
	if !equalNormalized(base.Latitude, proposed.Latitude) || !equalNormalized(base.Longitude, proposed.Longitude) {
		diff.Changes = append(diff.Changes, FieldChange{
			Field:    "geolocation",
			Baseline: formatCoordinates(base.Latitude, base.Longitude),
			Proposed: formatCoordinates(proposed.Latitude, proposed.Longitude),
		})
	}

	if base.BedCapacity != proposed.BedCapacity {
		diff.Changes = append(diff.Changes, FieldChange{
			Field:    "bed_capacity",
			Baseline: strconv.Itoa(base.BedCapacity),
			Proposed: strconv.Itoa(proposed.BedCapacity),
		})
	}

	diff.ServicesAdded, diff.ServicesRemoved = diffServices(base.Services, proposed.Services)

	return diff
}

func equalNormalized(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func formatCoordinates(lat, lon string) string {
	lat, lon = strings.TrimSpace(lat), strings.TrimSpace(lon)
	if lat == "" && lon == "" {
		return ""
	}
	return lat + ", " + lon
}

// diffServices compares the service sets case-insensitively and returns the
// additions and removals sorted for stable output.
func diffServices(baseline, proposed []string) (added, removed []string) {
	baseSet := normalizeSet(baseline)
	propSet := normalizeSet(proposed)

	for key, display := range propSet {
		if _, ok := baseSet[key]; !ok {
			added = append(added, display)
		}
	}
	for key, display := range baseSet {
		if _, ok := propSet[key]; !ok {
			removed = append(removed, display)
		}
	}

	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}

func normalizeSet(values []string) map[string]string {
	out := make(map[string]string, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		out[strings.ToLower(trimmed)] = trimmed
	}
	return out
}
