package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"mfl/internal/models"
)

// facility code format: MFL- followed by at least four digits.
var facilityCodeRegex = regexp.MustCompile(`^MFL-\d{4,}$`)

// ValidateFacilityCode checks the published facility code format.
func ValidateFacilityCode(code string) error {
	if !facilityCodeRegex.MatchString(code) {
		return fmt.Errorf("facility code must match MFL-NNNN")
	}
	return nil
}

// ValidateRequestInput checks a submission before it enters the workflow.
// The rules depend on the request type: additions carry a full payload and
// no target facility, updates and deactivations must name their target.
func ValidateRequestInput(requestType models.RequestType, facilityID *uint, payload models.FacilityPayload) error {
	if !requestType.Valid() {
		return fmt.Errorf("unknown request type %q", requestType)
	}

	switch requestType {
	case models.RequestTypeAddition:
		if facilityID != nil {
			return fmt.Errorf("addition requests must not reference an existing facility")
		}
		return validatePayloadFields(payload, true)
	case models.RequestTypeUpdate:
		if facilityID == nil {
			return fmt.Errorf("update requests must reference the facility being changed")
		}
		return validatePayloadFields(payload, true)
	case models.RequestTypeDeactivation:
		if facilityID == nil {
			return fmt.Errorf("deactivation requests must reference the facility being retired")
		}
		// Deactivations carry no payload worth validating
		return nil
	}
	return nil
}

func validatePayloadFields(p models.FacilityPayload, full bool) error {
	if full {
		for _, required := range []struct{ name, value string }{
			{"name", p.Name},
			{"level", p.Level},
			{"region", p.Region},
			{"district", p.District},
		} {
			if strings.TrimSpace(required.value) == "" {
				return fmt.Errorf("%s is required", required.name)
			}
		}
	}

	if p.BedCapacity < 0 {
		return fmt.Errorf("bed capacity cannot be negative")
	}

	if p.ContactEmail != "" {
		if err := ValidateEmail(p.ContactEmail); err != nil {
			return fmt.Errorf("contact email: %w", err)
		}
	}

	return validateCoordinates(p.Latitude, p.Longitude)
}

// validateCoordinates accepts either no coordinates or a complete decimal
// pair within WGS84 bounds. Values stay strings end to end; parsing here is
// only a range check.
func validateCoordinates(lat, lon string) error {
	lat, lon = strings.TrimSpace(lat), strings.TrimSpace(lon)
	if lat == "" && lon == "" {
		return nil
	}
	if lat == "" || lon == "" {
		return fmt.Errorf("latitude and longitude must be provided together")
	}

	latVal, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return fmt.Errorf("invalid latitude %q", lat)
	}
	lonVal, err := strconv.ParseFloat(lon, 64)
	if err != nil {
		return fmt.Errorf("invalid longitude %q", lon)
	}
	if latVal < -90 || latVal > 90 {
		return fmt.Errorf("latitude out of range")
	}
	if lonVal < -180 || lonVal > 180 {
		return fmt.Errorf("longitude out of range")
	}
	return nil
}
