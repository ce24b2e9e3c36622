package server

import (
	"mfl/internal/models"
	"mfl/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetFacilities handles GET /api/facilities
// @Summary Browse the published registry
// @Description List published facilities. Deactivated facilities are hidden unless include_inactive is set.
// @Tags facilities
// @Produce json
// @Param name query string false "Filter by name substring"
// @Param level query string false "Filter by facility level"
// @Param district_id query integer false "Filter by district"
// @Param include_inactive query boolean false "Also return deactivated facilities"
// @Param limit query integer false "Page size (max 100)"
// @Param offset query integer false "Page offset"
// @Success 200 {object} object{facilities=[]models.Facility,total=integer}
// @Router /facilities [get]
func (s *Server) GetFacilities(c *fiber.Ctx) error {
	page := parsePagination(c, 20)

	facilities, total, err := s.facilities.ListFacilities(c.Context(), service.ListFacilitiesInput{
		Name:            c.Query("name"),
		Level:           c.Query("level"),
		DistrictID:      uint(c.QueryInt("district_id", 0)),
		IncludeInactive: c.QueryBool("include_inactive", false),
		Limit:           page.Limit,
		Offset:          page.Offset,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"facilities": facilities,
		"total":      total,
		"limit":      page.Limit,
		"offset":     page.Offset,
	})
}

// GetFacility handles GET /api/facilities/:id
// @Summary Get one published facility
// @Tags facilities
// @Produce json
// @Param id path integer true "Facility ID"
// @Success 200 {object} models.Facility
// @Failure 404 {object} models.ErrorResponse
// @Router /facilities/{id} [get]
func (s *Server) GetFacility(c *fiber.Ctx) error {
	facilityID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	facility, err := s.facilities.GetFacility(c.Context(), facilityID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(facility)
}

// GetFacilityByCode handles GET /api/facilities/code/:code
// @Summary Get one published facility by registry code
// @Tags facilities
// @Produce json
// @Param code path string true "Registry code, e.g. MFL-000042"
// @Success 200 {object} models.Facility
// @Failure 404 {object} models.ErrorResponse
// @Router /facilities/code/{code} [get]
func (s *Server) GetFacilityByCode(c *fiber.Ctx) error {
	code := c.Params("code")
	if code == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid code"))
	}

	facility, err := s.facilities.GetFacilityByCode(c.Context(), code)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(facility)
}
