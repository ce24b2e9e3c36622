package server

import (
	"mfl/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetRegions handles GET /api/regions
// @Summary List regions
// @Tags admin-units
// @Produce json
// @Success 200 {object} object{regions=[]models.Region}
// @Router /regions [get]
func (s *Server) GetRegions(c *fiber.Ctx) error {
	regions, err := s.facilities.ListRegions(c.Context())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"regions": regions})
}

// GetDistricts handles GET /api/districts
// @Summary List districts with their regions
// @Tags admin-units
// @Produce json
// @Success 200 {object} object{districts=[]models.District}
// @Router /districts [get]
func (s *Server) GetDistricts(c *fiber.Ctx) error {
	districts, err := s.facilities.ListDistricts(c.Context())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"districts": districts})
}

// GetSubcounties handles GET /api/districts/:id/subcounties
// @Summary List a district's subcounties
// @Tags admin-units
// @Produce json
// @Param id path integer true "District ID"
// @Success 200 {object} object{subcounties=[]models.Subcounty}
// @Failure 404 {object} models.ErrorResponse
// @Router /districts/{id}/subcounties [get]
func (s *Server) GetSubcounties(c *fiber.Ctx) error {
	districtID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	subcounties, err := s.facilities.ListSubcounties(c.Context(), districtID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"subcounties": subcounties})
}

// CreateRegion handles POST /api/admin/regions
// @Summary Create a region
// @Tags admin-units
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param region body object{name=string} true "Region"
// @Success 201 {object} models.Region
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /admin/regions [post]
func (s *Server) CreateRegion(c *fiber.Ctx) error {
	var body struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&body); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	region, err := s.facilities.CreateRegion(c.Context(), body.Name)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(region)
}

// CreateDistrict handles POST /api/admin/districts
// @Summary Create a district under a region
// @Tags admin-units
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param district body object{name=string,region_id=integer} true "District"
// @Success 201 {object} models.District
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /admin/districts [post]
func (s *Server) CreateDistrict(c *fiber.Ctx) error {
	var body struct {
		Name     string `json:"name"`
		RegionID uint   `json:"region_id"`
	}
	if err := c.BodyParser(&body); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	district, err := s.facilities.CreateDistrict(c.Context(), body.Name, body.RegionID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(district)
}

// CreateSubcounty handles POST /api/admin/subcounties
// @Summary Create a subcounty under a district
// @Tags admin-units
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param subcounty body object{name=string,district_id=integer} true "Subcounty"
// @Success 201 {object} models.Subcounty
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /admin/subcounties [post]
func (s *Server) CreateSubcounty(c *fiber.Ctx) error {
	var body struct {
		Name       string `json:"name"`
		DistrictID uint   `json:"district_id"`
	}
	if err := c.BodyParser(&body); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	subcounty, err := s.facilities.CreateSubcounty(c.Context(), body.Name, body.DistrictID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(subcounty)
}
