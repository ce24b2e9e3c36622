package server

import (
	"mfl/internal/models"
	"mfl/internal/repository"
	"mfl/internal/service"

	"github.com/gofiber/fiber/v2"
)

// SubmitRequest handles POST /api/requests
// @Summary Submit a facility request
// @Description Submit a proposed facility addition, update or deactivation for review
// @Tags requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{request_type=string,facility_id=integer,payload=models.FacilityPayload,documents=[]models.RequestDocument} true "Request submission"
// @Success 201 {object} models.FacilityRequest
// @Failure 400 {object} models.ErrorResponse
// @Router /requests [post]
func (s *Server) SubmitRequest(c *fiber.Ctx) error {
	var req struct {
		RequestType models.RequestType       `json:"request_type"`
		FacilityID  *uint                    `json:"facility_id"`
		Payload     models.FacilityPayload   `json:"payload"`
		Documents   []models.RequestDocument `json:"documents"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	userID, role, _ := actor(c)
	request, err := s.workflow.Submit(c.Context(), service.SubmitRequestInput{
		UserID:     userID,
		Role:       role,
		Type:       req.RequestType,
		FacilityID: req.FacilityID,
		Payload:    req.Payload,
		Documents:  req.Documents,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(request)
}

// GetRequests handles GET /api/requests
// @Summary List requests for review
// @Description List facility requests, filtered by status, type and district. District officers only see their own district's queue.
// @Tags requests
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by status"
// @Param type query string false "Filter by request type"
// @Param district_id query integer false "Filter by district"
// @Param limit query integer false "Page size (max 100)"
// @Param offset query integer false "Page offset"
// @Success 200 {object} object{requests=[]models.FacilityRequest,total=integer}
// @Router /requests [get]
func (s *Server) GetRequests(c *fiber.Ctx) error {
	page := parsePagination(c, 20)
	filter := repository.RequestFilter{
		Status:      models.RequestStatus(c.Query("status")),
		RequestType: models.RequestType(c.Query("type")),
		DistrictID:  uint(c.QueryInt("district_id", 0)),
		Limit:       page.Limit,
		Offset:      page.Offset,
	}

	// District officers only ever see their own district's queue,
	// whatever the query says.
	_, role, districtID := actor(c)
	if role == models.RoleDistrict {
		if districtID == nil {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewAuthorizationError("district officers need a district affiliation"))
		}
		filter.DistrictID = *districtID
	}

	requests, total, err := s.workflow.ListRequests(c.Context(), filter)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"requests": requests,
		"total":    total,
		"limit":    page.Limit,
		"offset":   page.Offset,
	})
}

// GetMyRequests handles GET /api/requests/me
// @Summary List own submissions
// @Tags requests
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{requests=[]models.FacilityRequest}
// @Router /requests/me [get]
func (s *Server) GetMyRequests(c *fiber.Ctx) error {
	userID, _, _ := actor(c)
	page := parsePagination(c, 20)

	requests, err := s.workflow.ListOwnRequests(c.Context(), userID, page.Limit, page.Offset)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"requests": requests})
}

// GetMyRequestHistory handles GET /api/requests/me/history
// @Summary Status history across the caller's own submissions
// @Tags requests
// @Produce json
// @Security BearerAuth
// @Param limit query integer false "Page size" default(20)
// @Param offset query integer false "Offset" default(0)
// @Success 200 {object} object{history=[]models.StatusHistoryEntry}
// @Router /requests/me/history [get]
func (s *Server) GetMyRequestHistory(c *fiber.Ctx) error {
	userID, _, _ := actor(c)
	page := parsePagination(c, 20)

	history, err := s.workflow.HistoryByOwner(c.Context(), userID, page.Limit, page.Offset)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"history": history})
}

// GetRequest handles GET /api/requests/:id
// @Summary Get one request with history and diff
// @Description Returns the request, its full audit trail and, for update requests, a field diff against the published facility.
// @Tags requests
// @Produce json
// @Security BearerAuth
// @Param id path integer true "Request ID"
// @Success 200 {object} service.RequestDetail
// @Failure 404 {object} models.ErrorResponse
// @Router /requests/{id} [get]
func (s *Server) GetRequest(c *fiber.Ctx) error {
	requestID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	detail, err := s.workflow.GetDetail(c.Context(), requestID, s.diffs)
	if err != nil {
		return respondServiceError(c, err)
	}

	if !s.canViewRequest(c, detail.Request) {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewAuthorizationError("you may only view your own requests"))
	}
	return c.JSON(detail)
}

// GetRequestHistory handles GET /api/requests/:id/history
// @Summary Get a request's audit trail
// @Tags requests
// @Produce json
// @Security BearerAuth
// @Param id path integer true "Request ID"
// @Success 200 {object} object{history=[]models.StatusHistoryEntry}
// @Failure 404 {object} models.ErrorResponse
// @Router /requests/{id}/history [get]
func (s *Server) GetRequestHistory(c *fiber.Ctx) error {
	requestID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	request, err := s.requestRepo.GetByID(c.Context(), requestID)
	if err != nil {
		return respondServiceError(c, err)
	}
	if !s.canViewRequest(c, request) {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewAuthorizationError("you may only view your own requests"))
	}

	history, err := s.workflow.History(c.Context(), requestID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"history": history})
}

// ApproveRequest handles POST /api/requests/:id/approve
// @Summary Approve a request at the actor's stage
// @Description Moves the request one stage forward. Final approval publishes the facility snapshot.
// @Tags requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path integer true "Request ID"
// @Param request body object{comments=string} false "Review comments"
// @Success 200 {object} models.FacilityRequest
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Failure 422 {object} models.ErrorResponse
// @Router /requests/{id}/approve [post]
func (s *Server) ApproveRequest(c *fiber.Ctx) error {
	requestID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Comments string `json:"comments"`
	}
	_ = c.BodyParser(&req)

	userID, role, districtID := actor(c)
	request, err := s.workflow.Approve(c.Context(), service.ReviewInput{
		RequestID:  requestID,
		ActorID:    userID,
		ActorRole:  role,
		DistrictID: districtID,
		Comments:   req.Comments,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(request)
}

// RejectRequest handles POST /api/requests/:id/reject
// @Summary Reject a request
// @Description Moves the request to the terminal rejected status. A reason is required.
// @Tags requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path integer true "Request ID"
// @Param request body object{comments=string} true "Rejection reason"
// @Success 200 {object} models.FacilityRequest
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 422 {object} models.ErrorResponse
// @Router /requests/{id}/reject [post]
func (s *Server) RejectRequest(c *fiber.Ctx) error {
	requestID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Comments string `json:"comments"`
	}
	_ = c.BodyParser(&req)

	userID, role, districtID := actor(c)
	request, err := s.workflow.Reject(c.Context(), service.ReviewInput{
		RequestID:  requestID,
		ActorID:    userID,
		ActorRole:  role,
		DistrictID: districtID,
		Comments:   req.Comments,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(request)
}

// canViewRequest decides read access for one request: reviewers see
// everything in their scope, public users only their own submissions.
func (s *Server) canViewRequest(c *fiber.Ctx, request *models.FacilityRequest) bool {
	userID, role, districtID := actor(c)
	switch role {
	case models.RoleAdmin, models.RolePlanning:
		return true
	case models.RoleDistrict:
		if districtID != nil && request.DistrictID != nil && *districtID == *request.DistrictID {
			return true
		}
		return request.RequestedByUserID == userID
	}
	return request.RequestedByUserID == userID
}
