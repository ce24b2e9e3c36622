package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"mfl/internal/featureflags"
	"mfl/internal/models"
	"mfl/internal/observability"
	"mfl/internal/repository"
	"mfl/internal/validation"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// transitions is the declarative gate for the approval chain: for a request
// in a given status, which roles may act and where they may move it. Adding
// a stage means adding rows here, not editing branch logic.
//
// District vets its own requests first; once a request carries a district
// approval, planning's approval finalizes and publishes it. Planning-approved
// is the waypoint for requests that skipped the district stage and still need
// a second reviewer. Admins hold final authority from every non-terminal
// stage.
var transitions = map[models.RequestStatus]map[models.Role][]models.RequestStatus{
	models.StatusInitiated: {
		models.RoleDistrict: {models.StatusDistrictApproved, models.StatusRejected},
		models.RoleAdmin:    {models.StatusApproved, models.StatusRejected},
	},
	models.StatusDistrictApproved: {
		models.RolePlanning: {models.StatusApproved, models.StatusRejected},
		models.RoleAdmin:    {models.StatusApproved, models.StatusRejected},
	},
	models.StatusPlanningApproved: {
		models.RoleAdmin: {models.StatusApproved, models.StatusRejected},
	},
}

// StatusNotifier is told about committed status changes so interested users
// can be informed out of band.
type StatusNotifier interface {
	NotifyStatusChange(ctx context.Context, request *models.FacilityRequest, previous models.RequestStatus)
}

// PublishListener is told when an approved request's facility snapshot has
// been committed. Delivery is asynchronous and best-effort.
type PublishListener interface {
	FacilityPublished(ctx context.Context, facility *models.Facility, request *models.FacilityRequest)
}

// WorkflowService drives facility requests through the approval chain. All
// status changes go through it; nothing else writes request status or
// history.
type WorkflowService struct {
	requests   repository.RequestRepository
	facilities repository.FacilityRepository
	adminUnits repository.AdminUnitRepository
	history    repository.HistoryRepository
	flags      *featureflags.Manager
	notifier   StatusNotifier
	listener   PublishListener
}

// NewWorkflowService returns a new WorkflowService. notifier and listener
// may be nil; the workflow then runs silently.
func NewWorkflowService(
	requests repository.RequestRepository,
	facilities repository.FacilityRepository,
	adminUnits repository.AdminUnitRepository,
	history repository.HistoryRepository,
	flags *featureflags.Manager,
	notifier StatusNotifier,
	listener PublishListener,
) *WorkflowService {
	return &WorkflowService{
		requests:   requests,
		facilities: facilities,
		adminUnits: adminUnits,
		history:    history,
		flags:      flags,
		notifier:   notifier,
		listener:   listener,
	}
}

// SubmitRequestInput carries a new request submission.
type SubmitRequestInput struct {
	UserID     uint
	Role       models.Role
	Type       models.RequestType
	FacilityID *uint
	Payload    models.FacilityPayload
	Documents  []models.RequestDocument
}

// ReviewInput carries an approval or rejection decision.
type ReviewInput struct {
	RequestID  uint
	ActorID    uint
	ActorRole  models.Role
	DistrictID *uint // actor's district affiliation, set for district officers
	Comments   string
}

// RequestDetail is the reviewer view of one request: the request itself,
// its complete audit trail and, for updates, the field diff against the
// published facility.
type RequestDetail struct {
	Request *models.FacilityRequest     `json:"request"`
	History []models.StatusHistoryEntry `json:"history"`
	Diff    *RequestDiff                `json:"diff,omitempty"`
}

// Submit validates and persists a new request in the initiated status with
// its first history entry. The request's review scope (district) is
// resolved here: from the payload for additions, from the target facility
// otherwise.
func (s *WorkflowService) Submit(ctx context.Context, in SubmitRequestInput) (*models.FacilityRequest, error) {
	if err := validation.ValidateRequestInput(in.Type, in.FacilityID, in.Payload); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if in.Type != models.RequestTypeAddition && len(in.Documents) == 0 {
		return nil, models.NewValidationError("update and deactivation requests require at least one supporting document")
	}

	request := &models.FacilityRequest{
		Reference:         uuid.NewString(),
		RequestType:       in.Type,
		Status:            models.StatusInitiated,
		Payload:           in.Payload,
		FacilityID:        in.FacilityID,
		RequestedByUserID: in.UserID,
		RequestedByRole:   in.Role,
		Documents:         in.Documents,
	}

	if in.FacilityID != nil {
		facility, err := s.facilities.GetByID(ctx, *in.FacilityID)
		if err != nil {
			return nil, err
		}
		request.DistrictID = &facility.DistrictID
	} else {
		district, err := s.adminUnits.FindDistrictByName(ctx, in.Payload.District)
		if err != nil {
			return nil, err
		}
		request.DistrictID = &district.ID
	}

	initial := &models.StatusHistoryEntry{
		Status:   models.StatusInitiated,
		Comments: "Request initiated",
	}
	if err := s.requests.Create(ctx, request, initial); err != nil {
		return nil, err
	}
	return request, nil
}

// Approve moves a request one stage forward. The actor's role decides the
// stage; the final stage also publishes the facility snapshot in the same
// transaction, so a failed publish leaves the request approvable again.
func (s *WorkflowService) Approve(ctx context.Context, in ReviewInput) (*models.FacilityRequest, error) {
	request, err := s.requests.GetByID(ctx, in.RequestID)
	if err != nil {
		return nil, err
	}

	next, err := s.gate(request, in, false)
	if err != nil {
		return nil, err
	}

	entry := &models.StatusHistoryEntry{
		ActorUserID: &in.ActorID,
		Comments:    in.Comments,
	}

	var publish func(tx *gorm.DB) error
	var published *models.Facility
	if next == models.StatusApproved {
		published = &models.Facility{}
		publish = s.buildPublish(ctx, request, published)
	}

	from := request.Status
	if err := s.requests.TransitionStatus(ctx, request.ID, from, next, nil, entry, publish); err != nil {
		return nil, err
	}

	updated, err := s.requests.GetByID(ctx, request.ID)
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.NotifyStatusChange(ctx, updated, from)
	}
	if next == models.StatusApproved && s.listener != nil {
		s.listener.FacilityPublished(ctx, published, updated)
	}
	return updated, nil
}

// Reject moves a request to the terminal rejected status. A reason is
// mandatory; silent rejections leave applicants with nothing to fix.
func (s *WorkflowService) Reject(ctx context.Context, in ReviewInput) (*models.FacilityRequest, error) {
	if strings.TrimSpace(in.Comments) == "" {
		return nil, models.NewValidationError("rejection requires a reason")
	}

	request, err := s.requests.GetByID(ctx, in.RequestID)
	if err != nil {
		return nil, err
	}

	if _, err := s.gate(request, in, true); err != nil {
		return nil, err
	}

	entry := &models.StatusHistoryEntry{
		ActorUserID: &in.ActorID,
		Comments:    in.Comments,
	}
	updates := map[string]interface{}{
		"rejected_by_user_id": in.ActorID,
		"rejected_at":         time.Now().UTC(),
		"rejection_comments":  in.Comments,
	}

	from := request.Status
	if err := s.requests.TransitionStatus(ctx, request.ID, from, models.StatusRejected, updates, entry, nil); err != nil {
		return nil, err
	}

	observability.RequestRejections.WithLabelValues(string(in.ActorRole)).Inc()

	updated, err := s.requests.GetByID(ctx, request.ID)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.NotifyStatusChange(ctx, updated, from)
	}
	return updated, nil
}

// gate checks terminal state, role authority and district scope for a
// decision on the given request. For approvals it returns the status the
// request moves to; for rejections the target is always rejected.
func (s *WorkflowService) gate(request *models.FacilityRequest, in ReviewInput, rejecting bool) (models.RequestStatus, error) {
	if request.Status.Terminal() {
		return "", models.NewInvalidTransitionError(
			fmt.Sprintf("request is already %s and cannot change further", request.Status))
	}

	allowed := transitions[request.Status][in.ActorRole]

	// District-submitted requests have already had district eyes on them;
	// planning may act on them directly. The same shortcut can be rolled
	// out per submitter with the direct_planning_review flag.
	if len(allowed) == 0 && request.Status == models.StatusInitiated && in.ActorRole == models.RolePlanning {
		if request.RequestedByRole == models.RoleDistrict ||
			s.flags.Enabled(featureflags.DirectPlanningReview, request.RequestedByUserID) {
			allowed = []models.RequestStatus{models.StatusPlanningApproved, models.StatusRejected}
		}
	}

	if len(allowed) == 0 {
		return "", models.NewAuthorizationError(
			fmt.Sprintf("role %s cannot act on a request in status %s", in.ActorRole, request.Status))
	}

	if in.ActorRole == models.RoleDistrict {
		if in.DistrictID == nil || request.DistrictID == nil || *in.DistrictID != *request.DistrictID {
			return "", models.NewAuthorizationError("district officers may only review requests in their own district")
		}
	}

	if rejecting {
		for _, status := range allowed {
			if status == models.StatusRejected {
				return models.StatusRejected, nil
			}
		}
		return "", models.NewInvalidTransitionError(
			fmt.Sprintf("request in status %s cannot be rejected by role %s", request.Status, in.ActorRole))
	}

	for _, status := range allowed {
		if status != models.StatusRejected {
			return status, nil
		}
	}
	return "", models.NewInvalidTransitionError(
		fmt.Sprintf("no forward transition from status %s for role %s", request.Status, in.ActorRole))
}

// buildPublish returns the transactional facility write for a request
// reaching the approved status. The snapshot and the status change commit
// together; out points at the written facility after a successful commit.
func (s *WorkflowService) buildPublish(ctx context.Context, request *models.FacilityRequest, out *models.Facility) func(tx *gorm.DB) error {
	return func(tx *gorm.DB) error {
		repo := s.facilities.WithTx(tx)

		switch request.RequestType {
		case models.RequestTypeAddition:
			units, err := s.adminUnits.ResolveUnits(tx, request.Payload)
			if err != nil {
				return err
			}
			facility := models.Facility{
				Code:         fmt.Sprintf("MFL-%06d", request.ID),
				Name:         request.Payload.Name,
				Level:        request.Payload.Level,
				Ownership:    request.Payload.Ownership,
				Authority:    request.Payload.Authority,
				RegionID:     units.RegionID,
				DistrictID:   units.DistrictID,
				SubcountyID:  units.SubcountyID,
				Address:      request.Payload.Address,
				Latitude:     request.Payload.Latitude,
				Longitude:    request.Payload.Longitude,
				BedCapacity:  request.Payload.BedCapacity,
				Services:     request.Payload.Services,
				ContactPhone: request.Payload.ContactPhone,
				ContactEmail: request.Payload.ContactEmail,
				Active:       true,
				Version:      1,
			}
			if err := repo.Create(ctx, &facility); err != nil {
				return models.NewExternalDependencyError("facility snapshot write failed", err)
			}
			// Link the request to the facility it created
			if err := s.requests.LinkFacility(tx, request.ID, facility.ID); err != nil {
				return models.NewExternalDependencyError("facility snapshot write failed", err)
			}
			*out = facility
			return nil

		case models.RequestTypeUpdate:
			var facility models.Facility
			if err := tx.First(&facility, *request.FacilityID).Error; err != nil {
				return models.NewExternalDependencyError("target facility could not be loaded", err)
			}
			units, err := s.adminUnits.ResolveUnits(tx, request.Payload)
			if err != nil {
				return err
			}
			facility.Name = request.Payload.Name
			facility.Level = request.Payload.Level
			facility.Ownership = request.Payload.Ownership
			facility.Authority = request.Payload.Authority
			facility.RegionID = units.RegionID
			facility.DistrictID = units.DistrictID
			facility.SubcountyID = units.SubcountyID
			facility.Address = request.Payload.Address
			facility.Latitude = request.Payload.Latitude
			facility.Longitude = request.Payload.Longitude
			facility.BedCapacity = request.Payload.BedCapacity
			facility.Services = request.Payload.Services
			facility.ContactPhone = request.Payload.ContactPhone
			facility.ContactEmail = request.Payload.ContactEmail
			facility.Version++
			if err := repo.Update(ctx, &facility); err != nil {
				return models.NewExternalDependencyError("facility snapshot write failed", err)
			}
			*out = facility
			return nil

		case models.RequestTypeDeactivation:
			if err := repo.Deactivate(ctx, *request.FacilityID); err != nil {
				return err
			}
			var facility models.Facility
			if err := tx.First(&facility, *request.FacilityID).Error; err != nil {
				return models.NewExternalDependencyError("target facility could not be loaded", err)
			}
			*out = facility
			return nil
		}
		return models.NewValidationError(fmt.Sprintf("unknown request type %q", request.RequestType))
	}
}

// GetDetail assembles the reviewer view of a request. For update requests a
// diff against the currently published facility is included; a missing
// target is tagged rather than silently diffed against zero values.
func (s *WorkflowService) GetDetail(ctx context.Context, requestID uint, diffs *DiffService) (*RequestDetail, error) {
	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	history, err := s.history.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	detail := &RequestDetail{Request: request, History: history}

	if request.RequestType == models.RequestTypeUpdate && diffs != nil {
		var baseline *models.FacilityPayload
		if request.Facility != nil {
			payload := request.Facility.AsPayload()
			baseline = &payload
		}
		diff := diffs.Compute(baseline, request.Payload)
		detail.Diff = &diff
	}
	return detail, nil
}

// History returns a request's audit trail, oldest entry first.
func (s *WorkflowService) History(ctx context.Context, requestID uint) ([]models.StatusHistoryEntry, error) {
	if _, err := s.requests.GetByID(ctx, requestID); err != nil {
		return nil, err
	}
	return s.history.ListByRequest(ctx, requestID)
}

// HistoryByOwner returns the audit trail entries across all of a user's own
// submissions, oldest first.
func (s *WorkflowService) HistoryByOwner(ctx context.Context, ownerUserID uint, limit, offset int) ([]models.StatusHistoryEntry, error) {
	return s.history.ListByOwner(ctx, ownerUserID, limit, offset)
}

// ListRequests returns requests matching the filter with the total count.
func (s *WorkflowService) ListRequests(ctx context.Context, filter repository.RequestFilter) ([]models.FacilityRequest, int64, error) {
	return s.requests.List(ctx, filter)
}

// ListOwnRequests returns the authenticated user's submissions.
func (s *WorkflowService) ListOwnRequests(ctx context.Context, userID uint, limit, offset int) ([]models.FacilityRequest, error) {
	return s.requests.ListByOwner(ctx, userID, limit, offset)
}
