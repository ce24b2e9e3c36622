package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"mfl/internal/featureflags"
	"mfl/internal/models"
	"mfl/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// memRequestRepo is an in-memory repository.RequestRepository with the same
// compare-and-set contract as the real one.
type memRequestRepo struct {
	mu      sync.Mutex
	nextID  uint
	byID    map[uint]*models.FacilityRequest
	history map[uint][]models.StatusHistoryEntry
}

func newMemRequestRepo() *memRequestRepo {
	return &memRequestRepo{
		nextID:  1,
		byID:    map[uint]*models.FacilityRequest{},
		history: map[uint][]models.StatusHistoryEntry{},
	}
}

func (r *memRequestRepo) Create(_ context.Context, request *models.FacilityRequest, initial *models.StatusHistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	request.ID = r.nextID
	r.nextID++
	clone := *request
	r.byID[request.ID] = &clone
	initial.RequestID = request.ID
	r.history[request.ID] = append(r.history[request.ID], *initial)
	return nil
}

func (r *memRequestRepo) GetByID(_ context.Context, id uint) (*models.FacilityRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	request, ok := r.byID[id]
	if !ok {
		return nil, models.NewNotFoundError("Request", id)
	}
	clone := *request
	return &clone, nil
}

func (r *memRequestRepo) GetByReference(_ context.Context, reference string) (*models.FacilityRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, request := range r.byID {
		if request.Reference == reference {
			clone := *request
			return &clone, nil
		}
	}
	return nil, models.NewNotFoundError("Request", reference)
}

func (r *memRequestRepo) List(_ context.Context, _ repository.RequestFilter) ([]models.FacilityRequest, int64, error) {
	return nil, 0, nil
}

func (r *memRequestRepo) ListByOwner(_ context.Context, _ uint, _, _ int) ([]models.FacilityRequest, error) {
	return nil, nil
}

func (r *memRequestRepo) TransitionStatus(_ context.Context, id uint, from, to models.RequestStatus,
	updates map[string]interface{}, entry *models.StatusHistoryEntry, publish func(tx *gorm.DB) error) error {

	r.mu.Lock()
	defer r.mu.Unlock()

	request, ok := r.byID[id]
	if !ok {
		return models.NewNotFoundError("Request", id)
	}
	if request.Status != from {
		return models.NewConflictError("request was modified by another reviewer; re-fetch and retry")
	}

	snapshot := *request
	request.Status = to
	if v, ok := updates["rejected_by_user_id"]; ok {
		userID := v.(uint)
		request.RejectedByUserID = &userID
	}
	if v, ok := updates["rejected_at"]; ok {
		at := v.(time.Time)
		request.RejectedAt = &at
	}
	if v, ok := updates["rejection_comments"]; ok {
		request.RejectionComments = v.(string)
	}

	if publish != nil {
		if err := publish(nil); err != nil {
			*request = snapshot
			return err
		}
	}

	entry.RequestID = id
	entry.Status = to
	r.history[id] = append(r.history[id], *entry)
	return nil
}

// LinkFacility runs inside TransitionStatus's publish callback, which
// already holds the lock.
func (r *memRequestRepo) LinkFacility(_ *gorm.DB, requestID, facilityID uint) error {
	request, ok := r.byID[requestID]
	if !ok {
		return models.NewNotFoundError("Request", requestID)
	}
	request.FacilityID = &facilityID
	return nil
}

func (r *memRequestRepo) historyFor(id uint) []models.StatusHistoryEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.StatusHistoryEntry(nil), r.history[id]...)
}

// facilityRepoStub is a stub for repository.FacilityRepository.
type facilityRepoStub struct {
	createFn     func(context.Context, *models.Facility) error
	getByIDFn    func(context.Context, uint) (*models.Facility, error)
	deactivateFn func(context.Context, uint) error
}

func (s *facilityRepoStub) Create(ctx context.Context, f *models.Facility) error {
	return s.createFn(ctx, f)
}
func (s *facilityRepoStub) GetByID(ctx context.Context, id uint) (*models.Facility, error) {
	return s.getByIDFn(ctx, id)
}
func (s *facilityRepoStub) GetByCode(_ context.Context, code string) (*models.Facility, error) {
	return nil, models.NewNotFoundError("Facility", code)
}
func (s *facilityRepoStub) List(_ context.Context, _ repository.FacilityFilter) ([]models.Facility, int64, error) {
	return nil, 0, nil
}
func (s *facilityRepoStub) Update(_ context.Context, _ *models.Facility) error { return nil }
func (s *facilityRepoStub) Deactivate(ctx context.Context, id uint) error {
	return s.deactivateFn(ctx, id)
}
func (s *facilityRepoStub) WithTx(_ *gorm.DB) repository.FacilityRepository { return s }

func noopFacilityRepo() *facilityRepoStub {
	return &facilityRepoStub{
		createFn: func(_ context.Context, f *models.Facility) error {
			f.ID = 1
			return nil
		},
		getByIDFn: func(_ context.Context, id uint) (*models.Facility, error) {
			return &models.Facility{ID: id, DistrictID: 10}, nil
		},
		deactivateFn: func(_ context.Context, _ uint) error { return nil },
	}
}

// adminUnitRepoStub is a stub for repository.AdminUnitRepository.
type adminUnitRepoStub struct {
	findDistrictFn func(context.Context, string) (*models.District, error)
	resolveFn      func(*gorm.DB, models.FacilityPayload) (*repository.ResolvedUnits, error)
}

func (s *adminUnitRepoStub) ListRegions(_ context.Context) ([]models.Region, error) { return nil, nil }
func (s *adminUnitRepoStub) ListDistricts(_ context.Context) ([]models.District, error) {
	return nil, nil
}
func (s *adminUnitRepoStub) ListSubcounties(_ context.Context, _ uint) ([]models.Subcounty, error) {
	return nil, nil
}
func (s *adminUnitRepoStub) GetDistrictByID(_ context.Context, id uint) (*models.District, error) {
	return &models.District{ID: id}, nil
}
func (s *adminUnitRepoStub) FindDistrictByName(ctx context.Context, name string) (*models.District, error) {
	return s.findDistrictFn(ctx, name)
}
func (s *adminUnitRepoStub) ResolveUnits(db *gorm.DB, payload models.FacilityPayload) (*repository.ResolvedUnits, error) {
	return s.resolveFn(db, payload)
}
func (s *adminUnitRepoStub) CreateRegion(_ context.Context, _ *models.Region) error     { return nil }
func (s *adminUnitRepoStub) CreateDistrict(_ context.Context, _ *models.District) error { return nil }
func (s *adminUnitRepoStub) CreateSubcounty(_ context.Context, _ *models.Subcounty) error {
	return nil
}

func noopAdminUnitRepo() *adminUnitRepoStub {
	return &adminUnitRepoStub{
		findDistrictFn: func(_ context.Context, _ string) (*models.District, error) {
			return &models.District{ID: 10, Name: "Kampala", RegionID: 1}, nil
		},
		resolveFn: func(_ *gorm.DB, _ models.FacilityPayload) (*repository.ResolvedUnits, error) {
			return &repository.ResolvedUnits{RegionID: 1, DistrictID: 10}, nil
		},
	}
}

// historyRepoStub reads history back from the in-memory request repo.
type historyRepoStub struct {
	requests *memRequestRepo
}

func (s *historyRepoStub) ListByRequest(_ context.Context, requestID uint) ([]models.StatusHistoryEntry, error) {
	return s.requests.historyFor(requestID), nil
}
func (s *historyRepoStub) ListByOwner(_ context.Context, _ uint, _, _ int) ([]models.StatusHistoryEntry, error) {
	return nil, nil
}
func (s *historyRepoStub) ListByActor(_ context.Context, _ uint, _, _ int) ([]models.StatusHistoryEntry, error) {
	return nil, nil
}

// recorder captures notifier and listener calls.
type recorder struct {
	mu          sync.Mutex
	transitions []models.RequestStatus
	published   []*models.Facility
}

func (r *recorder) NotifyStatusChange(_ context.Context, request *models.FacilityRequest, _ models.RequestStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, request.Status)
}

func (r *recorder) FacilityPublished(_ context.Context, facility *models.Facility, _ *models.FacilityRequest) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published = append(r.published, facility)
}

type workflowFixture struct {
	svc      *WorkflowService
	requests *memRequestRepo
	rec      *recorder
}

func newWorkflowFixture(flags string) *workflowFixture {
	requests := newMemRequestRepo()
	rec := &recorder{}
	svc := NewWorkflowService(
		requests,
		noopFacilityRepo(),
		noopAdminUnitRepo(),
		&historyRepoStub{requests: requests},
		featureflags.NewManager(flags),
		rec,
		rec,
	)
	return &workflowFixture{svc: svc, requests: requests, rec: rec}
}

func submitAddition(t *testing.T, f *workflowFixture, role models.Role) *models.FacilityRequest {
	t.Helper()
	request, err := f.svc.Submit(context.Background(), SubmitRequestInput{
		UserID:  1,
		Role:    role,
		Type:    models.RequestTypeAddition,
		Payload: basePayload(),
	})
	require.NoError(t, err)
	return request
}

func assertAppErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

func districtID(id uint) *uint { return &id }

func TestWorkflowService_Submit_Validation(t *testing.T) {
	t.Parallel()

	f := newWorkflowFixture("")
	ctx := context.Background()

	t.Run("addition without a name", func(t *testing.T) {
		payload := basePayload()
		payload.Name = ""
		_, err := f.svc.Submit(ctx, SubmitRequestInput{UserID: 1, Role: models.RolePublic, Type: models.RequestTypeAddition, Payload: payload})
		assertAppErrorCode(t, err, models.CodeValidation)
	})

	t.Run("update without a target facility", func(t *testing.T) {
		_, err := f.svc.Submit(ctx, SubmitRequestInput{UserID: 1, Role: models.RolePublic, Type: models.RequestTypeUpdate, Payload: basePayload()})
		assertAppErrorCode(t, err, models.CodeValidation)
	})

	t.Run("update without supporting documents", func(t *testing.T) {
		target := uint(42)
		_, err := f.svc.Submit(ctx, SubmitRequestInput{
			UserID: 1, Role: models.RolePublic, Type: models.RequestTypeUpdate,
			FacilityID: &target, Payload: basePayload(),
		})
		assertAppErrorCode(t, err, models.CodeValidation)
	})

	t.Run("unknown request type", func(t *testing.T) {
		_, err := f.svc.Submit(ctx, SubmitRequestInput{UserID: 1, Role: models.RolePublic, Type: "merge", Payload: basePayload()})
		assertAppErrorCode(t, err, models.CodeValidation)
	})
}

func TestWorkflowService_Submit_ResolvesDistrictScope(t *testing.T) {
	t.Parallel()

	f := newWorkflowFixture("")
	request := submitAddition(t, f, models.RolePublic)

	assert.Equal(t, models.StatusInitiated, request.Status)
	assert.NotEmpty(t, request.Reference)
	require.NotNil(t, request.DistrictID)
	assert.EqualValues(t, 10, *request.DistrictID)

	history := f.requests.historyFor(request.ID)
	require.Len(t, history, 1)
	assert.Equal(t, models.StatusInitiated, history[0].Status)
	assert.Nil(t, history[0].ActorUserID)
}

func TestWorkflowService_Approve_Authorization(t *testing.T) {
	t.Parallel()

	f := newWorkflowFixture("")
	ctx := context.Background()
	request := submitAddition(t, f, models.RolePublic)

	t.Run("public cannot review", func(t *testing.T) {
		_, err := f.svc.Approve(ctx, ReviewInput{RequestID: request.ID, ActorID: 2, ActorRole: models.RolePublic})
		assertAppErrorCode(t, err, models.CodeAuthorization)
	})

	t.Run("planning cannot act before district review", func(t *testing.T) {
		_, err := f.svc.Approve(ctx, ReviewInput{RequestID: request.ID, ActorID: 3, ActorRole: models.RolePlanning})
		assertAppErrorCode(t, err, models.CodeAuthorization)
	})

	t.Run("district officer from another district", func(t *testing.T) {
		_, err := f.svc.Approve(ctx, ReviewInput{
			RequestID: request.ID, ActorID: 4, ActorRole: models.RoleDistrict, DistrictID: districtID(99),
		})
		assertAppErrorCode(t, err, models.CodeAuthorization)
	})

	t.Run("district officer without affiliation", func(t *testing.T) {
		_, err := f.svc.Approve(ctx, ReviewInput{RequestID: request.ID, ActorID: 5, ActorRole: models.RoleDistrict})
		assertAppErrorCode(t, err, models.CodeAuthorization)
	})
}

func TestWorkflowService_Approve_WalksTheChain(t *testing.T) {
	t.Parallel()

	f := newWorkflowFixture("")
	ctx := context.Background()
	request := submitAddition(t, f, models.RolePublic)

	afterDistrict, err := f.svc.Approve(ctx, ReviewInput{
		RequestID: request.ID, ActorID: 2, ActorRole: models.RoleDistrict, DistrictID: districtID(10), Comments: "verified on site",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusDistrictApproved, afterDistrict.Status)

	// A district-approved request is finalized by planning's approval
	final, err := f.svc.Approve(ctx, ReviewInput{RequestID: request.ID, ActorID: 3, ActorRole: models.RolePlanning})
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, final.Status)

	history := f.requests.historyFor(request.ID)
	require.Len(t, history, 3)
	expected := []models.RequestStatus{
		models.StatusInitiated,
		models.StatusDistrictApproved,
		models.StatusApproved,
	}
	for i, entry := range history {
		assert.Equal(t, expected[i], entry.Status)
	}

	f.rec.mu.Lock()
	defer f.rec.mu.Unlock()
	assert.Len(t, f.rec.transitions, 2)
	require.Len(t, f.rec.published, 1)
}

func TestWorkflowService_Approve_AdminFinalizesFromAnyStage(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("from initiated", func(t *testing.T) {
		f := newWorkflowFixture("")
		request := submitAddition(t, f, models.RolePublic)

		final, err := f.svc.Approve(ctx, ReviewInput{RequestID: request.ID, ActorID: 4, ActorRole: models.RoleAdmin})
		require.NoError(t, err)
		assert.Equal(t, models.StatusApproved, final.Status)

		f.rec.mu.Lock()
		defer f.rec.mu.Unlock()
		require.Len(t, f.rec.published, 1)
	})

	t.Run("from district approved", func(t *testing.T) {
		f := newWorkflowFixture("")
		request := submitAddition(t, f, models.RolePublic)

		_, err := f.svc.Approve(ctx, ReviewInput{
			RequestID: request.ID, ActorID: 2, ActorRole: models.RoleDistrict, DistrictID: districtID(10),
		})
		require.NoError(t, err)

		final, err := f.svc.Approve(ctx, ReviewInput{RequestID: request.ID, ActorID: 4, ActorRole: models.RoleAdmin})
		require.NoError(t, err)
		assert.Equal(t, models.StatusApproved, final.Status)
	})
}

func TestWorkflowService_Approve_TerminalIsImmutable(t *testing.T) {
	t.Parallel()

	f := newWorkflowFixture("")
	ctx := context.Background()
	request := submitAddition(t, f, models.RolePublic)

	_, err := f.svc.Reject(ctx, ReviewInput{
		RequestID: request.ID, ActorID: 2, ActorRole: models.RoleDistrict, DistrictID: districtID(10), Comments: "duplicate",
	})
	require.NoError(t, err)

	_, err = f.svc.Approve(ctx, ReviewInput{
		RequestID: request.ID, ActorID: 2, ActorRole: models.RoleDistrict, DistrictID: districtID(10),
	})
	assertAppErrorCode(t, err, models.CodeInvalidTransition)

	_, err = f.svc.Reject(ctx, ReviewInput{
		RequestID: request.ID, ActorID: 2, ActorRole: models.RoleDistrict, DistrictID: districtID(10), Comments: "again",
	})
	assertAppErrorCode(t, err, models.CodeInvalidTransition)
}

func TestWorkflowService_Reject_RequiresReason(t *testing.T) {
	t.Parallel()

	f := newWorkflowFixture("")
	ctx := context.Background()
	request := submitAddition(t, f, models.RolePublic)

	for _, comments := range []string{"", "   ", "\t\n"} {
		_, err := f.svc.Reject(ctx, ReviewInput{
			RequestID: request.ID, ActorID: 2, ActorRole: models.RoleDistrict, DistrictID: districtID(10),
			Comments: comments,
		})
		assertAppErrorCode(t, err, models.CodeValidation)
	}

	// Nothing above touched the request or its history
	current, err := f.requests.GetByID(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInitiated, current.Status)
	assert.Len(t, f.requests.historyFor(request.ID), 1)
}

func TestWorkflowService_Reject_RecordsWhoAndWhy(t *testing.T) {
	t.Parallel()

	f := newWorkflowFixture("")
	request := submitAddition(t, f, models.RolePublic)

	rejected, err := f.svc.Reject(context.Background(), ReviewInput{
		RequestID: request.ID, ActorID: 7, ActorRole: models.RoleDistrict, DistrictID: districtID(10),
		Comments: "site visit found no such facility",
	})
	require.NoError(t, err)

	assert.Equal(t, models.StatusRejected, rejected.Status)
	require.NotNil(t, rejected.RejectedByUserID)
	assert.EqualValues(t, 7, *rejected.RejectedByUserID)
	assert.NotNil(t, rejected.RejectedAt)
	assert.Equal(t, "site visit found no such facility", rejected.RejectionComments)

	history := f.requests.historyFor(request.ID)
	require.Len(t, history, 2)
	assert.Equal(t, models.StatusRejected, history[1].Status)
	assert.Equal(t, "site visit found no such facility", history[1].Comments)
}

func TestWorkflowService_DistrictSubmittedSkipsDistrictStage(t *testing.T) {
	t.Parallel()

	f := newWorkflowFixture("")
	ctx := context.Background()
	request := submitAddition(t, f, models.RoleDistrict)

	// Planning acts directly on the initiated request; having skipped the
	// district stage it still needs admin's final approval.
	afterPlanning, err := f.svc.Approve(ctx, ReviewInput{RequestID: request.ID, ActorID: 3, ActorRole: models.RolePlanning})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPlanningApproved, afterPlanning.Status)

	final, err := f.svc.Approve(ctx, ReviewInput{RequestID: request.ID, ActorID: 4, ActorRole: models.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, final.Status)
}

func TestWorkflowService_DirectPlanningReviewFlag(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("flag off keeps the district stage", func(t *testing.T) {
		f := newWorkflowFixture("")
		request := submitAddition(t, f, models.RolePublic)
		_, err := f.svc.Approve(ctx, ReviewInput{RequestID: request.ID, ActorID: 3, ActorRole: models.RolePlanning})
		assertAppErrorCode(t, err, models.CodeAuthorization)
	})

	t.Run("flag on lets planning review directly", func(t *testing.T) {
		f := newWorkflowFixture(featureflags.DirectPlanningReview + "=on")
		request := submitAddition(t, f, models.RolePublic)
		afterPlanning, err := f.svc.Approve(ctx, ReviewInput{RequestID: request.ID, ActorID: 3, ActorRole: models.RolePlanning})
		require.NoError(t, err)
		assert.Equal(t, models.StatusPlanningApproved, afterPlanning.Status)
	})
}

func TestWorkflowService_ConcurrentApprovalsSingleWinner(t *testing.T) {
	t.Parallel()

	f := newWorkflowFixture("")
	ctx := context.Background()
	request := submitAddition(t, f, models.RolePublic)

	const reviewers = 10
	results := make(chan error, reviewers)

	var wg sync.WaitGroup
	for i := 0; i < reviewers; i++ {
		wg.Add(1)
		go func(actor uint) {
			defer wg.Done()
			_, err := f.svc.Approve(ctx, ReviewInput{
				RequestID: request.ID, ActorID: actor, ActorRole: models.RoleDistrict, DistrictID: districtID(10),
			})
			results <- err
		}(uint(100 + i))
	}
	wg.Wait()
	close(results)

	var wins, conflicts int
	for err := range results {
		if err == nil {
			wins++
			continue
		}
		var appErr *models.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, models.CodeConflict, appErr.Code)
		conflicts++
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, reviewers-1, conflicts)

	// Exactly one transition left exactly one new history entry
	history := f.requests.historyFor(request.ID)
	assert.Len(t, history, 2)
}
