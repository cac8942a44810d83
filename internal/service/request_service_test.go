package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/registrar-api/internal/dto"
	"github.com/noah-isme/registrar-api/internal/models"
	"github.com/noah-isme/registrar-api/internal/repository"
	appErrors "github.com/noah-isme/registrar-api/pkg/errors"
	"github.com/noah-isme/registrar-api/pkg/money"
)

type stubRequestRepo struct {
	requests        map[string]*models.DocumentRequest
	tracking        map[string][]models.RequestTracking
	createErrs      []error
	createCalls     int
	transitionErr   error
	transitionCalls int
	lastTransition  repository.TransitionParams
	rescheduleErr   error
	listCalls       int
	lastListFilter  models.RequestFilter
}

func newStubRequestRepo() *stubRequestRepo {
	return &stubRequestRepo{
		requests: make(map[string]*models.DocumentRequest),
		tracking: make(map[string][]models.RequestTracking),
	}
}

func (s *stubRequestRepo) Create(ctx context.Context, request *models.DocumentRequest, tracking *models.RequestTracking) error {
	s.createCalls++
	if len(s.createErrs) > 0 {
		err := s.createErrs[0]
		s.createErrs = s.createErrs[1:]
		if err != nil {
			return err
		}
	}
	clone := *request
	s.requests[request.ID] = &clone
	s.tracking[request.ID] = append(s.tracking[request.ID], *tracking)
	return nil
}

func (s *stubRequestRepo) GetByID(ctx context.Context, id string) (*models.DocumentRequest, error) {
	request, ok := s.requests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *request
	return &clone, nil
}

func (s *stubRequestRepo) GetByReference(ctx context.Context, referenceNumber string) (*models.DocumentRequest, error) {
	for _, request := range s.requests {
		if request.ReferenceNumber == referenceNumber {
			clone := *request
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *stubRequestRepo) ApplyTransition(ctx context.Context, params repository.TransitionParams) error {
	s.transitionCalls++
	s.lastTransition = params
	if s.transitionErr != nil {
		return s.transitionErr
	}
	request, ok := s.requests[params.ID]
	if !ok {
		return sql.ErrNoRows
	}
	if request.Status != params.FromStatus {
		return repository.ErrStatusChanged
	}
	request.Status = params.ToStatus
	if params.PickupStatus != nil {
		request.PickupStatus = *params.PickupStatus
	}
	if params.ScheduledPickup != nil {
		request.ScheduledPickup = params.ScheduledPickup
	}
	if params.DateProcessed != nil {
		request.DateProcessed = params.DateProcessed
	}
	if params.DateCompleted != nil {
		request.DateCompleted = params.DateCompleted
	}
	if params.ProcessedBy != nil {
		request.ProcessedBy = params.ProcessedBy
	}
	entry := params.Tracking
	entry.Status = params.ToStatus
	s.tracking[params.ID] = append(s.tracking[params.ID], entry)
	return nil
}

func (s *stubRequestRepo) Reschedule(ctx context.Context, id string, fromStatuses []models.RequestStatus, newDate time.Time) error {
	if s.rescheduleErr != nil {
		return s.rescheduleErr
	}
	request, ok := s.requests[id]
	if !ok {
		return sql.ErrNoRows
	}
	allowed := false
	for _, status := range fromStatuses {
		if request.Status == status {
			allowed = true
		}
	}
	if !allowed {
		return repository.ErrStatusChanged
	}
	request.RescheduledPickup = &newDate
	return nil
}

func (s *stubRequestRepo) UpdateAdminNotes(ctx context.Context, id, notes string) error {
	request, ok := s.requests[id]
	if !ok {
		return sql.ErrNoRows
	}
	request.AdminNotes = &notes
	return nil
}

func (s *stubRequestRepo) ListTracking(ctx context.Context, requestID string) ([]models.RequestTracking, error) {
	return s.tracking[requestID], nil
}

func (s *stubRequestRepo) List(ctx context.Context, filter models.RequestFilter) ([]models.DocumentRequest, int, error) {
	s.listCalls++
	s.lastListFilter = filter
	out := make([]models.DocumentRequest, 0, len(s.requests))
	for _, request := range s.requests {
		out = append(out, *request)
	}
	return out, len(out), nil
}

type stubPurposeStore struct {
	purposes map[string]*models.RequestPurpose
	courses  map[string]*models.Course
}

func (s *stubPurposeStore) FindPurpose(ctx context.Context, id string) (*models.RequestPurpose, error) {
	if p, ok := s.purposes[id]; ok {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubPurposeStore) FindCourse(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := s.courses[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

type stubRequesterResolver struct {
	view *models.RequesterView
	err  error
}

func (s *stubRequesterResolver) Resolve(ctx context.Context, id string, requesterType models.RequesterType) (*models.RequesterView, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.view, nil
}

type stubPricer struct {
	documents []models.RequestDocument
	total     money.Cents
	err       error
}

func (s *stubPricer) Price(ctx context.Context, lines []dto.RequestLine) ([]models.RequestDocument, money.Cents, error) {
	if s.err != nil {
		return nil, 0, s.err
	}
	return s.documents, s.total, nil
}

type stubMinter struct {
	calls int
}

func (s *stubMinter) Mint() (RequestIdentifiers, error) {
	s.calls++
	n := s.calls
	return RequestIdentifiers{
		ID:              "id-" + string(rune('0'+n)),
		RequestNo:       "DR-20260401-00000" + string(rune('0'+n)),
		ReferenceNumber: "REF0000000" + string(rune('0'+n)),
	}, nil
}

type stubAudit struct {
	logs []*models.AuditLog
	err  error
}

func (s *stubAudit) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if s.err != nil {
		return s.err
	}
	s.logs = append(s.logs, log)
	return nil
}

func newTestRequestService(repo *stubRequestRepo, minter *stubMinter) (*RequestService, *stubAudit) {
	return newScopedRequestService(repo, minter, &stubScopes{scope: models.DepartmentScope{All: true}})
}

func newScopedRequestService(repo *stubRequestRepo, minter *stubMinter, scopes *stubScopes) (*RequestService, *stubAudit) {
	audit := &stubAudit{}
	purposeID := "purpose-1"
	courseID := "course-1"
	departmentID := "dept-1"
	svc := NewRequestService(
		repo,
		&stubPurposeStore{
			purposes: map[string]*models.RequestPurpose{purposeID: {ID: purposeID, Name: "Employment", Active: true}},
			courses:  map[string]*models.Course{courseID: {ID: courseID, CourseName: "BS Computer Science", DepartmentID: &departmentID}},
		},
		&stubRequesterResolver{view: &models.RequesterView{
			ID:       "student-1",
			Type:     models.RequesterStudent,
			Email:    "student@example.edu",
			FullName: "Ana Cruz",
		}},
		&stubPricer{
			documents: []models.RequestDocument{{DocumentTypeID: "dt-a", Quantity: 2, UnitPrice: 5000, TotalPrice: 10000}},
			total:     10000,
		},
		minter,
		scopes,
		audit,
		nil,
		nil,
		validator.New(),
		zap.NewNop(),
	)
	return svc, audit
}

func validCreatePayload() dto.CreateRequestPayload {
	purposeID := "purpose-1"
	return dto.CreateRequestPayload{
		RequesterID:   "student-1",
		RequesterType: models.RequesterStudent,
		PurposeID:     &purposeID,
		Lines:         []dto.RequestLine{{DocumentTypeID: "dt-a", Quantity: 2}},
	}
}

func TestCreateRequestHappyPath(t *testing.T) {
	repo := newStubRequestRepo()
	svc, _ := newTestRequestService(repo, &stubMinter{})

	request, err := svc.Create(context.Background(), validCreatePayload())
	require.NoError(t, err)

	assert.Equal(t, models.StatusPending, request.Status)
	assert.Equal(t, models.PickupPending, request.PickupStatus)
	assert.Equal(t, money.Cents(10000), request.TotalAmount)
	assert.NotEmpty(t, request.RequestNo)
	assert.NotEmpty(t, request.ReferenceNumber)
	require.Len(t, request.Documents, 1)

	history := repo.tracking[request.ID]
	require.Len(t, history, 1)
	assert.Equal(t, models.StatusPending, history[0].Status)
}

func TestCreateRequestRemintsOnCollision(t *testing.T) {
	repo := newStubRequestRepo()
	repo.createErrs = []error{
		appErrors.ErrDuplicateIdentifier,
		appErrors.ErrDuplicateIdentifier,
		nil,
	}
	minter := &stubMinter{}
	svc, _ := newTestRequestService(repo, minter)

	request, err := svc.Create(context.Background(), validCreatePayload())
	require.NoError(t, err)
	assert.Equal(t, 3, repo.createCalls)
	assert.Equal(t, 3, minter.calls)
	assert.Equal(t, "id-3", request.ID)
}

func TestCreateRequestGivesUpAfterRepeatedCollisions(t *testing.T) {
	repo := newStubRequestRepo()
	repo.createErrs = []error{
		appErrors.ErrDuplicateIdentifier,
		appErrors.ErrDuplicateIdentifier,
		appErrors.ErrDuplicateIdentifier,
	}
	svc, _ := newTestRequestService(repo, &stubMinter{})

	_, err := svc.Create(context.Background(), validCreatePayload())
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Equal(t, 3, repo.createCalls)
}

func TestCreateRequestRequiresPurposeOrFreeText(t *testing.T) {
	repo := newStubRequestRepo()
	svc, _ := newTestRequestService(repo, &stubMinter{})

	payload := validCreatePayload()
	payload.PurposeID = nil
	payload.OtherPurpose = nil

	_, err := svc.Create(context.Background(), payload)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Zero(t, repo.createCalls)
}

func TestTransitionHappyPath(t *testing.T) {
	repo := newStubRequestRepo()
	svc, audit := newTestRequestService(repo, &stubMinter{})

	request, err := svc.Create(context.Background(), validCreatePayload())
	require.NoError(t, err)

	pickup := time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)
	actor := &models.JWTClaims{UserID: "staff-1", Role: models.RoleStaff}
	updated, err := svc.Transition(context.Background(), request.ID, dto.TransitionPayload{
		TargetStatus:    models.StatusSet,
		ScheduledPickup: &pickup,
	}, actor)
	require.NoError(t, err)

	assert.Equal(t, models.StatusSet, updated.Status)
	require.NotNil(t, updated.ScheduledPickup)
	assert.Equal(t, pickup, *updated.ScheduledPickup)

	history := repo.tracking[request.ID]
	require.Len(t, history, 2)
	assert.Equal(t, models.StatusSet, history[1].Status)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionRequestTransition, audit.logs[0].Action)
}

func TestTransitionFullLifecycleAppendsHistory(t *testing.T) {
	repo := newStubRequestRepo()
	svc, _ := newTestRequestService(repo, &stubMinter{})
	actor := &models.JWTClaims{UserID: "staff-1", Role: models.RoleStaff}

	request, err := svc.Create(context.Background(), validCreatePayload())
	require.NoError(t, err)

	for _, target := range []models.RequestStatus{models.StatusSet, models.StatusReady, models.StatusReceived} {
		_, err := svc.Transition(context.Background(), request.ID, dto.TransitionPayload{TargetStatus: target}, actor)
		require.NoError(t, err)
	}

	final, err := svc.Get(context.Background(), request.ID, actor)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReceived, final.Status)
	assert.Equal(t, models.PickupCompleted, final.PickupStatus)
	require.NotNil(t, final.DateProcessed)
	require.NotNil(t, final.DateCompleted)
	require.NotNil(t, final.ProcessedBy)
	assert.Equal(t, "staff-1", *final.ProcessedBy)

	history, err := svc.History(context.Background(), request.ID, actor)
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, models.StatusPending, history[0].Status)
	assert.Equal(t, models.StatusReceived, history[3].Status)
}

func TestTransitionIllegalEdgeLeavesRequestUntouched(t *testing.T) {
	repo := newStubRequestRepo()
	svc, _ := newTestRequestService(repo, &stubMinter{})

	request, err := svc.Create(context.Background(), validCreatePayload())
	require.NoError(t, err)

	_, err = svc.Transition(context.Background(), request.ID, dto.TransitionPayload{
		TargetStatus: models.StatusReceived,
	}, nil)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrIllegalTransition.Code, appErr.Code)

	assert.Zero(t, repo.transitionCalls)
	unchanged, err := svc.Get(context.Background(), request.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, unchanged.Status)
	require.Len(t, repo.tracking[request.ID], 1)
}

func TestTransitionConcurrentLoserGetsConflict(t *testing.T) {
	repo := newStubRequestRepo()
	svc, _ := newTestRequestService(repo, &stubMinter{})

	request, err := svc.Create(context.Background(), validCreatePayload())
	require.NoError(t, err)
	repo.transitionErr = repository.ErrStatusChanged

	_, err = svc.Transition(context.Background(), request.ID, dto.TransitionPayload{
		TargetStatus: models.StatusSet,
	}, nil)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestTransitionUnknownRequest(t *testing.T) {
	repo := newStubRequestRepo()
	svc, _ := newTestRequestService(repo, &stubMinter{})

	_, err := svc.Transition(context.Background(), "missing", dto.TransitionPayload{
		TargetStatus: models.StatusSet,
	}, nil)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestRescheduleAllowedOnlyWhileProcessing(t *testing.T) {
	repo := newStubRequestRepo()
	svc, _ := newTestRequestService(repo, &stubMinter{})
	actor := &models.JWTClaims{UserID: "staff-1", Role: models.RoleStaff}

	request, err := svc.Create(context.Background(), validCreatePayload())
	require.NoError(t, err)

	newDate := time.Date(2026, 4, 20, 10, 0, 0, 0, time.UTC)
	_, err = svc.Reschedule(context.Background(), request.ID, dto.ReschedulePayload{NewDate: newDate}, actor)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrIllegalTransition.Code, appErr.Code)

	_, err = svc.Transition(context.Background(), request.ID, dto.TransitionPayload{TargetStatus: models.StatusSet}, actor)
	require.NoError(t, err)

	updated, err := svc.Reschedule(context.Background(), request.ID, dto.ReschedulePayload{NewDate: newDate}, actor)
	require.NoError(t, err)
	require.NotNil(t, updated.RescheduledPickup)
	assert.Equal(t, newDate, *updated.RescheduledPickup)
	assert.Equal(t, models.StatusSet, updated.Status)
}

func TestListEmptyScopeReturnsNothingWithoutQuerying(t *testing.T) {
	repo := newStubRequestRepo()
	svc, _ := newScopedRequestService(repo, &stubMinter{}, &stubScopes{scope: models.DepartmentScope{IDs: []string{}}})

	_, err := svc.Create(context.Background(), validCreatePayload())
	require.NoError(t, err)

	staff := &models.JWTClaims{UserID: "staff-1", Role: models.RoleStaff}
	requests, pagination, err := svc.List(context.Background(), models.RequestFilter{}, staff)
	require.NoError(t, err)
	assert.Empty(t, requests)
	assert.Equal(t, 0, pagination.TotalCount)
	assert.Zero(t, repo.listCalls)
}

func TestListStaffScopeNarrowsFilter(t *testing.T) {
	repo := newStubRequestRepo()
	svc, _ := newScopedRequestService(repo, &stubMinter{}, &stubScopes{scope: models.DepartmentScope{IDs: []string{"dept-1"}}})

	staff := &models.JWTClaims{UserID: "staff-1", Role: models.RoleStaff}
	_, _, err := svc.List(context.Background(), models.RequestFilter{}, staff)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.listCalls)
	assert.Equal(t, []string{"dept-1"}, repo.lastListFilter.DepartmentIDs)
}

func TestListUnrestrictedScopeLeavesFilterOpen(t *testing.T) {
	repo := newStubRequestRepo()
	svc, _ := newTestRequestService(repo, &stubMinter{})

	admin := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
	_, _, err := svc.List(context.Background(), models.RequestFilter{}, admin)
	require.NoError(t, err)
	assert.Nil(t, repo.lastListFilter.DepartmentIDs)
}

func TestGetEnforcesDepartmentScope(t *testing.T) {
	repo := newStubRequestRepo()
	courseID := "course-1"
	staff := &models.JWTClaims{UserID: "staff-1", Role: models.RoleStaff}

	inScope, _ := newScopedRequestService(repo, &stubMinter{}, &stubScopes{scope: models.DepartmentScope{IDs: []string{"dept-1"}}})
	payload := validCreatePayload()
	payload.CourseID = &courseID
	request, err := inScope.Create(context.Background(), payload)
	require.NoError(t, err)

	got, err := inScope.Get(context.Background(), request.ID, staff)
	require.NoError(t, err)
	assert.Equal(t, request.ID, got.ID)

	outOfScope, _ := newScopedRequestService(repo, &stubMinter{}, &stubScopes{scope: models.DepartmentScope{IDs: []string{"dept-2"}}})
	_, err = outOfScope.Get(context.Background(), request.ID, staff)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)

	_, err = outOfScope.History(context.Background(), request.ID, staff)
	require.Error(t, err)
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestGetCourselessRequestNeedsUnrestrictedScope(t *testing.T) {
	repo := newStubRequestRepo()
	staff := &models.JWTClaims{UserID: "staff-1", Role: models.RoleStaff}

	admin, _ := newTestRequestService(repo, &stubMinter{})
	request, err := admin.Create(context.Background(), validCreatePayload())
	require.NoError(t, err)
	require.Nil(t, request.CourseID)

	_, err = admin.Get(context.Background(), request.ID, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})
	require.NoError(t, err)

	scoped, _ := newScopedRequestService(repo, &stubMinter{}, &stubScopes{scope: models.DepartmentScope{IDs: []string{"dept-1"}}})
	_, err = scoped.Get(context.Background(), request.ID, staff)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestTrackByReferenceRedacts(t *testing.T) {
	repo := newStubRequestRepo()
	svc, _ := newTestRequestService(repo, &stubMinter{})

	request, err := svc.Create(context.Background(), validCreatePayload())
	require.NoError(t, err)

	view, err := svc.TrackByReference(context.Background(), request.ReferenceNumber)
	require.NoError(t, err)
	assert.Equal(t, request.ReferenceNumber, view.ReferenceNumber)
	assert.Equal(t, models.StatusPending, view.Status)

	_, err = svc.TrackByReference(context.Background(), "NOPE123456")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestUpdateAdminNotes(t *testing.T) {
	repo := newStubRequestRepo()
	svc, _ := newTestRequestService(repo, &stubMinter{})

	request, err := svc.Create(context.Background(), validCreatePayload())
	require.NoError(t, err)

	err = svc.UpdateAdminNotes(context.Background(), request.ID, dto.AdminNotesPayload{Notes: "claimant will send a representative"}, nil)
	require.NoError(t, err)

	updated, err := svc.Get(context.Background(), request.ID, nil)
	require.NoError(t, err)
	require.NotNil(t, updated.AdminNotes)
	assert.Equal(t, "claimant will send a representative", *updated.AdminNotes)
}
