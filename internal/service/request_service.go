package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/registrar-api/internal/dto"
	"github.com/noah-isme/registrar-api/internal/models"
	"github.com/noah-isme/registrar-api/internal/repository"
	appErrors "github.com/noah-isme/registrar-api/pkg/errors"
	"github.com/noah-isme/registrar-api/pkg/money"
)

// mintAttempts bounds identifier re-mints on unique collisions; collisions
// are expected to be rare and transient.
const mintAttempts = 3

type requestStore interface {
	Create(ctx context.Context, request *models.DocumentRequest, tracking *models.RequestTracking) error
	GetByID(ctx context.Context, id string) (*models.DocumentRequest, error)
	GetByReference(ctx context.Context, referenceNumber string) (*models.DocumentRequest, error)
	ApplyTransition(ctx context.Context, params repository.TransitionParams) error
	Reschedule(ctx context.Context, id string, fromStatuses []models.RequestStatus, newDate time.Time) error
	UpdateAdminNotes(ctx context.Context, id, notes string) error
	ListTracking(ctx context.Context, requestID string) ([]models.RequestTracking, error)
	List(ctx context.Context, filter models.RequestFilter) ([]models.DocumentRequest, int, error)
}

type purposeStore interface {
	FindPurpose(ctx context.Context, id string) (*models.RequestPurpose, error)
	FindCourse(ctx context.Context, id string) (*models.Course, error)
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type requesterResolver interface {
	Resolve(ctx context.Context, id string, requesterType models.RequesterType) (*models.RequesterView, error)
}

type linePricer interface {
	Price(ctx context.Context, lines []dto.RequestLine) ([]models.RequestDocument, money.Cents, error)
}

type identifierMinter interface {
	Mint() (RequestIdentifiers, error)
}

// RequestService owns the document request lifecycle: intake, status
// transitions, rescheduling, and history. Staff reads go through the
// department scope; admins are unrestricted.
type RequestService struct {
	repo          requestStore
	catalog       purposeStore
	requesters    requesterResolver
	pricing       linePricer
	ids           identifierMinter
	scopes        scopeResolver
	audit         auditLogger
	notifications *NotificationService
	metrics       *MetricsService
	validator     *validator.Validate
	logger        *zap.Logger
	now           func() time.Time
}

// NewRequestService constructs the service.
func NewRequestService(
	repo requestStore,
	catalog purposeStore,
	requesters requesterResolver,
	pricing linePricer,
	ids identifierMinter,
	scopes scopeResolver,
	audit auditLogger,
	notifications *NotificationService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *RequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &RequestService{
		repo:          repo,
		catalog:       catalog,
		requesters:    requesters,
		pricing:       pricing,
		ids:           ids,
		scopes:        scopes,
		audit:         audit,
		notifications: notifications,
		metrics:       metrics,
		validator:     validate,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Create builds and persists a new request: requester resolution, catalog
// pricing with price snapshots, identifier minting, and the initial PENDING
// tracking row, all in one transaction. Identifier collisions re-mint a
// bounded number of times before surfacing as a conflict.
func (s *RequestService) Create(ctx context.Context, payload dto.CreateRequestPayload) (*models.DocumentRequest, error) {
	if err := s.validator.Struct(payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request payload")
	}
	if !payload.RequesterType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown requester type")
	}
	if payload.PurposeID == nil && (payload.OtherPurpose == nil || *payload.OtherPurpose == "") {
		return nil, appErrors.Clone(appErrors.ErrValidation, "either a purpose or a free-text purpose is required")
	}

	requester, err := s.requesters.Resolve(ctx, payload.RequesterID, payload.RequesterType)
	if err != nil {
		return nil, err
	}

	if payload.PurposeID != nil {
		purpose, err := s.catalog.FindPurpose(ctx, *payload.PurposeID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "request purpose not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load purpose")
		}
		if !purpose.Active {
			return nil, appErrors.Clone(appErrors.ErrValidation, "request purpose is no longer offered")
		}
	}

	courseID := payload.CourseID
	if courseID == nil {
		courseID = requester.CourseID
	}
	if courseID != nil {
		if _, err := s.catalog.FindCourse(ctx, *courseID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
		}
	}

	documents, total, err := s.pricing.Price(ctx, payload.Lines)
	if err != nil {
		return nil, err
	}

	var request *models.DocumentRequest
	for attempt := 0; attempt < mintAttempts; attempt++ {
		identifiers, err := s.ids.Mint()
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mint identifiers")
		}
		candidate := &models.DocumentRequest{
			ID:              identifiers.ID,
			RequestNo:       identifiers.RequestNo,
			ReferenceNumber: identifiers.ReferenceNumber,
			RequesterID:     requester.ID,
			RequesterType:   requester.Type,
			CourseID:        courseID,
			PurposeID:       payload.PurposeID,
			OtherPurpose:    payload.OtherPurpose,
			Status:          models.StatusPending,
			PickupStatus:    models.PickupPending,
			TotalAmount:     total,
			Documents:       cloneDocuments(documents),
		}
		tracking := &models.RequestTracking{
			RequestID: candidate.ID,
			Status:    models.StatusPending,
		}
		err = s.repo.Create(ctx, candidate, tracking)
		if err == nil {
			request = candidate
			break
		}
		var appErr *appErrors.Error
		if errors.As(err, &appErr) && appErr.Code == appErrors.ErrDuplicateIdentifier.Code {
			s.logger.Warn("identifier collision, re-minting", zap.Int("attempt", attempt+1))
			continue
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist request")
	}
	if request == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "could not mint unique identifiers")
	}

	s.metrics.RecordRequestCreated()
	s.notifications.Notify(NotificationEvent{
		Kind:            NotificationRequestCreated,
		RequestID:       request.ID,
		RequestNo:       request.RequestNo,
		ReferenceNumber: request.ReferenceNumber,
		Status:          request.Status,
		RecipientEmail:  requester.Email,
		RecipientName:   requester.FullName,
	})
	return request, nil
}

// Transition moves a request to the target status. The state machine
// validates the edge and computes derived fields; the repository applies
// them with the tracking append under a row lock. A losing race surfaces as
// a conflict without any partial write.
func (s *RequestService) Transition(ctx context.Context, requestID string, payload dto.TransitionPayload, actor *models.JWTClaims) (*models.DocumentRequest, error) {
	request, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}

	var actorID *string
	if actor != nil {
		actorID = &actor.UserID
	}
	outcome, err := PlanTransition(request.Status, TransitionInput{
		Target:          payload.TargetStatus,
		Actor:           actorID,
		Notes:           payload.Notes,
		ScheduledPickup: payload.ScheduledPickup,
		Now:             s.now(),
	})
	if err != nil {
		return nil, err
	}

	err = s.repo.ApplyTransition(ctx, repository.TransitionParams{
		ID:              request.ID,
		FromStatus:      request.Status,
		ToStatus:        outcome.Status,
		PickupStatus:    outcome.PickupStatus,
		ScheduledPickup: outcome.ScheduledPickup,
		DateProcessed:   outcome.DateProcessed,
		DateCompleted:   outcome.DateCompleted,
		ProcessedBy:     outcome.ProcessedBy,
		Tracking: models.RequestTracking{
			ChangedBy: actorID,
			Notes:     payload.Notes,
		},
	})
	if err != nil {
		if errors.Is(err, repository.ErrStatusChanged) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "request status changed concurrently")
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply transition")
	}

	s.metrics.RecordTransition(outcome.Status)
	s.emitAudit(ctx, actor, models.AuditActionRequestTransition, request.ID, map[string]interface{}{
		"from": request.Status,
		"to":   outcome.Status,
	})

	updated, err := s.repo.GetByID(ctx, request.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload request")
	}
	s.notifications.Notify(NotificationEvent{
		Kind:            NotificationStatusChanged,
		RequestID:       updated.ID,
		RequestNo:       updated.RequestNo,
		ReferenceNumber: updated.ReferenceNumber,
		Status:          updated.Status,
	})
	return updated, nil
}

// Reschedule sets a new pickup date while the request is in SET or READY.
// The operation never changes request status.
func (s *RequestService) Reschedule(ctx context.Context, requestID string, payload dto.ReschedulePayload, actor *models.JWTClaims) (*models.DocumentRequest, error) {
	if err := s.validator.Struct(payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reschedule payload")
	}
	request, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	if !CanReschedule(request.Status) {
		return nil, appErrors.Clone(appErrors.ErrIllegalTransition, "pickup can only be rescheduled while the request is being processed")
	}

	err = s.repo.Reschedule(ctx, request.ID, reschedulableStatuses, payload.NewDate)
	if err != nil {
		if errors.Is(err, repository.ErrStatusChanged) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "request status changed concurrently")
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reschedule pickup")
	}

	s.emitAudit(ctx, actor, models.AuditActionRequestReschedule, request.ID, map[string]interface{}{
		"new_date": payload.NewDate,
	})

	updated, err := s.repo.GetByID(ctx, request.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload request")
	}
	s.notifications.Notify(NotificationEvent{
		Kind:            NotificationPickupRescheduled,
		RequestID:       updated.ID,
		RequestNo:       updated.RequestNo,
		ReferenceNumber: updated.ReferenceNumber,
		Status:          updated.Status,
	})
	return updated, nil
}

// Get loads a request by internal identifier. The actor must have the
// request's department in scope; requests without a course are visible to
// unrestricted actors only.
func (s *RequestService) Get(ctx context.Context, requestID string, actor *models.JWTClaims) (*models.DocumentRequest, error) {
	request, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	if err := s.authorizeRead(ctx, request, actor); err != nil {
		return nil, err
	}
	return request, nil
}

// History returns the full ordered tracking trail for a request, subject to
// the same scope check as Get.
func (s *RequestService) History(ctx context.Context, requestID string, actor *models.JWTClaims) ([]models.RequestTracking, error) {
	if _, err := s.Get(ctx, requestID, actor); err != nil {
		return nil, err
	}
	entries, err := s.repo.ListTracking(ctx, requestID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tracking history")
	}
	return entries, nil
}

// authorizeRead verifies the actor's department scope covers the request.
// Scope reaches a request through its course's department, so a request
// without a course, or whose course has no department, is only readable by
// an unrestricted actor.
func (s *RequestService) authorizeRead(ctx context.Context, request *models.DocumentRequest, actor *models.JWTClaims) error {
	scope, err := s.scopes.ScopeFor(ctx, actor)
	if err != nil {
		return err
	}
	if scope.All {
		return nil
	}
	if request.CourseID == nil {
		return appErrors.Clone(appErrors.ErrForbidden, "request is outside your department scope")
	}
	course, err := s.catalog.FindCourse(ctx, *request.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrForbidden, "request is outside your department scope")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if course.DepartmentID == nil || !scope.Contains(*course.DepartmentID) {
		return appErrors.Clone(appErrors.ErrForbidden, "request is outside your department scope")
	}
	return nil
}

// TrackByReference serves the public status lookup, exposing only the
// redacted projection.
func (s *RequestService) TrackByReference(ctx context.Context, referenceNumber string) (*dto.TrackingView, error) {
	request, err := s.repo.GetByReference(ctx, referenceNumber)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no request matches that reference number")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up reference")
	}
	return &dto.TrackingView{
		ReferenceNumber: request.ReferenceNumber,
		Status:          request.Status,
		PickupStatus:    request.PickupStatus,
		ScheduledPickup: request.ScheduledPickup,
		DateCompleted:   request.DateCompleted,
	}, nil
}

// List returns paginated requests for the staff console, narrowed to the
// actor's department scope. An actor with no memberships sees nothing.
func (s *RequestService) List(ctx context.Context, filter models.RequestFilter, actor *models.JWTClaims) ([]models.DocumentRequest, *models.Pagination, error) {
	scope, err := s.scopes.ScopeFor(ctx, actor)
	if err != nil {
		return nil, nil, err
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	if !scope.All {
		if len(scope.IDs) == 0 {
			return []models.DocumentRequest{}, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: 0}, nil
		}
		filter.DepartmentIDs = scope.IDs
	}
	requests, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
	}
	return requests, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// UpdateAdminNotes replaces the staff notes on a request.
func (s *RequestService) UpdateAdminNotes(ctx context.Context, requestID string, payload dto.AdminNotesPayload, actor *models.JWTClaims) error {
	if err := s.validator.Struct(payload); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid notes payload")
	}
	if err := s.repo.UpdateAdminNotes(ctx, requestID, payload.Notes); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update notes")
	}
	return nil
}

func (s *RequestService) emitAudit(ctx context.Context, actor *models.JWTClaims, action, resourceID string, values map[string]interface{}) {
	if s.audit == nil {
		return
	}
	var userID *string
	if actor != nil {
		userID = &actor.UserID
	}
	payload, _ := json.Marshal(values)
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     userID,
		Action:     action,
		Resource:   "document_request",
		ResourceID: &resourceID,
		NewValues:  payload,
	}); err != nil {
		s.logger.Warn("audit log write failed", zap.String("action", action), zap.Error(err))
	}
}

func cloneDocuments(documents []models.RequestDocument) []models.RequestDocument {
	cloned := make([]models.RequestDocument, len(documents))
	copy(cloned, documents)
	return cloned
}
