package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/registrar-api/internal/models"
	appErrors "github.com/noah-isme/registrar-api/pkg/errors"
)

func newRequestRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func sampleRequest() *models.DocumentRequest {
	return &models.DocumentRequest{
		ID:              "req-1",
		RequestNo:       "DR-20260310-A2C4E6",
		ReferenceNumber: "REF7K2M9QXZ",
		RequesterID:     "student-1",
		RequesterType:   models.RequesterStudent,
		Status:          models.StatusPending,
		PickupStatus:    models.PickupPending,
		TotalAmount:     13000,
		Documents: []models.RequestDocument{
			{DocumentTypeID: "dt-a", Quantity: 2, UnitPrice: 5000, TotalPrice: 10000},
			{DocumentTypeID: "dt-b", Quantity: 1, UnitPrice: 3000, TotalPrice: 3000},
		},
	}
}

func TestRequestRepositoryCreateWritesAggregateAtomically(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO document_requests")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO request_documents")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO request_documents")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO request_tracking")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	request := sampleRequest()
	tracking := &models.RequestTracking{RequestID: request.ID, Status: models.StatusPending}
	require.NoError(t, repo.Create(context.Background(), request, tracking))
	require.NotEmpty(t, tracking.ID)
	require.Equal(t, request.ID, request.Documents[0].RequestID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryCreateMapsUniqueViolation(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO document_requests")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "document_requests_reference_number_key"})
	mock.ExpectRollback()

	request := sampleRequest()
	err := repo.Create(context.Background(), request, &models.RequestTracking{RequestID: request.ID, Status: models.StatusPending})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, appErrors.ErrDuplicateIdentifier.Code, appErr.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryApplyTransitionLocksAndAppends(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM document_requests WHERE id = $1 FOR UPDATE")).
		WithArgs("req-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("SET"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE document_requests SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO request_tracking")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	processed := time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC)
	staff := "staff-1"
	err := repo.ApplyTransition(context.Background(), TransitionParams{
		ID:            "req-1",
		FromStatus:    models.StatusSet,
		ToStatus:      models.StatusReady,
		DateProcessed: &processed,
		ProcessedBy:   &staff,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryApplyTransitionDetectsConcurrentChange(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM document_requests WHERE id = $1 FOR UPDATE")).
		WithArgs("req-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("READY"))
	mock.ExpectRollback()

	err := repo.ApplyTransition(context.Background(), TransitionParams{
		ID:         "req-1",
		FromStatus: models.StatusSet,
		ToStatus:   models.StatusReady,
	})
	require.ErrorIs(t, err, ErrStatusChanged)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryRescheduleChecksStatusUnderLock(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM document_requests WHERE id = $1 FOR UPDATE")).
		WithArgs("req-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("PENDING"))
	mock.ExpectRollback()

	err := repo.Reschedule(context.Background(), "req-1",
		[]models.RequestStatus{models.StatusSet, models.StatusReady},
		time.Date(2026, 3, 20, 9, 0, 0, 0, time.UTC))
	require.ErrorIs(t, err, ErrStatusChanged)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryReportScopesDepartments(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	columns := []string{"id", "request_no", "reference_number", "requester_id", "requester_type", "course_id", "purpose_id", "other_purpose",
		"status", "pickup_status", "total_amount", "scheduled_pickup", "rescheduled_pickup", "date_processed", "date_completed",
		"processed_by", "admin_notes", "created_at", "updated_at"}
	mock.ExpectQuery(regexp.QuoteMeta("JOIN courses c ON c.id = dr.course_id")).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("req-1", "DR-20260310-A2C4E6", "REF7K2M9QXZ", "student-1", "STUDENT", "course-1", nil, nil,
				"RECEIVED", "completed", "130.00", nil, nil, nil, nil, nil, nil, time.Now(), time.Now()))

	rows, err := repo.Report(context.Background(), models.ReportFilter{
		From:          from,
		To:            to,
		DepartmentIDs: []string{"dept-1"},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, models.StatusReceived, rows[0].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryReportUnrestrictedIncludesCourselessRequests(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	columns := []string{"id", "request_no", "reference_number", "requester_id", "requester_type", "course_id", "purpose_id", "other_purpose",
		"status", "pickup_status", "total_amount", "scheduled_pickup", "rescheduled_pickup", "date_processed", "date_completed",
		"processed_by", "admin_notes", "created_at", "updated_at"}
	mock.ExpectQuery(regexp.QuoteMeta("FROM document_requests dr WHERE dr.created_at >= $1 AND dr.created_at < $2")).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("req-1", "DR-20260310-A2C4E6", "REF7K2M9QXZ", "walkin-1", "ALUMNI", nil, nil, nil,
				"RECEIVED", "completed", "130.00", nil, nil, nil, nil, nil, nil, time.Now(), time.Now()))

	rows, err := repo.Report(context.Background(), models.ReportFilter{
		From: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Nil(t, rows[0].CourseID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryListScopesDepartmentsThroughCourses(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	columns := []string{"id", "request_no", "reference_number", "requester_id", "requester_type", "course_id", "purpose_id", "other_purpose",
		"status", "pickup_status", "total_amount", "scheduled_pickup", "rescheduled_pickup", "date_processed", "date_completed",
		"processed_by", "admin_notes", "created_at", "updated_at"}
	scoped := regexp.QuoteMeta("course_id IN (SELECT id FROM courses WHERE department_id = ANY($1))")
	mock.ExpectQuery(scoped).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("req-1", "DR-20260310-A2C4E6", "REF7K2M9QXZ", "student-1", "STUDENT", "course-1", nil, nil,
				"PENDING", "pending", "130.00", nil, nil, nil, nil, nil, nil, time.Now(), time.Now()))
	mock.ExpectQuery(scoped).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	rows, total, err := repo.List(context.Background(), models.RequestFilter{DepartmentIDs: []string{"dept-1"}})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, 1, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryListEmptyScopeShortCircuits(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	rows, total, err := repo.List(context.Background(), models.RequestFilter{DepartmentIDs: []string{}})
	require.NoError(t, err)
	require.Empty(t, rows)
	require.Zero(t, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryReportEmptyScopeShortCircuits(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	rows, err := repo.Report(context.Background(), models.ReportFilter{
		From:          time.Now().Add(-time.Hour),
		To:            time.Now(),
		DepartmentIDs: []string{},
	})
	require.NoError(t, err)
	require.Empty(t, rows)
	require.NoError(t, mock.ExpectationsWereMet())
}
