package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/registrar-api/internal/models"
	appErrors "github.com/noah-isme/registrar-api/pkg/errors"
)

// ErrStatusChanged signals that the locked row no longer carries the status
// the caller validated against; the caller maps this to a conflict.
var ErrStatusChanged = errors.New("request status changed concurrently")

const pqUniqueViolation = "23505"

// RequestRepository persists document requests, their line items, and the
// append-only tracking trail. Every mutation of a request happens inside one
// transaction together with its tracking append.
type RequestRepository struct {
	db *sqlx.DB
}

// NewRequestRepository constructs the repository.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

const requestColumns = `id, request_no, reference_number, requester_id, requester_type, course_id, purpose_id, other_purpose,
	status, pickup_status, total_amount, scheduled_pickup, rescheduled_pickup, date_processed, date_completed,
	processed_by, admin_notes, created_at, updated_at`

// Create inserts the request aggregate: header, line items, and the initial
// PENDING tracking row, atomically. A unique violation on request_no or
// reference_number surfaces as ErrDuplicateIdentifier so the caller can
// re-mint and retry.
func (r *RequestRepository) Create(ctx context.Context, request *models.DocumentRequest, tracking *models.RequestTracking) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create request: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	if request.CreatedAt.IsZero() {
		request.CreatedAt = now
	}
	request.UpdatedAt = now

	const insertRequest = `INSERT INTO document_requests
	(id, request_no, reference_number, requester_id, requester_type, course_id, purpose_id, other_purpose,
	 status, pickup_status, total_amount, scheduled_pickup, rescheduled_pickup, date_processed, date_completed,
	 processed_by, admin_notes, created_at, updated_at)
	VALUES (:id, :request_no, :reference_number, :requester_id, :requester_type, :course_id, :purpose_id, :other_purpose,
	 :status, :pickup_status, :total_amount, :scheduled_pickup, :rescheduled_pickup, :date_processed, :date_completed,
	 :processed_by, :admin_notes, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insertRequest, request); err != nil {
		if isUniqueViolation(err) {
			return appErrors.Wrap(err, appErrors.ErrDuplicateIdentifier.Code, appErrors.ErrDuplicateIdentifier.Status, appErrors.ErrDuplicateIdentifier.Message)
		}
		return fmt.Errorf("insert request: %w", err)
	}

	const insertLine = `INSERT INTO request_documents (id, request_id, document_type_id, quantity, unit_price, total_price)
	VALUES (:id, :request_id, :document_type_id, :quantity, :unit_price, :total_price)`
	for i := range request.Documents {
		line := &request.Documents[i]
		if line.ID == "" {
			line.ID = uuid.NewString()
		}
		line.RequestID = request.ID
		if _, err = tx.NamedExecContext(ctx, insertLine, line); err != nil {
			return fmt.Errorf("insert request line: %w", err)
		}
	}

	if err = insertTracking(ctx, tx, tracking); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create request: %w", err)
	}
	return nil
}

// GetByID loads a request and its line items.
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*models.DocumentRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM document_requests WHERE id = $1 LIMIT 1`, requestColumns)
	var request models.DocumentRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get request: %w", err)
	}
	if err := r.loadDocuments(ctx, &request); err != nil {
		return nil, err
	}
	return &request, nil
}

// GetByReference loads a request by its public reference number.
func (r *RequestRepository) GetByReference(ctx context.Context, referenceNumber string) (*models.DocumentRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM document_requests WHERE reference_number = $1 LIMIT 1`, requestColumns)
	var request models.DocumentRequest
	if err := r.db.GetContext(ctx, &request, query, referenceNumber); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get request by reference: %w", err)
	}
	if err := r.loadDocuments(ctx, &request); err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *RequestRepository) loadDocuments(ctx context.Context, request *models.DocumentRequest) error {
	const query = `SELECT id, request_id, document_type_id, quantity, unit_price, total_price
	FROM request_documents WHERE request_id = $1 ORDER BY id`
	if err := r.db.SelectContext(ctx, &request.Documents, query, request.ID); err != nil {
		return fmt.Errorf("load request documents: %w", err)
	}
	return nil
}

// TransitionParams carries the field mutations computed by the lifecycle
// state machine for one status change.
type TransitionParams struct {
	ID              string
	FromStatus      models.RequestStatus
	ToStatus        models.RequestStatus
	PickupStatus    *models.PickupStatus
	ScheduledPickup *time.Time
	DateProcessed   *time.Time
	DateCompleted   *time.Time
	ProcessedBy     *string
	Tracking        models.RequestTracking
}

// ApplyTransition executes one status change: it locks the request row,
// re-checks the expected from-status against the locked value, applies the
// field mutations, and appends the tracking row, all in one transaction.
// A concurrent transition that commits first makes the locked status differ
// from FromStatus, and the call fails with ErrStatusChanged leaving nothing
// written.
func (r *RequestRepository) ApplyTransition(ctx context.Context, params TransitionParams) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transition: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var current struct {
		Status models.RequestStatus `db:"status"`
	}
	const lockQuery = `SELECT status FROM document_requests WHERE id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &current, lockQuery, params.ID); err != nil {
		if err == sql.ErrNoRows {
			return sql.ErrNoRows
		}
		return fmt.Errorf("lock request: %w", err)
	}
	if current.Status != params.FromStatus {
		err = ErrStatusChanged
		return err
	}

	now := time.Now().UTC()
	setParts := []string{"status = :status", "updated_at = :updated_at"}
	args := map[string]interface{}{
		"id":         params.ID,
		"status":     params.ToStatus,
		"updated_at": now,
	}
	if params.PickupStatus != nil {
		setParts = append(setParts, "pickup_status = :pickup_status")
		args["pickup_status"] = *params.PickupStatus
	}
	if params.ScheduledPickup != nil {
		setParts = append(setParts, "scheduled_pickup = :scheduled_pickup")
		args["scheduled_pickup"] = *params.ScheduledPickup
	}
	if params.DateProcessed != nil {
		setParts = append(setParts, "date_processed = :date_processed")
		args["date_processed"] = *params.DateProcessed
	}
	if params.DateCompleted != nil {
		setParts = append(setParts, "date_completed = :date_completed")
		args["date_completed"] = *params.DateCompleted
	}
	if params.ProcessedBy != nil {
		setParts = append(setParts, "processed_by = :processed_by")
		args["processed_by"] = *params.ProcessedBy
	}

	query := fmt.Sprintf("UPDATE document_requests SET %s WHERE id = :id", strings.Join(setParts, ", "))
	if _, err = tx.NamedExecContext(ctx, query, args); err != nil {
		return fmt.Errorf("update request status: %w", err)
	}

	tracking := params.Tracking
	tracking.RequestID = params.ID
	tracking.Status = params.ToStatus
	if err = insertTracking(ctx, tx, &tracking); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transition: %w", err)
	}
	return nil
}

// Reschedule sets the rescheduled pickup date. It does not change status and
// therefore writes no tracking row; the caller gates it on SET/READY.
func (r *RequestRepository) Reschedule(ctx context.Context, id string, fromStatuses []models.RequestStatus, newDate time.Time) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reschedule: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var current struct {
		Status models.RequestStatus `db:"status"`
	}
	const lockQuery = `SELECT status FROM document_requests WHERE id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &current, lockQuery, id); err != nil {
		if err == sql.ErrNoRows {
			return sql.ErrNoRows
		}
		return fmt.Errorf("lock request: %w", err)
	}
	allowed := false
	for _, status := range fromStatuses {
		if current.Status == status {
			allowed = true
			break
		}
	}
	if !allowed {
		err = ErrStatusChanged
		return err
	}

	const query = `UPDATE document_requests SET rescheduled_pickup = $2, updated_at = $3 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, query, id, newDate, time.Now().UTC()); err != nil {
		return fmt.Errorf("update rescheduled pickup: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit reschedule: %w", err)
	}
	return nil
}

// UpdateAdminNotes replaces the staff notes on a request.
func (r *RequestRepository) UpdateAdminNotes(ctx context.Context, id, notes string) error {
	const query = `UPDATE document_requests SET admin_notes = $2, updated_at = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, notes, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update admin notes: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check admin notes rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListTracking returns the full ordered history for a request, oldest first.
// Ties on created_at fall back to insertion order via the sequence column.
func (r *RequestRepository) ListTracking(ctx context.Context, requestID string) ([]models.RequestTracking, error) {
	const query = `SELECT id, request_id, status, changed_by, notes, created_at
	FROM request_tracking WHERE request_id = $1 ORDER BY created_at, seq`
	var entries []models.RequestTracking
	if err := r.db.SelectContext(ctx, &entries, query, requestID); err != nil {
		return nil, fmt.Errorf("list tracking: %w", err)
	}
	return entries, nil
}

// Report returns requests within the filter's date range. A nil department
// set means unrestricted: no course join at all, so requests without a
// course are included. A scoped set joins through courses and only matches
// requests whose course belongs to one of the departments.
func (r *RequestRepository) Report(ctx context.Context, filter models.ReportFilter) ([]models.DocumentRequest, error) {
	if filter.DepartmentIDs != nil && len(filter.DepartmentIDs) == 0 {
		return []models.DocumentRequest{}, nil
	}

	builder := strings.Builder{}
	args := []interface{}{filter.From, filter.To}
	builder.WriteString(fmt.Sprintf(`SELECT %s FROM document_requests dr`, prefixColumns("dr", requestColumns)))
	if filter.DepartmentIDs != nil {
		builder.WriteString(` JOIN courses c ON c.id = dr.course_id`)
	}
	builder.WriteString(` WHERE dr.created_at >= $1 AND dr.created_at < $2`)
	if filter.DepartmentIDs != nil {
		args = append(args, pq.Array(filter.DepartmentIDs))
		builder.WriteString(fmt.Sprintf(" AND c.department_id = ANY($%d)", len(args)))
	}
	builder.WriteString(" ORDER BY dr.created_at")

	var requests []models.DocumentRequest
	if err := r.db.SelectContext(ctx, &requests, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("report requests: %w", err)
	}
	return requests, nil
}

// List returns paginated requests matching the filter with a total count.
// Department scoping goes through the course join; a scoped set therefore
// never matches requests without a course.
func (r *RequestRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.DocumentRequest, int, error) {
	if filter.DepartmentIDs != nil && len(filter.DepartmentIDs) == 0 {
		return []models.DocumentRequest{}, 0, nil
	}

	baseQuery := `FROM document_requests WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.DepartmentIDs != nil {
		args = append(args, pq.Array(filter.DepartmentIDs))
		conditions = append(conditions, fmt.Sprintf("course_id IN (SELECT id FROM courses WHERE department_id = ANY($%d))", len(args)))
	}
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.RequesterType != "" {
		args = append(args, filter.RequesterType)
		conditions = append(conditions, fmt.Sprintf("requester_type = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToUpper(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("(UPPER(request_no) LIKE $%d OR UPPER(reference_number) LIKE $%d)", len(args), len(args)))
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", requestColumns, baseQuery, pageSize, offset)
	var requests []models.DocumentRequest
	if err := r.db.SelectContext(ctx, &requests, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list requests: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count requests: %w", err)
	}
	return requests, total, nil
}

func insertTracking(ctx context.Context, tx *sqlx.Tx, tracking *models.RequestTracking) error {
	if tracking.ID == "" {
		tracking.ID = uuid.NewString()
	}
	if tracking.CreatedAt.IsZero() {
		tracking.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO request_tracking (id, request_id, status, changed_by, notes, created_at)
	VALUES (:id, :request_id, :status, :changed_by, :notes, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, tracking); err != nil {
		return fmt.Errorf("insert tracking: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqUniqueViolation
	}
	return false
}

func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, part := range parts {
		parts[i] = alias + "." + strings.TrimSpace(part)
	}
	return strings.Join(parts, ", ")
}
