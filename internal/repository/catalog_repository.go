package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/registrar-api/internal/models"
)

// CatalogRepository persists document types, purposes, and courses.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository constructs the repository.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// FindDocumentType returns a document type regardless of active flag so
// historic requests stay resolvable.
func (r *CatalogRepository) FindDocumentType(ctx context.Context, id string) (*models.DocumentType, error) {
	const query = `SELECT id, name, base_price, active, created_at, updated_at FROM document_types WHERE id = $1 LIMIT 1`
	var dt models.DocumentType
	if err := r.db.GetContext(ctx, &dt, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find document type: %w", err)
	}
	return &dt, nil
}

// FindDocumentTypes returns the document types for the given ids, preserving
// no particular order. Missing ids are simply absent from the result.
func (r *CatalogRepository) FindDocumentTypes(ctx context.Context, ids []string) ([]models.DocumentType, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT id, name, base_price, active, created_at, updated_at FROM document_types WHERE id IN (%s)`,
		strings.Join(placeholders, ","))
	var types []models.DocumentType
	if err := r.db.SelectContext(ctx, &types, query, args...); err != nil {
		return nil, fmt.Errorf("find document types: %w", err)
	}
	return types, nil
}

// ListActiveDocumentTypes returns the types selectable on new requests.
func (r *CatalogRepository) ListActiveDocumentTypes(ctx context.Context) ([]models.DocumentType, error) {
	const query = `SELECT id, name, base_price, active, created_at, updated_at FROM document_types WHERE active = TRUE ORDER BY name`
	var types []models.DocumentType
	if err := r.db.SelectContext(ctx, &types, query); err != nil {
		return nil, fmt.Errorf("list document types: %w", err)
	}
	return types, nil
}

// SetDocumentTypeActive flips the soft-delete flag on a document type.
func (r *CatalogRepository) SetDocumentTypeActive(ctx context.Context, id string, active bool) error {
	const query = `UPDATE document_types SET active = $2, updated_at = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, active, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set document type active: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check document type update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// FindPurpose returns a request purpose by identifier.
func (r *CatalogRepository) FindPurpose(ctx context.Context, id string) (*models.RequestPurpose, error) {
	const query = `SELECT id, name, active, created_at FROM request_purposes WHERE id = $1 LIMIT 1`
	var purpose models.RequestPurpose
	if err := r.db.GetContext(ctx, &purpose, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find purpose: %w", err)
	}
	return &purpose, nil
}

// ListActivePurposes returns purposes selectable on new requests.
func (r *CatalogRepository) ListActivePurposes(ctx context.Context) ([]models.RequestPurpose, error) {
	const query = `SELECT id, name, active, created_at FROM request_purposes WHERE active = TRUE ORDER BY name`
	var purposes []models.RequestPurpose
	if err := r.db.SelectContext(ctx, &purposes, query); err != nil {
		return nil, fmt.Errorf("list purposes: %w", err)
	}
	return purposes, nil
}

// ListPurposesForDocumentType resolves the many-to-many join between
// document types and purposes.
func (r *CatalogRepository) ListPurposesForDocumentType(ctx context.Context, documentTypeID string) ([]models.RequestPurpose, error) {
	const query = `SELECT p.id, p.name, p.active, p.created_at
	FROM request_purposes p
	JOIN document_type_purposes dtp ON dtp.purpose_id = p.id
	WHERE dtp.document_type_id = $1 AND p.active = TRUE
	ORDER BY p.name`
	var purposes []models.RequestPurpose
	if err := r.db.SelectContext(ctx, &purposes, query, documentTypeID); err != nil {
		return nil, fmt.Errorf("list purposes for document type: %w", err)
	}
	return purposes, nil
}

// FindCourse returns a course by identifier.
func (r *CatalogRepository) FindCourse(ctx context.Context, id string) (*models.Course, error) {
	const query = `SELECT id, course_name, department_id, created_at FROM courses WHERE id = $1 LIMIT 1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find course: %w", err)
	}
	return &course, nil
}
