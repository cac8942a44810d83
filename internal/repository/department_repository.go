package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/registrar-api/internal/models"
)

// DepartmentRepository persists departments and staff memberships.
type DepartmentRepository struct {
	db *sqlx.DB
}

// NewDepartmentRepository constructs the repository.
func NewDepartmentRepository(db *sqlx.DB) *DepartmentRepository {
	return &DepartmentRepository{db: db}
}

// FindByID returns a department by identifier.
func (r *DepartmentRepository) FindByID(ctx context.Context, id string) (*models.Department, error) {
	const query = `SELECT id, name, created_at FROM departments WHERE id = $1 LIMIT 1`
	var dept models.Department
	if err := r.db.GetContext(ctx, &dept, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find department: %w", err)
	}
	return &dept, nil
}

// List returns all departments ordered by name.
func (r *DepartmentRepository) List(ctx context.Context) ([]models.Department, error) {
	const query = `SELECT id, name, created_at FROM departments ORDER BY name`
	var departments []models.Department
	if err := r.db.SelectContext(ctx, &departments, query); err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	return departments, nil
}

// ListUserDepartmentIDs returns the departments a staff user belongs to.
// An empty result is a valid answer meaning no visibility.
func (r *DepartmentRepository) ListUserDepartmentIDs(ctx context.Context, userID string) ([]string, error) {
	const query = `SELECT department_id FROM user_departments WHERE user_id = $1 ORDER BY department_id`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, userID); err != nil {
		return nil, fmt.Errorf("list user departments: %w", err)
	}
	return ids, nil
}

// AssignUser adds a staff user to a department, ignoring duplicates.
func (r *DepartmentRepository) AssignUser(ctx context.Context, userID, departmentID string) error {
	const query = `INSERT INTO user_departments (user_id, department_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, userID, departmentID); err != nil {
		return fmt.Errorf("assign user department: %w", err)
	}
	return nil
}

// RemoveUser drops a staff membership.
func (r *DepartmentRepository) RemoveUser(ctx context.Context, userID, departmentID string) error {
	const query = `DELETE FROM user_departments WHERE user_id = $1 AND department_id = $2`
	if _, err := r.db.ExecContext(ctx, query, userID, departmentID); err != nil {
		return fmt.Errorf("remove user department: %w", err)
	}
	return nil
}
