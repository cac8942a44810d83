package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/registrar-api/internal/models"
)

// RequesterRepository provides lookups over the two requester tables.
type RequesterRepository struct {
	db *sqlx.DB
}

// NewRequesterRepository constructs the repository.
func NewRequesterRepository(db *sqlx.DB) *RequesterRepository {
	return &RequesterRepository{db: db}
}

// FindStudent returns a student by identifier.
func (r *RequesterRepository) FindStudent(ctx context.Context, id string) (*models.Student, error) {
	const query = `SELECT id, student_number, email, surname, first_name, middle_initial, suffix, contact_no, course_id, year_level, created_at, updated_at
	FROM students WHERE id = $1 LIMIT 1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student: %w", err)
	}
	return &student, nil
}

// FindAlumni returns an alumni record by identifier.
func (r *RequesterRepository) FindAlumni(ctx context.Context, id string) (*models.Alumni, error) {
	const query = `SELECT id, email, surname, first_name, middle_initial, suffix, contact_no, course_id, graduation_year, created_at, updated_at
	FROM alumni WHERE id = $1 LIMIT 1`
	var alumni models.Alumni
	if err := r.db.GetContext(ctx, &alumni, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find alumni: %w", err)
	}
	return &alumni, nil
}
