package models

import (
	"time"

	"github.com/noah-isme/registrar-api/pkg/money"
)

// Department groups courses and staff visibility.
type Department struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Course is an academic program, optionally owned by one department.
type Course struct {
	ID           string    `db:"id" json:"id"`
	CourseName   string    `db:"course_name" json:"course_name"`
	DepartmentID *string   `db:"department_id" json:"department_id,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// DocumentType is a requestable document with its current base price.
// Inactive types remain referenceable by historic requests but are
// rejected on new submissions.
type DocumentType struct {
	ID        string      `db:"id" json:"id"`
	Name      string      `db:"name" json:"name"`
	BasePrice money.Cents `db:"base_price" json:"base_price"`
	Active    bool        `db:"active" json:"active"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt time.Time   `db:"updated_at" json:"updated_at"`
}

// RequestPurpose names why a document is being requested.
type RequestPurpose struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
