package models

import "time"

// RequesterType discriminates the concrete table backing a requester reference.
type RequesterType string

const (
	RequesterStudent RequesterType = "STUDENT"
	RequesterAlumni  RequesterType = "ALUMNI"
)

// Valid reports whether the type names a known requester variant.
func (t RequesterType) Valid() bool {
	return t == RequesterStudent || t == RequesterAlumni
}

// Student is a currently enrolled requester.
type Student struct {
	ID            string    `db:"id" json:"id"`
	StudentNumber string    `db:"student_number" json:"student_number"`
	Email         string    `db:"email" json:"email"`
	Surname       string    `db:"surname" json:"surname"`
	FirstName     string    `db:"first_name" json:"first_name"`
	MiddleInitial *string   `db:"middle_initial" json:"middle_initial,omitempty"`
	Suffix        *string   `db:"suffix" json:"suffix,omitempty"`
	ContactNo     string    `db:"contact_no" json:"contact_no"`
	CourseID      *string   `db:"course_id" json:"course_id,omitempty"`
	YearLevel     int       `db:"year_level" json:"year_level"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Alumni is a graduated requester.
type Alumni struct {
	ID             string    `db:"id" json:"id"`
	Email          string    `db:"email" json:"email"`
	Surname        string    `db:"surname" json:"surname"`
	FirstName      string    `db:"first_name" json:"first_name"`
	MiddleInitial  *string   `db:"middle_initial" json:"middle_initial,omitempty"`
	Suffix         *string   `db:"suffix" json:"suffix,omitempty"`
	ContactNo      string    `db:"contact_no" json:"contact_no"`
	CourseID       *string   `db:"course_id" json:"course_id,omitempty"`
	GraduationYear int       `db:"graduation_year" json:"graduation_year"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// RequesterView is the uniform projection over both requester variants so
// downstream consumers never type-switch on the backing table.
type RequesterView struct {
	ID          string        `json:"id"`
	Type        RequesterType `json:"type"`
	Email       string        `json:"email"`
	FullName    string        `json:"full_name"`
	ContactNo   string        `json:"contact_no"`
	CourseID    *string       `json:"course_id,omitempty"`
	YearContext int           `json:"year_context"`
}
