package models

import (
	"time"

	"github.com/noah-isme/registrar-api/pkg/money"
)

// RequestStatus tracks office processing of a document request.
type RequestStatus string

const (
	StatusPending  RequestStatus = "PENDING"
	StatusSet      RequestStatus = "SET"
	StatusReady    RequestStatus = "READY"
	StatusReceived RequestStatus = "RECEIVED"
	StatusFailed   RequestStatus = "FAILED"
)

// PickupStatus tracks whether the physical handoff occurred.
type PickupStatus string

const (
	PickupPending   PickupStatus = "pending"
	PickupCompleted PickupStatus = "completed"
	PickupFailed    PickupStatus = "failed"
)

// legalTransitions is the complete request-status edge set. FAILED is
// reachable from any non-terminal state; RECEIVED and FAILED are terminal.
var legalTransitions = map[RequestStatus][]RequestStatus{
	StatusPending: {StatusSet, StatusFailed},
	StatusSet:     {StatusReady, StatusFailed},
	StatusReady:   {StatusReceived, StatusFailed},
}

// CanTransitionTo reports whether the edge from s to target is legal.
func (s RequestStatus) CanTransitionTo(target RequestStatus) bool {
	for _, next := range legalTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are allowed.
func (s RequestStatus) Terminal() bool {
	return s == StatusReceived || s == StatusFailed
}

// Valid reports whether the value is a known request status.
func (s RequestStatus) Valid() bool {
	switch s {
	case StatusPending, StatusSet, StatusReady, StatusReceived, StatusFailed:
		return true
	}
	return false
}

// DocumentRequest is the aggregate root for a registrar document request.
type DocumentRequest struct {
	ID                string        `db:"id" json:"id"`
	RequestNo         string        `db:"request_no" json:"request_no"`
	ReferenceNumber   string        `db:"reference_number" json:"reference_number"`
	RequesterID       string        `db:"requester_id" json:"requester_id"`
	RequesterType     RequesterType `db:"requester_type" json:"requester_type"`
	CourseID          *string       `db:"course_id" json:"course_id,omitempty"`
	PurposeID         *string       `db:"purpose_id" json:"purpose_id,omitempty"`
	OtherPurpose      *string       `db:"other_purpose" json:"other_purpose,omitempty"`
	Status            RequestStatus `db:"status" json:"status"`
	PickupStatus      PickupStatus  `db:"pickup_status" json:"pickup_status"`
	TotalAmount       money.Cents   `db:"total_amount" json:"total_amount"`
	ScheduledPickup   *time.Time    `db:"scheduled_pickup" json:"scheduled_pickup,omitempty"`
	RescheduledPickup *time.Time    `db:"rescheduled_pickup" json:"rescheduled_pickup,omitempty"`
	DateProcessed     *time.Time    `db:"date_processed" json:"date_processed,omitempty"`
	DateCompleted     *time.Time    `db:"date_completed" json:"date_completed,omitempty"`
	ProcessedBy       *string       `db:"processed_by" json:"processed_by,omitempty"`
	AdminNotes        *string       `db:"admin_notes" json:"admin_notes,omitempty"`
	CreatedAt         time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time     `db:"updated_at" json:"updated_at"`

	Documents []RequestDocument `db:"-" json:"documents,omitempty"`
}

// RequestDocument is a line item carrying the price snapshot taken at
// submission time. UnitPrice must never be recomputed from the catalog.
type RequestDocument struct {
	ID             string      `db:"id" json:"id"`
	RequestID      string      `db:"request_id" json:"request_id"`
	DocumentTypeID string      `db:"document_type_id" json:"document_type_id"`
	Quantity       int         `db:"quantity" json:"quantity"`
	UnitPrice      money.Cents `db:"unit_price" json:"unit_price"`
	TotalPrice     money.Cents `db:"total_price" json:"total_price"`
}

// RequestTracking is one append-only audit entry. Rows are written once per
// transition and never updated or deleted; the ordered sequence for a
// request reconstructs its full history.
type RequestTracking struct {
	ID        string        `db:"id" json:"id"`
	RequestID string        `db:"request_id" json:"request_id"`
	Status    RequestStatus `db:"status" json:"status"`
	ChangedBy *string       `db:"changed_by" json:"changed_by,omitempty"`
	Notes     *string       `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
}

// RequestFilter constrains request listing queries. A nil DepartmentIDs
// means unrestricted; an empty non-nil slice matches nothing. Scoped sets
// reach requests through their course's department, so requests without a
// course only appear on unrestricted listings.
type RequestFilter struct {
	Status        []RequestStatus
	RequesterType RequesterType
	Search        string
	DepartmentIDs []string
	Page          int
	PageSize      int
}

// ReportFilter is the department-scoped, date-ranged filter consumed by the
// storage layer for report queries. A nil DepartmentIDs means unrestricted
// (admin scope); an empty non-nil slice matches nothing.
type ReportFilter struct {
	From          time.Time
	To            time.Time
	DepartmentIDs []string
}
