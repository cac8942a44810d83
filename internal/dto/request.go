package dto

import (
	"time"

	"github.com/noah-isme/registrar-api/internal/models"
)

// RequestLine is one (documentType, quantity) pair on the intake form.
type RequestLine struct {
	DocumentTypeID string `json:"document_type_id" validate:"required"`
	Quantity       int    `json:"quantity" validate:"required,min=1"`
}

// CreateRequestPayload is the intake submission for a new document request.
type CreateRequestPayload struct {
	RequesterID   string               `json:"requester_id" validate:"required"`
	RequesterType models.RequesterType `json:"requester_type" validate:"required,oneof=STUDENT ALUMNI"`
	CourseID      *string              `json:"course_id,omitempty"`
	PurposeID     *string              `json:"purpose_id,omitempty"`
	OtherPurpose  *string              `json:"other_purpose,omitempty"`
	Lines         []RequestLine        `json:"lines" validate:"required,min=1,dive"`
}

// TransitionPayload moves a request to a target status.
type TransitionPayload struct {
	TargetStatus    models.RequestStatus `json:"target_status" validate:"required"`
	Notes           *string              `json:"notes,omitempty"`
	ScheduledPickup *time.Time           `json:"scheduled_pickup,omitempty"`
}

// ReschedulePayload sets a new pickup date while processing is underway.
type ReschedulePayload struct {
	NewDate time.Time `json:"new_date" validate:"required"`
}

// AdminNotesPayload updates free-text staff notes on a request.
type AdminNotesPayload struct {
	Notes string `json:"notes" validate:"required"`
}

// TrackingView is the redacted projection served on the public
// reference-number lookup.
type TrackingView struct {
	ReferenceNumber string               `json:"reference_number"`
	Status          models.RequestStatus `json:"status"`
	PickupStatus    models.PickupStatus  `json:"pickup_status"`
	ScheduledPickup *time.Time           `json:"scheduled_pickup,omitempty"`
	DateCompleted   *time.Time           `json:"date_completed,omitempty"`
}
