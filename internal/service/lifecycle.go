package service

import (
	"time"

	"github.com/noah-isme/registrar-api/internal/models"
	appErrors "github.com/noah-isme/registrar-api/pkg/errors"
)

// TransitionInput collects everything a status change may need.
type TransitionInput struct {
	Target          models.RequestStatus
	Actor           *string
	Notes           *string
	ScheduledPickup *time.Time
	Now             time.Time
}

// TransitionOutcome is the set of field mutations one legal transition
// produces. Only the state machine computes these; nothing else writes
// dateProcessed, dateCompleted, or the pickup axis.
type TransitionOutcome struct {
	Status          models.RequestStatus
	PickupStatus    *models.PickupStatus
	ScheduledPickup *time.Time
	DateProcessed   *time.Time
	DateCompleted   *time.Time
	ProcessedBy     *string
}

// PlanTransition validates the edge from the request's current status and
// computes the side effects per the lifecycle table:
//
//	PENDING  -> SET (sets scheduledPickup when provided), FAILED
//	SET      -> READY (dateProcessed, processedBy), FAILED
//	READY    -> RECEIVED (dateCompleted, pickup completed), FAILED
//
// RECEIVED and FAILED are terminal. Any other edge fails with
// ErrIllegalTransition and must not mutate anything.
func PlanTransition(current models.RequestStatus, in TransitionInput) (TransitionOutcome, error) {
	if !in.Target.Valid() {
		return TransitionOutcome{}, appErrors.Clone(appErrors.ErrValidation, "unknown target status")
	}
	if !current.CanTransitionTo(in.Target) {
		return TransitionOutcome{}, appErrors.ErrIllegalTransition
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	outcome := TransitionOutcome{Status: in.Target}

	switch in.Target {
	case models.StatusSet:
		if in.ScheduledPickup != nil {
			outcome.ScheduledPickup = in.ScheduledPickup
		}
	case models.StatusReady:
		processed := now
		outcome.DateProcessed = &processed
		outcome.ProcessedBy = in.Actor
	case models.StatusReceived:
		completed := now
		outcome.DateCompleted = &completed
		pickup := models.PickupCompleted
		outcome.PickupStatus = &pickup
	case models.StatusFailed:
		// The pickup axis only becomes meaningful once processing reached
		// READY; failing earlier leaves it untouched.
		if current == models.StatusReady {
			pickup := models.PickupFailed
			outcome.PickupStatus = &pickup
		}
	}

	return outcome, nil
}

// reschedulableStatuses are the only states in which pickup rescheduling is
// allowed.
var reschedulableStatuses = []models.RequestStatus{models.StatusSet, models.StatusReady}

// CanReschedule reports whether a pickup reschedule is allowed in the
// request's current status.
func CanReschedule(current models.RequestStatus) bool {
	for _, status := range reschedulableStatuses {
		if current == status {
			return true
		}
	}
	return false
}
