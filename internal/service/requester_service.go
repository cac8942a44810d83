package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/noah-isme/registrar-api/internal/models"
	appErrors "github.com/noah-isme/registrar-api/pkg/errors"
)

type requesterStore interface {
	FindStudent(ctx context.Context, id string) (*models.Student, error)
	FindAlumni(ctx context.Context, id string) (*models.Alumni, error)
}

// RequesterService resolves the polymorphic requester reference into the
// uniform view used by pricing, notifications, and responses.
type RequesterService struct {
	repo requesterStore
}

// NewRequesterService constructs the service.
func NewRequesterService(repo requesterStore) *RequesterService {
	return &RequesterService{repo: repo}
}

// Resolve dispatches on the requester type. A missing row behind a valid
// reference is a broken foreign key and surfaces as NotFound rather than
// being defaulted away.
func (s *RequesterService) Resolve(ctx context.Context, id string, requesterType models.RequesterType) (*models.RequesterView, error) {
	switch requesterType {
	case models.RequesterStudent:
		student, err := s.repo.FindStudent(ctx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
		}
		return &models.RequesterView{
			ID:          student.ID,
			Type:        models.RequesterStudent,
			Email:       student.Email,
			FullName:    composeName(student.Surname, student.FirstName, student.MiddleInitial, student.Suffix),
			ContactNo:   student.ContactNo,
			CourseID:    student.CourseID,
			YearContext: student.YearLevel,
		}, nil
	case models.RequesterAlumni:
		alumni, err := s.repo.FindAlumni(ctx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "alumni record not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load alumni record")
		}
		return &models.RequesterView{
			ID:          alumni.ID,
			Type:        models.RequesterAlumni,
			Email:       alumni.Email,
			FullName:    composeName(alumni.Surname, alumni.FirstName, alumni.MiddleInitial, alumni.Suffix),
			ContactNo:   alumni.ContactNo,
			CourseID:    alumni.CourseID,
			YearContext: alumni.GraduationYear,
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown requester type")
	}
}

func composeName(surname, firstName string, middleInitial, suffix *string) string {
	parts := []string{firstName}
	if middleInitial != nil && *middleInitial != "" {
		parts = append(parts, *middleInitial+".")
	}
	parts = append(parts, surname)
	if suffix != nil && *suffix != "" {
		parts = append(parts, *suffix)
	}
	return strings.Join(parts, " ")
}
