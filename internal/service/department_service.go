package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/noah-isme/registrar-api/internal/models"
	appErrors "github.com/noah-isme/registrar-api/pkg/errors"
)

type departmentStore interface {
	FindByID(ctx context.Context, id string) (*models.Department, error)
	List(ctx context.Context) ([]models.Department, error)
	ListUserDepartmentIDs(ctx context.Context, userID string) ([]string, error)
	AssignUser(ctx context.Context, userID, departmentID string) error
	RemoveUser(ctx context.Context, userID, departmentID string) error
}

// DepartmentService manages departments and the staff membership sets that
// drive report visibility.
type DepartmentService struct {
	repo departmentStore
}

// NewDepartmentService constructs the service.
func NewDepartmentService(repo departmentStore) *DepartmentService {
	return &DepartmentService{repo: repo}
}

// List returns all departments.
func (s *DepartmentService) List(ctx context.Context) ([]models.Department, error) {
	departments, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list departments")
	}
	if departments == nil {
		departments = []models.Department{}
	}
	return departments, nil
}

// Memberships returns the department IDs a user belongs to.
func (s *DepartmentService) Memberships(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.repo.ListUserDepartmentIDs(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list memberships")
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// Assign grants a user visibility over a department.
func (s *DepartmentService) Assign(ctx context.Context, userID, departmentID string) error {
	if _, err := s.repo.FindByID(ctx, departmentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "department not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load department")
	}
	if err := s.repo.AssignUser(ctx, userID, departmentID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign department")
	}
	return nil
}

// Remove revokes a user's visibility over a department.
func (s *DepartmentService) Remove(ctx context.Context, userID, departmentID string) error {
	if err := s.repo.RemoveUser(ctx, userID, departmentID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove department")
	}
	return nil
}
