package service

import (
	"context"

	"github.com/noah-isme/registrar-api/internal/models"
	appErrors "github.com/noah-isme/registrar-api/pkg/errors"
)

type membershipStore interface {
	ListUserDepartmentIDs(ctx context.Context, userID string) ([]string, error)
}

// ScopeService computes the department visibility set for a staff user.
type ScopeService struct {
	repo membershipStore
}

// NewScopeService constructs the service.
func NewScopeService(repo membershipStore) *ScopeService {
	return &ScopeService{repo: repo}
}

// ScopeFor returns the departments the actor may see. Admins see everything.
// Staff see exactly their membership set; an empty set means no visibility,
// never all visibility.
func (s *ScopeService) ScopeFor(ctx context.Context, actor *models.JWTClaims) (models.DepartmentScope, error) {
	if actor == nil {
		return models.DepartmentScope{}, appErrors.ErrUnauthorized
	}
	if actor.Role == models.RoleAdmin {
		return models.DepartmentScope{All: true}, nil
	}
	ids, err := s.repo.ListUserDepartmentIDs(ctx, actor.UserID)
	if err != nil {
		return models.DepartmentScope{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load department memberships")
	}
	if ids == nil {
		ids = []string{}
	}
	return models.DepartmentScope{IDs: ids}, nil
}
