package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/registrar-api/internal/models"
)

type mockMembershipStore struct {
	ids map[string][]string
	err error
}

func (m *mockMembershipStore) ListUserDepartmentIDs(ctx context.Context, userID string) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.ids[userID], nil
}

func TestScopeForAdmin(t *testing.T) {
	svc := NewScopeService(&mockMembershipStore{})
	scope, err := svc.ScopeFor(context.Background(), &models.JWTClaims{UserID: "u1", Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.True(t, scope.All)
	assert.True(t, scope.Contains("any-department"))
}

func TestScopeForStaffMemberships(t *testing.T) {
	svc := NewScopeService(&mockMembershipStore{ids: map[string][]string{
		"u2": {"dept-1", "dept-3"},
	}})
	scope, err := svc.ScopeFor(context.Background(), &models.JWTClaims{UserID: "u2", Role: models.RoleStaff})
	require.NoError(t, err)
	assert.False(t, scope.All)
	assert.True(t, scope.Contains("dept-1"))
	assert.True(t, scope.Contains("dept-3"))
	assert.False(t, scope.Contains("dept-2"))
}

func TestScopeForStaffWithoutMemberships(t *testing.T) {
	svc := NewScopeService(&mockMembershipStore{})
	scope, err := svc.ScopeFor(context.Background(), &models.JWTClaims{UserID: "u3", Role: models.RoleStaff})
	require.NoError(t, err)
	assert.False(t, scope.All)
	require.NotNil(t, scope.IDs)
	assert.Empty(t, scope.IDs)
	assert.False(t, scope.Contains("dept-1"))
}

func TestScopeForMissingActor(t *testing.T) {
	svc := NewScopeService(&mockMembershipStore{})
	_, err := svc.ScopeFor(context.Background(), nil)
	require.Error(t, err)
}
