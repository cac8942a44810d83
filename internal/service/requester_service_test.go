package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/registrar-api/internal/models"
	appErrors "github.com/noah-isme/registrar-api/pkg/errors"
)

type mockRequesterStore struct {
	students map[string]*models.Student
	alumni   map[string]*models.Alumni
}

func (m *mockRequesterStore) FindStudent(ctx context.Context, id string) (*models.Student, error) {
	if s, ok := m.students[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockRequesterStore) FindAlumni(ctx context.Context, id string) (*models.Alumni, error) {
	if a, ok := m.alumni[id]; ok {
		return a, nil
	}
	return nil, sql.ErrNoRows
}

func TestResolveStudent(t *testing.T) {
	mi := "B"
	courseID := "course-1"
	svc := NewRequesterService(&mockRequesterStore{students: map[string]*models.Student{
		"s1": {
			ID:            "s1",
			Surname:       "Reyes",
			FirstName:     "Maria",
			MiddleInitial: &mi,
			Email:         "maria@example.edu",
			CourseID:      &courseID,
			YearLevel:     3,
		},
	}})

	view, err := svc.Resolve(context.Background(), "s1", models.RequesterStudent)
	require.NoError(t, err)
	assert.Equal(t, models.RequesterStudent, view.Type)
	assert.Equal(t, "Maria B. Reyes", view.FullName)
	assert.Equal(t, "maria@example.edu", view.Email)
	require.NotNil(t, view.CourseID)
	assert.Equal(t, "course-1", *view.CourseID)
}

func TestResolveAlumni(t *testing.T) {
	svc := NewRequesterService(&mockRequesterStore{alumni: map[string]*models.Alumni{
		"a1": {
			ID:             "a1",
			Surname:        "Santos",
			FirstName:      "Jose",
			Email:          "jose@example.com",
			GraduationYear: 2019,
		},
	}})

	view, err := svc.Resolve(context.Background(), "a1", models.RequesterAlumni)
	require.NoError(t, err)
	assert.Equal(t, models.RequesterAlumni, view.Type)
	assert.Equal(t, "Jose Santos", view.FullName)
	assert.Equal(t, 2019, view.YearContext)
}

func TestResolveMissingRecordIsNotFound(t *testing.T) {
	svc := NewRequesterService(&mockRequesterStore{})

	_, err := svc.Resolve(context.Background(), "ghost", models.RequesterStudent)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestResolveUnknownType(t *testing.T) {
	svc := NewRequesterService(&mockRequesterStore{})

	_, err := svc.Resolve(context.Background(), "s1", models.RequesterType("FACULTY"))
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}
