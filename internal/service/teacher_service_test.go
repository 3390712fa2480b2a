package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uphsl-enrollment-api/internal/models"
	appErrors "github.com/noah-isme/uphsl-enrollment-api/pkg/errors"
)

type mockTeacherRepo struct {
	teachers   map[string]models.Teacher
	collisions int
	failWith   error
}

func (m *mockTeacherRepo) FindByID(_ context.Context, id string) (*models.Teacher, error) {
	for _, t := range m.teachers {
		if t.ID == id {
			teacher := t
			return &teacher, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockTeacherRepo) FindByEmployeeID(_ context.Context, employeeID string) (*models.Teacher, error) {
	if t, ok := m.teachers[employeeID]; ok {
		return &t, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockTeacherRepo) Create(_ context.Context, teacher *models.Teacher) error {
	if m.failWith != nil {
		return m.failWith
	}
	if m.collisions > 0 {
		m.collisions--
		return fmt.Errorf("create teacher: %w", &pq.Error{Code: "23505"})
	}
	if m.teachers == nil {
		m.teachers = map[string]models.Teacher{}
	}
	teacher.ID = "row-" + teacher.EmployeeID
	m.teachers[teacher.EmployeeID] = *teacher
	return nil
}

type sequentialEmployeeIDs struct{ next int }

func (s *sequentialEmployeeIDs) GenerateEmployeeID(context.Context, string) (string, error) {
	id := fmt.Sprintf("T1425-%04d", s.next)
	s.next++
	return id, nil
}

func TestTeacherServiceRegister(t *testing.T) {
	repo := &mockTeacherRepo{collisions: 1}
	svc := NewTeacherService(repo, &sequentialEmployeeIDs{next: 1001}, nil, nil)

	teacher, err := svc.Register(context.Background(), RegisterTeacherRequest{
		Email: "prof@manila.uphsl.edu.ph", FirstName: "Lea", LastName: "Santos", Department: "bsit",
	})
	require.NoError(t, err)
	assert.Equal(t, "T1425-1002", teacher.EmployeeID)
	assert.Equal(t, "BSIT", teacher.Department)

	found, err := svc.Get(context.Background(), "T1425-1002")
	require.NoError(t, err)
	assert.Equal(t, teacher.ID, found.ID)

	byRow, err := svc.Get(context.Background(), teacher.ID)
	require.NoError(t, err)
	assert.Equal(t, "T1425-1002", byRow.EmployeeID)
}

func TestTeacherServiceRegisterErrors(t *testing.T) {
	svc := NewTeacherService(&mockTeacherRepo{}, &sequentialEmployeeIDs{next: 1001}, nil, nil)
	_, err := svc.Register(context.Background(), RegisterTeacherRequest{FirstName: "Lea"})
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)

	svc = NewTeacherService(&mockTeacherRepo{failWith: errors.New("db down")}, &sequentialEmployeeIDs{next: 1001}, nil, nil)
	_, err = svc.Register(context.Background(), RegisterTeacherRequest{FirstName: "Lea", LastName: "Santos", Department: "BSIT"})
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInternal.Code, appErr.Code)

	_, err = svc.Get(context.Background(), "T1425-9999")
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
