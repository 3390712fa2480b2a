package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/uphsl-enrollment-api/internal/models"
	appErrors "github.com/noah-isme/uphsl-enrollment-api/pkg/errors"
)

type mockStudentRepo struct {
	students   map[string]models.Student
	collisions int
	lastFilter models.StudentFilter
	listTotal  int
	err        error
}

func (m *mockStudentRepo) List(_ context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	m.lastFilter = filter
	if m.err != nil {
		return nil, 0, m.err
	}
	out := make([]models.Student, 0, len(m.students))
	for _, s := range m.students {
		out = append(out, s)
	}
	return out, m.listTotal, nil
}

func (m *mockStudentRepo) FindByID(_ context.Context, id string) (*models.Student, error) {
	for _, s := range m.students {
		if s.ID == id {
			student := s
			return &student, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) FindByStudentID(_ context.Context, studentID string) (*models.Student, error) {
	if s, ok := m.students[studentID]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) Create(_ context.Context, student *models.Student) error {
	if m.collisions > 0 {
		m.collisions--
		return fmt.Errorf("create student: %w", &pq.Error{Code: "23505", Constraint: "students_student_id_key"})
	}
	if m.students == nil {
		m.students = make(map[string]models.Student)
	}
	if _, ok := m.students[student.StudentID]; ok {
		return fmt.Errorf("create student: %w", &pq.Error{Code: "23505"})
	}
	student.ID = "row-" + student.StudentID
	m.students[student.StudentID] = *student
	return nil
}

type sequentialStudentIDs struct {
	next  int
	calls int
}

func (s *sequentialStudentIDs) GenerateStudentID(_ context.Context, department string) (string, error) {
	s.calls++
	id := fmt.Sprintf("m25-%02d70-%03d", 14, s.next)
	s.next++
	return id, nil
}

func newTestStudentService(repo *mockStudentRepo, ids *sequentialStudentIDs) *StudentService {
	svc := NewStudentService(repo, ids, "manila.uphsl.edu.ph", nil, zap.NewNop())
	svc.clock = func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }
	return svc
}

func TestStudentServiceRegisterGeneratesID(t *testing.T) {
	repo := &mockStudentRepo{}
	svc := newTestStudentService(repo, &sequentialStudentIDs{next: 100})

	student, err := svc.Register(context.Background(), RegisterStudentRequest{
		FirstName: "Ana", LastName: "Cruz", Department: "bsit", YearLevel: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, "m25-1470-100", student.StudentID)
	assert.Equal(t, "m25-1470-100@manila.uphsl.edu.ph", student.Email)
	assert.Equal(t, "BSIT", student.Department)
	assert.Equal(t, 2025, student.EnrollmentYear)
	assert.True(t, student.Active)
}

func TestStudentServiceRegisterRetriesOnCollision(t *testing.T) {
	repo := &mockStudentRepo{collisions: 2}
	ids := &sequentialStudentIDs{next: 100}
	svc := newTestStudentService(repo, ids)

	student, err := svc.Register(context.Background(), RegisterStudentRequest{
		FirstName: "Ana", LastName: "Cruz", Department: "BSIT", YearLevel: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, ids.calls)
	assert.Equal(t, "m25-1470-102", student.StudentID)
}

func TestStudentServiceRegisterGivesUpAfterRetries(t *testing.T) {
	repo := &mockStudentRepo{collisions: maxRegisterAttempts}
	svc := newTestStudentService(repo, &sequentialStudentIDs{next: 100})

	_, err := svc.Register(context.Background(), RegisterStudentRequest{
		FirstName: "Ana", LastName: "Cruz", Department: "BSIT", YearLevel: 1,
	})
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestStudentServiceRegisterRejectsEmailMismatch(t *testing.T) {
	svc := newTestStudentService(&mockStudentRepo{}, &sequentialStudentIDs{next: 100})

	_, err := svc.Register(context.Background(), RegisterStudentRequest{
		Email: "someone@manila.uphsl.edu.ph", FirstName: "Ana", LastName: "Cruz", Department: "BSIT", YearLevel: 1,
	})
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInvalidIdentifier.Code, appErr.Code)
}

func TestStudentServiceRegisterRejectsYearBeforeAllocating(t *testing.T) {
	ids := &sequentialStudentIDs{next: 100}
	svc := newTestStudentService(&mockStudentRepo{}, ids)

	_, err := svc.Register(context.Background(), RegisterStudentRequest{
		EnrollmentYear: 2024, FirstName: "Ana", LastName: "Cruz", Department: "BSIT", YearLevel: 1,
	})
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInvalidIdentifier.Code, appErr.Code)
	assert.Zero(t, ids.calls)

	student, err := svc.Register(context.Background(), RegisterStudentRequest{
		EnrollmentYear: 2025, FirstName: "Ana", LastName: "Cruz", Department: "BSIT", YearLevel: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, "m25-1470-100", student.StudentID)
}

func TestStudentServiceImportLegacyID(t *testing.T) {
	repo := &mockStudentRepo{}
	ids := &sequentialStudentIDs{next: 100}
	svc := newTestStudentService(repo, ids)

	student, err := svc.Register(context.Background(), RegisterStudentRequest{
		StudentID: "m23-1570-245", EnrollmentYear: 2023,
		FirstName: "Ben", LastName: "Reyes", Department: "BSCS", YearLevel: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, "m23-1570-245@manila.uphsl.edu.ph", student.Email)
	assert.Zero(t, ids.calls)

	_, err = svc.Register(context.Background(), RegisterStudentRequest{
		StudentID: "m23-1570-246", EnrollmentYear: 2024,
		FirstName: "Ben", LastName: "Reyes", Department: "BSCS", YearLevel: 3,
	})
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInvalidIdentifier.Code, appErr.Code)

	_, err = svc.Register(context.Background(), RegisterStudentRequest{
		StudentID: "m23-1570-245", EnrollmentYear: 2023,
		FirstName: "Ben", LastName: "Reyes", Department: "BSCS", YearLevel: 3,
	})
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestStudentServiceRegisterValidation(t *testing.T) {
	svc := newTestStudentService(&mockStudentRepo{}, &sequentialStudentIDs{next: 100})

	_, err := svc.Register(context.Background(), RegisterStudentRequest{StudentID: "x-1", FirstName: "A", LastName: "B", Department: "BSIT", YearLevel: 1})
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)

	_, err = svc.Register(context.Background(), RegisterStudentRequest{StudentID: "m23-1570-245", FirstName: "A", LastName: "B", Department: "BSIT", YearLevel: 1})
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestStudentServiceGetAndList(t *testing.T) {
	repo := &mockStudentRepo{
		students: map[string]models.Student{
			"m25-1470-100": {ID: "row-1", StudentID: "m25-1470-100"},
		},
		listTotal: 1,
	}
	svc := newTestStudentService(repo, &sequentialStudentIDs{})

	byStudentID, err := svc.Get(context.Background(), "m25-1470-100")
	require.NoError(t, err)
	assert.Equal(t, "row-1", byStudentID.ID)

	upper, err := svc.Get(context.Background(), "M25-1470-100")
	require.NoError(t, err)
	assert.Equal(t, "row-1", upper.ID)

	byRowID, err := svc.Get(context.Background(), "row-1")
	require.NoError(t, err)
	assert.Equal(t, "m25-1470-100", byRowID.StudentID)

	_, err = svc.Get(context.Background(), "missing")
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)

	items, pagination, err := svc.List(context.Background(), models.StudentFilter{Department: "BSIT"})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
	assert.Equal(t, "BSIT", repo.lastFilter.Department)
}
