package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uphsl-enrollment-api/internal/models"
)

func TestStudentRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "student_id", "email", "first_name", "last_name", "department", "year_level", "enrollment_year", "active", "created_at", "updated_at"}).
		AddRow("1", "m23-1470-578", "m23-1470-578@manila.uphsl.edu.ph", "Juan", "Dela Cruz", "BSIT", 3, 2023, true, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + studentColumns + " FROM students WHERE 1=1 AND department = $1 ORDER BY created_at DESC LIMIT 20 OFFSET 0")).
		WithArgs("BSIT").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM students WHERE 1=1 AND department = $1")).
		WithArgs("BSIT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	students, total, err := repo.List(context.Background(), models.StudentFilter{Department: "bsit"})
	require.NoError(t, err)
	assert.Len(t, students, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryLastStudentID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT student_id FROM students WHERE student_id LIKE $1 ORDER BY student_id DESC LIMIT 1")).
		WithArgs("m25-1470-%").
		WillReturnRows(sqlmock.NewRows([]string{"student_id"}).AddRow("m25-1470-137"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT student_id FROM students WHERE student_id LIKE $1")).
		WithArgs("m25-1570-%").
		WillReturnError(sql.ErrNoRows)

	last, err := repo.LastStudentID(context.Background(), "m25-1470-")
	require.NoError(t, err)
	assert.Equal(t, "m25-1470-137", last)

	last, err = repo.LastStudentID(context.Background(), "m25-1570-")
	require.NoError(t, err)
	assert.Empty(t, last)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec("INSERT INTO students").
		WithArgs(sqlmock.AnyArg(), "m25-1470-100", "m25-1470-100@manila.uphsl.edu.ph", "Ana", "Santos", "BSIT", 1, 2025, true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Create(context.Background(), &models.Student{
		StudentID:      "m25-1470-100",
		Email:          "m25-1470-100@manila.uphsl.edu.ph",
		FirstName:      "Ana",
		LastName:       "Santos",
		Department:     "BSIT",
		YearLevel:      1,
		EnrollmentYear: 2025,
		Active:         true,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
