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

func TestFinancialRecordRepositoryFindByStudentTerm(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewFinancialRecordRepository(db)

	now := time.Now()
	columns := []string{"id", "student_id", "enrollment_id", "academic_year", "semester", "due_date", "tuition", "misc_fees",
		"lab_fees", "other_fees", "discounts", "scholarship", "payments", "total_assessment", "scholarship_discount",
		"total_discounts", "total_due", "total_paid", "remaining_balance", "status", "version", "created_at", "updated_at"}
	rows := sqlmock.NewRows(columns).AddRow(
		"fin-1", "m23-1470-578", nil, "2025-2026", "FIRST", nil,
		[]byte(`{"base_fee":"3000","per_unit_fee":"0","units":0,"total":"3000"}`),
		[]byte(`[{"name":"Registration","amount":"575"}]`), []byte(`[]`), []byte(`[]`),
		[]byte(`[{"type":"early bird","percentage":"10","amount":"357.5"}]`),
		[]byte(`{"type":"none","coverage":{"tuition":"0","misc":"0","lab":"0","other":"0"}}`),
		[]byte(`[]`), "3575", "0", "357.5", "3217.5", "0", "3217.5", "PENDING", 1, now, now)

	mock.ExpectQuery(regexp.QuoteMeta("FROM financial_records WHERE student_id = $1 AND academic_year = $2 AND semester = $3")).
		WithArgs("m23-1470-578", "2025-2026", models.SemesterFirst).
		WillReturnRows(rows)

	record, err := repo.FindByStudentTerm(context.Background(), "m23-1470-578", "2025-2026", models.SemesterFirst)
	require.NoError(t, err)
	assert.Equal(t, "3000", record.Tuition.BaseFee.String())
	require.Len(t, record.Discounts, 1)
	require.NotNil(t, record.Discounts[0].Percentage)
	assert.Equal(t, "10", record.Discounts[0].Percentage.String())
	assert.Equal(t, models.ScholarshipNone, record.Scholarship.Type)
	assert.Nil(t, record.EnrollmentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFinancialRecordRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewFinancialRecordRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM financial_records WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFinancialRecordRepositoryUpdateStale(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewFinancialRecordRepository(db)

	mock.ExpectExec(`(?s)UPDATE financial_records SET .* WHERE id = \? AND version = \?`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.FinancialRecord{ID: "fin-1", Version: 4})
	assert.ErrorIs(t, err, ErrVersionConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFinancialRecordRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewFinancialRecordRepository(db)

	mock.ExpectExec("INSERT INTO financial_records").
		WillReturnResult(sqlmock.NewResult(1, 1))

	record := &models.FinancialRecord{StudentID: "m23-1470-578"}
	require.NoError(t, repo.Create(context.Background(), record))
	assert.NotEmpty(t, record.ID)
	assert.Equal(t, 1, record.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}
