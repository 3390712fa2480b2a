package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uphsl-enrollment-api/internal/models"
)

const financialColumns = `id, student_id, enrollment_id, academic_year, semester, due_date, tuition, misc_fees, lab_fees,
        other_fees, discounts, scholarship, payments, total_assessment, scholarship_discount, total_discounts, total_due,
        total_paid, remaining_balance, status, version, created_at, updated_at`

// FinancialRecordRepository persists per-term financial ledgers.
type FinancialRecordRepository struct {
	db *sqlx.DB
}

// NewFinancialRecordRepository constructs the repository.
func NewFinancialRecordRepository(db *sqlx.DB) *FinancialRecordRepository {
	return &FinancialRecordRepository{db: db}
}

// FindByID returns a financial record by ID.
func (r *FinancialRecordRepository) FindByID(ctx context.Context, id string) (*models.FinancialRecord, error) {
	query := "SELECT " + financialColumns + " FROM financial_records WHERE id = $1"
	var record models.FinancialRecord
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		return nil, err
	}
	return &record, nil
}

// FindByStudentTerm returns the record of a student for one term.
func (r *FinancialRecordRepository) FindByStudentTerm(ctx context.Context, studentID, academicYear string, semester models.Semester) (*models.FinancialRecord, error) {
	query := "SELECT " + financialColumns + " FROM financial_records WHERE student_id = $1 AND academic_year = $2 AND semester = $3"
	var record models.FinancialRecord
	if err := r.db.GetContext(ctx, &record, query, studentID, academicYear, semester); err != nil {
		return nil, err
	}
	return &record, nil
}

// ListByStudent returns all records of a student, newest term first.
func (r *FinancialRecordRepository) ListByStudent(ctx context.Context, studentID string) ([]models.FinancialRecord, error) {
	query := "SELECT " + financialColumns + " FROM financial_records WHERE student_id = $1 ORDER BY academic_year DESC, semester DESC"
	var records []models.FinancialRecord
	if err := r.db.SelectContext(ctx, &records, query, studentID); err != nil {
		return nil, fmt.Errorf("list financial records: %w", err)
	}
	return records, nil
}

// Create inserts a record at version 1.
func (r *FinancialRecordRepository) Create(ctx context.Context, record *models.FinancialRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now
	record.Version = 1

	const query = `INSERT INTO financial_records (id, student_id, enrollment_id, academic_year, semester, due_date, tuition,
        misc_fees, lab_fees, other_fees, discounts, scholarship, payments, total_assessment, scholarship_discount,
        total_discounts, total_due, total_paid, remaining_balance, status, version, created_at, updated_at)
        VALUES (:id, :student_id, :enrollment_id, :academic_year, :semester, :due_date, :tuition, :misc_fees, :lab_fees,
        :other_fees, :discounts, :scholarship, :payments, :total_assessment, :scholarship_discount, :total_discounts,
        :total_due, :total_paid, :remaining_balance, :status, :version, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("create financial record: %w", err)
	}
	return nil
}

// Update writes the record guarded by its version.
func (r *FinancialRecordRepository) Update(ctx context.Context, record *models.FinancialRecord) error {
	record.UpdatedAt = time.Now().UTC()

	const query = `UPDATE financial_records SET due_date = :due_date, tuition = :tuition, misc_fees = :misc_fees,
        lab_fees = :lab_fees, other_fees = :other_fees, discounts = :discounts, scholarship = :scholarship,
        payments = :payments, total_assessment = :total_assessment, scholarship_discount = :scholarship_discount,
        total_discounts = :total_discounts, total_due = :total_due, total_paid = :total_paid,
        remaining_balance = :remaining_balance, status = :status, version = version + 1, updated_at = :updated_at
        WHERE id = :id AND version = :version`
	result, err := r.db.NamedExecContext(ctx, query, record)
	if err != nil {
		return fmt.Errorf("update financial record: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update financial record rows: %w", err)
	}
	if affected == 0 {
		return ErrVersionConflict
	}
	record.Version++
	return nil
}
