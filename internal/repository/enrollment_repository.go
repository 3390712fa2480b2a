package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uphsl-enrollment-api/internal/models"
)

const enrollmentColumns = `id, student_id, academic_year, semester, year_level, subjects, status, approved_by, approved_at,
        remarks, tuition_fee, misc_fees, lab_fees, total_fees, discount, scholarship_type, payments, balance, version,
        created_at, updated_at`

// EnrollmentRepository handles persistence of enrollment records.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// List returns enrollments filtered by the provided criteria.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentRecord, int, error) {
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.AcademicYear != "" {
		conditions = append(conditions, fmt.Sprintf("academic_year = $%d", len(args)+1))
		args = append(args, filter.AcademicYear)
	}
	if filter.Semester != "" {
		conditions = append(conditions, fmt.Sprintf("semester = $%d", len(args)+1))
		args = append(args, filter.Semester)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}
	limit, offset := pageBounds(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s FROM enrollments%s ORDER BY created_at DESC LIMIT %d OFFSET %d", enrollmentColumns, clause, limit, offset)
	var records []models.EnrollmentRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM enrollments"+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return records, total, nil
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.EnrollmentRecord, error) {
	query := "SELECT " + enrollmentColumns + " FROM enrollments WHERE id = $1"
	var record models.EnrollmentRecord
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		return nil, err
	}
	return &record, nil
}

// ListByStudent returns every enrollment of a student, oldest first. An empty
// status matches all.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID string, status models.EnrollmentStatus) ([]models.EnrollmentRecord, error) {
	query := "SELECT " + enrollmentColumns + " FROM enrollments WHERE student_id = $1"
	args := []interface{}{studentID}
	if status != "" {
		query += " AND status = $2"
		args = append(args, status)
	}
	query += " ORDER BY created_at ASC"

	var records []models.EnrollmentRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list student enrollments: %w", err)
	}
	return records, nil
}

// ExistsForTerm reports whether a non-rejected enrollment already exists for
// the student and term.
func (r *EnrollmentRepository) ExistsForTerm(ctx context.Context, studentID, academicYear string, semester models.Semester) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM enrollments WHERE student_id = $1 AND academic_year = $2 AND semester = $3 AND status <> $4)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, studentID, academicYear, semester, models.EnrollmentStatusRejected); err != nil {
		return false, fmt.Errorf("check enrollment term: %w", err)
	}
	return exists, nil
}

// Create persists a new enrollment record at version 1.
func (r *EnrollmentRepository) Create(ctx context.Context, record *models.EnrollmentRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now
	record.Version = 1

	const query = `INSERT INTO enrollments (id, student_id, academic_year, semester, year_level, subjects, status, approved_by,
        approved_at, remarks, tuition_fee, misc_fees, lab_fees, total_fees, discount, scholarship_type, payments, balance,
        version, created_at, updated_at)
        VALUES (:id, :student_id, :academic_year, :semester, :year_level, :subjects, :status, :approved_by, :approved_at,
        :remarks, :tuition_fee, :misc_fees, :lab_fees, :total_fees, :discount, :scholarship_type, :payments, :balance,
        :version, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// Update writes the record if its version still matches the stored one and
// bumps the version. ErrVersionConflict signals a concurrent writer.
func (r *EnrollmentRepository) Update(ctx context.Context, record *models.EnrollmentRecord) error {
	record.UpdatedAt = time.Now().UTC()

	const query = `UPDATE enrollments SET year_level = :year_level, subjects = :subjects, status = :status,
        approved_by = :approved_by, approved_at = :approved_at, remarks = :remarks, tuition_fee = :tuition_fee,
        misc_fees = :misc_fees, lab_fees = :lab_fees, total_fees = :total_fees, discount = :discount,
        scholarship_type = :scholarship_type, payments = :payments, balance = :balance, version = version + 1,
        updated_at = :updated_at
        WHERE id = :id AND version = :version`
	result, err := r.db.NamedExecContext(ctx, query, record)
	if err != nil {
		return fmt.Errorf("update enrollment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update enrollment rows: %w", err)
	}
	if affected == 0 {
		return ErrVersionConflict
	}
	record.Version++
	return nil
}
