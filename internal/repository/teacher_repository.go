package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uphsl-enrollment-api/internal/models"
)

const teacherColumns = "id, employee_id, email, first_name, last_name, department, active, created_at, updated_at"

// TeacherRepository manages persistence for teacher records.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository constructs a TeacherRepository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

// FindByID fetches a teacher by row ID.
func (r *TeacherRepository) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, "SELECT "+teacherColumns+" FROM teachers WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// FindByEmployeeID fetches a teacher by employee ID.
func (r *TeacherRepository) FindByEmployeeID(ctx context.Context, employeeID string) (*models.Teacher, error) {
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, "SELECT "+teacherColumns+" FROM teachers WHERE employee_id = $1", employeeID); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// LastEmployeeID returns the highest issued employee ID starting with prefix.
func (r *TeacherRepository) LastEmployeeID(ctx context.Context, prefix string) (string, error) {
	const query = `SELECT employee_id FROM teachers WHERE employee_id LIKE $1 ORDER BY employee_id DESC LIMIT 1`
	var last string
	if err := r.db.GetContext(ctx, &last, query, prefix+"%"); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("last employee id: %w", err)
	}
	return last, nil
}

// Create inserts a teacher.
func (r *TeacherRepository) Create(ctx context.Context, teacher *models.Teacher) error {
	if teacher.ID == "" {
		teacher.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	teacher.CreatedAt = now
	teacher.UpdatedAt = now
	const query = `INSERT INTO teachers (id, employee_id, email, first_name, last_name, department, active, created_at, updated_at)
        VALUES (:id, :employee_id, :email, :first_name, :last_name, :department, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, teacher); err != nil {
		return fmt.Errorf("create teacher: %w", err)
	}
	return nil
}
