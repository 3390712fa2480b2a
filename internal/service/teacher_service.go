package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/uphsl-enrollment-api/internal/identifier"
	"github.com/noah-isme/uphsl-enrollment-api/internal/models"
	"github.com/noah-isme/uphsl-enrollment-api/pkg/database"
	appErrors "github.com/noah-isme/uphsl-enrollment-api/pkg/errors"
)

type teacherRepository interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	FindByEmployeeID(ctx context.Context, employeeID string) (*models.Teacher, error)
	Create(ctx context.Context, teacher *models.Teacher) error
}

type employeeIDGenerator interface {
	GenerateEmployeeID(ctx context.Context, department string) (string, error)
}

// RegisterTeacherRequest holds payload for registering teachers.
type RegisterTeacherRequest struct {
	Email      string `json:"email" validate:"omitempty,email"`
	FirstName  string `json:"first_name" validate:"required"`
	LastName   string `json:"last_name" validate:"required"`
	Department string `json:"department" validate:"required,max=10"`
}

// TeacherService manages teacher profiles.
type TeacherService struct {
	repo      teacherRepository
	ids       employeeIDGenerator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeacherService creates a TeacherService.
func NewTeacherService(repo teacherRepository, ids employeeIDGenerator, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherService{repo: repo, ids: ids, validator: validate, logger: logger}
}

// Get returns a teacher by employee ID or row ID.
func (s *TeacherService) Get(ctx context.Context, id string) (*models.Teacher, error) {
	var (
		teacher *models.Teacher
		err     error
	)
	if _, parseErr := identifier.ParseEmployeeID(id); parseErr == nil {
		teacher, err = s.repo.FindByEmployeeID(ctx, id)
	} else {
		teacher, err = s.repo.FindByID(ctx, id)
	}
	if err != nil {
		return nil, lookupError(err, "teacher")
	}
	return teacher, nil
}

// Register issues an employee ID and stores the teacher.
func (s *TeacherService) Register(ctx context.Context, req RegisterTeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid teacher payload")
	}
	department := string(identifier.NormalizeDepartment(req.Department))

	for attempt := 1; attempt <= maxRegisterAttempts; attempt++ {
		employeeID, err := s.ids.GenerateEmployeeID(ctx, department)
		if err != nil {
			return nil, err
		}
		teacher := &models.Teacher{
			EmployeeID: employeeID,
			Email:      req.Email,
			FirstName:  req.FirstName,
			LastName:   req.LastName,
			Department: department,
			Active:     true,
		}
		err = s.repo.Create(ctx, teacher)
		if err == nil {
			s.logger.Info("teacher registered", zap.String("employee_id", employeeID), zap.String("department", department))
			return teacher, nil
		}
		if !database.IsUniqueViolation(err, "") {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create teacher")
		}
		s.logger.Warn("employee id collision, retrying", zap.String("employee_id", employeeID), zap.Int("attempt", attempt))
	}
	return nil, appErrors.Clone(appErrors.ErrConflict, "could not allocate a unique employee id")
}
