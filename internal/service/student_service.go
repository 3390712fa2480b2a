package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/uphsl-enrollment-api/internal/identifier"
	"github.com/noah-isme/uphsl-enrollment-api/internal/models"
	"github.com/noah-isme/uphsl-enrollment-api/pkg/database"
	appErrors "github.com/noah-isme/uphsl-enrollment-api/pkg/errors"
)

// maxRegisterAttempts bounds retries when a freshly generated student ID
// collides with a concurrent registration.
const maxRegisterAttempts = 3

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByStudentID(ctx context.Context, studentID string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
}

type studentIDGenerator interface {
	GenerateStudentID(ctx context.Context, department string) (string, error)
}

// RegisterStudentRequest holds the payload for registering a student. When
// StudentID is set the ID is imported as-is (legacy records) and
// EnrollmentYear must match it; otherwise a new ID is issued for the current
// year.
type RegisterStudentRequest struct {
	StudentID      string `json:"student_id" validate:"omitempty,student_id"`
	Email          string `json:"email" validate:"omitempty,email"`
	FirstName      string `json:"first_name" validate:"required"`
	LastName       string `json:"last_name" validate:"required"`
	Department     string `json:"department" validate:"required,max=10"`
	YearLevel      int    `json:"year_level" validate:"required,min=1,max=5"`
	EnrollmentYear int    `json:"enrollment_year" validate:"omitempty,min=1950,max=2100"`
}

// StudentService handles student use-cases.
type StudentService struct {
	repo        studentRepository
	ids         studentIDGenerator
	emailDomain string
	validator   *validator.Validate
	logger      *zap.Logger
	clock       func() time.Time
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, ids studentIDGenerator, emailDomain string, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, ids: ids, emailDomain: emailDomain, validator: validate, logger: logger, clock: time.Now}
}

// List returns students and pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return students, pagination, nil
}

// Get returns a student by institutional ID or row ID.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	var (
		student *models.Student
		err     error
	)
	if canonical := identifier.CanonicalStudentID(id); identifier.ValidateStudentID(canonical) == nil {
		student, err = s.repo.FindByStudentID(ctx, canonical)
	} else {
		student, err = s.repo.FindByID(ctx, id)
	}
	if err != nil {
		return nil, lookupError(err, "student")
	}
	return student, nil
}

// Register creates a student profile with a derived institutional email.
func (s *StudentService) Register(ctx context.Context, req RegisterStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid student payload")
	}
	department := string(identifier.NormalizeDepartment(req.Department))

	if req.StudentID != "" {
		return s.importStudent(ctx, req, department)
	}
	// New IDs carry the current year; reject a mismatch before a sequence is spent.
	if req.EnrollmentYear != 0 && req.EnrollmentYear%100 != identifier.YearSuffix(s.clock()) {
		return nil, domainError(identifier.ErrEnrollmentYearMismatch)
	}

	var lastErr error
	for attempt := 1; attempt <= maxRegisterAttempts; attempt++ {
		studentID, err := s.ids.GenerateStudentID(ctx, department)
		if err != nil {
			return nil, err
		}
		student, err := s.buildStudent(req, studentID, department)
		if err != nil {
			return nil, err
		}
		if student.EnrollmentYear == 0 {
			student.EnrollmentYear = s.clock().Year()
		}
		if err := identifier.ValidateEnrollmentYear(studentID, student.EnrollmentYear); err != nil {
			return nil, domainError(err)
		}

		err = s.repo.Create(ctx, student)
		if err == nil {
			s.logger.Info("student registered", zap.String("student_id", studentID), zap.String("department", department), zap.Int("attempt", attempt))
			return student, nil
		}
		if !database.IsUniqueViolation(err, "") {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
		}
		lastErr = err
		s.logger.Warn("student id collision, retrying", zap.String("student_id", studentID), zap.Int("attempt", attempt))
	}
	return nil, appErrors.Wrap(lastErr, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "could not allocate a unique student id")
}

func (s *StudentService) importStudent(ctx context.Context, req RegisterStudentRequest, department string) (*models.Student, error) {
	if req.EnrollmentYear == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "enrollment_year is required when student_id is provided")
	}
	if err := identifier.ValidateEnrollmentYear(req.StudentID, req.EnrollmentYear); err != nil {
		return nil, domainError(err)
	}
	student, err := s.buildStudent(req, req.StudentID, department)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, student); err != nil {
		if database.IsUniqueViolation(err, "") {
			return nil, appErrors.Clone(appErrors.ErrConflict, "student id already registered")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	s.logger.Info("student imported", zap.String("student_id", student.StudentID))
	return student, nil
}

func (s *StudentService) buildStudent(req RegisterStudentRequest, studentID, department string) (*models.Student, error) {
	email := identifier.StudentEmail(studentID, s.emailDomain)
	if req.Email != "" {
		if err := identifier.ValidateStudentEmail(studentID, strings.TrimSpace(req.Email), s.emailDomain); err != nil {
			if errors.Is(err, identifier.ErrEmailMismatch) {
				return nil, appErrors.Clone(appErrors.ErrInvalidIdentifier, "email must be "+email)
			}
			return nil, domainError(err)
		}
	}
	return &models.Student{
		StudentID:      studentID,
		Email:          email,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Department:     department,
		YearLevel:      req.YearLevel,
		EnrollmentYear: req.EnrollmentYear,
		Active:         true,
	}, nil
}
