package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/uphsl-enrollment-api/internal/identifier"
)

type sequenceAllocator interface {
	Next(ctx context.Context, scope string, seed int) (int, error)
}

type lastStudentIDReader interface {
	LastStudentID(ctx context.Context, prefix string) (string, error)
}

type lastEmployeeIDReader interface {
	LastEmployeeID(ctx context.Context, prefix string) (string, error)
}

// IdentifierService issues student and employee IDs. Sequence numbers come
// from an atomic per-cohort counter seeded from the highest ID already stored,
// so IDs imported outside the counter are never reissued.
type IdentifierService struct {
	sequences sequenceAllocator
	students  lastStudentIDReader
	teachers  lastEmployeeIDReader
	campus    string
	metrics   *MetricsService
	logger    *zap.Logger
	clock     func() time.Time
}

// NewIdentifierService constructs IdentifierService.
func NewIdentifierService(sequences sequenceAllocator, students lastStudentIDReader, teachers lastEmployeeIDReader, campus string, metrics *MetricsService, logger *zap.Logger) *IdentifierService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if campus == "" {
		campus = "70"
	}
	return &IdentifierService{
		sequences: sequences,
		students:  students,
		teachers:  teachers,
		campus:    campus,
		metrics:   metrics,
		logger:    logger,
		clock:     time.Now,
	}
}

// Campus returns the configured campus code.
func (s *IdentifierService) Campus() string {
	return s.campus
}

// GenerateStudentID allocates the next student ID of the department's cohort
// for the current year.
func (s *IdentifierService) GenerateStudentID(ctx context.Context, department string) (string, error) {
	if err := identifier.ValidateCampusCode(s.campus); err != nil {
		return "", domainError(err)
	}
	year := identifier.YearSuffix(s.clock())
	code := identifier.DepartmentCode(department)

	last, err := s.students.LastStudentID(ctx, identifier.StudentPrefix(year, code, s.campus))
	if err != nil {
		return "", lookupError(err, "student sequence")
	}
	seed := identifier.NextSequence(last, identifier.StudentSequenceStart, identifier.StudentSequence)
	if seed > identifier.StudentSequenceMax {
		return "", domainError(identifier.ErrSequenceExhausted)
	}

	seq, err := s.sequences.Next(ctx, identifier.StudentScope(year, code), seed)
	if err != nil {
		return "", lookupError(err, "student sequence")
	}
	id, err := identifier.FormatStudentID(year, code, s.campus, seq)
	if err != nil {
		s.logger.Warn("student id allocation failed", zap.String("department", department), zap.Int("sequence", seq), zap.Error(err))
		return "", domainError(err)
	}
	s.metrics.RecordIdentifierIssued(identifier.KindStudent)
	return id, nil
}

// GenerateEmployeeID allocates the next employee ID of the department's cohort
// for the current year.
func (s *IdentifierService) GenerateEmployeeID(ctx context.Context, department string) (string, error) {
	year := identifier.YearSuffix(s.clock())
	code := identifier.DepartmentCode(department)

	last, err := s.teachers.LastEmployeeID(ctx, identifier.EmployeePrefix(code, year))
	if err != nil {
		return "", lookupError(err, "employee sequence")
	}
	seed := identifier.NextSequence(last, identifier.EmployeeSequenceStart, identifier.EmployeeSequence)
	if seed > identifier.EmployeeSequenceMax {
		return "", domainError(identifier.ErrSequenceExhausted)
	}

	seq, err := s.sequences.Next(ctx, identifier.EmployeeScope(year, code), seed)
	if err != nil {
		return "", lookupError(err, "employee sequence")
	}
	id, err := identifier.FormatEmployeeID(code, year, seq)
	if err != nil {
		s.logger.Warn("employee id allocation failed", zap.String("department", department), zap.Int("sequence", seq), zap.Error(err))
		return "", domainError(err)
	}
	s.metrics.RecordIdentifierIssued(identifier.KindEmployee)
	return id, nil
}
