package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/uphsl-enrollment-api/internal/dto"
	"github.com/noah-isme/uphsl-enrollment-api/internal/identifier"
	"github.com/noah-isme/uphsl-enrollment-api/internal/ledger"
	"github.com/noah-isme/uphsl-enrollment-api/internal/models"
	"github.com/noah-isme/uphsl-enrollment-api/pkg/database"
	appErrors "github.com/noah-isme/uphsl-enrollment-api/pkg/errors"
)

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentRecord, int, error)
	FindByID(ctx context.Context, id string) (*models.EnrollmentRecord, error)
	ListByStudent(ctx context.Context, studentID string, status models.EnrollmentStatus) ([]models.EnrollmentRecord, error)
	ExistsForTerm(ctx context.Context, studentID, academicYear string, semester models.Semester) (bool, error)
	Create(ctx context.Context, record *models.EnrollmentRecord) error
	Update(ctx context.Context, record *models.EnrollmentRecord) error
}

type enrollmentStudentReader interface {
	FindByStudentID(ctx context.Context, studentID string) (*models.Student, error)
}

type subjectCatalog interface {
	FindByIDs(ctx context.Context, ids []string) (map[string]models.Subject, error)
}

type termResolver interface {
	ResolveCurrentTerm(ctx context.Context, now time.Time) (*models.Term, error)
}

type referenceIssuer interface {
	Next(at time.Time) string
}

type eventEmitter interface {
	PaymentRecorded(ctx context.Context, event models.PaymentRecordedEvent)
	EnrollmentDecided(ctx context.Context, event models.EnrollmentDecidedEvent)
}

// SubjectSelection picks a subject section when submitting an enrollment.
type SubjectSelection struct {
	SubjectID string                `json:"subject_id" validate:"required"`
	Section   string                `json:"section" validate:"required"`
	TeacherID string                `json:"teacher_id"`
	Schedule  []models.ScheduleSlot `json:"schedule" validate:"dive"`
}

// SubmitEnrollmentRequest is the payload of a new enrollment. AcademicYear and
// Semester default to the term covering the submission date.
type SubmitEnrollmentRequest struct {
	StudentID       string             `json:"student_id" validate:"required,student_id"`
	AcademicYear    string             `json:"academic_year" validate:"omitempty,academic_year"`
	Semester        models.Semester    `json:"semester" validate:"omitempty,semester"`
	YearLevel       int                `json:"year_level" validate:"required,min=1,max=5"`
	Subjects        []SubjectSelection `json:"subjects" validate:"required,min=1,dive"`
	TuitionFee      decimal.Decimal    `json:"tuition_fee"`
	MiscFees        decimal.Decimal    `json:"misc_fees"`
	LabFees         decimal.Decimal    `json:"lab_fees"`
	Discount        decimal.Decimal    `json:"discount"`
	ScholarshipType string             `json:"scholarship_type"`
	Remarks         string             `json:"remarks"`
}

// EnrollmentDecisionRequest carries optional remarks for approve/reject.
type EnrollmentDecisionRequest struct {
	Remarks string `json:"remarks"`
}

// UpdateSubjectStatusRequest moves a registration through its lifecycle.
type UpdateSubjectStatusRequest struct {
	Status models.SubjectStatus `json:"status" validate:"required,oneof=ENROLLED DROPPED INCOMPLETE COMPLETED"`
}

// UpdateEnrollmentFeesRequest replaces the fee ledger inputs.
type UpdateEnrollmentFeesRequest struct {
	TuitionFee      decimal.Decimal `json:"tuition_fee"`
	MiscFees        decimal.Decimal `json:"misc_fees"`
	LabFees         decimal.Decimal `json:"lab_fees"`
	Discount        decimal.Decimal `json:"discount"`
	ScholarshipType string          `json:"scholarship_type"`
}

// RecordPaymentRequest appends a payment to a ledger.
type RecordPaymentRequest struct {
	Amount  decimal.Decimal      `json:"amount"`
	Method  models.PaymentMethod `json:"method" validate:"required,oneof=CASH BANK_TRANSFER CHECK ONLINE"`
	PaidAt  *time.Time           `json:"paid_at"`
	Remarks string               `json:"remarks"`
}

// EnrollmentServiceConfig bundles optional collaborators.
type EnrollmentServiceConfig struct {
	Policy     ledger.GradingPolicy
	References referenceIssuer
	Events     eventEmitter
	Cache      *CacheService
	Metrics    *MetricsService
	Validator  *validator.Validate
	Logger     *zap.Logger
}

// EnrollmentService implements enrollment submission, approval, grading and
// the enrollment fee ledger.
type EnrollmentService struct {
	repo       enrollmentRepository
	students   enrollmentStudentReader
	subjects   subjectCatalog
	terms      termResolver
	policy     ledger.GradingPolicy
	references referenceIssuer
	events     eventEmitter
	cache      *CacheService
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	clock      func() time.Time
}

// NewEnrollmentService creates an enrollment service instance.
func NewEnrollmentService(repo enrollmentRepository, students enrollmentStudentReader, subjects subjectCatalog, terms termResolver, cfg EnrollmentServiceConfig) *EnrollmentService {
	if cfg.Validator == nil {
		cfg.Validator = NewValidator()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Policy.Bands == nil {
		cfg.Policy = ledger.DefaultGradingPolicy()
	}
	return &EnrollmentService{
		repo:       repo,
		students:   students,
		subjects:   subjects,
		terms:      terms,
		policy:     cfg.Policy,
		references: cfg.References,
		events:     cfg.Events,
		cache:      cfg.Cache,
		metrics:    cfg.Metrics,
		validator:  cfg.Validator,
		logger:     cfg.Logger,
		clock:      time.Now,
	}
}

// List returns enrollments matching the filter.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentRecord, *models.Pagination, error) {
	records, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return records, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a single enrollment.
func (s *EnrollmentService) Get(ctx context.Context, id string) (*models.EnrollmentRecord, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "enrollment")
	}
	return record, nil
}

// Submit registers a student for a term. The record starts PENDING with
// derived grades and balance.
func (s *EnrollmentService) Submit(ctx context.Context, req SubmitEnrollmentRequest) (*models.EnrollmentRecord, error) {
	req.StudentID = identifier.CanonicalStudentID(req.StudentID)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid enrollment payload")
	}
	if err := ledger.ValidateEnrollmentFees(req.TuitionFee, req.MiscFees, req.LabFees, req.Discount); err != nil {
		return nil, domainError(err)
	}
	if _, err := s.students.FindByStudentID(ctx, req.StudentID); err != nil {
		return nil, lookupError(err, "student")
	}

	academicYear, semester := req.AcademicYear, req.Semester
	if academicYear == "" || semester == "" {
		term, err := s.terms.ResolveCurrentTerm(ctx, s.clock())
		if err != nil {
			return nil, err
		}
		if academicYear == "" {
			academicYear = term.AcademicYear
		}
		if semester == "" {
			semester = term.Semester
		}
	}

	exists, err := s.repo.ExistsForTerm(ctx, req.StudentID, academicYear, semester)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing enrollment")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("student already enrolled for %s %s", academicYear, semester))
	}

	ids := make([]string, 0, len(req.Subjects))
	seen := make(map[string]struct{}, len(req.Subjects))
	for _, selection := range req.Subjects {
		if _, dup := seen[selection.SubjectID]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, "subject "+selection.SubjectID+" selected twice")
		}
		seen[selection.SubjectID] = struct{}{}
		ids = append(ids, selection.SubjectID)
	}
	catalog, err := s.subjects.FindByIDs(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subjects")
	}

	history, err := s.repo.ListByStudent(ctx, req.StudentID, models.EnrollmentStatusApproved)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment history")
	}
	for i := range history {
		history[i] = ledger.RecomputeEnrollment(history[i], s.policy)
	}

	registrations := make(models.SubjectRegistrations, 0, len(req.Subjects))
	for _, selection := range req.Subjects {
		subject, ok := catalog[selection.SubjectID]
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject "+selection.SubjectID+" not found")
		}
		if missing := s.policy.MissingPrerequisites(subject.Prerequisites, history); len(missing) > 0 {
			return nil, prerequisitesError(subject.Code, missing)
		}
		registrations = append(registrations, models.SubjectRegistration{
			SubjectID:   subject.ID,
			SubjectCode: subject.Code,
			Units:       subject.TotalUnits(),
			Section:     selection.Section,
			TeacherID:   selection.TeacherID,
			Schedule:    selection.Schedule,
			Status:      models.SubjectStatusEnrolled,
		})
	}
	if err := ledger.CheckScheduleConflicts(registrations); err != nil {
		return nil, domainError(err)
	}

	record := ledger.RecomputeEnrollment(models.EnrollmentRecord{
		StudentID:       req.StudentID,
		AcademicYear:    academicYear,
		Semester:        semester,
		YearLevel:       req.YearLevel,
		Subjects:        registrations,
		Status:          models.EnrollmentStatusPending,
		Remarks:         req.Remarks,
		TuitionFee:      req.TuitionFee,
		MiscFees:        req.MiscFees,
		LabFees:         req.LabFees,
		Discount:        req.Discount,
		ScholarshipType: req.ScholarshipType,
		Payments:        models.Payments{},
	}, s.policy)

	if err := s.repo.Create(ctx, &record); err != nil {
		if database.IsForeignKeyViolation(err, "") {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		if database.IsUniqueViolation(err, "") {
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("student already enrolled for %s %s", academicYear, semester))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}
	s.logger.Info("enrollment submitted",
		zap.String("enrollment_id", record.ID),
		zap.String("student_id", record.StudentID),
		zap.String("academic_year", academicYear),
		zap.String("semester", string(semester)),
		zap.Int("subjects", len(registrations)))
	return &record, nil
}

// Approve accepts a pending enrollment.
func (s *EnrollmentService) Approve(ctx context.Context, id string, req EnrollmentDecisionRequest, m Mutation) (*models.EnrollmentRecord, error) {
	return s.decide(ctx, id, models.EnrollmentStatusApproved, req, m)
}

// Reject declines a pending enrollment.
func (s *EnrollmentService) Reject(ctx context.Context, id string, req EnrollmentDecisionRequest, m Mutation) (*models.EnrollmentRecord, error) {
	return s.decide(ctx, id, models.EnrollmentStatusRejected, req, m)
}

func (s *EnrollmentService) decide(ctx context.Context, id string, status models.EnrollmentStatus, req EnrollmentDecisionRequest, m Mutation) (*models.EnrollmentRecord, error) {
	now := s.clock().UTC()
	record, err := s.mutate(ctx, id, m, func(record *models.EnrollmentRecord) error {
		if record.Status != models.EnrollmentStatusPending {
			return appErrors.Clone(appErrors.ErrInvalidTransition,
				fmt.Sprintf("enrollment is %s; only PENDING enrollments can be decided", record.Status))
		}
		record.Status = status
		actor := m.ActorID
		record.ApprovedBy = &actor
		record.ApprovedAt = &now
		if req.Remarks != "" {
			record.Remarks = req.Remarks
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordEnrollmentDecision(string(status))
	if s.events != nil {
		s.events.EnrollmentDecided(ctx, models.EnrollmentDecidedEvent{
			EnrollmentID: record.ID,
			StudentID:    record.StudentID,
			AcademicYear: record.AcademicYear,
			Semester:     record.Semester,
			Status:       status,
			DecidedBy:    m.ActorID,
			OccurredAt:   now,
		})
	}
	s.cache.Evict(ctx, gpaKey(record.StudentID))
	s.logger.Info("enrollment decided", zap.String("enrollment_id", record.ID), zap.String("status", string(status)), zap.String("actor", m.ActorID))
	return record, nil
}

// UpdateSubjectStatus transitions one registration.
func (s *EnrollmentService) UpdateSubjectStatus(ctx context.Context, id, subjectID string, req UpdateSubjectStatusRequest, m Mutation) (*models.EnrollmentRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid subject status payload")
	}
	record, err := s.mutate(ctx, id, m, func(record *models.EnrollmentRecord) error {
		idx, ok := record.SubjectIndex(subjectID)
		if !ok {
			return appErrors.Clone(appErrors.ErrNotFound, "subject not part of enrollment")
		}
		current := record.Subjects[idx].Status
		if !current.CanTransitionTo(req.Status) {
			return appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot move subject from %s to %s", current, req.Status))
		}
		record.Subjects[idx].Status = req.Status
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.cache.Evict(ctx, gpaKey(record.StudentID))
	return record, nil
}

// UpdateGrades replaces the grade components of one registration; the final
// grade is derived.
func (s *EnrollmentService) UpdateGrades(ctx context.Context, id, subjectID string, grades models.GradeComponents, m Mutation) (*models.EnrollmentRecord, error) {
	if err := s.validator.Struct(grades); err != nil {
		return nil, validationError(err, "invalid grade components")
	}
	record, err := s.mutate(ctx, id, m, func(record *models.EnrollmentRecord) error {
		idx, ok := record.SubjectIndex(subjectID)
		if !ok {
			return appErrors.Clone(appErrors.ErrNotFound, "subject not part of enrollment")
		}
		if record.Subjects[idx].Status == models.SubjectStatusDropped {
			return appErrors.Clone(appErrors.ErrInvalidTransition, "cannot grade a dropped subject")
		}
		record.Subjects[idx].Grades = grades
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.cache.Evict(ctx, gpaKey(record.StudentID))
	return record, nil
}

// UpdateFees replaces tuition, misc, lab, discount and scholarship type.
func (s *EnrollmentService) UpdateFees(ctx context.Context, id string, req UpdateEnrollmentFeesRequest, m Mutation) (*models.EnrollmentRecord, error) {
	if err := ledger.ValidateEnrollmentFees(req.TuitionFee, req.MiscFees, req.LabFees, req.Discount); err != nil {
		return nil, domainError(err)
	}
	return s.mutate(ctx, id, m, func(record *models.EnrollmentRecord) error {
		record.TuitionFee = req.TuitionFee
		record.MiscFees = req.MiscFees
		record.LabFees = req.LabFees
		record.Discount = req.Discount
		record.ScholarshipType = req.ScholarshipType
		return nil
	})
}

// RecordPayment appends a payment and returns the updated record along with
// the receipt of the new payment.
func (s *EnrollmentService) RecordPayment(ctx context.Context, id string, req RecordPaymentRequest, m Mutation) (*models.EnrollmentRecord, *models.Receipt, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, validationError(err, "invalid payment payload")
	}
	now := s.clock().UTC()
	payment := newPayment(req, s.references, m.ActorID, now)

	record, err := s.mutate(ctx, id, m, func(record *models.EnrollmentRecord) error {
		next, err := ledger.ApplyEnrollmentPayment(*record, payment)
		if err != nil {
			return domainError(err)
		}
		*record = next
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	index := len(record.Payments) - 1
	receipt, err := ledger.EnrollmentReceipt(*record, index, now)
	if err != nil {
		return nil, nil, domainError(err)
	}

	amount, _ := payment.Amount.Float64()
	s.metrics.RecordPayment(models.ReceiptSourceEnrollment, string(payment.Method), amount)
	if s.events != nil {
		s.events.PaymentRecorded(ctx, models.PaymentRecordedEvent{
			RecordID:         record.ID,
			RecordType:       models.ReceiptSourceEnrollment,
			StudentID:        record.StudentID,
			ReferenceNumber:  payment.ReferenceNumber,
			Amount:           payment.Amount,
			RemainingBalance: record.Balance,
			OccurredAt:       now,
		})
	}
	s.logger.Info("enrollment payment recorded",
		zap.String("enrollment_id", record.ID),
		zap.String("reference", payment.ReferenceNumber),
		zap.String("amount", payment.Amount.StringFixed(2)))
	return record, &receipt, nil
}

// Receipt builds the receipt of the payment at index.
func (s *EnrollmentService) Receipt(ctx context.Context, id string, index int) (*models.Receipt, error) {
	record, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	receipt, err := ledger.EnrollmentReceipt(*record, index, s.clock().UTC())
	if err != nil {
		return nil, domainError(err)
	}
	return &receipt, nil
}

// GPA computes the grade point average of a student over approved
// enrollments. The boolean reports a cache hit.
func (s *EnrollmentService) GPA(ctx context.Context, studentID string) (*dto.GPAView, bool, error) {
	studentID = identifier.CanonicalStudentID(studentID)
	return cachedView(ctx, s.cache, gpaKey(studentID), 0, func() (*dto.GPAView, error) {
		records, err := s.repo.ListByStudent(ctx, studentID, models.EnrollmentStatusApproved)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
		}
		var subjects []models.SubjectRegistration
		view := dto.GPAView{StudentID: studentID, GeneratedAt: s.clock().UTC()}
		for _, record := range records {
			derived := ledger.RecomputeEnrollment(record, s.policy)
			for _, subject := range derived.Subjects {
				subjects = append(subjects, subject)
				if subject.Status == models.SubjectStatusCompleted {
					view.CompletedSubjects++
					view.CompletedUnits += subject.Units
				}
			}
		}
		view.GPA = s.policy.GPA(subjects)
		return &view, nil
	})
}

// mutate runs the load, mutate, recompute and versioned save cycle.
func (s *EnrollmentService) mutate(ctx context.Context, id string, m Mutation, apply func(*models.EnrollmentRecord) error) (*models.EnrollmentRecord, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "enrollment")
	}
	if err := m.check(record.Version); err != nil {
		return nil, err
	}
	if err := apply(record); err != nil {
		return nil, err
	}
	next := ledger.RecomputeEnrollment(*record, s.policy)
	if err := s.repo.Update(ctx, &next); err != nil {
		return nil, saveError(err, "enrollment")
	}
	return &next, nil
}

func newPayment(req RecordPaymentRequest, references referenceIssuer, actor string, now time.Time) models.Payment {
	paidAt := now
	if req.PaidAt != nil {
		paidAt = req.PaidAt.UTC()
	}
	payment := models.Payment{
		Amount:     req.Amount,
		Method:     req.Method,
		PaidAt:     paidAt,
		ReceivedBy: actor,
		Remarks:    req.Remarks,
	}
	if references != nil {
		payment.ReferenceNumber = references.Next(now)
	}
	return payment
}
