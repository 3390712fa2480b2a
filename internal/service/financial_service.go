package service

import (
	"context"
	"database/sql"
	"errors"
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

type financialRecordRepository interface {
	FindByID(ctx context.Context, id string) (*models.FinancialRecord, error)
	FindByStudentTerm(ctx context.Context, studentID, academicYear string, semester models.Semester) (*models.FinancialRecord, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.FinancialRecord, error)
	Create(ctx context.Context, record *models.FinancialRecord) error
	Update(ctx context.Context, record *models.FinancialRecord) error
}

// TuitionInput is the assessed tuition; the total is derived.
type TuitionInput struct {
	BaseFee    decimal.Decimal `json:"base_fee"`
	PerUnitFee decimal.Decimal `json:"per_unit_fee"`
	Units      int             `json:"units" validate:"gte=0"`
}

// CreateFinancialRecordRequest opens the fee ledger of a student for a term.
type CreateFinancialRecordRequest struct {
	StudentID    string             `json:"student_id" validate:"required,student_id"`
	EnrollmentID *string            `json:"enrollment_id"`
	AcademicYear string             `json:"academic_year" validate:"omitempty,academic_year"`
	Semester     models.Semester    `json:"semester" validate:"omitempty,semester"`
	DueDate      *time.Time         `json:"due_date"`
	Tuition      TuitionInput       `json:"tuition"`
	MiscFees     models.FeeItems    `json:"misc_fees"`
	LabFees      models.FeeItems    `json:"lab_fees"`
	OtherFees    models.FeeItems    `json:"other_fees"`
	Discounts    models.Discounts   `json:"discounts"`
	Scholarship  models.Scholarship `json:"scholarship"`
}

// UpdateFinancialFeesRequest replaces the assessment of a record.
type UpdateFinancialFeesRequest struct {
	Tuition   TuitionInput    `json:"tuition"`
	MiscFees  models.FeeItems `json:"misc_fees"`
	LabFees   models.FeeItems `json:"lab_fees"`
	OtherFees models.FeeItems `json:"other_fees"`
	DueDate   *time.Time      `json:"due_date"`
}

// FinancialServiceConfig bundles optional collaborators.
type FinancialServiceConfig struct {
	References referenceIssuer
	Events     eventEmitter
	Cache      *CacheService
	CacheTTL   time.Duration
	Metrics    *MetricsService
	Validator  *validator.Validate
	Logger     *zap.Logger
}

// FinancialService maintains per-term financial records. Every read returns
// the record recomputed against the current time so overdue status is never
// stale.
type FinancialService struct {
	repo       financialRecordRepository
	students   enrollmentStudentReader
	terms      termResolver
	references referenceIssuer
	events     eventEmitter
	cache      *CacheService
	cacheTTL   time.Duration
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	clock      func() time.Time
}

// NewFinancialService creates a FinancialService.
func NewFinancialService(repo financialRecordRepository, students enrollmentStudentReader, terms termResolver, cfg FinancialServiceConfig) *FinancialService {
	if cfg.Validator == nil {
		cfg.Validator = NewValidator()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &FinancialService{
		repo:       repo,
		students:   students,
		terms:      terms,
		references: cfg.References,
		events:     cfg.Events,
		cache:      cfg.Cache,
		cacheTTL:   cfg.CacheTTL,
		metrics:    cfg.Metrics,
		validator:  cfg.Validator,
		logger:     cfg.Logger,
		clock:      time.Now,
	}
}

// Create opens a financial record. A student holds at most one per term.
func (s *FinancialService) Create(ctx context.Context, req CreateFinancialRecordRequest) (*models.FinancialRecord, error) {
	req.StudentID = identifier.CanonicalStudentID(req.StudentID)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid financial record payload")
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

	existing, err := s.repo.FindByStudentTerm(ctx, req.StudentID, academicYear, semester)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing financial record")
	}
	if existing != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("financial record already exists for %s %s", academicYear, semester))
	}

	input := models.FinancialRecord{
		StudentID:    req.StudentID,
		EnrollmentID: req.EnrollmentID,
		AcademicYear: academicYear,
		Semester:     semester,
		DueDate:      req.DueDate,
		Tuition:      models.Tuition{BaseFee: req.Tuition.BaseFee, PerUnitFee: req.Tuition.PerUnitFee, Units: req.Tuition.Units},
		MiscFees:     req.MiscFees,
		LabFees:      req.LabFees,
		OtherFees:    req.OtherFees,
		Discounts:    req.Discounts,
		Scholarship:  req.Scholarship,
		Payments:     models.Payments{},
	}
	if err := ledger.ValidateFinancialInputs(input); err != nil {
		return nil, domainError(err)
	}
	record := ledger.RecomputeFinancial(input, s.clock())

	if err := s.repo.Create(ctx, &record); err != nil {
		if database.IsForeignKeyViolation(err, "") {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		if database.IsUniqueViolation(err, "") {
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("financial record already exists for %s %s", academicYear, semester))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create financial record")
	}
	s.cache.Evict(ctx, financialSummaryKey(record.StudentID))
	s.logger.Info("financial record created",
		zap.String("record_id", record.ID),
		zap.String("student_id", record.StudentID),
		zap.String("total_due", record.TotalDue.StringFixed(2)))
	return &record, nil
}

// Get returns a record recomputed as of now.
func (s *FinancialService) Get(ctx context.Context, id string) (*models.FinancialRecord, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "financial record")
	}
	current := ledger.RecomputeFinancial(*record, s.clock())
	return &current, nil
}

// ListByStudent returns every record of a student recomputed as of now.
func (s *FinancialService) ListByStudent(ctx context.Context, studentID string) ([]models.FinancialRecord, error) {
	records, err := s.repo.ListByStudent(ctx, identifier.CanonicalStudentID(studentID))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list financial records")
	}
	now := s.clock()
	for i := range records {
		records[i] = ledger.RecomputeFinancial(records[i], now)
	}
	return records, nil
}

// UpdateFees replaces tuition and fee items, and optionally the due date.
func (s *FinancialService) UpdateFees(ctx context.Context, id string, req UpdateFinancialFeesRequest, m Mutation) (*models.FinancialRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid fee payload")
	}
	return s.mutate(ctx, id, m, func(record *models.FinancialRecord) error {
		record.Tuition = models.Tuition{BaseFee: req.Tuition.BaseFee, PerUnitFee: req.Tuition.PerUnitFee, Units: req.Tuition.Units}
		record.MiscFees = req.MiscFees
		record.LabFees = req.LabFees
		record.OtherFees = req.OtherFees
		if req.DueDate != nil {
			record.DueDate = req.DueDate
		}
		return ledger.ValidateFinancialInputs(*record)
	})
}

// SetDiscounts replaces the discount list. Percentage discounts get their
// amount derived from the total assessment.
func (s *FinancialService) SetDiscounts(ctx context.Context, id string, discounts models.Discounts, m Mutation) (*models.FinancialRecord, error) {
	return s.mutate(ctx, id, m, func(record *models.FinancialRecord) error {
		record.Discounts = discounts
		return ledger.ValidateFinancialInputs(*record)
	})
}

// SetScholarship replaces the scholarship. It stacks with discounts.
func (s *FinancialService) SetScholarship(ctx context.Context, id string, scholarship models.Scholarship, m Mutation) (*models.FinancialRecord, error) {
	return s.mutate(ctx, id, m, func(record *models.FinancialRecord) error {
		record.Scholarship = scholarship
		return ledger.ValidateFinancialInputs(*record)
	})
}

// RecordPayment appends a payment and returns the updated record with the
// receipt of the new payment.
func (s *FinancialService) RecordPayment(ctx context.Context, id string, req RecordPaymentRequest, m Mutation) (*models.FinancialRecord, *models.Receipt, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, validationError(err, "invalid payment payload")
	}
	now := s.clock().UTC()
	payment := newPayment(req, s.references, m.ActorID, now)

	record, err := s.mutate(ctx, id, m, func(record *models.FinancialRecord) error {
		next, err := ledger.ApplyFinancialPayment(*record, payment, now)
		if err != nil {
			return err
		}
		*record = next
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	receipt, err := ledger.FinancialReceipt(*record, len(record.Payments)-1, now)
	if err != nil {
		return nil, nil, domainError(err)
	}

	amount, _ := payment.Amount.Float64()
	s.metrics.RecordPayment(models.ReceiptSourceFinancial, string(payment.Method), amount)
	if s.events != nil {
		s.events.PaymentRecorded(ctx, models.PaymentRecordedEvent{
			RecordID:         record.ID,
			RecordType:       models.ReceiptSourceFinancial,
			StudentID:        record.StudentID,
			ReferenceNumber:  payment.ReferenceNumber,
			Amount:           payment.Amount,
			RemainingBalance: record.RemainingBalance,
			Status:           string(record.Status),
			OccurredAt:       now,
		})
	}
	s.logger.Info("financial payment recorded",
		zap.String("record_id", record.ID),
		zap.String("reference", payment.ReferenceNumber),
		zap.String("amount", payment.Amount.StringFixed(2)),
		zap.String("status", string(record.Status)))
	return record, &receipt, nil
}

// Receipt builds the receipt of the payment at index.
func (s *FinancialService) Receipt(ctx context.Context, id string, index int) (*models.Receipt, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "financial record")
	}
	receipt, err := ledger.FinancialReceipt(*record, index, s.clock().UTC())
	if err != nil {
		return nil, domainError(err)
	}
	return &receipt, nil
}

// RefreshStatus persists the status derived as of now, e.g. when a due date
// has passed since the last write. Unchanged records are not written.
func (s *FinancialService) RefreshStatus(ctx context.Context, id string) (*models.FinancialRecord, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "financial record")
	}
	current := ledger.RecomputeFinancial(*record, s.clock())
	if current.Status == record.Status {
		return &current, nil
	}
	if err := s.repo.Update(ctx, &current); err != nil {
		return nil, saveError(err, "financial record")
	}
	s.cache.Evict(ctx, financialSummaryKey(current.StudentID))
	s.logger.Info("financial status refreshed",
		zap.String("record_id", current.ID),
		zap.String("from", string(record.Status)),
		zap.String("to", string(current.Status)))
	return &current, nil
}

// Summary aggregates every record of a student. The boolean reports a cache
// hit.
func (s *FinancialService) Summary(ctx context.Context, studentID string) (*dto.FinancialSummary, bool, error) {
	studentID = identifier.CanonicalStudentID(studentID)
	return cachedView(ctx, s.cache, financialSummaryKey(studentID), s.cacheTTL, func() (*dto.FinancialSummary, error) {
		records, err := s.ListByStudent(ctx, studentID)
		if err != nil {
			return nil, err
		}
		return summarize(studentID, records, s.clock().UTC()), nil
	})
}

func summarize(studentID string, records []models.FinancialRecord, generatedAt time.Time) *dto.FinancialSummary {
	summary := &dto.FinancialSummary{
		StudentID:        studentID,
		Records:          make([]dto.FinancialRecordDigest, 0, len(records)),
		TotalAssessment:  decimal.Zero,
		TotalDiscounts:   decimal.Zero,
		TotalDue:         decimal.Zero,
		TotalPaid:        decimal.Zero,
		RemainingBalance: decimal.Zero,
		GeneratedAt:      generatedAt,
	}
	for _, record := range records {
		summary.Records = append(summary.Records, dto.FinancialRecordDigest{
			ID:               record.ID,
			AcademicYear:     record.AcademicYear,
			Semester:         record.Semester,
			TotalDue:         record.TotalDue,
			TotalPaid:        record.TotalPaid,
			RemainingBalance: record.RemainingBalance,
			Status:           record.Status,
			DueDate:          record.DueDate,
		})
		summary.TotalAssessment = summary.TotalAssessment.Add(record.TotalAssessment)
		summary.TotalDiscounts = summary.TotalDiscounts.Add(record.TotalDiscounts)
		summary.TotalDue = summary.TotalDue.Add(record.TotalDue)
		summary.TotalPaid = summary.TotalPaid.Add(record.TotalPaid)
		summary.RemainingBalance = summary.RemainingBalance.Add(record.RemainingBalance)
	}
	return summary
}

func (s *FinancialService) mutate(ctx context.Context, id string, m Mutation, apply func(*models.FinancialRecord) error) (*models.FinancialRecord, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "financial record")
	}
	if err := m.check(record.Version); err != nil {
		return nil, err
	}
	if err := apply(record); err != nil {
		return nil, domainError(err)
	}
	next := ledger.RecomputeFinancial(*record, s.clock())
	if err := s.repo.Update(ctx, &next); err != nil {
		return nil, saveError(err, "financial record")
	}
	s.cache.Evict(ctx, financialSummaryKey(next.StudentID))
	return &next, nil
}
