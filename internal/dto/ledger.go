package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/uphsl-enrollment-api/internal/models"
)

// FinancialSummary aggregates every financial record of a student.
type FinancialSummary struct {
	StudentID        string                  `json:"student_id"`
	Records          []FinancialRecordDigest `json:"records"`
	TotalAssessment  decimal.Decimal         `json:"total_assessment"`
	TotalDiscounts   decimal.Decimal         `json:"total_discounts"`
	TotalDue         decimal.Decimal         `json:"total_due"`
	TotalPaid        decimal.Decimal         `json:"total_paid"`
	RemainingBalance decimal.Decimal         `json:"remaining_balance"`
	GeneratedAt      time.Time               `json:"generated_at"`
}

// FinancialRecordDigest is the per-term line of a FinancialSummary.
type FinancialRecordDigest struct {
	ID               string                 `json:"id"`
	AcademicYear     string                 `json:"academic_year"`
	Semester         models.Semester        `json:"semester"`
	TotalDue         decimal.Decimal        `json:"total_due"`
	TotalPaid        decimal.Decimal        `json:"total_paid"`
	RemainingBalance decimal.Decimal        `json:"remaining_balance"`
	Status           models.FinancialStatus `json:"status"`
	DueDate          *time.Time             `json:"due_date,omitempty"`
}

// GPAView is the grade point average of a student across approved enrollments.
type GPAView struct {
	StudentID         string    `json:"student_id"`
	GPA               float64   `json:"gpa"`
	CompletedSubjects int       `json:"completed_subjects"`
	CompletedUnits    int       `json:"completed_units"`
	GeneratedAt       time.Time `json:"generated_at"`
}

// MetricsSnapshot is a lightweight JSON view over the Prometheus collectors.
type MetricsSnapshot struct {
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	PaymentsRecorded         uint64    `json:"payments_recorded"`
	IdentifiersIssued        uint64    `json:"identifiers_issued"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
