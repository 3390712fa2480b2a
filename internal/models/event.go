package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentRecordedEvent is published after a payment is appended to a ledger.
type PaymentRecordedEvent struct {
	RecordID         string          `json:"record_id"`
	RecordType       string          `json:"record_type"`
	StudentID        string          `json:"student_id"`
	ReferenceNumber  string          `json:"reference_number"`
	Amount           decimal.Decimal `json:"amount"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
	Status           string          `json:"status,omitempty"`
	OccurredAt       time.Time       `json:"occurred_at"`
}

// EnrollmentDecidedEvent is published when an enrollment is approved or
// rejected.
type EnrollmentDecidedEvent struct {
	EnrollmentID string           `json:"enrollment_id"`
	StudentID    string           `json:"student_id"`
	AcademicYear string           `json:"academic_year"`
	Semester     Semester         `json:"semester"`
	Status       EnrollmentStatus `json:"status"`
	DecidedBy    string           `json:"decided_by"`
	OccurredAt   time.Time        `json:"occurred_at"`
}
