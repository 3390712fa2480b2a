package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Receipt record types.
const (
	ReceiptSourceEnrollment = "ENROLLMENT"
	ReceiptSourceFinancial  = "FINANCIAL"
)

// ReceiptLine is a labelled amount printed on a receipt.
type ReceiptLine struct {
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
}

// Receipt is a computed, point-in-time view of one payment. It is never
// persisted.
type Receipt struct {
	ReceiptNumber    string          `json:"receipt_number"`
	RecordID         string          `json:"record_id"`
	RecordType       string          `json:"record_type"`
	StudentID        string          `json:"student_id"`
	AcademicYear     string          `json:"academic_year"`
	Semester         Semester        `json:"semester"`
	PaymentIndex     int             `json:"payment_index"`
	Payment          Payment         `json:"payment"`
	PreviousPayments decimal.Decimal `json:"previous_payments"`
	BalanceBefore    decimal.Decimal `json:"balance_before"`
	BalanceAfter     decimal.Decimal `json:"balance_after"`
	Assessment       []ReceiptLine   `json:"assessment"`
	Deductions       []ReceiptLine   `json:"deductions"`
	TotalAssessment  decimal.Decimal `json:"total_assessment"`
	TotalDiscounts   decimal.Decimal `json:"total_discounts"`
	TotalDue         decimal.Decimal `json:"total_due"`
	GeneratedAt      time.Time       `json:"generated_at"`
}
