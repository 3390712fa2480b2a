package models

import (
	"database/sql/driver"
	"time"

	"github.com/shopspring/decimal"
)

// FinancialStatus is derived from the remaining balance, payments and due date.
type FinancialStatus string

const (
	FinancialStatusFullyPaid     FinancialStatus = "FULLY_PAID"
	FinancialStatusPartiallyPaid FinancialStatus = "PARTIALLY_PAID"
	FinancialStatusOverdue       FinancialStatus = "OVERDUE"
	FinancialStatusPending       FinancialStatus = "PENDING"
)

// ScholarshipNone is the neutral scholarship type.
const ScholarshipNone = "none"

// Tuition is assessed as a base fee plus a per-unit rate.
type Tuition struct {
	BaseFee    decimal.Decimal `json:"base_fee"`
	PerUnitFee decimal.Decimal `json:"per_unit_fee"`
	Units      int             `json:"units"`
	Total      decimal.Decimal `json:"total"`
}

// Value implements driver.Valuer.
func (t Tuition) Value() (driver.Value, error) { return jsonValue(t) }

// Scan implements sql.Scanner.
func (t *Tuition) Scan(src interface{}) error { return scanJSON(src, t) }

// FeeItem is a named line of a fee category.
type FeeItem struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// FeeItems is stored as a JSONB array.
type FeeItems []FeeItem

// Value implements driver.Valuer.
func (f FeeItems) Value() (driver.Value, error) {
	if f == nil {
		return jsonValue([]FeeItem{})
	}
	return jsonValue([]FeeItem(f))
}

// Scan implements sql.Scanner.
func (f *FeeItems) Scan(src interface{}) error { return scanJSON(src, f) }

// Discount is either percentage based, in which case Amount is derived from
// the total assessment, or a flat Amount.
type Discount struct {
	Type       string           `json:"type"`
	Percentage *decimal.Decimal `json:"percentage,omitempty"`
	Amount     decimal.Decimal  `json:"amount"`
}

// Discounts is stored as a JSONB array.
type Discounts []Discount

// Value implements driver.Valuer.
func (d Discounts) Value() (driver.Value, error) {
	if d == nil {
		return jsonValue([]Discount{})
	}
	return jsonValue([]Discount(d))
}

// Scan implements sql.Scanner.
func (d *Discounts) Scan(src interface{}) error { return scanJSON(src, d) }

// ScholarshipCoverage holds the percentage covered per fee category.
type ScholarshipCoverage struct {
	Tuition decimal.Decimal `json:"tuition"`
	Misc    decimal.Decimal `json:"misc"`
	Lab     decimal.Decimal `json:"lab"`
	Other   decimal.Decimal `json:"other"`
}

// Scholarship describes the grant applied to a financial record.
type Scholarship struct {
	Type     string              `json:"type"`
	Coverage ScholarshipCoverage `json:"coverage"`
}

// Value implements driver.Valuer.
func (s Scholarship) Value() (driver.Value, error) { return jsonValue(s) }

// Scan implements sql.Scanner.
func (s *Scholarship) Scan(src interface{}) error { return scanJSON(src, s) }

// FinancialRecord is the full fee ledger of one student for one term. Every
// field from TotalAssessment to Status is derived and must only be written by
// the ledger recomputation.
type FinancialRecord struct {
	ID           string     `db:"id" json:"id"`
	StudentID    string     `db:"student_id" json:"student_id"`
	EnrollmentID *string    `db:"enrollment_id" json:"enrollment_id,omitempty"`
	AcademicYear string     `db:"academic_year" json:"academic_year"`
	Semester     Semester   `db:"semester" json:"semester"`
	DueDate      *time.Time `db:"due_date" json:"due_date,omitempty"`

	Tuition     Tuition     `db:"tuition" json:"tuition"`
	MiscFees    FeeItems    `db:"misc_fees" json:"misc_fees"`
	LabFees     FeeItems    `db:"lab_fees" json:"lab_fees"`
	OtherFees   FeeItems    `db:"other_fees" json:"other_fees"`
	Discounts   Discounts   `db:"discounts" json:"discounts"`
	Scholarship Scholarship `db:"scholarship" json:"scholarship"`
	Payments    Payments    `db:"payments" json:"payments"`

	TotalAssessment     decimal.Decimal `db:"total_assessment" json:"total_assessment"`
	ScholarshipDiscount decimal.Decimal `db:"scholarship_discount" json:"scholarship_discount"`
	TotalDiscounts      decimal.Decimal `db:"total_discounts" json:"total_discounts"`
	TotalDue            decimal.Decimal `db:"total_due" json:"total_due"`
	TotalPaid           decimal.Decimal `db:"total_paid" json:"total_paid"`
	RemainingBalance    decimal.Decimal `db:"remaining_balance" json:"remaining_balance"`
	Status              FinancialStatus `db:"status" json:"status"`

	Version   int       `db:"version" json:"version"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
