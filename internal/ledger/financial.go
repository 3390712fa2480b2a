package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/uphsl-enrollment-api/internal/models"
)

// TuitionTotal is base + perUnit*units.
func TuitionTotal(t models.Tuition) decimal.Decimal {
	return t.BaseFee.Add(t.PerUnitFee.Mul(decimal.NewFromInt(int64(t.Units))))
}

// ScholarshipDiscount applies each coverage percentage to its fee category.
func ScholarshipDiscount(s models.Scholarship, tuition, misc, lab, other decimal.Decimal) decimal.Decimal {
	return percentOf(tuition, s.Coverage.Tuition).
		Add(percentOf(misc, s.Coverage.Misc)).
		Add(percentOf(lab, s.Coverage.Lab)).
		Add(percentOf(other, s.Coverage.Other))
}

// DeriveStatus picks the first matching rule: fully paid, partially paid,
// overdue, pending.
func DeriveStatus(remaining, paid decimal.Decimal, dueDate *time.Time, now time.Time) models.FinancialStatus {
	switch {
	case !remaining.IsPositive():
		return models.FinancialStatusFullyPaid
	case paid.IsPositive():
		return models.FinancialStatusPartiallyPaid
	case dueDate != nil && now.After(*dueDate):
		return models.FinancialStatusOverdue
	default:
		return models.FinancialStatusPending
	}
}

// RecomputeFinancial returns a copy of record with every derived field
// rewritten from the fee, discount, scholarship and payment inputs. Calling it
// again on its own output yields the same record.
func RecomputeFinancial(record models.FinancialRecord, now time.Time) models.FinancialRecord {
	out := record
	out.MiscFees = cloneFees(record.MiscFees)
	out.LabFees = cloneFees(record.LabFees)
	out.OtherFees = cloneFees(record.OtherFees)
	out.Discounts = cloneDiscounts(record.Discounts)
	out.Payments = clonePayments(record.Payments)
	if out.Scholarship.Type == "" {
		out.Scholarship.Type = models.ScholarshipNone
	}

	tuition := TuitionTotal(out.Tuition)
	misc := SumFees(out.MiscFees)
	lab := SumFees(out.LabFees)
	other := SumFees(out.OtherFees)
	out.Tuition.Total = tuition
	out.TotalAssessment = tuition.Add(misc).Add(lab).Add(other)

	discounts := decimal.Zero
	for i := range out.Discounts {
		if pct := out.Discounts[i].Percentage; pct != nil {
			out.Discounts[i].Amount = percentOf(out.TotalAssessment, *pct)
		}
		discounts = discounts.Add(out.Discounts[i].Amount)
	}

	out.ScholarshipDiscount = ScholarshipDiscount(out.Scholarship, tuition, misc, lab, other)
	out.TotalDiscounts = discounts.Add(out.ScholarshipDiscount)
	out.TotalDue = out.TotalAssessment.Sub(out.TotalDiscounts)
	out.TotalPaid = SumPayments(out.Payments)
	out.RemainingBalance = out.TotalDue.Sub(out.TotalPaid)
	out.Status = DeriveStatus(out.RemainingBalance, out.TotalPaid, out.DueDate, now)
	return out
}

// ApplyFinancialPayment appends payment and recomputes.
func ApplyFinancialPayment(record models.FinancialRecord, payment models.Payment, now time.Time) (models.FinancialRecord, error) {
	if err := validatePayment(payment); err != nil {
		return record, err
	}
	out := record
	out.Payments = append(clonePayments(record.Payments), payment)
	return RecomputeFinancial(out, now), nil
}

// ValidateFinancialInputs rejects negative fees and percentages outside 0..100.
func ValidateFinancialInputs(record models.FinancialRecord) error {
	t := record.Tuition
	if t.BaseFee.IsNegative() || t.PerUnitFee.IsNegative() || t.Units < 0 {
		return ErrNegativeFee
	}
	for _, items := range []models.FeeItems{record.MiscFees, record.LabFees, record.OtherFees} {
		for _, item := range items {
			if item.Amount.IsNegative() {
				return ErrNegativeFee
			}
		}
	}
	for _, d := range record.Discounts {
		if d.Percentage != nil {
			if !validPercentage(*d.Percentage) {
				return ErrInvalidPercentage
			}
			continue
		}
		if d.Amount.IsNegative() {
			return ErrNegativeFee
		}
	}
	c := record.Scholarship.Coverage
	for _, pct := range []decimal.Decimal{c.Tuition, c.Misc, c.Lab, c.Other} {
		if !validPercentage(pct) {
			return ErrInvalidPercentage
		}
	}
	return nil
}

func cloneFees(src models.FeeItems) models.FeeItems {
	if src == nil {
		return nil
	}
	out := make(models.FeeItems, len(src))
	copy(out, src)
	return out
}

func cloneDiscounts(src models.Discounts) models.Discounts {
	if src == nil {
		return nil
	}
	out := make(models.Discounts, len(src))
	copy(out, src)
	return out
}
