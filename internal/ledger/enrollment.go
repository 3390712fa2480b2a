package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/uphsl-enrollment-api/internal/models"
)

// EnrollmentDiscountAmount is round2(totalFees*discount/100).
func EnrollmentDiscountAmount(record models.EnrollmentRecord) decimal.Decimal {
	total := record.TuitionFee.Add(record.MiscFees).Add(record.LabFees)
	return percentOf(total, record.Discount)
}

// RecomputeBalance rewrites TotalFees and Balance of an enrollment. The balance
// is not clamped; overpayment yields a negative value.
func RecomputeBalance(record models.EnrollmentRecord) models.EnrollmentRecord {
	out := record
	out.Payments = clonePayments(record.Payments)
	if out.ScholarshipType == "" {
		out.ScholarshipType = models.ScholarshipNone
	}
	out.TotalFees = out.TuitionFee.Add(out.MiscFees).Add(out.LabFees)
	out.Balance = out.TotalFees.Sub(EnrollmentDiscountAmount(out)).Sub(SumPayments(out.Payments))
	return out
}

// ApplyEnrollmentPayment appends payment and recomputes the balance.
func ApplyEnrollmentPayment(record models.EnrollmentRecord, payment models.Payment) (models.EnrollmentRecord, error) {
	if err := validatePayment(payment); err != nil {
		return record, err
	}
	out := record
	out.Payments = append(clonePayments(record.Payments), payment)
	return RecomputeBalance(out), nil
}

// ValidateEnrollmentFees rejects negative fees and a discount outside 0..100.
func ValidateEnrollmentFees(tuition, misc, lab, discount decimal.Decimal) error {
	if tuition.IsNegative() || misc.IsNegative() || lab.IsNegative() {
		return ErrNegativeFee
	}
	if !validPercentage(discount) {
		return ErrInvalidPercentage
	}
	return nil
}

// RecomputeEnrollment derives final grades for every registration and then the
// fee balance.
func RecomputeEnrollment(record models.EnrollmentRecord, policy GradingPolicy) models.EnrollmentRecord {
	out := RecomputeBalance(record)
	if record.Subjects == nil {
		return out
	}
	subjects := make(models.SubjectRegistrations, len(record.Subjects))
	for i, subject := range record.Subjects {
		subject.Schedule = append([]models.ScheduleSlot(nil), subject.Schedule...)
		subject.FinalGrade = policy.FinalGrade(subject.Grades)
		subjects[i] = subject
	}
	out.Subjects = subjects
	return out
}
