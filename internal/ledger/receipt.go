package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/uphsl-enrollment-api/internal/models"
)

// FinancialReceipt builds the receipt for payments[index] of a recomputed copy
// of record.
func FinancialReceipt(record models.FinancialRecord, index int, now time.Time) (models.Receipt, error) {
	current := RecomputeFinancial(record, now)
	if index < 0 || index >= len(current.Payments) {
		return models.Receipt{}, ErrPaymentNotFound
	}

	assessment := []models.ReceiptLine{
		{Label: "Tuition", Amount: current.Tuition.Total},
	}
	assessment = appendFeeLines(assessment, "Miscellaneous", current.MiscFees)
	assessment = appendFeeLines(assessment, "Laboratory", current.LabFees)
	assessment = appendFeeLines(assessment, "Other", current.OtherFees)

	var deductions []models.ReceiptLine
	for _, d := range current.Discounts {
		label := d.Type
		if d.Percentage != nil {
			label = fmt.Sprintf("%s (%s%%)", d.Type, d.Percentage.String())
		}
		deductions = append(deductions, models.ReceiptLine{Label: label, Amount: d.Amount})
	}
	if current.ScholarshipDiscount.IsPositive() {
		deductions = append(deductions, models.ReceiptLine{
			Label:  "Scholarship: " + current.Scholarship.Type,
			Amount: current.ScholarshipDiscount,
		})
	}

	receipt := buildReceipt(current.Payments, index, current.TotalDue, now)
	receipt.RecordID = current.ID
	receipt.RecordType = models.ReceiptSourceFinancial
	receipt.StudentID = current.StudentID
	receipt.AcademicYear = current.AcademicYear
	receipt.Semester = current.Semester
	receipt.Assessment = assessment
	receipt.Deductions = deductions
	receipt.TotalAssessment = current.TotalAssessment
	receipt.TotalDiscounts = current.TotalDiscounts
	return receipt, nil
}

// EnrollmentReceipt builds the receipt for payments[index] of an enrollment.
func EnrollmentReceipt(record models.EnrollmentRecord, index int, now time.Time) (models.Receipt, error) {
	current := RecomputeBalance(record)
	if index < 0 || index >= len(current.Payments) {
		return models.Receipt{}, ErrPaymentNotFound
	}

	discount := EnrollmentDiscountAmount(current)
	totalDue := current.TotalFees.Sub(discount)

	var deductions []models.ReceiptLine
	if discount.IsPositive() {
		deductions = append(deductions, models.ReceiptLine{
			Label:  fmt.Sprintf("Discount (%s%%)", current.Discount.String()),
			Amount: discount,
		})
	}

	receipt := buildReceipt(current.Payments, index, totalDue, now)
	receipt.RecordID = current.ID
	receipt.RecordType = models.ReceiptSourceEnrollment
	receipt.StudentID = current.StudentID
	receipt.AcademicYear = current.AcademicYear
	receipt.Semester = current.Semester
	receipt.Assessment = []models.ReceiptLine{
		{Label: "Tuition", Amount: current.TuitionFee},
		{Label: "Miscellaneous", Amount: current.MiscFees},
		{Label: "Laboratory", Amount: current.LabFees},
	}
	receipt.Deductions = deductions
	receipt.TotalAssessment = current.TotalFees
	receipt.TotalDiscounts = discount
	return receipt, nil
}

func buildReceipt(payments models.Payments, index int, totalDue decimal.Decimal, now time.Time) models.Receipt {
	payment := payments[index]
	previous := SumPayments(payments[:index])
	before := totalDue.Sub(previous)

	number := payment.ReferenceNumber
	if number == "" {
		number = fmt.Sprintf("PAY-%d", index+1)
	}

	return models.Receipt{
		ReceiptNumber:    number,
		PaymentIndex:     index,
		Payment:          payment,
		PreviousPayments: previous,
		BalanceBefore:    before,
		BalanceAfter:     before.Sub(payment.Amount),
		TotalDue:         totalDue,
		GeneratedAt:      now,
	}
}

func appendFeeLines(lines []models.ReceiptLine, category string, items models.FeeItems) []models.ReceiptLine {
	for _, item := range items {
		label := category
		if item.Name != "" {
			label = category + ": " + item.Name
		}
		lines = append(lines, models.ReceiptLine{Label: label, Amount: item.Amount})
	}
	return lines
}
