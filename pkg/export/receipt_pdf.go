package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/uphsl-enrollment-api/internal/models"
)

const receiptTimeLayout = "2006-01-02 15:04 MST"

// ReceiptPDF renders official receipts.
type ReceiptPDF struct {
	institution string
}

// NewReceiptPDF constructs a renderer printing institution in the header.
func NewReceiptPDF(institution string) *ReceiptPDF {
	if institution == "" {
		institution = "University of Perpetual Help System Laguna"
	}
	return &ReceiptPDF{institution: institution}
}

// Render lays out a single page receipt.
func (r *ReceiptPDF) Render(receipt models.Receipt) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A5", "")
	pdf.SetMargins(10, 12, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 13)
	pdf.CellFormat(0, 8, r.institution, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, "OFFICIAL RECEIPT", "", 1, "C", false, 0, "")
	pdf.Ln(3)

	field := func(label, value string) {
		pdf.SetFont("Arial", "B", 9)
		pdf.CellFormat(40, 6, label, "", 0, "", false, 0, "")
		pdf.SetFont("Arial", "", 9)
		pdf.CellFormat(0, 6, value, "", 1, "", false, 0, "")
	}
	field("Receipt No.", receipt.ReceiptNumber)
	field("Student ID", receipt.StudentID)
	field("Term", strings.TrimSpace(fmt.Sprintf("%s %s", receipt.AcademicYear, receipt.Semester)))
	field("Paid At", receipt.Payment.PaidAt.Format(receiptTimeLayout))
	field("Method", string(receipt.Payment.Method))
	if receipt.Payment.ReceivedBy != "" {
		field("Received By", receipt.Payment.ReceivedBy)
	}
	pdf.Ln(2)

	section := func(title string, lines []models.ReceiptLine) {
		if len(lines) == 0 {
			return
		}
		pdf.SetFont("Arial", "B", 9)
		pdf.CellFormat(0, 6, title, "B", 1, "", false, 0, "")
		pdf.SetFont("Arial", "", 9)
		for _, line := range lines {
			amountRow(pdf, line.Label, line.Amount, false)
		}
		pdf.Ln(1)
	}
	section("Assessment", receipt.Assessment)
	section("Deductions", receipt.Deductions)

	amountRow(pdf, "Total Assessment", receipt.TotalAssessment, true)
	amountRow(pdf, "Total Discounts", receipt.TotalDiscounts, true)
	amountRow(pdf, "Total Due", receipt.TotalDue, true)
	amountRow(pdf, "Previous Payments", receipt.PreviousPayments, false)
	amountRow(pdf, "Balance Before", receipt.BalanceBefore, false)
	amountRow(pdf, "Amount Paid", receipt.Payment.Amount, true)
	amountRow(pdf, "Balance After", receipt.BalanceAfter, true)

	pdf.Ln(4)
	pdf.SetFont("Arial", "I", 7)
	pdf.CellFormat(0, 5, "Generated "+receipt.GeneratedAt.Format(receiptTimeLayout), "", 1, "R", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render receipt pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func amountRow(pdf *gofpdf.Fpdf, label string, amount decimal.Decimal, bold bool) {
	style := ""
	if bold {
		style = "B"
	}
	pdf.SetFont("Arial", style, 9)
	pdf.CellFormat(90, 6, label, "", 0, "", false, 0, "")
	pdf.CellFormat(0, 6, FormatAmount(amount), "", 1, "R", false, 0, "")
}

// FormatAmount prints an amount with two decimals. The core PDF fonts have no
// peso glyph.
func FormatAmount(amount decimal.Decimal) string {
	return "PHP " + amount.StringFixed(2)
}
