package service

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uphsl-enrollment-api/internal/models"
)

func TestReceiptServiceRenders(t *testing.T) {
	svc := NewReceiptService("University of Perpetual Help System Laguna", nil)
	receipt := models.Receipt{
		ReceiptNumber: "OR-2025-000000000001",
		RecordType:    models.ReceiptSourceFinancial,
		StudentID:     "m25-1470-100",
		Payment:       models.Payment{Amount: decimal.NewFromInt(1000), Method: models.PaymentMethodCash, PaidAt: time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)},
		BalanceBefore: decimal.RequireFromString("3217.5"),
		BalanceAfter:  decimal.RequireFromString("2217.5"),
		TotalDue:      decimal.RequireFromString("3217.5"),
	}

	pdf, err := svc.RenderPDF(receipt)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(pdf), "%PDF"))
	assert.Equal(t, "receipt-OR-2025-000000000001.pdf", ReceiptFilename(receipt))

	record := models.FinancialRecord{
		StudentID: "m25-1470-100", AcademicYear: "2025-2026", Semester: models.SemesterFirst,
		TotalDue: decimal.RequireFromString("3217.5"),
		Payments: models.Payments{receipt.Payment},
	}
	csv, err := svc.StatementCSV(record)
	require.NoError(t, err)
	assert.Contains(t, string(csv), "2217.50")
	assert.Equal(t, "statement-m25-1470-100-2025-2026-FIRST.csv", StatementFilename(record))
}
