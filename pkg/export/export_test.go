package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uphsl-enrollment-api/internal/models"
)

func TestStatementCSV(t *testing.T) {
	paidAt := time.Date(2025, 8, 1, 9, 0, 0, 0, time.UTC)
	record := models.FinancialRecord{
		StudentID:        "m25-1470-100",
		AcademicYear:     "2025-2026",
		Semester:         models.SemesterFirst,
		Status:           models.FinancialStatusPartiallyPaid,
		TotalDue:         decimal.RequireFromString("3217.5"),
		TotalPaid:        decimal.RequireFromString("1217.5"),
		RemainingBalance: decimal.NewFromInt(2000),
		Payments: models.Payments{
			{Amount: decimal.NewFromInt(1000), Method: models.PaymentMethodCash, ReferenceNumber: "OR-2025-1", PaidAt: paidAt},
			{Amount: decimal.RequireFromString("217.5"), Method: models.PaymentMethodOnline, ReferenceNumber: "OR-2025-2", PaidAt: paidAt.AddDate(0, 1, 0)},
		},
	}

	out, err := NewCSVExporter().Render(StatementDataset(record))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 10)
	assert.Equal(t, "student_id,m25-1470-100", lines[0])
	assert.Equal(t, "term,2025-2026 FIRST", lines[1])
	assert.Equal(t, "remaining_balance,2000.00", lines[4])
	assert.Equal(t, "status,PARTIALLY_PAID", lines[5])
	assert.Equal(t, "", lines[6])
	assert.Equal(t, "date,reference,method,amount,running_balance", lines[7])
	assert.Equal(t, "2025-08-01,OR-2025-1,CASH,1000.00,2217.50", lines[8])
	assert.Equal(t, "2025-09-01,OR-2025-2,ONLINE,217.50,2000.00", lines[9])
}

func TestCSVRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestReceiptPDF(t *testing.T) {
	receipt := models.Receipt{
		ReceiptNumber: "OR-2025-000000000001",
		StudentID:     "m23-1470-578",
		AcademicYear:  "2025-2026",
		Semester:      models.SemesterFirst,
		Payment:       models.Payment{Amount: decimal.NewFromInt(1000), Method: models.PaymentMethodCash},
		Assessment:    []models.ReceiptLine{{Label: "Tuition", Amount: decimal.NewFromInt(3000)}},
		TotalDue:      decimal.RequireFromString("3217.5"),
		GeneratedAt:   time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),
	}

	out, err := NewReceiptPDF("").Render(receipt)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "PHP 357.50", FormatAmount(decimal.RequireFromString("357.5")))
}
