package export

import (
	"github.com/noah-isme/uphsl-enrollment-api/internal/models"
)

// Statement columns.
const (
	ColumnDate      = "date"
	ColumnReference = "reference"
	ColumnMethod    = "method"
	ColumnAmount    = "amount"
	ColumnBalance   = "running_balance"
)

// StatementDataset lists every payment of a recomputed financial record with
// the balance left after it, under a summary of the record.
func StatementDataset(record models.FinancialRecord) Dataset {
	data := Dataset{
		Preamble: [][]string{
			{"student_id", record.StudentID},
			{"term", record.AcademicYear + " " + string(record.Semester)},
			{"total_due", record.TotalDue.StringFixed(2)},
			{"total_paid", record.TotalPaid.StringFixed(2)},
			{"remaining_balance", record.RemainingBalance.StringFixed(2)},
			{"status", string(record.Status)},
		},
		Headers: []string{ColumnDate, ColumnReference, ColumnMethod, ColumnAmount, ColumnBalance},
	}
	balance := record.TotalDue
	for _, payment := range record.Payments {
		balance = balance.Sub(payment.Amount)
		data.Rows = append(data.Rows, map[string]string{
			ColumnDate:      payment.PaidAt.Format("2006-01-02"),
			ColumnReference: payment.ReferenceNumber,
			ColumnMethod:    string(payment.Method),
			ColumnAmount:    payment.Amount.StringFixed(2),
			ColumnBalance:   balance.StringFixed(2),
		})
	}
	return data
}
