// Package ledger derives balances, statuses, grades and receipts from the
// stored inputs of enrollment and financial records. Every function is pure:
// it returns a recomputed copy and never mutates its argument.
package ledger

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/uphsl-enrollment-api/internal/models"
)

var (
	ErrPaymentNotFound   = errors.New("payment not found")
	ErrInvalidAmount     = errors.New("amount must be greater than zero")
	ErrNegativeFee       = errors.New("fees must not be negative")
	ErrInvalidPercentage = errors.New("percentage must be between 0 and 100")
	ErrScheduleConflict  = errors.New("schedule conflict")
	ErrInvalidWeights    = errors.New("grade weights must total 100")
	ErrInvalidSlot       = errors.New("invalid schedule slot")
)

var hundred = decimal.NewFromInt(100)

func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// percentOf returns round2(base*pct/100).
func percentOf(base, pct decimal.Decimal) decimal.Decimal {
	return round2(base.Mul(pct).Div(hundred))
}

func validPercentage(pct decimal.Decimal) bool {
	return !pct.IsNegative() && pct.LessThanOrEqual(hundred)
}

// SumFees totals a fee category.
func SumFees(items models.FeeItems) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Amount)
	}
	return total
}

// SumPayments totals a payment ledger.
func SumPayments(payments models.Payments) decimal.Decimal {
	total := decimal.Zero
	for _, payment := range payments {
		total = total.Add(payment.Amount)
	}
	return total
}

func clonePayments(src models.Payments) models.Payments {
	if src == nil {
		return nil
	}
	out := make(models.Payments, len(src))
	copy(out, src)
	return out
}

func validatePayment(payment models.Payment) error {
	if !payment.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}
