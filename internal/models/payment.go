package models

import (
	"database/sql/driver"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod identifies how a payment was tendered.
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "CASH"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodCheck        PaymentMethod = "CHECK"
	PaymentMethodOnline       PaymentMethod = "ONLINE"
)

// Payment is a single entry of a record's payment ledger. Entries are only
// ever appended; their index is stable and used to address receipts.
type Payment struct {
	Amount          decimal.Decimal `json:"amount"`
	Method          PaymentMethod   `json:"method"`
	ReferenceNumber string          `json:"reference_number"`
	PaidAt          time.Time       `json:"paid_at"`
	ReceivedBy      string          `json:"received_by,omitempty"`
	Remarks         string          `json:"remarks,omitempty"`
}

// Payments is stored as a JSONB array.
type Payments []Payment

// Value implements driver.Valuer.
func (p Payments) Value() (driver.Value, error) {
	if p == nil {
		return jsonValue([]Payment{})
	}
	return jsonValue([]Payment(p))
}

// Scan implements sql.Scanner.
func (p *Payments) Scan(src interface{}) error {
	return scanJSON(src, p)
}
