package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment methods accepted at the counter plus the online gateway.
const (
	PaymentMethodCash     = "cash"
	PaymentMethodCard     = "card"
	PaymentMethodTransfer = "transfer"
	PaymentMethodCheque   = "cheque"
	PaymentMethodGateway  = "gateway"
)

// Payment is append-only. There is no per-payment void or edit; a correction
// is a new payment with a negative amount.
type Payment struct {
	ID            int             `json:"id"`
	CompanyID     int             `json:"company_id"`
	InvoiceID     int             `json:"invoice_id"`
	PaymentNumber string          `json:"payment_number"`
	Amount        decimal.Decimal `json:"amount"`
	Method        string          `json:"method"`
	Reference     string          `json:"reference,omitempty"`
	ReceivedByID  *int            `json:"received_by_id,omitempty"`
	PaymentDate   time.Time       `json:"payment_date"`
	CreatedAt     time.Time       `json:"created_at"`
}

type AddPaymentRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method" validate:"required,oneof=cash card transfer cheque gateway"`
	Reference string          `json:"reference"`
}
