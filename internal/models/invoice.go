package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus: draft and sent are set explicitly, paid/partially_paid/
// overdue are derived from the money, voided is a terminal override.
type InvoiceStatus string

const (
	InvoiceDraft         InvoiceStatus = "draft"
	InvoiceSent          InvoiceStatus = "sent"
	InvoicePartiallyPaid InvoiceStatus = "partially_paid"
	InvoicePaid          InvoiceStatus = "paid"
	InvoiceOverdue       InvoiceStatus = "overdue"
	InvoiceVoided        InvoiceStatus = "voided"
)

// Invoice carries cached totals that are always rewritten from the child
// rows by recalculation, never patched incrementally.
type Invoice struct {
	ID             int             `json:"id"`
	CompanyID      int             `json:"company_id"`
	InvoiceNumber  string          `json:"invoice_number"`
	ClientID       int             `json:"client_id"`
	SessionID      *int            `json:"session_id,omitempty"`
	JobCardID      *int            `json:"job_card_id,omitempty"`
	Status         InvoiceStatus   `json:"status"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Total          decimal.Decimal `json:"total"`
	PaidAmount     decimal.Decimal `json:"paid_amount"`
	BalanceDue     decimal.Decimal `json:"balance_due"`
	DueDate        *time.Time      `json:"due_date,omitempty"`
	PaidDate       *time.Time      `json:"paid_date,omitempty"`
	Notes          string          `json:"notes,omitempty"`
	Version        int             `json:"version"`
	Items          []InvoiceItem   `json:"items,omitempty"`
	Payments       []Payment       `json:"payments,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      *time.Time      `json:"updated_at,omitempty"`
}

// InvoiceItem is one billed line. The derived columns satisfy
// Subtotal = Quantity*UnitPrice, TaxAmount = Subtotal*TaxRate,
// Total = Subtotal+TaxAmount.
type InvoiceItem struct {
	ID          int             `json:"id"`
	CompanyID   int             `json:"company_id"`
	InvoiceID   int             `json:"invoice_id"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	TaxAmount   decimal.Decimal `json:"tax_amount"`
	Total       decimal.Decimal `json:"total"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ComputeTotals fills the derived line columns.
func (it *InvoiceItem) ComputeTotals() {
	it.Subtotal = it.Quantity.Mul(it.UnitPrice).Round(2)
	it.TaxAmount = it.Subtotal.Mul(it.TaxRate).Round(2)
	it.Total = it.Subtotal.Add(it.TaxAmount)
}

// InvoiceTotals is the resum-from-children result applied by recalculation.
type InvoiceTotals struct {
	Subtotal   decimal.Decimal
	TaxAmount  decimal.Decimal
	Total      decimal.Decimal
	PaidAmount decimal.Decimal
	BalanceDue decimal.Decimal
}

// SumInvoice re-derives all totals from the authoritative child rows.
func SumInvoice(items []InvoiceItem, payments []Payment, discount decimal.Decimal) InvoiceTotals {
	var t InvoiceTotals
	for _, it := range items {
		t.Subtotal = t.Subtotal.Add(it.Subtotal)
		t.TaxAmount = t.TaxAmount.Add(it.TaxAmount)
	}
	for _, p := range payments {
		t.PaidAmount = t.PaidAmount.Add(p.Amount)
	}
	t.Total = t.Subtotal.Add(t.TaxAmount).Sub(discount)
	t.BalanceDue = t.Total.Sub(t.PaidAmount)
	return t
}

// DeriveInvoiceStatus is the single status function applied after every
// mutation. Draft/Sent are only ever set explicitly; Voided never reaches
// this function because voided invoices reject recalculation.
func DeriveInvoiceStatus(balanceDue, paidAmount decimal.Decimal, dueDate *time.Time, current InvoiceStatus, now time.Time) InvoiceStatus {
	switch {
	case balanceDue.LessThanOrEqual(decimal.Zero):
		return InvoicePaid
	case paidAmount.GreaterThan(decimal.Zero):
		return InvoicePartiallyPaid
	case dueDate != nil && dueDate.Before(now) && current == InvoiceSent:
		return InvoiceOverdue
	default:
		return current
	}
}

type CreateInvoiceRequest struct {
	ClientID       int                     `json:"client_id" validate:"required,gt=0"`
	SessionID      *int                    `json:"session_id,omitempty"`
	JobCardID      *int                    `json:"job_card_id,omitempty"`
	DiscountAmount decimal.Decimal         `json:"discount_amount"`
	DueDate        *time.Time              `json:"due_date,omitempty"`
	Notes          string                  `json:"notes"`
	Items          []AddInvoiceItemRequest `json:"items"`
}

type AddInvoiceItemRequest struct {
	Description string          `json:"description" validate:"required"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
}

// GenerateInvoiceRequest builds an invoice from a completed job card:
// one labor line per task at the given rate, one line per installed part.
type GenerateInvoiceRequest struct {
	JobCardID      int             `json:"job_card_id" validate:"required,gt=0"`
	LaborRate      decimal.Decimal `json:"labor_rate"`
	TaxRate        decimal.Decimal `json:"tax_rate"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	DueDate        *time.Time      `json:"due_date,omitempty"`
}

type UpdateInvoiceItemRequest struct {
	Description string          `json:"description" validate:"required"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
}
