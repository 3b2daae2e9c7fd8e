package pdf

import (
	"bytes"
	"fmt"

	"garage-backend/internal/models"

	"github.com/jung-kurt/gofpdf/v2"
	"github.com/shopspring/decimal"
)

// RenderInvoice produces the printable A4 invoice.
func RenderInvoice(inv *models.Invoice) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	// Header
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(190, 10, "Service Invoice", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(190, 6, fmt.Sprintf("Invoice %s", inv.InvoiceNumber), "", 1, "C", false, 0, "")
	pdf.CellFormat(190, 6, fmt.Sprintf("Issued: %s", inv.CreatedAt.Format("02-Jan-2006")), "", 1, "C", false, 0, "")
	if inv.DueDate != nil {
		pdf.CellFormat(190, 6, fmt.Sprintf("Due: %s", inv.DueDate.Format("02-Jan-2006")), "", 1, "C", false, 0, "")
	}
	pdf.Ln(5)

	// Line items
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(200, 200, 200)
	pdf.CellFormat(80, 7, "Description", "1", 0, "C", true, 0, "")
	pdf.CellFormat(25, 7, "Qty", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 7, "Unit Price", "1", 0, "C", true, 0, "")
	pdf.CellFormat(25, 7, "Tax", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 7, "Total", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	for _, it := range inv.Items {
		desc := it.Description
		if len(desc) > 42 {
			desc = desc[:39] + "..."
		}
		pdf.CellFormat(80, 6, desc, "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 6, it.Quantity.String(), "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, it.UnitPrice.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 6, it.TaxAmount.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, it.Total.StringFixed(2), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(5)

	// Totals
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(63, 8, fmt.Sprintf("Subtotal: %s", inv.Subtotal.StringFixed(2)), "1", 0, "C", false, 0, "")
	pdf.CellFormat(63, 8, fmt.Sprintf("Tax: %s", inv.TaxAmount.StringFixed(2)), "1", 0, "C", false, 0, "")
	pdf.CellFormat(64, 8, fmt.Sprintf("Discount: %s", inv.DiscountAmount.StringFixed(2)), "1", 1, "C", false, 0, "")
	pdf.CellFormat(95, 8, fmt.Sprintf("Total: %s", inv.Total.StringFixed(2)), "1", 0, "C", false, 0, "")
	pdf.CellFormat(95, 8, fmt.Sprintf("Paid: %s", inv.PaidAmount.StringFixed(2)), "1", 1, "C", false, 0, "")

	if inv.BalanceDue.GreaterThan(decimal.Zero) {
		pdf.SetFillColor(255, 200, 200)
	} else {
		pdf.SetFillColor(200, 255, 200)
	}
	pdf.SetFont("Arial", "B", 14)
	balanceText := fmt.Sprintf("Balance Due: %s", inv.BalanceDue.StringFixed(2))
	if inv.BalanceDue.LessThanOrEqual(decimal.Zero) {
		balanceText = "FULLY PAID"
	}
	pdf.CellFormat(190, 10, balanceText, "1", 1, "C", true, 0, "")

	// Payment history
	if len(inv.Payments) > 0 {
		pdf.Ln(5)
		pdf.SetFont("Arial", "B", 12)
		pdf.SetFillColor(240, 240, 240)
		pdf.CellFormat(190, 8, "Payments", "1", 1, "L", true, 0, "")

		pdf.SetFont("Arial", "B", 10)
		pdf.SetFillColor(200, 200, 200)
		pdf.CellFormat(50, 7, "Receipt #", "1", 0, "C", true, 0, "")
		pdf.CellFormat(45, 7, "Date", "1", 0, "C", true, 0, "")
		pdf.CellFormat(45, 7, "Method", "1", 0, "C", true, 0, "")
		pdf.CellFormat(50, 7, "Amount", "1", 1, "C", true, 0, "")

		pdf.SetFont("Arial", "", 10)
		for _, p := range inv.Payments {
			pdf.CellFormat(50, 6, p.PaymentNumber, "1", 0, "C", false, 0, "")
			pdf.CellFormat(45, 6, p.PaymentDate.Format("02-Jan-2006"), "1", 0, "C", false, 0, "")
			pdf.CellFormat(45, 6, p.Method, "1", 0, "C", false, 0, "")
			pdf.CellFormat(50, 6, p.Amount.StringFixed(2), "1", 1, "R", false, 0, "")
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render invoice pdf: %w", err)
	}
	return buf.Bytes(), nil
}
