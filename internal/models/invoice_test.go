package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func line(qty, price, taxRate string) InvoiceItem {
	it := InvoiceItem{Quantity: d(qty), UnitPrice: d(price), TaxRate: d(taxRate)}
	it.ComputeTotals()
	return it
}

func TestInvoiceItemComputeTotals(t *testing.T) {
	it := line("2", "50", "0.1")
	if !it.Subtotal.Equal(d("100")) {
		t.Fatalf("subtotal = %s, want 100", it.Subtotal)
	}
	if !it.TaxAmount.Equal(d("10")) {
		t.Fatalf("tax = %s, want 10", it.TaxAmount)
	}
	if !it.Total.Equal(it.Subtotal.Add(it.TaxAmount)) {
		t.Fatalf("total = %s, want subtotal+tax", it.Total)
	}
}

func TestSumInvoiceFromChildren(t *testing.T) {
	items := []InvoiceItem{line("2", "50", "0.1"), line("1", "30", "0.1")}
	totals := SumInvoice(items, nil, decimal.Zero)

	if !totals.Subtotal.Equal(d("130")) {
		t.Fatalf("subtotal = %s, want 130", totals.Subtotal)
	}
	if !totals.TaxAmount.Equal(d("13")) {
		t.Fatalf("tax = %s, want 13", totals.TaxAmount)
	}
	if !totals.Total.Equal(d("143")) {
		t.Fatalf("total = %s, want 143", totals.Total)
	}
	if !totals.BalanceDue.Equal(d("143")) {
		t.Fatalf("balance = %s, want 143", totals.BalanceDue)
	}

	// Payments reduce the balance, never the total.
	pays := []Payment{{Amount: d("100")}}
	totals = SumInvoice(items, pays, decimal.Zero)
	if !totals.PaidAmount.Equal(d("100")) || !totals.BalanceDue.Equal(d("43")) {
		t.Fatalf("paid=%s balance=%s, want 100/43", totals.PaidAmount, totals.BalanceDue)
	}

	pays = append(pays, Payment{Amount: d("43")})
	totals = SumInvoice(items, pays, decimal.Zero)
	if !totals.BalanceDue.IsZero() {
		t.Fatalf("balance = %s, want 0", totals.BalanceDue)
	}
}

func TestSumInvoiceDiscount(t *testing.T) {
	items := []InvoiceItem{line("1", "100", "0")}
	totals := SumInvoice(items, nil, d("20"))
	if !totals.Total.Equal(d("80")) {
		t.Fatalf("total = %s, want 80", totals.Total)
	}
}

func TestDeriveInvoiceStatus(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)

	cases := []struct {
		name    string
		balance string
		paid    string
		due     *time.Time
		current InvoiceStatus
		want    InvoiceStatus
	}{
		{"fully paid", "0", "143", nil, InvoiceSent, InvoicePaid},
		{"overpaid", "-5", "148", nil, InvoiceSent, InvoicePaid},
		{"partial", "43", "100", nil, InvoiceSent, InvoicePartiallyPaid},
		{"overdue sent", "143", "0", &past, InvoiceSent, InvoiceOverdue},
		{"draft past due stays draft", "143", "0", &past, InvoiceDraft, InvoiceDraft},
		{"sent not yet due", "143", "0", &future, InvoiceSent, InvoiceSent},
		{"unpaid draft", "143", "0", nil, InvoiceDraft, InvoiceDraft},
	}
	for _, c := range cases {
		got := DeriveInvoiceStatus(d(c.balance), d(c.paid), c.due, c.current, now)
		if got != c.want {
			t.Errorf("%s: got %s, want %s", c.name, got, c.want)
		}
	}
}

func TestDeriveInvoiceStatusPaidIffNonPositiveBalance(t *testing.T) {
	now := time.Now()
	for _, bal := range []string{"0.01", "1", "1000"} {
		if got := DeriveInvoiceStatus(d(bal), d("5"), nil, InvoiceSent, now); got == InvoicePaid {
			t.Errorf("balance %s must not derive paid", bal)
		}
	}
	for _, bal := range []string{"0", "-0.01"} {
		if got := DeriveInvoiceStatus(d(bal), d("5"), nil, InvoiceSent, now); got != InvoicePaid {
			t.Errorf("balance %s must derive paid, got %s", bal, got)
		}
	}
}
