package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestWorkedHours(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	if h := WorkedHours(start, start.Add(2*time.Hour), 0); h != 2 {
		t.Fatalf("hours = %v, want 2", h)
	}
	if h := WorkedHours(start, start.Add(2*time.Hour), 30); h != 1.5 {
		t.Fatalf("hours = %v, want 1.5", h)
	}
	// Break longer than the shift floors at zero rather than going negative.
	if h := WorkedHours(start, start.Add(30*time.Minute), 60); h != 0 {
		t.Fatalf("hours = %v, want 0", h)
	}
}

func TestPartComputeTotals(t *testing.T) {
	p := JobCardPart{
		QuantityUsed: d("2"),
		UnitCost:     d("10"),
		UnitPrice:    d("15"),
		Markup:       d("0.2"),
	}
	p.ComputeTotals()

	if !p.TotalCost.Equal(d("20")) {
		t.Fatalf("total cost = %s, want 20", p.TotalCost)
	}
	// 2 * 15 * 1.2 = 36
	if !p.TotalPrice.Equal(d("36")) {
		t.Fatalf("total price = %s, want 36", p.TotalPrice)
	}

	p.Markup = decimal.Zero
	p.ComputeTotals()
	if !p.TotalPrice.Equal(d("30")) {
		t.Fatalf("total price without markup = %s, want 30", p.TotalPrice)
	}
}
