package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"garage-backend/internal/models"

	"github.com/shopspring/decimal"
)

type billingFixture struct {
	svc      *BillingService
	invoices *fakeInvoiceStore
	cards    *fakeJobCardStore
	items    *fakeItemStore
	parts    *fakePartStore
	sessions *fakeSessionStore
	notifier *fakeNotifier
	clk      *stepClock
}

func newBillingFixture(t *testing.T) *billingFixture {
	t.Helper()
	f := &billingFixture{
		invoices: newFakeInvoiceStore(),
		cards:    newFakeJobCardStore(),
		items:    newFakeItemStore(),
		parts:    newFakePartStore(),
		sessions: newFakeSessionStore(),
		notifier: &fakeNotifier{},
		clk:      &stepClock{t: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)},
	}
	f.svc = NewBillingService(f.invoices, f.cards, f.items, f.parts, f.sessions, f.clk, f.notifier, testLogger())
	return f
}

// draftInvoice opens an invoice with two taxed lines summing to 130 plus
// 13 tax, so Total = 143.
func (f *billingFixture) draftInvoice(t *testing.T) *models.Invoice {
	t.Helper()
	inv, err := f.svc.CreateInvoice(context.Background(), 1, models.CreateInvoiceRequest{
		ClientID: 7,
		Items: []models.AddInvoiceItemRequest{
			{Description: "Labor: brake overhaul", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(50), TaxRate: decimal.NewFromFloat(0.1)},
			{Description: "Part: brake pads", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(30), TaxRate: decimal.NewFromFloat(0.1)},
		},
	})
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	return inv
}

func TestInvoiceTotalsDeriveFromLines(t *testing.T) {
	f := newBillingFixture(t)
	inv := f.draftInvoice(t)

	if want := decimal.NewFromInt(130); !inv.Subtotal.Equal(want) {
		t.Fatalf("subtotal = %s, want %s", inv.Subtotal, want)
	}
	if want := decimal.NewFromInt(13); !inv.TaxAmount.Equal(want) {
		t.Fatalf("tax = %s, want %s", inv.TaxAmount, want)
	}
	if want := decimal.NewFromInt(143); !inv.Total.Equal(want) || !inv.BalanceDue.Equal(want) {
		t.Fatalf("total = %s balance = %s, want %s", inv.Total, inv.BalanceDue, want)
	}
	if inv.Status != models.InvoiceDraft {
		t.Fatalf("status = %s, want draft", inv.Status)
	}
}

func TestPartialThenFullPaymentReconciles(t *testing.T) {
	f := newBillingFixture(t)
	inv := f.draftInvoice(t)

	if _, err := f.svc.MarkAsSent(context.Background(), 1, inv.ID); err != nil {
		t.Fatalf("MarkAsSent: %v", err)
	}

	after, err := f.svc.AddPayment(context.Background(), 1, inv.ID, nil, models.AddPaymentRequest{
		Amount: decimal.NewFromInt(100), Method: "cash",
	})
	if err != nil {
		t.Fatalf("first payment: %v", err)
	}
	if after.Status != models.InvoicePartiallyPaid {
		t.Fatalf("status = %s, want partially_paid", after.Status)
	}
	if want := decimal.NewFromInt(43); !after.BalanceDue.Equal(want) {
		t.Fatalf("balance = %s, want %s", after.BalanceDue, want)
	}

	after, err = f.svc.AddPayment(context.Background(), 1, inv.ID, nil, models.AddPaymentRequest{
		Amount: decimal.NewFromInt(43), Method: "card",
	})
	if err != nil {
		t.Fatalf("second payment: %v", err)
	}
	if after.Status != models.InvoicePaid {
		t.Fatalf("status = %s, want paid", after.Status)
	}
	if !after.BalanceDue.IsZero() {
		t.Fatalf("balance = %s, want 0", after.BalanceDue)
	}
	if after.PaidDate == nil {
		t.Fatal("paid date should be stamped")
	}
	if got := len(f.notifier.paid); got != 1 {
		t.Fatalf("paid notifications = %d, want 1", got)
	}
}

func TestOverpaymentLeavesNegativeBalance(t *testing.T) {
	f := newBillingFixture(t)
	inv := f.draftInvoice(t)
	if _, err := f.svc.MarkAsSent(context.Background(), 1, inv.ID); err != nil {
		t.Fatalf("MarkAsSent: %v", err)
	}

	after, err := f.svc.AddPayment(context.Background(), 1, inv.ID, nil, models.AddPaymentRequest{
		Amount: decimal.NewFromInt(200), Method: "cash",
	})
	if err != nil {
		t.Fatalf("AddPayment: %v", err)
	}
	if after.Status != models.InvoicePaid {
		t.Fatalf("status = %s, want paid", after.Status)
	}
	if want := decimal.NewFromInt(-57); !after.BalanceDue.Equal(want) {
		t.Fatalf("balance = %s, want %s", after.BalanceDue, want)
	}
}

func TestNegativePaymentCorrectsAnOverpayment(t *testing.T) {
	f := newBillingFixture(t)
	inv := f.draftInvoice(t)
	if _, err := f.svc.MarkAsSent(context.Background(), 1, inv.ID); err != nil {
		t.Fatalf("MarkAsSent: %v", err)
	}
	if _, err := f.svc.AddPayment(context.Background(), 1, inv.ID, nil, models.AddPaymentRequest{
		Amount: decimal.NewFromInt(200), Method: "cash",
	}); err != nil {
		t.Fatalf("overpayment: %v", err)
	}

	after, err := f.svc.AddPayment(context.Background(), 1, inv.ID, nil, models.AddPaymentRequest{
		Amount: decimal.NewFromInt(-57), Method: "cash", Reference: "refund-1",
	})
	if err != nil {
		t.Fatalf("correction: %v", err)
	}
	if !after.BalanceDue.IsZero() {
		t.Fatalf("balance = %s, want 0", after.BalanceDue)
	}
	if after.Status != models.InvoicePaid {
		t.Fatalf("status = %s, want paid", after.Status)
	}
}

func TestZeroPaymentIsRejected(t *testing.T) {
	f := newBillingFixture(t)
	inv := f.draftInvoice(t)
	if _, err := f.svc.MarkAsSent(context.Background(), 1, inv.ID); err != nil {
		t.Fatalf("MarkAsSent: %v", err)
	}

	_, err := f.svc.AddPayment(context.Background(), 1, inv.ID, nil, models.AddPaymentRequest{
		Amount: decimal.Zero, Method: "cash",
	})
	if !errors.Is(err, models.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestPaymentOnDraftIsRejected(t *testing.T) {
	f := newBillingFixture(t)
	inv := f.draftInvoice(t)

	_, err := f.svc.AddPayment(context.Background(), 1, inv.ID, nil, models.AddPaymentRequest{
		Amount: decimal.NewFromInt(10), Method: "cash",
	})
	if !errors.Is(err, models.ErrPreconditionFailed) {
		t.Fatalf("expected ErrPreconditionFailed, got %v", err)
	}
}

func TestDuplicatePaymentReferenceConflicts(t *testing.T) {
	f := newBillingFixture(t)
	inv := f.draftInvoice(t)
	if _, err := f.svc.MarkAsSent(context.Background(), 1, inv.ID); err != nil {
		t.Fatalf("MarkAsSent: %v", err)
	}

	req := models.AddPaymentRequest{Amount: decimal.NewFromInt(10), Method: "gateway", Reference: "pay_abc123"}
	if _, err := f.svc.AddPayment(context.Background(), 1, inv.ID, nil, req); err != nil {
		t.Fatalf("first payment: %v", err)
	}
	_, err := f.svc.AddPayment(context.Background(), 1, inv.ID, nil, req)
	if !errors.Is(err, models.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestNegativeLineAmountsAreRejected(t *testing.T) {
	f := newBillingFixture(t)

	// At creation.
	_, err := f.svc.CreateInvoice(context.Background(), 1, models.CreateInvoiceRequest{
		ClientID: 7,
		Items: []models.AddInvoiceItemRequest{
			{Description: "Labor", Quantity: decimal.NewFromInt(-3), UnitPrice: decimal.NewFromInt(50)},
		},
	})
	if !errors.Is(err, models.ErrValidation) {
		t.Fatalf("create: expected ErrValidation, got %v", err)
	}

	inv := f.draftInvoice(t)

	_, err = f.svc.AddItem(context.Background(), 1, inv.ID, models.AddInvoiceItemRequest{
		Description: "Labor", Quantity: decimal.NewFromInt(-3), UnitPrice: decimal.NewFromInt(50),
	})
	if !errors.Is(err, models.ErrValidation) {
		t.Fatalf("negative quantity: expected ErrValidation, got %v", err)
	}
	_, err = f.svc.AddItem(context.Background(), 1, inv.ID, models.AddInvoiceItemRequest{
		Description: "Labor", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(-50),
	})
	if !errors.Is(err, models.ErrValidation) {
		t.Fatalf("negative price: expected ErrValidation, got %v", err)
	}
	_, err = f.svc.UpdateItem(context.Background(), 1, inv.ID, inv.Items[0].ID, models.UpdateInvoiceItemRequest{
		Description: "Labor", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(50),
		TaxRate: decimal.NewFromFloat(-0.1),
	})
	if !errors.Is(err, models.ErrValidation) {
		t.Fatalf("negative tax rate: expected ErrValidation, got %v", err)
	}

	got, err := f.svc.GetInvoice(context.Background(), 1, inv.ID)
	if err != nil {
		t.Fatalf("GetInvoice: %v", err)
	}
	if !got.Total.Equal(inv.Total) {
		t.Fatalf("total drifted to %s after rejected lines", got.Total)
	}
}

func TestLinesOnlyChangeWhileDraft(t *testing.T) {
	f := newBillingFixture(t)
	inv := f.draftInvoice(t)

	after, err := f.svc.AddItem(context.Background(), 1, inv.ID, models.AddInvoiceItemRequest{
		Description: "Shop supplies", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(7),
	})
	if err != nil {
		t.Fatalf("AddItem while draft: %v", err)
	}
	if want := decimal.NewFromInt(150); !after.Total.Equal(want) {
		t.Fatalf("total = %s, want %s", after.Total, want)
	}

	if _, err := f.svc.MarkAsSent(context.Background(), 1, inv.ID); err != nil {
		t.Fatalf("MarkAsSent: %v", err)
	}
	_, err = f.svc.AddItem(context.Background(), 1, inv.ID, models.AddInvoiceItemRequest{
		Description: "Late line", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(1),
	})
	if !errors.Is(err, models.ErrPreconditionFailed) {
		t.Fatalf("expected ErrPreconditionFailed, got %v", err)
	}
}

func TestSendIsOnlyValidFromDraft(t *testing.T) {
	f := newBillingFixture(t)
	inv := f.draftInvoice(t)
	if _, err := f.svc.MarkAsSent(context.Background(), 1, inv.ID); err != nil {
		t.Fatalf("MarkAsSent: %v", err)
	}

	_, err := f.svc.MarkAsSent(context.Background(), 1, inv.ID)
	if !errors.Is(err, models.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestMarkAsPaidSettlesOutOfBand(t *testing.T) {
	f := newBillingFixture(t)
	inv := f.draftInvoice(t)

	// Draft invoices cannot be settled.
	if _, err := f.svc.MarkAsPaid(context.Background(), 1, inv.ID); !errors.Is(err, models.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on draft, got %v", err)
	}

	if _, err := f.svc.MarkAsSent(context.Background(), 1, inv.ID); err != nil {
		t.Fatalf("MarkAsSent: %v", err)
	}
	after, err := f.svc.MarkAsPaid(context.Background(), 1, inv.ID)
	if err != nil {
		t.Fatalf("MarkAsPaid: %v", err)
	}
	if after.Status != models.InvoicePaid {
		t.Fatalf("status = %s, want paid", after.Status)
	}
	if after.PaidDate == nil {
		t.Fatal("manual settle should stamp the paid date")
	}
	if got := len(f.notifier.paid); got != 1 {
		t.Fatalf("paid notifications = %d, want 1", got)
	}

	if _, err := f.svc.MarkAsPaid(context.Background(), 1, inv.ID); !errors.Is(err, models.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on second settle, got %v", err)
	}
}

func TestVoidRejectedOncePaid(t *testing.T) {
	f := newBillingFixture(t)
	inv := f.draftInvoice(t)
	if _, err := f.svc.MarkAsSent(context.Background(), 1, inv.ID); err != nil {
		t.Fatalf("MarkAsSent: %v", err)
	}
	if _, err := f.svc.AddPayment(context.Background(), 1, inv.ID, nil, models.AddPaymentRequest{
		Amount: decimal.NewFromInt(143), Method: "cash",
	}); err != nil {
		t.Fatalf("AddPayment: %v", err)
	}

	_, err := f.svc.Void(context.Background(), 1, inv.ID)
	if !errors.Is(err, models.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestVoidedInvoiceRejectsMoneyMutation(t *testing.T) {
	f := newBillingFixture(t)
	inv := f.draftInvoice(t)
	if _, err := f.svc.MarkAsSent(context.Background(), 1, inv.ID); err != nil {
		t.Fatalf("MarkAsSent: %v", err)
	}
	if _, err := f.svc.Void(context.Background(), 1, inv.ID); err != nil {
		t.Fatalf("Void: %v", err)
	}

	if _, err := f.svc.AddPayment(context.Background(), 1, inv.ID, nil, models.AddPaymentRequest{
		Amount: decimal.NewFromInt(10), Method: "cash",
	}); err == nil {
		t.Fatal("payment on voided invoice must fail")
	}
	if _, err := f.svc.Recalculate(context.Background(), 1, inv.ID); !errors.Is(err, models.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestRecalculateIsIdempotent(t *testing.T) {
	f := newBillingFixture(t)
	inv := f.draftInvoice(t)

	first, err := f.svc.Recalculate(context.Background(), 1, inv.ID)
	if err != nil {
		t.Fatalf("Recalculate: %v", err)
	}
	second, err := f.svc.Recalculate(context.Background(), 1, inv.ID)
	if err != nil {
		t.Fatalf("second Recalculate: %v", err)
	}
	if !first.Total.Equal(second.Total) || first.Status != second.Status {
		t.Fatalf("recalculation drifted: %s/%s vs %s/%s", first.Total, first.Status, second.Total, second.Status)
	}
}

func TestSweepFlipsSentInvoicesPastDue(t *testing.T) {
	f := newBillingFixture(t)

	due := f.clk.Now().Add(24 * time.Hour)
	inv, err := f.svc.CreateInvoice(context.Background(), 1, models.CreateInvoiceRequest{
		ClientID: 7,
		DueDate:  &due,
		Items: []models.AddInvoiceItemRequest{
			{Description: "Labor", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(100)},
		},
	})
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	if _, err := f.svc.MarkAsSent(context.Background(), 1, inv.ID); err != nil {
		t.Fatalf("MarkAsSent: %v", err)
	}

	// Before the due date nothing happens.
	if err := f.svc.SweepOverdue(context.Background()); err != nil {
		t.Fatalf("SweepOverdue: %v", err)
	}
	if got := len(f.notifier.overdue); got != 0 {
		t.Fatalf("overdue notifications = %d, want 0", got)
	}

	f.clk.Set(due.Add(48 * time.Hour))
	if err := f.svc.SweepOverdue(context.Background()); err != nil {
		t.Fatalf("SweepOverdue past due: %v", err)
	}
	got, err := f.svc.GetInvoice(context.Background(), 1, inv.ID)
	if err != nil {
		t.Fatalf("GetInvoice: %v", err)
	}
	if got.Status != models.InvoiceOverdue {
		t.Fatalf("status = %s, want overdue", got.Status)
	}
	if len(f.notifier.overdue) != 1 {
		t.Fatalf("overdue notifications = %d, want 1", len(f.notifier.overdue))
	}
}

func TestGenerateFromJobCardRequiresCompletion(t *testing.T) {
	f := newBillingFixture(t)

	sess := &models.GarageSession{CompanyID: 1, ClientID: 7, VehicleID: 3, Status: models.SessionInProgress}
	if err := f.sessions.Create(context.Background(), sess); err != nil {
		t.Fatalf("seed session: %v", err)
	}
	jc := &models.JobCard{CompanyID: 1, SessionID: sess.ID, Title: "Service", Status: models.JobCardInProgress}
	if err := f.cards.Create(context.Background(), jc); err != nil {
		t.Fatalf("seed card: %v", err)
	}

	_, err := f.svc.GenerateFromJobCard(context.Background(), 1, models.GenerateInvoiceRequest{
		JobCardID: jc.ID, LaborRate: decimal.NewFromInt(80),
	})
	if !errors.Is(err, models.ErrPreconditionFailed) {
		t.Fatalf("expected ErrPreconditionFailed, got %v", err)
	}
}

func TestGenerateFromJobCardBillsLaborAndInstalledParts(t *testing.T) {
	f := newBillingFixture(t)

	sess := &models.GarageSession{CompanyID: 1, ClientID: 7, VehicleID: 3, Status: models.SessionInProgress}
	if err := f.sessions.Create(context.Background(), sess); err != nil {
		t.Fatalf("seed session: %v", err)
	}
	jc := &models.JobCard{CompanyID: 1, SessionID: sess.ID, Title: "Service", Status: models.JobCardCompleted}
	if err := f.cards.Create(context.Background(), jc); err != nil {
		t.Fatalf("seed card: %v", err)
	}

	worked := &models.JobCardItem{CompanyID: 1, JobCardID: jc.ID, Title: "Replace pads", Status: models.ItemCompleted, ActualHours: 2}
	unworked := &models.JobCardItem{CompanyID: 1, JobCardID: jc.ID, Title: "Warranty swap", Status: models.ItemCompleted}
	for _, it := range []*models.JobCardItem{worked, unworked} {
		if err := f.items.Add(context.Background(), it); err != nil {
			t.Fatalf("seed item: %v", err)
		}
	}

	installed := &models.JobCardPart{
		CompanyID: 1, ItemID: worked.ID, Name: "Brake pad set", Status: models.PartInstalled,
		QuantityUsed: decimal.NewFromInt(1), TotalPrice: decimal.NewFromInt(66),
	}
	returned := &models.JobCardPart{
		CompanyID: 1, ItemID: worked.ID, Name: "Wrong pads", Status: models.PartReturned,
		QuantityUsed: decimal.NewFromInt(1), TotalPrice: decimal.NewFromInt(60),
	}
	// Installed on a task with no recorded hours: still billed.
	warranty := &models.JobCardPart{
		CompanyID: 1, ItemID: unworked.ID, Name: "Wiper blades", Status: models.PartInstalled,
		QuantityUsed: decimal.NewFromInt(2), TotalPrice: decimal.NewFromInt(34),
	}
	// Legacy row with no quantity: billed at its recorded total as one unit.
	legacy := &models.JobCardPart{
		CompanyID: 1, ItemID: unworked.ID, Name: "Shop supplies", Status: models.PartInstalled,
		QuantityUsed: decimal.Zero, TotalPrice: decimal.NewFromInt(10),
	}
	for _, p := range []*models.JobCardPart{installed, returned, warranty, legacy} {
		if err := f.parts.Add(context.Background(), p); err != nil {
			t.Fatalf("seed part: %v", err)
		}
	}

	inv, err := f.svc.GenerateFromJobCard(context.Background(), 1, models.GenerateInvoiceRequest{
		JobCardID: jc.ID, LaborRate: decimal.NewFromInt(80),
	})
	if err != nil {
		t.Fatalf("GenerateFromJobCard: %v", err)
	}
	if inv.ClientID != sess.ClientID {
		t.Fatalf("client = %d, want %d", inv.ClientID, sess.ClientID)
	}
	if len(inv.Items) != 4 {
		t.Fatalf("lines = %d, want one labor and three installed parts", len(inv.Items))
	}
	// 2h * 80 + 66 + 34 + 10 = 270.
	if want := decimal.NewFromInt(270); !inv.Total.Equal(want) {
		t.Fatalf("total = %s, want %s", inv.Total, want)
	}
	if inv.Status != models.InvoiceDraft {
		t.Fatalf("status = %s, want draft", inv.Status)
	}
}
