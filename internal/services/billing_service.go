package services

import (
	"context"
	"time"

	"garage-backend/internal/clock"
	"garage-backend/internal/metrics"
	"garage-backend/internal/models"
	"garage-backend/internal/notify"
	"garage-backend/internal/validation"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type InvoiceStore interface {
	Create(ctx context.Context, inv *models.Invoice, now time.Time) error
	Get(ctx context.Context, companyID, id int) (*models.Invoice, error)
	List(ctx context.Context, companyID int, status string) ([]models.Invoice, error)
	AddItem(ctx context.Context, it *models.InvoiceItem, now time.Time) error
	UpdateItem(ctx context.Context, it *models.InvoiceItem, now time.Time) error
	RemoveItem(ctx context.Context, companyID, invoiceID, itemID int, now time.Time) error
	AddPayment(ctx context.Context, p *models.Payment, now time.Time) error
	Recalculate(ctx context.Context, companyID, invoiceID int, now time.Time) error
	OverrideStatus(ctx context.Context, inv *models.Invoice, to models.InvoiceStatus, now time.Time) error
	ListOverdueCandidates(ctx context.Context, now time.Time) ([]models.Invoice, error)
}

// BillingService runs invoicing and payment reconciliation. Every money
// mutation goes through the store's recalculation, so the cached totals
// and the derived status can never drift from the child rows.
type BillingService struct {
	invoices InvoiceStore
	cards    JobCardStore
	items    JobCardItemStore
	parts    PartStore
	sessions SessionReader
	clock    clock.Clock
	notifier notify.Notifier
	log      *logrus.Logger
}

func NewBillingService(invoices InvoiceStore, cards JobCardStore, items JobCardItemStore, parts PartStore, sessions SessionReader, clk clock.Clock, notifier notify.Notifier, log *logrus.Logger) *BillingService {
	return &BillingService{invoices: invoices, cards: cards, items: items, parts: parts, sessions: sessions, clock: clk, notifier: notifier, log: log}
}

// validateLine checks the money fields the struct validator cannot see
// inside decimal.Decimal. Negative quantities, prices, and tax rates are
// malformed input, not corrections; corrections are negative payments.
func validateLine(description string, quantity, unitPrice, taxRate decimal.Decimal) error {
	if quantity.IsNegative() {
		return models.Errorf(models.ErrValidation, "line %q has negative quantity", description)
	}
	if unitPrice.IsNegative() {
		return models.Errorf(models.ErrValidation, "line %q has negative unit price", description)
	}
	if taxRate.IsNegative() {
		return models.Errorf(models.ErrValidation, "line %q has negative tax rate", description)
	}
	return nil
}

// CreateInvoice opens a draft invoice with any initial lines.
func (s *BillingService) CreateInvoice(ctx context.Context, companyID int, req models.CreateInvoiceRequest) (*models.Invoice, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	for _, it := range req.Items {
		if err := validateLine(it.Description, it.Quantity, it.UnitPrice, it.TaxRate); err != nil {
			return nil, err
		}
	}
	inv := &models.Invoice{
		CompanyID:      companyID,
		ClientID:       req.ClientID,
		SessionID:      req.SessionID,
		JobCardID:      req.JobCardID,
		Status:         models.InvoiceDraft,
		DiscountAmount: req.DiscountAmount,
		DueDate:        req.DueDate,
		Notes:          req.Notes,
	}
	for _, it := range req.Items {
		inv.Items = append(inv.Items, models.InvoiceItem{
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			TaxRate:     it.TaxRate,
		})
	}
	if err := s.invoices.Create(ctx, inv, s.clock.Now()); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"company_id": companyID,
		"invoice":    inv.InvoiceNumber,
	}).Info("invoice created")
	return inv, nil
}

// GenerateFromJobCard bills a completed job card: a labor line per task at
// the given rate, plus a line per installed part at its recorded price.
func (s *BillingService) GenerateFromJobCard(ctx context.Context, companyID int, req models.GenerateInvoiceRequest) (*models.Invoice, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	jc, err := s.cards.Get(ctx, companyID, req.JobCardID)
	if err != nil {
		return nil, err
	}
	if jc.Status != models.JobCardCompleted {
		return nil, models.Errorf(models.ErrPreconditionFailed,
			"job card %s is %s, invoicing requires completed", jc.JobCardNumber, jc.Status)
	}
	session, err := s.sessions.Get(ctx, companyID, jc.SessionID)
	if err != nil {
		return nil, err
	}

	tasks, err := s.items.ListByJobCard(ctx, companyID, jc.ID)
	if err != nil {
		return nil, err
	}

	inv := &models.Invoice{
		CompanyID:      companyID,
		ClientID:       session.ClientID,
		SessionID:      &jc.SessionID,
		JobCardID:      &jc.ID,
		Status:         models.InvoiceDraft,
		DiscountAmount: req.DiscountAmount,
		DueDate:        req.DueDate,
	}
	for _, task := range tasks {
		// A task with no recorded hours gets no labor line, but its
		// installed parts are still billed.
		hours := decimal.NewFromFloat(task.ActualHours)
		if !hours.IsZero() {
			inv.Items = append(inv.Items, models.InvoiceItem{
				Description: "Labor: " + task.Title,
				Quantity:    hours,
				UnitPrice:   req.LaborRate,
				TaxRate:     req.TaxRate,
			})
		}

		parts, err := s.parts.ListByItem(ctx, companyID, task.ID)
		if err != nil {
			return nil, err
		}
		for _, p := range parts {
			if p.Status != models.PartInstalled {
				continue
			}
			// The recorded total is authoritative; derive the unit
			// price from it, or bill the total as one unit when the
			// quantity cannot divide it.
			qty := p.QuantityUsed
			unitPrice := p.TotalPrice
			if qty.IsPositive() {
				unitPrice = p.TotalPrice.Div(qty)
			} else {
				qty = decimal.NewFromInt(1)
			}
			inv.Items = append(inv.Items, models.InvoiceItem{
				Description: "Part: " + p.Name,
				Quantity:    qty,
				UnitPrice:   unitPrice,
				TaxRate:     req.TaxRate,
			})
		}
	}

	if err := s.invoices.Create(ctx, inv, s.clock.Now()); err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *BillingService) GetInvoice(ctx context.Context, companyID, id int) (*models.Invoice, error) {
	return s.invoices.Get(ctx, companyID, id)
}

func (s *BillingService) ListInvoices(ctx context.Context, companyID int, status string) ([]models.Invoice, error) {
	return s.invoices.List(ctx, companyID, status)
}

// requireDraft gates line edits: lines only change while the invoice has
// not been issued.
func (s *BillingService) requireDraft(ctx context.Context, companyID, invoiceID int) (*models.Invoice, error) {
	inv, err := s.invoices.Get(ctx, companyID, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Status != models.InvoiceDraft {
		return nil, models.Errorf(models.ErrPreconditionFailed,
			"invoice %s is %s, lines only change while draft", inv.InvoiceNumber, inv.Status)
	}
	return inv, nil
}

func (s *BillingService) AddItem(ctx context.Context, companyID, invoiceID int, req models.AddInvoiceItemRequest) (*models.Invoice, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if err := validateLine(req.Description, req.Quantity, req.UnitPrice, req.TaxRate); err != nil {
		return nil, err
	}
	if _, err := s.requireDraft(ctx, companyID, invoiceID); err != nil {
		return nil, err
	}
	it := &models.InvoiceItem{
		CompanyID:   companyID,
		InvoiceID:   invoiceID,
		Description: req.Description,
		Quantity:    req.Quantity,
		UnitPrice:   req.UnitPrice,
		TaxRate:     req.TaxRate,
	}
	if err := s.invoices.AddItem(ctx, it, s.clock.Now()); err != nil {
		return nil, err
	}
	return s.invoices.Get(ctx, companyID, invoiceID)
}

func (s *BillingService) UpdateItem(ctx context.Context, companyID, invoiceID, itemID int, req models.UpdateInvoiceItemRequest) (*models.Invoice, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if err := validateLine(req.Description, req.Quantity, req.UnitPrice, req.TaxRate); err != nil {
		return nil, err
	}
	if _, err := s.requireDraft(ctx, companyID, invoiceID); err != nil {
		return nil, err
	}
	it := &models.InvoiceItem{
		ID:          itemID,
		CompanyID:   companyID,
		InvoiceID:   invoiceID,
		Description: req.Description,
		Quantity:    req.Quantity,
		UnitPrice:   req.UnitPrice,
		TaxRate:     req.TaxRate,
	}
	if err := s.invoices.UpdateItem(ctx, it, s.clock.Now()); err != nil {
		return nil, err
	}
	return s.invoices.Get(ctx, companyID, invoiceID)
}

func (s *BillingService) RemoveItem(ctx context.Context, companyID, invoiceID, itemID int) (*models.Invoice, error) {
	if _, err := s.requireDraft(ctx, companyID, invoiceID); err != nil {
		return nil, err
	}
	if err := s.invoices.RemoveItem(ctx, companyID, invoiceID, itemID, s.clock.Now()); err != nil {
		return nil, err
	}
	return s.invoices.Get(ctx, companyID, invoiceID)
}

// MarkAsSent issues a draft invoice.
func (s *BillingService) MarkAsSent(ctx context.Context, companyID, invoiceID int) (*models.Invoice, error) {
	inv, err := s.invoices.Get(ctx, companyID, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Status != models.InvoiceDraft {
		return nil, models.Errorf(models.ErrInvalidTransition,
			"invoice %s is %s, only draft invoices are sent", inv.InvoiceNumber, inv.Status)
	}
	if err := s.invoices.OverrideStatus(ctx, inv, models.InvoiceSent, s.clock.Now()); err != nil {
		return nil, err
	}
	return s.invoices.Get(ctx, companyID, invoiceID)
}

// MarkAsPaid settles an issued invoice out of band (write-off, barter,
// legacy migration) without a payment row. The next recalculation re-derives
// the status from the money, so this is an override for invoices that will
// not see further mutation.
func (s *BillingService) MarkAsPaid(ctx context.Context, companyID, invoiceID int) (*models.Invoice, error) {
	inv, err := s.invoices.Get(ctx, companyID, invoiceID)
	if err != nil {
		return nil, err
	}
	switch inv.Status {
	case models.InvoiceDraft, models.InvoiceVoided, models.InvoicePaid:
		return nil, models.Errorf(models.ErrInvalidTransition,
			"invoice %s is %s", inv.InvoiceNumber, inv.Status)
	}
	if err := s.invoices.OverrideStatus(ctx, inv, models.InvoicePaid, s.clock.Now()); err != nil {
		return nil, err
	}
	s.notifier.InvoicePaid(ctx, companyID, inv.InvoiceNumber)
	return s.invoices.Get(ctx, companyID, invoiceID)
}

// Void terminates the invoice. A fully paid invoice cannot be voided; the
// correction path is a negative payment.
func (s *BillingService) Void(ctx context.Context, companyID, invoiceID int) (*models.Invoice, error) {
	inv, err := s.invoices.Get(ctx, companyID, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Status == models.InvoiceVoided || inv.Status == models.InvoicePaid {
		return nil, models.Errorf(models.ErrInvalidTransition,
			"invoice %s is %s", inv.InvoiceNumber, inv.Status)
	}
	if err := s.invoices.OverrideStatus(ctx, inv, models.InvoiceVoided, s.clock.Now()); err != nil {
		return nil, err
	}
	return s.invoices.Get(ctx, companyID, invoiceID)
}

// AddPayment records money against an issued invoice. Payments are
// append-only; a mistaken amount is corrected with a compensating negative
// payment, never edited. Overpayment is allowed and leaves a negative
// balance.
func (s *BillingService) AddPayment(ctx context.Context, companyID, invoiceID int, receivedBy *int, req models.AddPaymentRequest) (*models.Invoice, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if req.Amount.IsZero() {
		return nil, models.Errorf(models.ErrValidation, "payment amount cannot be zero")
	}
	inv, err := s.invoices.Get(ctx, companyID, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Status == models.InvoiceDraft {
		return nil, models.Errorf(models.ErrPreconditionFailed,
			"invoice %s has not been sent", inv.InvoiceNumber)
	}

	p := &models.Payment{
		CompanyID:    companyID,
		InvoiceID:    invoiceID,
		Amount:       req.Amount,
		Method:       req.Method,
		Reference:    req.Reference,
		ReceivedByID: receivedBy,
		PaymentDate:  s.clock.Now(),
	}
	if err := s.invoices.AddPayment(ctx, p, s.clock.Now()); err != nil {
		return nil, err
	}

	metrics.PaymentsRecordedTotal.WithLabelValues(req.Method).Inc()

	fresh, err := s.invoices.Get(ctx, companyID, invoiceID)
	if err != nil {
		return nil, err
	}
	if fresh.Status == models.InvoicePaid && inv.Status != models.InvoicePaid {
		s.notifier.InvoicePaid(ctx, companyID, fresh.InvoiceNumber)
	}
	return fresh, nil
}

// Recalculate resums the invoice from its child rows. Safe to call any
// number of times.
func (s *BillingService) Recalculate(ctx context.Context, companyID, invoiceID int) (*models.Invoice, error) {
	if err := s.invoices.Recalculate(ctx, companyID, invoiceID, s.clock.Now()); err != nil {
		return nil, err
	}
	return s.invoices.Get(ctx, companyID, invoiceID)
}

// SweepOverdue flips sent invoices past their due date to overdue. Runs
// nightly from the scheduler; the lazy derivation inside recalculation
// catches the same invoices on their next mutation, so the sweep only
// exists to surface them without waiting for one.
func (s *BillingService) SweepOverdue(ctx context.Context) error {
	now := s.clock.Now()
	candidates, err := s.invoices.ListOverdueCandidates(ctx, now)
	if err != nil {
		return err
	}
	for _, inv := range candidates {
		if err := s.invoices.Recalculate(ctx, inv.CompanyID, inv.ID, now); err != nil {
			s.log.WithError(err).WithField("invoice", inv.InvoiceNumber).
				Warn("overdue sweep failed for invoice")
			continue
		}
		metrics.InvoicesOverdueSweptTotal.Inc()
		s.notifier.InvoiceOverdue(ctx, inv.CompanyID, inv.InvoiceNumber)
	}
	if len(candidates) > 0 {
		s.log.WithField("count", len(candidates)).Info("overdue sweep finished")
	}
	return nil
}
