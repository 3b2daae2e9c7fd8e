package services

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"garage-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

type fakeNotifier struct {
	mu      sync.Mutex
	ready   []string
	paid    []string
	overdue []string
}

func (n *fakeNotifier) SessionReady(ctx context.Context, companyID int, number string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ready = append(n.ready, number)
}

func (n *fakeNotifier) InvoicePaid(ctx context.Context, companyID int, number string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paid = append(n.paid, number)
}

func (n *fakeNotifier) InvoiceOverdue(ctx context.Context, companyID int, number string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.overdue = append(n.overdue, number)
}

// fakeSessionStore keeps sessions in memory with the same compare-and-set
// semantics the SQL store has.
type fakeSessionStore struct {
	mu     sync.Mutex
	nextID int
	rows   map[int]*models.GarageSession
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{rows: make(map[int]*models.GarageSession)}
}

func (s *fakeSessionStore) Create(ctx context.Context, sess *models.GarageSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	sess.ID = s.nextID
	sess.SessionNumber = fmt.Sprintf("SES-%s-%04d", sess.CheckInAt.Format("20060102"), s.nextID)
	sess.CreatedAt = sess.CheckInAt
	cp := *sess
	s.rows[sess.ID] = &cp
	return nil
}

func (s *fakeSessionStore) Get(ctx context.Context, companyID, id int) (*models.GarageSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok || row.CompanyID != companyID {
		return nil, models.ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (s *fakeSessionStore) List(ctx context.Context, companyID int, status string) ([]models.GarageSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.GarageSession
	for _, row := range s.rows {
		if row.CompanyID != companyID {
			continue
		}
		if status != "" && string(row.Status) != status {
			continue
		}
		out = append(out, *row)
	}
	return out, nil
}

func (s *fakeSessionStore) UpdateStatus(ctx context.Context, companyID, id int, from, to models.SessionStatus, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok || row.CompanyID != companyID || row.Status != from {
		return models.Errorf(models.ErrConflict, "session %d changed concurrently", id)
	}
	row.Status = to
	return nil
}

func (s *fakeSessionStore) CheckOut(ctx context.Context, companyID, id, mileageOut int, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok || row.CompanyID != companyID || models.IsTerminalSessionStatus(row.Status) {
		return models.Errorf(models.ErrConflict, "session %d changed concurrently", id)
	}
	row.Status = models.SessionClosed
	row.MileageOut = &mileageOut
	row.CheckOutAt = &now
	return nil
}

func (s *fakeSessionStore) Cancel(ctx context.Context, companyID, id int, reason string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok || row.CompanyID != companyID || models.IsTerminalSessionStatus(row.Status) {
		return models.Errorf(models.ErrConflict, "session %d changed concurrently", id)
	}
	row.Status = models.SessionCancelled
	row.CancelReason = reason
	return nil
}

type fakeIntakeStore struct {
	mu          sync.Mutex
	nextID      int
	requests    map[int]*models.CustomerRequest
	inspections map[int]*models.Inspection
	findings    map[int]*models.InspectionItem
	testDrives  map[int]*models.TestDrive
	bySession   map[string]bool
}

func newFakeIntakeStore() *fakeIntakeStore {
	return &fakeIntakeStore{
		requests:    make(map[int]*models.CustomerRequest),
		inspections: make(map[int]*models.Inspection),
		findings:    make(map[int]*models.InspectionItem),
		testDrives:  make(map[int]*models.TestDrive),
		bySession:   make(map[string]bool),
	}
}

func (s *fakeIntakeStore) claim(kind string, sessionID int) error {
	key := fmt.Sprintf("%s:%d", kind, sessionID)
	if s.bySession[key] {
		return models.Errorf(models.ErrConflict, "session %d already has a %s", sessionID, kind)
	}
	s.bySession[key] = true
	return nil
}

func (s *fakeIntakeStore) CreateCustomerRequest(ctx context.Context, cr *models.CustomerRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.claim("customer_request", cr.SessionID); err != nil {
		return err
	}
	s.nextID++
	cr.ID = s.nextID
	cp := *cr
	s.requests[cr.ID] = &cp
	return nil
}

func (s *fakeIntakeStore) GetCustomerRequest(ctx context.Context, companyID, id int) (*models.CustomerRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.requests[id]
	if !ok || row.CompanyID != companyID {
		return nil, models.ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (s *fakeIntakeStore) CompleteCustomerRequest(ctx context.Context, companyID, id int, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.requests[id]
	if !ok || row.CompanyID != companyID {
		return models.ErrNotFound
	}
	row.Status = models.IntakeCompleted
	return nil
}

func (s *fakeIntakeStore) CreateInspection(ctx context.Context, in *models.Inspection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.claim("inspection", in.SessionID); err != nil {
		return err
	}
	s.nextID++
	in.ID = s.nextID
	cp := *in
	s.inspections[in.ID] = &cp
	return nil
}

func (s *fakeIntakeStore) GetInspection(ctx context.Context, companyID, id int) (*models.Inspection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.inspections[id]
	if !ok || row.CompanyID != companyID {
		return nil, models.ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (s *fakeIntakeStore) AddInspectionItem(ctx context.Context, it *models.InspectionItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	it.ID = s.nextID
	cp := *it
	s.findings[it.ID] = &cp
	return nil
}

func (s *fakeIntakeStore) GetInspectionItem(ctx context.Context, companyID, id int) (*models.InspectionItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.findings[id]
	if !ok || row.CompanyID != companyID {
		return nil, models.ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (s *fakeIntakeStore) CompleteInspection(ctx context.Context, companyID, id int, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.inspections[id]
	if !ok || row.CompanyID != companyID {
		return models.ErrNotFound
	}
	row.Status = models.IntakeCompleted
	row.CompletedAt = &now
	return nil
}

func (s *fakeIntakeStore) CreateTestDrive(ctx context.Context, td *models.TestDrive) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.claim("test_drive", td.SessionID); err != nil {
		return err
	}
	s.nextID++
	td.ID = s.nextID
	cp := *td
	s.testDrives[td.ID] = &cp
	return nil
}

func (s *fakeIntakeStore) GetTestDrive(ctx context.Context, companyID, id int) (*models.TestDrive, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.testDrives[id]
	if !ok || row.CompanyID != companyID {
		return nil, models.ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (s *fakeIntakeStore) CompleteTestDrive(ctx context.Context, companyID, id int, findings string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.testDrives[id]
	if !ok || row.CompanyID != companyID {
		return models.ErrNotFound
	}
	row.Status = models.IntakeCompleted
	row.Findings = findings
	row.CompletedAt = &now
	return nil
}

// fakeJobCardStore mirrors the optimistic versioning of the SQL store.
type fakeJobCardStore struct {
	mu     sync.Mutex
	nextID int
	rows   map[int]*models.JobCard
}

func newFakeJobCardStore() *fakeJobCardStore {
	return &fakeJobCardStore{rows: make(map[int]*models.JobCard)}
}

func (s *fakeJobCardStore) Create(ctx context.Context, jc *models.JobCard) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if row.SessionID == jc.SessionID && row.Status != models.JobCardCancelled {
			return models.Errorf(models.ErrConflict, "session %d already has an active job card", jc.SessionID)
		}
	}
	s.nextID++
	jc.ID = s.nextID
	jc.JobCardNumber = fmt.Sprintf("JC-20250101-%04d", s.nextID)
	cp := *jc
	s.rows[jc.ID] = &cp
	return nil
}

func (s *fakeJobCardStore) Get(ctx context.Context, companyID, id int) (*models.JobCard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok || row.CompanyID != companyID {
		return nil, models.ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (s *fakeJobCardStore) GetBySession(ctx context.Context, companyID, sessionID int) (*models.JobCard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if row.CompanyID == companyID && row.SessionID == sessionID && row.Status != models.JobCardCancelled {
			cp := *row
			return &cp, nil
		}
	}
	return nil, models.ErrNotFound
}

func (s *fakeJobCardStore) cas(jc *models.JobCard, apply func(row *models.JobCard)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[jc.ID]
	if !ok || row.CompanyID != jc.CompanyID || row.Version != jc.Version {
		return models.Errorf(models.ErrConflict, "job card %d changed concurrently", jc.ID)
	}
	apply(row)
	row.Version++
	jc.Version++
	return nil
}

func (s *fakeJobCardStore) SetApproval(ctx context.Context, jc *models.JobCard, approvedBy int, notes string, now time.Time) error {
	return s.cas(jc, func(row *models.JobCard) {
		row.IsApproved = true
		row.ApprovedAt = &now
		row.ApprovedByID = &approvedBy
		row.ApprovalNotes = notes
	})
}

func (s *fakeJobCardStore) SetAuthorization(ctx context.Context, jc *models.JobCard, method string, now time.Time) error {
	return s.cas(jc, func(row *models.JobCard) {
		row.CustomerAuthorized = true
		row.CustomerAuthorizedAt = &now
		row.CustomerAuthorizationMethod = &method
	})
}

func (s *fakeJobCardStore) UpdateStatus(ctx context.Context, jc *models.JobCard, to models.JobCardStatus, now time.Time) error {
	return s.cas(jc, func(row *models.JobCard) {
		row.Status = to
	})
}

func (s *fakeJobCardStore) StartWork(ctx context.Context, jc *models.JobCard, now time.Time) error {
	return s.cas(jc, func(row *models.JobCard) {
		row.Status = models.JobCardInProgress
		if row.ActualStartAt == nil {
			row.ActualStartAt = &now
		}
	})
}

func (s *fakeJobCardStore) CompleteWork(ctx context.Context, jc *models.JobCard, now time.Time) error {
	return s.cas(jc, func(row *models.JobCard) {
		row.Status = models.JobCardCompleted
		row.ActualCompletionAt = &now
	})
}

type fakeItemStore struct {
	mu     sync.Mutex
	nextID int
	rows   map[int]*models.JobCardItem
}

func newFakeItemStore() *fakeItemStore {
	return &fakeItemStore{rows: make(map[int]*models.JobCardItem)}
}

func (s *fakeItemStore) Add(ctx context.Context, it *models.JobCardItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	it.ID = s.nextID
	cp := *it
	s.rows[it.ID] = &cp
	return nil
}

func (s *fakeItemStore) Get(ctx context.Context, companyID, id int) (*models.JobCardItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok || row.CompanyID != companyID {
		return nil, models.ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (s *fakeItemStore) ListByJobCard(ctx context.Context, companyID, jobCardID int) ([]models.JobCardItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.JobCardItem
	for _, row := range s.rows {
		if row.CompanyID == companyID && row.JobCardID == jobCardID {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (s *fakeItemStore) Update(ctx context.Context, it *models.JobCardItem, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[it.ID]
	if !ok || row.CompanyID != it.CompanyID {
		return models.ErrNotFound
	}
	row.Title = it.Title
	row.Description = it.Description
	row.TechnicianID = it.TechnicianID
	row.EstimatedHours = it.EstimatedHours
	return nil
}

func (s *fakeItemStore) UpdateStatus(ctx context.Context, companyID, id int, from, to models.ItemStatus, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok || row.CompanyID != companyID || row.Status != from {
		return models.Errorf(models.ErrConflict, "task %d changed concurrently", id)
	}
	row.Status = to
	return nil
}

func (s *fakeItemStore) SetQualityChecked(ctx context.Context, companyID, id int, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok || row.CompanyID != companyID {
		return models.ErrNotFound
	}
	if row.Status != models.ItemCompleted {
		return models.Errorf(models.ErrPreconditionFailed, "task %d is not completed", id)
	}
	row.QualityChecked = true
	return nil
}

func (s *fakeItemStore) Remove(ctx context.Context, companyID, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok || row.CompanyID != companyID {
		return models.ErrNotFound
	}
	if row.Status != models.ItemPending {
		return models.Errorf(models.ErrPreconditionFailed, "task %d has started", id)
	}
	delete(s.rows, id)
	return nil
}

// addHours mirrors the roll-up the SQL time entry store does.
func (s *fakeItemStore) addHours(itemID int, hours float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if row, ok := s.rows[itemID]; ok {
		row.ActualHours += hours
	}
}

type fakePartStore struct {
	mu     sync.Mutex
	nextID int
	rows   map[int]*models.JobCardPart
}

func newFakePartStore() *fakePartStore {
	return &fakePartStore{rows: make(map[int]*models.JobCardPart)}
}

func (s *fakePartStore) Add(ctx context.Context, p *models.JobCardPart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	p.ID = s.nextID
	cp := *p
	s.rows[p.ID] = &cp
	return nil
}

func (s *fakePartStore) Get(ctx context.Context, companyID, id int) (*models.JobCardPart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok || row.CompanyID != companyID {
		return nil, models.ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (s *fakePartStore) ListByItem(ctx context.Context, companyID, itemID int) ([]models.JobCardPart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.JobCardPart
	for _, row := range s.rows {
		if row.CompanyID == companyID && row.ItemID == itemID {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (s *fakePartStore) UpdateStatus(ctx context.Context, companyID, id int, from, to models.PartStatus, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok || row.CompanyID != companyID || row.Status != from {
		return models.Errorf(models.ErrConflict, "part %d changed concurrently", id)
	}
	row.Status = to
	return nil
}

// fakeTimeStore enforces the one-active-entry rule under a lock, the way
// the partial unique index does in Postgres.
type fakeTimeStore struct {
	mu     sync.Mutex
	nextID int
	rows   map[int]*models.JobCardTimeEntry
	items  *fakeItemStore
}

func newFakeTimeStore(items *fakeItemStore) *fakeTimeStore {
	return &fakeTimeStore{rows: make(map[int]*models.JobCardTimeEntry), items: items}
}

func (s *fakeTimeStore) ClockIn(ctx context.Context, e *models.JobCardTimeEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if row.TechnicianID == e.TechnicianID && row.ItemID == e.ItemID && row.IsActive {
			return models.Errorf(models.ErrConflict,
				"technician %d is already clocked in on item %d", e.TechnicianID, e.ItemID)
		}
	}
	s.nextID++
	e.ID = s.nextID
	cp := *e
	s.rows[e.ID] = &cp
	return nil
}

func (s *fakeTimeStore) Get(ctx context.Context, companyID, id int) (*models.JobCardTimeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok || row.CompanyID != companyID {
		return nil, models.ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (s *fakeTimeStore) ListByItem(ctx context.Context, companyID, itemID int) ([]models.JobCardTimeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.JobCardTimeEntry
	for _, row := range s.rows {
		if row.CompanyID == companyID && row.ItemID == itemID {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (s *fakeTimeStore) Close(ctx context.Context, companyID, id int, end time.Time, breakMinutes int, hours float64) error {
	s.mu.Lock()
	row, ok := s.rows[id]
	if !ok || row.CompanyID != companyID || !row.IsActive {
		s.mu.Unlock()
		return models.Errorf(models.ErrConflict, "time entry %d is not active", id)
	}
	row.EndTime = &end
	row.BreakMinutes = breakMinutes
	row.Hours = hours
	row.IsActive = false
	itemID := row.ItemID
	s.mu.Unlock()

	s.items.addHours(itemID, hours)
	return nil
}

// fakeInvoiceStore mirrors the SQL store's contract: every money mutation
// ends in a full recalculation from the child rows, voided invoices reject
// mutation, and a duplicate payment reference is a conflict.
type fakeInvoiceStore struct {
	mu       sync.Mutex
	nextID   int
	nextItem int
	nextPay  int
	rows     map[int]*models.Invoice
}

func newFakeInvoiceStore() *fakeInvoiceStore {
	return &fakeInvoiceStore{rows: make(map[int]*models.Invoice)}
}

func (s *fakeInvoiceStore) recalc(inv *models.Invoice, now time.Time) error {
	if inv.Status == models.InvoiceVoided {
		return models.Errorf(models.ErrInvalidTransition, "invoice %s is voided", inv.InvoiceNumber)
	}
	t := models.SumInvoice(inv.Items, inv.Payments, inv.DiscountAmount)
	inv.Subtotal = t.Subtotal
	inv.TaxAmount = t.TaxAmount
	inv.Total = t.Total
	inv.PaidAmount = t.PaidAmount
	inv.BalanceDue = t.BalanceDue
	inv.Status = models.DeriveInvoiceStatus(t.BalanceDue, t.PaidAmount, inv.DueDate, inv.Status, now)
	if inv.Status == models.InvoicePaid && inv.PaidDate == nil {
		inv.PaidDate = &now
	}
	inv.Version++
	return nil
}

func copyInvoice(inv *models.Invoice) *models.Invoice {
	cp := *inv
	cp.Items = append([]models.InvoiceItem(nil), inv.Items...)
	cp.Payments = append([]models.Payment(nil), inv.Payments...)
	return &cp
}

func (s *fakeInvoiceStore) Create(ctx context.Context, inv *models.Invoice, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	inv.ID = s.nextID
	inv.InvoiceNumber = fmt.Sprintf("INV-20250101-%04d", s.nextID)
	inv.CreatedAt = now
	for i := range inv.Items {
		s.nextItem++
		inv.Items[i].ID = s.nextItem
		inv.Items[i].CompanyID = inv.CompanyID
		inv.Items[i].InvoiceID = inv.ID
		inv.Items[i].ComputeTotals()
	}
	if err := s.recalc(inv, now); err != nil {
		return err
	}
	s.rows[inv.ID] = copyInvoice(inv)
	return nil
}

func (s *fakeInvoiceStore) Get(ctx context.Context, companyID, id int) (*models.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok || row.CompanyID != companyID {
		return nil, models.ErrNotFound
	}
	return copyInvoice(row), nil
}

func (s *fakeInvoiceStore) List(ctx context.Context, companyID int, status string) ([]models.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Invoice
	for _, row := range s.rows {
		if row.CompanyID != companyID {
			continue
		}
		if status != "" && string(row.Status) != status {
			continue
		}
		out = append(out, *copyInvoice(row))
	}
	return out, nil
}

func (s *fakeInvoiceStore) AddItem(ctx context.Context, it *models.InvoiceItem, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[it.InvoiceID]
	if !ok || row.CompanyID != it.CompanyID {
		return models.ErrNotFound
	}
	s.nextItem++
	it.ID = s.nextItem
	it.ComputeTotals()
	row.Items = append(row.Items, *it)
	return s.recalc(row, now)
}

func (s *fakeInvoiceStore) UpdateItem(ctx context.Context, it *models.InvoiceItem, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[it.InvoiceID]
	if !ok || row.CompanyID != it.CompanyID {
		return models.ErrNotFound
	}
	for i := range row.Items {
		if row.Items[i].ID == it.ID {
			it.ComputeTotals()
			row.Items[i] = *it
			return s.recalc(row, now)
		}
	}
	return models.ErrNotFound
}

func (s *fakeInvoiceStore) RemoveItem(ctx context.Context, companyID, invoiceID, itemID int, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[invoiceID]
	if !ok || row.CompanyID != companyID {
		return models.ErrNotFound
	}
	for i := range row.Items {
		if row.Items[i].ID == itemID {
			row.Items = append(row.Items[:i], row.Items[i+1:]...)
			return s.recalc(row, now)
		}
	}
	return models.ErrNotFound
}

func (s *fakeInvoiceStore) AddPayment(ctx context.Context, p *models.Payment, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[p.InvoiceID]
	if !ok || row.CompanyID != p.CompanyID {
		return models.ErrNotFound
	}
	if p.Reference != "" {
		for _, inv := range s.rows {
			if inv.CompanyID != p.CompanyID {
				continue
			}
			for _, existing := range inv.Payments {
				if existing.Reference == p.Reference {
					return models.Errorf(models.ErrConflict,
						"payment reference %s already recorded", p.Reference)
				}
			}
		}
	}
	s.nextPay++
	p.ID = s.nextPay
	p.PaymentNumber = fmt.Sprintf("PAY-20250101-%04d", s.nextPay)
	row.Payments = append(row.Payments, *p)
	return s.recalc(row, now)
}

func (s *fakeInvoiceStore) Recalculate(ctx context.Context, companyID, invoiceID int, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[invoiceID]
	if !ok || row.CompanyID != companyID {
		return models.ErrNotFound
	}
	return s.recalc(row, now)
}

func (s *fakeInvoiceStore) OverrideStatus(ctx context.Context, inv *models.Invoice, to models.InvoiceStatus, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[inv.ID]
	if !ok || row.CompanyID != inv.CompanyID || row.Version != inv.Version {
		return models.Errorf(models.ErrConflict, "invoice %d changed concurrently", inv.ID)
	}
	row.Status = to
	if to == models.InvoicePaid && row.PaidDate == nil {
		row.PaidDate = &now
	}
	row.Version++
	inv.Version++
	return nil
}

func (s *fakeInvoiceStore) ListOverdueCandidates(ctx context.Context, now time.Time) ([]models.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Invoice
	for _, row := range s.rows {
		if row.Status == models.InvoiceSent && row.DueDate != nil && row.DueDate.Before(now) &&
			row.BalanceDue.GreaterThan(decimal.Zero) {
			out = append(out, *copyInvoice(row))
		}
	}
	return out, nil
}
