package services

import (
	"context"
	"time"

	"garage-backend/internal/clock"
	"garage-backend/internal/metrics"
	"garage-backend/internal/models"
	"garage-backend/internal/validation"

	"github.com/sirupsen/logrus"
)

type JobCardStore interface {
	Create(ctx context.Context, jc *models.JobCard) error
	Get(ctx context.Context, companyID, id int) (*models.JobCard, error)
	GetBySession(ctx context.Context, companyID, sessionID int) (*models.JobCard, error)
	SetApproval(ctx context.Context, jc *models.JobCard, approvedBy int, notes string, now time.Time) error
	SetAuthorization(ctx context.Context, jc *models.JobCard, method string, now time.Time) error
	UpdateStatus(ctx context.Context, jc *models.JobCard, to models.JobCardStatus, now time.Time) error
	StartWork(ctx context.Context, jc *models.JobCard, now time.Time) error
	CompleteWork(ctx context.Context, jc *models.JobCard, now time.Time) error
}

type JobCardItemStore interface {
	Add(ctx context.Context, it *models.JobCardItem) error
	Get(ctx context.Context, companyID, id int) (*models.JobCardItem, error)
	ListByJobCard(ctx context.Context, companyID, jobCardID int) ([]models.JobCardItem, error)
	Update(ctx context.Context, it *models.JobCardItem, now time.Time) error
	UpdateStatus(ctx context.Context, companyID, id int, from, to models.ItemStatus, now time.Time) error
	SetQualityChecked(ctx context.Context, companyID, id int, now time.Time) error
	Remove(ctx context.Context, companyID, id int) error
}

type PartStore interface {
	Add(ctx context.Context, p *models.JobCardPart) error
	Get(ctx context.Context, companyID, id int) (*models.JobCardPart, error)
	ListByItem(ctx context.Context, companyID, itemID int) ([]models.JobCardPart, error)
	UpdateStatus(ctx context.Context, companyID, id int, from, to models.PartStatus, now time.Time) error
}

// SessionReader is the read-only slice of the session store the job card
// workflow needs for gating.
type SessionReader interface {
	Get(ctx context.Context, companyID, id int) (*models.GarageSession, error)
}

// IntakeReader resolves the intake records that tasks are raised from.
type IntakeReader interface {
	GetCustomerRequest(ctx context.Context, companyID, id int) (*models.CustomerRequest, error)
	GetInspectionItem(ctx context.Context, companyID, id int) (*models.InspectionItem, error)
	GetTestDrive(ctx context.Context, companyID, id int) (*models.TestDrive, error)
}

// JobCardService runs the work-order workflow: the status graph, the two
// independent sign-off axes, tasks and parts.
type JobCardService struct {
	cards    JobCardStore
	items    JobCardItemStore
	parts    PartStore
	sessions SessionReader
	intake   IntakeReader
	clock    clock.Clock
	log      *logrus.Logger
}

func NewJobCardService(cards JobCardStore, items JobCardItemStore, parts PartStore, sessions SessionReader, intake IntakeReader, clk clock.Clock, log *logrus.Logger) *JobCardService {
	return &JobCardService{cards: cards, items: items, parts: parts, sessions: sessions, intake: intake, clock: clk, log: log}
}

// Create opens a job card against a session. One active card per session;
// a second attempt surfaces as Conflict from the store's unique index.
func (s *JobCardService) Create(ctx context.Context, companyID int, req models.CreateJobCardRequest) (*models.JobCard, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	session, err := s.sessions.Get(ctx, companyID, req.SessionID)
	if err != nil {
		return nil, err
	}
	if models.IsTerminalSessionStatus(session.Status) {
		return nil, models.Errorf(models.ErrPreconditionFailed,
			"session %s is %s", session.SessionNumber, session.Status)
	}

	jc := &models.JobCard{
		CompanyID:      companyID,
		SessionID:      req.SessionID,
		Title:          req.Title,
		Status:         models.JobCardDraft,
		EstimatedHours: req.EstimatedHours,
	}
	if err := s.cards.Create(ctx, jc); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"company_id": companyID,
		"job_card":   jc.JobCardNumber,
		"session_id": jc.SessionID,
	}).Info("job card opened")
	return jc, nil
}

func (s *JobCardService) Get(ctx context.Context, companyID, id int) (*models.JobCard, error) {
	jc, err := s.cards.Get(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	jc.Items, err = s.items.ListByJobCard(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	return jc, nil
}

func (s *JobCardService) GetBySession(ctx context.Context, companyID, sessionID int) (*models.JobCard, error) {
	return s.cards.GetBySession(ctx, companyID, sessionID)
}

// Approve records the internal technical sign-off. Approving an already
// approved card is a no-op.
func (s *JobCardService) Approve(ctx context.Context, companyID, id, approvedBy int, req models.ApproveJobCardRequest) (*models.JobCard, error) {
	jc, err := s.cards.Get(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if jc.IsApproved {
		return jc, nil
	}
	if models.IsTerminalJobCardStatus(jc.Status) {
		return nil, models.Errorf(models.ErrPreconditionFailed,
			"job card %s is %s", jc.JobCardNumber, jc.Status)
	}
	if err := s.cards.SetApproval(ctx, jc, approvedBy, req.Notes, s.clock.Now()); err != nil {
		return nil, err
	}
	return s.cards.Get(ctx, companyID, id)
}

// Authorize records the customer's acceptance of the quoted scope.
// Idempotent like Approve; the two axes are independent and can land in
// either order.
func (s *JobCardService) Authorize(ctx context.Context, companyID, id int, req models.AuthorizeJobCardRequest) (*models.JobCard, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	jc, err := s.cards.Get(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if jc.CustomerAuthorized {
		return jc, nil
	}
	if models.IsTerminalJobCardStatus(jc.Status) {
		return nil, models.Errorf(models.ErrPreconditionFailed,
			"job card %s is %s", jc.JobCardNumber, jc.Status)
	}
	if err := s.cards.SetAuthorization(ctx, jc, req.Method, s.clock.Now()); err != nil {
		return nil, err
	}
	return s.cards.Get(ctx, companyID, id)
}

// StartWork puts the card in progress. The internal approval is the hard
// gate here; customer authorization is checked by the generic status move
// but shops routinely start diagnosis before the customer signs off on
// cost, so the dedicated start path only requires approval.
func (s *JobCardService) StartWork(ctx context.Context, companyID, id int) (*models.JobCard, error) {
	jc, err := s.cards.Get(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if !jc.IsApproved {
		return nil, models.Errorf(models.ErrPreconditionFailed,
			"job card %s is not approved", jc.JobCardNumber)
	}
	if !models.CanTransitionJobCard(jc.Status, models.JobCardInProgress) {
		return nil, models.Errorf(models.ErrInvalidTransition,
			"job card cannot move from %s to %s", jc.Status, models.JobCardInProgress)
	}
	if err := s.cards.StartWork(ctx, jc, s.clock.Now()); err != nil {
		return nil, err
	}
	return s.cards.Get(ctx, companyID, id)
}

// UpdateStatus applies one move on the transition graph. InProgress via
// this generic path requires both sign-off axes; Completed is routed
// through CompleteWork so the roll-up and gating always run.
func (s *JobCardService) UpdateStatus(ctx context.Context, companyID, id int, req models.UpdateJobCardStatusRequest) (*models.JobCard, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if req.Status == models.JobCardCompleted {
		return s.CompleteWork(ctx, companyID, id)
	}

	jc, err := s.cards.Get(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if !models.CanTransitionJobCard(jc.Status, req.Status) {
		return nil, models.Errorf(models.ErrInvalidTransition,
			"job card cannot move from %s to %s", jc.Status, req.Status)
	}
	if req.Status == models.JobCardInProgress {
		if !jc.IsApproved || !jc.CustomerAuthorized {
			return nil, models.Errorf(models.ErrPreconditionFailed,
				"job card %s needs approval and customer authorization", jc.JobCardNumber)
		}
		if err := s.cards.StartWork(ctx, jc, s.clock.Now()); err != nil {
			return nil, err
		}
		return s.cards.Get(ctx, companyID, id)
	}
	if err := s.cards.UpdateStatus(ctx, jc, req.Status, s.clock.Now()); err != nil {
		return nil, err
	}
	return s.cards.Get(ctx, companyID, id)
}

// CompleteWork finishes the card. Every task must be completed first; the
// store folds the task hours into the card in the same statement.
func (s *JobCardService) CompleteWork(ctx context.Context, companyID, id int) (*models.JobCard, error) {
	jc, err := s.cards.Get(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if !models.CanTransitionJobCard(jc.Status, models.JobCardCompleted) {
		return nil, models.Errorf(models.ErrInvalidTransition,
			"job card cannot move from %s to %s", jc.Status, models.JobCardCompleted)
	}
	items, err := s.items.ListByJobCard(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		if it.Status != models.ItemCompleted {
			return nil, models.Errorf(models.ErrPreconditionFailed,
				"task %q is still %s", it.Title, it.Status)
		}
	}
	if err := s.cards.CompleteWork(ctx, jc, s.clock.Now()); err != nil {
		return nil, err
	}

	metrics.JobCardsCompletedTotal.Inc()
	s.log.WithFields(logrus.Fields{
		"company_id": companyID,
		"job_card":   jc.JobCardNumber,
	}).Info("job card completed")
	return s.cards.Get(ctx, companyID, id)
}

// Cancel voids the card from any non-terminal state.
func (s *JobCardService) Cancel(ctx context.Context, companyID, id int) (*models.JobCard, error) {
	jc, err := s.cards.Get(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if !models.CanTransitionJobCard(jc.Status, models.JobCardCancelled) {
		return nil, models.Errorf(models.ErrInvalidTransition,
			"job card %s is %s", jc.JobCardNumber, jc.Status)
	}
	if err := s.cards.UpdateStatus(ctx, jc, models.JobCardCancelled, s.clock.Now()); err != nil {
		return nil, err
	}
	return s.cards.Get(ctx, companyID, id)
}

// requireEditableCard rejects task and part writes once the card is
// terminal.
func (s *JobCardService) requireEditableCard(ctx context.Context, companyID, jobCardID int) (*models.JobCard, error) {
	jc, err := s.cards.Get(ctx, companyID, jobCardID)
	if err != nil {
		return nil, err
	}
	if models.IsTerminalJobCardStatus(jc.Status) {
		return nil, models.Errorf(models.ErrPreconditionFailed,
			"job card %s is %s", jc.JobCardNumber, jc.Status)
	}
	return jc, nil
}

func (s *JobCardService) AddItem(ctx context.Context, companyID, jobCardID int, req models.AddJobCardItemRequest) (*models.JobCardItem, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if _, err := s.requireEditableCard(ctx, companyID, jobCardID); err != nil {
		return nil, err
	}
	it := &models.JobCardItem{
		CompanyID:      companyID,
		JobCardID:      jobCardID,
		Title:          req.Title,
		Description:    req.Description,
		Status:         models.ItemPending,
		TechnicianID:   req.TechnicianID,
		EstimatedHours: req.EstimatedHours,
	}
	if err := s.items.Add(ctx, it); err != nil {
		return nil, err
	}
	return it, nil
}

// addItemFromSource is the shared tail of the three source-linked creators.
func (s *JobCardService) addItemFromSource(ctx context.Context, companyID, jobCardID int, source string, sourceID int, title, description string, req models.CreateItemFromSourceRequest) (*models.JobCardItem, error) {
	if _, err := s.requireEditableCard(ctx, companyID, jobCardID); err != nil {
		return nil, err
	}
	it := &models.JobCardItem{
		CompanyID:      companyID,
		JobCardID:      jobCardID,
		Title:          title,
		Description:    description,
		Status:         models.ItemPending,
		TechnicianID:   req.TechnicianID,
		EstimatedHours: req.EstimatedHours,
		Source:         &source,
		SourceID:       &sourceID,
	}
	if err := s.items.Add(ctx, it); err != nil {
		return nil, err
	}
	return it, nil
}

// AddItemFromCustomerRequest raises a task from the customer's stated
// request, keeping the traceability link.
func (s *JobCardService) AddItemFromCustomerRequest(ctx context.Context, companyID, jobCardID int, req models.CreateItemFromSourceRequest) (*models.JobCardItem, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	cr, err := s.intake.GetCustomerRequest(ctx, companyID, req.SourceID)
	if err != nil {
		return nil, err
	}
	return s.addItemFromSource(ctx, companyID, jobCardID,
		models.ItemSourceCustomerRequest, cr.ID, cr.Title, cr.Description, req)
}

// AddItemFromInspectionFinding raises a task from one inspection finding.
func (s *JobCardService) AddItemFromInspectionFinding(ctx context.Context, companyID, jobCardID int, req models.CreateItemFromSourceRequest) (*models.JobCardItem, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	finding, err := s.intake.GetInspectionItem(ctx, companyID, req.SourceID)
	if err != nil {
		return nil, err
	}
	return s.addItemFromSource(ctx, companyID, jobCardID,
		models.ItemSourceInspection, finding.ID, finding.Title, finding.Finding, req)
}

// AddItemFromTestDrive raises a task from the road-test findings.
func (s *JobCardService) AddItemFromTestDrive(ctx context.Context, companyID, jobCardID int, req models.CreateItemFromSourceRequest) (*models.JobCardItem, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	td, err := s.intake.GetTestDrive(ctx, companyID, req.SourceID)
	if err != nil {
		return nil, err
	}
	return s.addItemFromSource(ctx, companyID, jobCardID,
		models.ItemSourceTestDrive, td.ID, "Test drive finding", td.Findings, req)
}

func (s *JobCardService) UpdateItem(ctx context.Context, companyID, itemID int, req models.UpdateJobCardItemRequest) (*models.JobCardItem, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	it, err := s.items.Get(ctx, companyID, itemID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireEditableCard(ctx, companyID, it.JobCardID); err != nil {
		return nil, err
	}
	it.Title = req.Title
	it.Description = req.Description
	it.TechnicianID = req.TechnicianID
	it.EstimatedHours = req.EstimatedHours
	if err := s.items.Update(ctx, it, s.clock.Now()); err != nil {
		return nil, err
	}
	return it, nil
}

// UpdateItemStatus moves a task along pending -> in_progress -> completed.
func (s *JobCardService) UpdateItemStatus(ctx context.Context, companyID, itemID int, to models.ItemStatus) (*models.JobCardItem, error) {
	it, err := s.items.Get(ctx, companyID, itemID)
	if err != nil {
		return nil, err
	}
	if !models.CanTransitionItem(it.Status, to) {
		return nil, models.Errorf(models.ErrInvalidTransition,
			"task cannot move from %s to %s", it.Status, to)
	}
	if _, err := s.requireEditableCard(ctx, companyID, it.JobCardID); err != nil {
		return nil, err
	}
	if err := s.items.UpdateStatus(ctx, companyID, itemID, it.Status, to, s.clock.Now()); err != nil {
		return nil, err
	}
	return s.items.Get(ctx, companyID, itemID)
}

// MarkItemQualityChecked flags a completed task as quality checked. The
// store rejects the flag on a task in any other state.
func (s *JobCardService) MarkItemQualityChecked(ctx context.Context, companyID, itemID int) error {
	return s.items.SetQualityChecked(ctx, companyID, itemID, s.clock.Now())
}

// RemoveItem deletes a task. The store only removes pending tasks; work
// that has started stays on the record.
func (s *JobCardService) RemoveItem(ctx context.Context, companyID, itemID int) error {
	it, err := s.items.Get(ctx, companyID, itemID)
	if err != nil {
		return err
	}
	if _, err := s.requireEditableCard(ctx, companyID, it.JobCardID); err != nil {
		return err
	}
	return s.items.Remove(ctx, companyID, itemID)
}

// AddPart books a part against a task, pricing it at that moment.
func (s *JobCardService) AddPart(ctx context.Context, companyID, itemID int, req models.AddJobCardPartRequest) (*models.JobCardPart, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	// The validator cannot see inside decimal fields.
	if !req.QuantityUsed.IsPositive() {
		return nil, models.Errorf(models.ErrValidation,
			"part %q needs a positive quantity", req.Name)
	}
	if req.UnitCost.IsNegative() || req.UnitPrice.IsNegative() {
		return nil, models.Errorf(models.ErrValidation,
			"part %q has a negative unit amount", req.Name)
	}
	it, err := s.items.Get(ctx, companyID, itemID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireEditableCard(ctx, companyID, it.JobCardID); err != nil {
		return nil, err
	}
	p := &models.JobCardPart{
		CompanyID:    companyID,
		ItemID:       itemID,
		PartNumber:   req.PartNumber,
		Name:         req.Name,
		Status:       models.PartPending,
		QuantityUsed: req.QuantityUsed,
		UnitCost:     req.UnitCost,
		UnitPrice:    req.UnitPrice,
		Markup:       req.Markup,
	}
	p.ComputeTotals()
	if err := s.parts.Add(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *JobCardService) ListParts(ctx context.Context, companyID, itemID int) ([]models.JobCardPart, error) {
	return s.parts.ListByItem(ctx, companyID, itemID)
}

// UpdatePartStatus moves a part along its procurement states. Installed
// parts are immutable.
func (s *JobCardService) UpdatePartStatus(ctx context.Context, companyID, partID int, to models.PartStatus) (*models.JobCardPart, error) {
	p, err := s.parts.Get(ctx, companyID, partID)
	if err != nil {
		return nil, err
	}
	if !models.CanTransitionPart(p.Status, to) {
		return nil, models.Errorf(models.ErrInvalidTransition,
			"part cannot move from %s to %s", p.Status, to)
	}
	if err := s.parts.UpdateStatus(ctx, companyID, partID, p.Status, to, s.clock.Now()); err != nil {
		return nil, err
	}
	return s.parts.Get(ctx, companyID, partID)
}
