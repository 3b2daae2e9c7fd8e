package services

import (
	"context"
	"time"

	"garage-backend/internal/clock"
	"garage-backend/internal/metrics"
	"garage-backend/internal/models"
	"garage-backend/internal/notify"
	"garage-backend/internal/validation"

	"github.com/sirupsen/logrus"
)

// SessionStore is the persistence surface SessionService needs.
type SessionStore interface {
	Create(ctx context.Context, s *models.GarageSession) error
	Get(ctx context.Context, companyID, id int) (*models.GarageSession, error)
	List(ctx context.Context, companyID int, status string) ([]models.GarageSession, error)
	UpdateStatus(ctx context.Context, companyID, id int, from, to models.SessionStatus, now time.Time) error
	CheckOut(ctx context.Context, companyID, id, mileageOut int, now time.Time) error
	Cancel(ctx context.Context, companyID, id int, reason string, now time.Time) error
}

// IntakeStore covers the per-session intake records.
type IntakeStore interface {
	CreateCustomerRequest(ctx context.Context, cr *models.CustomerRequest) error
	GetCustomerRequest(ctx context.Context, companyID, id int) (*models.CustomerRequest, error)
	CompleteCustomerRequest(ctx context.Context, companyID, id int, now time.Time) error
	CreateInspection(ctx context.Context, in *models.Inspection) error
	GetInspection(ctx context.Context, companyID, id int) (*models.Inspection, error)
	AddInspectionItem(ctx context.Context, it *models.InspectionItem) error
	CompleteInspection(ctx context.Context, companyID, id int, now time.Time) error
	CreateTestDrive(ctx context.Context, td *models.TestDrive) error
	GetTestDrive(ctx context.Context, companyID, id int) (*models.TestDrive, error)
	CompleteTestDrive(ctx context.Context, companyID, id int, findings string, now time.Time) error
}

// SessionService runs the vehicle-visit lifecycle: check-in, intake
// records, the forward-only status pipeline, check-out and cancellation.
type SessionService struct {
	sessions SessionStore
	intake   IntakeStore
	clock    clock.Clock
	notifier notify.Notifier
	log      *logrus.Logger
}

func NewSessionService(sessions SessionStore, intake IntakeStore, clk clock.Clock, notifier notify.Notifier, log *logrus.Logger) *SessionService {
	return &SessionService{sessions: sessions, intake: intake, clock: clk, notifier: notifier, log: log}
}

// CreateSession checks a vehicle in. The session number is allocated by the
// store inside the insert transaction.
func (s *SessionService) CreateSession(ctx context.Context, companyID int, req models.CreateSessionRequest) (*models.GarageSession, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	session := &models.GarageSession{
		CompanyID:    companyID,
		BranchID:     req.BranchID,
		ClientID:     req.ClientID,
		VehicleID:    req.VehicleID,
		Status:       models.SessionCheckedIn,
		MileageIn:    req.MileageIn,
		CheckInAt:    s.clock.Now(),
		AdvisorID:    req.AdvisorID,
		TechnicianID: req.TechnicianID,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	metrics.SessionsCreatedTotal.Inc()
	s.log.WithFields(logrus.Fields{
		"company_id": companyID,
		"session":    session.SessionNumber,
		"vehicle_id": session.VehicleID,
	}).Info("vehicle checked in")
	return session, nil
}

func (s *SessionService) GetSession(ctx context.Context, companyID, id int) (*models.GarageSession, error) {
	return s.sessions.Get(ctx, companyID, id)
}

func (s *SessionService) ListSessions(ctx context.Context, companyID int, status string) ([]models.GarageSession, error) {
	return s.sessions.List(ctx, companyID, status)
}

// UpdateStatus moves the session forward in the pipeline. Stages may be
// skipped but never revisited. Reaching Completed signals the advisor that
// the vehicle is ready for pickup.
func (s *SessionService) UpdateStatus(ctx context.Context, companyID, id int, req models.UpdateSessionStatusRequest) (*models.GarageSession, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	session, err := s.sessions.Get(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if !models.CanTransitionSession(session.Status, req.Status) {
		return nil, models.Errorf(models.ErrInvalidTransition,
			"session cannot move from %s to %s", session.Status, req.Status)
	}
	if err := s.sessions.UpdateStatus(ctx, companyID, id, session.Status, req.Status, s.clock.Now()); err != nil {
		return nil, err
	}
	session.Status = req.Status

	if req.Status == models.SessionCompleted {
		s.notifier.SessionReady(ctx, companyID, session.SessionNumber)
	}
	return session, nil
}

// CheckOut closes the session. Only a completed session can be checked out,
// and the odometer cannot run backwards.
func (s *SessionService) CheckOut(ctx context.Context, companyID, id int, req models.CheckOutRequest) (*models.GarageSession, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	session, err := s.sessions.Get(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionCompleted {
		return nil, models.Errorf(models.ErrPreconditionFailed,
			"session %s is %s, check-out requires completed", session.SessionNumber, session.Status)
	}
	if req.MileageOut < session.MileageIn {
		return nil, models.Errorf(models.ErrValidation,
			"mileage out %d is below mileage in %d", req.MileageOut, session.MileageIn)
	}
	if err := s.sessions.CheckOut(ctx, companyID, id, req.MileageOut, s.clock.Now()); err != nil {
		return nil, err
	}
	return s.sessions.Get(ctx, companyID, id)
}

// Cancel aborts the session. Cancelling an already cancelled session is a
// no-op; a closed session cannot be cancelled.
func (s *SessionService) Cancel(ctx context.Context, companyID, id int, req models.CancelSessionRequest) (*models.GarageSession, error) {
	session, err := s.sessions.Get(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if session.Status == models.SessionCancelled {
		return session, nil
	}
	if session.Status == models.SessionClosed {
		return nil, models.Errorf(models.ErrInvalidTransition,
			"session %s is closed", session.SessionNumber)
	}
	if err := s.sessions.Cancel(ctx, companyID, id, req.Reason, s.clock.Now()); err != nil {
		return nil, err
	}
	return s.sessions.Get(ctx, companyID, id)
}

// requireOpenSession loads the session and rejects intake writes once it is
// terminal.
func (s *SessionService) requireOpenSession(ctx context.Context, companyID, sessionID int) (*models.GarageSession, error) {
	session, err := s.sessions.Get(ctx, companyID, sessionID)
	if err != nil {
		return nil, err
	}
	if models.IsTerminalSessionStatus(session.Status) {
		return nil, models.Errorf(models.ErrPreconditionFailed,
			"session %s is %s", session.SessionNumber, session.Status)
	}
	return session, nil
}

// CreateCustomerRequest records what the customer asked for. One per
// session; a duplicate surfaces as Conflict from the store.
func (s *SessionService) CreateCustomerRequest(ctx context.Context, companyID, sessionID int, req models.CreateCustomerRequestRequest) (*models.CustomerRequest, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if _, err := s.requireOpenSession(ctx, companyID, sessionID); err != nil {
		return nil, err
	}
	cr := &models.CustomerRequest{
		CompanyID:   companyID,
		SessionID:   sessionID,
		Title:       req.Title,
		Description: req.Description,
		Status:      models.IntakePending,
	}
	if err := s.intake.CreateCustomerRequest(ctx, cr); err != nil {
		return nil, err
	}
	return cr, nil
}

func (s *SessionService) CompleteCustomerRequest(ctx context.Context, companyID, id int) error {
	return s.intake.CompleteCustomerRequest(ctx, companyID, id, s.clock.Now())
}

func (s *SessionService) CreateInspection(ctx context.Context, companyID, sessionID int, req models.CreateInspectionRequest) (*models.Inspection, error) {
	if _, err := s.requireOpenSession(ctx, companyID, sessionID); err != nil {
		return nil, err
	}
	in := &models.Inspection{
		CompanyID:   companyID,
		SessionID:   sessionID,
		InspectorID: req.InspectorID,
		Status:      models.IntakePending,
		Notes:       req.Notes,
	}
	if err := s.intake.CreateInspection(ctx, in); err != nil {
		return nil, err
	}
	return in, nil
}

func (s *SessionService) GetInspection(ctx context.Context, companyID, id int) (*models.Inspection, error) {
	return s.intake.GetInspection(ctx, companyID, id)
}

// AddInspectionFinding records one finding. Findings can no longer be added
// once the inspection is completed.
func (s *SessionService) AddInspectionFinding(ctx context.Context, companyID, inspectionID int, req models.AddInspectionItemRequest) (*models.InspectionItem, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	in, err := s.intake.GetInspection(ctx, companyID, inspectionID)
	if err != nil {
		return nil, err
	}
	if in.Status == models.IntakeCompleted {
		return nil, models.Errorf(models.ErrPreconditionFailed,
			"inspection %d is already completed", inspectionID)
	}
	it := &models.InspectionItem{
		CompanyID:    companyID,
		InspectionID: inspectionID,
		Area:         req.Area,
		Title:        req.Title,
		Finding:      req.Finding,
		Severity:     req.Severity,
	}
	if err := s.intake.AddInspectionItem(ctx, it); err != nil {
		return nil, err
	}
	return it, nil
}

func (s *SessionService) CompleteInspection(ctx context.Context, companyID, id int) error {
	return s.intake.CompleteInspection(ctx, companyID, id, s.clock.Now())
}

func (s *SessionService) CreateTestDrive(ctx context.Context, companyID, sessionID int, req models.CreateTestDriveRequest) (*models.TestDrive, error) {
	if _, err := s.requireOpenSession(ctx, companyID, sessionID); err != nil {
		return nil, err
	}
	td := &models.TestDrive{
		CompanyID: companyID,
		SessionID: sessionID,
		DriverID:  req.DriverID,
		Status:    models.IntakePending,
	}
	if err := s.intake.CreateTestDrive(ctx, td); err != nil {
		return nil, err
	}
	return td, nil
}

func (s *SessionService) CompleteTestDrive(ctx context.Context, companyID, id int, req models.CompleteTestDriveRequest) error {
	return s.intake.CompleteTestDrive(ctx, companyID, id, req.Findings, s.clock.Now())
}
