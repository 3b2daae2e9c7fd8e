package services

import (
	"context"
	"time"

	"garage-backend/internal/clock"
	"garage-backend/internal/models"
	"garage-backend/internal/validation"

	"github.com/sirupsen/logrus"
)

type TimeEntryStore interface {
	ClockIn(ctx context.Context, e *models.JobCardTimeEntry) error
	Get(ctx context.Context, companyID, id int) (*models.JobCardTimeEntry, error)
	ListByItem(ctx context.Context, companyID, itemID int) ([]models.JobCardTimeEntry, error)
	Close(ctx context.Context, companyID, id int, end time.Time, breakMinutes int, hours float64) error
}

// ItemReader is the slice of the task store the time tracker needs.
type ItemReader interface {
	Get(ctx context.Context, companyID, id int) (*models.JobCardItem, error)
}

// TimeTrackingService runs technician clock-in/out. Exclusivity (one active
// entry per technician per task) lives in the store's unique index, so two
// racing clock-ins resolve there and the loser sees Conflict.
type TimeTrackingService struct {
	entries TimeEntryStore
	items   ItemReader
	clock   clock.Clock
	log     *logrus.Logger
}

func NewTimeTrackingService(entries TimeEntryStore, items ItemReader, clk clock.Clock, log *logrus.Logger) *TimeTrackingService {
	return &TimeTrackingService{entries: entries, items: items, clock: clk, log: log}
}

// ClockIn opens an entry against a task that is in progress.
func (s *TimeTrackingService) ClockIn(ctx context.Context, companyID, itemID int, req models.ClockInRequest) (*models.JobCardTimeEntry, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	it, err := s.items.Get(ctx, companyID, itemID)
	if err != nil {
		return nil, err
	}
	if it.Status != models.ItemInProgress {
		return nil, models.Errorf(models.ErrPreconditionFailed,
			"task %q is %s, clock-in requires in_progress", it.Title, it.Status)
	}

	e := &models.JobCardTimeEntry{
		CompanyID:    companyID,
		ItemID:       itemID,
		TechnicianID: req.TechnicianID,
		StartTime:    s.clock.Now(),
		IsActive:     true,
	}
	if err := s.entries.ClockIn(ctx, e); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"company_id":    companyID,
		"item_id":       itemID,
		"technician_id": req.TechnicianID,
	}).Info("technician clocked in")
	return e, nil
}

// ClockOut closes the entry, computes the worked hours net of the break and
// folds them into the task. Clocking out twice is a Conflict.
func (s *TimeTrackingService) ClockOut(ctx context.Context, companyID, entryID int, req models.ClockOutRequest) (*models.JobCardTimeEntry, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	e, err := s.entries.Get(ctx, companyID, entryID)
	if err != nil {
		return nil, err
	}
	if !e.IsActive {
		return nil, models.Errorf(models.ErrConflict, "time entry %d is already closed", entryID)
	}

	end := s.clock.Now()
	hours := models.WorkedHours(e.StartTime, end, req.BreakMinutes)
	if err := s.entries.Close(ctx, companyID, entryID, end, req.BreakMinutes, hours); err != nil {
		return nil, err
	}
	return s.entries.Get(ctx, companyID, entryID)
}

func (s *TimeTrackingService) ListByItem(ctx context.Context, companyID, itemID int) ([]models.JobCardTimeEntry, error) {
	return s.entries.ListByItem(ctx, companyID, itemID)
}
