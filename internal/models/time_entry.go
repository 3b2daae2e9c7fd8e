package models

import "time"

// JobCardTimeEntry is a technician's clock-in/out record against a task.
// At most one active entry exists per (technician, item) pair; the store
// enforces this with a partial unique index.
type JobCardTimeEntry struct {
	ID           int        `json:"id"`
	CompanyID    int        `json:"company_id"`
	ItemID       int        `json:"item_id"`
	TechnicianID int        `json:"technician_id"`
	StartTime    time.Time  `json:"start_time"`
	EndTime      *time.Time `json:"end_time,omitempty"`
	BreakMinutes int        `json:"break_minutes"`
	Hours        float64    `json:"hours"`
	IsActive     bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
}

// WorkedHours computes the billable hours for a closed entry:
// (end - start) - breakMinutes/60, floored at zero.
func WorkedHours(start, end time.Time, breakMinutes int) float64 {
	h := end.Sub(start).Hours() - float64(breakMinutes)/60.0
	if h < 0 {
		return 0
	}
	return h
}

type ClockInRequest struct {
	TechnicianID int `json:"technician_id" validate:"required,gt=0"`
}

type ClockOutRequest struct {
	BreakMinutes int `json:"break_minutes" validate:"gte=0"`
}
