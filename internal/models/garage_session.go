package models

import "time"

// SessionStatus is the lifecycle stage of one vehicle visit.
type SessionStatus string

const (
	SessionCheckedIn    SessionStatus = "checked_in"
	SessionInspection   SessionStatus = "inspection"
	SessionTestDrive    SessionStatus = "test_drive"
	SessionQuoting      SessionStatus = "quoting"
	SessionInProgress   SessionStatus = "in_progress"
	SessionWaitingParts SessionStatus = "waiting_parts"
	SessionQualityCheck SessionStatus = "quality_check"
	SessionCompleted    SessionStatus = "completed"
	SessionClosed       SessionStatus = "closed"
	SessionCancelled    SessionStatus = "cancelled"
)

// sessionRank orders the forward-only pipeline. Cancelled sits outside the
// ordering and is handled separately.
var sessionRank = map[SessionStatus]int{
	SessionCheckedIn:    0,
	SessionInspection:   1,
	SessionTestDrive:    2,
	SessionQuoting:      3,
	SessionInProgress:   4,
	SessionWaitingParts: 5,
	SessionQualityCheck: 6,
	SessionCompleted:    7,
	SessionClosed:       8,
}

// IsTerminalSessionStatus reports whether no further transition is allowed.
func IsTerminalSessionStatus(s SessionStatus) bool {
	return s == SessionClosed || s == SessionCancelled
}

// CanTransitionSession reports whether from -> to is a legal session move:
// strictly forward along the pipeline, or to Cancelled from any non-terminal
// state. Same-state writes are rejected so callers notice no-op requests.
func CanTransitionSession(from, to SessionStatus) bool {
	if IsTerminalSessionStatus(from) {
		return false
	}
	if to == SessionCancelled {
		return true
	}
	fromRank, ok := sessionRank[from]
	if !ok {
		return false
	}
	toRank, ok := sessionRank[to]
	if !ok {
		return false
	}
	return toRank > fromRank
}

// GarageSession is one vehicle visit from check-in to check-out.
type GarageSession struct {
	ID            int           `json:"id"`
	CompanyID     int           `json:"company_id"`
	BranchID      *int          `json:"branch_id,omitempty"`
	ClientID      int           `json:"client_id"`
	VehicleID     int           `json:"vehicle_id"`
	SessionNumber string        `json:"session_number"`
	Status        SessionStatus `json:"status"`
	MileageIn     int           `json:"mileage_in"`
	MileageOut    *int          `json:"mileage_out,omitempty"`
	CheckInAt     time.Time     `json:"check_in_at"`
	CheckOutAt    *time.Time    `json:"check_out_at,omitempty"`
	AdvisorID     *int          `json:"advisor_id,omitempty"`
	TechnicianID  *int          `json:"technician_id,omitempty"`
	CancelReason  string        `json:"cancel_reason,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     *time.Time    `json:"updated_at,omitempty"`
}

// CreateSessionRequest is the request body for checking a vehicle in.
type CreateSessionRequest struct {
	ClientID     int  `json:"client_id" validate:"required,gt=0"`
	VehicleID    int  `json:"vehicle_id" validate:"required,gt=0"`
	BranchID     *int `json:"branch_id,omitempty"`
	MileageIn    int  `json:"mileage_in" validate:"gte=0"`
	AdvisorID    *int `json:"advisor_id,omitempty"`
	TechnicianID *int `json:"technician_id,omitempty"`
}

// UpdateSessionStatusRequest moves a session forward in the pipeline.
type UpdateSessionStatusRequest struct {
	Status SessionStatus `json:"status" validate:"required"`
}

// CheckOutRequest closes a session.
type CheckOutRequest struct {
	MileageOut int `json:"mileage_out" validate:"gte=0"`
}

// CancelSessionRequest cancels a session with a reason.
type CancelSessionRequest struct {
	Reason string `json:"reason"`
}
