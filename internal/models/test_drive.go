package models

import "time"

// TestDrive is the road-test record for a session. At most one per session.
type TestDrive struct {
	ID          int          `json:"id"`
	CompanyID   int          `json:"company_id"`
	SessionID   int          `json:"session_id"`
	DriverID    *int         `json:"driver_id,omitempty"`
	Status      IntakeStatus `json:"status"`
	Findings    string       `json:"findings"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   *time.Time   `json:"updated_at,omitempty"`
}

type CreateTestDriveRequest struct {
	DriverID *int `json:"driver_id,omitempty"`
}

type CompleteTestDriveRequest struct {
	Findings string `json:"findings"`
}
