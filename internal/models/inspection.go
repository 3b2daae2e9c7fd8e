package models

import "time"

// Inspection is the technical walk-around for a session. At most one per
// session; its items become candidate job-card work via the source link.
type Inspection struct {
	ID          int              `json:"id"`
	CompanyID   int              `json:"company_id"`
	SessionID   int              `json:"session_id"`
	InspectorID *int             `json:"inspector_id,omitempty"`
	Status      IntakeStatus     `json:"status"`
	Notes       string           `json:"notes"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	Items       []InspectionItem `json:"items,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   *time.Time       `json:"updated_at,omitempty"`
}

// InspectionItem is a single finding.
type InspectionItem struct {
	ID           int       `json:"id"`
	CompanyID    int       `json:"company_id"`
	InspectionID int       `json:"inspection_id"`
	Area         string    `json:"area"`
	Title        string    `json:"title"`
	Finding      string    `json:"finding"`
	Severity     string    `json:"severity"`
	CreatedAt    time.Time `json:"created_at"`
}

type CreateInspectionRequest struct {
	InspectorID *int   `json:"inspector_id,omitempty"`
	Notes       string `json:"notes"`
}

type AddInspectionItemRequest struct {
	Area     string `json:"area"`
	Title    string `json:"title" validate:"required"`
	Finding  string `json:"finding"`
	Severity string `json:"severity" validate:"omitempty,oneof=info minor major critical"`
}
