package models

import "time"

// IntakeStatus tracks the intake sub-records (customer request, inspection,
// test drive) independently of the session status.
type IntakeStatus string

const (
	IntakePending    IntakeStatus = "pending"
	IntakeInProgress IntakeStatus = "in_progress"
	IntakeCompleted  IntakeStatus = "completed"
)

// CustomerRequest records what the customer asked for at check-in. At most
// one per session.
type CustomerRequest struct {
	ID          int          `json:"id"`
	CompanyID   int          `json:"company_id"`
	SessionID   int          `json:"session_id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Status      IntakeStatus `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   *time.Time   `json:"updated_at,omitempty"`
}

type CreateCustomerRequestRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
}
