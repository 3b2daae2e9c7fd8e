package models

import "time"

// ItemStatus is the per-task state machine: pending -> in_progress ->
// completed. QualityChecked is an orthogonal boolean set only once the item
// is completed.
type ItemStatus string

const (
	ItemPending    ItemStatus = "pending"
	ItemInProgress ItemStatus = "in_progress"
	ItemCompleted  ItemStatus = "completed"
)

// CanTransitionItem reports whether a task may move from -> to.
func CanTransitionItem(from, to ItemStatus) bool {
	switch from {
	case ItemPending:
		return to == ItemInProgress || to == ItemCompleted
	case ItemInProgress:
		return to == ItemCompleted
	default:
		return false
	}
}

// Item sources, for traceability back to the intake record that raised the
// work.
const (
	ItemSourceCustomerRequest = "customer_request"
	ItemSourceInspection      = "inspection"
	ItemSourceTestDrive       = "test_drive"
)

// JobCardItem is one task on a job card.
type JobCardItem struct {
	ID             int           `json:"id"`
	CompanyID      int           `json:"company_id"`
	JobCardID      int           `json:"job_card_id"`
	Title          string        `json:"title"`
	Description    string        `json:"description"`
	Status         ItemStatus    `json:"status"`
	QualityChecked bool          `json:"quality_checked"`
	TechnicianID   *int          `json:"technician_id,omitempty"`
	EstimatedHours float64       `json:"estimated_hours"`
	ActualHours    float64       `json:"actual_hours"`
	Source         *string       `json:"source,omitempty"`
	SourceID       *int          `json:"source_id,omitempty"`
	Parts          []JobCardPart `json:"parts,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      *time.Time    `json:"updated_at,omitempty"`
}

type AddJobCardItemRequest struct {
	Title          string  `json:"title" validate:"required"`
	Description    string  `json:"description"`
	TechnicianID   *int    `json:"technician_id,omitempty"`
	EstimatedHours float64 `json:"estimated_hours" validate:"gte=0"`
}

type UpdateJobCardItemRequest struct {
	Title          string  `json:"title" validate:"required"`
	Description    string  `json:"description"`
	TechnicianID   *int    `json:"technician_id,omitempty"`
	EstimatedHours float64 `json:"estimated_hours" validate:"gte=0"`
}

// CreateItemFromSourceRequest creates a task from an intake record. Title
// and description default to the source record's when left empty.
type CreateItemFromSourceRequest struct {
	SourceID       int     `json:"source_id" validate:"required,gt=0"`
	TechnicianID   *int    `json:"technician_id,omitempty"`
	EstimatedHours float64 `json:"estimated_hours" validate:"gte=0"`
}
