package models

import "time"

// JobCardStatus is the workflow stage of a work order.
type JobCardStatus string

const (
	JobCardDraft        JobCardStatus = "draft"
	JobCardApproved     JobCardStatus = "approved"
	JobCardInProgress   JobCardStatus = "in_progress"
	JobCardWaitingParts JobCardStatus = "waiting_parts"
	JobCardQualityCheck JobCardStatus = "quality_check"
	JobCardCompleted    JobCardStatus = "completed"
	JobCardCancelled    JobCardStatus = "cancelled"
)

// jobCardTransitions is the allowed transition graph. A card never moves
// backward and never re-enters Draft; Cancelled is reachable from every
// non-terminal state and handled in CanTransitionJobCard.
var jobCardTransitions = map[JobCardStatus][]JobCardStatus{
	JobCardDraft:        {JobCardApproved, JobCardInProgress},
	JobCardApproved:     {JobCardInProgress},
	JobCardInProgress:   {JobCardWaitingParts, JobCardQualityCheck, JobCardCompleted},
	JobCardWaitingParts: {JobCardQualityCheck, JobCardCompleted},
	JobCardQualityCheck: {JobCardCompleted},
	JobCardCompleted:    {},
	JobCardCancelled:    {},
}

// IsTerminalJobCardStatus reports whether the card can no longer move.
func IsTerminalJobCardStatus(s JobCardStatus) bool {
	return s == JobCardCompleted || s == JobCardCancelled
}

// CanTransitionJobCard reports whether from -> to is legal per the graph.
func CanTransitionJobCard(from, to JobCardStatus) bool {
	if to == JobCardCancelled {
		return !IsTerminalJobCardStatus(from)
	}
	for _, next := range jobCardTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// JobCard is the authorized work order for a session. Approval (internal
// technical sign-off) and customer authorization (accepted cost/scope) are
// independent axes, both separate from the status enum.
type JobCard struct {
	ID                           int           `json:"id"`
	CompanyID                    int           `json:"company_id"`
	SessionID                    int           `json:"session_id"`
	JobCardNumber                string        `json:"job_card_number"`
	Title                        string        `json:"title"`
	Status                       JobCardStatus `json:"status"`
	IsApproved                   bool          `json:"is_approved"`
	ApprovedAt                   *time.Time    `json:"approved_at,omitempty"`
	ApprovedByID                 *int          `json:"approved_by_id,omitempty"`
	ApprovalNotes                string        `json:"approval_notes,omitempty"`
	CustomerAuthorized           bool          `json:"customer_authorized"`
	CustomerAuthorizedAt         *time.Time    `json:"customer_authorized_at,omitempty"`
	CustomerAuthorizationMethod  *string       `json:"customer_authorization_method,omitempty"`
	EstimatedHours               float64       `json:"estimated_hours"`
	ActualHours                  float64       `json:"actual_hours"`
	ActualStartAt                *time.Time    `json:"actual_start_at,omitempty"`
	ActualCompletionAt           *time.Time    `json:"actual_completion_at,omitempty"`
	Version                      int           `json:"version"`
	Items                        []JobCardItem `json:"items,omitempty"`
	CreatedAt                    time.Time     `json:"created_at"`
	UpdatedAt                    *time.Time    `json:"updated_at,omitempty"`
}

type CreateJobCardRequest struct {
	SessionID      int     `json:"session_id" validate:"required,gt=0"`
	Title          string  `json:"title" validate:"required"`
	EstimatedHours float64 `json:"estimated_hours" validate:"gte=0"`
}

type ApproveJobCardRequest struct {
	Notes string `json:"notes"`
}

type AuthorizeJobCardRequest struct {
	Method string `json:"method" validate:"required,oneof=in_person phone email signature portal"`
	Notes  string `json:"notes"`
}

type UpdateJobCardStatusRequest struct {
	Status JobCardStatus `json:"status" validate:"required"`
}
