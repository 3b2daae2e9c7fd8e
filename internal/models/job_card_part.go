package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PartStatus is the procurement state of a part on a task.
type PartStatus string

const (
	PartPending   PartStatus = "pending"
	PartOrdered   PartStatus = "ordered"
	PartReceived  PartStatus = "received"
	PartInstalled PartStatus = "installed"
	PartReturned  PartStatus = "returned"
	PartCancelled PartStatus = "cancelled"
)

var partTransitions = map[PartStatus][]PartStatus{
	PartPending:  {PartOrdered, PartCancelled},
	PartOrdered:  {PartReceived, PartCancelled},
	PartReceived: {PartInstalled, PartReturned},
	// Installed parts are immutable; returned/cancelled are terminal.
	PartInstalled: {},
	PartReturned:  {},
	PartCancelled: {},
}

// CanTransitionPart reports whether a part may move from -> to.
func CanTransitionPart(from, to PartStatus) bool {
	for _, next := range partTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// JobCardPart is part/inventory usage on a task. Totals are computed once at
// insertion from the unit figures in force at that moment and are not
// re-derived when catalog prices later change.
type JobCardPart struct {
	ID           int             `json:"id"`
	CompanyID    int             `json:"company_id"`
	ItemID       int             `json:"item_id"`
	PartNumber   string          `json:"part_number"`
	Name         string          `json:"name"`
	Status       PartStatus      `json:"status"`
	QuantityUsed decimal.Decimal `json:"quantity_used"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Markup       decimal.Decimal `json:"markup"`
	TotalCost    decimal.Decimal `json:"total_cost"`
	TotalPrice   decimal.Decimal `json:"total_price"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    *time.Time      `json:"updated_at,omitempty"`
}

// ComputeTotals fills TotalCost and TotalPrice:
// TotalCost = QuantityUsed * UnitCost
// TotalPrice = QuantityUsed * UnitPrice * (1 + Markup)
func (p *JobCardPart) ComputeTotals() {
	p.TotalCost = p.QuantityUsed.Mul(p.UnitCost).Round(2)
	p.TotalPrice = p.QuantityUsed.Mul(p.UnitPrice).
		Mul(decimal.NewFromInt(1).Add(p.Markup)).Round(2)
}

type AddJobCardPartRequest struct {
	PartNumber   string          `json:"part_number"`
	Name         string          `json:"name" validate:"required"`
	QuantityUsed decimal.Decimal `json:"quantity_used"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Markup       decimal.Decimal `json:"markup"`
}

type UpdatePartStatusRequest struct {
	Status PartStatus `json:"status" validate:"required"`
}
