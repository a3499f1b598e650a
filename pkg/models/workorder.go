package models

import (
	"time"

	"github.com/google/uuid"
)

// WorkOrderStatus is one of the fixed set of work order lifecycle states.
type WorkOrderStatus string

const (
	StatusRequested  WorkOrderStatus = "requested"
	StatusAssigned   WorkOrderStatus = "assigned"
	StatusInProgress WorkOrderStatus = "in_progress"
	StatusPaused     WorkOrderStatus = "paused"
	StatusCompleted  WorkOrderStatus = "completed"
	StatusCancelled  WorkOrderStatus = "cancelled"
)

// WorkOrderStatuses lists every status in its fixed ordering. Status
// histograms emit all of them, zero-filled, in this order.
var WorkOrderStatuses = []WorkOrderStatus{
	StatusRequested,
	StatusAssigned,
	StatusInProgress,
	StatusPaused,
	StatusCompleted,
	StatusCancelled,
}

// WorkOrderType distinguishes preventive from corrective maintenance.
type WorkOrderType string

const (
	TypePreventive WorkOrderType = "preventive"
	TypeCorrective WorkOrderType = "corrective"
)

// PartLine is one parts-used cost line on a work order.
type PartLine struct {
	PartID   uuid.UUID `json:"part_id"`
	UnitCost float64   `json:"unit_cost"`
	Quantity float64   `json:"quantity"`
}

// WorkOrder is the read view over an externally owned work order record.
// This subsystem never mutates work orders.
type WorkOrder struct {
	ID           uuid.UUID       `json:"id"`
	TenantID     uuid.UUID       `json:"tenant_id"`
	Status       WorkOrderStatus `json:"status"`
	Type         WorkOrderType   `json:"type"`
	FailureCode  string          `json:"failure_code,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
	DueDate      *time.Time      `json:"due_date,omitempty"`
	TimeSpentMin float64         `json:"time_spent_min"`
	AssetID      *uuid.UUID      `json:"asset_id,omitempty"`
	SiteID       *uuid.UUID      `json:"site_id,omitempty"`
	PMTaskID     *uuid.UUID      `json:"pm_task_id,omitempty"`
	PartsUsed    []PartLine      `json:"parts_used,omitempty"`
}

// IsOpen reports whether the work order still counts toward the backlog.
func (w *WorkOrder) IsOpen() bool {
	return w.Status != StatusCompleted
}

// DowntimeMinutes derives the downtime attributable to this work order:
// recorded time spent, falling back to the completion span when unset.
func (w *WorkOrder) DowntimeMinutes() float64 {
	if w.TimeSpentMin > 0 {
		return w.TimeSpentMin
	}
	if w.CompletedAt != nil {
		return w.CompletedAt.Sub(w.CreatedAt).Minutes()
	}
	return 0
}

// PartsCost is the total parts-used cost on the work order.
func (w *WorkOrder) PartsCost() float64 {
	var total float64
	for _, p := range w.PartsUsed {
		total += p.UnitCost * p.Quantity
	}
	return total
}
