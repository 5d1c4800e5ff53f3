package model

import "time"

const (
	POStatusPending            = "pending"
	POStatusApproved           = "approved"
	POStatusRejected           = "rejected"
	POStatusPartiallyFulfilled = "partially_fulfilled"
	POStatusFulfilled          = "fulfilled"
)

const (
	POItemStatusPending  = "pending"
	POItemStatusApproved = "approved"
	POItemStatusRejected = "rejected"
)

const (
	POPriorityLow    = "low"
	POPriorityNormal = "normal"
	POPriorityHigh   = "high"
	POPriorityUrgent = "urgent"
)

// PurchaseOrder is a bulk restock request from a service center to the
// central inventory authority. Order-level status is derived from per-item
// decisions and from how much of the approved quantities has been issued
// against the ledger.
type PurchaseOrder struct {
	BaseModel
	PONumber        string     `db:"po_number" json:"po_number"`
	ServiceCenterID string     `db:"service_center_id" json:"service_center_id"`
	RequestedBy     string     `db:"requested_by" json:"requested_by"`
	Priority        string     `db:"priority" json:"priority"`
	Status          string     `db:"status" json:"status"`
	Notes           *string    `db:"notes" json:"notes"`
	ApprovedBy      *string    `db:"approved_by" json:"approved_by"`
	ApprovedAt      *time.Time `db:"approved_at" json:"approved_at"`
	RejectedBy      *string    `db:"rejected_by" json:"rejected_by"`
	RejectedAt      *time.Time `db:"rejected_at" json:"rejected_at"`
	RejectionReason *string    `db:"rejection_reason" json:"rejection_reason"`

	Items []PurchaseOrderItem `db:"-" json:"items"`
}

type PurchaseOrderItem struct {
	ID           string  `db:"id" json:"id"`
	POID         string  `db:"po_id" json:"po_id"`
	PartID       string  `db:"part_id" json:"part_id"`
	PartNumber   string  `db:"part_number" json:"part_number"`
	PartName     string  `db:"part_name" json:"part_name"`
	RequestedQty int     `db:"requested_qty" json:"requested_qty"`
	ApprovedQty  *int    `db:"approved_qty" json:"approved_qty"`
	IssuedQty    int     `db:"issued_qty" json:"issued_qty"`
	UnitPrice    float64 `db:"unit_price" json:"unit_price"`
	Status       string  `db:"status" json:"status"`
	Position     int     `db:"position" json:"position"`
}
