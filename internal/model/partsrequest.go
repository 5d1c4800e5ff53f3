package model

import "time"

// Parts request lifecycle. Status is the single source of truth for where a
// request sits; the approval/assignment fields are stamps describing who acted
// and when, never consulted to decide whether a transition is allowed.
const (
	RequestStatusPending    = "pending"
	RequestStatusSCApproved = "sc_approved"
	RequestStatusApproved   = "approved"
	RequestStatusRejected   = "rejected"
)

type PartsRequest struct {
	BaseModel
	JobCardID     string    `db:"job_card_id" json:"job_card_id"`
	JobCardNumber string    `db:"job_card_number" json:"job_card_number"`
	VehicleID     *string   `db:"vehicle_id" json:"vehicle_id"`
	CustomerName  string    `db:"customer_name" json:"customer_name"`
	RequestedBy   string    `db:"requested_by" json:"requested_by"`
	RequestedAt   time.Time `db:"requested_at" json:"requested_at"`
	Status        string    `db:"status" json:"status"`

	SCManagerApproved bool       `db:"sc_manager_approved" json:"sc_manager_approved"`
	SCApprovedBy      *string    `db:"sc_approved_by" json:"sc_approved_by"`
	SCApprovedAt      *time.Time `db:"sc_approved_at" json:"sc_approved_at"`
	SCApprovalNotes   *string    `db:"sc_approval_notes" json:"sc_approval_notes"`

	InventoryManagerAssigned bool       `db:"inventory_manager_assigned" json:"inventory_manager_assigned"`
	AssignedBy               *string    `db:"assigned_by" json:"assigned_by"`
	AssignedAt               *time.Time `db:"assigned_at" json:"assigned_at"`
	AssignedEngineer         *string    `db:"assigned_engineer" json:"assigned_engineer"`
	AssignmentNotes          *string    `db:"assignment_notes" json:"assignment_notes"`

	RejectedBy      *string    `db:"rejected_by" json:"rejected_by"`
	RejectedAt      *time.Time `db:"rejected_at" json:"rejected_at"`
	RejectionReason *string    `db:"rejection_reason" json:"rejection_reason"`

	WorkCompleted   bool       `db:"work_completed" json:"work_completed"`
	WorkCompletedAt *time.Time `db:"work_completed_at" json:"work_completed_at"`

	Items []PartsRequestItem `db:"-" json:"items"`
}

// PartsRequestItem is one requested line. PartRef is the ledger row the line
// resolved to; nil means a manually typed work item that is not tracked stock.
type PartsRequestItem struct {
	ID           string  `db:"id" json:"id"`
	RequestID    string  `db:"request_id" json:"request_id"`
	PartRef      *string `db:"part_ref" json:"part_ref"`
	PartID       string  `db:"part_id" json:"part_id"`
	PartName     string  `db:"part_name" json:"part_name"`
	Quantity     int     `db:"quantity" json:"quantity"`
	SerialNumber *string `db:"serial_number" json:"serial_number"`
	IsWarranty   bool    `db:"is_warranty" json:"is_warranty"`
	Position     int     `db:"position" json:"position"`
}
