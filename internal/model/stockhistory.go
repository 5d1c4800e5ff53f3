package model

import "time"

const (
	MovementIncrease = "increase"
	MovementDecrease = "decrease"
)

// StockUpdateHistory is one immutable row in the stock audit log. Rows are
// only ever inserted, in the same transaction as the ledger write they record.
type StockUpdateHistory struct {
	ID            string    `db:"id" json:"id"`
	PartRef       string    `db:"part_ref" json:"part_ref"`
	PartID        string    `db:"part_id" json:"part_id"`
	PartNumber    string    `db:"part_number" json:"part_number"`
	PartName      string    `db:"part_name" json:"part_name"`
	Quantity      int       `db:"quantity" json:"quantity"`
	Movement      string    `db:"movement" json:"movement"`
	PreviousStock int       `db:"previous_stock" json:"previous_stock"`
	NewStock      int       `db:"new_stock" json:"new_stock"`
	JobCardID     *string   `db:"job_card_id" json:"job_card_id"`
	JobCardNumber *string   `db:"job_card_number" json:"job_card_number"`
	CustomerName  *string   `db:"customer_name" json:"customer_name"`
	EngineerName  *string   `db:"engineer_name" json:"engineer_name"`
	UpdatedBy     *string   `db:"updated_by" json:"updated_by"`
	Reason        string    `db:"reason" json:"reason"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
