package model

// Part is the canonical stock record for a stocked item. Stock quantity only
// changes through the ledger's adjustment path; every change writes a
// StockUpdateHistory row in the same transaction.
type Part struct {
	BaseModel
	PartID        string  `db:"part_id" json:"part_id"`
	PartNumber    string  `db:"part_number" json:"part_number"`
	PartName      string  `db:"part_name" json:"part_name"`
	StockQuantity int     `db:"stock_quantity" json:"stock_quantity"`
	MinStockLevel int     `db:"min_stock_level" json:"min_stock_level"`
	Price         float64 `db:"price" json:"price"`
	GSTRate       float64 `db:"gst_rate" json:"gst_rate"`
	PriceWithGST  float64 `db:"price_with_gst" json:"price_with_gst"`
	Unit          string  `db:"unit" json:"unit"`
}
