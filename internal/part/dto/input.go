package dto

const (
	StockOpAdd      = "add"
	StockOpSubtract = "subtract"
)

type CreatePartInput struct {
	PartID        string
	PartNumber    string
	PartName      string
	StockQuantity int
	MinStockLevel int
	Price         float64
	GSTRate       float64
	Unit          string
	CreatedBy     string
	Reason        string
}

// UpdatePartInput carries a partial update. Nil means the field was omitted
// and stays untouched; a pointer to the zero value clears it explicitly.
// Stock quantity is absent on purpose: stock only moves through UpdateStock.
type UpdatePartInput struct {
	ID            string
	PartNumber    *string
	PartName      *string
	MinStockLevel *int
	Price         *float64
	GSTRate       *float64
	Unit          *string
}

type UpdateStockInput struct {
	ID        string
	Quantity  int
	Operation string
	Reason    string
	UpdatedBy string
}
