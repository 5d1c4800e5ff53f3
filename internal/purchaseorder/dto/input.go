package dto

type OrderItemInput struct {
	PartID       string
	PartNumber   string
	PartName     string
	RequestedQty int
	UnitPrice    float64
}

type CreateOrderInput struct {
	ServiceCenterID string
	RequestedBy     string
	Priority        string
	Notes           string
	Items           []OrderItemInput
}

// ItemDecision is the central authority's per-line verdict. An approved
// quantity of zero rejects the line; items without a decision default to
// full approval.
type ItemDecision struct {
	ItemID      string
	ApprovedQty int
}

type ApproveOrderInput struct {
	OrderID  string
	Approver string
	Items    []ItemDecision
}

type RejectOrderInput struct {
	OrderID  string
	Approver string
	Reason   string
}

type IssueLine struct {
	ItemID   string
	Quantity int
}

type IssuePartsInput struct {
	OrderID  string
	IssuedBy string
	Items    []IssueLine
}
