package dto

type RequestItemInput struct {
	PartID       string
	PartName     string
	Quantity     int
	SerialNumber string
	IsWarranty   bool
}

type SubmitRequestInput struct {
	JobCardID     string
	JobCardNumber string
	VehicleID     string
	CustomerName  string
	RequestedBy   string
	Items         []RequestItemInput
}

type ApproveInput struct {
	RequestID string
	Approver  string
	Notes     string
}

type RejectInput struct {
	RequestID string
	Actor     string
	Reason    string
}

type AssignInput struct {
	RequestID string
	Assigner  string
	Engineer  string
	Notes     string
}
