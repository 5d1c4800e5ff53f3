package dto

import "time"

type RequestFilters struct {
	Status    string
	JobCardID string
	Page      int
	PageSize  int
}

// PartsAssignedEvent tells the job-card subsystem that stock has been
// committed against a job card.
type PartsAssignedEvent struct {
	EventID   string               `json:"event_id"`
	EventType string               `json:"event_type"`
	Payload   PartsAssignedPayload `json:"payload"`
	Timestamp time.Time            `json:"timestamp"`
}

type PartsAssignedPayload struct {
	RequestID     string         `json:"request_id"`
	JobCardID     string         `json:"job_card_id"`
	JobCardNumber string         `json:"job_card_number"`
	Engineer      string         `json:"engineer"`
	Items         []AssignedItem `json:"items"`
}

type AssignedItem struct {
	PartID   string `json:"part_id"`
	PartName string `json:"part_name"`
	Quantity int    `json:"quantity"`
}

const EventTypePartsAssigned = "PartsAssigned"
