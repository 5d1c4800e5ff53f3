package dto

import "time"

type HistoryFilters struct {
	PartID    string
	Movement  string
	JobCardID string
	StartDate *time.Time
	EndDate   *time.Time
	Page      int
	PageSize  int
}
