package dto

import "github.com/garagehub/parts-service/internal/model"

type PartFilters struct {
	Query    string
	LowStock bool
	Page     int
	PageSize int
}

type PartResult struct {
	Part   *model.Part `json:"part"`
	Merged bool        `json:"merged"`
}

type BulkCreateResult struct {
	Success int      `json:"success"`
	Failed  int      `json:"failed"`
	Merged  int      `json:"merged"`
	Errors  []string `json:"errors"`
}
