package dto

type OrderFilters struct {
	Status          string
	ServiceCenterID string
	Priority        string
	Page            int
	PageSize        int
}
