package shared

// ListFilters represents standard list filters
type ListFilters struct {
	Page    int
	Limit   int
	Search  string
	SortBy  string
	SortDir string

	// Entity specific filters
	IsActive    *bool
	WarehouseID *int64
}
