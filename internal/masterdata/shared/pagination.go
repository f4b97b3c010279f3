package shared

// ListFilters represents standard list page filters
type ListFilters struct {
	Page     int
	Limit    int
	Search   string
	SortBy   string
	SortDir  string
	IsActive *bool

	// Entity specific filters
	SiteID *int64
	Unit   string
}

// Normalize fills defaults and caps the page size.
func (f *ListFilters) Normalize() {
	if f.Page < 1 {
		f.Page = DefaultPage
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = DefaultLimit
	}
	if f.SortDir != SortAsc && f.SortDir != SortDesc {
		f.SortDir = SortAsc
	}
}
