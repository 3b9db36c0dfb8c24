package ranking

// Pagination describes where a page sits in the full result
type Pagination struct {
	Current  int  `json:"current"`
	Pages    int  `json:"pages"`
	Total    int  `json:"total"`
	PageSize int  `json:"pageSize"`
	HasNext  bool `json:"hasNext"`
	HasPrev  bool `json:"hasPrev"`
}

// NewPagination derives page counts from a 1-indexed page
func NewPagination(page, pageSize, total int) Pagination {
	pages := 0
	if pageSize > 0 {
		pages = (total + pageSize - 1) / pageSize
	}
	return Pagination{
		Current:  page,
		Pages:    pages,
		Total:    total,
		PageSize: pageSize,
		HasNext:  page < pages,
		HasPrev:  page > 1,
	}
}
