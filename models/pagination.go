package models

// Pagination is the derived view state for a paginated list: which page the
// caller is on, how many pages exist and whether prev/next are available.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int32 `json:"total"`
	TotalPages int   `json:"total_pages"`
	StartItem  int   `json:"start_item"`
	EndItem    int   `json:"end_item"`
	HasPrev    bool  `json:"has_prev"`
	HasNext    bool  `json:"has_next"`
}

// Paginate computes pagination bounds. Page is clamped to [1, totalPages];
// an empty list yields start/end of 0 with neither prev nor next available.
func Paginate(total int32, page, limit int) Pagination {
	if limit < 1 {
		limit = 20
	}

	totalPages := (int(total) + limit - 1) / limit

	if page < 1 {
		page = 1
	}

	if totalPages > 0 && page > totalPages {
		page = totalPages
	}

	p := Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	}

	if total == 0 {
		return p
	}

	p.StartItem = (page-1)*limit + 1
	p.EndItem = page * limit
	if int32(p.EndItem) > total {
		p.EndItem = int(total)
	}

	p.HasPrev = page > 1
	p.HasNext = page < totalPages

	return p
}
