package model

const DefaultPageSize = 10

type UserPage struct {
	Results    []User `json:"results"`
	PageNumber int    `json:"page_number"`
	TotalUsers int    `json:"total_users"`
	TotalPages int    `json:"total_pages"`
}

// SearchResult holds either a single exact email match or a page of partial
// username matches, never both.
type SearchResult struct {
	Exact *User
	Page  *UserPage
}

// PageBounds validates a 1-indexed page against total items and returns the
// row offset and the page count. An empty collection has one empty page.
func PageBounds(page, pageSize, total int) (offset int, totalPages int, err error) {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	totalPages = (total + pageSize - 1) / pageSize
	if totalPages == 0 {
		totalPages = 1
	}
	if page < 1 || page > totalPages {
		return 0, totalPages, ErrorInvalidPage
	}
	return (page - 1) * pageSize, totalPages, nil
}
